/**
 * @description
 * This package provides a client for the upstream inference queue API. It
 * encapsulates the logic for making authenticated HTTP requests to the queue's
 * submission endpoint, handling request body construction, and parsing
 * responses. Results are retrieved out of band by the caller using the request
 * id returned here; this client never polls.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package queueclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Client is a client for the inference queue API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new inference queue client. The HTTP timeout bounds every
// submission attempt; a timed-out submission is reported as a plain error so the
// caller can run its compensation path.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SubmitRequest represents the payload for a queue submission.
type SubmitRequest struct {
	Input SubmitInput `json:"input"`
}

// SubmitInput carries the generation parameters forwarded to the model.
type SubmitInput struct {
	Prompt      string `json:"prompt"`
	Duration    int    `json:"duration,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// SubmitResponse is the expected response from the queue's submission endpoint.
type SubmitResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status,omitempty"`
}

// ErrorResponse represents an error from the queue API.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Status int    `json:"-"`
}

func (e *ErrorResponse) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("queue api error (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("queue api error (status %d)", e.Status)
}

// Submit enqueues a generation job for the given upstream model id and returns
// the queue-issued request id.
func (c *Client) Submit(ctx context.Context, upstreamAPIID string, input SubmitInput) (*SubmitResponse, error) {
	body, err := json.Marshal(SubmitRequest{Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submit request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", c.BaseURL, upstreamAPIID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create submit request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Key "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute submit request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read submit response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errResp := ErrorResponse{Status: resp.StatusCode}
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=queue_client op=submit status=%d msg=\"non-2xx response (unparsable error body)\"", resp.StatusCode)
			return nil, fmt.Errorf("queue submission rejected (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=queue_client op=submit status=%d detail=%q", resp.StatusCode, errResp.Detail)
		return nil, &errResp
	}

	var successResp SubmitResponse
	if err := json.Unmarshal(bodyBytes, &successResp); err != nil {
		return nil, fmt.Errorf("failed to decode submit response: %w", err)
	}
	if successResp.RequestID == "" {
		return nil, fmt.Errorf("queue submission response missing request id")
	}

	return &successResp, nil
}
