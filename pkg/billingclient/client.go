/**
 * @description
 * This package provides a client for the billing provider API. The
 * generation-service only needs a single operation from it: canceling an
 * active subscription on the user's behalf. Subscription state itself is
 * mirrored into the accounts table by the billing webhook sync, which lives
 * outside this service.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package billingclient

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

// Client is a client for the billing provider API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new billing provider client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// cancelRequest is the payload for a subscription cancellation.
type cancelRequest struct {
	SubscriptionID string `json:"subscription_id"`
}

// CancelResponse is the expected response from the cancellation endpoint.
type CancelResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ErrorResponse represents an error from the billing API.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *ErrorResponse) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("billing api error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("billing api error (status %d)", e.Status)
}

// CancelSubscription asks the billing provider to cancel the given subscription.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) (*CancelResponse, error) {
	body, err := json.Marshal(cancelRequest{SubscriptionID: subscriptionID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cancel request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/subscriptions/cancel", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create cancel request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute cancel request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cancel response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errResp := ErrorResponse{Status: resp.StatusCode}
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=billing_client op=cancel status=%d msg=\"non-2xx response (unparsable error body)\"", resp.StatusCode)
			return nil, fmt.Errorf("subscription cancel rejected (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=billing_client op=cancel status=%d message=%q", resp.StatusCode, errResp.Message)
		return nil, &errResp
	}

	var successResp CancelResponse
	if err := json.Unmarshal(bodyBytes, &successResp); err != nil {
		return nil, fmt.Errorf("failed to decode cancel response: %w", err)
	}

	return &successResp, nil
}
