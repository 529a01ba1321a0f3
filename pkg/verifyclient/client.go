/**
 * @description
 * This package provides a client for the bot-verification service. Anonymous
 * generation requests must carry a challenge token; this client exchanges the
 * token (plus the client address) for a pass/fail verdict. It is a single-call
 * passthrough with no state of its own.
 *
 * @dependencies
 * - context, encoding/json, fmt, net/http, net/url, strings, time: Standard Go libraries.
 */
package verifyclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a client for the bot-verification API.
type Client struct {
	VerifyURL  string
	SecretKey  string
	HTTPClient *http.Client
}

// NewClient creates a new bot-verification client.
func NewClient(verifyURL, secretKey string) *Client {
	return &Client{
		VerifyURL: verifyURL,
		SecretKey: secretKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// verifyResponse is the verdict returned by the verification endpoint.
type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

// Verify checks a challenge token. A false return with a nil error means the
// token was evaluated and rejected; an error means the verdict is unknown.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	form := url.Values{}
	form.Set("secret", c.SecretKey)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to execute verify request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read verify response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("verify endpoint returned status %d", resp.StatusCode)
	}

	var verdict verifyResponse
	if err := json.Unmarshal(bodyBytes, &verdict); err != nil {
		return false, fmt.Errorf("failed to decode verify response: %w", err)
	}

	return verdict.Success, nil
}
