package queueclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSubmit_Success(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody SubmitRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SubmitResponse{RequestID: "req-99", Status: "IN_QUEUE"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key", 5*time.Second)
	resp, err := client.Submit(context.Background(), "vendor/model/v1", SubmitInput{
		Prompt:      "a lighthouse in fog",
		Duration:    5,
		AspectRatio: "16:9",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.RequestID != "req-99" {
		t.Fatalf("expected request id req-99, got %q", resp.RequestID)
	}
	if gotPath != "/vendor/model/v1" {
		t.Fatalf("expected path /vendor/model/v1, got %q", gotPath)
	}
	if gotAuth != "Key secret-key" {
		t.Fatalf("expected Key auth scheme, got %q", gotAuth)
	}
	if gotBody.Input.Prompt != "a lighthouse in fog" || gotBody.Input.Duration != 5 {
		t.Fatalf("unexpected forwarded input %+v", gotBody.Input)
	}
}

func TestSubmit_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "prompt rejected by safety filter"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key", 5*time.Second)
	_, err := client.Submit(context.Background(), "vendor/model/v1", SubmitInput{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error for 422 response")
	}

	var apiErr *ErrorResponse
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *ErrorResponse, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Detail != "prompt rejected by safety filter" {
		t.Fatalf("unexpected error response %+v", apiErr)
	}
}

func TestSubmit_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key", 5*time.Second)
	_, err := client.Submit(context.Background(), "vendor/model/v1", SubmitInput{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
	var apiErr *ErrorResponse
	if errors.As(err, &apiErr) {
		t.Fatal("expected a plain error when the body is unparsable, got *ErrorResponse")
	}
}

func TestSubmit_MissingRequestID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "IN_QUEUE"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key", 5*time.Second)
	if _, err := client.Submit(context.Background(), "vendor/model/v1", SubmitInput{Prompt: "p"}); err == nil {
		t.Fatal("expected error when response lacks request_id")
	}
}

func TestSubmit_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key", 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Submit(ctx, "vendor/model/v1", SubmitInput{Prompt: "p"}); err == nil {
		t.Fatal("expected error after context deadline")
	}
}

func TestNewClient_DefaultsTimeout(t *testing.T) {
	client := NewClient("https://queue.example.com", "k", 0)
	if client.HTTPClient.Timeout != 30*time.Second {
		t.Fatalf("expected 30s default timeout, got %v", client.HTTPClient.Timeout)
	}
}
