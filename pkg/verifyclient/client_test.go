package verifyclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVerify(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     bool
		wantErr  bool
		remoteIP string
	}{
		{name: "token accepted", status: http.StatusOK, body: `{"success":true}`, want: true, remoteIP: "203.0.113.9"},
		{name: "token rejected", status: http.StatusOK, body: `{"success":false,"error-codes":["invalid-input-response"]}`, want: false},
		{name: "endpoint failure", status: http.StatusInternalServerError, body: "oops", wantErr: true},
		{name: "unparsable verdict", status: http.StatusOK, body: "<html>", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotForm map[string]string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err != nil {
					t.Errorf("failed to parse form: %v", err)
				}
				gotForm = map[string]string{
					"secret":   r.PostFormValue("secret"),
					"response": r.PostFormValue("response"),
					"remoteip": r.PostFormValue("remoteip"),
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "secret-1")
			passed, err := client.Verify(context.Background(), "token-1", tt.remoteIP)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if passed != tt.want {
				t.Fatalf("Verify = %v, want %v", passed, tt.want)
			}
			if gotForm["secret"] != "secret-1" || gotForm["response"] != "token-1" {
				t.Fatalf("unexpected form payload %v", gotForm)
			}
			if gotForm["remoteip"] != tt.remoteIP {
				t.Fatalf("expected remoteip %q, got %q", tt.remoteIP, gotForm["remoteip"])
			}
		})
	}
}
