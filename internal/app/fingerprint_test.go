package app

import (
	"strings"
	"testing"
)

func TestNormalizeUserAgent(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{
			name: "empty becomes unknown",
			ua:   "",
			want: "unknown",
		},
		{
			name: "whitespace only becomes unknown",
			ua:   "   ",
			want: "unknown",
		},
		{
			name: "version runs collapse to zero",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 16_6)",
			want: "mozilla/0 (iphone; cpu iphone os 0)",
		},
		{
			name: "dotted versions collapse",
			ua:   "Chrome/120.0.6099.129",
			want: "chrome/0",
		},
		{
			name: "interior whitespace collapses",
			ua:   "Mozilla/5.0   (Windows NT   10.0)",
			want: "mozilla/0 (windows nt 0)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeUserAgent(tt.ua); got != tt.want {
				t.Fatalf("NormalizeUserAgent(%q) = %q, want %q", tt.ua, got, tt.want)
			}
		})
	}
}

func TestNormalizeUserAgent_FoldsBuildsOfSameBrowser(t *testing.T) {
	a := NormalizeUserAgent("Mozilla/5.0 (iPhone; CPU iPhone OS 16_6)")
	b := NormalizeUserAgent("Mozilla/5.0 (iPhone; CPU iPhone OS 16_7)")
	if a != b {
		t.Fatalf("expected identical fingerprints, got %q vs %q", a, b)
	}
}

func TestGuestLimiterKey(t *testing.T) {
	key := GuestLimiterKey("203.0.113.9", "Mozilla/5.0 (iPhone; CPU iPhone OS 16_6)")
	if !strings.HasPrefix(key, "203.0.113.9:") {
		t.Fatalf("expected key to start with address, got %q", key)
	}
	fp := strings.TrimPrefix(key, "203.0.113.9:")
	for _, r := range fp {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			t.Fatalf("fingerprint contains non-alphanumeric rune %q in %q", r, fp)
		}
	}
}

func TestGuestLimiterKey_BoundedLength(t *testing.T) {
	longUA := strings.Repeat("CrazyBrowser ", 100)
	key := GuestLimiterKey("203.0.113.9", longUA)
	fp := strings.TrimPrefix(key, "203.0.113.9:")
	if len(fp) > maxFingerprintLen {
		t.Fatalf("fingerprint length %d exceeds bound %d", len(fp), maxFingerprintLen)
	}
}

func TestGuestLimiterKey_EmptyInputs(t *testing.T) {
	key := GuestLimiterKey("", "")
	if key != "noaddr:unknown" {
		t.Fatalf("expected placeholder key, got %q", key)
	}
}
