/**
 * @description
 * This file derives the rate-limit identity for anonymous requests. The
 * identity folds together the client network address and a normalized
 * user-agent fingerprint, so different builds of the same browser land in the
 * same bucket while the key stays bounded and safe for the backing store.
 */

package app

import (
	"regexp"
	"strings"
)

const maxFingerprintLen = 64

var (
	versionRunPattern = regexp.MustCompile(`[0-9._]+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	nonAlnumPattern   = regexp.MustCompile(`[^a-z0-9]+`)
)

// NormalizeUserAgent lowercases the user-agent and collapses every maximal run
// of digits, dots and underscores into a single "0" token, so version and build
// numbers no longer distinguish otherwise identical agents. An empty user-agent
// normalizes to the literal "unknown".
func NormalizeUserAgent(userAgent string) string {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return "unknown"
	}
	ua = versionRunPattern.ReplaceAllString(ua, "0")
	ua = whitespacePattern.ReplaceAllString(ua, " ")
	return ua
}

// GuestLimiterKey builds the limiter key for an anonymous identity. The
// normalized user-agent is stripped to alphanumerics and truncated to a bounded
// prefix before being combined with the address, which caps key size and keeps
// control characters out of the backing store.
func GuestLimiterKey(address, userAgent string) string {
	fp := nonAlnumPattern.ReplaceAllString(NormalizeUserAgent(userAgent), "")
	if fp == "" {
		fp = "unknown"
	}
	if len(fp) > maxFingerprintLen {
		fp = fp[:maxFingerprintLen]
	}
	addr := strings.TrimSpace(address)
	if addr == "" {
		addr = "noaddr"
	}
	return addr + ":" + fp
}
