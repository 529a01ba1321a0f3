/**
 * @description
 * This file implements the authoritative anonymous rate limiter on Redis. The
 * check and the usage increment execute inside one Lua script, so two
 * concurrent requests from the same identity can never both take the last slot
 * in the window. The window opens on the first recorded use and expires a full
 * window duration later.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: Redis client and Lua script support.
 */

package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var guestRateLimitScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local count = tonumber(redis.call("GET", KEYS[1]) or "0")
if count >= limit then
  local ttl = redis.call("PTTL", KEYS[1])
  if ttl < 0 then
    ttl = window
  end
  return {0, count, ttl}
end
count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], window)
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = window
end
return {1, count, ttl}
`)

// LimitDecision is the outcome of one limiter check.
type LimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// GuestLimiter checks and records one anonymous usage unit per call.
type GuestLimiter interface {
	Check(ctx context.Context, key string) (*LimitDecision, error)
}

// RedisGuestRateLimiter implements distributed guest rate limiting using Redis.
type RedisGuestRateLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// NewRedisGuestRateLimiter creates a limiter with the given daily maximum and
// window duration.
func NewRedisGuestRateLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisGuestRateLimiter {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "kinetix:guest_limit"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	if limit <= 0 {
		limit = 3
	}
	if window <= 0 {
		window = 24 * time.Hour
	}

	return &RedisGuestRateLimiter{
		client: client,
		prefix: trimmedPrefix,
		limit:  limit,
		window: window,
	}
}

// Check inspects the identity's window and, when a slot is free, records one
// usage unit in the same atomic call.
func (r *RedisGuestRateLimiter) Check(ctx context.Context, key string) (*LimitDecision, error) {
	if r == nil || r.client == nil {
		return nil, fmt.Errorf("guest rate limiter is not configured")
	}

	windowMs := r.window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	storeKey := fmt.Sprintf("%s:%s", r.prefix, key)
	rawResult, err := guestRateLimitScript.Run(ctx, r.client, []string{storeKey}, r.limit, windowMs).Result()
	if err != nil {
		return nil, err
	}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 3 {
		return nil, fmt.Errorf("unexpected redis limiter response shape: %T", rawResult)
	}

	allowed, ok := values[0].(int64)
	if !ok {
		return nil, fmt.Errorf("unexpected redis limiter verdict type: %T", values[0])
	}
	currentCount, ok := values[1].(int64)
	if !ok {
		return nil, fmt.Errorf("unexpected redis limiter count type: %T", values[1])
	}
	ttlMs, ok := values[2].(int64)
	if !ok {
		return nil, fmt.Errorf("unexpected redis limiter ttl type: %T", values[2])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	remaining := r.limit - int(currentCount)
	if remaining < 0 {
		remaining = 0
	}

	return &LimitDecision{
		Allowed:   allowed == 1,
		Limit:     r.limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(time.Duration(ttlMs) * time.Millisecond),
	}, nil
}
