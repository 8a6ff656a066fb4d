package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginLimitPrefix = "ratelimit:login:"

// RateLimitResult is the outcome of taking one token from a bucket.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// takeToken refills the bucket in KEYS[1] by elapsed*rate, then takes one
// token if available. Times are milliseconds. Returns {allowed, wait_ms, tokens_left}.
var takeToken = redis.NewScript(`
local rate_ms = tonumber(ARGV[1]) / 1000
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
if now > ts then
	tokens = math.min(burst, tokens + (now - ts) * rate_ms)
end

local wait = 0
local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait = math.ceil((1 - tokens) / rate_ms)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', now)
redis.call('PEXPIRE', KEYS[1], math.ceil(burst / rate_ms))
return {allowed, wait, math.floor(tokens)}
`)

// CheckLoginRateLimit takes a token from the login bucket of ip. The bucket
// holds burst tokens and refills at ratePerSecond. Clients are keyed by a
// hash of the IP. Redis failures allow the request.
func (c *Cache) CheckLoginRateLimit(ctx context.Context, ip string, ratePerSecond float64, burst int) (*RateLimitResult, error) {
	now := c.now()
	refill := time.Duration(float64(time.Second) / ratePerSecond)

	out, err := takeToken.Run(ctx, c.client, []string{loginLimitPrefix + hashIP(ip)},
		ratePerSecond, burst, now.UnixMilli()).Int64Slice()
	if err != nil || len(out) != 3 {
		return &RateLimitResult{Allowed: true, Remaining: int64(burst), ResetAt: now.Add(refill)}, nil
	}

	res := &RateLimitResult{
		Allowed:   out[0] == 1,
		Remaining: out[2],
		ResetAt:   now.Add(refill),
	}
	if !res.Allowed {
		// Round up to whole seconds for the Retry-After header.
		res.RetryAfter = time.Duration(math.Ceil(float64(out[1])/1000)) * time.Second
	}
	return res, nil
}

// hashIP returns the first 8 bytes of sha256(ip) as hex.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
