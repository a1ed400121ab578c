package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is an optional Limiter backend for operators running more
// than one gateway process behind a shared cache, coordinating token
// buckets through Redis instead of process memory. It implements the same
// token-bucket semantics as MemoryLimiter via a Lua script so the
// read-modify-write cycle stays atomic across processes.
type RedisLimiter struct {
	rdb *redis.Client
	cfg Config
}

// NewRedisLimiter builds a RedisLimiter against an already-configured
// redis client.
func NewRedisLimiter(rdb *redis.Client, cfg Config) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, cfg: cfg}
}

// tokenBucketScript atomically refills and consumes a token from a hash
// stored at KEYS[1], returning 1 if a token was available.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rps = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])
if tokens == nil then
    tokens = burst
    ts = now
end

local elapsed = math.max(0, now - ts)
tokens = math.min(burst, tokens + elapsed * rps)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HMSET", key, "tokens", tokens, "ts", now)
redis.call("EXPIRE", key, 3600)
return allowed
`)

// Allow reports whether tenantID has a token available, coordinating
// through the shared Redis instance.
func (l *RedisLimiter) Allow(ctx context.Context, tenantID string) (bool, error) {
	rps, burst := l.cfg.rateFor(tenantID)
	key := "codeexec:ratelimit:" + tenantID
	now := float64(time.Now().UnixNano()) / 1e9

	res, err := tokenBucketScript.Run(ctx, l.rdb, []string{key}, rps, burst, now).Int()
	if err != nil {
		return false, fmt.Errorf("ratelimit: redis eval: %w", err)
	}
	return res == 1, nil
}
