package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyLoginAccount = "login:account:%s"
	keyLoginIP      = "login:ip:%s"

	// 5 attempts per account and 20 per IP, refilling over five minutes.
	accountBurst = 5
	accountRate  = accountBurst / 300.0
	ipBurst      = 20
	ipRate       = ipBurst / 300.0
)

// LoginLimiter throttles credential checks per account and per client
// IP. It is a best-effort brute-force damper, not the primary defense;
// when the shared store misbehaves the limiter fails open with a logged
// warning rather than locking everyone out.
type LoginLimiter struct {
	log    *zap.Logger
	bucket *TokenBucket
	local  *MemoryBucket
}

// NewLoginLimiter builds the limiter. A nil redis client selects the
// process-local fallback.
func NewLoginLimiter(log *zap.Logger, client *redis.Client) *LoginLimiter {
	return &LoginLimiter{
		log:    log.Named("ratelimit.login"),
		bucket: NewTokenBucket(client),
		local:  NewMemoryBucket(),
	}
}

// Allow reports whether a login attempt for the account from the given
// IP may proceed. Both buckets must have capacity.
func (l *LoginLimiter) Allow(ctx context.Context, email, ip string) bool {
	accountKey := fmt.Sprintf(keyLoginAccount, strings.ToLower(strings.TrimSpace(email)))
	ipKey := fmt.Sprintf(keyLoginIP, strings.TrimSpace(ip))

	return l.allow(ctx, accountKey, accountRate, accountBurst) &&
		l.allow(ctx, ipKey, ipRate, ipBurst)
}

func (l *LoginLimiter) allow(ctx context.Context, key string, rate float64, burst int) bool {
	if l.bucket == nil {
		return l.local.Allow(key, rate, burst)
	}
	ok, err := l.bucket.Allow(ctx, key, rate, burst)
	if err != nil {
		l.log.Warn("login limiter unavailable, failing open", zap.Error(err))
		return true
	}
	return ok
}
