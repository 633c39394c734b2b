package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/redis/go-redis/v9"

	"gatebot/core/logger"
)

// cachedVerifier memoizes definitive membership determinations for a short
// window so repeated re-checks do not hammer the upstream probe. Probe errors
// are never cached.
type cachedVerifier struct {
	next Verifier
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedVerifier wraps next with a Redis-backed cache. A nil client
// disables caching and returns next unchanged.
func NewCachedVerifier(next Verifier, rdb *redis.Client, ttl time.Duration) Verifier {
	if rdb == nil {
		return next
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &cachedVerifier{next: next, rdb: rdb, ttl: ttl}
}

func membershipCacheKey(userID int64) string {
	return fmt.Sprintf("gatebot:membership:%d", userID)
}

// Verify serves a cached determination when present, probing otherwise.
// Cache failures degrade to a plain probe.
func (v *cachedVerifier) Verify(ctx context.Context, userID int64) (Membership, error) {
	key := membershipCacheKey(userID)
	cached, err := v.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if cached == Member.String() {
			return Member, nil
		}
		return NotMember, nil
	case !errors.Is(err, redis.Nil):
		logger.Debug(ctx, "service.verify", "cache.unavailable",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}

	status, probeErr := v.next.Verify(ctx, userID)
	if probeErr != nil {
		return status, probeErr
	}

	if err := v.rdb.Set(ctx, key, status.String(), v.ttl).Err(); err != nil {
		logger.Debug(ctx, "service.verify", "cache.store_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
	return status, nil
}
