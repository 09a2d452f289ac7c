// Package quota caps how many itineraries one client may request per day.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"travel-planner/internal/common/config"
	apperrors "travel-planner/internal/common/errors"
	"travel-planner/internal/common/metrics"
)

// ErrQuotaExceeded is returned when the client has used its daily allowance.
var ErrQuotaExceeded = errors.New("daily itinerary quota exceeded")

const keyTTL = 24 * time.Hour

type ExceededError struct {
	Client string
	Limit  int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("client %s exceeded the daily limit of %d itineraries", e.Client, e.Limit)
}

func (e *ExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

func (e *ExceededError) ToStandardError() *apperrors.StandardError {
	return apperrors.NewQuotaExceededError(e.Client, e.Limit)
}

// Usage is the state of a client's counter after a call to Allow.
type Usage struct {
	Used      int
	Limit     int
	Remaining int
}

// Limiter counts requests per client and UTC day in Redis.
type Limiter struct {
	rdb    redis.Cmdable
	limit  int
	prefix string
	now    func() time.Time
}

func NewLimiter(rdb redis.Cmdable, cfg config.QuotaConfig) *Limiter {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "travel-planner:quota"
	}
	return &Limiter{
		rdb:    rdb,
		limit:  cfg.DailyLimit,
		prefix: prefix,
		now:    time.Now,
	}
}

// Key is the Redis key holding today's counter for client.
func (l *Limiter) Key(client string) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, client, l.now().UTC().Format("2006-01-02"))
}

// Allow consumes one request for client. INCR and EXPIRE NX run in one
// MULTI/EXEC, so a counter never outlives its day without a TTL.
func (l *Limiter) Allow(ctx context.Context, client string) (Usage, error) {
	key := l.Key(client)

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, keyTTL)
		return nil
	})
	if err != nil {
		return Usage{}, apperrors.NewQuotaCheckFailedError(err)
	}
	count := incr.Val()

	usage := Usage{Used: int(count), Limit: l.limit, Remaining: l.limit - int(count)}
	if usage.Remaining < 0 {
		usage.Remaining = 0
	}
	if int(count) > l.limit {
		metrics.QuotaRejections.Inc()
		return usage, &ExceededError{Client: client, Limit: l.limit}
	}
	return usage, nil
}
