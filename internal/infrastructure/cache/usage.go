package cache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Usage is the number of outbound calls recorded for a provider in the
// current UTC hour, day and month.
type Usage struct {
	Hour  int64 `json:"hour"`
	Day   int64 `json:"day"`
	Month int64 `json:"month"`
}

const (
	hourTTL  = 2 * time.Hour
	dayTTL   = 48 * time.Hour
	monthTTL = 32 * 24 * time.Hour
)

type usageKeys struct {
	hour, day, month string
}

func keysFor(provider string, at time.Time) usageKeys {
	p := strings.ToLower(strings.TrimSpace(provider))
	at = at.UTC()
	return usageKeys{
		hour:  "usage:" + p + ":h:" + at.Format("2006010215"),
		day:   "usage:" + p + ":d:" + at.Format("20060102"),
		month: "usage:" + p + ":m:" + at.Format("200601"),
	}
}

// RecordCall increments the hour, day and month counters for provider.
func (r *Redis) RecordCall(ctx context.Context, provider string, at time.Time) error {
	if r.isUnavailable() {
		return nil
	}
	k := keysFor(provider, at)
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, k.hour)
	pipe.Expire(ctx, k.hour, hourTTL)
	pipe.Incr(ctx, k.day)
	pipe.Expire(ctx, k.day, dayTTL)
	pipe.Incr(ctx, k.month)
	pipe.Expire(ctx, k.month, monthTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		r.warnUnavailableOnce(err)
		return err
	}
	return nil
}

// Usage returns zero counts when redis is bypassed.
func (r *Redis) Usage(ctx context.Context, provider string, at time.Time) (Usage, error) {
	if r.isUnavailable() {
		return Usage{}, nil
	}
	k := keysFor(provider, at)
	vals, err := r.client.MGet(ctx, k.hour, k.day, k.month).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.warnUnavailableOnce(err)
		return Usage{}, err
	}
	counts := make([]int64, 3)
	for i, v := range vals {
		if i >= len(counts) {
			break
		}
		counts[i] = toInt64(v)
	}
	return Usage{Hour: counts[0], Day: counts[1], Month: counts[2]}, nil
}

func toInt64(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
