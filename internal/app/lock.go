package app

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type locker interface {
	Available() bool
	SetIfNotExists(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// runLocked runs fn unless another process holds key. Without redis there is
// nothing to coordinate with and fn always runs. The returned bool reports
// whether fn ran.
func runLocked(ctx context.Context, l locker, key string, ttl time.Duration, fn func(context.Context) error) (bool, error) {
	if l == nil || !l.Available() {
		return true, fn(ctx)
	}
	ok, err := l.SetIfNotExists(ctx, key, uuid.NewString(), ttl)
	if err != nil {
		// redis failed mid-flight; run rather than skip a cycle
		return true, fn(ctx)
	}
	if !ok {
		return false, nil
	}
	defer func() { _ = l.Delete(context.WithoutCancel(ctx), key) }()
	return true, fn(ctx)
}

// RunLocked is runLocked over the container's redis.
func (c *Container) RunLocked(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) (bool, error) {
	return runLocked(ctx, c.Cache, key, ttl, fn)
}
