// Package store persists normalized listings. Jobs are keyed by remote id,
// scholarships and internships by (title, provider).
package store

import (
	"context"
	"errors"

	"job-sync/internal/domain/listing"
)

var (
	ErrUnavailable = errors.New("store unavailable")
	ErrNotFound    = errors.New("listing not found")
)

type UpsertResult struct {
	Created bool
}

// Gateway is safe for concurrent use as long as callers upsert distinct keys.
// Upserting the same listing twice leaves one row; the second call reports
// Created=false and refreshes LastSynced.
type Gateway interface {
	Upsert(ctx context.Context, l listing.Listing) (UpsertResult, error)
	UpsertScholarship(ctx context.Context, l listing.Listing) (UpsertResult, error)
	Ping(ctx context.Context) error
}

// Reader is used by tests to inspect stored rows.
type Reader interface {
	FindByRemoteID(ctx context.Context, remoteID string) (listing.Listing, error)
	FindScholarship(ctx context.Context, title, provider string) (listing.Listing, error)
	Counts(ctx context.Context) (jobs int64, scholarships int64, err error)
}
