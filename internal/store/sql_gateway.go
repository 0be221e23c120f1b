package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"job-sync/internal/database"
	"job-sync/internal/domain/listing"
)

type connection interface {
	Get(ctx context.Context) (database.DB, error)
	Ping(ctx context.Context) error
}

type SQLGateway struct {
	conn    connection
	dialect Dialect
	now     func() time.Time
}

func NewSQLGateway(conn *database.Lazy, dialect Dialect) *SQLGateway {
	return &SQLGateway{conn: conn, dialect: dialect, now: time.Now}
}

func (g *SQLGateway) db(ctx context.Context) (database.DB, error) {
	if g == nil || g.conn == nil {
		return nil, ErrUnavailable
	}
	db, err := g.conn.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return db, nil
}

func (g *SQLGateway) Ping(ctx context.Context) error {
	if g == nil || g.conn == nil {
		return ErrUnavailable
	}
	if err := g.conn.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

const upsertJobSQL = `
INSERT INTO jobs (
	remote_id, kind, title, company, location, description, tags,
	salary_min, salary_max, salary_currency, job_type, experience_level, remote_level,
	application_url, posted_at, expires_at, is_active, featured, source_api,
	last_synced, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7,
	$8, $9, $10, $11, $12, $13,
	$14, $15, $16, $17, $18, $19,
	$20, $21, $22
)
ON CONFLICT (remote_id) DO UPDATE SET
	kind = EXCLUDED.kind,
	title = EXCLUDED.title,
	company = EXCLUDED.company,
	location = EXCLUDED.location,
	description = EXCLUDED.description,
	tags = EXCLUDED.tags,
	salary_min = EXCLUDED.salary_min,
	salary_max = EXCLUDED.salary_max,
	salary_currency = EXCLUDED.salary_currency,
	job_type = EXCLUDED.job_type,
	experience_level = EXCLUDED.experience_level,
	remote_level = EXCLUDED.remote_level,
	application_url = EXCLUDED.application_url,
	posted_at = EXCLUDED.posted_at,
	expires_at = EXCLUDED.expires_at,
	is_active = EXCLUDED.is_active,
	featured = EXCLUDED.featured,
	source_api = EXCLUDED.source_api,
	last_synced = EXCLUDED.last_synced,
	updated_at = EXCLUDED.updated_at`

func (g *SQLGateway) Upsert(ctx context.Context, l listing.Listing) (UpsertResult, error) {
	l.RemoteID = strings.TrimSpace(l.RemoteID)
	if l.RemoteID == "" {
		return UpsertResult{}, errors.New("upsert job: empty remote id")
	}
	db, err := g.db(ctx)
	if err != nil {
		return UpsertResult{}, err
	}

	now := g.now().UTC()
	if l.LastSynced.IsZero() || l.LastSynced.Before(now) {
		l.LastSynced = now
	}
	if l.Kind == "" {
		l.Kind = listing.KindJob
	}
	tags, err := encodeTags(l.Tags)
	if err != nil {
		return UpsertResult{}, err
	}

	d := g.dialect
	args := []any{
		l.RemoteID, string(l.Kind), l.Title, l.Company, l.Location, l.Description, tags,
		l.Salary.Min, l.Salary.Max, l.Salary.Currency, string(l.JobType), string(l.ExperienceLevel), string(l.RemoteLevel),
		l.ApplicationURL, d.timeArg(l.PostedAt), d.optTimeArg(l.ExpiresAt), l.IsActive, l.Featured, l.SourceAPI,
		d.timeArg(l.LastSynced), d.timeArg(now), d.timeArg(now),
	}

	if d == Postgres {
		var created bool
		if err := db.QueryRow(ctx, upsertJobSQL+"\nRETURNING (xmax = 0)", args...).Scan(&created); err != nil {
			return UpsertResult{}, fmt.Errorf("upsert job %s: %w", l.RemoteID, err)
		}
		return UpsertResult{Created: created}, nil
	}

	return g.existsThenUpsert(ctx, db,
		"SELECT EXISTS(SELECT 1 FROM jobs WHERE remote_id = $1)", []any{l.RemoteID},
		upsertJobSQL, args, "job "+l.RemoteID)
}

const upsertScholarshipSQL = `
INSERT INTO scholarships (
	title, provider, kind, amount, deadline, eligibility, description,
	domain, category, location, application_url, source, tags, is_active,
	last_synced, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7,
	$8, $9, $10, $11, $12, $13, $14,
	$15, $16, $17
)
ON CONFLICT (title, provider) DO UPDATE SET
	kind = EXCLUDED.kind,
	amount = EXCLUDED.amount,
	deadline = EXCLUDED.deadline,
	eligibility = EXCLUDED.eligibility,
	description = EXCLUDED.description,
	domain = EXCLUDED.domain,
	category = EXCLUDED.category,
	location = EXCLUDED.location,
	application_url = EXCLUDED.application_url,
	source = EXCLUDED.source,
	tags = EXCLUDED.tags,
	is_active = EXCLUDED.is_active,
	last_synced = EXCLUDED.last_synced,
	updated_at = EXCLUDED.updated_at`

// UpsertScholarship keys on (Title, Company); Company carries the provider
// organisation for scholarships and internships.
func (g *SQLGateway) UpsertScholarship(ctx context.Context, l listing.Listing) (UpsertResult, error) {
	l.Title = strings.TrimSpace(l.Title)
	l.Company = strings.TrimSpace(l.Company)
	if l.Title == "" {
		return UpsertResult{}, errors.New("upsert scholarship: empty title")
	}
	db, err := g.db(ctx)
	if err != nil {
		return UpsertResult{}, err
	}

	now := g.now().UTC()
	if l.LastSynced.IsZero() || l.LastSynced.Before(now) {
		l.LastSynced = now
	}
	if l.Kind == "" {
		l.Kind = listing.KindScholarship
	}
	tags, err := encodeTags(l.Tags)
	if err != nil {
		return UpsertResult{}, err
	}

	d := g.dialect
	args := []any{
		l.Title, l.Company, string(l.Kind), l.Amount, d.optTimeArg(l.ExpiresAt), l.Eligibility, l.Description,
		l.Domain, l.Category, l.Location, l.ApplicationURL, l.SourceAPI, tags, l.IsActive,
		d.timeArg(l.LastSynced), d.timeArg(now), d.timeArg(now),
	}

	if d == Postgres {
		var created bool
		if err := db.QueryRow(ctx, upsertScholarshipSQL+"\nRETURNING (xmax = 0)", args...).Scan(&created); err != nil {
			return UpsertResult{}, fmt.Errorf("upsert scholarship %q: %w", l.Title, err)
		}
		return UpsertResult{Created: created}, nil
	}

	return g.existsThenUpsert(ctx, db,
		"SELECT EXISTS(SELECT 1 FROM scholarships WHERE title = $1 AND provider = $2)", []any{l.Title, l.Company},
		upsertScholarshipSQL, args, "scholarship "+l.Title)
}

func (g *SQLGateway) existsThenUpsert(ctx context.Context, db database.DB, existsQ string, existsArgs []any, upsertQ string, args []any, label string) (res UpsertResult, err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert %s: begin: %w", label, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var exists bool
	if err = tx.QueryRow(ctx, g.dialect.rebind(existsQ), existsArgs...).Scan(&exists); err != nil {
		return UpsertResult{}, fmt.Errorf("upsert %s: lookup: %w", label, err)
	}
	if _, err = tx.Exec(ctx, g.dialect.rebind(upsertQ), args...); err != nil {
		return UpsertResult{}, fmt.Errorf("upsert %s: %w", label, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return UpsertResult{}, fmt.Errorf("upsert %s: commit: %w", label, err)
	}
	return UpsertResult{Created: !exists}, nil
}

const selectJobSQL = `
SELECT remote_id, kind, title, company, location, description, tags,
	salary_min, salary_max, salary_currency, job_type, experience_level, remote_level,
	application_url, posted_at, expires_at, is_active, featured, source_api, last_synced
FROM jobs WHERE remote_id = $1`

func (g *SQLGateway) FindByRemoteID(ctx context.Context, remoteID string) (listing.Listing, error) {
	db, err := g.db(ctx)
	if err != nil {
		return listing.Listing{}, err
	}

	var (
		l                  listing.Listing
		kind, jt, exp, rem string
		tags               string
		salMin, salMax     sql.NullFloat64
		appURL             sql.NullString
		expires            time.Time
	)
	err = db.QueryRow(ctx, g.dialect.rebind(selectJobSQL), remoteID).Scan(
		&l.RemoteID, &kind, &l.Title, &l.Company, &l.Location, &l.Description, &tags,
		&salMin, &salMax, &l.Salary.Currency, &jt, &exp, &rem,
		&appURL, timeScanner{&l.PostedAt}, timeScanner{&expires}, &l.IsActive, &l.Featured, &l.SourceAPI, timeScanner{&l.LastSynced},
	)
	if err != nil {
		if isNoRows(err) {
			return listing.Listing{}, ErrNotFound
		}
		return listing.Listing{}, fmt.Errorf("find job %s: %w", remoteID, err)
	}

	l.Kind = listing.Kind(kind)
	l.JobType = listing.JobType(jt)
	l.ExperienceLevel = listing.ExperienceLevel(exp)
	l.RemoteLevel = listing.RemoteLevel(rem)
	l.Tags = decodeTags(tags)
	l.Salary.Min = floatPtr(salMin)
	l.Salary.Max = floatPtr(salMax)
	l.ApplicationURL = stringPtr(appURL)
	if !expires.IsZero() {
		l.ExpiresAt = &expires
	}
	return l, nil
}

const selectScholarshipSQL = `
SELECT title, provider, kind, amount, deadline, eligibility, description,
	domain, category, location, application_url, source, tags, is_active, last_synced
FROM scholarships WHERE title = $1 AND provider = $2`

func (g *SQLGateway) FindScholarship(ctx context.Context, title, provider string) (listing.Listing, error) {
	db, err := g.db(ctx)
	if err != nil {
		return listing.Listing{}, err
	}

	var (
		l        listing.Listing
		kind     string
		tags     string
		appURL   sql.NullString
		deadline time.Time
	)
	err = db.QueryRow(ctx, g.dialect.rebind(selectScholarshipSQL), title, provider).Scan(
		&l.Title, &l.Company, &kind, &l.Amount, timeScanner{&deadline}, &l.Eligibility, &l.Description,
		&l.Domain, &l.Category, &l.Location, &appURL, &l.SourceAPI, &tags, &l.IsActive, timeScanner{&l.LastSynced},
	)
	if err != nil {
		if isNoRows(err) {
			return listing.Listing{}, ErrNotFound
		}
		return listing.Listing{}, fmt.Errorf("find scholarship %q: %w", title, err)
	}
	l.Kind = listing.Kind(kind)
	l.Tags = decodeTags(tags)
	l.ApplicationURL = stringPtr(appURL)
	if !deadline.IsZero() {
		l.ExpiresAt = &deadline
	}
	return l, nil
}

func (g *SQLGateway) Counts(ctx context.Context) (int64, int64, error) {
	db, err := g.db(ctx)
	if err != nil {
		return 0, 0, err
	}
	var jobs, scholarships int64
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM jobs").Scan(&jobs); err != nil {
		return 0, 0, fmt.Errorf("count jobs: %w", err)
	}
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM scholarships").Scan(&scholarships); err != nil {
		return 0, 0, fmt.Errorf("count scholarships: %w", err)
	}
	return jobs, scholarships, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func decodeTags(raw string) []string {
	out := []string{}
	if strings.TrimSpace(raw) == "" {
		return out
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// isNoRows matches both database/sql and pgx without importing pgx here.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || strings.Contains(err.Error(), "no rows in result set")
}
