package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

type stubDB struct {
	closed bool
}

func (s *stubDB) Ping(context.Context) error { return nil }
func (s *stubDB) Close() error               { s.closed = true; return nil }
func (s *stubDB) Exec(context.Context, string, ...any) (int64, error) {
	return 0, nil
}
func (s *stubDB) Query(context.Context, string, ...any) (Rows, error) { return nil, nil }
func (s *stubDB) QueryRow(context.Context, string, ...any) Row        { return nil }
func (s *stubDB) Begin(context.Context) (Tx, error)                   { return nil, nil }
func (s *stubDB) SQLDB() *sql.DB                                      { return nil }

func TestLazy_OnConnectRunsPerConnect(t *testing.T) {
	var opened []*stubDB
	connectErr := errors.New("dial refused")
	fail := true
	l := NewLazy(func(context.Context) (DB, error) {
		if fail {
			return nil, connectErr
		}
		db := &stubDB{}
		opened = append(opened, db)
		return db, nil
	}, nil)

	hookErr := errors.New("migrate failed")
	var hookCalls int
	l.OnConnect(func(_ context.Context, db DB) error {
		hookCalls++
		if hookCalls == 1 {
			return hookErr
		}
		return nil
	})

	ctx := context.Background()
	if _, err := l.Get(ctx); !errors.Is(err, connectErr) {
		t.Fatalf("expected dial error, got %v", err)
	}
	if hookCalls != 0 {
		t.Fatalf("hook ran without a connection")
	}

	fail = false
	if _, err := l.Get(ctx); !errors.Is(err, hookErr) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if len(opened) != 1 || !opened[0].closed {
		t.Fatalf("pool rejected by hook must be closed")
	}
	if l.Connected() {
		t.Fatalf("pool rejected by hook must not be cached")
	}

	db, err := l.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if db != opened[1] || hookCalls != 2 {
		t.Fatalf("expected second pool after hook succeeded, calls=%d", hookCalls)
	}
	if _, err := l.Get(ctx); err != nil || hookCalls != 2 {
		t.Fatalf("cached pool must not rerun the hook, calls=%d err=%v", hookCalls, err)
	}
}
