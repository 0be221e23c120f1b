package database

import (
	"context"
	"log/slog"
	"sync"
)

type Connector func(ctx context.Context) (DB, error)

// Hook runs against every freshly opened pool before it is handed out.
type Hook func(ctx context.Context, db DB) error

// Lazy opens the pool on first use and keeps it for the life of the process.
// A failed ping drops the cached pool so the next call reconnects.
type Lazy struct {
	connect Connector
	logger  *slog.Logger

	mu        sync.Mutex
	db        DB
	onConnect Hook
}

func NewLazy(connect Connector, logger *slog.Logger) *Lazy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lazy{connect: connect, logger: logger.With("component", "database")}
}

// Static wraps an already open DB; it is never reconnected.
func Static(db DB) *Lazy {
	return &Lazy{
		connect: func(context.Context) (DB, error) { return db, nil },
		logger:  slog.Default(),
		db:      db,
	}
}

// OnConnect installs a hook run after each successful connect. A failing hook
// closes the new pool and the next Get dials again.
func (l *Lazy) OnConnect(h Hook) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onConnect = h
}

func (l *Lazy) Get(ctx context.Context) (DB, error) {
	if l == nil || l.connect == nil {
		return nil, ErrNilDB
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db != nil {
		return l.db, nil
	}
	db, err := l.connect(ctx)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, ErrNilDB
	}
	if l.onConnect != nil {
		if err := l.onConnect(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	l.logger.Info("database connected")
	l.db = db
	return db, nil
}

func (l *Lazy) Ping(ctx context.Context) error {
	db, err := l.Get(ctx)
	if err != nil {
		return err
	}
	if err := db.Ping(ctx); err != nil {
		l.logger.Warn("database ping failed, dropping connection", "err", err)
		l.drop(db)
		return err
	}
	return nil
}

// Connected reports whether a pool is currently cached. It never dials.
func (l *Lazy) Connected() bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db != nil
}

func (l *Lazy) drop(db DB) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db != db {
		return
	}
	_ = l.db.Close()
	l.db = nil
}

func (l *Lazy) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}
