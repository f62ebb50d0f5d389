// Package storage is the Store component: relational persistence for
// decisions, vectors, entities, pipelines, steps, edges, triggers, and
// security events, backed by a single-file SQLite database. It owns the
// only SQL in the system; every other package calls through it.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"github.com/openclaw/lily/internal/domain"
)

// Store wraps a bun.DB bound to one SQLite file under the memory root.
type Store struct {
	db   *bun.DB
	path string
}

var (
	registryMu sync.Mutex
	registry   = map[string]*Store{}
)

// Open returns the singleton Store for an absolute path, opening a new
// connection the first time it is requested. The path must resolve under
// the fixed memory root; any other resolution is a path-traversal error,
// fatal on service start.
func Open(path string) (*Store, error) {
	resolved, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if s, ok := registry[resolved]; ok {
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "cannot create store directory", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", resolved)
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "cannot open database", err)
	}
	sqldb.SetMaxOpenConns(1) // single-writer: avoid SQLITE_BUSY storms under WAL

	db := bun.NewDB(sqldb, sqlitedialect.New())
	s := &Store{db: db, path: resolved}
	registry[resolved] = s
	return s, nil
}

// CloseAll closes and forgets every open Store. Used at service teardown.
func CloseAll() error {
	registryMu.Lock()
	defer registryMu.Unlock()
	var firstErr error
	for path, s := range registry {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(registry, path)
	}
	return firstErr
}

// Path returns the absolute file path this store was opened against.
func (s *Store) Path() string {
	return s.path
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Query runs a parameterized SELECT. Parameter binding is the sole
// SQL-injection defense; callers must never interpolate args into sql.
// On failure it logs nothing itself (callers log) and returns an error;
// per the error-handling design, callers treat a returned error the same
// as "no result," never "no row exists."
func (s *Store) Query(ctx context.Context, sqlText string, args ...any) (*sql.Rows, error) {
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "query failed", err)
	}
	return rows, nil
}

// Exec runs a parameterized INSERT/UPDATE/DELETE.
func (s *Store) Exec(ctx context.Context, sqlText string, args ...any) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "exec failed", err)
	}
	return res, nil
}

// RunInTx executes fn inside a transaction, committing on success and
// rolling back on any error or panic. Multi-row writes (pipeline+steps+
// edges, trigger-fired cloning, completion cascades) always go through this.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

// DB exposes the underlying bun.DB for repository-layer struct scans.
func (s *Store) DB() *bun.DB {
	return s.db
}
