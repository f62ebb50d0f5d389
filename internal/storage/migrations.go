package storage

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/openclaw/lily/internal/domain"
)

// migration is one numbered, idempotent schema step.
type migration struct {
	version     int
	description string
	apply       func(ctx context.Context, tx bun.Tx) error
}

var migrations = []migration{
	{
		version:     1,
		description: "initial schema: decisions, vectors, entities, security_events, pipelines, steps, edges, triggers",
		apply: func(ctx context.Context, tx bun.Tx) error {
			_, err := tx.ExecContext(ctx, schemaDDL)
			return err
		},
	},
}

// Migrate applies every migration newer than the current schema_version,
// each inside its own transaction, recording version/description/applied-at
// on success. Migrations never partially apply: a failing migration rolls
// its transaction back and aborts the run.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return domain.NewDomainError(domain.ErrCodeStoreFailure, "cannot create schema_version table", err)
	}

	current, err := s.currentVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := s.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
			if err := m.apply(ctx, tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_version (version, description, applied_at) VALUES (?, ?, ?)`,
				m.version, m.description, time.Now().UTC().Format(time.RFC3339))
			return err
		})
		if err != nil {
			return domain.NewDomainError(domain.ErrCodeStoreFailure, "migration failed", err)
		}
	}
	return nil
}

func (s *Store) currentVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.NewSelect().
		ColumnExpr("COALESCE(MAX(version), 0)").
		Table("schema_version").
		Scan(ctx, &version)
	if err != nil {
		return 0, domain.NewDomainError(domain.ErrCodeStoreFailure, "cannot read schema version", err)
	}
	return version, nil
}
