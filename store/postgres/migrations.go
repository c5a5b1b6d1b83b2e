package postgres

import (
	"context"
	"fmt"
	"log/slog"
)

// migrations are applied in order by Migrate. Applied entries are
// recorded in claimflow_migrations and never re-run.
var migrations = []struct {
	name string
	sql  []string
}{
	{
		name: "001_create_workflows",
		sql: []string{`
			CREATE TABLE IF NOT EXISTS claimflow_workflows (
				workflow_id             TEXT PRIMARY KEY,
				subject_id              TEXT NOT NULL,
				workflow_type           TEXT NOT NULL,
				current_step            INTEGER NOT NULL DEFAULT 0,
				total_steps             INTEGER NOT NULL DEFAULT 0,
				completed_steps         JSONB,
				status                  TEXT NOT NULL DEFAULT 'pending',
				step_results            JSONB,
				subject                 JSONB,
				metadata                JSONB,
				started_at              TIMESTAMPTZ,
				completed_at            TIMESTAMPTZ,
				error_message           TEXT,
				error_step              TEXT,
				retry_count             INTEGER NOT NULL DEFAULT 0,
				total_execution_time_ms BIGINT NOT NULL DEFAULT 0,
				created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_claimflow_workflows_status
				ON claimflow_workflows (status)`,
			`CREATE INDEX IF NOT EXISTS idx_claimflow_workflows_subject
				ON claimflow_workflows (subject_id)`,
			`CREATE INDEX IF NOT EXISTS idx_claimflow_workflows_list
				ON claimflow_workflows (workflow_type, status, started_at DESC)`,
		},
	},
	{
		name: "002_create_step_results",
		sql: []string{`
			CREATE TABLE IF NOT EXISTS claimflow_step_results (
				seq               BIGSERIAL PRIMARY KEY,
				id                TEXT NOT NULL,
				workflow_id       TEXT NOT NULL REFERENCES claimflow_workflows (workflow_id) ON DELETE CASCADE,
				step_name         TEXT NOT NULL,
				step_number       INTEGER NOT NULL DEFAULT 0,
				executor_name     TEXT NOT NULL DEFAULT '',
				status            TEXT NOT NULL,
				input             JSONB,
				output            JSONB,
				error_message     TEXT,
				error_detail      JSONB,
				started_at        TIMESTAMPTZ NOT NULL,
				completed_at      TIMESTAMPTZ,
				execution_time_ms BIGINT NOT NULL DEFAULT 0,
				attempt_number    INTEGER NOT NULL DEFAULT 1
			)`,
			`CREATE INDEX IF NOT EXISTS idx_claimflow_step_results_workflow
				ON claimflow_step_results (workflow_id, seq)`,
		},
	},
}

// Migrate applies all pending schema migrations in order.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS claimflow_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("claimflow/postgres: create migrations table: %w", err)
	}

	for _, m := range migrations {
		var applied bool
		err = s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM claimflow_migrations WHERE name = ?)`,
			m.name,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("claimflow/postgres: check migration %s: %w", m.name, err)
		}
		if applied {
			continue
		}

		for _, stmt := range m.sql {
			if _, execErr := s.db.ExecContext(ctx, stmt); execErr != nil {
				return fmt.Errorf("claimflow/postgres: execute migration %s: %w", m.name, execErr)
			}
		}

		_, err = s.db.ExecContext(ctx,
			`INSERT INTO claimflow_migrations (name) VALUES (?)`,
			m.name,
		)
		if err != nil {
			return fmt.Errorf("claimflow/postgres: record migration %s: %w", m.name, err)
		}

		s.logger.Info("applied migration", slog.String("name", m.name))
	}

	return nil
}
