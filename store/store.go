package store

import (
	"context"

	"github.com/claimflow/claimflow/workflow"
)

// Store is the aggregate persistence interface. A backend implements the
// engine's workflow.Store contract plus lifecycle operations.
type Store interface {
	workflow.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
