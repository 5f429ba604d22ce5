// Package infrastructure assembles the shared runtime dependencies that
// domain systems build on: lifecycle coordination, logging, the database
// pool, and briefing archive storage.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/backofhouse/steward/internal/config"
	"github.com/backofhouse/steward/pkg/database"
	"github.com/backofhouse/steward/pkg/lifecycle"
	"github.com/backofhouse/steward/pkg/storage"
)

// Infrastructure carries the core systems every domain module depends on.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
}

// New builds an Infrastructure from the application configuration. Systems
// are constructed but not started; call Start once wiring is complete.
func New(cfg *config.Config) (*Infrastructure, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Database:  db,
		Storage:   store,
	}, nil
}

// Start registers the database and storage hooks with the lifecycle
// coordinator so they participate in startup and shutdown.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("start database: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("start storage: %w", err)
	}
	return nil
}
