// Package app wires the shared bootstrap used by the CLI commands: open
// the workspace database, run migrations, load config, and build the
// engine.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"keepup/internal/config"
	"keepup/internal/db"
	"keepup/internal/engine"
	"keepup/internal/migrate"
)

type App struct {
	Engine engine.Engine
	Config *config.Config
	Log    *zap.Logger
}

// Open boots the application for a workspace directory.
func Open(workspace string, verbose bool) (*App, error) {
	log, err := newLogger(verbose)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &App{
		Engine: engine.New(conn, cfg, log),
		Config: cfg,
		Log:    log,
	}, nil
}

func (a *App) Close() error {
	if a.Log != nil {
		_ = a.Log.Sync()
	}
	if a.Engine.DB != nil {
		return a.Engine.DB.Close()
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}
