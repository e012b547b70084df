package cmd

import (
	"context"
	"fmt"

	"github.com/xiaoyuanzhu-com/sessionhub/config"
	"github.com/xiaoyuanzhu-com/sessionhub/db"
	"github.com/xiaoyuanzhu-com/sessionhub/sessions"
	"github.com/xiaoyuanzhu-com/sessionhub/syncer"
)

// app is the set of components a one-shot command needs
type app struct {
	cfg      *config.Config
	db       *db.DB
	sessions *sessions.Service
	engine   *syncer.Engine
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	database, err := db.Open(db.Config{
		Path:         cfg.DatabasePath,
		MaxOpenConns: 1,
		LogQueries:   cfg.DBLogQueries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &app{
		cfg:      cfg,
		db:       database,
		sessions: sessions.NewService(database, nil),
		engine:   syncer.NewEngine(syncer.Config{Enabled: cfg.Sync.Enabled, Dir: cfg.Sync.Dir}, database),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}

// exported writes a mutated session to the shared folder when sync is on.
// There is no running sync service to pick up the change otherwise.
func (a *app) exported(session *db.Session) *db.Session {
	a.engine.ExportRecord(context.Background(), session)
	return session
}
