package main

import (
	"fmt"

	"github.com/kantharos-net/LinkedinAutoPost/internal/api"
	"github.com/kantharos-net/LinkedinAutoPost/internal/composer"
	"github.com/kantharos-net/LinkedinAutoPost/internal/config"
	"github.com/kantharos-net/LinkedinAutoPost/internal/jobs"
	"github.com/kantharos-net/LinkedinAutoPost/internal/storage"
)

// app bundles the wired-up stores and clients every command needs. Commands
// open it, do their work, and close it; the database handle is the only
// resource that outlives a call.
type app struct {
	db       *storage.DB
	settings *config.Store
	jobs     *jobs.Store
	client   *api.Client
	composer *composer.Composer
}

// newApp is a variable so tests can swap in an in-memory instance.
var newApp = func() (*app, error) {
	return openApp(config.DefaultDataDir())
}

func openApp(dataDir string) (*app, error) {
	db, err := storage.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	settings, err := config.NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	jobStore, err := jobs.NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	client := api.NewClient(settings)
	return &app{
		db:       db,
		settings: settings,
		jobs:     jobStore,
		client:   client,
		composer: composer.New(client, jobStore),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
