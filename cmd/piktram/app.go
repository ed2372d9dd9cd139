package main

import (
	"context"
	"log/slog"

	"piktram/internal/config"
	"piktram/internal/notify"
	"piktram/internal/reconcile"
	"piktram/internal/storage/sqldb"
)

// app holds the wired dependencies shared by the subcommands.
type app struct {
	cfg        config.Config
	logger     *slog.Logger
	store      *sqldb.Store
	reconciler *reconcile.Reconciler
}

// openApp loads configuration, opens and migrates the store and builds the
// reconciler with its notifier.
func openApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger()

	store, err := sqldb.Open(ctx, cfg.DB.Driver, cfg.DB.DSN, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	reconciler := reconcile.New(store, reconcile.Options{
		Logger:        logger,
		Transactional: cfg.Reconcile.Transactional,
		Notifier:      notify.New(store, cfg.Slack.WebhookURL, logger),
	})
	return &app{cfg: cfg, logger: logger, store: store, reconciler: reconciler}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("close store", slog.String("error", err.Error()))
	}
}
