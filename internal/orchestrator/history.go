package orchestrator

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/buildmaster/internal/config"
	"git.home.luguber.info/inful/buildmaster/internal/eventstore"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
)

// History returns the newest runs recorded in the journal configured by cfg,
// newest first.
func History(ctx context.Context, cfg *config.Config, limit int) ([]eventstore.RunSummary, error) {
	store, err := eventstore.NewSQLiteStore(cfg.Journal.Path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close run journal", logfields.Error(err))
		}
	}()
	return HistoryFrom(ctx, store, limit)
}

// HistoryFrom projects the run history held by store.
func HistoryFrom(ctx context.Context, store eventstore.Store, limit int) ([]eventstore.RunSummary, error) {
	p := eventstore.NewRunHistoryProjection(store, limit)
	if err := p.Rebuild(ctx); err != nil {
		return nil, err
	}
	return p.GetHistory(), nil
}
