package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/jellelicht/exposure-agent/internal/keysync"
	"github.com/jellelicht/exposure-agent/internal/state"
	"github.com/jellelicht/exposure-agent/pkg/backend"
	"github.com/jellelicht/exposure-agent/pkg/enengine"
)

// initStore opens the configured state backend and runs migrations.
func initStore(ctx context.Context) (state.Store, error) {
	var (
		st  state.Store
		err error
	)
	switch cfg.State.Driver {
	case "postgres":
		st, err = state.NewPostgres(ctx, cfg.State.DatabaseURL)
	default:
		st, err = state.NewSQLite(cfg.State.Path)
	}
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func newBackendClient() backend.Client {
	return backend.NewClient(cfg.Backend.BaseURL, backend.WithUserAgent(cfg.Backend.UserAgent))
}

func newEngine() enengine.Engine {
	return enengine.NewHTTP(cfg.Engine.BaseURL)
}

// newKeySync builds the key set synchronizer with its file cache.
func newKeySync(st state.Store, bc backend.Client, engine enengine.Engine) (*keysync.Sync, error) {
	cache, err := keysync.NewCache(cfg.Cache.Dir)
	if err != nil {
		return nil, eris.Wrap(err, "init key set cache")
	}
	return keysync.New(bc, engine, st, cache), nil
}
