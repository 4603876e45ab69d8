// Package processor orchestrates one manifest processing cycle:
// manifest, key sets, app config, success timestamp, next interval.
package processor

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jellelicht/exposure-agent/internal/keysync"
	"github.com/jellelicht/exposure-agent/internal/state"
	"github.com/jellelicht/exposure-agent/pkg/backend"
	"github.com/jellelicht/exposure-agent/pkg/enengine"
)

// Processor runs processing cycles. Key set failures are reported but
// do not fail a cycle; only the manifest and app config being
// unreachable do.
type Processor struct {
	backend backend.Client
	engine  enengine.Engine
	keys    *keysync.Sync
	store   state.Store
	now     func() time.Time
}

// New creates a Processor.
func New(bc backend.Client, engine enengine.Engine, keys *keysync.Sync, store state.Store) *Processor {
	return &Processor{
		backend: bc,
		engine:  engine,
		keys:    keys,
		store:   store,
		now:     time.Now,
	}
}

// Run executes one cycle and returns the next polling interval in
// minutes from the app config. The last-keys-processed timestamp is
// only advanced when key processing was fully successful, so the
// overdue check keeps firing while downloads or the engine misbehave.
func (p *Processor) Run(ctx context.Context) (int, error) {
	log := zap.L().With(zap.String("component", "processor"))

	manifest, err := p.backend.GetManifest(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "processor: fetch manifest")
	}

	keysOK := true
	if p.engine.Enabled(ctx) {
		if err := p.keys.Process(ctx, manifest); err != nil {
			keysOK = false
			log.Warn("key set processing did not fully succeed", zap.Error(err))
		}
	} else {
		log.Info("matching engine disabled, skipping key set processing")
	}

	appConfig, err := p.backend.GetAppConfig(ctx, manifest.AppConfigID)
	if err != nil {
		return 0, eris.Wrap(err, "processor: fetch app config")
	}

	if keysOK {
		if err := p.store.SetLastKeysProcessed(ctx, p.now()); err != nil {
			return 0, eris.Wrap(err, "processor: persist last keys processed")
		}
	}

	log.Info("manifest cycle complete",
		zap.Bool("keys_successful", keysOK),
		zap.Int("next_interval_minutes", appConfig.ManifestFrequencyMinutes),
	)
	return appConfig.ManifestFrequencyMinutes, nil
}
