// Package keysync downloads server-published exposure key sets, feeds
// them to the matching engine, and tracks which sets have already been
// processed so a set is downloaded and submitted at most once.
package keysync

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jellelicht/exposure-agent/internal/model"
	"github.com/jellelicht/exposure-agent/internal/state"
	"github.com/jellelicht/exposure-agent/pkg/backend"
	"github.com/jellelicht/exposure-agent/pkg/enengine"
)

// ErrDownloadsFailed reports that at least one key set download failed
// this cycle. Matching may still have run on the sets that did arrive;
// the failed ids stay unprocessed and are retried next cycle.
var ErrDownloadsFailed = errors.New("keysync: one or more exposure key set downloads failed")

// EngineError reports that the matching engine rejected the submission.
// No key set is marked processed, so the whole batch is resubmitted
// next cycle.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string {
	return "keysync: matching engine rejected diagnosis keys: " + e.Err.Error()
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Sync drives one manifest's worth of key set processing.
type Sync struct {
	backend  backend.Client
	engine   enengine.Engine
	store    state.Store
	cache    *Cache
	newToken func() string
}

// New creates a Sync writing key set files into cache.
func New(bc backend.Client, engine enengine.Engine, store state.Store, cache *Cache) *Sync {
	return &Sync{
		backend:  bc,
		engine:   engine,
		store:    store,
		cache:    cache,
		newToken: uuid.NewString,
	}
}

// Process ensures the matching engine has ingested every key set in the
// manifest that has not been processed before.
//
// A nil return means the cycle was fully successful. ErrDownloadsFailed
// means matching ran (or nothing was submittable) but at least one
// download failed. An *EngineError means the engine rejected the
// submission and nothing was marked processed. Any other error aborted
// the cycle before submission; persisted state is unchanged.
func (s *Sync) Process(ctx context.Context, m *model.Manifest) error {
	log := zap.L().With(zap.String("component", "keysync"))

	processed, err := s.store.ProcessedKeySets(ctx)
	if err != nil {
		return eris.Wrap(err, "keysync: read processed key sets")
	}
	processedSet := make(map[string]struct{}, len(processed))
	for _, id := range processed {
		processedSet[id] = struct{}{}
	}

	manifestSet := make(map[string]struct{}, len(m.ExposureKeySetIDs))
	var updates []string
	for _, id := range m.ExposureKeySetIDs {
		manifestSet[id] = struct{}{}
		if _, ok := processedSet[id]; !ok {
			updates = append(updates, id)
		}
	}

	log.Debug("processing manifest",
		zap.Int("key_sets", len(m.ExposureKeySetIDs)),
		zap.Int("pending", len(updates)),
	)

	// Fan out one download per pending id and join. A failed download
	// must not abort its siblings; each result is recorded per id.
	results := make([]model.ExposureKeySet, len(updates))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range updates {
		i, id := i, id // per-iteration copies; required while go.mod targets go < 1.22
		g.Go(func() error {
			path, err := s.download(gctx, id)
			if err != nil {
				log.Warn("key set download failed", zap.String("id", id), zap.Error(err))
				results[i] = model.ExposureKeySet{ID: id}
				return nil
			}
			results[i] = model.ExposureKeySet{ID: id, Path: path}
			return nil
		})
	}
	_ = g.Wait()

	var valid []model.ExposureKeySet
	for _, ks := range results {
		if ks.Valid() {
			valid = append(valid, ks)
		}
	}
	hasErrors := len(valid) < len(updates)

	if len(valid) == 0 {
		if hasErrors {
			return ErrDownloadsFailed
		}
		// Nothing new to submit; still drop ids no longer in the manifest.
		if err := s.persistProcessed(ctx, processedSet, nil, manifestSet); err != nil {
			return err
		}
		return nil
	}

	params, err := s.backend.GetRiskCalculationParameters(ctx, m.RiskCalculationParametersID)
	if err != nil {
		return eris.Wrap(err, "keysync: fetch risk calculation parameters")
	}

	files := make([]string, len(valid))
	for i, ks := range valid {
		files[i] = ks.Path
	}
	token := s.newToken()

	if err := s.engine.ProvideDiagnosisKeys(ctx, files, enengine.ConfigFromRiskParameters(params), token); err != nil {
		// Not marked processed: the whole batch is resubmitted next cycle.
		return &EngineError{Err: err}
	}

	log.Info("diagnosis keys submitted",
		zap.Int("key_sets", len(valid)),
		zap.String("token", token),
	)

	if err := s.persistProcessed(ctx, processedSet, valid, manifestSet); err != nil {
		return err
	}

	if hasErrors {
		return ErrDownloadsFailed
	}
	return nil
}

// persistProcessed commits (processed ∪ newly-valid) ∩ manifest, which
// both records this cycle's successes and drops ids the server no
// longer publishes.
func (s *Sync) persistProcessed(ctx context.Context, processedSet map[string]struct{}, valid []model.ExposureKeySet, manifestSet map[string]struct{}) error {
	merged := make(map[string]struct{}, len(processedSet)+len(valid))
	for id := range processedSet {
		merged[id] = struct{}{}
	}
	for _, ks := range valid {
		merged[ks.ID] = struct{}{}
	}

	next := make([]string, 0, len(merged))
	for id := range merged {
		if _, ok := manifestSet[id]; ok {
			next = append(next, id)
		}
	}
	sort.Strings(next)

	if err := s.store.SetProcessedKeySets(ctx, next); err != nil {
		return eris.Wrap(err, "keysync: persist processed key sets")
	}
	return nil
}

func (s *Sync) download(ctx context.Context, id string) (string, error) {
	body, err := s.backend.GetExposureKeySet(ctx, id)
	if err != nil {
		return "", err
	}
	defer body.Close() //nolint:errcheck

	return s.cache.Put(id, body)
}
