// Package exposure records the most recent exposure reported by the
// matching engine and exposes it as an observable value. A newer
// exposure always wins; an older or equal one never overwrites the
// record.
package exposure

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jellelicht/exposure-agent/internal/notify"
	"github.com/jellelicht/exposure-agent/internal/state"
	"github.com/jellelicht/exposure-agent/pkg/enengine"
)

// Tracker keeps the last-exposure record in the state store in sync
// with the matching engine's summaries.
type Tracker struct {
	engine   enengine.Engine
	store    state.Store
	notifier notify.Notifier
	now      func() time.Time
}

// New creates a Tracker.
func New(engine enengine.Engine, store state.Store, notifier notify.Notifier) *Tracker {
	return &Tracker{
		engine:   engine,
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// RecordExposure handles the engine's exposure callback for a
// submission token. The summary's days-since-last-exposure is compared
// against the summary of the currently stored token; only a strictly
// more recent exposure replaces the record. Only the token is
// persisted, so the current day count is re-fetched from the engine.
func (t *Tracker) RecordExposure(ctx context.Context, token string) error {
	log := zap.L().With(zap.String("component", "exposure"), zap.String("token", token))

	summary, err := t.engine.GetSummary(ctx, token)
	if err != nil {
		return eris.Wrap(err, "exposure: fetch summary")
	}
	if summary == nil {
		log.Debug("no exposure summary for token")
		return nil
	}

	current, err := t.store.LastExposure(ctx)
	if err != nil {
		return eris.Wrap(err, "exposure: read last exposure")
	}
	if current != nil {
		currentSummary, err := t.engine.GetSummary(ctx, current.Token)
		if err != nil {
			return eris.Wrap(err, "exposure: fetch current summary")
		}
		if currentSummary != nil && summary.DaysSinceLastExposure >= currentSummary.DaysSinceLastExposure {
			log.Debug("exposure is not more recent than the stored one, keeping record",
				zap.Int("new_days", summary.DaysSinceLastExposure),
				zap.Int("current_days", currentSummary.DaysSinceLastExposure),
			)
			return nil
		}
	}

	date := midnightUTC(t.now()).AddDate(0, 0, -summary.DaysSinceLastExposure)
	if err := t.store.SetLastExposure(ctx, token, date); err != nil {
		return eris.Wrap(err, "exposure: persist last exposure")
	}

	log.Info("exposure recorded",
		zap.Int("days_since_exposure", summary.DaysSinceLastExposure),
		zap.Time("exposure_date", date),
	)

	if err := t.notifier.ExposureDetected(ctx, date); err != nil {
		// The record is already committed; a lost notification is not
		// worth failing the callback over.
		log.Warn("exposure notification failed", zap.Error(err))
	}
	return nil
}

// ObserveLastExposureDate emits the exposure date after every token
// change, and nil when no exposure is recorded. On every distinct token
// the engine is asked whether the summary still exists; a vanished
// summary resets the stored record. The channel closes when ctx is
// done.
func (t *Tracker) ObserveLastExposureDate(ctx context.Context) <-chan *time.Time {
	out := make(chan *time.Time, 1)
	tokens := t.store.WatchLastToken(ctx)

	go func() {
		defer close(out)

		last := ""
		seeded := false

		// Seed with the current record before watching for changes.
		if current, err := t.store.LastExposure(ctx); err == nil {
			token := ""
			if current != nil {
				token = current.Token
			}
			if t.emit(ctx, out, token) {
				last, seeded = token, true
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case token, ok := <-tokens:
				if !ok {
					return
				}
				if seeded && token == last {
					continue
				}
				if !t.emit(ctx, out, token) {
					return
				}
				last, seeded = token, true
			}
		}
	}()

	return out
}

// emit validates the token against the engine and sends the resulting
// date. Returns false when ctx ended.
func (t *Tracker) emit(ctx context.Context, out chan<- *time.Time, token string) bool {
	var date *time.Time

	if token != "" {
		summary, err := t.engine.GetSummary(ctx, token)
		if err != nil {
			zap.L().Warn("exposure: revalidation failed", zap.Error(err))
			return true
		}
		if summary == nil {
			// The engine no longer knows this token; drop the record.
			if err := t.Reset(ctx); err != nil {
				zap.L().Warn("exposure: reset after stale token failed", zap.Error(err))
			}
			// The reset triggers its own "" notification; emit absent now.
		} else if current, err := t.store.LastExposure(ctx); err == nil && current != nil {
			d := current.Date
			date = &d
		}
	}

	select {
	case <-ctx.Done():
		return false
	case out <- date:
		return true
	}
}

// Reset unconditionally clears the stored token and date.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.store.ClearLastExposure(ctx); err != nil {
		return eris.Wrap(err, "exposure: clear last exposure")
	}
	return nil
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
