// Package state persists the agent's processing state in a durable
// key-value store. The keyspace is part of the upgrade contract:
// exposure_key_sets, last_keys_processed, last_token_id,
// last_token_exposure_date.
package state

import (
	"context"
	"sync"
	"time"
)

// Store keys. These names must stay stable across releases so that an
// upgraded agent can read state written by an older one.
const (
	KeyExposureKeySets       = "exposure_key_sets"
	KeyLastKeysProcessed     = "last_keys_processed"
	KeyLastTokenID           = "last_token_id"
	KeyLastTokenExposureDate = "last_token_exposure_date"
)

// Exposure is the most recent exposure record: the engine token it was
// derived from and the calendar date (UTC midnight) of the exposure.
type Exposure struct {
	Token string
	Date  time.Time
}

// Store is the durable key-value state used by the processing core.
// Every write is committed before the call returns, so a crash between
// cycles loses at most the current cycle's progress.
type Store interface {
	// ProcessedKeySets returns the set of key set ids that were fully
	// downloaded and submitted to the matching engine.
	ProcessedKeySets(ctx context.Context) ([]string, error)
	// SetProcessedKeySets replaces the processed set in one write.
	SetProcessedKeySets(ctx context.Context, ids []string) error

	// LastKeysProcessed returns the instant of the last fully
	// successful processing cycle, or nil if none has completed.
	LastKeysProcessed(ctx context.Context) (*time.Time, error)
	SetLastKeysProcessed(ctx context.Context, t time.Time) error
	ClearLastKeysProcessed(ctx context.Context) error

	// LastExposure returns the most recent exposure record, or nil if
	// no exposure is recorded. Token and date are written and cleared
	// together, as a pair.
	LastExposure(ctx context.Context) (*Exposure, error)
	SetLastExposure(ctx context.Context, token string, date time.Time) error
	ClearLastExposure(ctx context.Context) error

	// WatchLastToken delivers the last-token value after every change,
	// coalescing intermediate values if the receiver is slow. The
	// channel closes when ctx is done.
	WatchLastToken(ctx context.Context) <-chan string

	// Migrate creates the state table if it does not exist.
	Migrate(ctx context.Context) error
	Close() error
}

// EpochDay converts a time to days since the Unix epoch, the on-disk
// representation of the exposure date.
func EpochDay(t time.Time) int64 {
	return t.UTC().Unix() / 86400
}

// DateFromEpochDay converts days since the Unix epoch back to a UTC
// midnight time.
func DateFromEpochDay(day int64) time.Time {
	return time.Unix(day*86400, 0).UTC()
}

// watchHub fans out last-token change notifications to subscribers.
// Sends coalesce: a slow receiver sees the latest value, not every
// intermediate one.
type watchHub struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
}

func newWatchHub() *watchHub {
	return &watchHub{subs: make(map[chan string]struct{})}
}

func (h *watchHub) subscribe(ctx context.Context) <-chan string {
	ch := make(chan string, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

func (h *watchHub) notify(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- token:
		default:
			// Drop the stale value so the latest one wins.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- token:
			default:
			}
		}
	}
}
