package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite. This is the
// default backend for a single-host agent.
type SQLiteStore struct {
	db  *sql.DB
	hub *watchHub
}

// NewSQLite opens a SQLite database at the given path. synchronous=FULL
// because committed state must survive a crash of the host, not just of
// the process.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "state: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=FULL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "state: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, hub: newWatchHub()}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS agent_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// Migrate creates the state table if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "state: migrate sqlite")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM agent_state WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrapf(err, "state: get %s", key)
	}
	return value, true, nil
}

func (s *SQLiteStore) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_state (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	return eris.Wrapf(err, "state: set %s", key)
}

func (s *SQLiteStore) delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM agent_state WHERE key = ?`, key,
		); err != nil {
			return eris.Wrapf(err, "state: delete %s", key)
		}
	}
	return nil
}

func (s *SQLiteStore) ProcessedKeySets(ctx context.Context) ([]string, error) {
	raw, ok, err := s.get(ctx, KeyExposureKeySets)
	if err != nil || !ok {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, eris.Wrap(err, "state: decode processed key sets")
	}
	return ids, nil
}

func (s *SQLiteStore) SetProcessedKeySets(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return eris.Wrap(err, "state: encode processed key sets")
	}
	return s.set(ctx, KeyExposureKeySets, string(raw))
}

func (s *SQLiteStore) LastKeysProcessed(ctx context.Context) (*time.Time, error) {
	raw, ok, err := s.get(ctx, KeyLastKeysProcessed)
	if err != nil || !ok {
		return nil, err
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, eris.Wrap(err, "state: decode last keys processed")
	}
	t := time.UnixMilli(millis).UTC()
	return &t, nil
}

func (s *SQLiteStore) SetLastKeysProcessed(ctx context.Context, t time.Time) error {
	return s.set(ctx, KeyLastKeysProcessed, strconv.FormatInt(t.UnixMilli(), 10))
}

func (s *SQLiteStore) ClearLastKeysProcessed(ctx context.Context) error {
	return s.delete(ctx, KeyLastKeysProcessed)
}

func (s *SQLiteStore) LastExposure(ctx context.Context) (*Exposure, error) {
	token, ok, err := s.get(ctx, KeyLastTokenID)
	if err != nil || !ok {
		return nil, err
	}
	raw, ok, err := s.get(ctx, KeyLastTokenExposureDate)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Token without date should not happen; treat as no record.
		return nil, nil
	}
	day, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, eris.Wrap(err, "state: decode last exposure date")
	}
	return &Exposure{Token: token, Date: DateFromEpochDay(day)}, nil
}

// SetLastExposure writes the token/date pair in one transaction so a
// crash cannot leave one without the other.
func (s *SQLiteStore) SetLastExposure(ctx context.Context, token string, date time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "state: begin set last exposure")
	}
	defer tx.Rollback() //nolint:errcheck

	upsert := `INSERT INTO agent_state (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := tx.ExecContext(ctx, upsert, KeyLastTokenID, token); err != nil {
		return eris.Wrap(err, "state: set last token")
	}
	day := strconv.FormatInt(EpochDay(date), 10)
	if _, err := tx.ExecContext(ctx, upsert, KeyLastTokenExposureDate, day); err != nil {
		return eris.Wrap(err, "state: set last exposure date")
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "state: commit last exposure")
	}

	s.hub.notify(token)
	return nil
}

func (s *SQLiteStore) ClearLastExposure(ctx context.Context) error {
	if err := s.delete(ctx, KeyLastTokenID, KeyLastTokenExposureDate); err != nil {
		return err
	}
	s.hub.notify("")
	return nil
}

func (s *SQLiteStore) WatchLastToken(ctx context.Context) <-chan string {
	return s.hub.subscribe(ctx)
}
