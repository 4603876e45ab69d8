package state

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies
// it for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool, for deployments where
// agent state is managed centrally.
type PostgresStore struct {
	pool    Pool
	hub     *watchHub
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "state: parse postgres config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "state: connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "state: ping postgres")
	}

	return &PostgresStore{pool: pool, hub: newWatchHub(), closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS agent_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate creates the state table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "state: migrate postgres")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM agent_state WHERE key = $1`, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrapf(err, "state: get %s", key)
	}
	return value, true, nil
}

const postgresUpsert = `INSERT INTO agent_state (key, value, updated_at) VALUES ($1, $2, now())
	 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

func (s *PostgresStore) set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, postgresUpsert, key, value)
	return eris.Wrapf(err, "state: set %s", key)
}

func (s *PostgresStore) delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := s.pool.Exec(ctx,
			`DELETE FROM agent_state WHERE key = $1`, key,
		); err != nil {
			return eris.Wrapf(err, "state: delete %s", key)
		}
	}
	return nil
}

func (s *PostgresStore) ProcessedKeySets(ctx context.Context) ([]string, error) {
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

func (s *PostgresStore) SetProcessedKeySets(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return eris.Wrap(err, "state: encode processed key sets")
	}
	return s.set(ctx, KeyExposureKeySets, string(raw))
}

func (s *PostgresStore) LastKeysProcessed(ctx context.Context) (*time.Time, error) {
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

func (s *PostgresStore) SetLastKeysProcessed(ctx context.Context, t time.Time) error {
	return s.set(ctx, KeyLastKeysProcessed, strconv.FormatInt(t.UnixMilli(), 10))
}

func (s *PostgresStore) ClearLastKeysProcessed(ctx context.Context) error {
	return s.delete(ctx, KeyLastKeysProcessed)
}

func (s *PostgresStore) LastExposure(ctx context.Context) (*Exposure, error) {
	token, ok, err := s.get(ctx, KeyLastTokenID)
	if err != nil || !ok {
		return nil, err
	}
	raw, ok, err := s.get(ctx, KeyLastTokenExposureDate)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	day, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, eris.Wrap(err, "state: decode last exposure date")
	}
	return &Exposure{Token: token, Date: DateFromEpochDay(day)}, nil
}

func (s *PostgresStore) SetLastExposure(ctx context.Context, token string, date time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "state: begin set last exposure")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, postgresUpsert, KeyLastTokenID, token); err != nil {
		return eris.Wrap(err, "state: set last token")
	}
	day := strconv.FormatInt(EpochDay(date), 10)
	if _, err := tx.Exec(ctx, postgresUpsert, KeyLastTokenExposureDate, day); err != nil {
		return eris.Wrap(err, "state: set last exposure date")
	}
	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "state: commit last exposure")
	}

	s.hub.notify(token)
	return nil
}

func (s *PostgresStore) ClearLastExposure(ctx context.Context) error {
	if err := s.delete(ctx, KeyLastTokenID, KeyLastTokenExposureDate); err != nil {
		return err
	}
	s.hub.notify("")
	return nil
}

func (s *PostgresStore) WatchLastToken(ctx context.Context) <-chan string {
	return s.hub.subscribe(ctx)
}
