// Package postgres keeps the list of configured sources, and each source's
// last error, in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
)

// Schema creates the sources table.
const Schema = `
CREATE TABLE IF NOT EXISTS sources (
	id         BIGINT PRIMARY KEY,
	type       TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	params     JSONB NOT NULL DEFAULT '{}',
	last_error TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const undefinedTable = "42P01"

// Row is one configured source.
type Row struct {
	Config    source.Config
	LastError string
}

// Store reads and writes the sources table.
type Store struct {
	db           *sql.DB
	logger       core.Logger
	retry        core.RetryPolicy
	writeTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for write failures.
func WithLogger(l core.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithRetryPolicy sets how last-error writes are retried.
func WithRetryPolicy(p core.RetryPolicy) Option {
	return func(s *Store) { s.retry = p }
}

// Open connects to dsn with the lib/pq driver and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewStore wraps db.
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:           db,
		logger:       core.NewNoOpLogger(),
		retry:        core.DefaultRetryPolicy(),
		writeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the sources table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate sources: %w", err)
	}
	return nil
}

// Upsert inserts or replaces the configuration of a source.
func (s *Store) Upsert(ctx context.Context, cfg source.Config) error {
	params, err := json.Marshal(paramsOrEmpty(cfg.Params))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sources (id, type, title, params)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET type = EXCLUDED.type,
			title = EXCLUDED.title,
			params = EXCLUDED.params,
			updated_at = now()
	`, int64(cfg.ID), cfg.Type, cfg.Title, params)
	return wrapErr("upsert source", err)
}

// Delete removes a source row.
func (s *Store) Delete(ctx context.Context, id uint64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, int64(id))
	return wrapErr("delete source", err)
}

// Load returns the configured sources, all of them or only those in ids.
func (s *Store) Load(ctx context.Context, ids ...uint64) ([]Row, error) {
	query := `SELECT id, type, title, params, last_error FROM sources`
	var args []any
	if len(ids) > 0 {
		query += ` WHERE id = ANY($1)`
		ids64 := make([]int64, len(ids))
		for i, id := range ids {
			ids64[i] = int64(id)
		}
		args = append(args, pq.Array(ids64))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("load sources", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r      Row
			id     int64
			params []byte
		)
		if err := rows.Scan(&id, &r.Config.Type, &r.Config.Title, &params, &r.LastError); err != nil {
			return nil, err
		}
		r.Config.ID = uint64(id)
		if len(params) > 0 {
			if err := json.Unmarshal(params, &r.Config.Params); err != nil {
				return nil, fmt.Errorf("source %d params: %w", id, err)
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveLastError stores msg as the last error of source id.
func (s *Store) SaveLastError(ctx context.Context, id uint64, msg string) error {
	return s.retry.Do(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE sources SET last_error = $2, updated_at = now() WHERE id = $1
		`, int64(id), msg)
		return wrapErr("save last error", err)
	})
}

// LoadInto instantiates every configured source through reg's factories and
// registers it wrapped so that SetLastError is persisted. It returns the
// number of sources registered; rows of unknown type are logged and skipped.
func (s *Store) LoadInto(ctx context.Context, reg *source.Registry) (int, error) {
	rows, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, row := range rows {
		src, err := reg.Build(row.Config)
		if err != nil {
			s.logger.Warn("skipping source", core.F("source", row.Config.ID), core.F("error", err))
			continue
		}
		src.SetLastError(row.LastError)
		reg.Register(Persist(src, s, s.logger))
		n++
	}
	s.logger.Info("sources loaded", core.F("count", n))
	return n, nil
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		return fmt.Errorf("%s: sources table missing, run Migrate: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func paramsOrEmpty(p map[string]string) map[string]string {
	if p == nil {
		return map[string]string{}
	}
	return p
}
