package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no search has the requested id.
var ErrNotFound = errors.New("search not found")

// ─── Models ──────────────────────────────────────────────────────────────────

// Search is one proxied provider call as the agent saw it.
type Search struct {
	ID          string            `json:"id"`
	Kind        string            `json:"kind"`
	Params      map[string]string `json:"params"`
	Status      int               `json:"status"`
	ResultCount int               `json:"result_count"`
	Payload     []byte            `json:"-"`
	Error       string            `json:"error,omitempty"`
	DurationMS  int64             `json:"duration_ms"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Store persists searches in PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// ─── Init ─────────────────────────────────────────────────────────────────────

// Open connects to dsn, waits for the server to accept connections and migrates.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// The database may still be starting when the server comes up
	const attempts = 10
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		logger.Info("waiting for database", zap.Int("attempt", i+1), zap.Int("of", attempts), zap.Error(err))
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database after retries: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("database connected and migrated")
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ─── Migrations ───────────────────────────────────────────────────────────────

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS searches (
		id            TEXT PRIMARY KEY,
		kind          TEXT NOT NULL,
		params        JSONB NOT NULL DEFAULT '{}',
		status        INTEGER NOT NULL,
		result_count  INTEGER NOT NULL DEFAULT 0,
		payload       BYTEA,
		error         TEXT,
		duration_ms   BIGINT NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_searches_created_at
		ON searches(created_at DESC)`,

	`CREATE INDEX IF NOT EXISTS idx_searches_kind
		ON searches(kind)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── CRUD ─────────────────────────────────────────────────────────────────────

func (s *Store) SaveSearch(ctx context.Context, search *Search) error {
	params, err := encodeParams(search.Params)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO searches (id, kind, params, status, result_count, payload, error, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		search.ID, search.Kind, string(params), search.Status, search.ResultCount,
		search.Payload, nullString(search.Error), search.DurationMS)
	return err
}

func (s *Store) GetSearch(ctx context.Context, id string) (*Search, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, params, status, result_count, payload, error, duration_ms, created_at
		FROM searches WHERE id = $1`, id)

	search, err := scanSearch(row.Scan, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return search, err
}

// RecentSearches lists the newest searches without their payloads.
func (s *Store) RecentSearches(ctx context.Context, kind string, limit int) ([]Search, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, params, status, result_count, NULL::BYTEA, error, duration_ms, created_at
		FROM searches
		WHERE ($1::TEXT = '' OR kind = $1::TEXT)
		ORDER BY created_at DESC
		LIMIT $2`, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	searches := []Search{}
	for rows.Next() {
		search, err := scanSearch(rows.Scan, false)
		if err != nil {
			return nil, err
		}
		searches = append(searches, *search)
	}
	return searches, rows.Err()
}
