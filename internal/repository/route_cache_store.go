package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ridelink/service-navigation/internal/routing"
)

const schema = `
CREATE TABLE IF NOT EXISTS route_cache (
	cache_key        TEXT PRIMARY KEY,
	distance_meters  REAL NOT NULL,
	duration_seconds REAL NOT NULL,
	geometry         TEXT NOT NULL,
	is_fallback      INTEGER NOT NULL DEFAULT 0,
	computed_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_route_cache_computed_at ON route_cache(computed_at);
`

// SQLiteRouteStore persists route results across process restarts so a fresh
// engine does not re-fetch legs it already knows. It implements
// routing.RouteStore.
type SQLiteRouteStore struct {
	db *sql.DB
}

// OpenSQLiteRouteStore opens (and bootstraps) the store at the given path.
func OpenSQLiteRouteStore(path string) (*SQLiteRouteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open route cache db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap route cache schema: %w", err)
	}
	return &SQLiteRouteStore{db: db}, nil
}

// Get returns the stored result and its computation time for the key.
func (s *SQLiteRouteStore) Get(ctx context.Context, key string) (routing.RouteResult, time.Time, bool, error) {
	query := `
		SELECT distance_meters, duration_seconds, geometry, is_fallback, computed_at
		FROM route_cache
		WHERE cache_key = ?
	`
	var result routing.RouteResult
	var geometryJSON string
	var isFallback int
	var computedAtUnix int64

	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&result.DistanceMeters, &result.DurationSeconds, &geometryJSON, &isFallback, &computedAtUnix,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return routing.RouteResult{}, time.Time{}, false, nil
	}
	if err != nil {
		return routing.RouteResult{}, time.Time{}, false, fmt.Errorf("get cached route: %w", err)
	}

	if err := json.Unmarshal([]byte(geometryJSON), &result.Geometry); err != nil {
		return routing.RouteResult{}, time.Time{}, false, fmt.Errorf("decode cached geometry: %w", err)
	}
	result.IsFallback = isFallback != 0

	return result, time.Unix(computedAtUnix, 0), true, nil
}

// Put upserts the result under the key.
func (s *SQLiteRouteStore) Put(ctx context.Context, key string, result routing.RouteResult, computedAt time.Time) error {
	geometryJSON, err := json.Marshal(result.Geometry)
	if err != nil {
		return fmt.Errorf("encode geometry: %w", err)
	}

	query := `
		INSERT INTO route_cache (cache_key, distance_meters, duration_seconds, geometry, is_fallback, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key)
		DO UPDATE SET distance_meters = excluded.distance_meters,
			duration_seconds = excluded.duration_seconds,
			geometry = excluded.geometry,
			is_fallback = excluded.is_fallback,
			computed_at = excluded.computed_at
	`
	isFallback := 0
	if result.IsFallback {
		isFallback = 1
	}
	if _, err := s.db.ExecContext(ctx, query,
		key, result.DistanceMeters, result.DurationSeconds, string(geometryJSON), isFallback, computedAt.Unix(),
	); err != nil {
		return fmt.Errorf("set cached route: %w", err)
	}
	return nil
}

// Prune removes entries computed before the cutoff.
func (s *SQLiteRouteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM route_cache WHERE computed_at < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune route cache: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every entry.
func (s *SQLiteRouteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM route_cache`); err != nil {
		return fmt.Errorf("clear route cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteRouteStore) Close() error {
	return s.db.Close()
}
