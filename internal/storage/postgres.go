package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkarlsen/stride/internal/run"
)

var _ Store = (*PostgresStore)(nil)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS workouts (
	id                TEXT PRIMARY KEY,
	source            TEXT NOT NULL,
	start             TIMESTAMPTZ NOT NULL,
	duration_min      DOUBLE PRECISION NOT NULL,
	distance_km       DOUBLE PRECISION NOT NULL,
	calories          DOUBLE PRECISION NOT NULL,
	avg_heart_rate    DOUBLE PRECISION NOT NULL,
	min_heart_rate    DOUBLE PRECISION NOT NULL,
	max_heart_rate    DOUBLE PRECISION NOT NULL,
	avg_cadence       DOUBLE PRECISION NOT NULL,
	avg_stride_len    DOUBLE PRECISION NOT NULL,
	heart_rate_json   JSONB,
	cadence_json      JSONB,
	stride_len_json   JSONB
);
CREATE INDEX IF NOT EXISTS idx_workouts_source ON workouts(source);
CREATE INDEX IF NOT EXISTS idx_workouts_start ON workouts(start);

CREATE TABLE IF NOT EXISTS routes (
	id         TEXT PRIMARY KEY,
	start      TIMESTAMPTZ NOT NULL,
	route_json JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_routes_start ON routes(start);
`

// PostgresStore mirrors the sqlite layout on a pgx pool for setups that
// already run postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating pgx pool: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) ReplaceSource(ctx context.Context, source run.Source, workouts []run.Workout) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM workouts WHERE source = $1`, string(source)); err != nil {
		return fmt.Errorf("deleting source %s: %w", source, err)
	}

	const insert = `
INSERT INTO workouts (
	id, source, start, duration_min, distance_km, calories,
	avg_heart_rate, min_heart_rate, max_heart_rate, avg_cadence, avg_stride_len,
	heart_rate_json, cadence_json, stride_len_json
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	for i := range workouts {
		w := &workouts[i]
		hr, err := seriesJSON(w.HeartRateSeries)
		if err != nil {
			return err
		}
		cad, err := seriesJSON(w.CadenceSeries)
		if err != nil {
			return err
		}
		stride, err := seriesJSON(w.StrideLenSeries)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, insert,
			w.ID, string(w.Source), w.Start.UTC(), w.DurationMin, w.DistanceKm, w.Calories,
			w.AvgHeartRate, w.MinHeartRate, w.MaxHeartRate, w.AvgCadence, w.AvgStrideLen,
			hr, cad, stride,
		); err != nil {
			return fmt.Errorf("inserting workout %s: %w", w.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (s *PostgresStore) Workouts(ctx context.Context) ([]run.Workout, error) {
	rows, err := s.pool.Query(ctx, `SELECT`+workoutColumns+` FROM workouts ORDER BY start, id`)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	return scanPgxWorkouts(rows)
}

func (s *PostgresStore) WorkoutsBySource(ctx context.Context, source run.Source) ([]run.Workout, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+workoutColumns+` FROM workouts WHERE source = $1 ORDER BY start, id`, string(source))
	if err != nil {
		return nil, fmt.Errorf("querying workouts by source: %w", err)
	}
	defer rows.Close()

	return scanPgxWorkouts(rows)
}

func (s *PostgresStore) DeleteWorkout(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM workouts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting workout %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) PutRoute(ctx context.Context, route *run.Route) error {
	doc, err := go_json.Marshal(route)
	if err != nil {
		return fmt.Errorf("encoding route %s: %w", route.ID, err)
	}

	const upsert = `
INSERT INTO routes (id, start, route_json) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET start = EXCLUDED.start, route_json = EXCLUDED.route_json`

	if _, err := s.pool.Exec(ctx, upsert, route.ID, route.Start.UTC(), doc); err != nil {
		return fmt.Errorf("upserting route %s: %w", route.ID, err)
	}
	return nil
}

func (s *PostgresStore) Route(ctx context.Context, id string) (*run.Route, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT route_json FROM routes WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying route %s: %w", id, err)
	}

	var route run.Route
	if err := go_json.Unmarshal(doc, &route); err != nil {
		return nil, fmt.Errorf("decoding route %s: %w", id, err)
	}
	return &route, nil
}

func (s *PostgresStore) Routes(ctx context.Context) ([]run.Route, error) {
	rows, err := s.pool.Query(ctx, `SELECT route_json FROM routes ORDER BY start, id`)
	if err != nil {
		return nil, fmt.Errorf("querying routes: %w", err)
	}
	defer rows.Close()

	var routes []run.Route
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning route: %w", err)
		}
		var route run.Route
		if err := go_json.Unmarshal(doc, &route); err != nil {
			return nil, fmt.Errorf("decoding route: %w", err)
		}
		routes = append(routes, route)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating routes: %w", err)
	}
	return routes, nil
}

func (s *PostgresStore) DeleteRoute(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM routes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting route %s: %w", id, err)
	}
	return nil
}

func scanPgxWorkouts(rows pgx.Rows) ([]run.Workout, error) {
	var workouts []run.Workout
	for rows.Next() {
		var (
			w               run.Workout
			source          string
			start           time.Time
			hr, cad, stride []byte
		)
		if err := rows.Scan(
			&w.ID, &source, &start, &w.DurationMin, &w.DistanceKm, &w.Calories,
			&w.AvgHeartRate, &w.MinHeartRate, &w.MaxHeartRate, &w.AvgCadence, &w.AvgStrideLen,
			&hr, &cad, &stride,
		); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		w.Source = run.Source(source)
		w.Start = start.UTC()

		var err error
		if w.HeartRateSeries, err = seriesFromBytes(hr); err != nil {
			return nil, err
		}
		if w.CadenceSeries, err = seriesFromBytes(cad); err != nil {
			return nil, err
		}
		if w.StrideLenSeries, err = seriesFromBytes(stride); err != nil {
			return nil, err
		}

		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workouts: %w", err)
	}
	return workouts, nil
}

func seriesFromBytes(data []byte) ([]run.Sample, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var samples []run.Sample
	if err := go_json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("decoding series: %w", err)
	}
	return samples, nil
}
