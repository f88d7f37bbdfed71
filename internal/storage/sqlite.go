package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	go_json "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mkarlsen/stride/internal/run"
)

var _ Store = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS workouts (
	id                TEXT PRIMARY KEY,
	source            TEXT NOT NULL,
	start             TIMESTAMP NOT NULL,
	duration_min      REAL NOT NULL,
	distance_km       REAL NOT NULL,
	calories          REAL NOT NULL,
	avg_heart_rate    REAL NOT NULL,
	min_heart_rate    REAL NOT NULL,
	max_heart_rate    REAL NOT NULL,
	avg_cadence       REAL NOT NULL,
	avg_stride_len    REAL NOT NULL,
	heart_rate_json   TEXT,
	cadence_json      TEXT,
	stride_len_json   TEXT
);
CREATE INDEX IF NOT EXISTS idx_workouts_source ON workouts(source);
CREATE INDEX IF NOT EXISTS idx_workouts_start ON workouts(start);

CREATE TABLE IF NOT EXISTS routes (
	id         TEXT PRIMARY KEY,
	start      TIMESTAMP NOT NULL,
	route_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_routes_start ON routes(start);
`

// SQLiteStore is the default persistent backend: one file, no server.
// Time-series columns hold JSON; routes are stored whole as JSON documents
// keyed by id and indexed by start for timeline reads.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceSource(ctx context.Context, source run.Source, workouts []run.Workout) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM workouts WHERE source = ?`, string(source)); err != nil {
		return fmt.Errorf("deleting source %s: %w", source, err)
	}

	const insert = `
INSERT INTO workouts (
	id, source, start, duration_min, distance_km, calories,
	avg_heart_rate, min_heart_rate, max_heart_rate, avg_cadence, avg_stride_len,
	heart_rate_json, cadence_json, stride_len_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

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

		if _, err := stmt.ExecContext(ctx,
			w.ID, string(w.Source), w.Start.UTC(), w.DurationMin, w.DistanceKm, w.Calories,
			w.AvgHeartRate, w.MinHeartRate, w.MaxHeartRate, w.AvgCadence, w.AvgStrideLen,
			hr, cad, stride,
		); err != nil {
			return fmt.Errorf("inserting workout %s: %w", w.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

const workoutColumns = `
	id, source, start, duration_min, distance_km, calories,
	avg_heart_rate, min_heart_rate, max_heart_rate, avg_cadence, avg_stride_len,
	heart_rate_json, cadence_json, stride_len_json`

func (s *SQLiteStore) Workouts(ctx context.Context) ([]run.Workout, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT`+workoutColumns+` FROM workouts ORDER BY start, id`)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanWorkouts(rows)
}

func (s *SQLiteStore) WorkoutsBySource(ctx context.Context, source run.Source) ([]run.Workout, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT`+workoutColumns+` FROM workouts WHERE source = ? ORDER BY start, id`, string(source))
	if err != nil {
		return nil, fmt.Errorf("querying workouts by source: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanWorkouts(rows)
}

func (s *SQLiteStore) DeleteWorkout(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM workouts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting workout %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) PutRoute(ctx context.Context, route *run.Route) error {
	doc, err := go_json.Marshal(route)
	if err != nil {
		return fmt.Errorf("encoding route %s: %w", route.ID, err)
	}

	const upsert = `
INSERT INTO routes (id, start, route_json) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET start = excluded.start, route_json = excluded.route_json`

	if _, err := s.db.ExecContext(ctx, upsert, route.ID, route.Start.UTC(), string(doc)); err != nil {
		return fmt.Errorf("upserting route %s: %w", route.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Route(ctx context.Context, id string) (*run.Route, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT route_json FROM routes WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying route %s: %w", id, err)
	}

	var route run.Route
	if err := go_json.Unmarshal([]byte(doc), &route); err != nil {
		return nil, fmt.Errorf("decoding route %s: %w", id, err)
	}
	return &route, nil
}

func (s *SQLiteStore) Routes(ctx context.Context) ([]run.Route, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT route_json FROM routes ORDER BY start, id`)
	if err != nil {
		return nil, fmt.Errorf("querying routes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var routes []run.Route
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning route: %w", err)
		}
		var route run.Route
		if err := go_json.Unmarshal([]byte(doc), &route); err != nil {
			return nil, fmt.Errorf("decoding route: %w", err)
		}
		routes = append(routes, route)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating routes: %w", err)
	}
	return routes, nil
}

func (s *SQLiteStore) DeleteRoute(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM routes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting route %s: %w", id, err)
	}
	return nil
}

func scanWorkouts(rows *sql.Rows) ([]run.Workout, error) {
	var workouts []run.Workout
	for rows.Next() {
		var (
			w               run.Workout
			source          string
			start           time.Time
			hr, cad, stride sql.NullString
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
		if w.HeartRateSeries, err = seriesFromJSON(hr); err != nil {
			return nil, err
		}
		if w.CadenceSeries, err = seriesFromJSON(cad); err != nil {
			return nil, err
		}
		if w.StrideLenSeries, err = seriesFromJSON(stride); err != nil {
			return nil, err
		}

		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workouts: %w", err)
	}
	return workouts, nil
}

func seriesJSON(samples []run.Sample) (*string, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	data, err := go_json.Marshal(samples)
	if err != nil {
		return nil, fmt.Errorf("encoding series: %w", err)
	}
	s := string(data)
	return &s, nil
}

func seriesFromJSON(col sql.NullString) ([]run.Sample, error) {
	if !col.Valid || col.String == "" {
		return nil, nil
	}
	var samples []run.Sample
	if err := go_json.Unmarshal([]byte(col.String), &samples); err != nil {
		return nil, fmt.Errorf("decoding series: %w", err)
	}
	return samples, nil
}
