// Package storage persists canonical workouts and routes. Absence is never
// an error: lookups return (nil, nil) when the record does not exist.
package storage

import (
	"context"

	"github.com/mkarlsen/stride/internal/run"
)

// WorkoutStore holds the merged workout timeline. Imports are full-replace
// per source: ReplaceSource swaps every workout of one source for the given
// set, so re-importing the same export is idempotent.
type WorkoutStore interface {
	ReplaceSource(ctx context.Context, source run.Source, workouts []run.Workout) error
	Workouts(ctx context.Context) ([]run.Workout, error)
	WorkoutsBySource(ctx context.Context, source run.Source) ([]run.Workout, error)
	DeleteWorkout(ctx context.Context, id string) error
}

// RouteStore holds parsed GPS tracks keyed by their file-derived id.
type RouteStore interface {
	PutRoute(ctx context.Context, route *run.Route) error
	Route(ctx context.Context, id string) (*run.Route, error)
	Routes(ctx context.Context) ([]run.Route, error)
	DeleteRoute(ctx context.Context, id string) error
}

// Store bundles both interfaces for backends that implement them together.
type Store interface {
	WorkoutStore
	RouteStore
}
