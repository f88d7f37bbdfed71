// Package xsync orchestrates imports and syncs: it moves data from files and
// the Strava API into storage and assembles the merged timeline on the way
// out.
package xsync

import (
	"context"
	"log/slog"

	"github.com/mkarlsen/stride/internal/client/strava"
	"github.com/mkarlsen/stride/internal/export"
	"github.com/mkarlsen/stride/internal/reconcile"
	"github.com/mkarlsen/stride/internal/run"
	"github.com/mkarlsen/stride/internal/storage"
)

type Service struct {
	workouts   storage.WorkoutStore
	routes     storage.RouteStore
	activities strava.ActivityService
	logger     *slog.Logger

	primary   run.Source
	secondary run.Source
	chunkSize int
}

type ServiceOption func(*Service)

// WithDedupSources overrides which source wins when the timeline drops
// cross-source duplicates.
func WithDedupSources(primary, secondary run.Source) ServiceOption {
	return func(s *Service) {
		s.primary = primary
		s.secondary = secondary
	}
}

func WithChunkSize(n int) ServiceOption {
	return func(s *Service) { s.chunkSize = n }
}

// NewService wires the stores and the activity source together. activities
// may be nil when no Strava credentials are configured; only SyncStrava
// needs it.
func NewService(workouts storage.WorkoutStore, routes storage.RouteStore, activities strava.ActivityService, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		workouts:   workouts,
		routes:     routes,
		activities: activities,
		logger:     logger,
		primary:    run.SourceHealthExport,
		secondary:  run.SourceStrava,
		chunkSize:  export.DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timeline loads every stored workout and collapses cross-source duplicates,
// primary source winning.
func (s *Service) Timeline(ctx context.Context) ([]run.Workout, error) {
	workouts, err := s.workouts.Workouts(ctx)
	if err != nil {
		return nil, err
	}
	return reconcile.Dedup(workouts, s.primary, s.secondary), nil
}
