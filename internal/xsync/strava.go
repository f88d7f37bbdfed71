package xsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mkarlsen/stride/internal/client/strava"
	"github.com/mkarlsen/stride/internal/run"
	"github.com/mkarlsen/stride/internal/xslog"
)

// streamFetchConcurrency bounds parallel heart-rate stream requests; the
// client's rate limiter throttles beneath it.
const streamFetchConcurrency = 4

const stravaPageSize = 100

var ErrNoStravaClient = errors.New("xsync: no strava client configured")

// SyncStrava lists the athlete's runs since `after` (all history when zero),
// fetches each run's heart-rate stream, and replaces the stored strava
// workouts with the result.
func (s *Service) SyncStrava(ctx context.Context, after time.Time) (int, error) {
	if s.activities == nil {
		return 0, ErrNoStravaClient
	}

	var activities []strava.Activity
	params := &strava.ListParams{Page: 1, PerPage: stravaPageSize}
	if !after.IsZero() {
		params.After = &after
	}

	for {
		page, err := s.activities.List(ctx, params)
		if err != nil {
			return 0, fmt.Errorf("listing activities (page %d): %w", params.Page, err)
		}
		for _, a := range page {
			if a.IsRun() {
				activities = append(activities, a)
			}
		}
		if len(page) < stravaPageSize {
			break
		}
		params.Page++
	}

	workouts := make([]run.Workout, len(activities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(streamFetchConcurrency)
	for i := range activities {
		g.Go(func() error {
			a := &activities[i]
			w := a.ToWorkout()

			streams, err := s.activities.Streams(gctx, a.ID)
			if err != nil {
				// Streams are enrichment; the summary still counts.
				s.logger.WarnContext(gctx, "heart-rate stream fetch failed",
					xslog.WorkoutID(w.ID),
					xslog.Error(err),
				)
			} else {
				w.HeartRateSeries = streams.HeartRateSamples(a.StartDate)
			}

			workouts[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := s.workouts.ReplaceSource(ctx, run.SourceStrava, workouts); err != nil {
		return 0, fmt.Errorf("storing workouts: %w", err)
	}

	s.logger.InfoContext(ctx, "strava synced",
		xslog.Source(string(run.SourceStrava)),
		xslog.Count(len(workouts)),
	)
	return len(workouts), nil
}
