package xsync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkarlsen/stride/internal/export"
	"github.com/mkarlsen/stride/internal/fitfile"
	"github.com/mkarlsen/stride/internal/gpx"
	"github.com/mkarlsen/stride/internal/reconcile"
	"github.com/mkarlsen/stride/internal/run"
	"github.com/mkarlsen/stride/internal/xslog"
)

// ImportExport streams a health-export file through the parser and replaces
// the stored health_export workouts with the result. onProgress may be nil.
func (s *Service) ImportExport(ctx context.Context, path string, onProgress func(export.Progress)) (int, error) {
	src, err := export.OpenFile(path, s.chunkSize)
	if err != nil {
		return 0, fmt.Errorf("opening export: %w", err)
	}
	defer func() { _ = src.Close() }()

	parser := export.NewParser(export.WithLogger(s.logger))
	workouts, err := parser.Parse(ctx, src, onProgress)
	if err != nil {
		return 0, fmt.Errorf("parsing export: %w", err)
	}

	if err := s.workouts.ReplaceSource(ctx, run.SourceHealthExport, workouts); err != nil {
		return 0, fmt.Errorf("storing workouts: %w", err)
	}

	s.logger.InfoContext(ctx, "export imported",
		xslog.Path(path),
		xslog.Count(len(workouts)),
	)
	return len(workouts), nil
}

// ImportRouteFile parses one GPS track (gpx or fit, by extension) and stores
// it keyed by its base filename.
func (s *Service) ImportRouteFile(ctx context.Context, path string) (*run.Route, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening track: %w", err)
	}
	defer func() { _ = f.Close() }()

	name := filepath.Base(path)

	var route *run.Route
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gpx":
		route, err = gpx.Parse(f, name)
	case ".fit":
		route, err = fitfile.Parse(f, name)
	default:
		return nil, fmt.Errorf("unsupported track format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parsing track %s: %w", name, err)
	}

	if err := s.routes.PutRoute(ctx, route); err != nil {
		return nil, fmt.Errorf("storing route %s: %w", route.ID, err)
	}

	s.logger.InfoContext(ctx, "route imported",
		xslog.RouteID(route.ID),
		xslog.Count(len(route.Points)),
	)
	return route, nil
}

// RelinkRoutes matches every stored route against the merged timeline and
// persists the ones that gained or refreshed a workout link. Returns how many
// routes are linked afterwards.
func (s *Service) RelinkRoutes(ctx context.Context) (int, error) {
	timeline, err := s.Timeline(ctx)
	if err != nil {
		return 0, err
	}

	routes, err := s.routes.Routes(ctx)
	if err != nil {
		return 0, err
	}

	linked := 0
	for i := range routes {
		augmented, ok := reconcile.LinkRoute(routes[i], timeline)
		if !ok {
			continue
		}
		linked++
		if err := s.routes.PutRoute(ctx, &augmented); err != nil {
			return linked, fmt.Errorf("storing linked route %s: %w", augmented.ID, err)
		}
	}

	s.logger.InfoContext(ctx, "routes relinked", xslog.Count(linked))
	return linked, nil
}
