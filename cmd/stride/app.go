package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2"

	"github.com/mkarlsen/stride/internal/client/strava"
	"github.com/mkarlsen/stride/internal/config"
	"github.com/mkarlsen/stride/internal/paths"
	"github.com/mkarlsen/stride/internal/redis"
	"github.com/mkarlsen/stride/internal/storage"
	"github.com/mkarlsen/stride/internal/units"
	"github.com/mkarlsen/stride/internal/xslog"
	"github.com/mkarlsen/stride/internal/xsync"
)

// app holds everything a subcommand needs: config, logger, the selected
// storage backend, and the sync service.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	store  storage.Store
	svc    *xsync.Service
	units  units.System

	cleanup func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Read()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	logger := xslog.NewLoggerFromEnv(os.Stderr)

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var activities strava.ActivityService
	if cfg.StravaAccessToken != "" {
		client := strava.New(stravaTokenSource(ctx, cfg), strava.WithLogger(logger))
		activities = client.Activities
	}

	var opts []xsync.ServiceOption
	if cfg.ChunkSize > 0 {
		opts = append(opts, xsync.WithChunkSize(cfg.ChunkSize))
	}
	svc := xsync.NewService(store, store, activities, logger, opts...)

	sys := units.Metric
	if cfg.Units == "imperial" {
		sys = units.Imperial
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		svc:     svc,
		units:   sys,
		cleanup: cleanup,
	}, nil
}

func (a *app) close() {
	if a.cleanup != nil {
		a.cleanup()
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, func(), error) {
	switch {
	case cfg.PostgresURL != "":
		s, err := storage.NewPostgresStore(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return s, s.Close, nil

	case cfg.RedisURL != "":
		client, err := redis.New(ctx, redis.Config{URL: cfg.RedisURL})
		if err != nil {
			return nil, nil, fmt.Errorf("opening redis store: %w", err)
		}
		return storage.NewRedisStore(client), func() { _ = client.Close() }, nil

	default:
		path := cfg.DBPath
		if path == "" {
			if _, err := paths.EnsureDir(); err != nil {
				return nil, nil, err
			}
			var err error
			if path, err = paths.DB(); err != nil {
				return nil, nil, err
			}
		}
		s, err := storage.NewSQLiteStore(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	}
}

// stravaTokenSource refreshes through the oauth2 flow when client
// credentials and a refresh token are configured, and falls back to the
// static access token otherwise.
func stravaTokenSource(ctx context.Context, cfg config.Config) oauth2.TokenSource {
	token := &oauth2.Token{
		AccessToken:  cfg.StravaAccessToken,
		RefreshToken: cfg.StravaRefreshToken,
	}

	if cfg.StravaClientID != "" && cfg.StravaClientSecret != "" && cfg.StravaRefreshToken != "" {
		oc := &oauth2.Config{
			ClientID:     cfg.StravaClientID,
			ClientSecret: cfg.StravaClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://www.strava.com/oauth/authorize",
				TokenURL: "https://www.strava.com/oauth/token",
			},
		}
		return oc.TokenSource(ctx, token)
	}

	return oauth2.StaticTokenSource(token)
}
