package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/job-aggregator/internal/config"
	"github.com/jonathan/job-aggregator/internal/connectors"
	"github.com/jonathan/job-aggregator/internal/connectors/adzuna"
	"github.com/jonathan/job-aggregator/internal/connectors/board"
	"github.com/jonathan/job-aggregator/internal/connectors/jsonfile"
	"github.com/jonathan/job-aggregator/internal/db"
	"github.com/jonathan/job-aggregator/internal/events"
	"github.com/jonathan/job-aggregator/internal/logging"
	"github.com/jonathan/job-aggregator/internal/pipeline"
	"github.com/jonathan/job-aggregator/internal/scoring"
	"github.com/jonathan/job-aggregator/internal/syncer"
	"github.com/jonathan/job-aggregator/internal/types"
)

// app holds everything a command needs. Fields are built lazily by the
// helpers below; close releases what was opened.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	store     db.Store
	publisher events.Publisher
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		cfg.ApplyEnv(os.Getenv)
		return cfg, cfg.Validate()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newApp(path string) (*app, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &app{cfg: cfg, logger: logger}, nil
}

// openStore connects the configured backend, or an in-memory one when dryRun is set.
func (a *app) openStore(ctx context.Context, dryRun bool) (db.Store, error) {
	driver, dsn := a.cfg.Store.Driver, a.cfg.Store.Path
	switch {
	case dryRun:
		driver, dsn = "memory", ""
	case driver == "postgres":
		dsn = a.cfg.Store.DatabaseURL
	}
	store, err := db.Open(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}
	a.store = store
	return store, nil
}

// openPublisher connects to Redis when configured. An unreachable Redis is
// logged and replaced by a no-op publisher; events are best effort.
func (a *app) openPublisher(ctx context.Context) events.Publisher {
	a.publisher = events.Nop{}
	if a.cfg.RedisURL == "" {
		return a.publisher
	}
	pub, err := events.NewRedisPublisher(ctx, a.cfg.RedisURL)
	if err != nil {
		a.logger.Warn("events disabled", "error", err)
		return a.publisher
	}
	a.publisher = pub
	return pub
}

func (a *app) engine(ctx context.Context, store db.Store) *syncer.Engine {
	return syncer.New(store, syncer.Options{
		Concurrency: a.cfg.SyncConcurrency,
		Logger:      a.logger,
		Publisher:   a.openPublisher(ctx),
	})
}

func (a *app) aggregator() (*pipeline.Aggregator, error) {
	ruleset := scoring.DefaultRuleset()
	if a.cfg.RulesetPath != "" {
		rs, err := scoring.LoadRuleset(a.cfg.RulesetPath)
		if err != nil {
			return nil, err
		}
		ruleset = rs
	}
	return pipeline.NewAggregator(buildSources(a.cfg, a.logger), pipeline.Options{
		Ruleset: ruleset,
		Timeout: a.cfg.SourceTimeout.Std(),
		Logger:  a.logger,
	})
}

func (a *app) query() connectors.Query {
	return connectors.Query{
		Keywords: a.cfg.Query.Keywords,
		Location: a.cfg.Query.Location,
		Limit:    a.cfg.Query.Limit,
	}
}

func (a *app) close() {
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	a.logger.Sync()
}

// buildSources turns the enabled config entries into connectors, in file order.
func buildSources(cfg *config.Config, logger *logging.Logger) []pipeline.Source {
	var out []pipeline.Source
	for _, src := range cfg.EnabledSources() {
		var c connectors.Connector
		switch src.Type {
		case config.SourceAdzuna:
			c = adzuna.New(adzuna.Config{
				Name:     src.Name,
				AppID:    src.AppID,
				AppKey:   src.AppKey,
				Country:  src.Country,
				MaxPages: src.MaxPages,
			}, logger)
		case config.SourceBoard:
			c = board.New(board.Config{
				Name:       src.Name,
				Platform:   src.Platform,
				SearchURL:  src.SearchURL,
				MaxPages:   src.MaxPages,
				PageDelay:  src.PageDelay.Std(),
				UseBrowser: src.UseBrowser,
			}, logger)
		case config.SourceJSONFile:
			platform := src.Platform
			if platform == "" {
				platform = types.PlatformLinkedIn
			}
			c = jsonfile.New(src.Name, platform, src.Pattern)
		default:
			continue
		}
		out = append(out, pipeline.Source{Connector: c, Timeout: cfg.TimeoutFor(src)})
	}
	return out
}
