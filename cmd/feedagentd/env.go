package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	feedagent "github.com/Swind/go-feed-agent"
	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
	"github.com/Swind/go-feed-agent/source/dummy"
	"github.com/Swind/go-feed-agent/source/postgres"
)

const demoSourceID = 1

// env is what every command needs: the config, a logger and the sources.
type env struct {
	cfg      feedagent.Config
	logger   core.Logger
	registry *source.Registry
	db       *sql.DB
	store    *postgres.Store
}

func loadConfig(c *cli.Context) (feedagent.Config, error) {
	cfg := feedagent.DefaultConfig()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = feedagent.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
		if err := cfg.Validate(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func newLogger(level string) core.Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: core.ParseLevel(level)})
	return core.NewSlogLogger(slog.New(h))
}

// openStore connects to the configured database. It returns nil when no
// database is configured.
func openStore(ctx context.Context, cfg feedagent.Config, logger core.Logger) (*sql.DB, *postgres.Store, error) {
	if cfg.Database.URL == "" {
		return nil, nil, nil
	}
	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	store := postgres.NewStore(db, postgres.WithLogger(logger))
	if cfg.Database.Migrate {
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return db, store, nil
}

// setup loads the config and the sources. Without a database a single demo
// source is registered.
func setup(c *cli.Context) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("config: %v", err), 2)
	}
	logger := newLogger(cfg.LogLevel)

	e := &env{cfg: cfg, logger: logger, registry: source.NewRegistry()}
	e.registry.RegisterType(dummy.Type, dummy.Factory)

	e.db, e.store, err = openStore(c.Context, cfg, logger)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("database: %v", err), 1)
	}
	if e.store != nil {
		if _, err := e.store.LoadInto(c.Context, e.registry); err != nil {
			e.close()
			return nil, cli.Exit(fmt.Sprintf("load sources: %v", err), 1)
		}
		return e, nil
	}

	demo := dummy.New(demoSourceID,
		dummy.WithTitle("Demo"),
		dummy.WithRefreshLatency(cfg.Demo.Latency),
	)
	demo.Populate(cfg.Demo.Folders, cfg.Demo.Feeds, cfg.Demo.Posts)
	e.registry.Register(demo)
	logger.Info("no database configured, using demo source",
		core.F("folders", cfg.Demo.Folders),
		core.F("feeds", cfg.Demo.Feeds))
	return e, nil
}

func (e *env) close() {
	if e.db != nil {
		e.db.Close()
	}
}
