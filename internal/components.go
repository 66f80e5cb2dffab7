package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/galaxytab/internal/dashboard"
	"github.com/starford/galaxytab/internal/environment"
	"github.com/starford/galaxytab/internal/kv"
	"github.com/starford/galaxytab/internal/links"
	"github.com/starford/galaxytab/internal/settings"
)

// Components are the stores of one process, built once at startup and handed
// to whichever surface (HTTP, MCP, CLI) the process runs.
type Components struct {
	KV       *kv.Store
	Settings *settings.Store
	Links    *links.Collection
	Env      *environment.Environment
	Service  *dashboard.Service

	provider kv.Provider
	logger   *slog.Logger
}

// NewLogger returns the JSON logger used by every command.
func NewLogger(level slog.Level, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// Open builds the components described by cfg. pub receives store change
// events and may be nil.
func Open(cfg *Config, logger *slog.Logger, pub dashboard.Publisher) (*Components, error) {
	provider, err := kv.Open(cfg.Storage.Driver, cfg.Storage.Path, cfg.Storage.PollInterval)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	store := kv.New(provider, logger)

	envOpts := []environment.Option{
		environment.WithPrefersDark(cfg.Environment.PrefersDark),
		environment.WithLogger(logger),
	}
	if cfg.Scripts.Enabled {
		envOpts = append(envOpts, environment.WithScripts(environment.NewSandbox(cfg.Scripts.Timeout, logger)))
	}
	env := environment.New(envOpts...)

	st := settings.New(store, env, logger)
	lc := links.New(store, logger)

	svc := dashboard.NewService(st, lc, env, pub, logger)

	return &Components{
		KV:       store,
		Settings: st,
		Links:    lc,
		Env:      env,
		Service:  svc,
		provider: provider,
		logger:   logger,
	}, nil
}

// Close flushes the service (honouring advanced.clearHistoryOnExit), detaches
// the stores and closes the storage medium.
func (c *Components) Close(ctx context.Context) {
	c.Service.Shutdown(ctx)
	c.Links.Close()
	c.Settings.Close()
	c.KV.Close()
	if err := c.provider.Close(); err != nil {
		c.logger.Warn("close storage failed", slog.String("error", err.Error()))
	}
}
