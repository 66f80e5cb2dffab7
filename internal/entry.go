// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/galaxytab/internal/api"
	"github.com/starford/galaxytab/internal/gesture"
	"github.com/starford/galaxytab/internal/sse"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = NewLogger(cfg.App.LogLevel, os.Stdout)
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("storage_path", cfg.Storage.Path),
		slog.Bool("scripts_enabled", cfg.Scripts.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(cfg.App.HTTP.ThemeThrottle)

	comps, err := Open(cfg, logger, broker)
	if err != nil {
		broker.Close()
		return err
	}

	feed := gesture.NewFeed()
	recognizer := bindGestures(comps, feed, broker, logger)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHTTPHandler(comps, cfg, broker, feed, app.version),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)

	// Watch the storage medium for writes from other processes.
	g.Go(func() error {
		if err := comps.KV.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("storage watcher error: %w", err)
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Streaming clients hold their connections open until the broker lets go.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		stop()
		return nil
	})

	waitErr := g.Wait()

	recognizer.Close()
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	comps.Close(closeCtx)

	if waitErr != nil {
		logger.Error("Application error", slog.String("error", waitErr.Error()))
		return waitErr
	}

	logger.Info("Server stopped successfully")
	return nil
}

// bindGestures recognizes gesture events posted by dashboards and broadcasts
// the resulting actions back to every open dashboard.
func bindGestures(comps *Components, feed *gesture.Feed, broker *sse.Broker, logger *slog.Logger) *gesture.Recognizer {
	recognizer := gesture.New(feed, func(kind gesture.Kind, action string) {
		broker.Publish(sse.Event{
			Type: sse.TypeGestureAction,
			Data: map[string]string{"gesture": string(kind), "action": action},
		})
	}, logger)
	recognizer.Bind(comps.Settings)
	return recognizer
}

// newHTTPHandler builds the root router: health probes plus the API under /api.
func newHTTPHandler(comps *Components, cfg *Config, broker http.Handler, feed api.Emitter, version string) http.Handler {
	apiRouter := api.NewRouter(comps.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, feed)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","version":%q}`, version)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := comps.KV.Provider().Keys(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	return r
}
