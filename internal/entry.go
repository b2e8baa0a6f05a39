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

	"github.com/starford/noteku/internal/api"
	"github.com/starford/noteku/internal/kv"
	"github.com/starford/noteku/internal/mcpserver"
	"github.com/starford/noteku/internal/noteservice"
	"github.com/starford/noteku/internal/repository"
	"github.com/starford/noteku/internal/sse"
	"github.com/starford/noteku/internal/theme"
	"github.com/starford/noteku/internal/watch"
)

// runtime holds the components shared by the HTTP and MCP entry points.
type runtime struct {
	logger *slog.Logger
	store  kv.Store
	svc    *noteservice.Service
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOut: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// setup installs the logger and opens the store behind a note service.
func (a *application) setup(ctx context.Context, svcOpts ...noteservice.Option) (*runtime, error) {
	cfg := a.config

	logger := slog.New(slog.NewJSONHandler(a.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("store_key", cfg.Store.Key),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := kv.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	repo := repository.NewBlob(store,
		repository.WithKey(cfg.Store.Key),
		repository.WithLogger(logger))

	svcOpts = append([]noteservice.Option{
		noteservice.WithDefaultTheme(theme.ParseMode(cfg.Theme.Mode)),
		noteservice.WithLogger(logger),
	}, svcOpts...)

	return &runtime{
		logger: logger,
		store:  store,
		svc:    noteservice.NewService(repo, svcOpts...),
	}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	broker := sse.NewBroker(cfg.Events.Throttle, sse.WithHeartbeat(30*time.Second))
	defer broker.Close()

	rt, err := app.setup(ctx, noteservice.WithChangeHook(broker.PublishNoteEvent))
	if err != nil {
		return err
	}
	defer rt.store.Close()
	logger := rt.logger

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := rt.store.Get(req.Context(), cfg.Store.Key); err != nil && !errors.Is(err, kv.ErrNotExist) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Changes made by other processes only show up through the file backend.
	if fs, ok := rt.store.(*kv.File); ok {
		w := watch.New(fs.PathFor(cfg.Store.Key), broker.PublishCollectionChanged, watch.WithLogger(logger))
		fs.OnSet(func(key string, value []byte) {
			if key == cfg.Store.Key {
				w.Expect(value)
			}
		})
		g.Go(func() error {
			if err := w.Run(gCtx); err != nil {
				logger.Warn("watch: disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		// Close SSE streams first so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.setup(ctx)
	if err != nil {
		return err
	}
	defer rt.store.Close()

	rt.logger.Info("Starting MCP server", slog.String("transport", "stdio"))
	if err := mcpserver.New(rt.svc, app.version).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
