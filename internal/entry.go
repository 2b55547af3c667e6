// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ladle/internal/api"
	"github.com/starford/ladle/internal/extract"
	"github.com/starford/ladle/internal/guide"
	"github.com/starford/ladle/internal/llm"
	"github.com/starford/ladle/internal/mcpserver"
	"github.com/starford/ladle/internal/mutation"
	"github.com/starford/ladle/internal/prompts"
	"github.com/starford/ladle/internal/recipeservice"
	"github.com/starford/ladle/internal/sse"
	"github.com/starford/ladle/internal/storage"
	"github.com/starford/ladle/internal/store"
)

// components are the pieces shared by the HTTP and MCP front ends.
type components struct {
	cfg     *Config
	logger  *slog.Logger
	db      *store.DB
	broker  *sse.Broker
	addenda *prompts.Registry
	media   *storage.FS
	svc     *recipeservice.Service
}

func (c *components) Close() {
	c.broker.Close()
	if err := c.db.Close(); err != nil {
		c.logger.Warn("closing database", slog.String("error", err.Error()))
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOut: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// build opens the database and wires the AI adapters into the recipe
// service.
func build(ctx context.Context, cfg *Config, logger *slog.Logger) (*components, error) {
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	var promptStore storage.Provider
	if cfg.Prompts.Dir != "" {
		fs, err := storage.NewFS(cfg.Prompts.Dir)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init prompts dir: %w", err)
		}
		promptStore = fs
	}
	addenda := prompts.NewRegistry(promptStore, logger)
	if n, err := addenda.Reload(); err != nil {
		logger.Warn("loading prompt addenda failed", slog.String("error", err.Error()))
	} else {
		logger.Info("prompt addenda loaded", slog.Int("files", n))
	}

	media, err := storage.NewFS(cfg.Media.Dir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init media dir: %w", err)
	}

	completer, err := llm.New(ctx, cfg.LLM.Options(), logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init llm: %w", err)
	}
	if completer == nil {
		logger.Warn("no language model configured; import, voice commands and guidance are unavailable")
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	extractor := extract.New(completer, db.ImportCache(), addenda, logger,
		extract.WithMaxContentChars(cfg.Import.MaxContentChars),
		extract.WithFlightTimeout(cfg.LLM.Options().Timeout),
		extract.WithCachedHook(func(key, url string) {
			broker.PublishLibraryEvent(sse.ImportCached, map[string]any{"key": key, "url": url})
		}),
	)

	svc := recipeservice.NewService(db,
		recipeservice.WithExtractor(extractor),
		recipeservice.WithMutation(mutation.New(completer, logger)),
		recipeservice.WithGuide(guide.New(completer, logger)),
		recipeservice.WithAddenda(addenda),
		recipeservice.WithPublisher(broker),
		recipeservice.WithLogger(logger),
	)

	return &components{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		broker:  broker,
		addenda: addenda,
		media:   media,
		svc:     svc,
	}, nil
}

// watchPrompts hot-reloads language addenda until ctx is done.
func (c *components) watchPrompts(ctx context.Context) error {
	if !c.cfg.Prompts.Watch || c.cfg.Prompts.Dir == "" {
		return nil
	}
	err := prompts.Watch(ctx, c.addenda, c.cfg.Prompts.Dir, c.logger, func(files int) {
		c.broker.PublishLibraryEvent(sse.PromptsReloaded, map[string]any{"files": files})
	})
	if err != nil {
		// A broken watcher must not take the API down with it.
		c.logger.Warn("prompts watcher stopped", slog.String("error", err.Error()))
	}
	return nil
}

// Router builds the full HTTP handler: health checks, the API under /api
// and photo files under /photos.
func (c *components) Router() http.Handler {
	photos := api.NewPhotoHandler(c.media.Root())
	apiRouter := api.NewRouter(c.svc, api.RouterOptions{
		AuthEnabled: c.cfg.Auth.AuthEnabled(),
		Token:       c.cfg.Auth.Token,
		Owner:       c.cfg.Auth.RecipeOwner(),
		SSE:         c.broker,
		Photos:      photos,
	})

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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := c.svc.Ready(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "capabilities": c.svc.Capabilities()})
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Photos are referenced from session records; their names are random.
	r.Get("/photos/{filename}", photos.ServeFile)

	return r
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(app.logOut, cfg.App.LogLevel)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.String("prompts_dir", cfg.Prompts.Dir),
		slog.String("media_dir", cfg.Media.Dir),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: c.Router(),
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start prompt addenda watcher with SSE callback.
	g.Go(func() error {
		return c.watchPrompts(gCtx)
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

		// Close SSE streams first so Shutdown is not held up by them.
		c.broker.Close()

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

// errShutdown cancels the errgroup context so the watcher stops with the
// server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(app.logOut, cfg.App.LogLevel)

	c, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = c.watchPrompts(ctx) }()

	srv := mcpserver.New(c.svc, mcpserver.Options{
		Owner:  cfg.Auth.RecipeOwner(),
		Media:  c.media,
		Logger: logger,
	})
	logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}
