package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tphummel/hwreq/internal/catalog"
	"github.com/tphummel/hwreq/internal/db"
	"github.com/tphummel/hwreq/internal/handlers"
	"github.com/tphummel/hwreq/internal/metrics"
	"github.com/tphummel/hwreq/internal/middleware"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

type config struct {
	token       string
	dbPath      string
	port        string
	catalogPath string
	logLevel    slog.Level
}

// loadConfig reads service configuration from environment variables and
// applies defaults. It returns an error when a required variable is absent
// or a value cannot be parsed.
func loadConfig() (config, error) {
	cfg := config{
		token:       os.Getenv("API_TOKEN"),
		dbPath:      os.Getenv("DB_PATH"),
		port:        os.Getenv("PORT"),
		catalogPath: os.Getenv("CATALOG_PATH"),
	}
	if cfg.token == "" {
		return config{}, fmt.Errorf("API_TOKEN environment variable is required")
	}
	if cfg.dbPath == "" {
		cfg.dbPath = "./hwreq.db"
	}
	if cfg.port == "" {
		cfg.port = "8080"
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if err := cfg.logLevel.UnmarshalText([]byte(strings.ToUpper(lvl))); err != nil {
			return config{}, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	return cfg, nil
}

// loadCatalog returns the catalog at path, or the built-in one when path is
// empty.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

// newMux registers every route, wrapping each in metrics and, where needed,
// Bearer auth.
func newMux(h *handlers.Handler, token string) *http.ServeMux {
	mux := http.NewServeMux()

	// Prometheus metrics — no auth
	mux.Handle("GET /metrics", metrics.Handler())

	for _, rt := range h.Routes() {
		var next http.Handler = rt.Handler
		if rt.Auth {
			next = middleware.Auth(token, next)
		}
		mux.Handle(rt.Pattern, metrics.Middleware(rt.Pattern, next))
	}
	return mux
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.logLevel})))

	cat, err := loadCatalog(cfg.catalogPath)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	database, err := db.New(cfg.dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	metrics.Register(database)

	h := &handlers.Handler{DB: database, Catalog: cat, Version: version, Commit: commit}

	skip := func(r *http.Request) bool {
		return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
	}
	handler := middleware.RequestLogger(slog.Default(), skip, newMux(h, cfg.token))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("listening", "port", cfg.port, "version", version, "categories", len(cat.Categories()))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}
	slog.Info("server stopped")
}
