package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mahavihara/tutor/internal/ai"
	"github.com/mahavihara/tutor/internal/catalog"
	"github.com/mahavihara/tutor/internal/platform/cache"
	"github.com/mahavihara/tutor/internal/platform/config"
	"github.com/mahavihara/tutor/internal/platform/database"
	"github.com/mahavihara/tutor/internal/tutor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.Log)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		// catalog integrity failures are fatal at load, never at runtime
		slog.Error("failed to load catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}

	var store tutor.SessionStore
	var cacheClient *cache.Cache
	if cfg.Cache.URL != "" {
		cacheClient, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer cacheClient.Close()
		ttl := time.Duration(cfg.Session.TTLMinutes) * time.Minute
		store = tutor.NewRedisStore(cacheClient.Client, ttl)
		slog.Info("sessions stored in redis", "ttl", ttl)
	} else {
		store = tutor.NewMemoryStore()
		slog.Warn("no cache configured, sessions will not survive restarts")
	}

	var events tutor.EventLogger = tutor.NopEventLogger{}
	var db *database.DB
	if cfg.Database.URL != "" {
		db, err = database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		events = tutor.NewPostgresEventLogger(db.Pool)
	}

	orc := tutor.New(tutor.Config{
		Catalog:  cat,
		Store:    store,
		Events:   events,
		Renderer: buildRenderer(cfg),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      newMux(&server{orc: orc, db: db, cache: cacheClient}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "concepts", len(cat.Concepts))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogging(cfg config.LogConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// buildRenderer wires AI providers in fallback order. With no provider
// configured the renderer serves template prose.
func buildRenderer(cfg *config.Config) tutor.Renderer {
	router := ai.NewRouter()
	if key := cfg.AI.OpenAI.APIKey; key != "" {
		router.Register("openai", ai.NewOpenAIProvider(key))
	}
	if key := cfg.AI.Anthropic.APIKey; key != "" {
		provider, err := ai.NewAnthropicProvider(key)
		if err != nil {
			slog.Warn("skipping anthropic provider", "error", err)
		} else {
			router.Register("anthropic", provider)
		}
	}
	if key := cfg.AI.DeepSeek.APIKey; key != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(key))
	}
	if cfg.AI.Ollama.Enabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.AI.Ollama.URL))
	}
	if !router.HasProvider() {
		slog.Warn("no AI provider configured, responses will use template prose")
	}

	var budget ai.BudgetChecker
	if cfg.Session.TokenBudget > 0 {
		budget = ai.NewInMemoryBudget(cfg.Session.TokenBudget)
	}
	return ai.NewPromptRenderer(router, budget)
}
