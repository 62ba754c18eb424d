// Package main is the entry point for the workspace generator server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"workspacegen/internal/ai"
	"workspacegen/internal/cache"
	"workspacegen/internal/config"
	"workspacegen/internal/database"
	"workspacegen/internal/export"
	"workspacegen/internal/generate"
	"workspacegen/internal/handlers"
	"workspacegen/internal/mcp"
	"workspacegen/internal/middleware"
	"workspacegen/internal/models"
	"workspacegen/internal/notion"
	"workspacegen/internal/router"
	"workspacegen/internal/storage"
	"workspacegen/internal/store"
	"workspacegen/internal/validation"
)

// toolTimeout bounds one JSON-RPC round trip to a tool server.
const toolTimeout = 20 * time.Second

func main() {
	// Load configuration from environment variables and .env.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"storage", cfg.StorageBackend,
	)

	if cfg.ThemePresetsFile != "" {
		if err := loadThemes(cfg.ThemePresetsFile); err != nil {
			slog.Error("failed to load theme presets", "error", err)
			os.Exit(1)
		}
	}

	templates, db, err := openTemplateStore(cfg)
	if err != nil {
		slog.Error("failed to open template store", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	// Seed development data (no-op if templates already exist).
	if cfg.IsDev() {
		if err := database.Seed(templates); err != nil {
			slog.Error("failed to seed templates", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey for the shared preview cache (optional).
	var previews *cache.PreviewCache
	if cfg.CacheEnabled() {
		valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer valkeyClient.Close()
		previews = cache.NewPreviewCache(valkeyClient, cache.DefaultPreviewTTL)
		slog.Info("preview cache connected", "host", cfg.ValkeyHost)
	} else {
		slog.Warn("valkey not configured, previews are cached in-process only")
	}

	// Connect to S3-compatible object storage (optional, enables publishing).
	var uploader export.Uploader
	storageClient, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if storageClient != nil {
		uploader = storageClient
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", storageClient.Bucket())
	} else {
		slog.Warn("s3 storage not configured, publishing disabled")
	}

	exporter, err := export.New(previews, uploader, export.DefaultCacheSize)
	if err != nil {
		slog.Error("failed to initialize exporter", "error", err)
		os.Exit(1)
	}

	notionClient := notion.NewClient(cfg.NotionToken, cfg.NotionBaseURL, cfg.NotionVersion)
	if notionClient == nil {
		slog.Warn("document service token not set, page creation disabled")
	}

	// Initialize the AI provider registry with all configured providers.
	providers := ai.NewRegistry(cfg.AIProvider, cfg.Providers)
	if _, err := providers.Active(); err != nil {
		if available := providers.Available(); len(available) > 0 {
			if err := providers.SetActive(available[0]); err != nil {
				slog.Error("failed to select ai provider", "error", err)
				os.Exit(1)
			}
		} else {
			slog.Warn("no ai provider has an api key, generation returns fallback templates")
		}
	}
	slog.Info("ai providers initialized",
		"active", providers.ActiveName(),
		"available", providers.Available(),
	)

	servers, err := mcp.OpenServerStore(cfg.DataDir)
	if err != nil {
		slog.Error("failed to open mcp server store", "error", err)
		os.Exit(1)
	}
	tools := mcp.NewRegistry(servers, mcp.HTTPDialer(toolTimeout))
	go discoverTools(tools, servers.List())

	orchestrator := generate.New(providers, tools, generate.WithMaxIterations(cfg.MaxToolIterations))

	api := handlers.New(handlers.Deps{
		Templates: templates,
		Generator: orchestrator,
		Providers: providers,
		Tools:     tools,
		Servers:   servers,
		Exporter:  exporter,
		Notion:    notionClient,
	})

	generateLimit := middleware.NewRateLimiter(cfg.GenerateRateLimit, time.Minute)
	defer generateLimit.Stop()

	r := router.New(api, generateLimit)

	// WriteTimeout must accommodate generation, which waits on the model
	// and on tool servers for up to MaxToolIterations rounds.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// openTemplateStore returns the configured template backend. The returned
// *sql.DB is nil for the file backend.
func openTemplateStore(cfg *config.Config) (store.TemplateStore, *sql.DB, error) {
	if cfg.StorageBackend != config.BackendPostgres {
		slog.Info("using file template store", "dir", cfg.DataDir)
		return store.NewFileTemplateStore(cfg.DataDir), nil, nil
	}

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	slog.Info("using postgres template store", "host", cfg.DBHost, "db", cfg.DBName)
	return store.NewPostgresTemplateStore(db), db, nil
}

// loadThemes registers the presets of a YAML file after validating them.
func loadThemes(path string) error {
	themes, err := models.LoadThemePresets(path)
	if err != nil {
		return err
	}
	for i := range themes {
		if errs := validation.CheckTheme(fmt.Sprintf("themes.%d", i), &themes[i]); len(errs) > 0 {
			return fmt.Errorf("invalid theme preset in %s: %v", path, errs)
		}
		models.RegisterThemePreset(themes[i])
	}
	slog.Info("theme presets loaded", "file", path, "count", len(themes))
	return nil
}

// discoverTools registers the tools of every active server. Unreachable
// servers are logged and can be discovered later through the API.
func discoverTools(tools *mcp.Registry, servers []models.MCPServer) {
	for _, s := range servers {
		if !s.Active {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), toolTimeout)
		if _, err := tools.Discover(ctx, s.ID); err != nil {
			slog.Warn("tool discovery failed", "server", s.ID, "error", err)
		}
		cancel()
	}
}
