package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"tecnomadas-portal/internal/cleanup"
	"tecnomadas-portal/internal/config"
	"tecnomadas-portal/internal/database"
	"tecnomadas-portal/internal/handlers"
	"tecnomadas-portal/internal/logging"
	"tecnomadas-portal/internal/media"
	"tecnomadas-portal/internal/modal"
	"tecnomadas-portal/internal/notify"
	"tecnomadas-portal/internal/ratelimit"
	"tecnomadas-portal/internal/scheduler"
	"tecnomadas-portal/internal/search"
	"tecnomadas-portal/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}

	// Load configuration
	configPath := config.GetEnv("CONFIG_PATH", "config/config.yaml")
	appConfig, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Warn("config file not loaded, using defaults", "path", configPath, "error", err)
		appConfig = config.DefaultConfig()
	}
	appConfig.ApplyEnv()

	logger := logging.New(appConfig.Logging, os.Stderr)
	slog.SetDefault(logger)
	if appConfig.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(appConfig.Database, logging.GormLevel(appConfig.Logging.Level))
	if err != nil {
		slog.Error("failed to connect to database", "type", appConfig.Database.Type, "error", err)
		os.Exit(1)
	}
	if err := database.InitSchema(db); err != nil {
		slog.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	store := database.NewGormDBFromDB(db,
		database.WithImageEncoder(media.NewProcessor(appConfig.Images)))
	defer store.Close()

	// Search is optional; without it the catalog still works from the database
	var indexer search.Indexer = search.Disabled{}
	if ms := appConfig.Search.Meilisearch; ms.Enabled {
		client := search.NewSearchClient(ms.Host, ms.APIKey, ms.Index)
		if err := client.InitIndex(); err != nil {
			slog.Warn("search index not initialized", "host", ms.Host, "error", err)
		}
		indexer = client
	}

	sessions, err := session.NewManager(appConfig.Admin)
	if err != nil {
		slog.Error("invalid admin configuration", "error", err)
		os.Exit(1)
	}
	cookies := session.NewCookieFactory([]byte(appConfig.Admin.TokenSecret), session.CookieConfig{
		Name:   appConfig.Admin.CookieName,
		Secure: appConfig.Admin.CookieSecure,
		MaxAge: int(sessions.TTL().Seconds()),
	})

	gateway := notify.NewGateway(notify.NewEmailJSClient(appConfig.Email), appConfig.Email)
	if status := gateway.Configured(); !status.IsConfigured {
		slog.Warn("email is not fully configured, notifications will be simulated",
			"missing_service_id", status.Missing.ServiceID,
			"missing_template_id", status.Missing.TemplateID,
			"missing_public_key", status.Missing.PublicKey)
	}

	limiter := ratelimit.NewRateLimiter(appConfig.RateLimit)
	slog.Info("inquiry rate limiter initialized",
		"per_minute", appConfig.RateLimit.RequestsPerMinute,
		"per_hour", appConfig.RateLimit.RequestsPerHour,
		"per_day", appConfig.RateLimit.RequestsPerDay,
		"enabled", appConfig.RateLimit.Enabled)

	appScheduler := scheduler.NewScheduler(appConfig.Scheduler, store, indexer, cleanup.NewService(store), limiter)
	if err := appScheduler.Start(); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer appScheduler.Stop()

	router := handlers.NewRouter(handlers.Deps{
		Config:    appConfig,
		Store:     store,
		Modals:    modal.NewManager(db),
		Sessions:  sessions,
		Cookies:   cookies,
		Indexer:   indexer,
		Reindexer: appScheduler,
		Gateway:   gateway,
		Limiter:   limiter,
	})

	server := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", appConfig.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}
