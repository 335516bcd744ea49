package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/photka-support-ai/internal/api/router"
	"github.com/wolfman30/photka-support-ai/internal/app/bootstrap"
	"github.com/wolfman30/photka-support-ai/internal/bookings"
	appconfig "github.com/wolfman30/photka-support-ai/internal/config"
	"github.com/wolfman30/photka-support-ai/internal/conversation"
	"github.com/wolfman30/photka-support-ai/internal/events"
	"github.com/wolfman30/photka-support-ai/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/photka-support-ai/internal/http/middleware"
	"github.com/wolfman30/photka-support-ai/internal/observability/metrics"
	"github.com/wolfman30/photka-support-ai/internal/webchat"
	"github.com/wolfman30/photka-support-ai/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting photka support API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Create HTTP server
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     app.handler,
		ReadTimeout: 15 * time.Second,
		// Completions can take several retries; the websocket sets its own deadlines.
		WriteTimeout: 2*cfg.CompletionTimeout*time.Duration(cfg.CompletionMaxRetries+1) + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type app struct {
	handler http.Handler
	manager *conversation.Manager
	unread  *events.UnreadCounter
}

// buildApp wires every collaborator and starts the background loops on ctx.
func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, func(), error) {
	metricsHandler, chatMetrics := setupMetrics()

	client, closeClient, err := bootstrap.BuildCompletionClient(ctx, cfg, chatMetrics, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanups := []func(){closeClient}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		cleanups = append(cleanups, func() { _ = redisClient.Close() })
	}
	bus := bootstrap.BuildEventBus(redisClient, logger)

	unread := events.NewUnreadCounter(bus, logger)
	go unread.Run(ctx)

	pool := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	var bookingRepo *bookings.Repository
	if pool != nil {
		cleanups = append(cleanups, pool.Close)
		bookingRepo = bookings.NewRepository(pool)
		go events.NewDeliverer(events.NewOutboxStore(pool), bus, logger).Start(ctx)
	} else {
		logger.Warn("DATABASE_URL not set or unreachable; booking actions will only redirect")
	}
	bookingService := bookings.NewService(bookingRepo, logger)

	opts := conversation.DefaultOptions()
	opts.HistoryWindow = cfg.HistoryWindow
	opts.MaxTokens = int32(cfg.CompletionMaxTokens)
	opts.Temperature = float32(cfg.CompletionTemperature)
	manager := conversation.NewManager(conversation.ManagerConfig{
		Client:     client,
		Options:    opts,
		Transcript: bootstrap.BuildTranscriptStore(redisClient, cfg),
		Bus:        bus,
		Metrics:    chatMetrics,
		Logger:     logger,
	})

	wsHandler := webchat.NewHandler(manager, logger)
	go webchat.NewRelay(wsHandler, bus).Run(ctx)

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(ctx, 5*time.Minute, 10*time.Minute)

	checks := map[string]handlers.HealthCheck{}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}

	if cfg.AuthJWTSecret == "" {
		logger.Warn("AUTH_JWT_SECRET not set; support endpoints will reject every request")
	}

	handler := router.New(&router.Config{
		Logger:             logger,
		HealthHandler:      handlers.NewHealthHandler(checks),
		SupportChat:        conversation.NewHandler(manager, bookingService, bus, logger),
		WebChat:            wsHandler,
		Unread:             handlers.NewUnreadHandler(unread, bus, logger),
		MetricsHandler:     metricsHandler,
		RateLimiter:        limiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AuthJWTSecret:      cfg.AuthJWTSecret,
	})

	return &app{handler: handler, manager: manager, unread: unread}, cleanup, nil
}

func setupMetrics() (http.Handler, *metrics.ChatMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	chatMetrics := metrics.NewChatMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), chatMetrics
}
