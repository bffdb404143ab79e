// Package app wires configuration, storage, the bot and the HTTP surfaces
// together and runs them until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/unibot-go/internal/bot"
	"github.com/garyellow/unibot-go/internal/buildinfo"
	"github.com/garyellow/unibot-go/internal/config"
	"github.com/garyellow/unibot-go/internal/genai"
	"github.com/garyellow/unibot-go/internal/logger"
	"github.com/garyellow/unibot-go/internal/metrics"
	"github.com/garyellow/unibot-go/internal/querylog"
	"github.com/garyellow/unibot-go/internal/ratelimit"
	"github.com/garyellow/unibot-go/internal/sentry"
	"github.com/garyellow/unibot-go/internal/storage"
	"github.com/garyellow/unibot-go/internal/webhook"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	db             *storage.DB
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	bot            *bot.Bot
	queryLog       *querylog.Writer
	chatLimiter    *ratelimit.ClientLimiter
	lineLimiter    *ratelimit.ClientLimiter // nil when LINE is disabled
	webhookHandler *webhook.Handler         // nil when LINE is disabled
	router         *gin.Engine
	server         *http.Server
	wg             sync.WaitGroup // background jobs
}

// Initialize creates and initializes a new application with all dependencies.
// A malformed knowledge base or a failed index build is returned as an error.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})
	log = log.WithField("service", "unibot").WithField("instance_id", cfg.InstanceID)

	// Package-level slog.*Context calls pick up session and request IDs
	// through the ContextHandler.
	slog.SetDefault(log.Logger)

	log.WithField("version", buildinfo.Get().Version).Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Get().Version,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed; error tracking disabled")
	} else if sentry.IsEnabled() {
		log.WithField("environment", cfg.SentryEnvironment).Info("Sentry error tracking enabled")
	}

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	sinks, err := querylog.OpenSinks(ctx, cfg, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	queryLog := querylog.NewWriter(sinks,
		querylog.WithFlushInterval(cfg.QueryLogFlushInterval),
		querylog.WithMetrics(m),
	)
	log.WithField("sinks", queryLog.Sinks()).Info("Query log enabled")

	closeEarly := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queryLog.Close(closeCtx)
		_ = db.Close()
	}

	encoder, err := genai.NewEncoder(ctx, cfg.Encoder, genai.WithObserver(
		func(p genai.Provider, status string, d time.Duration) {
			m.RecordEncoderRequest(p.String(), status, d.Seconds())
		}))
	if err != nil {
		closeEarly()
		return nil, fmt.Errorf("encoder: %w", err)
	}

	opts := bot.OptionsFromConfig(cfg)
	opts.Encoder = encoder
	opts.EmbeddingStore = db
	opts.QueryLog = queryLog
	opts.Metrics = m
	opts.Logger = log

	start := time.Now()
	b, err := bot.New(ctx, opts)
	if err != nil {
		closeEarly()
		return nil, err
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("Knowledge base indexed")

	app := &Application{
		cfg:         cfg,
		logger:      log,
		db:          db,
		metrics:     m,
		registry:    registry,
		bot:         b,
		queryLog:    queryLog,
		chatLimiter: newClientLimiter("chat", cfg, m),
	}

	if cfg.LineEnabled() {
		app.lineLimiter = newClientLimiter("line", cfg, m)
		app.webhookHandler, err = webhook.NewHandler(webhook.HandlerConfig{
			ChannelSecret: cfg.LineChannelSecret,
			ChannelToken:  cfg.LineChannelToken,
			Bot:           b,
			ChatLimiter:   app.lineLimiter,
			Metrics:       m,
			Logger:        log,
		})
		if err != nil {
			app.chatLimiter.Stop()
			app.lineLimiter.Stop()
			closeEarly()
			return nil, fmt.Errorf("webhook: %w", err)
		}
		log.Info("LINE webhook enabled")
	}

	app.router = app.newRouter()
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router,
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

func newClientLimiter(name string, cfg *config.Config, m *metrics.Metrics) *ratelimit.ClientLimiter {
	l := ratelimit.NewClientLimiter(ratelimit.ClientConfig{
		Name:          name,
		Burst:         cfg.ClientRateBurst,
		RefillRate:    cfg.ClientRateRefill,
		CleanupPeriod: config.RateLimiterCleanupInterval,
	})
	l.OnDrop(m.RecordRateLimiterDrop)
	return l
}

// newRouter registers every route. Middleware order matters: recovery is
// outermost so Sentry can re-panic into it.
func (a *Application) newRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sentrygin.New(sentrygin.Options{Repanic: true, Timeout: 2 * time.Second}))
	router.Use(securityHeadersMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.GET("/version", a.version)
	router.GET("/metrics",
		basicAuth("metrics", a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	v1.POST("/chat", a.chat)
	v1.POST("/sessions/:id/reset", a.resetSession)
	v1.POST("/feedback", a.feedback)

	if a.webhookHandler != nil {
		router.POST("/webhook", a.webhookHandler.Handle)
	}
	return router
}

// Handler returns the HTTP handler serving every route.
func (a *Application) Handler() http.Handler {
	return a.router
}

// Run starts the HTTP server and background jobs and blocks until ctx is
// canceled or the server fails.
//
// Shutdown order:
//  1. Cancel background jobs and wait for them
//  2. Stop accepting HTTP requests and drain in-flight ones
//  3. Drain LINE events, then flush the query log
//  4. Close the database, Sentry and the logger
func (a *Application) Run(ctx context.Context) error {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.startBackgroundJobs(jobCtx)

	serverErr := make(chan error, 1)
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	case err, ok := <-serverErr:
		if ok {
			a.logger.WithError(err).Error("HTTP server error")
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	cancel()
	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// startBackgroundJobs starts all background goroutines tracked by WaitGroup.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.bot.Run(ctx)
	})
}

// shutdown performs graceful shutdown of HTTP server and resources.
// It must run after background jobs have stopped.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
		errs = append(errs, err)
	}

	if a.webhookHandler != nil {
		a.logger.Info("Waiting for webhook events to complete...")
		if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
			a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
		}
	}

	a.close(shutdownCtx)
	return errors.Join(errs...)
}

// close releases everything Initialize opened.
func (a *Application) close(ctx context.Context) {
	a.logger.Info("Closing resources...")

	if err := a.queryLog.Close(ctx); err != nil {
		a.logger.WithError(err).WithField("component", "query_log").Error("Component close error")
	}

	a.chatLimiter.Stop()
	if a.lineLimiter != nil {
		a.lineLimiter.Stop()
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}

	if sentry.IsEnabled() {
		sentry.Flush(2 * time.Second)
	}

	a.logger.Info("Shutdown complete")
	if err := a.logger.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}
}
