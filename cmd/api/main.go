package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"attendance/internal/attendance"
	"attendance/internal/audit"
	"attendance/internal/config"
	"attendance/internal/handler"
	"attendance/internal/httpmiddleware"
	"attendance/internal/logging"
	"attendance/internal/metrics"
	"attendance/internal/project"
	"attendance/internal/queue"
	"attendance/internal/scheduler"
	"attendance/internal/spreadsheet"
	"attendance/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.LogFatal(logrus.StandardLogger(), "load config", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logging.LogFatal(logger, "server failed", err)
	}
}

func run(cfg config.App, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	paths := store.NewPaths(cfg.DataDir)
	if err := paths.Ensure(); err != nil {
		return err
	}

	var redisClient *store.Redis
	if cfg.UsesRedis() {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		if err := redisClient.WaitReady(ctx, 5, time.Second); err != nil {
			logger.Warnf("%v, continuing; requests needing redis will fail until it is up", err)
		}
	}

	var locker store.Locker = store.NewKeyedMutex()
	if cfg.LockBackend == "redis" {
		locker = store.NewRedisLocker(redisClient.Client, "", 0)
	}

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	var q queue.Queue
	switch cfg.QueueBackend {
	case "memory":
		mem := queue.NewInMemory(256)
		q = mem
		go func() {
			if _, err := audit.NewConsumer(mem, m, logger).Run(ctx); err != nil {
				logging.LogError(logger, "event consumer stopped", err)
			}
		}()
	case "redis":
		q = queue.NewRedisQueue(redisClient.Client, "")
	default:
		q = queue.Nop{}
	}

	projects := project.NewRepository(paths, locker)
	sheets := spreadsheet.NewStore(paths, locker)
	entries := attendance.NewService(attendance.NewRepository(paths, locker), sheets)

	if cfg.DailyProjectEnabled {
		daily := scheduler.NewDaily(projects, entries, cfg.DailyCutoffHour, logger)
		daily.OnCreate = func(ctx context.Context, p project.Project) {
			publishCreated(ctx, q, p, logger)
		}
		if _, err := daily.Run(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("shutdown before daily project was created")
				return nil
			}
			return err
		}
	}

	h := handler.New(handler.Options{
		Projects:    projects,
		Attendance:  entries,
		Sheets:      sheets,
		Paths:       paths,
		Queue:       q,
		Redis:       redisClient,
		Metrics:     m,
		Logger:      logger,
		MaxUploadMB: cfg.MaxUploadMB,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
		Output:    logger.Writer(),
	}))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin).GinMiddleware("/healthz", "/metrics"))
	r.Use(m.Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting server on :%s (data dir %s)", cfg.HTTPPort, cfg.DataDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(logger, "server forced shutdown", err)
	}

	logger.Info("server exited")
	return nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func publishCreated(ctx context.Context, q queue.Queue, p project.Project, logger logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg := queue.Message{Type: queue.ProjectCreated, ProjectID: p.ID, At: time.Now().UTC()}
	if err := q.Publish(ctx, msg); err != nil {
		logger.Warnf("queue publish %s failed: %v", msg.Type, err)
	}
}
