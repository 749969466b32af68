// cmd/pipeline-service/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"hiring-pipeline/internal/audit"
	commonaws "hiring-pipeline/internal/common/aws"
	"hiring-pipeline/internal/common/config"
	"hiring-pipeline/internal/common/database"
	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/common/observability"
	"hiring-pipeline/internal/notify"
	"hiring-pipeline/internal/pipeline/bulkreject"
	"hiring-pipeline/internal/pipeline/planner"
	"hiring-pipeline/internal/pipeline/stages"
	"hiring-pipeline/internal/pipeline/terminal"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting pipeline service...",
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Postgres with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return pg.Ping(pingCtx)
	}, 10, 2*time.Second, zapLog, "Postgres initialization")
	if err != nil {
		zapLog.Fatal("postgres unavailable", zap.Error(err))
	}
	defer pg.Close()

	// --- Redis (stage-config cache); degraded mode without it ---
	var stageCache *stages.Cache
	redisClient, err := database.NewRedis(cfg.Database.Redis)
	if err == nil {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = redisClient.Ping(pingCtx)
		cancel()
	}
	if err != nil {
		zapLog.Warn("redis unavailable, stage cache disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		ttl := time.Duration(cfg.Pipeline.StageCacheTTLSeconds) * time.Second
		stageCache = stages.NewCache(redisClient.GetClient(), ttl, log)
	}

	// --- Notification side channel ---
	var dispatcher *notify.Dispatcher
	if cfg.Notifications.Email.Enabled {
		sesClient, err := commonaws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Warn("SES client init failed, rejection emails disabled", zap.Error(err))
		} else {
			var smsSender notify.SMSSender
			if cfg.Notifications.SMS.Enabled {
				snsClient, err := commonaws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
				if err != nil {
					zapLog.Warn("SNS client init failed, sms disabled", zap.Error(err))
				} else {
					smsSender = snsClient
				}
			}
			dispatcher = notify.NewDispatcher(sesClient, smsSender, cfg.Notifications.Email.FromEmail, log)
		}
	}

	// --- Engine wiring ---
	auditRecorder := audit.NewAsyncRecorder(audit.NewPostgresSink(pg.GetDB()), log)
	registry := stages.NewRegistry(pg.GetDB(), stageCache, log)
	transitionPlanner := planner.New(pg.GetDB(), registry, obs, log)

	var notifier bulkreject.Notifier
	if dispatcher != nil {
		notifier = dispatcher
	}
	rejector := bulkreject.NewExecutor(pg.GetDB(), auditRecorder, notifier, log)
	terminalManager := terminal.NewManager(pg.GetDB(), auditRecorder, rejector, log)

	// The API layer (out of scope here) mounts these; keep them referenced.
	_ = transitionPlanner
	_ = terminalManager

	// --- Metrics/health listener ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pg.Ping(pingCtx); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{Addr: cfg.Metrics.Address, Handler: mux}
	go func() {
		zapLog.Info("metrics listener started", zap.String("address", cfg.Metrics.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("metrics listener failed", zap.Error(err))
		}
	}()

	// --- Wait for shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	zapLog.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// Drain the fire-and-forget side channels before closing connections.
	auditRecorder.Wait()
	if dispatcher != nil {
		dispatcher.Wait()
	}

	zapLog.Info("pipeline service stopped")
}
