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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"enrolldesk/internal/admission/handler"
	"enrolldesk/internal/admission/metrics"
	"enrolldesk/internal/admission/service"
	"enrolldesk/internal/admission/store"
	"enrolldesk/internal/audit"
	"enrolldesk/internal/auth"
	"enrolldesk/internal/notification"
	"enrolldesk/internal/platform/config"
	"enrolldesk/internal/platform/httpserver"
	"enrolldesk/internal/platform/logger"
	"enrolldesk/internal/platform/middleware/request"
	"enrolldesk/internal/platform/middleware/requesttime"
	"enrolldesk/internal/platform/postgres"
	"enrolldesk/internal/platform/redis"
)

// main wires dependencies and runs the server. Business logic lives in
// internal packages; everything here is construction and lifecycle.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recordStore, storeHealth, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	dispatcher, err := buildDispatcher(ctx, cfg, log)
	if err != nil {
		return err
	}

	sink, closeSink, err := buildAuditSink(cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()
	queue := audit.NewQueue(256)
	worker := audit.NewWorker(sink, queue.Inbox(), log)

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
		service.WithAuditPublisher(audit.NewPublisher(queue)),
		service.WithDispatchTimeout(cfg.DispatchTimeout),
	}
	if redisClient != nil {
		opts = append(opts, service.WithResendThrottle(
			notification.NewRedisThrottle(redisClient.Client, cfg.ResendCooldown)))
	}
	svc := service.New(recordStore, dispatcher, opts...)

	jwtService := auth.NewJWTService(cfg.JWTSigningKey, "enrolldesk")

	router := chi.NewRouter()
	router.Use(request.Middleware)
	router.Use(requesttime.Middleware)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", healthHandler(storeHealth, redisClient))
	handler.New(svc, jwtService, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := worker.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		log.Info("starting enrolldesk", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// buildStore picks Postgres when DATABASE_URL is set, the in-memory store
// otherwise. The returned health func backs /healthz.
func buildStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, func(context.Context) error, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store")
		noop := func(context.Context) error { return nil }
		return store.NewInMemory(), noop, nil
	}
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	// Schema statements are IF NOT EXISTS, so applying on boot is safe.
	if _, err := db.ExecContext(ctx, store.Schema); err != nil {
		return nil, nil, err
	}
	return store.NewPostgres(db), db.PingContext, nil
}

func buildDispatcher(ctx context.Context, cfg config.Config, log *slog.Logger) (notification.Dispatcher, error) {
	if cfg.SESRegion == "" {
		log.Warn("SES_REGION not set, using console dispatcher")
		return notification.NewConsole(log), nil
	}
	return notification.NewSES(ctx, cfg.SESRegion, cfg.EmailSender)
}

func buildAuditSink(cfg config.Config, log *slog.Logger) (audit.Store, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		log.Warn("KAFKA_BROKERS not set, keeping audit trail in memory")
		return audit.NewInMemory(), func() {}, nil
	}
	kafka, err := audit.NewKafka(cfg.KafkaBrokers, cfg.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	return kafka, kafka.Close, nil
}

func healthHandler(storeHealth func(context.Context) error, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := storeHealth(ctx); err != nil {
			http.Error(w, "store unreachable", http.StatusServiceUnavailable)
			return
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				http.Error(w, "redis unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
