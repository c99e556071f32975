package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"dustbinpro/internal/api"
	"dustbinpro/internal/config"
	"dustbinpro/internal/database"
	"dustbinpro/internal/domain"
	"dustbinpro/internal/events"
	"dustbinpro/internal/google"
	"dustbinpro/internal/kafka"
	"dustbinpro/internal/logging"
	"dustbinpro/internal/metrics"
	"dustbinpro/internal/notify"
	"dustbinpro/internal/outbox"
	"dustbinpro/internal/repository"
	"dustbinpro/internal/service"
	"dustbinpro/internal/session"
	"dustbinpro/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the customer portal",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, closer, err := loadConfigAndLogger("portal-main")
	if err != nil {
		return err
	}
	defer closeQuietly(closer)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(ctx, cfg.Store.URI, cfg.Store.Database, cfg.Store.Timeout, logging.Component(logger, "store"))
	if err != nil {
		logger.Error().Err(err).Msg("init document store")
		return err
	}
	defer func() { _ = db.Close(context.Background()) }()

	if err := db.EnsureIndexes(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure indexes failed, continuing")
	}

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	memorySessions := repository.NewMemorySessionStore(cfg.Session.TTL)
	var sessionStore domain.SessionStore = memorySessions
	if redisClient != nil {
		sessionStore = repository.NewFailoverSessionStore(
			repository.NewRedisSessionStore(redisClient, cfg.Session.TTL),
			memorySessions,
			logging.Component(logger, "sessions"),
		)
	}
	sessions := session.NewManager(sessionStore, cfg.Session, logging.Component(logger, "sessions"))

	bus := events.NewEventBus()
	bus.OnError(func(e *events.Event, err error) {
		logger.Error().Err(err).Str("event", e.Type).Msg("event handler failed")
	})

	svc := buildServices(cfg, db, bus, logger)

	tasks, err := outbox.Open(cfg.Outbox.Path, logging.Component(logger, "outbox"))
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.Outbox.Path).Msg("open outbox")
		return err
	}
	defer func() { _ = tasks.Close() }()

	noticeWorker := worker.NewNoticeWorker(tasks, buildSinks(ctx, cfg, logger), redisClient, worker.Options{
		Retry:        worker.RetryPolicy{MaxRetries: cfg.Outbox.MaxRetries},
		PollInterval: cfg.Outbox.Poll,
	}, logging.Component(logger, "notice-worker"))
	noticeWorker.Subscribe(bus)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logging.Component(logger, "kafka"))
	producer.Forward(bus)
	defer func() { _ = producer.Close() }()

	metrics.CountEvents(bus)
	startMetrics(ctx, cfg, logger)

	healthServer, err := api.NewHealthServer(cfg.Monitoring.HealthGRPCPort, db, logger)
	if err != nil {
		logger.Error().Err(err).Msg("create grpc health server")
		return err
	}

	httpServer, err := api.NewServer(cfg, svc, sessions, db, logging.Component(logger, "http"))
	if err != nil {
		logger.Error().Err(err).Msg("create http server")
		return err
	}

	go noticeWorker.Start(ctx)
	go watchOutbox(ctx, tasks, logger)
	go sweepSessions(ctx, memorySessions, cfg.Session.TTL)
	go healthServer.Watch(ctx)

	return startServers(ctx, healthServer, httpServer, cfg, logger)
}

func buildServices(cfg *config.Config, db *database.DB, bus *events.EventBus, logger *zerolog.Logger) api.Services {
	var locker domain.BookingLocker
	if cfg.Booking.ConflictGuard == config.GuardLock {
		locker = db
	}

	profiles := service.NewProfileService(db, logging.Component(logger, "profiles"))
	return api.Services{
		Bookings:      service.NewBookingService(db, locker, bus, logging.Component(logger, "bookings")),
		Stats:         service.NewStatsService(db),
		Notifications: service.NewNotificationService(db, cfg.Notifications.Limit, logging.Component(logger, "notifications")),
		Payments:      service.NewPaymentService(db, db, db, bus, logging.Component(logger, "payments")),
		Profiles:      profiles,
		Support:       service.NewSupportService(db, db, profiles, bus, logging.Component(logger, "support")),
	}
}

// buildSinks wires the configured outbound integrations. Unconfigured ones
// stay nil and their task types are never enqueued.
func buildSinks(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) worker.Sinks {
	var sinks worker.Sinks

	switch {
	case cfg.Mail.Host != "":
		mailer, err := notify.NewSMTPMailer(cfg.Mail, logging.Component(logger, "mail"))
		if err != nil {
			logger.Warn().Err(err).Msg("smtp mailer init failed, customer notices disabled")
			break
		}
		sinks.Mail = mailer
	case cfg.App.Environment == "development":
		sinks.Mail = notify.NewLogNotifier(logging.Component(logger, "mail"))
	}

	if cfg.Google.CredentialsFile != "" && cfg.Google.BookingSpreadSheetID != "" {
		mirror, err := google.NewSheetsMirror(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingSpreadSheetID, logging.Component(logger, "sheets"))
		if err != nil {
			logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		} else {
			if err := mirror.WarmUpCache(ctx); err != nil {
				logger.Warn().Err(err).Msg("sheets cache warm-up failed")
			}
			sinks.Sheets = mirror
			logger.Info().Msg("google sheets connected")
		}
	}

	if cfg.Telegram.BotToken != "" && cfg.Telegram.OpsChat != 0 {
		ops, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.OpsChat, logging.Component(logger, "telegram"))
		if err != nil {
			logger.Warn().Err(err).Msg("telegram init failed, ticket alerts disabled")
		} else {
			sinks.Ops = ops
		}
	}

	return sinks
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}
	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func watchOutbox(ctx context.Context, tasks *outbox.Store, logger *zerolog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		counts, err := tasks.Counts(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("count outbox tasks")
		} else {
			metrics.SetOutboxTasks(counts)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweepSessions(ctx context.Context, store *repository.MemorySessionStore, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			store.Sweep()
		}
	}
}

func startServers(ctx context.Context, healthServer *api.HealthServer, httpServer *api.Server, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if err := healthServer.Serve(); err != nil {
			logger.Error().Err(err).Msg("grpc health server stopped")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Str("grpc_addr", healthServer.Addr()).Int("http_port", cfg.HTTP.Port).Msg("portal started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		if runErr != nil {
			logger.Error().Err(runErr).Msg("http server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	healthServer.Shutdown(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("portal stopped")
	return runErr
}
