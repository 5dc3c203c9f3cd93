package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"travelbook/internal/api"
	"travelbook/internal/auth"
	"travelbook/internal/broker"
	"travelbook/internal/config"
	"travelbook/internal/database"
	"travelbook/internal/domain"
	"travelbook/internal/events"
	"travelbook/internal/export"
	"travelbook/internal/google"
	"travelbook/internal/logging"
	"travelbook/internal/metrics"
	"travelbook/internal/receipt"
	"travelbook/internal/repository"
	"travelbook/internal/service"
	"travelbook/internal/storage"
	"travelbook/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database, &logger)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Database.Driver).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	state := initStateRepository(cfg, redisClient, &logger)

	photos, err := storage.NewPhotoStore(cfg.Storage)
	if err != nil {
		return err
	}

	eventBus := events.NewEventBus(&logger)
	if sink := initKafka(cfg, eventBus, &logger); sink != nil {
		defer sink.Close()
	}
	initTelegram(cfg, eventBus, &logger)

	sheetsWorker := initSheetsWorker(ctx, cfg, db, redisClient, &logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	svc := api.Services{
		Users:     service.NewUserService(db, state, tokens, photos, eventBus, cfg.Auth, &logger),
		Catalog:   service.NewCatalogService(db, photos, eventBus, &logger),
		Cart:      service.NewCartService(state, db, cfg.Cart.MaxItems, &logger),
		Bookings:  service.NewBookingService(db, state, eventBus, sheetsWorker, receipt.NewRenderer(cfg.Receipt), &logger),
		Exporter:  export.NewExporter(cfg.Exports.Path, &logger),
		Photos:    photos,
		SyncTasks: db,
		Ready: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("database: %w", err)
			}
			if redisClient != nil {
				if err := repository.Ping(ctx, redisClient); err != nil {
					return fmt.Errorf("redis: %w", err)
				}
			}
			return nil
		},
	}

	if err := svc.Users.EnsureBootstrapAdmin(ctx); err != nil {
		logger.Error().Err(err).Msg("bootstrap admin")
		return err
	}

	go database.NewBackupService(db, cfg.Backup, &logger).Start(ctx)

	startMetrics(ctx, cfg, &logger)

	httpServer := api.NewHTTPServer(cfg.API, svc, &logger)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.API, svc.Catalog, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initStateRepository держит корзины и сессии в Redis с откатом в память.
func initStateRepository(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.StateRepository {
	memory := repository.NewMemoryStateRepository(cfg.Cart.TTL)
	if redisClient == nil {
		logger.Warn().Msg("carts and sessions are kept in memory")
		return memory
	}
	primary := repository.NewRedisStateRepository(redisClient, cfg.Cart.TTL)
	return repository.NewFailoverStateRepository(primary, memory, logger)
}

func initKafka(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) *broker.KafkaSink {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil
	}
	sink := broker.NewKafkaSink(broker.NewKafkaWriter(cfg.Kafka), logger)
	sink.Attach(bus, true)
	logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka event sink enabled")
	return sink
}

func initTelegram(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Telegram.BotToken == "" {
		return
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without admin notifications")
		return
	}
	bot.Debug = cfg.Telegram.Debug

	service.NewNotificationService(bot, cfg.Telegram.AdminChatID, logger).Attach(bus, true)
	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram notifications enabled")
}

// initSheetsWorker returns an untyped nil when the ledger is not configured so
// the booking service skips the sync step.
func initSheetsWorker(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) domain.SyncWorker {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}

	testCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sheetsService.TestConnection(testCtx); err != nil {
		// задачи останутся в очереди до восстановления доступа
		logger.Warn().Err(err).Msg("google sheets is unreachable, sync tasks will be retried")
	} else if err := sheetsService.EnsureHeader(testCtx); err != nil {
		logger.Warn().Err(err).Msg("google sheets header check failed")
	}
	sheetsService.Start(ctx)

	sheetsWorker := worker.NewSheetsWorker(db, sheetsService, redisClient, worker.PolicyFromConfig(cfg.Google.Worker), logger)
	go sheetsWorker.Start(ctx)

	logger.Info().Str("spreadsheet", cfg.Google.BookingSpreadSheetID).Msg("google sheets sync enabled")
	return sheetsWorker
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	errCh := make(chan error, 2)

	if grpcServer != nil {
		go func() {
			if err := grpcServer.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	logger.Info().
		Int("http_port", cfg.API.HTTP.Port).
		Bool("grpc_enabled", grpcServer != nil).
		Msg("API server started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return runErr
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
