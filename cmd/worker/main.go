package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bidmarket/notifier/configs"
	"github.com/bidmarket/notifier/internal/app/registry"
	"github.com/bidmarket/notifier/internal/catalog"
	"github.com/bidmarket/notifier/internal/composer"
	"github.com/bidmarket/notifier/internal/domain/port/store"
	"github.com/bidmarket/notifier/internal/infrastructure/broker"
	"github.com/bidmarket/notifier/internal/infrastructure/channel/email"
	"github.com/bidmarket/notifier/internal/infrastructure/channel/push"
	"github.com/bidmarket/notifier/internal/infrastructure/channel/sms"
	"github.com/bidmarket/notifier/internal/infrastructure/store/postgres"
	"github.com/bidmarket/notifier/internal/infrastructure/store/rediscache"
	"github.com/bidmarket/notifier/internal/observability/metrics"
	"github.com/bidmarket/notifier/internal/observability/tracing"
	"github.com/bidmarket/notifier/internal/usecases/bulkemail"
	"github.com/bidmarket/notifier/internal/usecases/dispatch"
	"github.com/bidmarket/notifier/internal/usecases/recipient"
	"github.com/bidmarket/notifier/internal/worker"
	"github.com/bidmarket/notifier/pkg/logger"
)

func main() {
	if err := logger.InitializeLogger(false); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			log.Printf("Error syncing logger: %v", err)
		}
	}()

	logger.L().Info("Starting notifier worker...")

	cfg, err := configs.NewConfig(".")
	if err != nil {
		logger.L().Fatal("Failed to load configuration", zap.Error(err))
	}
	logger.L().Info("Configuration loaded",
		zap.Strings("kafkaBrokers", cfg.KafkaBrokers),
		zap.String("kafkaTopic", cfg.KafkaTopic),
		zap.String("kafkaGroupID", cfg.KafkaGroupID),
		zap.String("metricsServerAddress", cfg.MetricsServerAddress),
		zap.Int("workerPoolSize", cfg.WorkerPoolSize),
	)

	tracerShutdown, err := tracing.InitTracer(cfg)
	if err != nil {
		logger.L().Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerShutdown(shutdownCtx); err != nil {
			logger.L().Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// --- Metrics server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.MetricsHandler())
	metricsServer := &http.Server{
		Addr:    cfg.MetricsServerAddress,
		Handler: metricsMux,
	}
	go func() {
		logger.L().Info("Starting metrics server", zap.String("address", cfg.MetricsServerAddress))
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.L().Error("Metrics server ListenAndServe failed", zap.Error(err))
		}
	}()

	// --- Stores ---
	db, err := postgres.Open(cfg.DatabaseURL, postgres.DefaultConnectionConfig())
	if err != nil {
		logger.L().Fatal("Failed to open database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.L().Error("Error closing database", zap.Error(err))
		}
	}()

	var categories store.CategoryStore = postgres.NewCategoryStore(db)
	if cfg.RedisAddr != "" {
		redisClient, err := rediscache.NewClient(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.L().Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.L().Error("Error closing Redis client", zap.Error(err))
			}
		}()
		ttl := time.Duration(cfg.CategoryCacheTTLSec) * time.Second
		categories = rediscache.NewCategoryStore(categories, redisClient, ttl)
		logger.L().Info("Category cache enabled",
			zap.String("redisAddr", cfg.RedisAddr),
			zap.Duration("ttl", ttl),
		)
	}
	choices := postgres.NewChoiceStore(db)
	recipients := postgres.NewRecipientStore(db)
	inbox := postgres.NewInboxStore(db)

	// --- Channel senders ---
	emailSender, err := email.NewSMTPSender(cfg)
	if err != nil {
		logger.L().Fatal("Failed to initialize email sender", zap.Error(err))
	}
	pushSender := push.NewSender(
		push.NewLogGateway("multicast"),
		push.NewLogGateway("direct"),
		cfg.PushChunkSize,
	)
	smsSender := sms.NewSender(
		sms.NewLogCarrier("domestic"),
		sms.NewLogCarrier("international"),
		cfg.DefaultCallingCode,
	)

	// --- Message catalog ---
	messageCatalog := catalog.Default()
	if err := messageCatalog.Validate(); err != nil {
		logger.L().Fatal("Message catalog validation failed", zap.Error(err))
	}

	// --- Kafka broker ---
	messageBroker, err := broker.NewKafkaBroker(broker.Config{Brokers: cfg.KafkaBrokers})
	if err != nil {
		logger.L().Fatal("Failed to initialize Kafka broker", zap.Error(err))
	}
	defer func() {
		logger.L().Info("Attempting to close Kafka broker...")
		if err := messageBroker.Close(); err != nil {
			logger.L().Error("Error closing kafka broker", zap.Error(err))
		}
	}()

	// --- Use cases and handlers ---
	resolver := recipient.NewResolver(recipients, choices)
	orchestrator := dispatch.NewOrchestrator(
		categories, resolver, inbox,
		emailSender, pushSender, smsSender,
		dispatch.Options{
			SMSEnabled:         cfg.IsProduction(),
			ResolveParallelism: cfg.ResolveParallelism,
		},
	)
	batcher := bulkemail.NewBatcher(orchestrator, cfg.BulkEmailChunkSize)

	reg := registry.NewQueueRegistry()
	comp := composer.New(orchestrator, batcher, messageCatalog)
	if err := comp.RegisterAll(reg); err != nil {
		logger.L().Fatal("Failed to register job handlers", zap.Error(err))
	}
	logger.L().Info("Job handlers registered", zap.Strings("queues", reg.Queues()))

	// --- Graceful shutdown setup ---
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	semaphore := make(chan struct{}, cfg.WorkerPoolSize)
	consumer := worker.NewConsumer(
		messageBroker, reg,
		cfg.MaxRetries,
		time.Duration(cfg.BackoffBaseDelay)*time.Millisecond,
		semaphore,
	)

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Run(ctx); err != nil {
			logger.L().Error("Worker consumer exited with error", zap.Error(err))
		} else {
			logger.L().Info("Worker consumer exited cleanly.")
		}
	}()

	sig := <-sigChan
	logger.L().Info("Received signal, shutting down gracefully...", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	logger.L().Info("Shutting down metrics server...")
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("Metrics server shutdown error", zap.Error(err))
	}

	cancel()
	logger.L().Info("Waiting for worker consumer to stop...")
	<-consumerDone
	logger.L().Info("Notifier worker shut down complete.")
}
