package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/bidmarket/notifier/configs"
	"github.com/bidmarket/notifier/internal/infrastructure/broker"
	"github.com/bidmarket/notifier/internal/observability/metrics"
	"github.com/bidmarket/notifier/internal/observability/tracing"
	"github.com/bidmarket/notifier/internal/usecases/enqueue"
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

	cfg, err := configs.NewConfig(".")
	if err != nil {
		logger.L().Fatal("Failed to load config", zap.Error(err))
	}

	shutdown, err := tracing.InitTracer(cfg)
	if err != nil {
		logger.L().Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := shutdown(nil); err != nil {
			logger.L().Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	messageBroker, err := broker.NewKafkaBroker(broker.Config{Brokers: cfg.KafkaBrokers})
	if err != nil {
		logger.L().Fatal("Failed to initialize Kafka broker", zap.Error(err))
	}
	defer func() {
		if err := messageBroker.Close(); err != nil {
			logger.L().Error("Error closing kafka broker", zap.Error(err))
		}
	}()

	enqueueHandler := enqueue.NewEnqueueHandler(enqueue.NewEnqueueUseCase(messageBroker))

	srv := gin.Default()
	srv.Use(otelgin.Middleware(cfg.OtelServiceName))

	srv.Use(func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		if endpoint == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		metrics.HTTPRequestsTotal.WithLabelValues(endpoint, http.StatusText(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	})

	srv.POST("/jobs", enqueueHandler.Handle)
	srv.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))
	srv.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	logger.L().Info("Server starting", zap.String("address", ":8080"))
	if err := srv.Run(":8080"); err != nil {
		logger.L().Fatal("Failed to start server", zap.Error(err))
	}
}
