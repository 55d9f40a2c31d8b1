package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/cvtracker/internal/cv/config"
	"github.com/gartstein/cvtracker/internal/cv/controller"
	"github.com/gartstein/cvtracker/internal/cv/db"
	"github.com/gartstein/cvtracker/internal/cv/events"
	"github.com/gartstein/cvtracker/internal/cv/handlers"
	"github.com/gartstein/cvtracker/internal/cv/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := db.NewRepository(ctx, cfg.Store(), logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}()

	producer, closeProducer := initProducer(cfg.Kafka, logger)
	defer closeProducer()

	admission := queue.New(logger)
	defer admission.Close()

	cvSvc := controller.NewCVService(repo, admission, producer, cfg.CV.CooldownDays, logger)

	cvHandler, err := handlers.NewCVHandler(cvSvc, logger)
	if err != nil {
		logger.Fatal("failed to create handlers", zap.Error(err))
	}
	server := handlers.NewServer(
		cfg.HTTP.Port,
		cvHandler.Routes(cfg.HTTP.BasePath, cfg.HTTP.CORSOrigins),
		logger,
		cfg.HTTP.ShutdownTimeout,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		server.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		return
	}
	logger.Info("Server stopped properly")
}

// initLogger builds a production or development zap logger at the configured level.
func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	return zcfg.Build()
}

// initProducer connects to Kafka when enabled. Events are dropped otherwise.
func initProducer(cfg config.KafkaConfig, logger *zap.Logger) (controller.EventProducer, func()) {
	if !cfg.Enabled {
		logger.Info("Kafka disabled, domain events will not be published")
		return events.NopProducer{}, func() {}
	}
	producer, err := events.NewProducer(cfg.Brokers, logger, cfg.Topic)
	if err != nil {
		logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
	}
	return producer, producer.Close
}
