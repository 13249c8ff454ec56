package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edocument-exchange/internal/api_gateway"
	"github.com/edocument-exchange/internal/api_gateway/service"
	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/data/mongo"
	"github.com/edocument-exchange/internal/data/postgres"
	"github.com/edocument-exchange/internal/edocument_processor/aggregator"
	"github.com/edocument-exchange/internal/logger"
	"github.com/edocument-exchange/internal/platform/messaging/producers"
	"github.com/edocument-exchange/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		postgresDB.Close()
		os.Exit(1)
	}

	// Submission requests go to the processor through the request topic
	kafkaProducer, err := producers.NewRequestProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize API Gateway Kafka producer", "error", err)
		os.Exit(1)
	}

	recordRepo := postgres.NewRecordRepository(log, postgresDB)
	flowRepo := postgres.NewFlowRepository(log, postgresDB)
	documentRepo := postgres.NewDocumentRepository(log, postgresDB)
	companyRepo := postgres.NewCompanyRepository(log, postgresDB)
	qrisRepo := postgres.NewQRISRepository(log, postgresDB)
	noteRepo := mongo.NewNoteRepository(log, mongoDB.Database())
	attachmentRepo := mongo.NewAttachmentRepository(log, mongoDB.Database())

	// On-demand flow synchronization runs in the gateway process
	flowAggregator := aggregator.NewAggregator(
		log.With("component", "aggregator"),
		postgresDB,
		recordRepo,
		flowRepo,
		companyRepo,
		cfg.Aggregator,
	)

	server := api_gateway.NewServer(log, cfg, api_gateway.Services{
		Records:     service.NewRecordService(log, recordRepo, noteRepo, qrisRepo),
		Submissions: service.NewSubmissionService(log, kafkaProducer),
		Documents:   service.NewDocumentService(log, documentRepo, attachmentRepo),
		Flows:       service.NewFlowService(log, flowRepo, flowAggregator),
		Companies:   service.NewCompanyService(log, companyRepo),
	})
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the stores go away
	var shutdownErr error
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
		shutdownErr = err
	}

	if err := kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
		shutdownErr = err
	}

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	postgresDB.Close()

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
		os.Exit(1)
	}
	if shutdownErr != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
