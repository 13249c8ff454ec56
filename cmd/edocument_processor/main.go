package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/edocument_processor"
	"github.com/edocument-exchange/internal/edocument_processor/consumer"
	"github.com/edocument-exchange/internal/edocument_processor/outbox_poller"
	"github.com/edocument-exchange/internal/edocument_processor/service"
	"github.com/edocument-exchange/internal/logger"
	"github.com/edocument-exchange/internal/platform/messaging/consumers"
	"github.com/edocument-exchange/internal/platform/messaging/producers"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("edocument_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting E-Document Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	runtime, err := edocument_processor.NewRuntime(appCtx, log, cfg)
	if err != nil {
		log.Error("Failed to initialize runtime", "error", err)
		os.Exit(1)
	}

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// a typed nil would defeat the handler's nil check
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	eventProducer, err := producers.NewEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize event Kafka producer", "error", err)
		os.Exit(1)
	}

	submissionService := runtime.SubmissionService()
	submissionHandler := consumer.NewSubmissionHandler(log, submissionService, deadLetters)

	statusPoller, err := runtime.StatusPoller()
	if err != nil {
		log.Error("Failed to initialize status poller", "error", err)
		os.Exit(1)
	}

	eventPublisher := outbox_poller.NewEventPublisher(runtime.Repos.Outbox, eventProducer, log)
	outboxPoller := outbox_poller.NewPoller(&cfg.Outbox, runtime.Repos.Outbox, eventPublisher, log)

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.RequestTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, submissionHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		outboxPoller.Start(appCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		statusPoller.Start(appCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting flow aggregation", "interval", cfg.Aggregator.SyncInterval.String())
		runtime.Aggregator.Start(appCtx, cfg.Aggregator.SyncInterval)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	if pool, ok := submissionService.(*service.WorkerPoolSubmissionService); ok {
		pool.Shutdown()
	}
	statusPoller.Close()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if err := dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}
	if err := eventProducer.Close(); err != nil {
		log.Error("Error closing event Kafka producer", "error", err)
	}
	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	runtime.Close(shutdownCtx)

	if serviceErr != nil {
		log.Error("E-Document Processor shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("E-Document Processor shutdown completed successfully")
}
