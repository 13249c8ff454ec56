// Package edocument_processor assembles the processor's stores, government
// clients and pipeline stages from configuration. The processor binary and the
// command line tool share it.
package edocument_processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/data/mongo"
	"github.com/edocument-exchange/internal/data/postgres"
	redisdata "github.com/edocument-exchange/internal/data/redis"
	"github.com/edocument-exchange/internal/domain/credential"
	"github.com/edocument-exchange/internal/edocument_processor/aggregator"
	"github.com/edocument-exchange/internal/edocument_processor/components"
	"github.com/edocument-exchange/internal/edocument_processor/poller"
	"github.com/edocument-exchange/internal/edocument_processor/reconciler"
	"github.com/edocument-exchange/internal/edocument_processor/service"
	"github.com/edocument-exchange/internal/platform/persistence"
	"github.com/edocument-exchange/internal/transport"
	"github.com/redis/go-redis/v9"
)

// Runtime holds the connections and stages of a running processor.
type Runtime struct {
	Postgres *persistence.PostgresDB
	MongoDB  *persistence.MongoDB
	Redis    *redis.Client

	Repos      components.Repositories
	Dispatcher *components.DispatcherImpl
	Reconciler *reconciler.Reconciler
	Aggregator *aggregator.Aggregator
	Throttle   *redisdata.Throttle

	logger *slog.Logger
	cfg    *config.Config
}

// NewRuntime connects to the stores and builds the stages. On error, whatever
// was already opened is closed again.
func NewRuntime(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{logger: logger, cfg: cfg}
	if err := rt.connect(ctx); err != nil {
		rt.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	rt.build()
	return rt, nil
}

func (rt *Runtime) connect(ctx context.Context) error {
	var err error
	if rt.Postgres, err = persistence.NewPostgresDB(ctx, rt.logger, &rt.cfg.Postgres); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	if rt.MongoDB, err = persistence.NewMongoDB(ctx, rt.logger, &rt.cfg.MongoDB); err != nil {
		return fmt.Errorf("failed to initialize MongoDB: %w", err)
	}
	if rt.Redis, err = persistence.NewRedis(ctx, rt.logger, &rt.cfg.Redis); err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	return nil
}

func (rt *Runtime) build() {
	logger, cfg := rt.logger, rt.cfg

	db := rt.MongoDB.Database()
	rt.Repos = components.Repositories{
		Records:     postgres.NewRecordRepository(logger, rt.Postgres),
		Flows:       postgres.NewFlowRepository(logger, rt.Postgres),
		Documents:   postgres.NewDocumentRepository(logger, rt.Postgres),
		Companies:   postgres.NewCompanyRepository(logger, rt.Postgres),
		QRIS:        postgres.NewQRISRepository(logger, rt.Postgres),
		Outbox:      postgres.NewOutboxRepository(logger, rt.Postgres),
		Notes:       mongo.NewNoteRepository(logger, db),
		Attachments: mongo.NewAttachmentRepository(logger, db),
	}
	credentials := postgres.NewCredentialRepository(logger, rt.Postgres)

	anafTokens := transport.NewCredentialTokens(
		logger,
		rt.Postgres,
		credentials,
		credential.ProviderANAF,
		cfg.ANAF.TokenURL,
		transport.NewClient(logger, "ANAF OAuth", cfg.ANAF.Timeout),
	)
	rt.Dispatcher = components.NewDispatcher(components.Clients{
		EFactura:   transport.NewEFactura(logger, cfg.ANAF, anafTokens),
		ETransport: transport.NewETransport(logger, cfg.ETransport, anafTokens),
		JPK:        transport.NewJPK(logger, cfg.JPK),
		JoFotara:   transport.NewJoFotara(logger, cfg.JoFotara, credentials),
		QRIS:       transport.NewQRIS(logger, cfg.QRIS),
	}, logger.With("component", "dispatcher"))

	rt.Reconciler = reconciler.NewReconciler(
		logger.With("component", "reconciler"),
		rt.Postgres,
		rt.Repos.Documents,
		rt.Repos.Records,
		rt.Repos.Flows,
		rt.Repos.QRIS,
		rt.Repos.Outbox,
		rt.Repos.Notes,
		rt.Repos.Attachments,
	)
	rt.Aggregator = aggregator.NewAggregator(
		logger.With("component", "aggregator"),
		rt.Postgres,
		rt.Repos.Records,
		rt.Repos.Flows,
		rt.Repos.Companies,
		cfg.Aggregator,
	)
	rt.Throttle = redisdata.NewThrottle(logger, rt.Redis)
}

// SubmissionService builds the submission pipeline on top of the runtime's stages.
func (rt *Runtime) SubmissionService() service.SubmissionService {
	return components.CreateSubmissionService(
		rt.Postgres,
		rt.Repos,
		rt.Dispatcher,
		rt.Reconciler,
		rt.Aggregator,
		rt.logger.With("component", "submission"),
		rt.cfg,
	)
}

// StatusPoller builds the poller collecting verdicts and QR payments.
func (rt *Runtime) StatusPoller() (*poller.Poller, error) {
	return poller.NewPoller(
		rt.cfg.Poller,
		rt.cfg.WorkerPool.Size,
		rt.Repos.Documents,
		rt.Repos.QRIS,
		rt.Dispatcher,
		rt.Reconciler,
		rt.Throttle,
		rt.logger.With("component", "status_poller"),
	)
}

// Close releases every connection that was opened.
func (rt *Runtime) Close(ctx context.Context) {
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			rt.logger.Error("Error closing Redis connection", "error", err)
		}
	}
	if rt.MongoDB != nil {
		if err := rt.MongoDB.Close(ctx); err != nil {
			rt.logger.Error("Error closing MongoDB connection", "error", err)
		}
	}
	if rt.Postgres != nil {
		rt.Postgres.Close()
	}
}
