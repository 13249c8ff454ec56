package components

import (
	"log/slog"

	"github.com/edocument-exchange/internal/builder/jpk"
	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/domain/attachment"
	"github.com/edocument-exchange/internal/domain/company"
	"github.com/edocument-exchange/internal/domain/edocument"
	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/note"
	"github.com/edocument-exchange/internal/domain/outbox"
	"github.com/edocument-exchange/internal/domain/qris"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/edocument_processor/service"
	"github.com/edocument-exchange/internal/platform/persistence"
)

// Repositories groups the stores the processor works on.
type Repositories struct {
	Records     record.Repository
	Flows       flow.Repository
	Documents   edocument.Repository
	Companies   company.Repository
	QRIS        qris.Repository
	Outbox      outbox.Repository
	Notes       note.Repository
	Attachments attachment.Repository
}

// CreateSubmissionService creates a new SubmissionService with all its dependencies.
func CreateSubmissionService(
	uow persistence.UnitOfWork,
	repos Repositories,
	dispatcher service.Dispatcher,
	verdicts service.VerdictApplier,
	amender service.FlowAmender,
	logger *slog.Logger,
	cfg *config.Config,
) service.SubmissionService {
	journal := NewJournal(repos.Attachments, repos.Notes, logger)
	builder := NewPayloadBuilder(repos.Companies, jpk.DefaultCatalog(), logger)
	events := NewEventRecorder(repos.Outbox, logger)
	failures := NewFailureRecorder(repos.Flows, journal, logger)

	baseService := service.NewSubmissionService(service.Dependencies{
		UnitOfWork: uow,
		Records:    repos.Records,
		Flows:      repos.Flows,
		Documents:  repos.Documents,
		QRIS:       repos.QRIS,
		Builder:    builder,
		Dispatcher: dispatcher,
		Events:     events,
		Journal:    journal,
		Failures:   failures,
		Amender:    amender,
		Verdicts:   verdicts,
		QRISExpiry: cfg.Poller.QRISExpiry,
	}, logger)

	workerPoolService, err := service.NewWorkerPoolSubmissionService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool submission service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
