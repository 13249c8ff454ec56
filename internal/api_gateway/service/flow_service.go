package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/edocument_processor/aggregator"
)

// Synchronizer regroups records into flows; *aggregator.Aggregator satisfies it.
type Synchronizer interface {
	Sync(ctx context.Context, companyID int64, profile shared.Profile, at time.Time) (aggregator.Result, error)
}

// FlowServiceImpl implements the FlowService interface
type FlowServiceImpl struct {
	flowRepo     flow.Repository
	synchronizer Synchronizer
	logger       *slog.Logger
}

// NewFlowService creates a new flow service
func NewFlowService(logger *slog.Logger, flowRepo flow.Repository, synchronizer Synchronizer) FlowService {
	return &FlowServiceImpl{
		flowRepo:     flowRepo,
		synchronizer: synchronizer,
		logger:       logger,
	}
}

// GetFlowByID retrieves a flow by its ID. Returns nil if not found
func (s *FlowServiceImpl) GetFlowByID(ctx context.Context, id int64) (*flow.Flow, error) {
	f, err := s.flowRepo.GetByID(ctx, id)
	if err != nil {
		var errNotFound flow.ErrFlowNotFound
		if errors.As(err, &errNotFound) {
			s.logger.Info("Flow not found", "flow_id", id)
			return nil, nil
		}
		s.logger.Error("Failed to get flow by ID", "flow_id", id, "error", err)
		return nil, err
	}
	return f, nil
}

func (s *FlowServiceImpl) GetFlowsByPeriod(ctx context.Context, companyID int64, profile shared.Profile, kind flow.Kind, start, end time.Time) ([]*flow.Flow, error) {
	return s.flowRepo.ListByPeriod(ctx, companyID, profile, kind, start, end)
}

func (s *FlowServiceImpl) Synchronize(ctx context.Context, companyID int64, profile shared.Profile, at time.Time) (aggregator.Result, error) {
	if !profile.IsAggregated() {
		return aggregator.Result{}, shared.ErrInvalidProfile
	}

	result, err := s.synchronizer.Sync(ctx, companyID, profile, at)
	if err != nil {
		s.logger.Error("Failed to synchronize flows",
			"company_id", companyID,
			"profile", string(profile),
			"error", err,
		)
		return aggregator.Result{}, err
	}

	s.logger.Info("Flows synchronized",
		"company_id", companyID,
		"profile", string(profile),
		"created", result.Created,
		"updated", result.Updated,
		"deleted", result.Deleted,
	)
	return result, nil
}
