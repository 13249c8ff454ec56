package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/domain/outbox"
)

// Poller drains the event outbox into the event topic.
type Poller struct {
	outboxRepo outbox.Repository
	publisher  EventPublisher
	logger     *slog.Logger
	cfg        config.OutboxConfig
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher EventPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		logger:     logger.With("component", "outbox_poller"),
		cfg:        *cfg,
	}
}

// Start polls until ctx is canceled. A batch that takes longer than the
// interval delays the next tick instead of overlapping it.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.cfg.PollingInterval.String(),
		"batch_size", p.cfg.BatchSize,
		"claim_lease", p.cfg.ClaimLease.String(),
		"max_retry_attempts", p.cfg.MaxRetryAttempts,
	)
	ticker := time.NewTicker(p.cfg.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopped")
			return
		case <-ticker.C:
			published, err := p.drain(ctx)
			if err != nil {
				p.logger.Error("Outbox batch failed", "error", err)
				continue
			}
			if published > 0 {
				p.logger.Info("Published lifecycle events", "count", published)
			}
		}
	}
}

// drain publishes one claimed batch oldest first and reports how many events
// reached the broker. A failing event does not hold back the others; it is
// retried once its lease expires, or parked after the last allowed attempt.
func (p *Poller) drain(ctx context.Context) (int, error) {
	messages, err := p.outboxRepo.Claim(ctx, p.cfg.BatchSize, p.cfg.ClaimLease)
	if err != nil {
		return 0, fmt.Errorf("failed to claim outbox events: %w", err)
	}

	published := 0
	for _, msg := range messages {
		err := p.publisher.PublishEvent(ctx, msg)
		switch {
		case err == nil:
			published++
		case errors.Is(err, errUndecodable):
			// already parked by the publisher
		case msg.Attempts >= p.cfg.MaxRetryAttempts:
			p.logger.Warn("Giving up on lifecycle event",
				"outbox_id", msg.ID, "document_id", msg.DocumentID, "attempts", msg.Attempts, "error", err,
			)
			if markErr := p.outboxRepo.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
				p.logger.Error("Failed to park lifecycle event", "outbox_id", msg.ID, "error", markErr)
			}
		default:
			p.logger.Warn("Lifecycle event will be retried",
				"outbox_id", msg.ID, "document_id", msg.DocumentID, "attempts", msg.Attempts,
				"retry_after", p.cfg.ClaimLease.String(), "error", err,
			)
		}
	}
	return published, nil
}
