package postgres

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/edocument-exchange/internal/domain/outbox"
	"github.com/edocument-exchange/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// maxErrorLength bounds the failure reason kept on an event row.
const maxErrorLength = 1000

type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
	now     func() time.Time
}

func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{
		querier: db.Pool(),
		logger:  logger,
		now:     time.Now,
	}
}

// WithTx binds the repository to tx so events commit together with the
// document change they describe.
func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	clone := *r
	clone.querier = tx
	return &clone
}

func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	if message.Status == "" {
		message.Status = outbox.StatusPending
	}
	err := r.querier.QueryRow(ctx, `
		INSERT INTO document_events (event_id, document_id, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		message.EventID, message.DocumentID, message.Payload, message.Status, message.Attempts, message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		r.logger.Error("Failed to store lifecycle event", "document_id", message.DocumentID, "event_id", message.EventID, "error", err)
		return fmt.Errorf("failed to store event for document %d: %w", message.DocumentID, err)
	}
	return nil
}

// Claim leases the oldest pending events whose previous lease has run out.
// SKIP LOCKED keeps concurrent pollers from blocking on each other's rows.
func (r *OutboxRepository) Claim(ctx context.Context, limit int, lease time.Duration) ([]*outbox.Message, error) {
	now := r.now()
	rows, err := r.querier.Query(ctx, `
		UPDATE document_events
		SET attempts = attempts + 1, last_attempt_at = $1
		WHERE id IN (
			SELECT id FROM document_events
			WHERE status = $2 AND (last_attempt_at IS NULL OR last_attempt_at <= $3)
			ORDER BY created_at, id
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_id, document_id, payload, status, attempts, COALESCE(last_error, ''), created_at, last_attempt_at`,
		now, outbox.StatusPending, now.Add(-lease), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending events: %w", err)
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*outbox.Message, error) {
		var m outbox.Message
		err := row.Scan(&m.ID, &m.EventID, &m.DocumentID, &m.Payload, &m.Status,
			&m.Attempts, &m.LastError, &m.CreatedAt, &m.LastAttemptAt)
		return &m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read claimed events: %w", err)
	}

	// RETURNING gives no order guarantee
	slices.SortFunc(messages, func(a, b *outbox.Message) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return messages, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id int64) error {
	return r.finish(ctx, id, outbox.StatusPublished, nil)
}

// MarkFailed parks the event for good. reason is kept for operators.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	if len(reason) > maxErrorLength {
		reason = strings.ToValidUTF8(reason[:maxErrorLength], "")
	}
	return r.finish(ctx, id, outbox.StatusFailedToPublish, &reason)
}

func (r *OutboxRepository) finish(ctx context.Context, id int64, status outbox.Status, reason *string) error {
	result, err := r.querier.Exec(ctx, `
		UPDATE document_events
		SET status = $1, last_error = COALESCE($2, last_error), last_attempt_at = $3
		WHERE id = $4 AND status = $5`,
		status, reason, r.now(), id, outbox.StatusPending,
	)
	if err != nil {
		r.logger.Error("Failed to close lifecycle event", "outbox_id", id, "status", status, "error", err)
		return fmt.Errorf("failed to mark event %d %s: %w", id, status, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("event %d: %w", id, outbox.ErrNotClaimable)
	}
	return nil
}
