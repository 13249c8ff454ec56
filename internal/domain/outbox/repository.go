package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrNotClaimable is returned when a message is no longer pending, typically
// because another processor already published or gave up on it.
var ErrNotClaimable = errors.New("outbox message is not pending")

// Repository stores lifecycle events until they reach the event topic.
//
// Claim hands out pending messages under a lease: a claimed message is not
// offered again until the lease runs out, so several processors can poll the
// same table and a crashed one only delays its batch. Every claim counts as an
// attempt.
type Repository interface {
	Create(ctx context.Context, message *Message) error
	Claim(ctx context.Context, limit int, lease time.Duration) ([]*Message, error)
	MarkPublished(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	WithTx(tx pgx.Tx) Repository
}
