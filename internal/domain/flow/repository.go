package flow

import (
	"context"
	"strconv"
	"time"

	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/jackc/pgx/v5"
)

// Repository defines aggregation flow persistence operations
type Repository interface {
	Create(ctx context.Context, f *Flow) error
	GetByID(ctx context.Context, id int64) (*Flow, error)
	LockForUpdate(ctx context.Context, id int64) (*Flow, error)

	// ListByKey returns every flow of the key ordered by (batch, created_at, id)
	ListByKey(ctx context.Context, key Key) ([]*Flow, error)
	ListByPeriod(ctx context.Context, companyID int64, profile shared.Profile, kind Kind, start, end time.Time) ([]*Flow, error)
	ListOpenContaining(ctx context.Context, recordID int64) ([]*Flow, error)
	Update(ctx context.Context, f *Flow) error
	Delete(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) Repository
}

// ErrFlowNotFound indicates a missing aggregation flow
type ErrFlowNotFound struct {
	ID int64
}

func (e ErrFlowNotFound) Error() string {
	return "flow not found: " + strconv.FormatInt(e.ID, 10)
}

// ErrFlowFrozen indicates an attempt to modify a sent or validated flow
type ErrFlowFrozen struct {
	ID int64
}

func (e ErrFlowFrozen) Error() string {
	return "flow is frozen: " + strconv.FormatInt(e.ID, 10)
}
