package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const flowColumns = `id, company_id, profile, kind, period_start, period_end, periodicity, currency, scope, batch, state,
		transmission_type, is_correction, reference_id, reference, record_ids, fingerprints, load_id, uit, message,
		created_at, updated_at`

// FlowRepository implements the flow.Repository interface for PostgreSQL
type FlowRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewFlowRepository creates a new PostgreSQL flow repository
func NewFlowRepository(logger *slog.Logger, db *persistence.PostgresDB) flow.Repository {
	return &FlowRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *FlowRepository) WithTx(tx pgx.Tx) flow.Repository {
	return &FlowRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *FlowRepository) Create(ctx context.Context, f *flow.Flow) error {
	fingerprints, err := json.Marshal(f.Fingerprints)
	if err != nil {
		return fmt.Errorf("failed to encode flow fingerprints: %w", err)
	}
	query := `
		INSERT INTO flows (company_id, profile, kind, period_start, period_end, periodicity, currency, scope, batch, state,
			transmission_type, is_correction, reference_id, reference, record_ids, fingerprints, load_id, uit, message,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id
	`
	err = r.querier.QueryRow(ctx, query,
		f.CompanyID,
		f.Profile,
		f.Kind,
		f.PeriodStart,
		f.PeriodEnd,
		f.Periodicity,
		f.Currency,
		f.Scope,
		f.Batch,
		f.State,
		f.TransmissionType,
		f.IsCorrection,
		f.ReferenceID,
		f.Reference,
		recordIDs(f),
		fingerprints,
		f.LoadID,
		f.UIT,
		f.Message,
		f.CreatedAt,
		f.UpdatedAt,
	).Scan(&f.ID)
	if err != nil {
		r.logger.Error("Failed to create flow", "company_id", f.CompanyID, "profile", f.Profile, "error", err)
		return fmt.Errorf("failed to create flow: %w", err)
	}
	return nil
}

func (r *FlowRepository) GetByID(ctx context.Context, id int64) (*flow.Flow, error) {
	query := `SELECT ` + flowColumns + ` FROM flows WHERE id = $1`
	f, err := scanFlow(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, flow.ErrFlowNotFound{ID: id}
		}
		r.logger.Error("Failed to get flow", "flow_id", id, "error", err)
		return nil, fmt.Errorf("failed to get flow: %w", err)
	}
	return f, nil
}

func (r *FlowRepository) LockForUpdate(ctx context.Context, id int64) (*flow.Flow, error) {
	query := `SELECT ` + flowColumns + ` FROM flows WHERE id = $1 FOR UPDATE`
	f, err := scanFlow(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, flow.ErrFlowNotFound{ID: id}
		}
		r.logger.Error("Failed to lock flow for update", "flow_id", id, "error", err)
		return nil, fmt.Errorf("failed to lock flow for update: %w", err)
	}
	return f, nil
}

func (r *FlowRepository) ListByKey(ctx context.Context, key flow.Key) ([]*flow.Flow, error) {
	query := `
		SELECT ` + flowColumns + `
		FROM flows
		WHERE company_id = $1 AND profile = $2 AND kind = $3 AND period_start = $4 AND period_end = $5
			AND periodicity = $6 AND currency = $7 AND scope = $8
		ORDER BY batch, created_at, id
	`
	return r.list(ctx, "list flows by key", query,
		key.CompanyID, key.Profile, key.Kind, key.PeriodStart, key.PeriodEnd, key.Periodicity, key.Currency, key.Scope)
}

// ListByPeriod returns every flow of the company and profile that starts in [start, end].
func (r *FlowRepository) ListByPeriod(ctx context.Context, companyID int64, profile shared.Profile, kind flow.Kind, start, end time.Time) ([]*flow.Flow, error) {
	query := `
		SELECT ` + flowColumns + `
		FROM flows
		WHERE company_id = $1 AND profile = $2 AND kind = $3 AND period_start BETWEEN $4 AND $5
		ORDER BY period_start, batch, created_at, id
	`
	return r.list(ctx, "list flows by period", query, companyID, profile, kind, start, end)
}

func (r *FlowRepository) ListOpenContaining(ctx context.Context, recordID int64) ([]*flow.Flow, error) {
	query := `
		SELECT ` + flowColumns + `
		FROM flows
		WHERE $1 = ANY(record_ids) AND state IN ('draft', 'building', 'ready', 'error')
		ORDER BY created_at, id
	`
	return r.list(ctx, "list open flows of record", query, recordID)
}

// Update writes f back. Validated flows are frozen and are left untouched.
func (r *FlowRepository) Update(ctx context.Context, f *flow.Flow) error {
	fingerprints, err := json.Marshal(f.Fingerprints)
	if err != nil {
		return fmt.Errorf("failed to encode flow fingerprints: %w", err)
	}
	query := `
		UPDATE flows
		SET state = $2, transmission_type = $3, is_correction = $4, reference_id = $5, reference = $6,
			record_ids = $7, fingerprints = $8, load_id = $9, uit = $10, message = $11, updated_at = $12
		WHERE id = $1 AND state <> 'validated'
	`
	result, err := r.querier.Exec(ctx, query,
		f.ID,
		f.State,
		f.TransmissionType,
		f.IsCorrection,
		f.ReferenceID,
		f.Reference,
		recordIDs(f),
		fingerprints,
		f.LoadID,
		f.UIT,
		f.Message,
		f.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update flow", "flow_id", f.ID, "error", err)
		return fmt.Errorf("failed to update flow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return flow.ErrFlowFrozen{ID: f.ID}
	}
	return nil
}

// Delete removes a draft flow. Flows past draft keep their history.
func (r *FlowRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.querier.Exec(ctx, `DELETE FROM flows WHERE id = $1 AND state = 'draft'`, id)
	if err != nil {
		r.logger.Error("Failed to delete flow", "flow_id", id, "error", err)
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return flow.ErrFlowFrozen{ID: id}
	}
	return nil
}

func (r *FlowRepository) list(ctx context.Context, action, query string, args ...interface{}) ([]*flow.Flow, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+action, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", action, err)
	}
	defer rows.Close()

	var flows []*flow.Flow
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			r.logger.Error("Failed to scan flow", "error", err)
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}
		flows = append(flows, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over flows: %w", err)
	}
	return flows, nil
}

func recordIDs(f *flow.Flow) []int64 {
	if f.RecordIDs == nil {
		return []int64{}
	}
	return f.RecordIDs
}

func scanFlow(row pgx.Row) (*flow.Flow, error) {
	var (
		f            flow.Flow
		fingerprints []byte
	)
	err := row.Scan(
		&f.ID,
		&f.CompanyID,
		&f.Profile,
		&f.Kind,
		&f.PeriodStart,
		&f.PeriodEnd,
		&f.Periodicity,
		&f.Currency,
		&f.Scope,
		&f.Batch,
		&f.State,
		&f.TransmissionType,
		&f.IsCorrection,
		&f.ReferenceID,
		&f.Reference,
		&f.RecordIDs,
		&fingerprints,
		&f.LoadID,
		&f.UIT,
		&f.Message,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Fingerprints = map[int64]string{}
	if len(fingerprints) > 0 {
		if err := json.Unmarshal(fingerprints, &f.Fingerprints); err != nil {
			return nil, fmt.Errorf("failed to decode flow fingerprints: %w", err)
		}
	}
	return &f, nil
}
