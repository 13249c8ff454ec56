package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/domain/qris"
	"github.com/edocument-exchange/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const qrisColumns = `id, record_id, company_id, invoice_id, nmid, content, amount, requested_at, paid, paid_by, paid_at`

// QRISRepository implements the qris.Repository interface for PostgreSQL
type QRISRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewQRISRepository creates a new PostgreSQL QR transaction repository
func NewQRISRepository(logger *slog.Logger, db *persistence.PostgresDB) qris.Repository {
	return &QRISRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *QRISRepository) WithTx(tx pgx.Tx) qris.Repository {
	return &QRISRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a generated QR code. The content goes in exactly as received.
func (r *QRISRepository) Create(ctx context.Context, t *qris.Transaction) error {
	query := `
		INSERT INTO qris_transactions (record_id, company_id, invoice_id, nmid, content, amount, requested_at, paid, paid_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.querier.QueryRow(ctx, query,
		t.RecordID,
		t.CompanyID,
		t.InvoiceID,
		t.NMID,
		t.Content,
		t.Amount,
		t.RequestedAt,
		t.Paid,
		t.PaidBy,
	).Scan(&t.ID)
	if err != nil {
		r.logger.Error("Failed to create QR transaction", "record_id", t.RecordID, "error", err)
		return fmt.Errorf("failed to create QR transaction: %w", err)
	}
	return nil
}

func (r *QRISRepository) GetByID(ctx context.Context, id int64) (*qris.Transaction, error) {
	query := `SELECT ` + qrisColumns + ` FROM qris_transactions WHERE id = $1`
	t, err := scanQRIS(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, qris.ErrTransactionNotFound{ID: id}
		}
		r.logger.Error("Failed to get QR transaction", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get QR transaction: %w", err)
	}
	return t, nil
}

func (r *QRISRepository) ListUnpaid(ctx context.Context, limit int) ([]*qris.Transaction, error) {
	query := `SELECT ` + qrisColumns + ` FROM qris_transactions WHERE NOT paid ORDER BY requested_at, id LIMIT $1`
	return r.list(ctx, "list unpaid QR transactions", query, limit)
}

func (r *QRISRepository) ListByRecord(ctx context.Context, recordID int64) ([]*qris.Transaction, error) {
	query := `SELECT ` + qrisColumns + ` FROM qris_transactions WHERE record_id = $1 ORDER BY requested_at, id`
	return r.list(ctx, "list record QR transactions", query, recordID)
}

func (r *QRISRepository) MarkPaid(ctx context.Context, id int64, paidBy string, paidAt time.Time) error {
	query := `UPDATE qris_transactions SET paid = TRUE, paid_by = $2, paid_at = $3 WHERE id = $1 AND NOT paid`
	result, err := r.querier.Exec(ctx, query, id, paidBy, paidAt)
	if err != nil {
		r.logger.Error("Failed to mark QR transaction paid", "id", id, "error", err)
		return fmt.Errorf("failed to mark QR transaction paid: %w", err)
	}
	if result.RowsAffected() == 0 {
		return qris.ErrTransactionNotFound{ID: id}
	}
	return nil
}

func (r *QRISRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.querier.Exec(ctx, `DELETE FROM qris_transactions WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete QR transaction", "id", id, "error", err)
		return fmt.Errorf("failed to delete QR transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return qris.ErrTransactionNotFound{ID: id}
	}
	return nil
}

func (r *QRISRepository) list(ctx context.Context, action, query string, args ...interface{}) ([]*qris.Transaction, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+action, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", action, err)
	}
	defer rows.Close()

	var out []*qris.Transaction
	for rows.Next() {
		t, err := scanQRIS(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan QR transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over QR transactions: %w", err)
	}
	return out, nil
}

func scanQRIS(row pgx.Row) (*qris.Transaction, error) {
	var t qris.Transaction
	err := row.Scan(
		&t.ID,
		&t.RecordID,
		&t.CompanyID,
		&t.InvoiceID,
		&t.NMID,
		&t.Content,
		&t.Amount,
		&t.RequestedAt,
		&t.Paid,
		&t.PaidBy,
		&t.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
