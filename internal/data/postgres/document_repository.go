package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edocument-exchange/internal/domain/edocument"
	"github.com/edocument-exchange/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	documentColumns = `id, record_id, flow_id, company_id, profile, state, attachment_id, receipt_id, load_id, uit,
		clearbit_id, message, transmission_type, is_correction, reference, correlation_id, created_at, updated_at`

	uniqueViolation     = "23505"
	oneSentPerRecordIdx = "uq_edocuments_record_sent"
)

// DocumentRepository implements the edocument.Repository interface for PostgreSQL
type DocumentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewDocumentRepository creates a new PostgreSQL document repository
func NewDocumentRepository(logger *slog.Logger, db *persistence.PostgresDB) edocument.Repository {
	return &DocumentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *DocumentRepository) WithTx(tx pgx.Tx) edocument.Repository {
	return &DocumentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new submission attempt and sets its id.
func (r *DocumentRepository) Create(ctx context.Context, doc *edocument.EDocument) error {
	query := `
		INSERT INTO edocuments (record_id, flow_id, company_id, profile, state, attachment_id, receipt_id, load_id, uit,
			clearbit_id, message, transmission_type, is_correction, reference, correlation_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`
	err := r.querier.QueryRow(ctx, query,
		doc.RecordID,
		doc.FlowID,
		doc.CompanyID,
		doc.Profile,
		doc.State,
		doc.AttachmentID,
		doc.ReceiptID,
		doc.LoadID,
		doc.UIT,
		doc.ClearbitID,
		doc.Message,
		doc.TransmissionType,
		doc.IsCorrection,
		doc.Reference,
		doc.CorrelationID,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Scan(&doc.ID)
	if err != nil {
		if sent := r.alreadySent(err, doc); sent != nil {
			return sent
		}
		r.logger.Error("Failed to create document", "profile", doc.Profile, "error", err)
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*edocument.EDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM edocuments WHERE id = $1`
	doc, err := scanDocument(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, edocument.ErrDocumentNotFound{ID: id}
		}
		r.logger.Error("Failed to get document", "document_id", id, "error", err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) ListByRecord(ctx context.Context, recordID int64) ([]*edocument.EDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM edocuments WHERE record_id = $1 ORDER BY created_at, id`
	return r.list(ctx, "list record documents", query, recordID)
}

func (r *DocumentRepository) ListByFlow(ctx context.Context, flowID int64) ([]*edocument.EDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM edocuments WHERE flow_id = $1 ORDER BY created_at, id`
	return r.list(ctx, "list flow documents", query, flowID)
}

// ListOutstanding returns the oldest documents still waiting for a verdict.
func (r *DocumentRepository) ListOutstanding(ctx context.Context, limit int) ([]*edocument.EDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM edocuments
		WHERE state IN ('invoice_sent', 'stock_sent')
		ORDER BY created_at, id
		LIMIT $1
	`
	return r.list(ctx, "list outstanding documents", query, limit)
}

func (r *DocumentRepository) Update(ctx context.Context, doc *edocument.EDocument) error {
	query := `
		UPDATE edocuments
		SET state = $2, attachment_id = $3, receipt_id = $4, load_id = $5, uit = $6, clearbit_id = $7, message = $8,
			transmission_type = $9, is_correction = $10, reference = $11, updated_at = $12
		WHERE id = $1
	`
	result, err := r.querier.Exec(ctx, query,
		doc.ID,
		doc.State,
		doc.AttachmentID,
		doc.ReceiptID,
		doc.LoadID,
		doc.UIT,
		doc.ClearbitID,
		doc.Message,
		doc.TransmissionType,
		doc.IsCorrection,
		doc.Reference,
		doc.UpdatedAt,
	)
	if err != nil {
		if sent := r.alreadySent(err, doc); sent != nil {
			return sent
		}
		r.logger.Error("Failed to update document", "document_id", doc.ID, "error", err)
		return fmt.Errorf("failed to update document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return edocument.ErrDocumentNotFound{ID: doc.ID}
	}
	return nil
}

// DeleteSuperseded removes the earlier sent and sending-failed attempts of the
// owner of keep and returns their ids.
func (r *DocumentRepository) DeleteSuperseded(ctx context.Context, keep *edocument.EDocument) ([]int64, error) {
	query := `
		DELETE FROM edocuments
		WHERE id <> $1
			AND record_id IS NOT DISTINCT FROM $2
			AND flow_id IS NOT DISTINCT FROM $3
			AND state IN ('invoice_sent', 'invoice_sending_failed', 'stock_sent', 'stock_sending_failed')
			AND (created_at, id) < ($4, $1)
		RETURNING id
	`
	rows, err := r.querier.Query(ctx, query, keep.ID, keep.RecordID, keep.FlowID, keep.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to delete superseded documents", "document_id", keep.ID, "error", err)
		return nil, fmt.Errorf("failed to delete superseded documents: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan deleted document id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over deleted documents: %w", err)
	}
	return ids, nil
}

func (r *DocumentRepository) list(ctx context.Context, action, query string, args ...interface{}) ([]*edocument.EDocument, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+action, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", action, err)
	}
	defer rows.Close()

	var docs []*edocument.EDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			r.logger.Error("Failed to scan document", "error", err)
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over documents: %w", err)
	}
	return docs, nil
}

// alreadySent maps a violation of the one-sent-document-per-record index.
func (r *DocumentRepository) alreadySent(err error, doc *edocument.EDocument) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation || pgErr.ConstraintName != oneSentPerRecordIdx {
		return nil
	}
	var recordID int64
	if doc.RecordID != nil {
		recordID = *doc.RecordID
	}
	r.logger.Warn("Record already has a sent document", "record_id", recordID)
	return edocument.ErrAlreadySent{RecordID: recordID}
}

func scanDocument(row pgx.Row) (*edocument.EDocument, error) {
	var doc edocument.EDocument
	err := row.Scan(
		&doc.ID,
		&doc.RecordID,
		&doc.FlowID,
		&doc.CompanyID,
		&doc.Profile,
		&doc.State,
		&doc.AttachmentID,
		&doc.ReceiptID,
		&doc.LoadID,
		&doc.UIT,
		&doc.ClearbitID,
		&doc.Message,
		&doc.TransmissionType,
		&doc.IsCorrection,
		&doc.Reference,
		&doc.CorrelationID,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
