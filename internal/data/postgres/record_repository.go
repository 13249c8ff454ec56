// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository runs on a persistence.Querier so the same code serves the pool
// and the unit of work transaction handed over by WithTx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const recordColumns = `id, company_id, type, state, name, uuid, currency, issue_date, due_date, payload,
		document_ids, edi_state, poll_blocked, locked, payment_refs, created_at, updated_at`

// recordPayload is the nested part of a record kept as JSONB.
type recordPayload struct {
	Company    record.Party      `json:"company"`
	Partner    record.Party      `json:"partner"`
	Lines      []record.Line     `json:"lines"`
	Origin     *record.Origin    `json:"origin,omitempty"`
	Payments   []record.Payment  `json:"payments,omitempty"`
	Extensions record.Extensions `json:"extensions"`
}

func payloadOf(rec *record.SourceRecord) ([]byte, error) {
	payload, err := json.Marshal(recordPayload{
		Company:    rec.Company,
		Partner:    rec.Partner,
		Lines:      rec.Lines,
		Origin:     rec.Origin,
		Payments:   rec.Payments,
		Extensions: rec.Extensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode record payload: %w", err)
	}
	return payload, nil
}

// RecordRepository implements the record.Repository interface for PostgreSQL
type RecordRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRecordRepository creates a new PostgreSQL record repository
func NewRecordRepository(logger *slog.Logger, db *persistence.PostgresDB) record.Repository {
	return &RecordRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *RecordRepository) WithTx(tx pgx.Tx) record.Repository {
	return &RecordRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Upsert inserts rec or overwrites it while it is still a draft. Posted records
// are never rewritten; the host sends corrections as new records.
func (r *RecordRepository) Upsert(ctx context.Context, rec *record.SourceRecord) error {
	payload, err := payloadOf(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO records (id, company_id, type, state, name, uuid, currency, issue_date, due_date, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (id) DO UPDATE
		SET type = EXCLUDED.type, state = EXCLUDED.state, name = EXCLUDED.name, uuid = EXCLUDED.uuid,
			currency = EXCLUDED.currency, issue_date = EXCLUDED.issue_date, due_date = EXCLUDED.due_date,
			payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
		WHERE records.state = 'draft' AND NOT records.locked
	`

	result, err := r.querier.Exec(ctx, query,
		rec.ID,
		rec.CompanyID,
		rec.Type,
		rec.State,
		rec.Name,
		rec.UUID,
		rec.Currency,
		rec.IssueDate,
		nullableTime(rec.DueDate),
		payload,
		rec.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert record", "record_id", rec.ID, "error", err)
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return record.ErrImmutable{ID: rec.ID}
	}
	return nil
}

func (r *RecordRepository) GetByID(ctx context.Context, id int64) (*record.SourceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = $1`
	rec, err := scanRecord(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, record.ErrRecordNotFound{ID: id}
		}
		r.logger.Error("Failed to get record", "record_id", id, "error", err)
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// Correct overwrites the content of a stock record that is already reported. Only
// the payload moves; state, documents and lock stay as they are.
func (r *RecordRepository) Correct(ctx context.Context, rec *record.SourceRecord) error {
	payload, err := payloadOf(rec)
	if err != nil {
		return err
	}
	result, err := r.querier.Exec(ctx,
		`UPDATE records SET payload = $2, updated_at = $3 WHERE id = $1 AND type IN ('shipment', 'batch')`,
		rec.ID, payload, rec.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to correct record", "record_id", rec.ID, "error", err)
		return fmt.Errorf("failed to correct record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return record.ErrImmutable{ID: rec.ID}
	}
	return nil
}

// LockForUpdate reads the record under a row lock held until the transaction ends.
func (r *RecordRepository) LockForUpdate(ctx context.Context, id int64) (*record.SourceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = $1 FOR UPDATE`
	rec, err := scanRecord(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, record.ErrRecordNotFound{ID: id}
		}
		r.logger.Error("Failed to lock record for update", "record_id", id, "error", err)
		return nil, fmt.Errorf("failed to lock record for update: %w", err)
	}
	return rec, nil
}

func (r *RecordRepository) UpdateEDIState(ctx context.Context, id int64, state record.EDIState) error {
	return r.exec(ctx, "update record EDI state", id,
		`UPDATE records SET edi_state = $2, updated_at = NOW() WHERE id = $1`, id, state)
}

func (r *RecordRepository) SetPollBlocked(ctx context.Context, id int64, blocked bool) error {
	return r.exec(ctx, "set record poll block", id,
		`UPDATE records SET poll_blocked = $2, updated_at = NOW() WHERE id = $1`, id, blocked)
}

func (r *RecordRepository) MarkDoneAndLock(ctx context.Context, id int64) error {
	return r.exec(ctx, "lock record", id,
		`UPDATE records SET state = 'done', locked = TRUE, updated_at = NOW() WHERE id = $1`, id)
}

func (r *RecordRepository) AppendDocument(ctx context.Context, id int64, documentID int64) error {
	return r.exec(ctx, "attach document to record", id,
		`UPDATE records SET document_ids = array_append(document_ids, $2), updated_at = NOW() WHERE id = $1`, id, documentID)
}

func (r *RecordRepository) RemoveDocuments(ctx context.Context, id int64, documentIDs []int64) error {
	if len(documentIDs) == 0 {
		return nil
	}
	return r.exec(ctx, "detach documents from record", id,
		`UPDATE records
		SET document_ids = ARRAY(SELECT d FROM unnest(document_ids) AS d WHERE d <> ALL($2)), updated_at = NOW()
		WHERE id = $1`, id, documentIDs)
}

func (r *RecordRepository) RegisterPayment(ctx context.Context, id int64, reference string) error {
	return r.exec(ctx, "register payment", id,
		`UPDATE records SET payment_refs = array_append(payment_refs, $2), updated_at = NOW() WHERE id = $1`, id, reference)
}

// ListEligible returns the records an aggregated profile reports for the period,
// leaving out shipments whose latest document was already declared.
func (r *RecordRepository) ListEligible(ctx context.Context, companyID int64, profile shared.Profile, from, to time.Time) ([]*record.SourceRecord, error) {
	types := record.ReportedTypes[profile]
	if len(types) == 0 {
		return nil, shared.NewError(shared.KindConfiguration, fmt.Sprintf("profile %s does not aggregate records", profile), nil)
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}

	query := `
		SELECT ` + recordColumns + `
		FROM records r
		WHERE r.company_id = $1
			AND r.type = ANY($2)
			AND r.state IN ('posted', 'done')
			AND r.issue_date BETWEEN $3 AND $4
			AND NOT EXISTS (
				SELECT 1 FROM edocuments e
				WHERE e.id = r.document_ids[cardinality(r.document_ids)]
					AND e.state IN ('stock_sent', 'stock_validated')
			)
		ORDER BY r.issue_date, r.id
	`
	rows, err := r.querier.Query(ctx, query, companyID, names, from, to)
	if err != nil {
		r.logger.Error("Failed to list eligible records", "company_id", companyID, "profile", profile, "error", err)
		return nil, fmt.Errorf("failed to list eligible records: %w", err)
	}
	defer rows.Close()

	var out []*record.SourceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			r.logger.Error("Failed to scan record", "error", err)
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over records: %w", err)
	}
	return out, nil
}

func (r *RecordRepository) ListPaid(ctx context.Context, companyID int64, profile shared.Profile, from, to time.Time) ([]*record.SourceRecord, error) {
	types := record.ReportedTypes[profile]
	if len(types) == 0 {
		return nil, shared.NewError(shared.KindConfiguration, fmt.Sprintf("profile %s does not aggregate records", profile), nil)
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}

	query := `
		SELECT ` + recordColumns + `
		FROM records r
		WHERE r.company_id = $1
			AND r.type = ANY($2)
			AND r.state = 'posted'
			AND EXISTS (
				SELECT 1 FROM jsonb_array_elements(COALESCE(r.payload->'payments', '[]'::jsonb)) AS p
				WHERE (p->>'date')::date BETWEEN $3 AND $4
			)
		ORDER BY r.issue_date, r.id
	`
	rows, err := r.querier.Query(ctx, query, companyID, names, from, to)
	if err != nil {
		r.logger.Error("Failed to list paid records", "company_id", companyID, "profile", profile, "error", err)
		return nil, fmt.Errorf("failed to list paid records: %w", err)
	}
	defer rows.Close()

	var out []*record.SourceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			r.logger.Error("Failed to scan record", "error", err)
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over records: %w", err)
	}
	return out, nil
}

func (r *RecordRepository) ListCompanies(ctx context.Context) ([]int64, error) {
	rows, err := r.querier.Query(ctx, `SELECT DISTINCT company_id FROM records ORDER BY company_id`)
	if err != nil {
		r.logger.Error("Failed to list companies", "error", err)
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan company id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *RecordRepository) exec(ctx context.Context, action string, id int64, query string, args ...interface{}) error {
	result, err := r.querier.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+action, "record_id", id, "error", err)
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if result.RowsAffected() == 0 {
		return record.ErrRecordNotFound{ID: id}
	}
	return nil
}

func scanRecord(row pgx.Row) (*record.SourceRecord, error) {
	var (
		rec     record.SourceRecord
		dueDate *time.Time
		payload []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.CompanyID,
		&rec.Type,
		&rec.State,
		&rec.Name,
		&rec.UUID,
		&rec.Currency,
		&rec.IssueDate,
		&dueDate,
		&payload,
		&rec.DocumentIDs,
		&rec.EDIState,
		&rec.PollBlocked,
		&rec.Locked,
		&rec.PaymentRefs,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dueDate != nil {
		rec.DueDate = *dueDate
	}
	var p recordPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode record payload: %w", err)
	}
	rec.Company, rec.Partner, rec.Lines, rec.Origin, rec.Extensions = p.Company, p.Partner, p.Lines, p.Origin, p.Extensions
	rec.Payments = p.Payments
	return &rec, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
