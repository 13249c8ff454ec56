// Package qris models dynamic QR payment requests issued for invoices.
package qris

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Transaction is one QR code generated upstream. Content is stored byte-for-byte.
type Transaction struct {
	ID          int64           `json:"id"`
	RecordID    int64           `json:"record_id"`
	CompanyID   int64           `json:"company_id"`
	InvoiceID   string          `json:"invoice_id"`
	NMID        string          `json:"nmid,omitempty"`
	Content     string          `json:"content"`
	Amount      decimal.Decimal `json:"amount"`
	RequestedAt time.Time       `json:"requested_at"`
	Paid        bool            `json:"paid"`
	PaidBy      string          `json:"paid_by,omitempty"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
}

// Expired reports whether the QR code is older than the expiry window at now.
func (t *Transaction) Expired(now time.Time, expiry time.Duration) bool {
	return now.Sub(t.RequestedAt) > expiry
}

// Repository defines QR transaction persistence operations
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id int64) (*Transaction, error)

	// ListUnpaid returns unpaid transactions ordered by requested_at, oldest first
	ListUnpaid(ctx context.Context, limit int) ([]*Transaction, error)
	ListByRecord(ctx context.Context, recordID int64) ([]*Transaction, error)
	MarkPaid(ctx context.Context, id int64, paidBy string, paidAt time.Time) error
	Delete(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates a missing QR transaction
type ErrTransactionNotFound struct {
	ID int64
}

func (e ErrTransactionNotFound) Error() string {
	return "qris transaction not found: " + strconv.FormatInt(e.ID, 10)
}
