// Package record holds the read model of the business records the host ERP hands
// over for reporting: invoices, refunds, receipts, shipments and batches.
package record

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotReportable = errors.New("record is not in a reportable state")
	ErrLocked        = errors.New("record is locked")
)

type Type string

const (
	TypeOutInvoice Type = "out_invoice"
	TypeOutRefund  Type = "out_refund"
	TypeInInvoice  Type = "in_invoice"
	TypeInRefund   Type = "in_refund"
	TypeReceipt    Type = "receipt"
	TypeShipment   Type = "shipment"
	TypeBatch      Type = "batch"
)

func (t Type) IsRefund() bool {
	return t == TypeOutRefund || t == TypeInRefund
}

func (t Type) IsPurchase() bool {
	return t == TypeInInvoice || t == TypeInRefund
}

func (t Type) IsStock() bool {
	return t == TypeShipment || t == TypeBatch
}

type State string

const (
	StateDraft  State = "draft"
	StatePosted State = "posted"
	StateDone   State = "done"
	StateCancel State = "cancel"
)

// EDIState is the user-visible electronic reporting state of a record.
type EDIState string

const (
	EDIStateNone      EDIState = ""
	EDIStateSent      EDIState = "sent"
	EDIStateValidated EDIState = "validated"
	EDIStateFailed    EDIState = "failed"
)

// Party is an issuer, customer, carrier or warehouse address.
type Party struct {
	Name            string `json:"name"`
	VAT             string `json:"vat,omitempty"`
	CompanyRegistry string `json:"company_registry,omitempty"`
	Street          string `json:"street,omitempty"`
	Street2         string `json:"street2,omitempty"`
	City            string `json:"city,omitempty"`
	Zip             string `json:"zip,omitempty"`
	StateCode       string `json:"state_code,omitempty"`
	CountryCode     string `json:"country_code,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
	IsCompany       bool   `json:"is_company"`
	IsPublicSector  bool   `json:"is_public_sector,omitempty"`
}

type TaxAmountType string

const (
	TaxPercent TaxAmountType = "percent"
	TaxFixed   TaxAmountType = "fixed"
)

// Tax is a tax applied on a line. Tags carry the JPK K_xx field codes the tax reports into.
type Tax struct {
	Name            string          `json:"name"`
	AmountType      TaxAmountType   `json:"amount_type"`
	Amount          decimal.Decimal `json:"amount"`
	Exempt          bool            `json:"exempt,omitempty"`
	ExemptionReason string          `json:"exemption_reason,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
}

type LineKind string

const (
	LineProduct  LineKind = "product"
	LineEPD      LineKind = "epd"
	LineRounding LineKind = "rounding"
)

type Line struct {
	Name          string          `json:"name"`
	ProductCode   string          `json:"product_code,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCode      string          `json:"unit_code,omitempty"`
	PriceUnit     decimal.Decimal `json:"price_unit"`
	Discount      decimal.Decimal `json:"discount"`
	Taxes         []Tax           `json:"taxes,omitempty"`
	Kind          LineKind        `json:"kind"`
	OriginCountry string          `json:"origin_country,omitempty"`
	TariffCode    string          `json:"tariff_code,omitempty"`
	NetWeight     decimal.Decimal `json:"net_weight"`
	GrossWeight   decimal.Decimal `json:"gross_weight"`
	Value         decimal.Decimal `json:"value"`
}

// Origin references the record a refund corrects.
type Origin struct {
	RecordID  int64           `json:"record_id"`
	Name      string          `json:"name"`
	UUID      string          `json:"uuid,omitempty"`
	Total     decimal.Decimal `json:"total"`
	IssueDate time.Time       `json:"issue_date"`
}

// Payment is a reconciled payment of a record, as handed over by the host.
type Payment struct {
	Date      time.Time       `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
}

// SourceRecord is a business document to be reported. Posted records are never
// modified by the exchange; corrections are new records referencing the original.
type SourceRecord struct {
	ID          int64      `json:"id"`
	CompanyID   int64      `json:"company_id"`
	Type        Type       `json:"type"`
	State       State      `json:"state"`
	Name        string     `json:"name"`
	UUID        string     `json:"uuid,omitempty"`
	Company     Party      `json:"company"`
	Partner     Party      `json:"partner"`
	Currency    string     `json:"currency"`
	IssueDate   time.Time  `json:"issue_date"`
	DueDate     time.Time  `json:"due_date"`
	Lines       []Line     `json:"lines"`
	Origin      *Origin    `json:"origin,omitempty"`
	Payments    []Payment  `json:"payments,omitempty"`
	Extensions  Extensions `json:"extensions"`
	DocumentIDs []int64    `json:"document_ids,omitempty"`
	EDIState    EDIState   `json:"edi_state"`
	PollBlocked bool       `json:"poll_blocked"`
	Locked      bool       `json:"locked"`
	PaymentRefs []string   `json:"payment_refs,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsReportable reports whether the record reached the state from which it may be submitted.
func (r *SourceRecord) IsReportable() bool {
	if r.Type.IsStock() {
		return r.State == StateDone
	}
	return r.State == StatePosted
}

// LatestDocumentID returns the most recently attached document id, or 0.
func (r *SourceRecord) LatestDocumentID() int64 {
	if len(r.DocumentIDs) == 0 {
		return 0
	}
	return r.DocumentIDs[len(r.DocumentIDs)-1]
}

// PaidBetween reports whether a payment of the record falls in [from, to].
func (r *SourceRecord) PaidBetween(from, to time.Time) bool {
	for _, p := range r.Payments {
		if !p.Date.Before(from) && !p.Date.After(to) {
			return true
		}
	}
	return false
}
