package record

import (
	"time"

	"github.com/shopspring/decimal"
)

// Extensions is the typed jurisdiction bag. A nil pointer means the profile data is absent.
type Extensions struct {
	FR          *FRExtension          `json:"fr,omitempty"`
	ROTransport *ROTransportExtension `json:"ro_transport,omitempty"`
	JO          *JOExtension          `json:"jo,omitempty"`
	QRIS        *QRISExtension        `json:"qris,omitempty"`
	AU          *AUExtension          `json:"au,omitempty"`
	PL          *PLExtension          `json:"pl,omitempty"`
}

// FRExtension carries French CIUS data. Notes are keyed by subject code (PMT, PMD, ...).
type FRExtension struct {
	BillingMode    string            `json:"billing_mode,omitempty"`
	Notes          map[string]string `json:"notes,omitempty"`
	BuyerReference string            `json:"buyer_reference,omitempty"`
	TaxPointDate   *time.Time        `json:"tax_point_date,omitempty"`
	PayeeName      string            `json:"payee_name,omitempty"`
	PayeeSIRET     string            `json:"payee_siret,omitempty"`
	MandateID      string            `json:"mandate_id,omitempty"`
	CardPAN        string            `json:"card_pan,omitempty"`
}

type LocationType string

const (
	LocationAddress LocationType = "location"
	LocationBCP     LocationType = "bcp"
	LocationCustoms LocationType = "customs"
)

// Location is a start or end point of an eTransport route.
type Location struct {
	Type          LocationType `json:"type"`
	BCP           string       `json:"bcp,omitempty"`
	CustomsOffice string       `json:"customs_office,omitempty"`
	Address       *Party       `json:"address,omitempty"`
}

// ROTransportExtension carries Romanian eTransport declaration data.
type ROTransportExtension struct {
	OperationType string    `json:"operation_type"`
	Scope         string    `json:"scope"`
	VehicleNumber string    `json:"vehicle_number"`
	Trailer1      string    `json:"trailer1,omitempty"`
	Trailer2      string    `json:"trailer2,omitempty"`
	Start         Location  `json:"start"`
	End           Location  `json:"end"`
	Carrier       *Party    `json:"carrier,omitempty"`
	TransportDate time.Time `json:"transport_date"`
	Remarks       string    `json:"remarks,omitempty"`
	UIT           string    `json:"uit,omitempty"`
}

// JOExtension carries JoFotara data.
type JOExtension struct {
	SupplyType       string `json:"supply_type"` // income, sales or special
	IncomeSourceCode string `json:"income_source_code,omitempty"`
	RefundReason     string `json:"refund_reason,omitempty"`
	InvoiceCounter   int64  `json:"invoice_counter"`
}

// QRISExtension carries the Indonesian QR originator.
type QRISExtension struct {
	Originator string `json:"originator"` // invoice or pos
}

// AUExtension carries TPAR contractor payment data.
type AUExtension struct {
	TaxWithheld decimal.Decimal `json:"tax_withheld"`
	Overseas    bool            `json:"overseas,omitempty"`
	Grant       bool            `json:"grant,omitempty"`
}

// PLExtension carries JPK document markers.
type PLExtension struct {
	Markers      []string `json:"markers,omitempty"` // FP, RO, WEW, MPP, GTU_xx
	CashRegister bool     `json:"cash_register,omitempty"`
	DocumentType string   `json:"document_type,omitempty"`
}
