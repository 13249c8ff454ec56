// Package edocument models submission attempts and their lifecycle.
package edocument

import (
	"fmt"
	"time"

	"github.com/edocument-exchange/internal/domain/shared"
)

type State string

const (
	StateDraft    State = "draft"
	StateBuilding State = "building"
	StateReady    State = "ready"
	StateFailed   State = "failed"

	StateInvoiceSent          State = "invoice_sent"
	StateInvoiceValidated     State = "invoice_validated"
	StateInvoiceSendingFailed State = "invoice_sending_failed"

	StateStockSent          State = "stock_sent"
	StateStockValidated     State = "stock_validated"
	StateStockSendingFailed State = "stock_sending_failed"
)

// phase strips the invoice/stock family from a state.
type phase string

const (
	phaseDraft         phase = "draft"
	phaseBuilding      phase = "building"
	phaseReady         phase = "ready"
	phaseFailed        phase = "failed"
	phaseSent          phase = "sent"
	phaseValidated     phase = "validated"
	phaseSendingFailed phase = "sending_failed"
)

var allowedTransitions = map[phase][]phase{
	phaseDraft:    {phaseBuilding},
	phaseBuilding: {phaseReady, phaseFailed, phaseSendingFailed},
	phaseReady:    {phaseSent, phaseSendingFailed},
	phaseSent:     {phaseSent, phaseValidated, phaseSendingFailed},
}

func (s State) phase() phase {
	switch s {
	case StateInvoiceSent, StateStockSent:
		return phaseSent
	case StateInvoiceValidated, StateStockValidated:
		return phaseValidated
	case StateInvoiceSendingFailed, StateStockSendingFailed:
		return phaseSendingFailed
	}
	return phase(s)
}

func (s State) isStock() bool {
	return s == StateStockSent || s == StateStockValidated || s == StateStockSendingFailed
}

func (s State) isInvoice() bool {
	return s == StateInvoiceSent || s == StateInvoiceValidated || s == StateInvoiceSendingFailed
}

func (s State) IsSent() bool          { return s.phase() == phaseSent }
func (s State) IsValidated() bool     { return s.phase() == phaseValidated }
func (s State) IsSendingFailed() bool { return s.phase() == phaseSendingFailed }

// IsTerminal reports whether the poller is done with the state.
func (s State) IsTerminal() bool {
	switch s.phase() {
	case phaseValidated, phaseSendingFailed, phaseFailed:
		return true
	}
	return false
}

// SentState returns the sent state of the profile's family.
func SentState(p shared.Profile) State {
	if p.IsStock() {
		return StateStockSent
	}
	return StateInvoiceSent
}

func ValidatedState(p shared.Profile) State {
	if p.IsStock() {
		return StateStockValidated
	}
	return StateInvoiceValidated
}

func SendingFailedState(p shared.Profile) State {
	if p.IsStock() {
		return StateStockSendingFailed
	}
	return StateInvoiceSendingFailed
}

// SentStates lists the states the poller queries upstream for.
var SentStates = []State{StateInvoiceSent, StateStockSent}

// EDocument is one submission attempt for a record or an aggregation flow.
type EDocument struct {
	ID               int64                   `json:"id"`
	RecordID         *int64                  `json:"record_id,omitempty"`
	FlowID           *int64                  `json:"flow_id,omitempty"`
	CompanyID        int64                   `json:"company_id"`
	Profile          shared.Profile          `json:"profile"`
	State            State                   `json:"state"`
	AttachmentID     string                  `json:"attachment_id,omitempty"`
	ReceiptID        string                  `json:"receipt_id,omitempty"`
	LoadID           string                  `json:"load_id,omitempty"`
	UIT              string                  `json:"uit,omitempty"`
	ClearbitID       string                  `json:"clearbit_id,omitempty"`
	Message          string                  `json:"message,omitempty"`
	TransmissionType shared.TransmissionType `json:"transmission_type,omitempty"`
	IsCorrection     bool                    `json:"is_correction"`
	Reference        string                  `json:"reference,omitempty"`
	CorrelationID    string                  `json:"correlation_id"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// NewForRecord starts a draft document for a single record.
func NewForRecord(recordID, companyID int64, profile shared.Profile, correlationID string, now time.Time) *EDocument {
	return &EDocument{
		RecordID:         &recordID,
		CompanyID:        companyID,
		Profile:          profile,
		State:            StateDraft,
		TransmissionType: shared.TransmissionInitial,
		CorrelationID:    correlationID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// NewForFlow starts a draft document for an aggregation flow.
func NewForFlow(flowID, companyID int64, profile shared.Profile, correlationID string, now time.Time) *EDocument {
	return &EDocument{
		FlowID:           &flowID,
		CompanyID:        companyID,
		Profile:          profile,
		State:            StateDraft,
		TransmissionType: shared.TransmissionInitial,
		CorrelationID:    correlationID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// ErrInvalidTransition is returned when the state machine forbids a move.
type ErrInvalidTransition struct {
	From State
	To   State
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid document transition from %s to %s", e.From, e.To)
}

// Transition moves the document to the target state when the state machine allows it.
func (d *EDocument) Transition(to State, now time.Time) error {
	if to.isStock() && !d.Profile.IsStock() || to.isInvoice() && d.Profile.IsStock() {
		return ErrInvalidTransition{From: d.State, To: to}
	}
	for _, next := range allowedTransitions[d.State.phase()] {
		if next == to.phase() {
			d.State = to
			d.UpdatedAt = now
			return nil
		}
	}
	return ErrInvalidTransition{From: d.State, To: to}
}

// MarkSent records the upstream handles returned by an accepted upload.
func (d *EDocument) MarkSent(loadID, uit string, now time.Time) error {
	if err := d.Transition(SentState(d.Profile), now); err != nil {
		return err
	}
	d.LoadID = loadID
	if uit != "" {
		d.UIT = uit
	}
	d.Message = ""
	return nil
}

// Fail moves the document into the sending-failed state with a diagnostic.
func (d *EDocument) Fail(message string, now time.Time) error {
	if err := d.Transition(SendingFailedState(d.Profile), now); err != nil {
		return err
	}
	d.Message = message
	return nil
}

// Validate moves a sent document into the validated state.
func (d *EDocument) Validate(now time.Time) error {
	return d.Transition(ValidatedState(d.Profile), now)
}

// StartAmendment prepares a correction chained to a validated document.
func (d *EDocument) StartAmendment(prior *EDocument) {
	d.TransmissionType = shared.TransmissionModification
	d.IsCorrection = true
	d.Reference = prior.LoadID
	if d.Profile.IsStock() && prior.UIT != "" {
		d.Reference = prior.UIT
		d.UIT = prior.UIT
	}
}
