// Package flow models aggregation flows grouping many records into one periodic report.
package flow

import (
	"sort"
	"time"

	"github.com/edocument-exchange/internal/domain/shared"
)

type Kind string

const (
	KindTransaction Kind = "transaction"
	KindPayment     Kind = "payment"
)

type Periodicity string

const (
	Monthly   Periodicity = "M"
	Bimonthly Periodicity = "B"
	Decadal   Periodicity = "D"
	Quarterly Periodicity = "Q"
	// Yearly follows the Australian financial year, July to June.
	Yearly Periodicity = "Y"
)

type Scope string

const (
	ScopeB2C           Scope = "b2c"
	ScopeInternational Scope = "international"
	ScopeMixed         Scope = "mixed"
)

type State string

const (
	StateDraft     State = "draft"
	StateBuilding  State = "building"
	StateReady     State = "ready"
	StateError     State = "error"
	StateSent      State = "sent"
	StateValidated State = "validated"
)

// IsOpen reports whether a flow in this state may still be reused and modified.
func (s State) IsOpen() bool {
	switch s {
	case StateDraft, StateBuilding, StateReady, StateError:
		return true
	}
	return false
}

// Key identifies the group a flow reports.
type Key struct {
	CompanyID   int64
	Profile     shared.Profile
	Kind        Kind
	PeriodStart time.Time
	PeriodEnd   time.Time
	Periodicity Periodicity
	Currency    string
	Scope       Scope
}

// Flow groups records of one key into a single submission.
type Flow struct {
	ID               int64                   `json:"id"`
	CompanyID        int64                   `json:"company_id"`
	Profile          shared.Profile          `json:"profile"`
	Kind             Kind                    `json:"kind"`
	PeriodStart      time.Time               `json:"period_start"`
	PeriodEnd        time.Time               `json:"period_end"`
	Periodicity      Periodicity             `json:"periodicity"`
	Currency         string                  `json:"currency"`
	Scope            Scope                   `json:"scope"`
	Batch            int                     `json:"batch"`
	State            State                   `json:"state"`
	TransmissionType shared.TransmissionType `json:"transmission_type"`
	IsCorrection     bool                    `json:"is_correction"`
	ReferenceID      *int64                  `json:"reference_id,omitempty"`
	Reference        string                  `json:"reference,omitempty"`
	RecordIDs        []int64                 `json:"record_ids"`
	Fingerprints     map[int64]string        `json:"fingerprints"`
	LoadID           string                  `json:"load_id,omitempty"`
	UIT              string                  `json:"uit,omitempty"`
	Message          string                  `json:"message,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// New creates an empty draft flow for key. Batch is the zero slot; the
// aggregator numbers further slots when a key exceeds the per-flow limit.
func New(key Key, now time.Time) *Flow {
	return &Flow{
		CompanyID:        key.CompanyID,
		Profile:          key.Profile,
		Kind:             key.Kind,
		PeriodStart:      key.PeriodStart,
		PeriodEnd:        key.PeriodEnd,
		Periodicity:      key.Periodicity,
		Currency:         key.Currency,
		Scope:            key.Scope,
		State:            StateDraft,
		TransmissionType: shared.TransmissionInitial,
		Fingerprints:     map[int64]string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (f *Flow) Key() Key {
	return Key{
		CompanyID:   f.CompanyID,
		Profile:     f.Profile,
		Kind:        f.Kind,
		PeriodStart: f.PeriodStart,
		PeriodEnd:   f.PeriodEnd,
		Periodicity: f.Periodicity,
		Currency:    f.Currency,
		Scope:       f.Scope,
	}
}

// SetRecords replaces the flow content. Record ids are kept sorted.
func (f *Flow) SetRecords(fingerprints map[int64]string) {
	f.Fingerprints = make(map[int64]string, len(fingerprints))
	f.RecordIDs = make([]int64, 0, len(fingerprints))
	for id, fp := range fingerprints {
		f.Fingerprints[id] = fp
		f.RecordIDs = append(f.RecordIDs, id)
	}
	sort.Slice(f.RecordIDs, func(i, j int) bool { return f.RecordIDs[i] < f.RecordIDs[j] })
}

// Handle is the upstream reference a correction of this flow points at.
func (f *Flow) Handle() string {
	if f.UIT != "" {
		return f.UIT
	}
	return f.LoadID
}
