// Package outbox holds document lifecycle events written in the same transaction
// as the state change they describe and published to Kafka afterwards.
package outbox

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/edocument-exchange/internal/domain/edocument"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPending         Status = "pending"
	StatusPublished       Status = "published"
	StatusFailedToPublish Status = "failed_to_publish"
)

// Event is the lifecycle event consumers of the event topic receive.
type Event struct {
	EventID          uuid.UUID               `json:"event_id"`
	DocumentID       int64                   `json:"document_id"`
	RecordID         *int64                  `json:"record_id,omitempty"`
	FlowID           *int64                  `json:"flow_id,omitempty"`
	CompanyID        int64                   `json:"company_id"`
	Profile          shared.Profile          `json:"profile"`
	State            edocument.State         `json:"state"`
	TransmissionType shared.TransmissionType `json:"transmission_type,omitempty"`
	LoadID           string                  `json:"load_id,omitempty"`
	UIT              string                  `json:"uit,omitempty"`
	Message          string                  `json:"message,omitempty"`
	CorrelationID    string                  `json:"correlation_id,omitempty"`
	OccurredAt       time.Time               `json:"occurred_at"`
}

// Key partitions events by owner so that consumers see one owner's events in order.
func (e *Event) Key() string {
	if e.FlowID != nil {
		return "flow-" + strconv.FormatInt(*e.FlowID, 10)
	}
	if e.RecordID != nil {
		return "record-" + strconv.FormatInt(*e.RecordID, 10)
	}
	return "document-" + strconv.FormatInt(e.DocumentID, 10)
}

// Message is an outbox row
type Message struct {
	ID            int64           `json:"id"`
	EventID       uuid.UUID       `json:"event_id"`
	DocumentID    int64           `json:"document_id"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	LastError     string          `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewMessage snapshots doc after a state change.
func NewMessage(doc *edocument.EDocument, now time.Time) (*Message, error) {
	event := Event{
		EventID:          uuid.New(),
		DocumentID:       doc.ID,
		RecordID:         doc.RecordID,
		FlowID:           doc.FlowID,
		CompanyID:        doc.CompanyID,
		Profile:          doc.Profile,
		State:            doc.State,
		TransmissionType: doc.TransmissionType,
		LoadID:           doc.LoadID,
		UIT:              doc.UIT,
		Message:          doc.Message,
		CorrelationID:    doc.CorrelationID,
		OccurredAt:       now,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:    event.EventID,
		DocumentID: doc.ID,
		Payload:    payload,
		Status:     StatusPending,
		CreatedAt:  now,
	}, nil
}

// Event decodes the payload
func (m *Message) Event() (*Event, error) {
	var e Event
	if err := json.Unmarshal(m.Payload, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
