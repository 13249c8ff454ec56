package shared

import (
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidProfile = errors.New("invalid profile")
	ErrInvalidAction  = errors.New("invalid submission action")
)

// SubmissionRequest defines a Kafka message asking the processor to act on a
// source record or an aggregation flow.
type SubmissionRequest struct {
	RequestID     uuid.UUID `json:"request_id"`
	RecordID      int64     `json:"record_id,omitempty"`
	FlowID        int64     `json:"flow_id,omitempty"`
	Profile       Profile   `json:"profile"`
	Action        Action    `json:"action"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// Validate checks the request shape before it reaches the pipeline.
func (r *SubmissionRequest) Validate() error {
	if !r.Profile.Valid() {
		return ErrInvalidProfile
	}
	if !r.Action.Valid() {
		return ErrInvalidAction
	}
	if r.RecordID == 0 && r.FlowID == 0 {
		return errors.New("either record_id or flow_id is required")
	}
	return nil
}

// Key partitions requests so that every request about one record or flow is
// consumed in order.
func (r *SubmissionRequest) Key() string {
	if r.FlowID != 0 {
		return "flow-" + strconv.FormatInt(r.FlowID, 10)
	}
	return "record-" + strconv.FormatInt(r.RecordID, 10)
}
