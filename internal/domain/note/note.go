// Package note models the log messages posted on a record's chatter.
package note

import (
	"context"
	"time"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Note struct {
	RecordID   int64     `bson:"record_id" json:"record_id"`
	DocumentID int64     `bson:"document_id,omitempty" json:"document_id,omitempty"`
	Level      Level     `bson:"level" json:"level"`
	Body       string    `bson:"body" json:"body"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// Repository defines note persistence operations
type Repository interface {
	Add(ctx context.Context, n *Note) error
	// ListByRecord returns the newest notes first
	ListByRecord(ctx context.Context, recordID int64, limit int) ([]*Note, error)
}
