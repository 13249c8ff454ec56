// Package attachment stores the exact bytes exchanged with government endpoints.
package attachment

import (
	"context"
	"time"
)

type Kind string

const (
	KindSent    Kind = "sent"    // the payload as uploaded
	KindReceipt Kind = "receipt" // signed verdict or error file
	KindPreview Kind = "preview"
)

type Attachment struct {
	ID         string    `json:"id"`
	DocumentID int64     `json:"document_id"`
	Kind       Kind      `json:"kind"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mime_type"`
	Content    []byte    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository defines attachment persistence operations
type Repository interface {
	// Save stores a and sets its id
	Save(ctx context.Context, a *Attachment) error
	Get(ctx context.Context, id string) (*Attachment, error)
	ListByDocument(ctx context.Context, documentID int64) ([]*Attachment, error)
	DeleteByDocuments(ctx context.Context, documentIDs []int64) (int64, error)
}

// ErrAttachmentNotFound indicates a missing attachment
type ErrAttachmentNotFound struct {
	ID string
}

func (e ErrAttachmentNotFound) Error() string {
	return "attachment not found: " + e.ID
}
