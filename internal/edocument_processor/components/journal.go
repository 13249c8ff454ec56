package components

import (
	"context"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/domain/attachment"
	"github.com/edocument-exchange/internal/domain/note"
	"github.com/edocument-exchange/internal/edocument_processor/service"
)

// JournalImpl keeps exchanged files and record notes in MongoDB.
type JournalImpl struct {
	attachments attachment.Repository
	notes       note.Repository
	logger      *slog.Logger
}

func NewJournal(attachments attachment.Repository, notes note.Repository, logger *slog.Logger) service.Journal {
	return &JournalImpl{attachments: attachments, notes: notes, logger: logger}
}

// Attach stores the payload as sent, and its preview when there is one. The id of
// the sent attachment is returned.
func (j *JournalImpl) Attach(ctx context.Context, documentID int64, payload *service.Payload) (string, error) {
	now := time.Now().UTC()
	sent := &attachment.Attachment{
		DocumentID: documentID,
		Kind:       attachment.KindSent,
		Name:       payload.Name,
		MimeType:   payload.MimeType,
		Content:    payload.Content,
		CreatedAt:  now,
	}
	if err := j.attachments.Save(ctx, sent); err != nil {
		j.logger.Error("Failed to save sent payload", "document_id", documentID, "error", err)
		return "", err
	}

	if len(payload.Preview) > 0 {
		preview := &attachment.Attachment{
			DocumentID: documentID,
			Kind:       attachment.KindPreview,
			Name:       payload.PreviewName,
			MimeType:   mimeXLSX,
			Content:    payload.Preview,
			CreatedAt:  now,
		}
		if err := j.attachments.Save(ctx, preview); err != nil {
			j.logger.Warn("Failed to save preview", "document_id", documentID, "error", err)
		}
	}
	return sent.ID, nil
}

// Purge drops the attachments of superseded documents. Failures are only logged;
// orphaned attachments are harmless.
func (j *JournalImpl) Purge(ctx context.Context, documentIDs []int64) {
	if len(documentIDs) == 0 {
		return
	}
	deleted, err := j.attachments.DeleteByDocuments(ctx, documentIDs)
	if err != nil {
		j.logger.Error("Failed to purge attachments", "document_ids", documentIDs, "error", err)
		return
	}
	j.logger.Info("Purged attachments", "document_ids", documentIDs, "deleted", deleted)
}

func (j *JournalImpl) Note(ctx context.Context, recordIDs []int64, documentID int64, level note.Level, body string) {
	now := time.Now().UTC()
	for _, id := range recordIDs {
		n := &note.Note{RecordID: id, DocumentID: documentID, Level: level, Body: body, CreatedAt: now}
		if err := j.notes.Add(ctx, n); err != nil {
			j.logger.Error("Failed to post note", "record_id", id, "error", err)
		}
	}
}
