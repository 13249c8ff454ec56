// Package mongo holds the MongoDB repositories: document attachments and record notes.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edocument-exchange/internal/domain/attachment"
	"github.com/edocument-exchange/internal/platform/persistence"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AttachmentRepository implements the attachment.Repository interface for MongoDB
type AttachmentRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewAttachmentRepository creates a new MongoDB attachment repository
func NewAttachmentRepository(logger *slog.Logger, db *mongo.Database) attachment.Repository {
	return &AttachmentRepository{
		collection: db.Collection(persistence.AttachmentsCollection),
		logger:     logger,
	}
}

func (r *AttachmentRepository) Save(ctx context.Context, a *attachment.Attachment) error {
	doc := bson.M{
		"document_id": a.DocumentID,
		"kind":        a.Kind,
		"name":        a.Name,
		"mime_type":   a.MimeType,
		"content":     a.Content,
		"created_at":  a.CreatedAt,
	}
	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		r.logger.Error("Failed to save attachment", "document_id", a.DocumentID, "kind", a.Kind, "error", err)
		return fmt.Errorf("failed to save attachment: %w", err)
	}
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected attachment id type %T", result.InsertedID)
	}
	a.ID = id.Hex()
	return nil
}

func (r *AttachmentRepository) Get(ctx context.Context, id string) (*attachment.Attachment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, attachment.ErrAttachmentNotFound{ID: id}
	}

	var raw attachmentDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, attachment.ErrAttachmentNotFound{ID: id}
		}
		r.logger.Error("Failed to get attachment", "attachment_id", id, "error", err)
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return raw.toDomain(), nil
}

// ListByDocument returns the attachments of a document oldest first.
func (r *AttachmentRepository) ListByDocument(ctx context.Context, documentID int64) ([]*attachment.Attachment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"document_id": documentID}, opts)
	if err != nil {
		r.logger.Error("Failed to list attachments", "document_id", documentID, "error", err)
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer cursor.Close(ctx)

	var raws []attachmentDoc
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("failed to decode attachments: %w", err)
	}
	out := make([]*attachment.Attachment, 0, len(raws))
	for i := range raws {
		out = append(out, raws[i].toDomain())
	}
	return out, nil
}

// DeleteByDocuments removes the payloads of superseded documents.
func (r *AttachmentRepository) DeleteByDocuments(ctx context.Context, documentIDs []int64) (int64, error) {
	if len(documentIDs) == 0 {
		return 0, nil
	}
	result, err := r.collection.DeleteMany(ctx, bson.M{"document_id": bson.M{"$in": documentIDs}})
	if err != nil {
		r.logger.Error("Failed to delete attachments", "document_ids", documentIDs, "error", err)
		return 0, fmt.Errorf("failed to delete attachments: %w", err)
	}
	return result.DeletedCount, nil
}

// attachmentDoc mirrors the stored shape, with the native ObjectID.
type attachmentDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	DocumentID int64              `bson:"document_id"`
	Kind       attachment.Kind    `bson:"kind"`
	Name       string             `bson:"name"`
	MimeType   string             `bson:"mime_type"`
	Content    []byte             `bson:"content"`
	CreatedAt  primitive.DateTime `bson:"created_at"`
}

func (d *attachmentDoc) toDomain() *attachment.Attachment {
	return &attachment.Attachment{
		ID:         d.ID.Hex(),
		DocumentID: d.DocumentID,
		Kind:       d.Kind,
		Name:       d.Name,
		MimeType:   d.MimeType,
		Content:    d.Content,
		CreatedAt:  d.CreatedAt.Time().UTC(),
	}
}
