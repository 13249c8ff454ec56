package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edocument-exchange/internal/domain/note"
	"github.com/edocument-exchange/internal/platform/persistence"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NoteRepository implements the note.Repository interface for MongoDB
type NoteRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewNoteRepository creates a new MongoDB note repository
func NewNoteRepository(logger *slog.Logger, db *mongo.Database) note.Repository {
	return &NoteRepository{
		collection: db.Collection(persistence.NotesCollection),
		logger:     logger,
	}
}

func (r *NoteRepository) Add(ctx context.Context, n *note.Note) error {
	if _, err := r.collection.InsertOne(ctx, n); err != nil {
		r.logger.Error("Failed to add note", "record_id", n.RecordID, "error", err)
		return fmt.Errorf("failed to add note: %w", err)
	}
	return nil
}

func (r *NoteRepository) ListByRecord(ctx context.Context, recordID int64, limit int) ([]*note.Note, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"record_id": recordID}, opts)
	if err != nil {
		r.logger.Error("Failed to list notes", "record_id", recordID, "error", err)
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer cursor.Close(ctx)

	var notes []*note.Note
	if err := cursor.All(ctx, &notes); err != nil {
		return nil, fmt.Errorf("failed to decode notes: %w", err)
	}
	return notes, nil
}
