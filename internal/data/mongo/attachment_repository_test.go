package mongo

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/edocument-exchange/internal/domain/attachment"
	"github.com/edocument-exchange/internal/domain/note"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestAttachmentRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	created := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)

	mt.Run("save sets the id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewAttachmentRepository(newTestLogger(), mt.DB)

		a := &attachment.Attachment{
			DocumentID: 31, Kind: attachment.KindSent, Name: "INV-1.xml", MimeType: "application/xml",
			Content: []byte("<Invoice/>"), CreatedAt: created,
		}
		require.NoError(mt, repo.Save(ctx, a))
		assert.Len(mt, a.ID, 24)
	})

	mt.Run("save failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value"}))
		repo := NewAttachmentRepository(newTestLogger(), mt.DB)

		err := repo.Save(ctx, &attachment.Attachment{DocumentID: 31})
		assert.ErrorContains(mt, err, "failed to save attachment")
	})

	mt.Run("get", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.attachments", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "document_id", Value: int64(31)},
			{Key: "kind", Value: "receipt"},
			{Key: "name", Value: "66161f0c.xml"},
			{Key: "mime_type", Value: "application/xml"},
			{Key: "content", Value: []byte("<Signature/>")},
			{Key: "created_at", Value: primitive.NewDateTimeFromTime(created)},
		}))
		repo := NewAttachmentRepository(newTestLogger(), mt.DB)

		got, err := repo.Get(ctx, oid.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, oid.Hex(), got.ID)
		assert.Equal(mt, attachment.KindReceipt, got.Kind)
		assert.Equal(mt, []byte("<Signature/>"), got.Content)
		assert.True(mt, created.Equal(got.CreatedAt))
	})

	mt.Run("get missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.attachments", mtest.FirstBatch))
		repo := NewAttachmentRepository(newTestLogger(), mt.DB)

		id := primitive.NewObjectID().Hex()
		_, err := repo.Get(ctx, id)
		assert.Equal(mt, attachment.ErrAttachmentNotFound{ID: id}, err)
	})

	mt.Run("get malformed id", func(mt *mtest.T) {
		repo := NewAttachmentRepository(newTestLogger(), mt.DB)

		_, err := repo.Get(ctx, "nope")
		assert.Equal(mt, attachment.ErrAttachmentNotFound{ID: "nope"}, err)
	})

	mt.Run("list by document", func(mt *mtest.T) {
		first := bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "document_id", Value: int64(31)}, {Key: "kind", Value: "sent"}}
		second := bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "document_id", Value: int64(31)}, {Key: "kind", Value: "receipt"}}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.attachments", mtest.FirstBatch, first, second))
		repo := NewAttachmentRepository(newTestLogger(), mt.DB)

		got, err := repo.ListByDocument(ctx, 31)
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, attachment.KindSent, got[0].Kind)
		assert.Equal(mt, attachment.KindReceipt, got[1].Kind)
	})

	mt.Run("delete by documents", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}))
		repo := NewAttachmentRepository(newTestLogger(), mt.DB)

		n, err := repo.DeleteByDocuments(ctx, []int64{31, 35})
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), n)

		n, err = repo.DeleteByDocuments(ctx, nil)
		require.NoError(mt, err)
		assert.Zero(mt, n)
	})
}

func TestNoteRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	created := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)

	mt.Run("add", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewNoteRepository(newTestLogger(), mt.DB)

		err := repo.Add(ctx, &note.Note{RecordID: 7, Level: note.LevelError, Body: "unhandled state: zzz", CreatedAt: created})
		assert.NoError(mt, err)
	})

	mt.Run("list newest first", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.record_notes", mtest.FirstBatch,
			bson.D{{Key: "record_id", Value: int64(7)}, {Key: "level", Value: "info"}, {Key: "body", Value: "validated"},
				{Key: "created_at", Value: primitive.NewDateTimeFromTime(created.Add(time.Hour))}},
			bson.D{{Key: "record_id", Value: int64(7)}, {Key: "level", Value: "info"}, {Key: "body", Value: "sent"},
				{Key: "created_at", Value: primitive.NewDateTimeFromTime(created)}},
		))
		repo := NewNoteRepository(newTestLogger(), mt.DB)

		notes, err := repo.ListByRecord(ctx, 7, 20)
		require.NoError(mt, err)
		require.Len(mt, notes, 2)
		assert.Equal(mt, "validated", notes[0].Body)
		assert.Equal(mt, note.LevelInfo, notes[1].Level)
	})

	mt.Run("list failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Message: "unauthorized"}))
		repo := NewNoteRepository(newTestLogger(), mt.DB)

		_, err := repo.ListByRecord(ctx, 7, 20)
		assert.ErrorContains(mt, err, "failed to list notes")
	})
}
