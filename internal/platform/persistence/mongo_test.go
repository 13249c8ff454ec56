package persistence

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoDB_EnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := context.Background()

	mt.Run("every index created", func(mt *mtest.T) {
		responses := make([]bson.D, len(mongoIndexes))
		for i := range responses {
			responses[i] = mtest.CreateSuccessResponse()
		}
		mt.AddMockResponses(responses...)
		m := &MongoDB{logger: logger, client: mt.Client, database: mt.DB}

		require.NoError(mt, m.ensureIndexes(ctx))
		assert.Equal(mt, AttachmentsCollection, m.Collection(AttachmentsCollection).Name())
		assert.Equal(mt, mt.DB, m.Database())
	})

	mt.Run("attachment index rejected", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 85, Message: "IndexOptionsConflict"}))
		m := &MongoDB{logger: logger, client: mt.Client, database: mt.DB}

		assert.ErrorContains(mt, m.ensureIndexes(ctx), "failed to create index on attachments")
	})

	mt.Run("note index rejected", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 85, Message: "IndexOptionsConflict"}),
		)
		m := &MongoDB{logger: logger, client: mt.Client, database: mt.DB}

		assert.ErrorContains(mt, m.ensureIndexes(ctx), "failed to create index on record_notes")
	})
}

func TestMongoIndexes_Named(t *testing.T) {
	seen := map[string]bool{}
	for _, idx := range mongoIndexes {
		require.NotNil(t, idx.model.Options)
		require.NotNil(t, idx.model.Options.Name)
		assert.False(t, seen[*idx.model.Options.Name], "duplicate index name %s", *idx.model.Options.Name)
		seen[*idx.model.Options.Name] = true
	}
	assert.Len(t, seen, 2)
}
