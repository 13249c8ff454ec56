package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collections holding document payloads and the record chatter.
const (
	AttachmentsCollection = "attachments"
	NotesCollection       = "record_notes"
)

type collectionIndex struct {
	collection string
	model      mongo.IndexModel
}

// mongoIndexes match the repository reads: attachments of a document oldest
// first, notes of a record newest first.
var mongoIndexes = []collectionIndex{
	{
		collection: AttachmentsCollection,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "document_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("attachments_by_document"),
		},
	},
	{
		collection: NotesCollection,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "record_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("notes_by_record"),
		},
	},
}

// MongoDB stores what does not fit the relational model: signed payloads and
// receipts of documents, and the notes posted on records.
type MongoDB struct {
	logger   *slog.Logger
	client   *mongo.Client
	database *mongo.Database
}

func NewMongoDB(ctx context.Context, logger *slog.Logger, cfg *config.MongoDBConfig) (*MongoDB, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetAppName("edocument-exchange").
		SetTimeout(cfg.Timeout).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	m := &MongoDB{
		logger:   logger,
		client:   client,
		database: client.Database(cfg.Database),
	}
	if err := m.prepare(ctx, cfg.Timeout); err != nil {
		if disconnectErr := client.Disconnect(context.WithoutCancel(ctx)); disconnectErr != nil {
			logger.Warn("Failed to disconnect from MongoDB", "error", disconnectErr)
		}
		return nil, err
	}

	logger.Info("Connected to MongoDB", "database", cfg.Database, "max_pool_size", cfg.MaxPoolSize)
	return m, nil
}

func (m *MongoDB) prepare(ctx context.Context, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := m.client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return m.ensureIndexes(ctx)
}

// ensureIndexes is idempotent: MongoDB accepts an identical index again.
func (m *MongoDB) ensureIndexes(ctx context.Context) error {
	for _, idx := range mongoIndexes {
		name, err := m.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model)
		if err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.collection, err)
		}
		m.logger.Debug("MongoDB index ready", "collection", idx.collection, "index", name)
	}
	return nil
}

func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	m.logger.Info("Closed MongoDB connection")
	return nil
}
