package durable

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yndnr/shopmate-go/internal/core/domain"
)

// MongoConfig holds MongoDB settings.
type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
	// TLS, when set, overrides any TLS settings in URI.
	TLS *tls.Config
}

func (c *MongoConfig) validate() error {
	if c.URI == "" {
		return fmt.Errorf("mongo: uri is required")
	}
	if c.Database == "" {
		c.Database = "Chats"
	}
	if c.Collection == "" {
		c.Collection = "chats"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	return nil
}

// Mongo stores records in a MongoDB collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongo creates a client for cfg. mongo.Connect does not dial; Ping
// is what proves the server is reachable.
func NewMongo(ctx context.Context, cfg MongoConfig, logger *slog.Logger) (*Mongo, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	if cfg.TLS != nil {
		opts.SetTLSConfig(cfg.TLS)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	m := &Mongo{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		logger: logger,
	}
	logger.Info("mongo archive configured",
		"database", cfg.Database,
		"collection", cfg.Collection)
	return m, nil
}

// EnsureIndexes creates the session_id lookup index.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "persisted_at", Value: 1}},
		Options: options.Index().SetName("session_id_persisted_at"),
	})
	if err != nil {
		return fmt.Errorf("mongo: create index: %w", err)
	}
	return nil
}

func (m *Mongo) Insert(ctx context.Context, rec *domain.DurableRecord) error {
	if _, err := m.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("mongo: insert %s: %w", rec.SessionID, err)
	}
	return nil
}

func (m *Mongo) FindBySession(ctx context.Context, sessionID string) ([]*domain.DurableRecord, error) {
	cur, err := m.coll.Find(ctx,
		bson.D{{Key: "session_id", Value: sessionID}},
		options.Find().SetSort(bson.D{{Key: "persisted_at", Value: 1}, {Key: "record_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: find %s: %w", sessionID, err)
	}

	defer cur.Close(ctx)

	recs := []*domain.DurableRecord{}
	for cur.Next(ctx) {
		rec, err := decodeRecord(cur.Current)
		if err != nil {
			return nil, fmt.Errorf("mongo: decode %s: %w", sessionID, err)
		}
		recs = append(recs, rec)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: find %s: %w", sessionID, err)
	}
	return recs, nil
}

// decodeRecord decodes one archived document. Nested objects inside turns
// and metadata decode to maps so they render back to the JSON they came
// from.
func decodeRecord(raw bson.Raw) (*domain.DurableRecord, error) {
	dec, err := bson.NewDecoder(bsonrw.NewBSONDocumentReader(raw))
	if err != nil {
		return nil, err
	}
	dec.DefaultDocumentM()

	var rec domain.DurableRecord
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo: ping: %w", err)
	}
	return nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.client.Disconnect(ctx); err != nil && err != mongo.ErrClientDisconnected {
		return fmt.Errorf("mongo: disconnect: %w", err)
	}
	return nil
}

var _ Store = (*Mongo)(nil)
