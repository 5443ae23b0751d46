// Package mongo implements the soltrace event store on top of
// MongoDB.
package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/lugondev/soltrace/internal/storage"
)

// EventStore is the MongoDB-backed storage.Store implementation.
type EventStore struct {
	client   *mongo.Client
	database *mongo.Database
	events   *mongo.Collection
}

// databaseNameOf extracts the path component of a mongodb:// URL as
// the database name, defaulting to "soltrace" when the URL carries
// none (e.g. "mongodb://localhost:27017").
func databaseNameOf(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "soltrace"
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "soltrace"
	}
	return name
}

// Open connects to url (a mongodb:// URI) and returns a Store; call
// Initialize before first use.
func Open(ctx context.Context, url string) (*EventStore, error) {
	clientOpts := options.Client().
		ApplyURI(url).
		SetConnectTimeout(10 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	database := client.Database(databaseNameOf(url))
	return &EventStore{
		client:   client,
		database: database,
		events:   database.Collection("events"),
	}, nil
}

// Initialize creates the events collection's unique index on
// signature, the invariant that makes a duplicate insert a no-op
// instead of a constraint violation.
func (s *EventStore) Initialize(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "signature", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "program_id", Value: 1}}},
		{Keys: bson.D{{Key: "event_name", Value: 1}}},
	}
	if _, err := s.events.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

// InsertEvent inserts event, returning inserted=false (not an error)
// if its signature already exists.
func (s *EventStore) InsertEvent(ctx context.Context, event *storage.EventModel) (bool, error) {
	_, err := s.events.InsertOne(ctx, event)
	if err == nil {
		return true, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	return false, fmt.Errorf("insert event: %w", err)
}

// FindBySignature is used by tests to assert what InsertEvent wrote.
func (s *EventStore) FindBySignature(ctx context.Context, signature string) (*storage.EventModel, error) {
	var ev storage.EventModel
	err := s.events.FindOne(ctx, bson.M{"signature": signature}).Decode(&ev)
	if err != nil {
		return nil, fmt.Errorf("find by signature: %w", err)
	}
	return &ev, nil
}

// Close disconnects the client.
func (s *EventStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping checks connectivity against the primary.
func (s *EventStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}
