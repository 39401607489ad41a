package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"learnlink-server/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect opens a connection and verifies it. Caller should call client.Disconnect(ctx).
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// DocumentStore maps collections onto MongoDB collections keyed by _id
type DocumentStore struct {
	db *mongo.Database
}

// NewDocumentStore creates a MongoDB-backed document store
func NewDocumentStore(db *mongo.Database) *DocumentStore {
	return &DocumentStore{db: db}
}

// Get returns one document as JSON without the _id key
func (s *DocumentStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo get %s/%s: %w", collection, id, err)
	}
	return encode(doc)
}

// Put replaces or inserts a whole document
func (s *DocumentStore) Put(ctx context.Context, collection, id string, v interface{}) error {
	doc, err := domain.ToDocument(v)
	if err != nil {
		return err
	}
	doc["_id"] = id
	_, err = s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo put %s/%s: %w", collection, id, err)
	}
	return nil
}

// Merge $sets the given dotted paths
func (s *DocumentStore) Merge(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	set := bson.M{}
	for path, value := range fields {
		plain, err := domain.ToPlain(value)
		if err != nil {
			return fmt.Errorf("encode field %s: %w", path, err)
		}
		set[path] = plain
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("mongo merge %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindByField returns documents whose field equals value, ordered by _id
func (s *DocumentStore) FindByField(ctx context.Context, collection, field, value string) ([]domain.StoredDocument, error) {
	return s.find(ctx, collection, bson.M{field: value})
}

// List returns every document of a collection, ordered by _id
func (s *DocumentStore) List(ctx context.Context, collection string) ([]domain.StoredDocument, error) {
	return s.find(ctx, collection, bson.M{})
}

// Delete removes a document
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *DocumentStore) find(ctx context.Context, collection string, filter bson.M) ([]domain.StoredDocument, error) {
	cur, err := s.db.Collection(collection).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo find %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	out := []domain.StoredDocument{}
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		id := fmt.Sprint(doc["_id"])
		raw, err := encode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.StoredDocument{ID: id, Data: raw})
	}
	return out, cur.Err()
}

func encode(doc bson.M) (json.RawMessage, error) {
	delete(doc, "_id")
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode mongo document: %w", err)
	}
	return raw, nil
}
