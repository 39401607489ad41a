package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"learnlink-server/internal/domain"
)

// DocumentStore keeps each collection in a table of (id text primary key, data jsonb).
// Writes to one row are serialized within the process; across instances the last write wins.
type DocumentStore struct {
	client *Client
	logger domain.Logger
	rows   keyedMutex
}

type row struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// NewDocumentStore creates a PostgREST-backed document store
func NewDocumentStore(client *Client, logger domain.Logger) *DocumentStore {
	return &DocumentStore{client: client, logger: logger}
}

// Get returns one document's data
func (s *DocumentStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	data, _, err := s.client.DB().From(collection).
		Select("id,data", "", false).
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return rows[0].Data, nil
}

// Put upserts a whole document
func (s *DocumentStore) Put(ctx context.Context, collection, id string, v interface{}) error {
	unlock := s.rows.Lock(collection + "/" + id)
	defer unlock()

	doc, err := domain.ToDocument(v)
	if err != nil {
		return err
	}
	clean, err := sanitize(doc)
	if err != nil {
		return err
	}

	_, _, err = s.client.DB().From(collection).
		Insert(map[string]interface{}{"id": id, "data": clean}, true, "id", "", "").
		Execute()
	if err != nil {
		s.logger.Error("Failed to upsert document in Supabase", err, "collection", collection, "id", id)
		return fmt.Errorf("failed to put %s/%s: %w", collection, id, err)
	}
	return nil
}

// Merge applies field paths with a read-modify-write of the data column,
// holding the row lock so concurrent merges of one document cannot drop each other's fields
func (s *DocumentStore) Merge(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	unlock := s.rows.Lock(collection + "/" + id)
	defer unlock()

	raw, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	if err := domain.ApplyMerge(doc, fields); err != nil {
		return err
	}
	clean, err := sanitize(doc)
	if err != nil {
		return err
	}

	_, _, err = s.client.DB().From(collection).
		Update(map[string]interface{}{"data": clean}, "", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to merge %s/%s: %w", collection, id, err)
	}
	return nil
}

// FindByField filters on a top-level key of the data column
func (s *DocumentStore) FindByField(ctx context.Context, collection, field, value string) ([]domain.StoredDocument, error) {
	data, _, err := s.client.DB().From(collection).
		Select("id,data", "", false).
		Eq("data->>"+field, value).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s by %s: %w", collection, field, err)
	}
	return toStored(data)
}

// List returns every row of a collection
func (s *DocumentStore) List(ctx context.Context, collection string) ([]domain.StoredDocument, error) {
	data, _, err := s.client.DB().From(collection).
		Select("id,data", "", false).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return toStored(data)
}

// Delete removes a row
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	unlock := s.rows.Lock(collection + "/" + id)
	defer unlock()

	if _, err := s.Get(ctx, collection, id); err != nil {
		return err
	}
	_, _, err := s.client.DB().From(collection).
		Delete("", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// keyedMutex hands out one lock per key and forgets keys nobody holds
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

// Lock blocks until key is free and returns its unlock func
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func decodeRows(data []byte) ([]row, error) {
	var rows []row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	return rows, nil
}

func toStored(data []byte) ([]domain.StoredDocument, error) {
	rows, err := decodeRows(data)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StoredDocument, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.StoredDocument{ID: r.ID, Data: r.Data})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// control character escapes make PostgreSQL reject jsonb with 22P05
var controlEscapes = regexp.MustCompile(`\\u00[0-1][0-9a-fA-F]`)

// sanitize strips control character escapes from a document and returns it re-parsed
func sanitize(doc map[string]interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	cleaned := controlEscapes.ReplaceAll(raw, nil)

	var out map[string]interface{}
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return nil, fmt.Errorf("failed to validate cleaned JSON: %w", err)
	}
	return out, nil
}
