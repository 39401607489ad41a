package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"learnlink-server/internal/domain"
)

// MemoryStore is an in-process domain.DocumentStore for local development and tests
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]interface{}
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]map[string]interface{})}
}

// Get returns the raw JSON of one document
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return json.Marshal(doc)
}

// Put replaces (or creates) a document
func (s *MemoryStore) Put(ctx context.Context, collection, id string, v interface{}) error {
	doc, err := domain.ToDocument(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]interface{})
	}
	s.collections[collection][id] = doc
	return nil
}

// Merge sets the given field paths on an existing document
func (s *MemoryStore) Merge(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return domain.ErrNotFound
	}
	return domain.ApplyMerge(doc, fields)
}

// FindByField returns documents whose field equals value, ordered by id
func (s *MemoryStore) FindByField(ctx context.Context, collection, field, value string) ([]domain.StoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.StoredDocument
	for id, doc := range s.collections[collection] {
		v, ok := domain.FieldValue(doc, field)
		if !ok || fmt.Sprint(v) != value {
			continue
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.StoredDocument{ID: id, Data: raw})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// List returns every document in a collection, ordered by id
func (s *MemoryStore) List(ctx context.Context, collection string) ([]domain.StoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StoredDocument, 0, len(s.collections[collection]))
	for id, doc := range s.collections[collection] {
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.StoredDocument{ID: id, Data: raw})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes a document
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.collections[collection], id)
	return nil
}
