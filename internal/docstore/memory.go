package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/udecfit/backend/internal/model"
)

// MemoryStore implements Store using in-memory maps. Used in DEV_MODE and
// in tests.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]model.Document
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]model.Document)}
}

func (s *MemoryStore) ListCollections(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.collections))
	for name, docs := range s.collections {
		if len(docs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) ExportCollection(ctx context.Context, collection string) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var docs []model.Document
	for _, doc := range s.collections[collection] {
		docs = append(docs, cloneDocument(doc))
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *MemoryStore) ImportCollection(ctx context.Context, collection string, docs []model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.collections[collection]
	if target == nil {
		target = make(map[string]model.Document)
		s.collections[collection] = target
	}
	for _, doc := range docs {
		target[doc.ID] = cloneDocument(doc)
	}
	return nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, collection, id string) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneDocument(doc)
	return &out, nil
}

func (s *MemoryStore) PutDocument(ctx context.Context, collection string, doc model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.collections[collection]
	if target == nil {
		target = make(map[string]model.Document)
		s.collections[collection] = target
	}
	target[doc.ID] = cloneDocument(doc)
	return nil
}

// cloneDocument copies the document so callers cannot mutate stored state.
func cloneDocument(doc model.Document) model.Document {
	data := make(map[string]any, len(doc.Data))
	for k, v := range doc.Data {
		data[k] = v
	}
	return model.Document{ID: doc.ID, Data: data}
}
