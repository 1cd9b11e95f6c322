package server

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// previewStore keeps the most recent combined documents; the oldest is
// evicted once the limit is reached.
type previewStore struct {
	mu    sync.Mutex
	limit int
	order []string
	docs  map[string]string
}

func newPreviewStore(limit int) *previewStore {
	if limit <= 0 {
		limit = 1
	}
	return &previewStore{limit: limit, docs: make(map[string]string)}
}

func (s *previewStore) put(doc string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.order) >= s.limit {
		delete(s.docs, s.order[0])
		s.order = s.order[1:]
	}
	id := ulid.Make().String()
	s.docs[id] = doc
	s.order = append(s.order, id)
	return id
}

func (s *previewStore) get(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	return doc, ok
}

func (s *previewStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}
