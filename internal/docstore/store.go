// Package docstore keeps the rendered documents in memory, keyed by section id.
package docstore

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dgallion1/docdeck/internal/doctree"
)

// Store is a thread-safe registry of built documents. Documents are returned
// in the order given at construction (page order); unknown ids sort last.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]*doctree.Document
	order map[string]int
}

// New creates a store that lists documents in the given id order.
func New(order []string) *Store {
	s := &Store{
		docs:  make(map[string]*doctree.Document),
		order: make(map[string]int, len(order)),
	}
	for i, id := range order {
		s.order[id] = i
	}
	return s
}

// Put stores or replaces a document. Documents are immutable once stored.
func (s *Store) Put(doc *doctree.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
}

// Get returns a document by id, or nil.
func (s *Store) Get(id string) *doctree.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[id]
}

// Delete removes a document and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[id]
	delete(s.docs, id)
	return ok
}

// Hash returns the content hash of a stored document ("" if absent).
func (s *Store) Hash(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d := s.docs[id]; d != nil {
		return d.ContentHash
	}
	return ""
}

// List returns all documents in page order.
func (s *Store) List() []*doctree.Document {
	s.mu.RLock()
	out := make([]*doctree.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b *doctree.Document) int {
		if c := cmp.Compare(s.rank(a.ID), s.rank(b.ID)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// AnchorIDs returns every navigable id: document ids followed by their
// heading ids, in page order.
func (s *Store) AnchorIDs() []string {
	var ids []string
	for _, d := range s.List() {
		ids = append(ids, d.ID)
		for _, h := range d.Headings {
			ids = append(ids, h.ID)
		}
	}
	return ids
}

func (s *Store) rank(id string) int {
	if r, ok := s.order[id]; ok {
		return r
	}
	return len(s.order)
}
