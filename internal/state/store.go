// Package state holds the canonical in-memory word cloud: the word entries,
// the current connection list and the running submission counter.
//
// The store is volatile. It is created empty, cleared by Reset and lost when
// the process exits. Every method runs to completion under the store's lock,
// so no caller ever observes a partial update.
package state

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
)

// Store is the shared word cloud state.
type Store struct {
	mu          sync.RWMutex
	words       map[string]*Entry
	order       []string // first-insertion order of keys in words
	connections json.RawMessage
	total       int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		words:       make(map[string]*Entry),
		connections: emptyConnections,
	}
}

// Normalize lowercases and trims a submitted word. An empty result means the
// word is not storable.
func Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// PutOrIncrement records one submission of word. A new word is stored with
// count 1 and the given embedding; a known word has its count incremented and
// keeps its first embedding and its color. The submission counter is bumped
// once per accepted submission.
//
// ok is false when the normalized word is empty; nothing changes in that case.
func (s *Store) PutOrIncrement(word string, embedding Embedding) (key string, entry Entry, total int, ok bool) {
	key = Normalize(word)
	if key == "" {
		return "", Entry{}, 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.words[key]
	if exists {
		e.Count++
	} else {
		e = &Entry{Count: 1, Embedding: cloneEmbedding(embedding)}
		s.words[key] = e
		s.order = append(s.order, key)
	}
	s.total++

	return key, copyEntry(e), s.total, true
}

// SetColor overwrites the color of an existing word. A nil color clears it.
// ok is false, and nothing changes, when the word has never been submitted.
func (s *Store) SetColor(word string, color *string) (key string, ok bool) {
	key = Normalize(word)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.words[key]
	if !exists {
		return key, false
	}
	e.Color = cloneColor(color)
	return key, true
}

// ReplaceConnections swaps in a new connection list wholesale. The payload is
// not inspected. A missing payload is stored as JSON null.
func (s *Store) ReplaceConnections(list json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(bytes.TrimSpace(list)) == 0 {
		s.connections = json.RawMessage("null")
		return
	}
	s.connections = cloneRaw(list)
}

// Reset clears every word, the connection list and the submission counter.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.words = make(map[string]*Entry)
	s.order = nil
	s.connections = emptyConnections
	s.total = 0
}

// Get returns a copy of the entry stored for word.
func (s *Store) Get(word string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.words[Normalize(word)]
	if !ok {
		return Entry{}, false
	}
	return copyEntry(e), true
}

// Connections returns a copy of the current connection list.
func (s *Store) Connections() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRaw(s.connections)
}

// Len returns the number of distinct words.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// TotalSubmissions returns the number of accepted submissions since the last
// reset.
func (s *Store) TotalSubmissions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// Snapshot returns a deep copy of the whole store. Words are listed in the
// order they were first submitted.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	words := make([]Word, 0, len(s.order))
	for _, key := range s.order {
		e := s.words[key]
		words = append(words, Word{
			Text:      key,
			Count:     e.Count,
			Embedding: cloneEmbedding(e.Embedding),
			Color:     cloneColor(e.Color),
		})
	}

	return Snapshot{
		Words:            words,
		Connections:      cloneRaw(s.connections),
		TotalSubmissions: s.total,
	}
}

func copyEntry(e *Entry) Entry {
	return Entry{
		Count:     e.Count,
		Embedding: cloneEmbedding(e.Embedding),
		Color:     cloneColor(e.Color),
	}
}

func cloneEmbedding(v Embedding) Embedding {
	if v == nil {
		return nil
	}
	out := make(Embedding, len(v))
	copy(out, v)
	return out
}

func cloneColor(c *string) *string {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
