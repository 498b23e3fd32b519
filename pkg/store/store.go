// Package store owns the mutable record collections of one reconciliation
// session. All engine components mutate records through it by reference;
// identity is always the record's originalIndex, never slice position.
package store

import (
	"github.com/mgiordano/cotejo/pkg/models"
)

// Store holds both source collections. It is not safe for concurrent use;
// the caller serializes access (single writer per session).
type Store struct {
	tax   []*models.Record
	books []*models.Record

	taxByIndex   map[int]*models.Record
	booksByIndex map[int]*models.Record
}

// New creates an empty store
func New() *Store {
	return &Store{
		taxByIndex:   make(map[int]*models.Record),
		booksByIndex: make(map[int]*models.Record),
	}
}

// Ingest appends raw rows for a source, assigning each record its
// originalIndex and forcing status to Pending with no match id. Indices
// continue from the current collection size so they are never reused
// within a session.
func (s *Store) Ingest(source models.Source, rows []models.Row) {
	collection, byIndex := s.collection(source)
	next := len(*collection)
	for i, row := range rows {
		rec := &models.Record{
			OriginalIndex: next + i,
			Source:        source,
			Fields:        row,
			Status:        models.StatusPending,
		}
		*collection = append(*collection, rec)
		byIndex[rec.OriginalIndex] = rec
	}
}

// Load restores persisted records with their statuses and match ids
// intact. Used when reopening a saved session.
func (s *Store) Load(records []models.Record) {
	for i := range records {
		rec := records[i]
		collection, byIndex := s.collection(rec.Source)
		copied := rec
		*collection = append(*collection, &copied)
		byIndex[copied.OriginalIndex] = &copied
	}
}

// Records returns the ordered collection for a source. The slice is shared
// with the store; callers must not reorder it.
func (s *Store) Records(source models.Source) []*models.Record {
	if source == models.SourceBooks {
		return s.books
	}
	return s.tax
}

// ByIndex finds a record by its originalIndex
func (s *Store) ByIndex(source models.Source, index int) (*models.Record, bool) {
	_, byIndex := s.collection(source)
	rec, ok := byIndex[index]
	return rec, ok
}

// Group returns every record across both sources sharing a match id
func (s *Store) Group(matchID string) []*models.Record {
	if matchID == "" {
		return nil
	}
	var group []*models.Record
	for _, rec := range s.tax {
		if rec.MatchID == matchID {
			group = append(group, rec)
		}
	}
	for _, rec := range s.books {
		if rec.MatchID == matchID {
			group = append(group, rec)
		}
	}
	return group
}

// SetComment annotates a record independent of its reconciliation state.
// Unknown indices are ignored.
func (s *Store) SetComment(source models.Source, index int, comment string) bool {
	rec, ok := s.ByIndex(source, index)
	if !ok {
		return false
	}
	rec.Comment = comment
	return true
}

// Len reports the record count for a source
func (s *Store) Len(source models.Source) int {
	collection, _ := s.collection(source)
	return len(*collection)
}

func (s *Store) collection(source models.Source) (*[]*models.Record, map[int]*models.Record) {
	if source == models.SourceBooks {
		return &s.books, s.booksByIndex
	}
	return &s.tax, s.taxByIndex
}
