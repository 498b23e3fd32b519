// Package session keeps the live working state of open reconciliations.
// Persistence is explicit: a session only reaches the database when the
// operator saves it.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mgiordano/cotejo/pkg/ingest"
	"github.com/mgiordano/cotejo/pkg/models"
	"github.com/mgiordano/cotejo/pkg/store"
)

// Session is one operator's in-flight reconciliation. Callers hold the
// lock across any read-modify sequence on the store.
type Session struct {
	sync.Mutex

	ID        string
	Name      string
	CreatedAt time.Time

	// ReconciliationID links the session to its saved row, empty until
	// the first save.
	ReconciliationID string

	Mapping          models.ColumnMapping
	ColumnVisibility []byte

	Uploads map[models.Source]*ingest.Upload
	Store   *store.Store
}

// SetUpload replaces a source's extract and proposes column mappings for
// any side the operator hasn't set yet.
func (s *Session) SetUpload(source models.Source, upload *ingest.Upload) {
	s.Uploads[source] = upload

	idColumn, amountColumn := ingest.GuessColumns(source, upload.Columns)
	if source == models.SourceTax {
		if s.Mapping.TaxIDColumn == "" {
			s.Mapping.TaxIDColumn = idColumn
		}
		if s.Mapping.TaxAmountColumn == "" {
			s.Mapping.TaxAmountColumn = amountColumn
		}
		return
	}
	if s.Mapping.BooksIDColumn == "" {
		s.Mapping.BooksIDColumn = idColumn
	}
	if s.Mapping.BooksAmountColumn == "" {
		s.Mapping.BooksAmountColumn = amountColumn
	}
}

// ResetStore rebuilds the record store from the current uploads, wiping
// all match state. Run before every matching pass so re-uploads take
// effect.
func (s *Session) ResetStore() {
	st := store.New()
	if up, ok := s.Uploads[models.SourceTax]; ok {
		st.Ingest(models.SourceTax, up.Rows)
	}
	if up, ok := s.Uploads[models.SourceBooks]; ok {
		st.Ingest(models.SourceBooks, up.Rows)
	}
	s.Store = st
}

// HasBothUploads reports whether matching can run
func (s *Session) HasBothUploads() bool {
	_, tax := s.Uploads[models.SourceTax]
	_, books := s.Uploads[models.SourceBooks]
	return tax && books
}

// Manager is the in-memory session registry
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// Create registers a new empty session
func (m *Manager) Create(name string) *Session {
	s := &Session{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Uploads:   make(map[models.Source]*ingest.Upload),
		Store:     store.New(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return s
}

// Get finds a session by id
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete drops a session from the registry
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// List returns all open sessions ordered by creation time
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions
}
