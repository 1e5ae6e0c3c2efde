// Package explorer implements the schema explorer core: the per-session
// organization -> database -> table selection state machine and the pure
// computations derived from the selected table (quality metrics, documentation
// text, assistant replies and the export document).
package explorer

import (
	"fmt"
	"sync"

	"github.com/ekaya-inc/datadoc-engine/pkg/apperrors"
	"github.com/ekaya-inc/datadoc-engine/pkg/models"
)

// Fixtures is the read-only data a session navigates.
type Fixtures interface {
	Catalog() *models.DatabaseCatalog
	Organization(name string) (models.OrganizationProfile, bool)
}

// Session owns the selection state and assistant transcript of one user session.
// All methods are safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	fixtures Fixtures

	state      models.SelectionState
	org        models.OrganizationProfile
	descriptor *models.TableDescriptor
	metrics    *models.QualityMetrics
	messages   []models.ChatMessage
}

// NewSession creates a session with nothing selected.
func NewSession(fixtures Fixtures) *Session {
	return &Session{fixtures: fixtures}
}

// SelectOrganization selects an organization, its default database and the
// first table of that database.
func (s *Session) SelectOrganization(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.fixtures.Organization(name)
	if !ok {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownOrganization, name)
	}
	db, ok := s.fixtures.Catalog().Database(org.DefaultDatabase)
	if !ok {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownDatabase, org.DefaultDatabase)
	}

	s.org = org
	s.state = models.SelectionState{Organization: org.Name, Database: db.Name}
	s.selectTableLocked(db, db.FirstTable())
	return nil
}

// SelectDatabase switches the active database and reselects its first table.
func (s *Session) SelectDatabase(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.HasOrganization() {
		return apperrors.ErrNoOrganization
	}
	db, ok := s.fixtures.Catalog().Database(name)
	if !ok {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownDatabase, name)
	}

	s.state.Database = db.Name
	s.selectTableLocked(db, db.FirstTable())
	return nil
}

// SelectTable selects a table of the active database.
func (s *Session) SelectTable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Database == "" {
		return fmt.Errorf("%w: no database selected", apperrors.ErrInvalidSelection)
	}
	db, ok := s.fixtures.Catalog().Database(s.state.Database)
	if !ok {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownDatabase, s.state.Database)
	}
	if _, ok := db.Table(name); !ok {
		return fmt.Errorf("%w: %q not in %q", apperrors.ErrInvalidSelection, name, db.Name)
	}

	s.selectTableLocked(db, name)
	return nil
}

// Back clears the selection and the assistant transcript.
func (s *Session) Back() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = models.SelectionState{}
	s.org = models.OrganizationProfile{}
	s.descriptor = nil
	s.metrics = nil
	s.messages = nil
}

// Ask answers a free-text query and appends the user message and the reply to
// the transcript, in that order.
func (s *Session) Ask(query string) models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rowCount int64
	if s.descriptor != nil {
		rowCount = s.descriptor.RowCount
	}
	reply := models.ChatMessage{
		Role: models.ChatRoleAssistant,
		Text: RespondToQuery(query, s.metrics, rowCount),
	}
	s.messages = append(s.messages,
		models.ChatMessage{Role: models.ChatRoleUser, Text: query},
		reply,
	)
	return reply
}

// State returns the current selection.
func (s *Session) State() models.SelectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Metrics returns the metrics of the selected table, or nil when none is selected.
func (s *Session) Metrics() *models.QualityMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metrics == nil {
		return nil
	}
	m := *s.metrics
	return &m
}

// Messages returns a copy of the assistant transcript.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage{}, s.messages...)
}

// Snapshot copies everything the explorer view renders.
func (s *Session) Snapshot() models.ExplorerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog := s.fixtures.Catalog()
	snap := models.ExplorerSnapshot{
		Selection: s.state,
		Databases: []string{},
		Tables:    []string{},
		Messages:  append([]models.ChatMessage{}, s.messages...),
	}
	if !s.state.HasOrganization() {
		return snap
	}

	snap.Databases = catalog.DatabaseNames()
	if db, ok := catalog.Database(s.state.Database); ok {
		snap.Tables = db.TableNames()
	}
	if s.descriptor != nil && s.metrics != nil {
		m := *s.metrics
		snap.Columns = append([]models.Column{}, s.descriptor.Columns...)
		snap.RowCount = s.descriptor.RowCount
		snap.LastUpdated = s.descriptor.LastUpdated
		snap.Quality = &m
		snap.Documentation = GenerateDocumentation(s.org.Name, s.state.Table, m, s.descriptor.RowCount)
	}
	return snap
}

// Export builds the export document for the selected table, or returns nil when
// no table is selected.
func (s *Session) Export() *models.ExportDocument {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.descriptor == nil || s.metrics == nil {
		return nil
	}
	doc := BuildExportPayload(s.org.Name, s.state.Database, s.state.Table, *s.descriptor, *s.metrics)
	return &doc
}

// selectTableLocked sets the active table and recomputes its metrics.
// An empty name clears the table. Caller must hold s.mu.
func (s *Session) selectTableLocked(db *models.Database, name string) {
	desc, ok := db.Table(name)
	if name == "" || !ok {
		s.state.Table = ""
		s.descriptor = nil
		s.metrics = nil
		return
	}

	m := ComputeMetrics(*desc)
	s.state.Table = name
	s.descriptor = desc
	s.metrics = &m
}
