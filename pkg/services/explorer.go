package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/datadoc-engine/pkg/explorer"
	"github.com/ekaya-inc/datadoc-engine/pkg/models"
	"github.com/ekaya-inc/datadoc-engine/pkg/repositories"
)

// FixtureSource is the read-only catalog and organization list the explorer serves.
type FixtureSource interface {
	explorer.Fixtures
	Organizations() []models.OrganizationProfile
}

// ExplorerService runs explorer sessions on behalf of HTTP and CLI callers.
// Unknown or expired session IDs start a fresh session with nothing selected.
type ExplorerService interface {
	Organizations(ctx context.Context) []models.OrganizationProfile
	Overview(ctx context.Context) models.OverviewStats
	Databases(ctx context.Context) []string

	Snapshot(ctx context.Context, sessionID uuid.UUID) models.ExplorerSnapshot
	SelectOrganization(ctx context.Context, sessionID uuid.UUID, name string) (models.ExplorerSnapshot, error)
	SelectDatabase(ctx context.Context, sessionID uuid.UUID, name string) (models.ExplorerSnapshot, error)
	SelectTable(ctx context.Context, sessionID uuid.UUID, name string) (models.ExplorerSnapshot, error)
	Back(ctx context.Context, sessionID uuid.UUID) models.ExplorerSnapshot
	Ask(ctx context.Context, sessionID uuid.UUID, query string) (models.ChatMessage, models.SelectionState)
	// Export returns nil when the session has no table selected.
	Export(ctx context.Context, sessionID uuid.UUID) *models.ExportDocument
}

type explorerService struct {
	fixtures FixtureSource
	sessions repositories.SessionRepository
	logger   *zap.Logger

	// Serializes get-or-create so concurrent first requests share one session.
	mu sync.Mutex
}

// NewExplorerService creates a new explorer service.
func NewExplorerService(fixtures FixtureSource, sessions repositories.SessionRepository, logger *zap.Logger) ExplorerService {
	return &explorerService{
		fixtures: fixtures,
		sessions: sessions,
		logger:   logger.Named("explorer"),
	}
}

var _ ExplorerService = (*explorerService)(nil)

func (s *explorerService) Organizations(ctx context.Context) []models.OrganizationProfile {
	return s.fixtures.Organizations()
}

func (s *explorerService) Overview(ctx context.Context) models.OverviewStats {
	return explorer.ComputeOverview(s.fixtures.Catalog(), s.fixtures.Organizations())
}

func (s *explorerService) Databases(ctx context.Context) []string {
	return s.fixtures.Catalog().DatabaseNames()
}

func (s *explorerService) Snapshot(ctx context.Context, sessionID uuid.UUID) models.ExplorerSnapshot {
	return s.session(ctx, sessionID).Snapshot()
}

func (s *explorerService) SelectOrganization(ctx context.Context, sessionID uuid.UUID, name string) (models.ExplorerSnapshot, error) {
	session := s.session(ctx, sessionID)
	if err := session.SelectOrganization(name); err != nil {
		s.logger.Debug("Organization selection rejected",
			zap.String("session_id", sessionID.String()),
			zap.String("organization", name),
			zap.Error(err))
		return models.ExplorerSnapshot{}, err
	}

	state := session.State()
	s.logger.Info("Organization selected",
		zap.String("session_id", sessionID.String()),
		zap.String("organization", state.Organization),
		zap.String("database", state.Database),
		zap.String("table", state.Table))
	return session.Snapshot(), nil
}

func (s *explorerService) SelectDatabase(ctx context.Context, sessionID uuid.UUID, name string) (models.ExplorerSnapshot, error) {
	session := s.session(ctx, sessionID)
	if err := session.SelectDatabase(name); err != nil {
		s.logger.Debug("Database selection rejected",
			zap.String("session_id", sessionID.String()),
			zap.String("database", name),
			zap.Error(err))
		return models.ExplorerSnapshot{}, err
	}

	s.logger.Debug("Database selected",
		zap.String("session_id", sessionID.String()),
		zap.String("database", name),
		zap.String("table", session.State().Table))
	return session.Snapshot(), nil
}

func (s *explorerService) SelectTable(ctx context.Context, sessionID uuid.UUID, name string) (models.ExplorerSnapshot, error) {
	session := s.session(ctx, sessionID)
	if err := session.SelectTable(name); err != nil {
		s.logger.Debug("Table selection rejected",
			zap.String("session_id", sessionID.String()),
			zap.String("table", name),
			zap.Error(err))
		return models.ExplorerSnapshot{}, err
	}

	s.logger.Debug("Table selected",
		zap.String("session_id", sessionID.String()),
		zap.String("table", name))
	return session.Snapshot(), nil
}

func (s *explorerService) Back(ctx context.Context, sessionID uuid.UUID) models.ExplorerSnapshot {
	session := s.session(ctx, sessionID)
	session.Back()
	s.logger.Debug("Explorer reset", zap.String("session_id", sessionID.String()))
	return session.Snapshot()
}

func (s *explorerService) Ask(ctx context.Context, sessionID uuid.UUID, query string) (models.ChatMessage, models.SelectionState) {
	session := s.session(ctx, sessionID)
	return session.Ask(query), session.State()
}

func (s *explorerService) Export(ctx context.Context, sessionID uuid.UUID) *models.ExportDocument {
	return s.session(ctx, sessionID).Export()
}

// session returns the stored session for id, creating it when absent.
func (s *explorerService) session(ctx context.Context, id uuid.UUID) *explorer.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions.Get(ctx, id); ok {
		return session
	}

	session := explorer.NewSession(s.fixtures)
	s.sessions.Save(ctx, id, session)
	s.logger.Debug("Explorer session started",
		zap.String("session_id", id.String()),
		zap.Int("active_sessions", s.sessions.Count(ctx)))
	return session
}
