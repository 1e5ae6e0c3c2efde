package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/datadoc-engine/pkg/apperrors"
	"github.com/ekaya-inc/datadoc-engine/pkg/explorer"
	"github.com/ekaya-inc/datadoc-engine/pkg/fixtures"
	"github.com/ekaya-inc/datadoc-engine/pkg/models"
	"github.com/ekaya-inc/datadoc-engine/pkg/repositories"
)

func newTestExplorerService(t *testing.T) (ExplorerService, repositories.SessionRepository) {
	t.Helper()
	store, err := fixtures.Default()
	require.NoError(t, err)
	sessions := repositories.NewSessionRepository(time.Hour, time.Hour)
	return NewExplorerService(store, sessions, zap.NewNop()), sessions
}

func TestExplorerService_Catalog(t *testing.T) {
	svc, _ := newTestExplorerService(t)
	ctx := context.Background()

	orgs := svc.Organizations(ctx)
	require.Len(t, orgs, 3)
	assert.Equal(t, "LMS", orgs[0].Name)

	assert.Equal(t, []string{"PostgreSQL", "Snowflake", "SQL Server"}, svc.Databases(ctx))
	assert.Equal(t, models.OverviewStats{
		TotalOrganizations: 3,
		TotalDatabases:     3,
		TotalTables:        15,
		AvgHealthScore:     94,
	}, svc.Overview(ctx))
}

func TestExplorerService_NewSessionStartsEmpty(t *testing.T) {
	svc, sessions := newTestExplorerService(t)
	ctx := context.Background()

	snap := svc.Snapshot(ctx, uuid.New())

	assert.False(t, snap.Selection.HasOrganization())
	assert.Empty(t, snap.Messages)
	assert.Equal(t, 1, sessions.Count(ctx))
}

func TestExplorerService_SessionsAreIsolated(t *testing.T) {
	svc, _ := newTestExplorerService(t)
	ctx := context.Background()
	first, second := uuid.New(), uuid.New()

	_, err := svc.SelectOrganization(ctx, first, "Finance")
	require.NoError(t, err)
	svc.Ask(ctx, first, "rows")

	assert.Equal(t, "Finance", svc.Snapshot(ctx, first).Selection.Organization)
	assert.False(t, svc.Snapshot(ctx, second).Selection.HasOrganization())
	assert.Empty(t, svc.Snapshot(ctx, second).Messages)
}

func TestExplorerService_Walkthrough(t *testing.T) {
	svc, _ := newTestExplorerService(t)
	ctx := context.Background()
	id := uuid.New()

	snap, err := svc.SelectOrganization(ctx, id, "LMS")
	require.NoError(t, err)
	assert.Equal(t, models.SelectionState{Organization: "LMS", Database: "PostgreSQL", Table: "users"}, snap.Selection)
	require.NotNil(t, snap.Quality)
	assert.Equal(t, 99.81, snap.Quality.CompletenessPct)

	snap, err = svc.SelectTable(ctx, id, "enrollments")
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Quality.DuplicateKeyCount)

	reply, state := svc.Ask(ctx, id, "Any DUPLICATE keys?")
	assert.Equal(t, "Duplicate keys: 2", reply.Text)
	assert.Equal(t, "enrollments", state.Table)

	snap, err = svc.SelectDatabase(ctx, id, "SQL Server")
	require.NoError(t, err)
	assert.Equal(t, "leads", snap.Selection.Table)
	assert.Len(t, snap.Messages, 2)

	doc := svc.Export(ctx, id)
	require.NotNil(t, doc)
	assert.Equal(t, "SQL Server", doc.Database)
	assert.Equal(t, "leads", doc.Table)

	snap = svc.Back(ctx, id)
	assert.Equal(t, models.SelectionState{}, snap.Selection)
	assert.Empty(t, snap.Messages)
	assert.Nil(t, svc.Export(ctx, id))
}

func TestExplorerService_Errors(t *testing.T) {
	svc, _ := newTestExplorerService(t)
	ctx := context.Background()
	id := uuid.New()

	_, err := svc.SelectDatabase(ctx, id, "Snowflake")
	assert.ErrorIs(t, err, apperrors.ErrNoOrganization)

	_, err = svc.SelectOrganization(ctx, id, "HR")
	assert.ErrorIs(t, err, apperrors.ErrUnknownOrganization)

	_, err = svc.SelectTable(ctx, id, "users")
	assert.ErrorIs(t, err, apperrors.ErrInvalidSelection)

	_, err = svc.SelectOrganization(ctx, id, "LMS")
	require.NoError(t, err)
	_, err = svc.SelectDatabase(ctx, id, "Oracle")
	assert.ErrorIs(t, err, apperrors.ErrUnknownDatabase)
}

func TestExplorerService_ExpiredSessionStartsFresh(t *testing.T) {
	store, err := fixtures.Default()
	require.NoError(t, err)
	sessions := repositories.NewSessionRepository(200*time.Millisecond, time.Hour)
	svc := NewExplorerService(store, sessions, zap.NewNop())
	ctx := context.Background()
	id := uuid.New()

	_, err = svc.SelectOrganization(ctx, id, "CRM")
	require.NoError(t, err)

	time.Sleep(400 * time.Millisecond)

	assert.False(t, svc.Snapshot(ctx, id).Selection.HasOrganization())
}

func TestExplorerService_ConcurrentFirstRequestsShareSession(t *testing.T) {
	svc, sessions := newTestExplorerService(t)
	ctx := context.Background()
	id := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Ask(ctx, id, "rows")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, sessions.Count(ctx))
	assert.Len(t, svc.Snapshot(ctx, id).Messages, 20)
	for _, msg := range svc.Snapshot(ctx, id).Messages {
		if msg.Role == models.ChatRoleAssistant {
			assert.Equal(t, explorer.NoTableResponse, msg.Text)
		}
	}
}
