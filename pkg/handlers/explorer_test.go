package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/datadoc-engine/pkg/audit"
	"github.com/ekaya-inc/datadoc-engine/pkg/auth"
	"github.com/ekaya-inc/datadoc-engine/pkg/fixtures"
	"github.com/ekaya-inc/datadoc-engine/pkg/models"
	"github.com/ekaya-inc/datadoc-engine/pkg/repositories"
	"github.com/ekaya-inc/datadoc-engine/pkg/services"
	"github.com/ekaya-inc/datadoc-engine/pkg/testhelpers"
)

type explorerTestEnv struct {
	server *httptest.Server
	client *http.Client
	logs   *observer.ObservedLogs
}

func newExplorerTestEnv(t *testing.T, authMiddleware *auth.Middleware) *explorerTestEnv {
	t.Helper()

	logger, logs := testhelpers.NewObservedLogger(t)

	store, err := fixtures.Default()
	require.NoError(t, err)
	sessions := repositories.NewSessionRepository(time.Hour, time.Hour)
	svc := services.NewExplorerService(store, sessions, logger)

	if authMiddleware == nil {
		authMiddleware = auth.NewMiddleware(nil, false, logger)
	}

	mux := http.NewServeMux()
	handler := NewExplorerHandler(svc, auth.NewSessionCookies("test-cookie-secret", 3600, false), audit.NewSecurityAuditor(logger), logger)
	handler.RegisterRoutes(mux, authMiddleware)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &explorerTestEnv{
		server: server,
		client: &http.Client{Jar: jar},
		logs:   logs,
	}
}

func (e *explorerTestEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// decodeData decodes an ApiResponse envelope and unmarshals its data into dst.
func decodeData(t *testing.T, resp *http.Response, dst any) ApiResponse {
	t.Helper()

	var envelope struct {
		ApiResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	if dst != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, dst))
	}
	return envelope.ApiResponse
}

func TestExplorerHandler_Catalog(t *testing.T) {
	env := newExplorerTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/api/organizations", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var orgs []models.OrganizationProfile
	envelope := decodeData(t, resp, &orgs)
	assert.True(t, envelope.Success)
	require.Len(t, orgs, 3)
	assert.Equal(t, models.OrganizationProfile{Name: "LMS", DefaultDatabase: "PostgreSQL", TableCount: 5, LastSync: "2 hours ago", HealthScore: 96}, orgs[0])

	resp = env.do(t, http.MethodGet, "/api/overview", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var overview models.OverviewStats
	decodeData(t, resp, &overview)
	assert.Equal(t, 94, overview.AvgHealthScore)
	assert.Equal(t, 15, overview.TotalTables)

	resp = env.do(t, http.MethodGet, "/api/databases", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var databases []string
	decodeData(t, resp, &databases)
	assert.Equal(t, []string{"PostgreSQL", "Snowflake", "SQL Server"}, databases)
}

func TestExplorerHandler_Walkthrough(t *testing.T) {
	env := newExplorerTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/api/explorer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap models.ExplorerSnapshot
	decodeData(t, resp, &snap)
	assert.False(t, snap.Selection.HasOrganization())

	resp = env.do(t, http.MethodPost, "/api/explorer/organization", SelectRequest{Name: "LMS"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, resp, &snap)
	assert.Equal(t, models.SelectionState{Organization: "LMS", Database: "PostgreSQL", Table: "users"}, snap.Selection)
	require.NotNil(t, snap.Quality)
	assert.Equal(t, 99.81, snap.Quality.CompletenessPct)
	assert.Contains(t, snap.Documentation, "Records: 12,500")

	resp = env.do(t, http.MethodPost, "/api/explorer/database", SelectRequest{Name: "Snowflake"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, resp, &snap)
	assert.Equal(t, "transactions", snap.Selection.Table)

	resp = env.do(t, http.MethodPost, "/api/explorer/table", SelectRequest{Name: "budgets"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, resp, &snap)
	assert.Equal(t, "budgets", snap.Selection.Table)

	resp = env.do(t, http.MethodPost, "/api/explorer/chat", ChatRequest{Query: "How many ROWS?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var chat ChatResponse
	decodeData(t, resp, &chat)
	assert.Equal(t, models.ChatRoleAssistant, chat.Reply.Role)
	assert.Regexp(t, `^[0-9,]+ rows available\.$`, chat.Reply.Text)
	assert.Equal(t, "budgets", chat.Selection.Table)

	// Session state survives across requests through the cookie.
	resp = env.do(t, http.MethodGet, "/api/explorer", nil)
	decodeData(t, resp, &snap)
	assert.Len(t, snap.Messages, 2)

	resp = env.do(t, http.MethodPost, "/api/explorer/back", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = models.ExplorerSnapshot{}
	decodeData(t, resp, &snap)
	assert.Equal(t, models.SelectionState{}, snap.Selection)
	assert.Empty(t, snap.Messages)
}

func TestExplorerHandler_SelectionErrors(t *testing.T) {
	env := newExplorerTestEnv(t, nil)

	tests := []struct {
		name       string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"database before organization", "/api/explorer/database", SelectRequest{Name: "Snowflake"}, http.StatusConflict, "no_organization"},
		{"table before database", "/api/explorer/table", SelectRequest{Name: "users"}, http.StatusUnprocessableEntity, "invalid_selection"},
		{"unknown organization", "/api/explorer/organization", SelectRequest{Name: "HR"}, http.StatusNotFound, "unknown_organization"},
		{"malformed body", "/api/explorer/organization", "{not json", http.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			envelope := decodeData(t, resp, nil)
			assert.False(t, envelope.Success)
			assert.Equal(t, tt.wantCode, envelope.Error)
		})
	}

	resp := env.do(t, http.MethodPost, "/api/explorer/organization", SelectRequest{Name: "LMS"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/explorer/database", SelectRequest{Name: "Oracle"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/explorer/table", SelectRequest{Name: "transactions"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestExplorerHandler_Export(t *testing.T) {
	env := newExplorerTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/api/explorer/export", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	env.do(t, http.MethodPost, "/api/explorer/organization", SelectRequest{Name: "Finance"})

	resp = env.do(t, http.MethodGet, "/api/explorer/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename=transactions.json`, resp.Header.Get("Content-Disposition"))

	var doc models.ExportDocument
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "Finance", doc.Organization)
	assert.Equal(t, "Snowflake", doc.Database)
	assert.Equal(t, "transactions", doc.Table)
	assert.Equal(t, int64(3), doc.Quality.DuplicateKeyCount)
	assert.Contains(t, doc.Summary, "needs review")

	resp = env.do(t, http.MethodGet, "/api/explorer/export?filename=finance-report.json", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename=finance-report.json`, resp.Header.Get("Content-Disposition"))
}

func TestExplorerHandler_Export_EncodesUnsafeFilename(t *testing.T) {
	env := newExplorerTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/explorer/organization", SelectRequest{Name: "Finance"})

	resp := env.do(t, http.MethodGet, "/api/explorer/export?filename=bad%01name.json", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename*=utf-8''bad%01name.json`, resp.Header.Get("Content-Disposition"))
}

func TestAttachmentSaver_ContentDisposition(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"token", "users.json", `attachment; filename=users.json`},
		{"space", "my users.json", `attachment; filename="my users.json"`},
		{"newline", "line\nbreak.json", `attachment; filename*=utf-8''line%0Abreak.json`},
		{"non-ascii", "données.json", `attachment; filename*=utf-8''donn%C3%A9es.json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			require.NoError(t, attachmentSaver{w: rec}.Save(tt.filename, models.ExportContentType, []byte(`{}`)))

			assert.Equal(t, tt.want, rec.Header().Get("Content-Disposition"))
			assert.Equal(t, models.ExportContentType, rec.Header().Get("Content-Type"))
			assert.Equal(t, `{}`, rec.Body.String())
		})
	}
}

func TestExplorerHandler_ChatInjectionIsAnsweredAndAudited(t *testing.T) {
	env := newExplorerTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/explorer/organization", SelectRequest{Name: "CRM"})

	resp := env.do(t, http.MethodPost, "/api/explorer/chat", ChatRequest{Query: "' OR '1'='1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var chat ChatResponse
	decodeData(t, resp, &chat)
	assert.NotEmpty(t, chat.Reply.Text)

	warnings := env.logs.FilterMessage("Assistant query looks like SQL injection").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
	assert.Contains(t, warnings[0].ContextMap()["event_json"], `"organization":"CRM"`)
}

func TestExplorerHandler_RequiresAuthWhenEnabled(t *testing.T) {
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(tokens, zap.NewNop()), true, zap.NewNop())
	env := newExplorerTestEnv(t, authMiddleware)

	resp := env.do(t, http.MethodGet, "/api/explorer", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, _, err := tokens.Issue(&models.User{Email: "ada@example.com", UserName: "ada"})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/organizations", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	authed, err := env.client.Do(req)
	require.NoError(t, err)
	defer authed.Body.Close()
	assert.Equal(t, http.StatusOK, authed.StatusCode)
}
