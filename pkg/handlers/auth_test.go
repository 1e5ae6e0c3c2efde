package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/datadoc-engine/pkg/audit"
	"github.com/ekaya-inc/datadoc-engine/pkg/auth"
	"github.com/ekaya-inc/datadoc-engine/pkg/config"
	"github.com/ekaya-inc/datadoc-engine/pkg/repositories"
	"github.com/ekaya-inc/datadoc-engine/pkg/services"
	"github.com/ekaya-inc/datadoc-engine/pkg/testhelpers"
)

func newAuthTestMux(t *testing.T) (*http.ServeMux, *auth.TokenManager, *observer.ObservedLogs) {
	t.Helper()

	logger, logs := testhelpers.NewObservedLogger(t)

	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	accounts := services.NewAccountService(repositories.NewUserRepository(), tokens, logger)
	cfg := &config.Config{BaseURL: "http://localhost:3443"}

	mux := http.NewServeMux()
	NewAuthHandler(accounts, audit.NewSecurityAuditor(logger), cfg, logger).RegisterRoutes(mux)
	return mux, tokens, logs
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestAuthHandler_RegisterThenLogin(t *testing.T) {
	mux, tokens, logs := newAuthTestMux(t)

	rec := postJSON(t, mux, "/api/auth/v1/register", map[string]string{
		"email":    "ada@example.com",
		"userName": "ada",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "correct-horse")
	assert.NotContains(t, rec.Body.String(), "PasswordHash")

	rec = postJSON(t, mux, "/api/auth/v1/login", LoginRequest{Email: "ada@example.com", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool `json:"success"`
		User    struct {
			ID              string  `json:"id"`
			Email           string  `json:"email"`
			UserName        string  `json:"userName"`
			CurrentResumeID *string `json:"currentResumeId"`
		} `json:"user"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "ada@example.com", body.User.Email)
	assert.Equal(t, "ada", body.User.UserName)
	assert.NotEmpty(t, body.User.ID)
	assert.Nil(t, body.User.CurrentResumeID)
	assert.Contains(t, rec.Body.String(), `"currentResumeId":null`)

	claims, err := tokens.Validate(body.Token)
	require.NoError(t, err)
	assert.Equal(t, body.User.ID, claims.Subject)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.Equal(t, body.Token, cookies[0].Value)
	assert.False(t, cookies[0].Secure, "localhost base URL should not require HTTPS")

	for _, entry := range logs.All() {
		for _, v := range entry.ContextMap() {
			assert.NotEqual(t, "ada@example.com", v, "raw email must not be logged")
		}
	}
}

func TestAuthHandler_Register_ReturnsLoggedInUser(t *testing.T) {
	mux, tokens, _ := newAuthTestMux(t)

	rec := postJSON(t, mux, "/api/auth/v1/register", map[string]string{
		"email":    "grace@example.com",
		"userName": "grace",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, true, raw["success"])
	assert.NotContains(t, raw, "data")

	user, ok := raw["user"].(map[string]any)
	require.True(t, ok, "body must carry a top-level user object: %s", rec.Body.String())
	assert.Contains(t, user, "currentResumeId")
	assert.Nil(t, user["currentResumeId"])
	assert.Equal(t, "grace@example.com", user["email"])
	assert.Equal(t, "grace", user["userName"])

	token, ok := raw["token"].(string)
	require.True(t, ok)
	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user["id"], claims.Subject)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.Equal(t, token, cookies[0].Value)
}

func TestAuthHandler_Login_ByUserName(t *testing.T) {
	mux, _, _ := newAuthTestMux(t)

	rec := postJSON(t, mux, "/api/auth/v1/register", map[string]string{
		"email": "ada@example.com", "userName": "ada", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, mux, "/api/auth/v1/login", LoginRequest{UserName: "ada", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.NotNil(t, body.User)
	assert.Equal(t, "ada@example.com", body.User.Email)
	assert.NotEmpty(t, body.Token)

	rec = postJSON(t, mux, "/api/auth/v1/login", LoginRequest{UserName: "ada", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_Register_Errors(t *testing.T) {
	mux, _, _ := newAuthTestMux(t)

	rec := postJSON(t, mux, "/api/auth/v1/register", map[string]string{
		"email": "ada@example.com", "userName": "ada", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
	}{
		{"duplicate email", map[string]string{"email": "ada@example.com", "userName": "ada", "password": "correct-horse"}, http.StatusConflict},
		{"duplicate user name", map[string]string{"email": "lovelace@example.com", "userName": "ADA", "password": "correct-horse"}, http.StatusConflict},
		{"missing user name", map[string]string{"email": "bob@example.com", "password": "correct-horse"}, http.StatusBadRequest},
		{"short password", map[string]string{"email": "bob@example.com", "userName": "bob", "password": "short"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, mux, "/api/auth/v1/register", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/v1/register", bytes.NewBufferString("{"))
	malformed := httptest.NewRecorder()
	mux.ServeHTTP(malformed, req)
	assert.Equal(t, http.StatusBadRequest, malformed.Code)
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	mux, _, logs := newAuthTestMux(t)

	rec := postJSON(t, mux, "/api/auth/v1/login", LoginRequest{Email: "ghost@example.com", Password: "whatever1"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	var body ApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "invalid_credentials", body.Error)

	failures := logs.FilterMessage("Login failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, "g***@example.com", failures[0].ContextMap()["email"])
}
