package handlers

import (
	"context"
	"mime"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/datadoc-engine/pkg/audit"
	"github.com/ekaya-inc/datadoc-engine/pkg/auth"
	"github.com/ekaya-inc/datadoc-engine/pkg/explorer"
	"github.com/ekaya-inc/datadoc-engine/pkg/models"
	"github.com/ekaya-inc/datadoc-engine/pkg/services"
)

// SelectRequest names an organization, database or table.
type SelectRequest struct {
	Name string `json:"name"`
}

// ChatRequest carries an assistant query.
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse is the data of POST /api/explorer/chat.
type ChatResponse struct {
	Reply     models.ChatMessage    `json:"reply"`
	Selection models.SelectionState `json:"selection"`
}

// ExplorerHandler serves the catalog and the per-session explorer.
type ExplorerHandler struct {
	explorerService services.ExplorerService
	sessions        *auth.SessionCookies
	auditor         *audit.SecurityAuditor
	logger          *zap.Logger
}

// NewExplorerHandler creates a new explorer handler.
func NewExplorerHandler(explorerService services.ExplorerService, sessions *auth.SessionCookies, auditor *audit.SecurityAuditor, logger *zap.Logger) *ExplorerHandler {
	return &ExplorerHandler{
		explorerService: explorerService,
		sessions:        sessions,
		auditor:         auditor,
		logger:          logger,
	}
}

// RegisterRoutes registers the explorer handler's routes on the given mux.
func (h *ExplorerHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/organizations", authMiddleware.RequireAuth(h.ListOrganizations))
	mux.HandleFunc("GET /api/overview", authMiddleware.RequireAuth(h.Overview))
	mux.HandleFunc("GET /api/databases", authMiddleware.RequireAuth(h.ListDatabases))

	base := "/api/explorer"
	mux.HandleFunc("GET "+base, authMiddleware.RequireAuth(h.Snapshot))
	mux.HandleFunc("POST "+base+"/organization", authMiddleware.RequireAuth(h.SelectOrganization))
	mux.HandleFunc("POST "+base+"/database", authMiddleware.RequireAuth(h.SelectDatabase))
	mux.HandleFunc("POST "+base+"/table", authMiddleware.RequireAuth(h.SelectTable))
	mux.HandleFunc("POST "+base+"/back", authMiddleware.RequireAuth(h.Back))
	mux.HandleFunc("POST "+base+"/chat", authMiddleware.RequireAuth(h.Chat))
	mux.HandleFunc("GET "+base+"/export", authMiddleware.RequireAuth(h.Export))
}

// ListOrganizations handles GET /api/organizations
func (h *ExplorerHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, h.explorerService.Organizations(r.Context()))
}

// Overview handles GET /api/overview
func (h *ExplorerHandler) Overview(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, h.explorerService.Overview(r.Context()))
}

// ListDatabases handles GET /api/databases
func (h *ExplorerHandler) ListDatabases(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, h.explorerService.Databases(r.Context()))
}

// Snapshot handles GET /api/explorer
func (h *ExplorerHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	h.writeData(w, h.explorerService.Snapshot(r.Context(), sessionID))
}

// SelectOrganization handles POST /api/explorer/organization
func (h *ExplorerHandler) SelectOrganization(w http.ResponseWriter, r *http.Request) {
	h.selectHandler(w, r, h.explorerService.SelectOrganization)
}

// SelectDatabase handles POST /api/explorer/database
func (h *ExplorerHandler) SelectDatabase(w http.ResponseWriter, r *http.Request) {
	h.selectHandler(w, r, h.explorerService.SelectDatabase)
}

// SelectTable handles POST /api/explorer/table
func (h *ExplorerHandler) SelectTable(w http.ResponseWriter, r *http.Request) {
	h.selectHandler(w, r, h.explorerService.SelectTable)
}

// Back handles POST /api/explorer/back
func (h *ExplorerHandler) Back(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	h.writeData(w, h.explorerService.Back(r.Context(), sessionID))
}

// Chat handles POST /api/explorer/chat
func (h *ExplorerHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	reply, state := h.explorerService.Ask(r.Context(), sessionID, req.Query)

	if result := audit.CheckForInjection(req.Query); result != nil {
		h.auditor.LogQueryInjection(r.Context(), sessionID, audit.QueryInjectionDetails{
			Query:        req.Query,
			Fingerprint:  result.Fingerprint,
			Organization: state.Organization,
			Table:        state.Table,
		}, r.RemoteAddr)
	}

	h.writeData(w, ChatResponse{Reply: reply, Selection: state})
}

// Export handles GET /api/explorer/export
// The optional "filename" query parameter overrides the default <table>.json.
// Responds 204 when no table is selected.
func (h *ExplorerHandler) Export(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	doc := h.explorerService.Export(r.Context(), sessionID)
	exported, err := explorer.ExportAsFile(doc, r.URL.Query().Get("filename"), attachmentSaver{w: w})
	if err != nil {
		h.logger.Error("Failed to export table",
			zap.String("session_id", sessionID.String()),
			zap.Error(err))
		writeServiceError(w, err, h.logger)
		return
	}
	if !exported {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.logger.Info("Table exported",
		zap.String("session_id", sessionID.String()),
		zap.String("organization", doc.Organization),
		zap.String("table", doc.Table))
}

type selectFunc func(ctx context.Context, sessionID uuid.UUID, name string) (models.ExplorerSnapshot, error)

func (h *ExplorerHandler) selectHandler(w http.ResponseWriter, r *http.Request, selectFn selectFunc) {
	var req SelectRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	snap, err := selectFn(r.Context(), sessionID, req.Name)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeData(w, snap)
}

// sessionID resolves the explorer session of the request, minting one when
// needed. On failure it writes a 500 response and returns false.
func (h *ExplorerHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, _, err := h.sessions.SessionID(w, r)
	if err != nil {
		h.logger.Error("Failed to resolve explorer session", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "session_error", "Failed to start session"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}

func (h *ExplorerHandler) writeData(w http.ResponseWriter, data any) {
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// attachmentSaver delivers an export as a browser download. Filenames with
// control or non-ASCII bytes are sent RFC 2231 encoded (filename*=utf-8'').
type attachmentSaver struct {
	w http.ResponseWriter
}

func (s attachmentSaver) Save(filename, contentType string, data []byte) error {
	s.w.Header().Set("Content-Type", contentType)
	s.w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	s.w.WriteHeader(http.StatusOK)
	_, err := s.w.Write(data)
	return err
}

var _ explorer.FileSaver = attachmentSaver{}
