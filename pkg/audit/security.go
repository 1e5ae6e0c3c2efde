// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/datadoc-engine/pkg/auth"
	"github.com/ekaya-inc/datadoc-engine/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventQueryInjectionAttempt is logged when libinjection flags an assistant query.
	EventQueryInjectionAttempt SecurityEventType = "assistant_query_injection"
	// EventLoginFailure is logged for rejected login attempts.
	EventLoginFailure SecurityEventType = "login_failure"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	SessionID string            `json:"session_id,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// QueryInjectionDetails contains specifics of a flagged assistant query.
type QueryInjectionDetails struct {
	Query        string `json:"query"` // sanitized and truncated
	Fingerprint  string `json:"fingerprint"`
	Organization string `json:"organization,omitempty"`
	Table        string `json:"table,omitempty"`
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogQueryInjection records an assistant query that looks like SQL injection.
// The query is still answered; this only reports it, at WARN level.
func (a *SecurityAuditor) LogQueryInjection(
	ctx context.Context,
	sessionID uuid.UUID,
	details QueryInjectionDetails,
	clientIP string,
) {
	userID := userIDFromContext(ctx)
	details.Query = logging.SanitizeQuery(details.Query)

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventQueryInjectionAttempt,
		SessionID: sessionID.String(),
		UserID:    userID,
		ClientIP:  clientIP,
		Details:   details,
		Severity:  "warning",
	}

	// Marshaling known types cannot fail
	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Assistant query looks like SQL injection",
		zap.String("event_json", string(eventJSON)),
		zap.String("session_id", sessionID.String()),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("client_ip", clientIP),
		zap.String("user_id", userID),
		zap.String("severity", "warning"),
	)
}

// LogLoginFailure records a rejected login. The email is redacted.
func (a *SecurityAuditor) LogLoginFailure(ctx context.Context, email, reason, clientIP string) {
	redacted := logging.RedactEmail(email)

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventLoginFailure,
		ClientIP:  clientIP,
		Details: map[string]string{
			"email":  redacted,
			"reason": reason,
		},
		Severity: "warning",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Login failed",
		zap.String("event_json", string(eventJSON)),
		zap.String("email", redacted),
		zap.String("reason", reason),
		zap.String("client_ip", clientIP),
		zap.String("severity", "warning"),
	)
}

func userIDFromContext(ctx context.Context) string {
	if userID, ok := auth.GetUserIDFromContext(ctx); ok {
		return userID.String()
	}
	return ""
}
