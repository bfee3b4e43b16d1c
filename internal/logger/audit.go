package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionPhaseChange          AuditAction = "PHASE_CHANGE"
	AuditActionDeliverableCreate    AuditAction = "DELIVERABLE_CREATE"
	AuditActionDeliverableMove      AuditAction = "DELIVERABLE_MOVE"
	AuditActionMilestoneCreate      AuditAction = "MILESTONE_CREATE"
	AuditActionMilestoneUpdate      AuditAction = "MILESTONE_UPDATE"
	AuditActionMilestoneApprove     AuditAction = "MILESTONE_APPROVE"
	AuditActionMilestoneChanges     AuditAction = "MILESTONE_REQUEST_CHANGES"
	AuditActionSprintCreate         AuditAction = "SPRINT_CREATE"
	AuditActionSprintRetime         AuditAction = "SPRINT_RETIME"
	AuditActionSprintComplete       AuditAction = "SPRINT_COMPLETE"
	AuditActionChangeRequestCreate  AuditAction = "CHANGE_REQUEST_CREATE"
	AuditActionChangeRequestUpdate  AuditAction = "CHANGE_REQUEST_UPDATE"
	AuditActionChangeRequestLimited AuditAction = "CHANGE_REQUEST_RATE_LIMITED"
	AuditActionReportExport         AuditAction = "REPORT_EXPORT"

	AuditActionAPIRequest AuditAction = "API_REQUEST"
	AuditActionAPIError   AuditAction = "API_ERROR"
)

// AuditEvent represents an audit log entry
type AuditEvent struct {
	Action     AuditAction
	UserID     string
	Resource   string
	ResourceID string
	ProjectID  string
	Details    map[string]interface{}
	ClientIP   string
	RequestID  string
	Success    bool
	Error      string
	Duration   int64 // ms
	Method     string
	Path       string
	StatusCode int
}

var auditLogger = globalLogger.With().Str("log_type", "audit").Logger()

// InitAudit initializes the audit logger
func InitAudit() {
	auditLogger = globalLogger.With().Str("log_type", "audit").Logger()
}

// Audit logs an audit event
func Audit(ctx context.Context, event AuditEvent) {
	if event.RequestID == "" {
		event.RequestID = GetRequestID(ctx)
	}
	if event.UserID == "" {
		event.UserID = GetUserID(ctx)
	}
	if event.ProjectID == "" {
		event.ProjectID = GetProjectID(ctx)
	}

	var logEvent *zerolog.Event
	if event.Success {
		logEvent = auditLogger.Info()
	} else {
		logEvent = auditLogger.Warn()
	}

	logEvent.
		Str("action", string(event.Action)).
		Str("user_id", event.UserID).
		Str("resource", event.Resource).
		Str("resource_id", event.ResourceID).
		Str("request_id", event.RequestID).
		Bool("success", event.Success).
		Time("timestamp", time.Now().UTC())

	if event.ProjectID != "" {
		logEvent.Str("project_id", event.ProjectID)
	}
	if event.ClientIP != "" {
		logEvent.Str("client_ip", event.ClientIP)
	}
	if event.Error != "" {
		logEvent.Str("error", event.Error)
	}
	if event.Duration > 0 {
		logEvent.Int64("duration_ms", event.Duration)
	}
	if event.Method != "" {
		logEvent.Str("method", event.Method)
	}
	if event.Path != "" {
		logEvent.Str("path", event.Path)
	}
	if event.StatusCode > 0 {
		logEvent.Int("status_code", event.StatusCode)
	}
	if len(event.Details) > 0 {
		logEvent.Interface("details", event.Details)
	}

	logEvent.Msg("Audit event")
}

// AuditTransition records a state change on a domain entity.
func AuditTransition(ctx context.Context, action AuditAction, resource, resourceID string, details map[string]interface{}) {
	Audit(ctx, AuditEvent{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Success:    true,
		Details:    details,
	})
}

// AuditRequest logs an API request audit event
func AuditRequest(ctx context.Context, method, path string, statusCode int, duration int64, userID, clientIP string) {
	success := statusCode < 400
	action := AuditActionAPIRequest
	if !success {
		action = AuditActionAPIError
	}

	Audit(ctx, AuditEvent{
		Action:     action,
		UserID:     userID,
		Resource:   "api",
		ResourceID: path,
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Duration:   duration,
		ClientIP:   clientIP,
		Success:    success,
	})
}
