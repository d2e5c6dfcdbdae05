// Audit logging: structured JSONL events for decisions that must remain
// reviewable after the fact - safety rejections, memory writes, promotions,
// tool invocations. Audit entries never contain the user text that was
// rejected, only the reason and enough correlation to investigate.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType defines the type of audit event.
type AuditEventType string

const (
	// Safety filter decisions
	AuditSafetyBlock    AuditEventType = "safety_block"
	AuditSafetyAllow    AuditEventType = "safety_allow"
	AuditInjectionBlock AuditEventType = "injection_block"
	AuditPolicyBlock    AuditEventType = "policy_block"

	// Signal state machine transitions
	AuditSignalCreate    AuditEventType = "signal_create"
	AuditSignalIncrement AuditEventType = "signal_increment"
	AuditSignalSkip      AuditEventType = "signal_skip"
	AuditSignalSweep     AuditEventType = "signal_sweep"

	// Durable memory writes
	AuditMemoryPromote   AuditEventType = "memory_promote"
	AuditMemoryReinforce AuditEventType = "memory_reinforce"
	AuditMemoryCapture   AuditEventType = "memory_capture"

	// Artifact lifecycle
	AuditArtifactCreate AuditEventType = "artifact_create"
	AuditArtifactDelete AuditEventType = "artifact_delete"

	// Tool surface
	AuditToolInvoke AuditEventType = "tool_invoke"
	AuditToolReject AuditEventType = "tool_reject"

	// Consolidation
	AuditConsolidateRun AuditEventType = "consolidate_run"
)

// AuditEvent is a single JSONL audit entry.
type AuditEvent struct {
	Timestamp      int64                  `json:"ts"` // Unix milliseconds
	EventType      AuditEventType         `json:"event"`
	Category       string                 `json:"cat,omitempty"`
	UserID         string                 `json:"user,omitempty"`
	ConversationID string                 `json:"conv,omitempty"`
	Target         string                 `json:"target,omitempty"` // e.g. signal value, artifact id, tool name
	Success        bool                   `json:"success"`
	Reason         string                 `json:"reason,omitempty"`
	Message        string                 `json:"msg,omitempty"`
	Fields         map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// InitAudit opens the audit log file. Called from Initialize; safe to call
// again (no-op once open).
func InitAudit() error {
	if !IsEnabled() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit writes an audit event. No-op when auditing is not initialized.
func Audit(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	auditFile.WriteString(string(data) + "\n")
}

// SafetyAudit records a safety filter rejection. The rejected text itself is
// deliberately not logged; textLen allows sizing without retention.
func SafetyAudit(eventType AuditEventType, userID, reason string, textLen int) {
	Audit(AuditEvent{
		EventType: eventType,
		Category:  string(CategorySafety),
		UserID:    userID,
		Success:   false,
		Reason:    reason,
		Fields:    map[string]interface{}{"text_len": textLen},
	})
	SafetyWarn("blocked (%s): %s (len=%d)", eventType, reason, textLen)
}

// SignalAudit records a signal state machine transition.
func SignalAudit(eventType AuditEventType, userID, conversationID, target string, fields map[string]interface{}) {
	Audit(AuditEvent{
		EventType:      eventType,
		Category:       string(CategorySignal),
		UserID:         userID,
		ConversationID: conversationID,
		Target:         target,
		Success:        true,
		Fields:         fields,
	})
}

// ToolAudit records a tool invocation or rejection.
func ToolAudit(name, userID string, success bool, reason string) {
	et := AuditToolInvoke
	if !success {
		et = AuditToolReject
	}
	Audit(AuditEvent{
		EventType: et,
		Category:  string(CategoryTools),
		UserID:    userID,
		Target:    name,
		Success:   success,
		Reason:    reason,
	})
}
