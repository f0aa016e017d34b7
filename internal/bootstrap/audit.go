package bootstrap

import "context"

type AuditLog struct {
	Action  string
	Message string
	Meta    map[string]any
}

// AuditLogger records operational events that must survive log rotation
// policies applied to the application log.
type AuditLogger interface {
	Log(ctx context.Context, entry AuditLog)
}
