package audit

import "time"

// Level classifies an audit entry for filtering in the admin view.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// AuditLog is one recorded action. Append-only; display only.
type AuditLog struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	ActorID   string    `json:"actor_id"`
	Detail    string    `json:"detail"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}
