package approval

import "time"

// Status is the lifecycle state of a single approval record. PENDING is the
// only non-terminal state; a record transitions exactly once.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusSkipped  Status = "SKIPPED"
)

// ProxyType controls how a template step resolves its approver.
type ProxyType string

const (
	ProxyNone ProxyType = "NONE"
	// ProxyProxy substitutes the holder of ProxyRole for the nominal role.
	ProxyProxy ProxyType = "PROXY"
	// ProxySkip omits the step from the materialized line entirely.
	ProxySkip ProxyType = "SKIP"
)

// HistoryAction is the recorded action of a state transition.
type HistoryAction string

const (
	ActionApprove HistoryAction = "APPROVE"
	ActionReject  HistoryAction = "REJECT"
)

// LineTemplate is one configured step of a named approval route. Templates are
// read-only to the engine; administration happens elsewhere.
type LineTemplate struct {
	ID             int64     `json:"id"`
	DocumentType   string    `json:"document_type"`
	DepartmentCode string    `json:"department_code"`
	TeamCode       string    `json:"team_code"`
	RouteName      string    `json:"route_name"`
	Step           int       `json:"step"`
	RoleCode       string    `json:"role_code"`
	Condition      string    `json:"condition_expression"`
	ProxyType      ProxyType `json:"proxy_type"`
	ProxyRole      string    `json:"proxy_role"`
	Required       bool      `json:"is_required"`
}

// Record is one materialized approval row: (target document, step).
type Record struct {
	ID           int64      `json:"id"`
	TargetType   string     `json:"target_type"`
	TargetID     string     `json:"target_id"`
	RequesterID  string     `json:"requester_id"`
	ApproverID   string     `json:"approver_id"`
	Step         int        `json:"step"`
	Status       Status     `json:"status"`
	IsFinal      bool       `json:"is_final"`
	ApprovedAt   *time.Time `json:"approved_at"` // doubles as "resolved at" for REJECTED/SKIPPED
	// PropagatedAt is set once the terminal outcome reached the target
	// entity. Nil on a record that demands propagation means it is still owed.
	PropagatedAt *time.Time `json:"propagated_at"`
	ProxyType    ProxyType  `json:"proxy_type"`
	ProxyRole    string     `json:"proxy_role"`
	Memo         string     `json:"memo"`
	DueAt        *time.Time `json:"due_at"` // stored, not enforced by the engine
	CreatedAt    time.Time  `json:"created_at"`
}

// HistoryEntry is the append-only record of one transition. It references the
// live approval row but is never consulted for control flow.
type HistoryEntry struct {
	ID          int64         `json:"id"`
	ApprovalID  int64         `json:"approval_id"`
	TargetType  string        `json:"target_type"`
	TargetID    string        `json:"target_id"`
	Step        int           `json:"step"`
	Action      HistoryAction `json:"action"`
	Memo        string        `json:"memo"`
	ActorID     string        `json:"actor_id"`
	PrevStatus  Status        `json:"prev_status"`
	NewStatus   Status        `json:"new_status"`
	PerformedAt time.Time     `json:"performed_at"`
}

// Actor is the requester/approver identity as supplied by the auth subsystem.
type Actor struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DepartmentCode string `json:"department_code"`
	TeamCode       string `json:"team_code"`
	PositionCode   string `json:"position_code"`
}

// MaterializeInput describes one document submission to turn into a line.
type MaterializeInput struct {
	TargetType string
	TargetID   string
	Requester  Actor
	RouteName  string
	DueAt      *time.Time
}

// DocumentListItem joins an approval record with its target's summary
// projection for the list endpoints.
type DocumentListItem struct {
	Record  Record                 `json:"record"`
	Summary map[string]interface{} `json:"summary"`
}

// DocumentDetail is the per-document read model. Approvers is a live
// re-derivation of who holds each role today (display only, labeled
// resolvedNow); ApproverID on each record stays authoritative.
type DocumentDetail struct {
	TargetType        string                 `json:"target_type"`
	TargetID          string                 `json:"target_id"`
	Status            Status                 `json:"status"`
	CurrentApproverID *string                `json:"current_approver_id"`
	Records           []Record               `json:"records"`
	Summary           map[string]interface{} `json:"summary"`
	Approvers         map[string]interface{} `json:"approvers"`
}

// LinePreviewStep is one step of the approval-line preview shown on submission
// forms: the template plus the candidate who would be assigned today.
type LinePreviewStep struct {
	Step      int                    `json:"step"`
	RoleCode  string                 `json:"role_code"`
	ProxyType ProxyType              `json:"proxy_type"`
	ProxyRole string                 `json:"proxy_role"`
	Required  bool                   `json:"is_required"`
	Candidate map[string]interface{} `json:"candidate"`
}
