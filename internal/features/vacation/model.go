package vacation

import "time"

// TargetType is the approval registry key for vacation documents.
const TargetType = "VACATION"

// Vacation statuses. Driven by the approval engine but owned by this table;
// CANCELLED is reachable only through the vacation subsystem itself.
const (
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

// Vacation is one vacation request document.
type Vacation struct {
	ID         int64      `json:"id"`
	UserID     string     `json:"user_id"`
	Type       string     `json:"type"` // ANNUAL, HALF_AM, HALF_PM, SICK, ...
	StartDate  time.Time  `json:"start_date"`
	EndDate    time.Time  `json:"end_date"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	ApprovedBy *string    `json:"approved_by"`
	ApprovedAt *time.Time `json:"approved_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// VacationHistory is the target-specific status trail, appended by the
// approval engine on terminal transitions.
type VacationHistory struct {
	ID         int64     `json:"id"`
	VacationID int64     `json:"vacation_id"`
	Status     string    `json:"status"`
	ActorID    string    `json:"actor_id"`
	Memo       string    `json:"memo"`
	CreatedAt  time.Time `json:"created_at"`
}

// ApplyRequest is the submission payload.
type ApplyRequest struct {
	Type      string `json:"type"`
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD
	Reason    string `json:"reason"`
	RouteName string `json:"route_name"` // defaults to "basic"
}
