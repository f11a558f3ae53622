package directory

// UserRef identifies an organizational member as seen by the approval engine.
type UserRef struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DepartmentCode string `json:"department_code"`
	TeamCode       string `json:"team_code"`
	PositionCode   string `json:"position_code"`
}

// PositionLabel is the display projection for the position-label endpoint.
type PositionLabel struct {
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	DepartmentCode string `json:"department_code"`
	DepartmentName string `json:"department_name"`
	PositionCode   string `json:"position_code"`
	PositionName   string `json:"position_name"`
}

// UserStatusActive is the only status eligible for approver resolution.
const UserStatusActive = "ACTIVE"
