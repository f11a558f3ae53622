package directory

import (
	"context"
	"database/sql"

	"go-groupware/internal/database"
)

type DirectoryRepository interface {
	PositionRanks(ctx context.Context) (map[string]int, error)
	ActiveUsersByRoleAndOrg(ctx context.Context, departmentCode, teamCode, positionCode string) ([]UserRef, error)
	UserByID(ctx context.Context, id string) (*UserRef, error)
	PositionLabel(ctx context.Context, userID string) (*PositionLabel, error)
}

type DirectoryRepositoryImpl struct {
	DB *sql.DB
}

func NewDirectoryRepository(pg *database.PostgresDB) DirectoryRepository {
	return &DirectoryRepositoryImpl{DB: pg.DB}
}

func (r *DirectoryRepositoryImpl) PositionRanks(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT code, rank FROM positions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ranks := make(map[string]int)
	for rows.Next() {
		var code string
		var rank int
		if err := rows.Scan(&code, &rank); err != nil {
			return nil, err
		}
		ranks[code] = rank
	}
	return ranks, rows.Err()
}

// ActiveUsersByRoleAndOrg returns ACTIVE users of the given position within the
// department. An empty teamCode matches the whole department. No candidates is
// an empty slice, not an error — callers decide whether that is fatal.
func (r *DirectoryRepositoryImpl) ActiveUsersByRoleAndOrg(ctx context.Context, departmentCode, teamCode, positionCode string) ([]UserRef, error) {
	query := `
		SELECT u.id, u.name, u.department_code, COALESCE(u.team_code, ''), u.position_code
		FROM users u
		WHERE u.department_code = $1
		  AND u.position_code = $2
		  AND u.status = $3
		  AND ($4 = '' OR u.team_code = $4)
		ORDER BY u.hired_at ASC, u.id ASC
	`

	rows, err := r.DB.QueryContext(ctx, query, departmentCode, positionCode, UserStatusActive, teamCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []UserRef{}
	for rows.Next() {
		var u UserRef
		if err := rows.Scan(&u.ID, &u.Name, &u.DepartmentCode, &u.TeamCode, &u.PositionCode); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *DirectoryRepositoryImpl) UserByID(ctx context.Context, id string) (*UserRef, error) {
	query := `
		SELECT u.id, u.name, u.department_code, COALESCE(u.team_code, ''), u.position_code
		FROM users u
		WHERE u.id = $1
	`

	var u UserRef
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Name, &u.DepartmentCode, &u.TeamCode, &u.PositionCode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *DirectoryRepositoryImpl) PositionLabel(ctx context.Context, userID string) (*PositionLabel, error) {
	query := `
		SELECT u.id, u.name, u.department_code, COALESCE(d.name, u.department_code),
		       u.position_code, COALESCE(p.name, u.position_code)
		FROM users u
		LEFT JOIN departments d ON d.code = u.department_code
		LEFT JOIN positions p ON p.code = u.position_code
		WHERE u.id = $1
	`

	var l PositionLabel
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&l.UserID, &l.Name, &l.DepartmentCode, &l.DepartmentName, &l.PositionCode, &l.PositionName,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}
