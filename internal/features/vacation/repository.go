package vacation

import (
	"context"
	"database/sql"
	"time"

	"go-groupware/internal/database"
)

type VacationRepository interface {
	Insert(ctx context.Context, v *Vacation) error
	Get(ctx context.Context, id int64) (*Vacation, error)
	ListByUser(ctx context.Context, userID string) ([]Vacation, error)
	UpdateStatus(ctx context.Context, id int64, status, approvedBy string, at time.Time) error
	Delete(ctx context.Context, id int64) error
	InsertHistory(ctx context.Context, h *VacationHistory) error
}

type VacationRepositoryImpl struct {
	DB *sql.DB
}

func NewVacationRepository(pg *database.PostgresDB) VacationRepository {
	return &VacationRepositoryImpl{DB: pg.DB}
}

func (r *VacationRepositoryImpl) Insert(ctx context.Context, v *Vacation) error {
	query := `
		INSERT INTO vacations (user_id, type, start_date, end_date, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		v.UserID, v.Type, v.StartDate, v.EndDate, v.Reason, v.Status, v.CreatedAt,
	).Scan(&v.ID)
}

const vacationColumns = `
	id, user_id, type, start_date, end_date, COALESCE(reason, ''),
	status, approved_by, approved_at, created_at
`

func (r *VacationRepositoryImpl) Get(ctx context.Context, id int64) (*Vacation, error) {
	query := `SELECT ` + vacationColumns + ` FROM vacations WHERE id = $1`

	v := &Vacation{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.UserID, &v.Type, &v.StartDate, &v.EndDate, &v.Reason,
		&v.Status, &v.ApprovedBy, &v.ApprovedAt, &v.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *VacationRepositoryImpl) ListByUser(ctx context.Context, userID string) ([]Vacation, error) {
	query := `
		SELECT ` + vacationColumns + `
		FROM vacations
		WHERE user_id = $1
		ORDER BY start_date DESC, id DESC
	`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vacations []Vacation
	for rows.Next() {
		var v Vacation
		if err := rows.Scan(
			&v.ID, &v.UserID, &v.Type, &v.StartDate, &v.EndDate, &v.Reason,
			&v.Status, &v.ApprovedBy, &v.ApprovedAt, &v.CreatedAt,
		); err != nil {
			return nil, err
		}
		vacations = append(vacations, v)
	}
	return vacations, rows.Err()
}

func (r *VacationRepositoryImpl) UpdateStatus(ctx context.Context, id int64, status, approvedBy string, at time.Time) error {
	query := `
		UPDATE vacations
		SET status = $2, approved_by = $3, approved_at = $4
		WHERE id = $1
	`
	_, err := r.DB.ExecContext(ctx, query, id, status, approvedBy, at)
	return err
}

func (r *VacationRepositoryImpl) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM vacations WHERE id = $1`, id)
	return err
}

func (r *VacationRepositoryImpl) InsertHistory(ctx context.Context, h *VacationHistory) error {
	query := `
		INSERT INTO vacation_histories (vacation_id, status, actor_id, memo, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		h.VacationID, h.Status, h.ActorID, h.Memo, h.CreatedAt,
	).Scan(&h.ID)
}
