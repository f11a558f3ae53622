package audit

import (
	"context"
	"database/sql"

	"go-groupware/internal/database"
)

type AuditRepository interface {
	Create(ctx context.Context, log *AuditLog) error
	List(ctx context.Context, limit, offset int64) ([]AuditLog, error)
}

type AuditRepositoryImpl struct {
	DB *sql.DB
}

func NewAuditRepository(pg *database.PostgresDB) AuditRepository {
	return &AuditRepositoryImpl{DB: pg.DB}
}

func (r *AuditRepositoryImpl) Create(ctx context.Context, log *AuditLog) error {
	query := `
		INSERT INTO audit_logs (action, actor_id, detail, level, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		log.Action, log.ActorID, log.Detail, log.Level, log.CreatedAt,
	).Scan(&log.ID)
}

func (r *AuditRepositoryImpl) List(ctx context.Context, limit, offset int64) ([]AuditLog, error) {
	query := `
		SELECT id, action, actor_id, COALESCE(detail, ''), level, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var l AuditLog
		if err := rows.Scan(&l.ID, &l.Action, &l.ActorID, &l.Detail, &l.Level, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
