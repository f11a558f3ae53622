package approval

import (
	"context"
	"database/sql"
	"time"

	"go-groupware/internal/database"
)

type ApprovalRepository interface {
	// Templates (read-only to the engine)
	TemplateSteps(ctx context.Context, documentType, departmentCode, teamCode, routeName string) ([]LineTemplate, error)

	// Records
	InsertLine(ctx context.Context, records []*Record) error
	RecordByTargetAndApprover(ctx context.Context, targetType, targetID, approverID string) (*Record, error)
	RecordByID(ctx context.Context, id int64) (*Record, error)
	ListByTarget(ctx context.Context, targetType, targetID string) ([]Record, error)
	MinPendingStep(ctx context.Context, targetType, targetID string) (int, bool, error)
	ResolveLine(ctx context.Context, id int64, targetType, targetID string, to Status, memo string, at time.Time) (bool, error)
	MarkPropagated(ctx context.Context, id int64, at time.Time) error
	UnpropagatedFinals(ctx context.Context) ([]Record, error)
	ListByApprover(ctx context.Context, approverID, targetType string) ([]Record, error)
	ListByRequester(ctx context.Context, requesterID, targetType string) ([]Record, error)
	ListAllByType(ctx context.Context, targetType string) ([]Record, error)
	OverduePending(ctx context.Context, now time.Time) ([]Record, error)

	// History (append-only)
	InsertHistory(ctx context.Context, entry *HistoryEntry) error
	HistoryByTarget(ctx context.Context, targetType, targetID string) ([]HistoryEntry, error)
}

type ApprovalRepositoryImpl struct {
	DB *sql.DB
}

func NewApprovalRepository(pg *database.PostgresDB) ApprovalRepository {
	return &ApprovalRepositoryImpl{DB: pg.DB}
}

func (r *ApprovalRepositoryImpl) TemplateSteps(ctx context.Context, documentType, departmentCode, teamCode, routeName string) ([]LineTemplate, error) {
	query := `
		SELECT id, document_type, department_code, COALESCE(team_code, ''), route_name,
		       step, role_code, COALESCE(condition_expression, ''),
		       proxy_type, COALESCE(proxy_role, ''), is_required
		FROM approval_line_templates
		WHERE document_type = $1
		  AND department_code = $2
		  AND ($3 = '' OR team_code = $3 OR team_code IS NULL)
		  AND route_name = $4
		ORDER BY step ASC
	`

	rows, err := r.DB.QueryContext(ctx, query, documentType, departmentCode, teamCode, routeName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []LineTemplate
	for rows.Next() {
		var t LineTemplate
		if err := rows.Scan(
			&t.ID, &t.DocumentType, &t.DepartmentCode, &t.TeamCode, &t.RouteName,
			&t.Step, &t.RoleCode, &t.Condition, &t.ProxyType, &t.ProxyRole, &t.Required,
		); err != nil {
			return nil, err
		}
		steps = append(steps, t)
	}
	return steps, rows.Err()
}

// InsertLine persists one materialized approval line in a single transaction,
// so a failed submission never leaves partial rows behind.
func (r *ApprovalRepositoryImpl) InsertLine(ctx context.Context, records []*Record) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO approval_records
			(target_type, target_id, requester_id, approver_id, step, status,
			 is_final, proxy_type, proxy_role, memo, due_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	for _, rec := range records {
		err := tx.QueryRowContext(ctx, query,
			rec.TargetType, rec.TargetID, rec.RequesterID, rec.ApproverID,
			rec.Step, rec.Status, rec.IsFinal, rec.ProxyType, rec.ProxyRole,
			rec.Memo, rec.DueAt, rec.CreatedAt,
		).Scan(&rec.ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

const recordColumns = `
	id, target_type, target_id, requester_id, approver_id, step, status,
	is_final, approved_at, propagated_at, proxy_type, COALESCE(proxy_role, ''),
	COALESCE(memo, ''), due_at, created_at
`

type recordScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row recordScanner) (*Record, error) {
	rec := &Record{}
	err := row.Scan(
		&rec.ID, &rec.TargetType, &rec.TargetID, &rec.RequesterID, &rec.ApproverID,
		&rec.Step, &rec.Status, &rec.IsFinal, &rec.ApprovedAt, &rec.PropagatedAt,
		&rec.ProxyType, &rec.ProxyRole, &rec.Memo, &rec.DueAt, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *ApprovalRepositoryImpl) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// RecordByTargetAndApprover prefers the approver's PENDING row. One user can
// hold two steps of the same line (a proxy step plus their own), and the
// resolved one must not shadow the actionable one.
func (r *ApprovalRepositoryImpl) RecordByTargetAndApprover(ctx context.Context, targetType, targetID, approverID string) (*Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM approval_records
		WHERE target_type = $1 AND target_id = $2 AND approver_id = $3
		ORDER BY (status <> $4), step ASC
		LIMIT 1
	`

	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, targetType, targetID, approverID, StatusPending))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (r *ApprovalRepositoryImpl) RecordByID(ctx context.Context, id int64) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM approval_records WHERE id = $1`

	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (r *ApprovalRepositoryImpl) ListByTarget(ctx context.Context, targetType, targetID string) ([]Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM approval_records
		WHERE target_type = $1 AND target_id = $2
		ORDER BY step ASC
	`
	return r.queryRecords(ctx, query, targetType, targetID)
}

func (r *ApprovalRepositoryImpl) MinPendingStep(ctx context.Context, targetType, targetID string) (int, bool, error) {
	query := `
		SELECT MIN(step)
		FROM approval_records
		WHERE target_type = $1 AND target_id = $2 AND status = $3
	`

	var step sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, query, targetType, targetID, StatusPending).Scan(&step); err != nil {
		return 0, false, err
	}
	if !step.Valid {
		return 0, false, nil
	}
	return int(step.Int64), true, nil
}

// ResolveLine performs the atomic PENDING -> terminal transition. The status
// guard lives in the WHERE clause so a concurrent double-submit observably
// fails on affected-row count instead of double-applying. A rejection also
// voids every other PENDING record of the target in the same transaction, so
// a crash between the two updates can never leave later steps approvable.
func (r *ApprovalRepositoryImpl) ResolveLine(ctx context.Context, id int64, targetType, targetID string, to Status, memo string, at time.Time) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	query := `
		UPDATE approval_records
		SET status = $2, memo = $3, approved_at = $4
		WHERE id = $1 AND status = $5
	`

	res, err := tx.ExecContext(ctx, query, id, to, memo, at, StatusPending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected != 1 {
		return false, nil
	}

	if to == StatusRejected {
		skip := `
			UPDATE approval_records
			SET status = $4, approved_at = $5
			WHERE target_type = $1 AND target_id = $2 AND id <> $3 AND status = $6
		`
		if _, err := tx.ExecContext(ctx, skip, targetType, targetID, id, StatusSkipped, at, StatusPending); err != nil {
			return false, err
		}
	}

	return true, tx.Commit()
}

func (r *ApprovalRepositoryImpl) MarkPropagated(ctx context.Context, id int64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE approval_records SET propagated_at = $2 WHERE id = $1`, id, at)
	return err
}

// UnpropagatedFinals lists terminal records whose outcome still has to reach
// the target entity: every rejection, and the approved final step.
func (r *ApprovalRepositoryImpl) UnpropagatedFinals(ctx context.Context) ([]Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM approval_records
		WHERE propagated_at IS NULL
		  AND (status = $1 OR (status = $2 AND is_final))
		ORDER BY approved_at ASC, id ASC
	`
	return r.queryRecords(ctx, query, StatusRejected, StatusApproved)
}

func (r *ApprovalRepositoryImpl) ListByApprover(ctx context.Context, approverID, targetType string) ([]Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM approval_records
		WHERE approver_id = $1 AND ($2 = '' OR target_type = $2)
		ORDER BY created_at DESC, step ASC
	`
	return r.queryRecords(ctx, query, approverID, targetType)
}

func (r *ApprovalRepositoryImpl) ListByRequester(ctx context.Context, requesterID, targetType string) ([]Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM approval_records
		WHERE requester_id = $1 AND ($2 = '' OR target_type = $2)
		ORDER BY created_at DESC, step ASC
	`
	return r.queryRecords(ctx, query, requesterID, targetType)
}

func (r *ApprovalRepositoryImpl) ListAllByType(ctx context.Context, targetType string) ([]Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM approval_records
		WHERE ($1 = '' OR target_type = $1)
		ORDER BY target_type ASC, target_id ASC, step ASC
	`
	return r.queryRecords(ctx, query, targetType)
}

func (r *ApprovalRepositoryImpl) OverduePending(ctx context.Context, now time.Time) ([]Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM approval_records
		WHERE status = $1 AND due_at IS NOT NULL AND due_at < $2
		ORDER BY due_at ASC
	`
	return r.queryRecords(ctx, query, StatusPending, now)
}

func (r *ApprovalRepositoryImpl) InsertHistory(ctx context.Context, entry *HistoryEntry) error {
	query := `
		INSERT INTO approval_histories
			(approval_id, target_type, target_id, step, action, memo,
			 actor_id, prev_status, new_status, performed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	return r.DB.QueryRowContext(ctx, query,
		entry.ApprovalID, entry.TargetType, entry.TargetID, entry.Step,
		entry.Action, entry.Memo, entry.ActorID, entry.PrevStatus,
		entry.NewStatus, entry.PerformedAt,
	).Scan(&entry.ID)
}

func (r *ApprovalRepositoryImpl) HistoryByTarget(ctx context.Context, targetType, targetID string) ([]HistoryEntry, error) {
	query := `
		SELECT id, approval_id, target_type, target_id, step, action,
		       COALESCE(memo, ''), actor_id, prev_status, new_status, performed_at
		FROM approval_histories
		WHERE target_type = $1 AND target_id = $2
		ORDER BY performed_at DESC, id DESC
	`

	rows, err := r.DB.QueryContext(ctx, query, targetType, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(
			&e.ID, &e.ApprovalID, &e.TargetType, &e.TargetID, &e.Step,
			&e.Action, &e.Memo, &e.ActorID, &e.PrevStatus, &e.NewStatus, &e.PerformedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
