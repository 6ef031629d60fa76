package repo

import (
	"context"
	"database/sql"

	"keepup/internal/domain"
)

func (r Repo) UpsertMember(ctx context.Context, tx *sql.Tx, projectID string, m domain.Member) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO project_members(project_id,user_id,role,pinned) VALUES (?,?,?,?)
ON CONFLICT(project_id,user_id) DO UPDATE SET role=excluded.role, pinned=excluded.pinned`,
		projectID, m.UserID, m.Role, boolInt(m.Pinned))
	return err
}

func (r Repo) RemoveMember(ctx context.Context, projectID, userID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM project_members WHERE project_id=? AND user_id=?`, projectID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetMember(ctx context.Context, projectID, userID string) (domain.Member, error) {
	var m domain.Member
	var pinned int
	err := r.DB.QueryRowContext(ctx, `SELECT user_id,role,pinned FROM project_members WHERE project_id=? AND user_id=?`, projectID, userID).
		Scan(&m.UserID, &m.Role, &pinned)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	m.Pinned = pinned != 0
	return m, err
}

func (r Repo) ListMembers(ctx context.Context, projectID string) ([]domain.Member, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT user_id,role,pinned FROM project_members WHERE project_id=? ORDER BY user_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Member
	for rows.Next() {
		var m domain.Member
		var pinned int
		if err := rows.Scan(&m.UserID, &m.Role, &pinned); err != nil {
			return nil, err
		}
		m.Pinned = pinned != 0
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r Repo) SetMemberPinned(ctx context.Context, projectID, userID string, pinned bool) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE project_members SET pinned=? WHERE project_id=? AND user_id=?`,
		boolInt(pinned), projectID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
