package repo

import (
	"context"
	"database/sql"
	"strings"

	"keepup/internal/domain"
)

const itemColumns = `id,project_id,parent_id,kind,title,description,status,priority,assignee_id,content,icon,cover_image,due_date,created_at,updated_at`

func scanItem(row interface{ Scan(...any) error }) (domain.Item, error) {
	var it domain.Item
	var parentID, description, status, priority, assigneeID, content, icon, cover, dueDate sql.NullString
	err := row.Scan(&it.ID, &it.ProjectID, &parentID, &it.Kind, &it.Title, &description, &status, &priority,
		&assigneeID, &content, &icon, &cover, &dueDate, &it.CreatedAt, &it.UpdatedAt)
	if err == sql.ErrNoRows {
		return it, ErrNotFound
	}
	if err != nil {
		return it, err
	}
	if parentID.Valid {
		it.ParentID = &parentID.String
	}
	it.Description = description.String
	it.Status = status.String
	it.Priority = priority.String
	if assigneeID.Valid {
		it.AssigneeID = &assigneeID.String
	}
	if content.Valid {
		it.Content = &content.String
	}
	it.Icon = icon.String
	it.CoverImage = cover.String
	if dueDate.Valid {
		it.DueDate = &dueDate.String
	}
	return it, nil
}

func (r Repo) InsertItem(ctx context.Context, tx *sql.Tx, it domain.Item) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO items(`+itemColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		it.ID, it.ProjectID, nullableStringPtr(it.ParentID), it.Kind, it.Title, nullable(it.Description),
		nullable(it.Status), nullable(it.Priority), nullableStringPtr(it.AssigneeID), nullableStringPtr(it.Content),
		nullable(it.Icon), nullable(it.CoverImage), nullableStringPtr(it.DueDate), it.CreatedAt, it.UpdatedAt)
	return err
}

// BulkInsertItems inserts all items in one statement batch inside the
// caller's transaction. Used by the template instantiator.
func (r Repo) BulkInsertItems(ctx context.Context, tx *sql.Tx, items []domain.Item) error {
	for _, it := range items {
		if err := r.InsertItem(ctx, tx, it); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) GetItem(ctx context.Context, id string) (domain.Item, error) {
	return scanItem(r.DB.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id=?`, id))
}

type ItemFilters struct {
	ProjectID string
	Kind      string
	ParentID  string
	Status    string
}

func (r Repo) ListItems(ctx context.Context, f ItemFilters) ([]domain.Item, error) {
	clauses := []string{"project_id=?"}
	args := []any{f.ProjectID}
	if f.Kind != "" {
		clauses = append(clauses, "kind=?")
		args = append(args, f.Kind)
	}
	if f.ParentID != "" {
		clauses = append(clauses, "parent_id=?")
		args = append(args, f.ParentID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	query := `SELECT ` + itemColumns + ` FROM items WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, it)
	}
	return res, rows.Err()
}

type ItemUpdate struct {
	Title         *string
	Description   *string
	Status        *string
	Priority      *string
	AssigneeID    *string
	ClearAssignee bool
	Content       *string
	ClearContent  bool
	Icon          *string
	CoverImage    *string
	DueDate       *string
	ClearDueDate  bool
	ParentID      *string
	ClearParent   bool
}

func (r Repo) UpdateItem(ctx context.Context, tx *sql.Tx, id, updatedAt string, u ItemUpdate) error {
	var (
		fields []string
		args   []any
	)
	if u.Title != nil {
		fields = append(fields, "title=?")
		args = append(args, *u.Title)
	}
	if u.Description != nil {
		fields = append(fields, "description=?")
		args = append(args, nullable(*u.Description))
	}
	if u.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, nullable(*u.Status))
	}
	if u.Priority != nil {
		fields = append(fields, "priority=?")
		args = append(args, nullable(*u.Priority))
	}
	if u.ClearAssignee {
		fields = append(fields, "assignee_id=NULL")
	} else if u.AssigneeID != nil {
		fields = append(fields, "assignee_id=?")
		args = append(args, *u.AssigneeID)
	}
	if u.ClearContent {
		fields = append(fields, "content=NULL")
	} else if u.Content != nil {
		fields = append(fields, "content=?")
		args = append(args, *u.Content)
	}
	if u.Icon != nil {
		fields = append(fields, "icon=?")
		args = append(args, nullable(*u.Icon))
	}
	if u.CoverImage != nil {
		fields = append(fields, "cover_image=?")
		args = append(args, nullable(*u.CoverImage))
	}
	if u.ClearDueDate {
		fields = append(fields, "due_date=NULL")
	} else if u.DueDate != nil {
		fields = append(fields, "due_date=?")
		args = append(args, *u.DueDate)
	}
	if u.ClearParent {
		fields = append(fields, "parent_id=NULL")
	} else if u.ParentID != nil {
		fields = append(fields, "parent_id=?")
		args = append(args, *u.ParentID)
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, updatedAt, id)
	res, err := r.q(tx).ExecContext(ctx, `UPDATE items SET `+strings.Join(fields, ",")+` WHERE id=?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteItem(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM items WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteChildren removes items whose parent is the given item. One level
// only: containers hold direct children, grandchildren are not chased.
func (r Repo) DeleteChildren(ctx context.Context, tx *sql.Tx, parentID string) (int64, error) {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM items WHERE parent_id=?`, parentID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r Repo) CountItemsByKind(ctx context.Context, projectID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT kind, count(*) FROM items WHERE project_id=? GROUP BY kind`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		res[kind] = count
	}
	return res, rows.Err()
}
