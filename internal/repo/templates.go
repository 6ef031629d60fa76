package repo

import (
	"context"
	"database/sql"
	"strings"

	"keepup/internal/domain"
)

const templateColumns = `id,title,COALESCE(description,''),price_cents,author_id,COALESCE(icon,''),COALESCE(cover_image,''),created_at,updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (domain.Template, error) {
	var t domain.Template
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.PriceCents, &t.AuthorID, &t.Icon, &t.CoverImage, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) InsertTemplate(ctx context.Context, tx *sql.Tx, t domain.Template) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO templates(id,title,description,price_cents,author_id,icon,cover_image,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, nullable(t.Description), t.PriceCents, t.AuthorID, nullable(t.Icon), nullable(t.CoverImage), t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) InsertTemplateItem(ctx context.Context, tx *sql.Tx, it domain.TemplateItem) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO template_items(id,template_id,position,parent_id,kind,title,description,status,priority,assignee_id,content,icon,cover_image,due_date)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		it.ID, it.TemplateID, it.Position, nullableStringPtr(it.ParentID), it.Kind, it.Title, nullable(it.Description),
		nullable(it.Status), nullable(it.Priority), nullableStringPtr(it.AssigneeID), nullableStringPtr(it.Content),
		nullable(it.Icon), nullable(it.CoverImage), nullableStringPtr(it.DueDate))
	return err
}

func (r Repo) GetTemplate(ctx context.Context, id string) (domain.Template, error) {
	return scanTemplate(r.DB.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id=?`, id))
}

// ListTemplateItems returns snapshot items in authored order.
func (r Repo) ListTemplateItems(ctx context.Context, templateID string) ([]domain.TemplateItem, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,template_id,position,parent_id,kind,title,description,status,priority,assignee_id,content,icon,cover_image,due_date
FROM template_items WHERE template_id=? ORDER BY position ASC`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TemplateItem
	for rows.Next() {
		var it domain.TemplateItem
		var parentID, description, status, priority, assigneeID, content, icon, cover, dueDate sql.NullString
		if err := rows.Scan(&it.ID, &it.TemplateID, &it.Position, &parentID, &it.Kind, &it.Title, &description,
			&status, &priority, &assigneeID, &content, &icon, &cover, &dueDate); err != nil {
			return nil, err
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
		res = append(res, it)
	}
	return res, rows.Err()
}

type TemplateFilters struct {
	AuthorID        string
	MaxPriceCents   int64
	Search          string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListTemplates(ctx context.Context, f TemplateFilters) ([]domain.Template, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.AuthorID != "" {
		clauses = append(clauses, "author_id=?")
		args = append(args, f.AuthorID)
	}
	if f.MaxPriceCents > 0 {
		clauses = append(clauses, "price_cents<=?")
		args = append(args, f.MaxPriceCents)
	}
	if f.Search != "" {
		clauses = append(clauses, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	query := `SELECT ` + templateColumns + ` FROM templates WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

type TemplateUpdate struct {
	Title       *string
	Description *string
	PriceCents  *int64
}

// UpdateTemplateMeta edits the sellable metadata. Snapshot items are never
// touched after publish.
func (r Repo) UpdateTemplateMeta(ctx context.Context, id, updatedAt string, u TemplateUpdate) error {
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
	if u.PriceCents != nil {
		fields = append(fields, "price_cents=?")
		args = append(args, *u.PriceCents)
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, updatedAt, id)
	res, err := r.DB.ExecContext(ctx, `UPDATE templates SET `+strings.Join(fields, ",")+` WHERE id=?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTemplate(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM templates WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordPurchaser adds the buyer to the template's purchaser set,
// idempotently.
func (r Repo) RecordPurchaser(ctx context.Context, tx *sql.Tx, templateID, userID string) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT OR IGNORE INTO template_purchasers(template_id,user_id) VALUES (?,?)`, templateID, userID)
	return err
}

func (r Repo) CountPurchasers(ctx context.Context, templateID string) (int, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM template_purchasers WHERE template_id=?`, templateID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
