package repo

import (
	"context"
	"database/sql"

	"keepup/internal/domain"
)

func (r Repo) InsertCartLine(ctx context.Context, line domain.CartLine) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO cart_lines(id,user_id,template_id,price_cents,added_at) VALUES (?,?,?,?,?)
ON CONFLICT(user_id,template_id) DO NOTHING`,
		line.ID, line.UserID, line.TemplateID, line.PriceCents, line.AddedAt)
	return err
}

func (r Repo) ListCartLines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,user_id,template_id,price_cents,added_at FROM cart_lines WHERE user_id=? ORDER BY added_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CartLine
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ID, &l.UserID, &l.TemplateID, &l.PriceCents, &l.AddedAt); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

func (r Repo) GetCartLine(ctx context.Context, userID, templateID string) (domain.CartLine, error) {
	var l domain.CartLine
	err := r.DB.QueryRowContext(ctx, `SELECT id,user_id,template_id,price_cents,added_at FROM cart_lines WHERE user_id=? AND template_id=?`, userID, templateID).
		Scan(&l.ID, &l.UserID, &l.TemplateID, &l.PriceCents, &l.AddedAt)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	return l, err
}

func (r Repo) DeleteCartLine(ctx context.Context, userID, templateID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id=? AND template_id=?`, userID, templateID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ClearCart(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id=?`, userID)
	return err
}
