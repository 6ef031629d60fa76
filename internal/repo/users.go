package repo

import (
	"context"
	"database/sql"

	"keepup/internal/domain"
)

func (r Repo) InsertUser(ctx context.Context, u domain.User) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO users(id,email,name,password_hash,created_at) VALUES (?,?,?,?,?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt)
	return err
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT id,email,name,password_hash,created_at FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT id,email,name,password_hash,created_at FROM users WHERE email=?`, email))
}

func (r Repo) InsertOTPChallenge(ctx context.Context, c domain.OTPChallenge) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO otp_challenges(id,user_id,code_hash,expires_at,consumed_at,created_at) VALUES (?,?,?,?,?,?)`,
		c.ID, c.UserID, c.CodeHash, c.ExpiresAt, nullableStringPtr(c.ConsumedAt), c.CreatedAt)
	return err
}

func (r Repo) GetOTPChallenge(ctx context.Context, id string) (domain.OTPChallenge, error) {
	var c domain.OTPChallenge
	var consumed sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,user_id,code_hash,expires_at,consumed_at,created_at FROM otp_challenges WHERE id=?`, id).
		Scan(&c.ID, &c.UserID, &c.CodeHash, &c.ExpiresAt, &consumed, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if consumed.Valid {
		c.ConsumedAt = &consumed.String
	}
	return c, err
}

// ConsumeOTPChallenge marks a challenge used, conditionally: only an
// unconsumed challenge can be consumed, so a replayed code loses.
func (r Repo) ConsumeOTPChallenge(ctx context.Context, id, consumedAt string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE otp_challenges SET consumed_at=? WHERE id=? AND consumed_at IS NULL`, consumedAt, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
