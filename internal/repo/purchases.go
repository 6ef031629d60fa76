package repo

import (
	"context"
	"database/sql"
	"strings"

	"keepup/internal/domain"
)

const purchaseColumns = `id,buyer_id,template_id,amount_cents,transaction_ref,provider_payment_index,provider_transaction_id,status,method,project_id,created_at,updated_at`

func scanPurchase(row interface{ Scan(...any) error }) (domain.Purchase, error) {
	var p domain.Purchase
	var paymentIndex, transactionID, projectID sql.NullString
	err := row.Scan(&p.ID, &p.BuyerID, &p.TemplateID, &p.AmountCents, &p.TransactionRef,
		&paymentIndex, &transactionID, &p.Status, &p.Method, &projectID, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if paymentIndex.Valid {
		p.ProviderPaymentIndex = &paymentIndex.String
	}
	if transactionID.Valid {
		p.ProviderTransactionID = &transactionID.String
	}
	if projectID.Valid {
		p.ProjectID = &projectID.String
	}
	return p, nil
}

func (r Repo) InsertPurchase(ctx context.Context, tx *sql.Tx, p domain.Purchase) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO purchases(`+purchaseColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.BuyerID, p.TemplateID, p.AmountCents, p.TransactionRef,
		nullableStringPtr(p.ProviderPaymentIndex), nullableStringPtr(p.ProviderTransactionID),
		p.Status, p.Method, nullableStringPtr(p.ProjectID), p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) GetPurchase(ctx context.Context, id string) (domain.Purchase, error) {
	return scanPurchase(r.DB.QueryRowContext(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id=?`, id))
}

func (r Repo) GetPurchaseByPaymentIndex(ctx context.Context, paymentIndex string) (domain.Purchase, error) {
	return scanPurchase(r.DB.QueryRowContext(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE provider_payment_index=?`, paymentIndex))
}

// FindCompletedPurchase reports whether the buyer already completed a
// purchase of the template. Used as the ownership gate at initiation.
func (r Repo) FindCompletedPurchase(ctx context.Context, buyerID, templateID string) (domain.Purchase, error) {
	return scanPurchase(r.DB.QueryRowContext(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE buyer_id=? AND template_id=? AND status=? LIMIT 1`,
		buyerID, templateID, domain.PurchaseCompleted))
}

// SetProviderPaymentIndex stores the index issued by the gateway at
// initiation time.
func (r Repo) SetProviderPaymentIndex(ctx context.Context, id, paymentIndex, updatedAt string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE purchases SET provider_payment_index=?, updated_at=? WHERE id=?`,
		paymentIndex, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CompletePurchase flips PENDING to COMPLETED as a conditional update.
// Returns true only for the caller that won the transition; a false
// return with nil error means another verification already committed.
func (r Repo) CompletePurchase(ctx context.Context, tx *sql.Tx, id, providerTransactionID, projectID, updatedAt string) (bool, error) {
	res, err := r.q(tx).ExecContext(ctx,
		`UPDATE purchases SET status=?, provider_transaction_id=?, project_id=?, updated_at=? WHERE id=? AND status=?`,
		domain.PurchaseCompleted, providerTransactionID, nullable(projectID), updatedAt, id, domain.PurchasePending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// FailPurchase flips PENDING to FAILED; terminal states are never altered.
func (r Repo) FailPurchase(ctx context.Context, id, updatedAt string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE purchases SET status=?, updated_at=? WHERE id=? AND status=?`,
		domain.PurchaseFailed, updatedAt, id, domain.PurchasePending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

type PurchaseFilters struct {
	BuyerID    string
	TemplateID string
	Status     string
	Limit      int
}

func (r Repo) ListPurchases(ctx context.Context, f PurchaseFilters) ([]domain.Purchase, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.BuyerID != "" {
		clauses = append(clauses, "buyer_id=?")
		args = append(args, f.BuyerID)
	}
	if f.TemplateID != "" {
		clauses = append(clauses, "template_id=?")
		args = append(args, f.TemplateID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
