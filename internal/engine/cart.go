package engine

import (
	"context"

	"github.com/google/uuid"

	"keepup/internal/domain"
	"keepup/internal/repo"
)

// AddToCart puts a template in the user's cart, snapshotting the current
// price. Adding the same template twice is a no-op, and already-owned
// templates are rejected the same way initiation rejects them.
func (e Engine) AddToCart(ctx context.Context, userID, templateID string) (domain.CartLine, error) {
	t, err := e.Repo.GetTemplate(ctx, templateID)
	if err != nil {
		return domain.CartLine{}, err
	}
	if _, err := e.Repo.FindCompletedPurchase(ctx, userID, templateID); err == nil {
		return domain.CartLine{}, ErrAlreadyOwned
	} else if err != repo.ErrNotFound {
		return domain.CartLine{}, err
	}
	line := domain.CartLine{
		ID:         uuid.NewString(),
		UserID:     userID,
		TemplateID: templateID,
		PriceCents: t.PriceCents,
		AddedAt:    e.nowRFC3339(),
	}
	if err := e.Repo.InsertCartLine(ctx, line); err != nil {
		return domain.CartLine{}, err
	}
	// The insert is a no-op on conflict; return whatever line is stored.
	return e.Repo.GetCartLine(ctx, userID, templateID)
}

func (e Engine) ListCart(ctx context.Context, userID string) ([]domain.CartLine, error) {
	return e.Repo.ListCartLines(ctx, userID)
}

func (e Engine) RemoveFromCart(ctx context.Context, userID, templateID string) error {
	return e.Repo.DeleteCartLine(ctx, userID, templateID)
}

func (e Engine) ClearCart(ctx context.Context, userID string) error {
	return e.Repo.ClearCart(ctx, userID)
}

// CartCheckoutLine is the initiation outcome for one cart line.
type CartCheckoutLine struct {
	TemplateID  string `json:"template_id"`
	PurchaseID  string `json:"purchase_id,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// CheckoutCart initiates one purchase per cart line. Each provider redirect
// covers a single template, so lines are processed independently: a line
// that fails to initiate is reported and left in the cart, successful lines
// are removed.
func (e Engine) CheckoutCart(ctx context.Context, userID, method string) ([]CartCheckoutLine, error) {
	lines, err := e.Repo.ListCartLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]CartCheckoutLine, 0, len(lines))
	for _, line := range lines {
		res, err := e.InitiatePurchase(ctx, InitiateOptions{
			TemplateID: line.TemplateID,
			BuyerID:    userID,
			Method:     method,
		})
		entry := CartCheckoutLine{TemplateID: line.TemplateID}
		if err != nil {
			entry.Error = err.Error()
			out = append(out, entry)
			continue
		}
		entry.PurchaseID = res.Purchase.ID
		entry.RedirectURL = res.RedirectURL
		entry.ProjectID = res.ProjectID
		if err := e.Repo.DeleteCartLine(ctx, userID, line.TemplateID); err != nil && err != repo.ErrNotFound {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}
