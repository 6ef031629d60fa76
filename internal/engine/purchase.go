package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"keepup/internal/domain"
	"keepup/internal/events"
	"keepup/internal/payment"
	"keepup/internal/repo"
)

// InitiateOptions are parameters for starting a template purchase.
type InitiateOptions struct {
	TemplateID string
	BuyerID    string
	Method     string
}

// InitiateResult is what the caller needs to continue checkout. For paid
// templates RedirectURL sends the buyer to the provider; for free templates
// the clone happens immediately and ProjectID is already set.
type InitiateResult struct {
	Purchase    domain.Purchase
	RedirectURL string
	ProjectID   string
}

// InitiatePurchase opens a purchase for (buyer, template). The ownership
// gate runs before any provider call: a buyer with a COMPLETED purchase of
// the same template is rejected outright.
func (e Engine) InitiatePurchase(ctx context.Context, opts InitiateOptions) (InitiateResult, error) {
	t, err := e.Repo.GetTemplate(ctx, opts.TemplateID)
	if err != nil {
		return InitiateResult{}, err
	}
	if _, err := e.Repo.FindCompletedPurchase(ctx, opts.BuyerID, opts.TemplateID); err == nil {
		return InitiateResult{}, ErrAlreadyOwned
	} else if !errors.Is(err, repo.ErrNotFound) {
		return InitiateResult{}, err
	}
	buyer, err := e.Repo.GetUser(ctx, opts.BuyerID)
	if err != nil {
		return InitiateResult{}, err
	}

	if t.PriceCents == 0 {
		return e.claimFreeTemplate(ctx, t, buyer)
	}

	gw, err := e.gateway(opts.Method)
	if err != nil {
		return InitiateResult{}, err
	}
	now := e.nowRFC3339()
	pu := domain.Purchase{
		ID:             uuid.NewString(),
		BuyerID:        opts.BuyerID,
		TemplateID:     opts.TemplateID,
		AmountCents:    t.PriceCents,
		TransactionRef: uuid.NewString(),
		Status:         domain.PurchasePending,
		Method:         gw.Name(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.Repo.InsertPurchase(ctx, nil, pu); err != nil {
		return InitiateResult{}, fmt.Errorf("insert purchase: %w", err)
	}

	returnURL := e.returnURL(gw.Name())
	res, err := gw.Initiate(ctx, payment.InitiateRequest{
		AmountCents:    t.PriceCents,
		TransactionRef: pu.TransactionRef,
		OrderName:      t.Title,
		BuyerName:      buyer.Name,
		BuyerEmail:     buyer.Email,
		ReturnURL:      returnURL,
	})
	if err != nil {
		// The purchase stays PENDING: initiation can be retried and the
		// abandoned row never completes.
		e.log().Warn("payment initiation failed",
			zap.String("purchase_id", pu.ID), zap.String("gateway", gw.Name()), zap.Error(err))
		return InitiateResult{}, err
	}
	if err := e.Repo.SetProviderPaymentIndex(ctx, pu.ID, res.PaymentIndex, e.nowRFC3339()); err != nil {
		return InitiateResult{}, err
	}
	pu.ProviderPaymentIndex = &res.PaymentIndex
	e.appendEvent(ctx, events.TypePurchaseInitiate, "", "purchase", pu.ID, opts.BuyerID,
		events.EventPayload{"template_id": t.ID, "amount_cents": t.PriceCents, "gateway": gw.Name()})
	return InitiateResult{Purchase: pu, RedirectURL: res.RedirectURL}, nil
}

// claimFreeTemplate is the zero-price path: no provider round trip, the
// purchase is recorded COMPLETED and the clone happens in the same
// transaction.
func (e Engine) claimFreeTemplate(ctx context.Context, t domain.Template, buyer domain.User) (InitiateResult, error) {
	items, err := e.Repo.ListTemplateItems(ctx, t.ID)
	if err != nil {
		return InitiateResult{}, err
	}
	now := e.nowRFC3339()
	pu := domain.Purchase{
		ID:             uuid.NewString(),
		BuyerID:        buyer.ID,
		TemplateID:     t.ID,
		AmountCents:    0,
		TransactionRef: uuid.NewString(),
		Status:         domain.PurchaseCompleted,
		Method:         "free",
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return InitiateResult{}, err
	}
	defer tx.Rollback()
	p, err := e.instantiate(ctx, tx, t, items, buyer.ID)
	if err != nil {
		return InitiateResult{}, err
	}
	pu.ProjectID = &p.ID
	if err := e.Repo.InsertPurchase(ctx, tx, pu); err != nil {
		return InitiateResult{}, fmt.Errorf("insert purchase: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.TypePurchaseComplete, p.ID, "purchase", pu.ID, buyer.ID,
		events.EventPayload{"template_id": t.ID, "amount_cents": int64(0)}); err != nil {
		return InitiateResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return InitiateResult{}, err
	}
	return InitiateResult{Purchase: pu, ProjectID: p.ID}, nil
}

// VerifyResult reports the outcome of a payment verification.
type VerifyResult struct {
	Purchase  domain.Purchase
	ProjectID string
}

// VerifyPurchase looks up the purchase for a provider payment index, asks
// the gateway for the payment status, and on a definitive completed signal
// transitions the purchase and clones the template.
//
// The PENDING to COMPLETED flip is a conditional update and the clone runs
// in the same transaction, so two concurrent verifications of one payment
// index produce exactly one project: the loser's transaction observes zero
// affected rows, rolls back its clone, and takes the idempotent path.
func (e Engine) VerifyPurchase(ctx context.Context, paymentIndex string) (VerifyResult, error) {
	pu, err := e.Repo.GetPurchaseByPaymentIndex(ctx, paymentIndex)
	if err != nil {
		return VerifyResult{}, err
	}
	switch pu.Status {
	case domain.PurchaseCompleted:
		return verifyResultFor(pu), nil
	case domain.PurchaseFailed, domain.PurchaseRefunded:
		return VerifyResult{}, fmt.Errorf("%w: %s", ErrPurchaseClosed, pu.Status)
	}

	gw, err := e.gateway(pu.Method)
	if err != nil {
		return VerifyResult{}, err
	}
	res, err := gw.Verify(ctx, paymentIndex)
	if err != nil {
		// Upstream trouble is retryable; the purchase stays PENDING.
		return VerifyResult{}, err
	}
	switch res.Status {
	case payment.StatusCompleted:
	case payment.StatusFailed:
		if _, err := e.Repo.FailPurchase(ctx, pu.ID, e.nowRFC3339()); err != nil {
			return VerifyResult{}, err
		}
		e.appendEvent(ctx, events.TypePurchaseFail, "", "purchase", pu.ID, pu.BuyerID, nil)
		return VerifyResult{}, ErrPaymentFailed
	default:
		return VerifyResult{}, ErrPaymentPending
	}

	t, err := e.Repo.GetTemplate(ctx, pu.TemplateID)
	if err != nil {
		return VerifyResult{}, err
	}
	items, err := e.Repo.ListTemplateItems(ctx, pu.TemplateID)
	if err != nil {
		return VerifyResult{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return VerifyResult{}, err
	}
	defer tx.Rollback()
	p, err := e.instantiate(ctx, tx, t, items, pu.BuyerID)
	if err != nil {
		return VerifyResult{}, err
	}
	won, err := e.Repo.CompletePurchase(ctx, tx, pu.ID, res.TransactionID, p.ID, e.nowRFC3339())
	if err != nil {
		return VerifyResult{}, err
	}
	if !won {
		// A concurrent verification committed first. Roll back our clone
		// and report theirs.
		tx.Rollback()
		pu, err = e.Repo.GetPurchase(ctx, pu.ID)
		if err != nil {
			return VerifyResult{}, err
		}
		if pu.Status != domain.PurchaseCompleted {
			return VerifyResult{}, fmt.Errorf("%w: %s", ErrPurchaseClosed, pu.Status)
		}
		return verifyResultFor(pu), nil
	}
	if err := e.Events.Append(ctx, tx, events.TypePurchaseComplete, p.ID, "purchase", pu.ID, pu.BuyerID,
		events.EventPayload{"template_id": t.ID, "amount_cents": pu.AmountCents, "gateway": gw.Name()}); err != nil {
		return VerifyResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return VerifyResult{}, err
	}
	pu.Status = domain.PurchaseCompleted
	pu.ProviderTransactionID = &res.TransactionID
	pu.ProjectID = &p.ID
	return VerifyResult{Purchase: pu, ProjectID: p.ID}, nil
}

func verifyResultFor(pu domain.Purchase) VerifyResult {
	r := VerifyResult{Purchase: pu}
	if pu.ProjectID != nil {
		r.ProjectID = *pu.ProjectID
	}
	return r
}

func (e Engine) GetPurchase(ctx context.Context, id, actorID string) (domain.Purchase, error) {
	pu, err := e.Repo.GetPurchase(ctx, id)
	if err != nil {
		return domain.Purchase{}, err
	}
	if pu.BuyerID != actorID {
		return domain.Purchase{}, ErrForbidden
	}
	return pu, nil
}

func (e Engine) ListPurchases(ctx context.Context, buyerID string, f repo.PurchaseFilters) ([]domain.Purchase, error) {
	f.BuyerID = buyerID
	return e.Repo.ListPurchases(ctx, f)
}

func (e Engine) returnURL(gateway string) string {
	if e.Config == nil {
		return ""
	}
	switch gateway {
	case "khalti":
		return e.Config.Gateways.Khalti.ReturnURL
	case "esewa":
		return e.Config.Gateways.Esewa.ReturnURL
	}
	return ""
}
