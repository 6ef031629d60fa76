// Package payment adapts external payment providers (Khalti, eSewa) to a
// single initiate/verify contract. The rest of the system treats a
// normalized "completed" status as the only commit signal; everything else
// is pending or failed.
package payment

import (
	"context"
	"errors"
	"time"
)

// Status is the normalized verification outcome.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
)

// ErrUpstream wraps provider transport errors and timeouts. Callers treat
// it as retryable: the purchase stays PENDING.
var ErrUpstream = errors.New("payment gateway unavailable")

const defaultTimeout = 10 * time.Second

type InitiateRequest struct {
	AmountCents    int64
	TransactionRef string
	OrderName      string
	BuyerName      string
	BuyerEmail     string
	ReturnURL      string
}

type InitiateResult struct {
	RedirectURL  string
	PaymentIndex string
}

type VerifyResult struct {
	Status        Status
	TransactionID string
}

// Gateway is the provider contract consumed by the purchase ledger.
type Gateway interface {
	Name() string
	Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error)
	Verify(ctx context.Context, paymentIndex string) (VerifyResult, error)
}
