package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Sandbox is an in-process gateway for development and tests. Payments
// start pending; Settle and Cancel move them, standing in for the buyer
// finishing (or abandoning) the hosted flow.
type Sandbox struct {
	mu       sync.Mutex
	payments map[string]VerifyResult
}

func NewSandbox() *Sandbox {
	return &Sandbox{payments: make(map[string]VerifyResult)}
}

func (s *Sandbox) Name() string { return "sandbox" }

func (s *Sandbox) Initiate(_ context.Context, req InitiateRequest) (InitiateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := uuid.NewString()
	s.payments[idx] = VerifyResult{Status: StatusPending}
	return InitiateResult{
		RedirectURL:  req.ReturnURL + "?pidx=" + idx,
		PaymentIndex: idx,
	}, nil
}

func (s *Sandbox) Verify(_ context.Context, paymentIndex string) (VerifyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.payments[paymentIndex]
	if !ok {
		return VerifyResult{Status: StatusFailed}, nil
	}
	return res, nil
}

// Settle marks a sandbox payment completed.
func (s *Sandbox) Settle(paymentIndex string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[paymentIndex] = VerifyResult{Status: StatusCompleted, TransactionID: uuid.NewString()}
}

// Cancel marks a sandbox payment failed.
func (s *Sandbox) Cancel(paymentIndex string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[paymentIndex] = VerifyResult{Status: StatusFailed}
}
