package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"keepup/internal/config"
)

// Khalti speaks the ePayment API: POST /epayment/initiate/ issues a pidx
// and a hosted payment URL, POST /epayment/lookup/ reports status by pidx.
type Khalti struct {
	cfg    config.KhaltiConfig
	client *http.Client
	log    *zap.Logger
}

func NewKhalti(cfg config.KhaltiConfig, log *zap.Logger) *Khalti {
	if log == nil {
		log = zap.NewNop()
	}
	return &Khalti{
		cfg:    cfg,
		client: &http.Client{Timeout: defaultTimeout},
		log:    log,
	}
}

func (k *Khalti) Name() string { return "khalti" }

type khaltiInitiateRequest struct {
	ReturnURL         string `json:"return_url"`
	WebsiteURL        string `json:"website_url"`
	Amount            int64  `json:"amount"`
	PurchaseOrderID   string `json:"purchase_order_id"`
	PurchaseOrderName string `json:"purchase_order_name"`
	CustomerInfo      struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"customer_info"`
}

type khaltiInitiateResponse struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
}

type khaltiLookupResponse struct {
	Pidx          string `json:"pidx"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

func (k *Khalti) Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
	body := khaltiInitiateRequest{
		ReturnURL:         req.ReturnURL,
		WebsiteURL:        req.ReturnURL,
		Amount:            req.AmountCents,
		PurchaseOrderID:   req.TransactionRef,
		PurchaseOrderName: req.OrderName,
	}
	body.CustomerInfo.Name = req.BuyerName
	body.CustomerInfo.Email = req.BuyerEmail

	var resp khaltiInitiateResponse
	if err := k.post(ctx, "/epayment/initiate/", body, &resp); err != nil {
		return InitiateResult{}, err
	}
	if resp.Pidx == "" || resp.PaymentURL == "" {
		return InitiateResult{}, fmt.Errorf("%w: khalti initiate returned empty pidx", ErrUpstream)
	}
	return InitiateResult{RedirectURL: resp.PaymentURL, PaymentIndex: resp.Pidx}, nil
}

func (k *Khalti) Verify(ctx context.Context, paymentIndex string) (VerifyResult, error) {
	var resp khaltiLookupResponse
	if err := k.post(ctx, "/epayment/lookup/", map[string]string{"pidx": paymentIndex}, &resp); err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{
		Status:        khaltiStatus(resp.Status),
		TransactionID: resp.TransactionID,
	}, nil
}

// khaltiStatus maps provider statuses onto the normalized set. Only
// "Completed" commits; "Expired" and "User canceled" are definitive
// failures; everything else stays pending and is retryable.
func khaltiStatus(s string) Status {
	switch s {
	case "Completed":
		return StatusCompleted
	case "Expired", "User canceled", "Refunded":
		return StatusFailed
	default:
		return StatusPending
	}
}

func (k *Khalti) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key "+k.cfg.SecretKey)
	res, err := k.client.Do(req)
	if err != nil {
		k.log.Warn("khalti request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		k.log.Warn("khalti unexpected status", zap.String("path", path), zap.Int("status", res.StatusCode))
		return fmt.Errorf("%w: khalti status %d", ErrUpstream, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode khalti response: %v", ErrUpstream, err)
	}
	return nil
}
