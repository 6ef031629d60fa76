package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"keepup/internal/config"
)

// Esewa speaks the ePay v2 form flow: initiation builds a signed redirect
// to the hosted form (the transaction UUID doubles as our payment index),
// verification polls the transaction status endpoint.
type Esewa struct {
	cfg    config.EsewaConfig
	client *http.Client
	log    *zap.Logger
}

func NewEsewa(cfg config.EsewaConfig, log *zap.Logger) *Esewa {
	if log == nil {
		log = zap.NewNop()
	}
	return &Esewa{
		cfg:    cfg,
		client: &http.Client{Timeout: defaultTimeout},
		log:    log,
	}
}

func (e *Esewa) Name() string { return "esewa" }

func (e *Esewa) Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
	// Amounts are rupees on the wire; cents are our storage unit.
	amount := fmt.Sprintf("%d.%02d", req.AmountCents/100, req.AmountCents%100)
	q := url.Values{}
	q.Set("amount", amount)
	q.Set("tax_amount", "0")
	q.Set("total_amount", amount)
	q.Set("transaction_uuid", req.TransactionRef)
	q.Set("product_code", e.cfg.ProductCode)
	q.Set("product_service_charge", "0")
	q.Set("product_delivery_charge", "0")
	q.Set("success_url", req.ReturnURL)
	q.Set("failure_url", req.ReturnURL)
	q.Set("signed_field_names", "total_amount,transaction_uuid,product_code")
	q.Set("signature", e.sign(amount, req.TransactionRef))
	return InitiateResult{
		RedirectURL:  e.cfg.BaseURL + "/api/epay/main/v2/form?" + q.Encode(),
		PaymentIndex: req.TransactionRef,
	}, nil
}

// sign computes the ePay v2 HMAC-SHA256 over the signed field list.
func (e *Esewa) sign(totalAmount, transactionUUID string) string {
	msg := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s", totalAmount, transactionUUID, e.cfg.ProductCode)
	mac := hmac.New(sha256.New, []byte(e.cfg.SecretKey))
	mac.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type esewaStatusResponse struct {
	Status string `json:"status"`
	RefID  string `json:"ref_id"`
}

func (e *Esewa) Verify(ctx context.Context, paymentIndex string) (VerifyResult, error) {
	q := url.Values{}
	q.Set("product_code", e.cfg.ProductCode)
	q.Set("transaction_uuid", paymentIndex)
	endpoint := e.cfg.BaseURL + "/api/epay/transaction/status/?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return VerifyResult{}, err
	}
	res, err := e.client.Do(req)
	if err != nil {
		e.log.Warn("esewa status check failed", zap.Error(err))
		return VerifyResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		e.log.Warn("esewa unexpected status", zap.Int("status", res.StatusCode))
		return VerifyResult{}, fmt.Errorf("%w: esewa status %d", ErrUpstream, res.StatusCode)
	}
	var body esewaStatusResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return VerifyResult{}, fmt.Errorf("%w: decode esewa response: %v", ErrUpstream, err)
	}
	return VerifyResult{
		Status:        esewaStatus(body.Status),
		TransactionID: body.RefID,
	}, nil
}

func esewaStatus(s string) Status {
	switch s {
	case "COMPLETE":
		return StatusCompleted
	case "CANCELED", "FAILURE", "NOT_FOUND":
		return StatusFailed
	default:
		return StatusPending
	}
}
