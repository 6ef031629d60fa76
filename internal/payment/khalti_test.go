package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keepup/internal/config"
)

func khaltiForTest(t *testing.T, handler http.HandlerFunc) *Khalti {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewKhalti(config.KhaltiConfig{SecretKey: "test-key", BaseURL: srv.URL}, nil)
}

func TestKhaltiInitiate(t *testing.T) {
	var gotAuth string
	var gotBody khaltiInitiateRequest
	k := khaltiForTest(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/epayment/initiate/", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(khaltiInitiateResponse{Pidx: "px-1", PaymentURL: "https://pay.example/px-1"})
	})

	res, err := k.Initiate(context.Background(), InitiateRequest{
		AmountCents:    1500,
		TransactionRef: "order-9",
		OrderName:      "Launch checklist",
		BuyerName:      "Asha",
		BuyerEmail:     "asha@example.com",
		ReturnURL:      "http://localhost/cb",
	})
	require.NoError(t, err)
	assert.Equal(t, "px-1", res.PaymentIndex)
	assert.Equal(t, "https://pay.example/px-1", res.RedirectURL)
	assert.Equal(t, "key test-key", gotAuth)
	assert.Equal(t, int64(1500), gotBody.Amount)
	assert.Equal(t, "order-9", gotBody.PurchaseOrderID)
	assert.Equal(t, "asha@example.com", gotBody.CustomerInfo.Email)
}

func TestKhaltiInitiateEmptyPidxIsUpstreamError(t *testing.T) {
	k := khaltiForTest(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(khaltiInitiateResponse{})
	})
	_, err := k.Initiate(context.Background(), InitiateRequest{AmountCents: 100})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestKhaltiVerifyStatusMapping(t *testing.T) {
	cases := []struct {
		provider string
		want     Status
	}{
		{"Completed", StatusCompleted},
		{"Pending", StatusPending},
		{"Initiated", StatusPending},
		{"Expired", StatusFailed},
		{"User canceled", StatusFailed},
		{"Refunded", StatusFailed},
		{"something-new", StatusPending},
	}
	for _, tc := range cases {
		k := khaltiForTest(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/epayment/lookup/", r.URL.Path)
			json.NewEncoder(w).Encode(khaltiLookupResponse{Pidx: "px", Status: tc.provider, TransactionID: "txn-1"})
		})
		res, err := k.Verify(context.Background(), "px")
		require.NoError(t, err, tc.provider)
		assert.Equal(t, tc.want, res.Status, "provider status %q", tc.provider)
	}
}

func TestKhaltiNon2xxIsUpstreamError(t *testing.T) {
	k := khaltiForTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := k.Verify(context.Background(), "px")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestKhaltiTransportFailureIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listening
	k := NewKhalti(config.KhaltiConfig{SecretKey: "k", BaseURL: srv.URL}, nil)
	_, err := k.Verify(context.Background(), "px")
	assert.ErrorIs(t, err, ErrUpstream)
}
