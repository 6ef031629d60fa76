package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keepup/internal/config"
)

func TestEsewaInitiateBuildsSignedRedirect(t *testing.T) {
	e := NewEsewa(config.EsewaConfig{
		ProductCode: "EPAYTEST",
		SecretKey:   "8gBm/:&EnhH.1/q",
		BaseURL:     "https://rc-epay.example",
	}, nil)

	res, err := e.Initiate(context.Background(), InitiateRequest{
		AmountCents:    123450,
		TransactionRef: "ref-42",
		ReturnURL:      "http://localhost/cb",
	})
	require.NoError(t, err)
	assert.Equal(t, "ref-42", res.PaymentIndex, "the transaction ref doubles as the payment index")

	u, err := url.Parse(res.RedirectURL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.RedirectURL, "https://rc-epay.example/api/epay/main/v2/form?"))
	q := u.Query()
	assert.Equal(t, "1234.50", q.Get("total_amount"), "cents become rupees on the wire")
	assert.Equal(t, "ref-42", q.Get("transaction_uuid"))
	assert.Equal(t, "EPAYTEST", q.Get("product_code"))
	assert.Equal(t, "total_amount,transaction_uuid,product_code", q.Get("signed_field_names"))

	msg := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s", "1234.50", "ref-42", "EPAYTEST")
	mac := hmac.New(sha256.New, []byte("8gBm/:&EnhH.1/q"))
	mac.Write([]byte(msg))
	assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), q.Get("signature"))
}

func TestEsewaVerifyStatusMapping(t *testing.T) {
	cases := []struct {
		provider string
		want     Status
	}{
		{"COMPLETE", StatusCompleted},
		{"PENDING", StatusPending},
		{"AMBIGUOUS", StatusPending},
		{"CANCELED", StatusFailed},
		{"FAILURE", StatusFailed},
		{"NOT_FOUND", StatusFailed},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/epay/transaction/status/", r.URL.Path)
			require.Equal(t, "tx-1", r.URL.Query().Get("transaction_uuid"))
			json.NewEncoder(w).Encode(esewaStatusResponse{Status: tc.provider, RefID: "ref-id-1"})
		}))
		e := NewEsewa(config.EsewaConfig{ProductCode: "EPAYTEST", BaseURL: srv.URL}, nil)
		res, err := e.Verify(context.Background(), "tx-1")
		srv.Close()
		require.NoError(t, err, tc.provider)
		assert.Equal(t, tc.want, res.Status, "provider status %q", tc.provider)
		if tc.want == StatusCompleted {
			assert.Equal(t, "ref-id-1", res.TransactionID)
		}
	}
}

func TestEsewaVerifyUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	e := NewEsewa(config.EsewaConfig{BaseURL: srv.URL}, nil)
	_, err := e.Verify(context.Background(), "tx")
	assert.ErrorIs(t, err, ErrUpstream)

	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	e = NewEsewa(config.EsewaConfig{BaseURL: dead.URL}, nil)
	_, err = e.Verify(context.Background(), "tx")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestSandboxLifecycle(t *testing.T) {
	s := NewSandbox()
	res, err := s.Initiate(context.Background(), InitiateRequest{ReturnURL: "http://localhost/cb"})
	require.NoError(t, err)
	require.NotEmpty(t, res.PaymentIndex)
	assert.Contains(t, res.RedirectURL, "pidx="+res.PaymentIndex)

	v, err := s.Verify(context.Background(), res.PaymentIndex)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, v.Status)

	s.Settle(res.PaymentIndex)
	v, err = s.Verify(context.Background(), res.PaymentIndex)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, v.Status)
	assert.NotEmpty(t, v.TransactionID)

	s.Cancel(res.PaymentIndex)
	v, _ = s.Verify(context.Background(), res.PaymentIndex)
	assert.Equal(t, StatusFailed, v.Status)

	v, err = s.Verify(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, v.Status, "unknown indexes read as failed")
}
