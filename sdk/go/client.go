// Package keepupsdk is a minimal HTTP client for the KeepUp API.
package keepupsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal KeepUp HTTP API client. Deliberately partial: it
// covers the marketplace flow (browse, buy, verify) and basic project
// reads.
type Client struct {
	BaseURL      string
	APIKey       string
	BearerToken  string
	ClientHeader string
	HTTPClient   *http.Client
	Timeout      time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:      baseURL,
		ClientHeader: "X-KeepUp-Client",
		Timeout:      10 * time.Second,
	}
}

type Project struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	OwnerID     string `json:"owner_id"`
	Icon        string `json:"icon,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type Template struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	AuthorID    string `json:"author_id"`
	CreatedAt   string `json:"created_at"`
}

type Purchase struct {
	ID                   string  `json:"id"`
	TemplateID           string  `json:"template_id"`
	AmountCents          int64   `json:"amount_cents"`
	ProviderPaymentIndex *string `json:"provider_payment_index,omitempty"`
	Status               string  `json:"status"`
	Method               string  `json:"method"`
	ProjectID            *string `json:"project_id,omitempty"`
}

type InitiateResult struct {
	Purchase    Purchase `json:"purchase"`
	RedirectURL string   `json:"redirect_url,omitempty"`
	ProjectID   string   `json:"project_id,omitempty"`
}

type VerifyResult struct {
	Purchase  Purchase `json:"purchase"`
	ProjectID string   `json:"project_id"`
}

type Session struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, email, name, password string) error {
	body := map[string]any{"email": email, "name": name, "password": password}
	return c.do(ctx, http.MethodPost, "v1/auth/register", body, nil)
}

// Login starts a login and returns the OTP challenge ID.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]any{"email": email, "password": password}
	var resp struct {
		ChallengeID string `json:"challenge_id"`
	}
	err := c.do(ctx, http.MethodPost, "v1/auth/login", body, &resp)
	return resp.ChallengeID, err
}

// VerifyOTP finishes a login; the token is stored on the client.
func (c *Client) VerifyOTP(ctx context.Context, challengeID, code string) (Session, error) {
	body := map[string]any{"challenge_id": challengeID, "code": code}
	var resp Session
	if err := c.do(ctx, http.MethodPost, "v1/auth/verify-otp", body, &resp); err != nil {
		return Session{}, err
	}
	c.BearerToken = resp.Token
	return resp, nil
}

// ListProjects returns the caller's projects.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var resp []Project
	err := c.do(ctx, http.MethodGet, "v1/projects", nil, &resp)
	return resp, err
}

// ListTemplates browses the marketplace.
func (c *Client) ListTemplates(ctx context.Context, search string) ([]Template, error) {
	endpoint := "v1/templates"
	if search != "" {
		endpoint += "?search=" + url.QueryEscape(search)
	}
	var resp []Template
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// BuyTemplate starts a purchase. For paid templates, send the buyer to
// RedirectURL; for free ones ProjectID is already set.
func (c *Client) BuyTemplate(ctx context.Context, templateID, method string) (InitiateResult, error) {
	body := map[string]any{"template_id": templateID}
	if method != "" {
		body["method"] = method
	}
	var resp InitiateResult
	err := c.do(ctx, http.MethodPost, "v1/purchases", body, &resp)
	return resp, err
}

// VerifyPayment verifies a payment by its provider payment index.
func (c *Client) VerifyPayment(ctx context.Context, paymentIndex string) (VerifyResult, error) {
	endpoint := "v1/payments/verify?pidx=" + url.QueryEscape(paymentIndex)
	var resp VerifyResult
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// ListPurchases returns the caller's purchases.
func (c *Client) ListPurchases(ctx context.Context) ([]Purchase, error) {
	var resp []Purchase
	err := c.do(ctx, http.MethodGet, "v1/purchases", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.ClientHeader != "" {
		req.Header.Set(c.ClientHeader, "sdk-go")
	}
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
