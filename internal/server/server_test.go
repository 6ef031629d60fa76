package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"keepup/internal/config"
	"keepup/internal/db"
	"keepup/internal/engine"
	"keepup/internal/migrate"
	"keepup/internal/payment"
	"keepup/internal/server"
)

type capturedMail struct {
	bodies []string
}

func (m *capturedMail) Send(_ context.Context, _, _, body string) error {
	m.bodies = append(m.bodies, body)
	return nil
}

func (m *capturedMail) lastCode(t *testing.T) string {
	t.Helper()
	if len(m.bodies) == 0 {
		t.Fatal("no mail captured")
	}
	code := regexp.MustCompile(`\d{6}`).FindString(m.bodies[len(m.bodies)-1])
	if code == "" {
		t.Fatalf("no code in mail body: %q", m.bodies[len(m.bodies)-1])
	}
	return code
}

type apiClient struct {
	t       *testing.T
	baseURL string
	token   string
	apiKey  string
}

type apiResponse struct {
	status int
	body   []byte
}

func (r apiResponse) decode(t *testing.T, out any) {
	t.Helper()
	if err := json.Unmarshal(r.body, out); err != nil {
		t.Fatalf("decode %s: %v", r.body, err)
	}
}

func (r apiResponse) errorCode(t *testing.T) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	r.decode(t, &envelope)
	return envelope.Error.Code
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) apiResponse {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	if err != nil {
		c.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-KeepUp-Client", "test")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	for k, v := range headers {
		if v == "" {
			req.Header.Del(k)
		} else {
			req.Header.Set(k, v)
		}
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatal(err)
	}
	defer res.Body.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(res.Body); err != nil {
		c.t.Fatal(err)
	}
	return apiResponse{status: res.StatusCode, body: out.Bytes()}
}

func (c *apiClient) mustDo(method, path string, body any, wantStatus int) apiResponse {
	c.t.Helper()
	res := c.do(method, path, body, nil)
	if res.status != wantStatus {
		c.t.Fatalf("%s %s: status %d, want %d; body %s", method, path, res.status, wantStatus, res.body)
	}
	return res
}

type testServer struct {
	URL     string
	Engine  engine.Engine
	Mail    *capturedMail
	Sandbox *payment.Sandbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatal(err)
	}
	eng := engine.New(conn, config.Default(), nil)
	mail := &capturedMail{}
	eng.Mailer = mail
	handler, err := server.New(server.Config{Engine: eng})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{
		URL:     srv.URL,
		Engine:  eng,
		Mail:    mail,
		Sandbox: eng.Gateways["sandbox"].(*payment.Sandbox),
	}
}

// signup registers, logs in, and completes the OTP challenge, returning an
// authenticated client.
func (ts *testServer) signup(t *testing.T, email string) *apiClient {
	t.Helper()
	c := &apiClient{t: t, baseURL: ts.URL}
	c.mustDo(http.MethodPost, "/v1/auth/register",
		map[string]string{"email": email, "name": "Tester", "password": "longenough"}, http.StatusCreated)

	var login struct {
		ChallengeID string `json:"challenge_id"`
	}
	c.mustDo(http.MethodPost, "/v1/auth/login",
		map[string]string{"email": email, "password": "longenough"}, http.StatusOK).decode(t, &login)

	var session struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	c.mustDo(http.MethodPost, "/v1/auth/verify-otp",
		map[string]string{"challenge_id": login.ChallengeID, "code": ts.Mail.lastCode(t)}, http.StatusOK).decode(t, &session)
	if session.Token == "" {
		t.Fatal("verify-otp returned empty token")
	}
	c.token = session.Token
	return c
}

func TestFullMarketplaceFlow(t *testing.T) {
	ts := newTestServer(t)
	author := ts.signup(t, "author@example.com")
	buyer := ts.signup(t, "buyer@example.com")

	var project struct {
		ID string `json:"id"`
	}
	author.mustDo(http.MethodPost, "/v1/projects",
		map[string]string{"title": "Conference plan", "description": "Run of show"}, http.StatusCreated).decode(t, &project)

	var list struct {
		ID string `json:"id"`
	}
	author.mustDo(http.MethodPost, "/v1/projects/"+project.ID+"/items",
		map[string]any{"kind": "list", "title": "Logistics", "content": `[{"text":"venue","checked":false}]`},
		http.StatusCreated).decode(t, &list)
	author.mustDo(http.MethodPost, "/v1/projects/"+project.ID+"/items",
		map[string]any{"kind": "task", "title": "Book catering", "parent_id": list.ID, "priority": "high"},
		http.StatusCreated)

	var tpl struct {
		ID         string `json:"id"`
		PriceCents int64  `json:"price_cents"`
	}
	author.mustDo(http.MethodPost, "/v1/projects/"+project.ID+"/publish",
		map[string]any{"price_cents": 2500}, http.StatusCreated).decode(t, &tpl)
	if tpl.PriceCents != 2500 {
		t.Fatalf("price = %d", tpl.PriceCents)
	}

	var listing []struct {
		ID string `json:"id"`
	}
	buyer.mustDo(http.MethodGet, "/v1/templates", nil, http.StatusOK).decode(t, &listing)
	if len(listing) != 1 || listing[0].ID != tpl.ID {
		t.Fatalf("marketplace listing = %+v", listing)
	}

	var initiated struct {
		Purchase struct {
			ID                   string  `json:"id"`
			Status               string  `json:"status"`
			ProviderPaymentIndex *string `json:"provider_payment_index"`
		} `json:"purchase"`
		RedirectURL string `json:"redirect_url"`
	}
	buyer.mustDo(http.MethodPost, "/v1/purchases",
		map[string]string{"template_id": tpl.ID, "method": "sandbox"}, http.StatusCreated).decode(t, &initiated)
	if initiated.Purchase.Status != "PENDING" || initiated.RedirectURL == "" {
		t.Fatalf("initiate = %+v", initiated)
	}
	pidx := *initiated.Purchase.ProviderPaymentIndex

	// Verification before the buyer pays: 402, purchase untouched.
	anon := &apiClient{t: t, baseURL: ts.URL}
	res := anon.do(http.MethodGet, "/v1/payments/verify?pidx="+pidx, nil, nil)
	if res.status != http.StatusPaymentRequired {
		t.Fatalf("early verify status = %d, body %s", res.status, res.body)
	}
	if code := res.errorCode(t); code != "payment_pending" {
		t.Fatalf("early verify code = %q", code)
	}

	ts.Sandbox.Settle(pidx)

	// The verify endpoint is public: the buyer's browser lands on it from
	// the provider redirect without a session.
	var verified struct {
		Purchase struct {
			Status string `json:"status"`
		} `json:"purchase"`
		ProjectID string `json:"project_id"`
	}
	anon.mustDo(http.MethodGet, "/v1/payments/verify?pidx="+pidx, nil, http.StatusOK).decode(t, &verified)
	if verified.Purchase.Status != "COMPLETED" || verified.ProjectID == "" {
		t.Fatalf("verify = %+v", verified)
	}

	var cloneItems []struct {
		Kind       string  `json:"kind"`
		Title      string  `json:"title"`
		AssigneeID *string `json:"assignee_id"`
		DueDate    *string `json:"due_date"`
	}
	buyer.mustDo(http.MethodGet, "/v1/projects/"+verified.ProjectID+"/items", nil, http.StatusOK).decode(t, &cloneItems)
	if len(cloneItems) != 2 {
		t.Fatalf("clone has %d items, want 2", len(cloneItems))
	}
	for _, it := range cloneItems {
		if it.AssigneeID == nil {
			t.Errorf("clone item %q has no assignee", it.Title)
		}
		if it.DueDate != nil {
			t.Errorf("clone item %q kept a due date", it.Title)
		}
	}

	// The author cannot see the buyer's clone.
	res = author.do(http.MethodGet, "/v1/projects/"+verified.ProjectID, nil, nil)
	if res.status != http.StatusForbidden {
		t.Fatalf("author reading clone: status %d", res.status)
	}

	// Second purchase attempt conflicts.
	res = buyer.do(http.MethodPost, "/v1/purchases", map[string]string{"template_id": tpl.ID}, nil)
	if res.status != http.StatusConflict || res.errorCode(t) != "already_owned" {
		t.Fatalf("repurchase: status %d, body %s", res.status, res.body)
	}
}

func TestMutationsRequireClientHeader(t *testing.T) {
	ts := newTestServer(t)
	c := &apiClient{t: t, baseURL: ts.URL}
	res := c.do(http.MethodPost, "/v1/auth/register",
		map[string]string{"email": "a@example.com", "password": "longenough"},
		map[string]string{"X-KeepUp-Client": ""})
	if res.status != http.StatusForbidden {
		t.Fatalf("status = %d, body %s", res.status, res.body)
	}
	if code := res.errorCode(t); code != "csrf_rejected" {
		t.Fatalf("code = %q", code)
	}
	// Reads pass without it.
	res = c.do(http.MethodGet, "/v1/health", nil, map[string]string{"X-KeepUp-Client": ""})
	if res.status != http.StatusOK {
		t.Fatalf("health status = %d", res.status)
	}
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	ts := newTestServer(t)
	c := &apiClient{t: t, baseURL: ts.URL}
	for _, path := range []string{"/v1/projects", "/v1/me", "/v1/cart", "/v1/purchases"} {
		res := c.do(http.MethodGet, path, nil, nil)
		if res.status != http.StatusUnauthorized {
			t.Errorf("GET %s: status %d, want 401", path, res.status)
		}
	}
	res := c.do(http.MethodGet, "/v1/projects", nil, map[string]string{"Authorization": "Bearer not-a-jwt"})
	if res.status != http.StatusUnauthorized {
		t.Errorf("garbage token: status %d, want 401", res.status)
	}
}

func TestAPIKeyAuthentication(t *testing.T) {
	ts := newTestServer(t)
	c := ts.signup(t, "keys@example.com")

	var created struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	c.mustDo(http.MethodPost, "/v1/api-keys", map[string]string{"name": "ci"}, http.StatusCreated).decode(t, &created)
	if created.Key == "" {
		t.Fatal("plaintext key missing from create response")
	}

	keyClient := &apiClient{t: t, baseURL: ts.URL, apiKey: created.Key}
	var me struct {
		Email string `json:"email"`
	}
	keyClient.mustDo(http.MethodGet, "/v1/me", nil, http.StatusOK).decode(t, &me)
	if me.Email != "keys@example.com" {
		t.Fatalf("me via api key = %+v", me)
	}

	// Listing never returns the plaintext again.
	var keys []struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	c.mustDo(http.MethodGet, "/v1/api-keys", nil, http.StatusOK).decode(t, &keys)
	if len(keys) != 1 || keys[0].Key != "" {
		t.Fatalf("listed keys = %+v", keys)
	}

	c.mustDo(http.MethodDelete, "/v1/api-keys/"+created.ID, nil, http.StatusNoContent)
	res := keyClient.do(http.MethodGet, "/v1/me", nil, nil)
	if res.status != http.StatusUnauthorized {
		t.Fatalf("deleted key still works: status %d", res.status)
	}
}

func TestSanitizerStripsScriptVectors(t *testing.T) {
	ts := newTestServer(t)
	c := ts.signup(t, "xss@example.com")

	var project struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	c.mustDo(http.MethodPost, "/v1/projects",
		map[string]string{"title": `Board <script>alert(1)</script>notes`}, http.StatusCreated).decode(t, &project)
	if project.Title != "Board alert(1)notes" {
		t.Fatalf("stored title = %q", project.Title)
	}

	// Encoders that write `<` as `\u003c` must not slip past the sanitizer.
	escaped := json.RawMessage(`{"title":"Plan \u003cscript\u003ealert(2)\u003c/script\u003etail"}`)
	c.mustDo(http.MethodPost, "/v1/projects", escaped, http.StatusCreated).decode(t, &project)
	if project.Title != "Plan alert(2)tail" {
		t.Fatalf("stored escaped title = %q", project.Title)
	}
}

func TestAuditEventsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	c := ts.signup(t, "audit@example.com")

	var project struct {
		ID string `json:"id"`
	}
	c.mustDo(http.MethodPost, "/v1/projects", map[string]string{"title": "Audited"}, http.StatusCreated).decode(t, &project)
	c.mustDo(http.MethodPost, "/v1/projects/"+project.ID+"/items",
		map[string]any{"title": "task one"}, http.StatusCreated)

	var events []struct {
		Type string `json:"type"`
	}
	c.mustDo(http.MethodGet, "/v1/projects/"+project.ID+"/events", nil, http.StatusOK).decode(t, &events)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	// Newest first.
	if events[0].Type != "item.create" || events[1].Type != "project.create" {
		t.Fatalf("event order = %+v", events)
	}
}

func TestInvalidOTPRejected(t *testing.T) {
	ts := newTestServer(t)
	c := &apiClient{t: t, baseURL: ts.URL}
	c.mustDo(http.MethodPost, "/v1/auth/register",
		map[string]string{"email": "otp@example.com", "password": "longenough"}, http.StatusCreated)

	var login struct {
		ChallengeID string `json:"challenge_id"`
	}
	c.mustDo(http.MethodPost, "/v1/auth/login",
		map[string]string{"email": "otp@example.com", "password": "longenough"}, http.StatusOK).decode(t, &login)

	code := ts.Mail.lastCode(t)
	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}
	res := c.do(http.MethodPost, "/v1/auth/verify-otp",
		map[string]string{"challenge_id": login.ChallengeID, "code": wrong}, nil)
	if res.status != http.StatusUnauthorized {
		t.Fatalf("wrong code: status %d, body %s", res.status, res.body)
	}

	res = c.do(http.MethodPost, "/v1/auth/login",
		map[string]string{"email": "otp@example.com", "password": "wrong-password"}, nil)
	if res.status != http.StatusUnauthorized {
		t.Fatalf("wrong password: status %d", res.status)
	}
}
