package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"dealtrack/internal/auth"
	"dealtrack/internal/core"
	"dealtrack/internal/forms"
	"dealtrack/internal/services"
	"dealtrack/internal/storage"
)

// fakeRepo is an in-memory services.Repository for exercising the full
// handler stack without SQLite.
type fakeRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]core.Transaction
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]core.Transaction)}
}

func payloadString(p core.Payload, key string) string {
	s, _ := p[key].(string)
	return s
}

func (r *fakeRepo) apply(t *core.Transaction, p core.Payload) {
	t.Type = core.TransactionType(payloadString(p, "type"))
	t.Status = core.TransactionStatus(payloadString(p, "status"))
	t.ClientName = payloadString(p, "client_name")
	t.LeadSource = payloadString(p, "lead_source")
	t.Currency = payloadString(p, "currency")
	t.AgreementStart = payloadString(p, "agreement_start_date")
	t.AgreementEnd = payloadString(p, "agreement_end_date")
	if v, ok := p["buyer_budget"].(int64); ok {
		t.BuyerBudgetCents = core.Int64Ptr(v)
	}
	if v, ok := p["buyer_agent_percentage"].(float64); ok {
		t.BuyerAgentPct = core.Float64Ptr(v)
	}
	if fees, ok := p["fees"].([]core.FeeRow); ok {
		t.Fees = fees
	}
	t.UpdatedAt = time.Now()
}

func (r *fakeRepo) Create(ctx context.Context, userID string, p core.Payload) (core.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	t := core.Transaction{
		ID:        fmt.Sprintf("txn-%d", r.seq),
		UserID:    userID,
		Version:   1,
		CreatedAt: time.Now(),
	}
	r.apply(&t, p)
	r.rows[t.ID] = t
	return t, nil
}

func (r *fakeRepo) Update(ctx context.Context, userID, id string, p core.Payload) (core.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, storage.ErrNotFound
	}
	r.apply(&t, p)
	t.Version++
	r.rows[id] = t
	return t, nil
}

func (r *fakeRepo) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, storage.ErrNotFound
	}
	return t, nil
}

func (r *fakeRepo) List(ctx context.Context, userID string, status core.TransactionStatus) ([]core.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Transaction
	for _, t := range r.rows {
		if t.UserID != userID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeRepo) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok || t.UserID != userID {
		return storage.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

const testUserID = "agent@example.com"

func newTestServer(t *testing.T) (*Server, *fakeRepo, *http.Cookie) {
	t.Helper()

	repo := newFakeRepo()
	svc := services.NewTransactionService(repo, nil)
	sessions := auth.NewSessionStore(time.Hour)

	s := NewServer(Options{
		Addr:     "127.0.0.1:0",
		Service:  svc,
		Registry: forms.DefaultRegistry(),
		Sessions: sessions,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})

	token := sessions.Create(auth.Principal{ID: testUserID, Email: testUserID, Name: "Test Agent"})
	cookie := &http.Cookie{Name: auth.SessionCookieName, Value: token}
	return s, repo, cookie
}

func doGet(t *testing.T, s *Server, cookie *http.Cookie, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(w, req)
	return w
}

func doPost(t *testing.T, s *Server, cookie *http.Cookie, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(w, req)
	return w
}

var wizardTokenRe = regexp.MustCompile(`name="token" value="([^"]+)"`)

func extractToken(t *testing.T, body string) string {
	t.Helper()
	m := wizardTokenRe.FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("no wizard token in body:\n%s", body)
	}
	return m[1]
}

func wizardForm(token string, extra url.Values) url.Values {
	form := url.Values{}
	form.Set("token", token)
	form.Set("generation", "1")
	for key, vals := range extra {
		form[key] = vals
	}
	return form
}

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := doGet(t, s, nil, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("healthz = %d, want 200", w.Code)
	}
}

func TestUnauthenticatedRedirects(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doGet(t, s, nil, "/")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("full page = %d, want 303", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/login" {
		t.Fatalf("Location = %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/ui/transactions", nil)
	req.Header.Set("HX-Request", "true")
	w = httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("partial = %d, want 401", w.Code)
	}
	if got := w.Header().Get("HX-Redirect"); got != "/login" {
		t.Fatalf("HX-Redirect = %q", got)
	}
}

func TestLoginFlow(t *testing.T) {
	s, _, _ := newTestServer(t)

	form := url.Values{}
	form.Set("email", "Jane.Doe@Example.com")
	form.Set("name", "Jane Doe")
	w := doPost(t, s, nil, "/login", form)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("login = %d, want 303", w.Code)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("no session cookie set")
	}

	home := doGet(t, s, cookie, "/")
	if home.Code != http.StatusOK {
		t.Fatalf("index after login = %d, want 200", home.Code)
	}
	if !strings.Contains(home.Body.String(), "Jane Doe") {
		t.Fatal("index does not greet the signed-in user")
	}
}

func TestLoginRejectsInvalidEmail(t *testing.T) {
	s, _, _ := newTestServer(t)

	form := url.Values{}
	form.Set("email", "not-an-email")
	w := doPost(t, s, nil, "/login", form)
	if w.Code != http.StatusOK {
		t.Fatalf("invalid login = %d, want 200 (re-rendered form)", w.Code)
	}
	if !strings.Contains(w.Body.String(), "valid email") {
		t.Fatal("login page missing validation message")
	}
}

func TestWizardCreateFlow(t *testing.T) {
	s, repo, cookie := newTestServer(t)

	open := doPost(t, s, cookie, "/wizard/open", url.Values{})
	if open.Code != http.StatusOK {
		t.Fatalf("open = %d, want 200\n%s", open.Code, open.Body.String())
	}
	token := extractToken(t, open.Body.String())

	// Step 1: type. The default selection carries the step.
	w := doPost(t, s, cookie, "/wizard/next", wizardForm(token, url.Values{"type": {"buyer"}}))
	if w.Code != http.StatusOK {
		t.Fatalf("next from type = %d, want 200\n%s", w.Code, w.Body.String())
	}

	// Step 2: buyer details without a name is rejected and re-rendered.
	w = doPost(t, s, cookie, "/wizard/next", wizardForm(token, url.Values{"buyer_full_name": {""}}))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("next without name = %d, want 422", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Buyer name is required") {
		t.Fatal("missing-name error not rendered")
	}

	w = doPost(t, s, cookie, "/wizard/next", wizardForm(token, url.Values{
		"buyer_full_name": {"Jane Doe"},
		"budget_cents":    {"350,000"},
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("next from details = %d, want 200\n%s", w.Code, w.Body.String())
	}

	// Step 3: commission, all optional.
	w = doPost(t, s, cookie, "/wizard/next", wizardForm(token, url.Values{
		"buyer_agent_pct": {"2.5"},
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("next from commission = %d, want 200\n%s", w.Code, w.Body.String())
	}

	// Step 4: status, then submit.
	w = doPost(t, s, cookie, "/wizard/submit", wizardForm(token, url.Values{
		"status": {"pending"},
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("submit = %d, want 200\n%s", w.Code, w.Body.String())
	}
	trigger := w.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, "transaction:created") {
		t.Fatalf("HX-Trigger = %q, want transaction:created", trigger)
	}
	if !strings.Contains(trigger, "wizard:closed") {
		t.Fatalf("HX-Trigger = %q, want wizard:closed", trigger)
	}

	if repo.count() != 1 {
		t.Fatalf("repo rows = %d, want 1", repo.count())
	}
	items, _ := repo.List(context.Background(), testUserID, "")
	got := items[0]
	if got.ClientName != "Jane Doe" || got.Status != core.StatusPending {
		t.Fatalf("persisted transaction = %+v", got)
	}
	if got.BuyerBudgetCents == nil || *got.BuyerBudgetCents != 35000000 {
		t.Fatalf("budget = %v, want 35000000 cents", got.BuyerBudgetCents)
	}

	// The session is closed; replaying the submit must fail.
	w = doPost(t, s, cookie, "/wizard/submit", wizardForm(token, url.Values{"status": {"pending"}}))
	if w.Code != http.StatusGone {
		t.Fatalf("replayed submit = %d, want 410", w.Code)
	}
}

func TestWizardStaleGeneration(t *testing.T) {
	s, _, cookie := newTestServer(t)

	open := doPost(t, s, cookie, "/wizard/open", url.Values{})
	token := extractToken(t, open.Body.String())

	form := wizardForm(token, url.Values{"type": {"buyer"}})
	form.Set("generation", "99")
	w := doPost(t, s, cookie, "/wizard/next", form)
	if w.Code != http.StatusConflict {
		t.Fatalf("stale generation = %d, want 409", w.Code)
	}
	// The conflict response re-renders the live wizard so the tab can resync.
	if tok := extractToken(t, w.Body.String()); tok != token {
		t.Fatalf("re-rendered token = %q, want %q", tok, token)
	}
}

func TestWizardUnknownToken(t *testing.T) {
	s, _, cookie := newTestServer(t)

	w := doPost(t, s, cookie, "/wizard/next", wizardForm("no-such-token", nil))
	if w.Code != http.StatusGone {
		t.Fatalf("unknown token = %d, want 410", w.Code)
	}
	if !strings.Contains(w.Header().Get("HX-Trigger"), "wizard:closed") {
		t.Fatal("expired wizard response missing wizard:closed trigger")
	}
}

func TestWizardEditFlow(t *testing.T) {
	s, repo, cookie := newTestServer(t)

	seed, err := repo.Create(context.Background(), testUserID, core.Payload{
		"type":        string(core.TypeBuyer),
		"status":      string(core.StatusActive),
		"client_name": "Original Name",
		"currency":    "USD",
	})
	if err != nil {
		t.Fatal(err)
	}

	open := doPost(t, s, cookie, "/wizard/open", url.Values{"id": {seed.ID}})
	if open.Code != http.StatusOK {
		t.Fatalf("open for edit = %d, want 200\n%s", open.Code, open.Body.String())
	}
	if !strings.Contains(open.Body.String(), "Edit transaction") {
		t.Fatal("edit wizard not labeled as editing")
	}
	token := extractToken(t, open.Body.String())

	steps := []url.Values{
		{"type": {"buyer"}},
		{"buyer_full_name": {"Renamed Client"}},
		{},
	}
	for i, extra := range steps {
		w := doPost(t, s, cookie, "/wizard/next", wizardForm(token, extra))
		if w.Code != http.StatusOK {
			t.Fatalf("step %d = %d, want 200\n%s", i, w.Code, w.Body.String())
		}
	}

	w := doPost(t, s, cookie, "/wizard/submit", wizardForm(token, url.Values{"status": {"closed"}}))
	if w.Code != http.StatusOK {
		t.Fatalf("submit = %d, want 200\n%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Header().Get("HX-Trigger"), "transaction:updated") {
		t.Fatalf("HX-Trigger = %q, want transaction:updated", w.Header().Get("HX-Trigger"))
	}

	got, err := repo.Get(context.Background(), testUserID, seed.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ClientName != "Renamed Client" || got.Status != core.StatusClosed {
		t.Fatalf("updated transaction = %+v", got)
	}
	if got.Version != 2 {
		t.Fatalf("version = %d, want 2", got.Version)
	}
}

func TestWizardOpenForForeignTransaction(t *testing.T) {
	s, repo, cookie := newTestServer(t)

	other, err := repo.Create(context.Background(), "someone-else@example.com", core.Payload{
		"type":        string(core.TypeBuyer),
		"status":      string(core.StatusActive),
		"client_name": "Not Yours",
	})
	if err != nil {
		t.Fatal(err)
	}

	w := doPost(t, s, cookie, "/wizard/open", url.Values{"id": {other.ID}})
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign edit open = %d, want 404", w.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	s, repo, cookie := newTestServer(t)

	seed, err := repo.Create(context.Background(), testUserID, core.Payload{
		"type":        string(core.TypeBuyer),
		"status":      string(core.StatusActive),
		"client_name": "Doomed",
	})
	if err != nil {
		t.Fatal(err)
	}

	w := doPost(t, s, cookie, "/transactions/delete", url.Values{"id": {seed.ID}})
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d, want 200\n%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Header().Get("HX-Trigger"), "transaction:deleted") {
		t.Fatalf("HX-Trigger = %q, want transaction:deleted", w.Header().Get("HX-Trigger"))
	}
	if repo.count() != 0 {
		t.Fatalf("repo rows = %d, want 0", repo.count())
	}

	w = doPost(t, s, cookie, "/transactions/delete", url.Values{"id": {"missing"}})
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete missing = %d, want 404", w.Code)
	}
}

func TestTransactionListPartial(t *testing.T) {
	s, repo, cookie := newTestServer(t)

	if _, err := repo.Create(context.Background(), testUserID, core.Payload{
		"type":        string(core.TypeBuyer),
		"status":      string(core.StatusActive),
		"client_name": "Visible Client",
	}); err != nil {
		t.Fatal(err)
	}

	w := doGet(t, s, cookie, "/ui/transactions")
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Visible Client") {
		t.Fatalf("list partial missing row:\n%s", w.Body.String())
	}

	// Status filtering: the only row is active, so the closed view is empty.
	w = doGet(t, s, cookie, "/ui/transactions?status=closed")
	if w.Code != http.StatusOK {
		t.Fatalf("filtered list = %d, want 200", w.Code)
	}
	if strings.Contains(w.Body.String(), "Visible Client") {
		t.Fatal("closed filter returned an active row")
	}
}
