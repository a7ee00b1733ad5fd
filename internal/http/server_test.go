package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"terptracker/internal/auth"
	"terptracker/internal/config"
	"terptracker/internal/core"
	"terptracker/internal/log"
)

type fakeStore struct {
	mu       sync.Mutex
	users    map[string]core.Credential
	expenses []core.ExpenseRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]core.Credential)}
}

func (f *fakeStore) PutUser(_ context.Context, cred core.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[cred.UserID] = cred
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, userID string) (*core.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cred, ok := f.users[userID]; ok {
		return &cred, nil
	}
	return nil, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*core.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cred := range f.users {
		if cred.Email == email {
			c := cred
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) PutExpense(_ context.Context, rec core.ExpenseRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expenses = append(f.expenses, rec)
	return nil
}

func (f *fakeStore) QueryMonth(_ context.Context, userEmail string, window core.MonthWindow) ([]core.ExpenseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.ExpenseRecord
	for _, rec := range f.expenses {
		if rec.UserEmail == userEmail && rec.Timestamp >= window.Start && rec.Timestamp <= window.End {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakePublisher) PublishExpenseExport(_ context.Context, userEmail, expenseTimestamp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userEmail+"|"+expenseTimestamp)
	return nil
}

func newTestServer(t *testing.T, store *fakeStore, publisher ExportPublisher) *Server {
	t.Helper()
	cfg := config.Config{Port: "0"}
	sessions := auth.NewSessions("test-secret", time.Hour)
	srv, err := NewServer(cfg, store, store, publisher, sessions, log.New(log.DefaultConfig()))
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func postForm(srv *Server, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func get(srv *Server, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

// signUp registers a user through the real handler and returns the session
// cookie it set.
func signUp(t *testing.T, srv *Server, email, name, password string) *http.Cookie {
	t.Helper()
	rr := postForm(srv, "/sign-up", url.Values{
		"email":     {email},
		"firstName": {name},
		"password1": {password},
		"password2": {password},
	})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("sign-up status = %d, want %d (body: %s)", rr.Code, http.StatusSeeOther, rr.Body.String())
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("sign-up did not set a session cookie")
	return nil
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), nil)
	rr := get(srv, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "Healthy!" {
		t.Fatalf("body = %q, want %q", rr.Body.String(), "Healthy!")
	}
}

func TestProtectedRoutesRedirectToLogin(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), nil)
	for _, path := range []string{"/", "/summary", "/task_status/abc"} {
		rr := get(srv, path)
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("%s status = %d, want %d", path, rr.Code, http.StatusSeeOther)
		}
		if loc := rr.Header().Get("Location"); loc != "/login" {
			t.Fatalf("%s redirect = %q, want /login", path, loc)
		}
	}
}

func TestSignUpAndLogin(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(t, store, nil)

	cookie := signUp(t, srv, "ada@example.com", "Ada", "hunter22")

	// The stored credential carries a hash, not the plaintext.
	cred, _ := store.GetUserByEmail(context.Background(), "ada@example.com")
	if cred == nil {
		t.Fatal("credential was not stored")
	}
	if cred.PasswordHash == "hunter22" {
		t.Fatal("password stored in plaintext")
	}
	if cred.FirstName != "Ada" {
		t.Fatalf("FirstName = %q, want Ada", cred.FirstName)
	}

	// The fresh session reaches the home page.
	rr := get(srv, "/", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("home with session status = %d, want 200", rr.Code)
	}

	// Login again with the same credentials.
	rr = postForm(srv, "/login", url.Values{
		"email":    {"ada@example.com"},
		"password": {"hunter22"},
	})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d, want %d", rr.Code, http.StatusSeeOther)
	}
}

func TestLoginFailures(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(t, store, nil)
	signUp(t, srv, "ada@example.com", "Ada", "hunter22")

	rr := postForm(srv, "/login", url.Values{
		"email":    {"ada@example.com"},
		"password": {"wrong"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Incorrect password, try again.") {
		t.Fatalf("body missing incorrect-password flash: %s", rr.Body.String())
	}

	rr = postForm(srv, "/login", url.Values{
		"email":    {"nobody@example.com"},
		"password": {"whatever"},
	})
	if !strings.Contains(rr.Body.String(), "Email does not exist") {
		t.Fatalf("body missing unknown-email flash: %s", rr.Body.String())
	}
}

func TestSignUpValidation(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(t, store, nil)
	signUp(t, srv, "ada@example.com", "Ada", "hunter22")

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{
			name: "duplicate email",
			form: url.Values{"email": {"ada@example.com"}, "firstName": {"Ada"}, "password1": {"hunter22"}, "password2": {"hunter22"}},
			want: "Email already exists",
		},
		{
			name: "short email",
			form: url.Values{"email": {"a@b"}, "firstName": {"Ada"}, "password1": {"hunter22"}, "password2": {"hunter22"}},
			want: "Email must be greater than 3 characters.",
		},
		{
			name: "short name",
			form: url.Values{"email": {"new@example.com"}, "firstName": {"A"}, "password1": {"hunter22"}, "password2": {"hunter22"}},
			want: "First name must be greater than 1 character.",
		},
		{
			name: "password mismatch",
			form: url.Values{"email": {"new@example.com"}, "firstName": {"Ada"}, "password1": {"hunter22"}, "password2": {"hunter23"}},
			want: "Passwords don&#39;t match.",
		},
		{
			name: "short password",
			form: url.Values{"email": {"new@example.com"}, "firstName": {"Ada"}, "password1": {"short"}, "password2": {"short"}},
			want: "Password must be at least 7 characters.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postForm(srv, "/sign-up", tt.form)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Fatalf("body missing %q: %s", tt.want, rr.Body.String())
			}
		})
	}
}

func TestSubmitExpense(t *testing.T) {
	store := newFakeStore()
	publisher := &fakePublisher{}
	srv := newTestServer(t, store, publisher)
	cookie := signUp(t, srv, "ada@example.com", "Ada", "hunter22")

	rr := postForm(srv, "/", url.Values{
		"expense_type":     {"Expense"},
		"expense_category": {"Food"},
		"expense_amount":   {"42.50"},
		"expense_date":     {"2024-03-30"},
		"expense_note":     {"dinner"},
	}, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Successfully added your Food expense") {
		t.Fatalf("body missing success flash: %s", rr.Body.String())
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.expenses) != 1 {
		t.Fatalf("stored %d expenses, want 1", len(store.expenses))
	}
	rec := store.expenses[0]
	if rec.UserEmail != "ada@example.com" || rec.Category != "Food" || rec.Amount != "42.50" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if len(publisher.calls) != 1 {
		t.Fatalf("published %d export messages, want 1", len(publisher.calls))
	}
}

func TestSubmitExpense_MalformedDate(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(t, store, nil)
	cookie := signUp(t, srv, "ada@example.com", "Ada", "hunter22")

	for _, date := range []string{"not-a-date", "2024-02-30", "2024-04-31"} {
		rr := postForm(srv, "/", url.Values{
			"expense_type":     {"Expense"},
			"expense_category": {"Food"},
			"expense_amount":   {"42.50"},
			"expense_date":     {date},
		}, cookie)
		if rr.Code != http.StatusOK {
			t.Fatalf("date %q: status = %d, want 200", date, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "There was an error parsing your information") {
			t.Fatalf("date %q: body missing error flash: %s", date, rr.Body.String())
		}
	}
	if len(store.expenses) != 0 {
		t.Fatal("malformed submission must not be persisted")
	}
}

func TestSummaryTable(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(t, store, nil)
	cookie := signUp(t, srv, "ada@example.com", "Ada", "hunter22")

	inMonth := core.ExpenseRecord{
		UserEmail: "ada@example.com",
		Timestamp: core.FormatEpoch(time.Date(2024, 3, 30, 18, 4, 5, 0, time.UTC)),
		Type:      "Expense",
		Category:  "Food",
		Amount:    "42.50",
		Note:      "dinner",
	}
	outOfMonth := core.ExpenseRecord{
		UserEmail: "ada@example.com",
		Timestamp: core.FormatEpoch(time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)),
		Type:      "Expense",
		Category:  "Rent",
		Amount:    "900",
	}
	_ = store.PutExpense(context.Background(), inMonth)
	_ = store.PutExpense(context.Background(), outOfMonth)

	rr := postForm(srv, "/summary", url.Values{"month": {"2024-03"}}, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "2024-03-30") {
		t.Fatalf("body missing normalized date: %s", body)
	}
	if !strings.Contains(body, "42.50") {
		t.Fatalf("body missing amount: %s", body)
	}
	if strings.Contains(body, "Rent") {
		t.Fatalf("body contains out-of-month record: %s", body)
	}
}

func TestSummaryRejectsMalformedMonth(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(t, store, nil)
	cookie := signUp(t, srv, "ada@example.com", "Ada", "hunter22")

	rr := postForm(srv, "/summary", url.Values{"month": {"bogus"}}, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Could not load your expenses for that month") {
		t.Fatalf("body missing error flash: %s", rr.Body.String())
	}
}

func TestPieChart(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(t, store, nil)
	cookie := signUp(t, srv, "ada@example.com", "Ada", "hunter22")

	for _, rec := range []core.ExpenseRecord{
		{UserEmail: "ada@example.com", Timestamp: core.FormatEpoch(time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)), Category: "Food", Amount: "10"},
		{UserEmail: "ada@example.com", Timestamp: core.FormatEpoch(time.Date(2024, 3, 6, 8, 0, 0, 0, time.UTC)), Category: "Food", Amount: "5.5"},
		{UserEmail: "ada@example.com", Timestamp: core.FormatEpoch(time.Date(2024, 3, 7, 8, 0, 0, 0, time.UTC)), Category: "Travel", Amount: "20"},
	} {
		_ = store.PutExpense(context.Background(), rec)
	}

	rr := get(srv, "/pie_chart?month=2024-03", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `"Food"`) || !strings.Contains(body, `"Travel"`) {
		t.Fatalf("body missing category labels: %s", body)
	}
	if !strings.Contains(body, "15.5") {
		t.Fatalf("body missing summed category amount: %s", body)
	}
}

func TestPieChartWithoutMonthRedirects(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), nil)
	cookie := signUp(t, srv, "ada@example.com", "Ada", "hunter22")

	rr := get(srv, "/pie_chart", cookie)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusSeeOther)
	}
	if loc := rr.Header().Get("Location"); loc != "/summary" {
		t.Fatalf("redirect = %q, want /summary", loc)
	}
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), nil)
	cookie := signUp(t, srv, "ada@example.com", "Ada", "hunter22")

	rr := get(srv, "/logout", cookie)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusSeeOther)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Fatalf("redirect = %q, want /login", loc)
	}

	cleared := false
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("logout did not clear the session cookie")
	}
}

func TestTaskStatus(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), nil)
	cookie := signUp(t, srv, "ada@example.com", "Ada", "hunter22")

	rr := get(srv, "/task_status/abc-123", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "abc-123") {
		t.Fatalf("body missing task id: %s", rr.Body.String())
	}
}
