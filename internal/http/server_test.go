package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/services"
	"budget/internal/sheets/memory"
)

func newTestServer(t *testing.T, opts Options) (*Server, *services.TransactionService) {
	t.Helper()
	store := memory.New(core.SeedCategories())
	svc := services.NewTransactionService(store, store, nil, nil)
	if err := svc.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Config{Level: slog.LevelError, Output: io.Discard})
	}
	srv := NewServer(":0", svc, opts)
	if srv.pages == nil {
		t.Fatalf("templates not loaded")
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, svc
}

func do(srv *Server, method, target string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func seed(t *testing.T, svc *services.TransactionService, desc string, cents int64, cat string) core.Transaction {
	t.Helper()
	tx, err := svc.Create(context.Background(), core.Transaction{
		CategoryID:  cat,
		Description: desc,
		Value:       core.Money{Cents: cents},
		Date:        core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return tx
}

func TestRootAndUnknownPathsRedirectToBudget(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	for _, path := range []string{"/", "/nope"} {
		rr := do(srv, http.MethodGet, path, nil, false)
		if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/budget" {
			t.Fatalf("%s: status=%d location=%q", path, rr.Code, rr.Header().Get("Location"))
		}
	}
}

func TestBudgetPage(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	seed(t, svc, "Weekly shop", -1250, "1")
	seed(t, svc, "Paycheck", 200000, "14")

	rr := do(srv, http.MethodGet, "/budget", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Weekly shop", "Groceries", "-$12.50", "$2,000.00", "$1,987.50", `href="/item/1"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("security headers not applied")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Errorf("request id not set")
	}
}

func TestItemPage(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	seed(t, svc, "Rent", -75000, "8")
	seed(t, svc, "Salary", 225000, "14")

	rr := do(srv, http.MethodGet, "/item/1", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Rent", "-$750.00", "25.00%", "This outflow is", "<svg", "/item/1/delete"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestItemNotFound(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	for _, path := range []string{"/item/99", "/item/abc", "/item/0/edit"} {
		rr := do(srv, http.MethodGet, path, nil, false)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s: status=%d", path, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Transaction not found.") {
			t.Fatalf("%s: error page missing message", path)
		}
	}

	rr := do(srv, http.MethodGet, "/item/99", nil, true)
	if rr.Code != http.StatusNotFound || strings.Contains(rr.Body.String(), "<html") {
		t.Fatalf("htmx 404 should be a fragment: %d %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `<div class="error">Transaction not found.</div>`) {
		t.Fatalf("htmx 404 body = %s", rr.Body.String())
	}
	if rr.Header().Get("HX-Trigger") != "" {
		t.Fatalf("404 should not raise a notification: %q", rr.Header().Get("HX-Trigger"))
	}
}

func TestNewItemFormDefaults(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	rr := do(srv, http.MethodGet, "/item/new", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `<option value="16" selected>Other</option>`) {
		t.Errorf("default category not selected")
	}
	if strings.Contains(body, "Description is required") {
		t.Errorf("errors shown before the user touched the form")
	}
}

func TestCreateItemValidation(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	form := url.Values{"description": {""}, "amount": {"abc"}, "category": {"16"}}

	rr := do(srv, http.MethodPost, "/item/new", form, false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Description is required", "Enter a positive amount", "<html"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}

	rr = do(srv, http.MethodPost, "/item/new", form, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("htmx status=%d", rr.Code)
	}
	if body := rr.Body.String(); strings.Contains(body, "<html") || !strings.Contains(body, `id="item-form"`) {
		t.Fatalf("htmx response is not the form fragment: %s", body)
	}
	if n := len(svc.State().State().Transactions); n != 0 {
		t.Fatalf("invalid form stored %d transactions", n)
	}
}

func TestCreateItem(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	form := url.Values{"description": {"Coffee"}, "amount": {"3,50"}, "category": {"5"}, "date": {"2024-01-02"}}

	rr := do(srv, http.MethodPost, "/item/new", form, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/item/1" {
		t.Fatalf("status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
	got := svc.State().State().Transactions
	if len(got) != 1 || got[0].Value.Cents != -350 || got[0].Date.ISO() != "2024-01-02" || got[0].CategoryID != "5" {
		t.Fatalf("stored %+v", got)
	}

	form.Set("inflow", "on")
	rr = do(srv, http.MethodPost, "/item/new", form, true)
	if rr.Code != http.StatusOK || rr.Header().Get("HX-Redirect") != "/item/2" {
		t.Fatalf("htmx status=%d redirect=%q", rr.Code, rr.Header().Get("HX-Redirect"))
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, want := range []string{"transaction:saved", "show-notification", "Transaction saved", `"success"`} {
		if !strings.Contains(trigger, want) {
			t.Fatalf("HX-Trigger = %q, missing %q", trigger, want)
		}
	}
	if got := svc.State().State().Transactions[1].Value.Cents; got != 350 {
		t.Fatalf("inflow cents = %d", got)
	}
}

func TestEditItem(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	seed(t, svc, "Coffee", -350, "5")

	rr := do(srv, http.MethodGet, "/item/1/edit", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if body := rr.Body.String(); !strings.Contains(body, `value="Coffee"`) || !strings.Contains(body, `value="3.50"`) {
		t.Fatalf("form not prefilled: %s", body)
	}

	form := url.Values{"description": {"Lunch"}, "amount": {"10"}, "inflow": {"on"}, "category": {"5"}, "date": {"2024-02-03"}}
	rr = do(srv, http.MethodPost, "/item/1/edit", form, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/item/1" {
		t.Fatalf("status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
	got := svc.State().State().Transactions[0]
	if got.Description != "Lunch" || got.Value.Cents != 1000 {
		t.Fatalf("updated %+v", got)
	}
}

func TestDeleteItem(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	seed(t, svc, "Coffee", -350, "5")

	rr := do(srv, http.MethodPost, "/item/1/delete", url.Values{}, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/budget" {
		t.Fatalf("status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
	if n := len(svc.State().State().Transactions); n != 0 {
		t.Fatalf("%d transactions left", n)
	}

	rr = do(srv, http.MethodPost, "/item/1/delete", url.Values{}, false)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}

	seed(t, svc, "Tea", -200, "5")
	rr = do(srv, http.MethodPost, "/item/2/delete", url.Values{}, true)
	if rr.Code != http.StatusOK || rr.Header().Get("HX-Redirect") != "/budget" {
		t.Fatalf("htmx status=%d redirect=%q", rr.Code, rr.Header().Get("HX-Redirect"))
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, "show-notification") || !strings.Contains(trigger, "Transaction deleted") {
		t.Fatalf("HX-Trigger = %q", trigger)
	}
}

func TestReportsAreCachedUntilStateChanges(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	seed(t, svc, "Dinner", -4200, "5")

	for i := 0; i < 2; i++ {
		rr := do(srv, http.MethodGet, "/reports?tab=spending", nil, false)
		if rr.Code != http.StatusOK {
			t.Fatalf("status=%d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Restaurants") {
			t.Fatalf("spending legend missing category")
		}
	}
	if got := srv.metrics.reportBuilds.Load(); got != 1 {
		t.Fatalf("builds = %d, want 1", got)
	}

	seed(t, svc, "Cinema", -1500, "3")
	rr := do(srv, http.MethodGet, "/reports?tab=spending", nil, false)
	if !strings.Contains(rr.Body.String(), "Entertainment") {
		t.Fatalf("stale report served")
	}
	if got := srv.metrics.reportBuilds.Load(); got != 2 {
		t.Fatalf("builds = %d, want 2", got)
	}
}

func TestReportsTabs(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(srv, http.MethodGet, "/reports?tab=bogus", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `class="selected" aria-selected="true">Inflow vs Outflow`) {
		t.Fatalf("unknown tab should select the flows tab")
	}

	rr = do(srv, http.MethodGet, "/reports?tab=spending", nil, true)
	body := rr.Body.String()
	if strings.Contains(body, "<html") || !strings.Contains(body, `id="report-panel"`) {
		t.Fatalf("htmx response is not the report panel: %s", body)
	}
}

func TestCategoryOptions(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(srv, http.MethodGet, "/ui/categories?q=rent&category=16", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, `<option value="16" selected>Other</option>`) {
		t.Fatalf("selection not kept: %s", body)
	}
	if !strings.Contains(body, `<option value="8">Rent</option>`) {
		t.Fatalf("match missing: %s", body)
	}
	if strings.Contains(body, "Groceries") {
		t.Fatalf("unrelated category listed: %s", body)
	}
}

func TestHealthReadyAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, http.MethodGet, path, nil, false)
		if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("Content-Type"), "application/json") {
			t.Fatalf("%s: status=%d type=%q", path, rr.Code, rr.Header().Get("Content-Type"))
		}
	}

	form := url.Values{"description": {"Tea"}, "amount": {"2"}, "category": {"1"}}
	do(srv, http.MethodPost, "/item/new", form, false)

	rr := do(srv, http.MethodGet, "/metrics", nil, false)
	body := rr.Body.String()
	for _, want := range []string{"transactions_saved_total 1", "transactions 1", "# TYPE http_requests_total counter"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestReadyReportsBackendFailure(t *testing.T) {
	srv, _ := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db down") }})

	rr := do(srv, http.MethodGet, "/readyz", nil, false)
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "db down") {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestRecovererRendersErrorPage(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	h := srv.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/budget", nil))
	if rr.Code != http.StatusInternalServerError || !strings.Contains(rr.Body.String(), "Something went wrong") {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if srv.metrics.panics.Load() != 1 {
		t.Fatalf("panic not counted")
	}

	req := httptest.NewRequest(http.MethodGet, "/budget", nil)
	req.Header.Set("HX-Request", "true")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusInternalServerError || strings.Contains(rr.Body.String(), "<html") {
		t.Fatalf("htmx status=%d body=%s", rr.Code, rr.Body.String())
	}
	if trigger := rr.Header().Get("HX-Trigger"); !strings.Contains(trigger, "show-notification") || !strings.Contains(trigger, `"error"`) {
		t.Fatalf("HX-Trigger = %q", trigger)
	}
}

func TestHistoryRestoreGetsFullPage(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	seed(t, svc, "Dinner", -4200, "5")

	req := httptest.NewRequest(http.MethodGet, "/reports?tab=spending", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-History-Restore-Request", "true")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if body := rr.Body.String(); !strings.Contains(body, "<html") || !strings.Contains(body, "<nav") {
		t.Fatalf("history restore got a fragment: %s", body)
	}
}

func TestRateLimitAppliesToPostsOnly(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerMinute: 2})
	form := url.Values{"description": {""}}

	for i := 0; i < 2; i++ {
		if rr := do(srv, http.MethodPost, "/item/new", form, false); rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("post %d status=%d", i, rr.Code)
		}
	}
	rr := do(srv, http.MethodPost, "/item/new", form, true)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("status=%d retry=%q", rr.Code, rr.Header().Get("Retry-After"))
	}
	if rr := do(srv, http.MethodGet, "/budget", nil, false); rr.Code != http.StatusOK {
		t.Fatalf("GET limited: %d", rr.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	rr := do(srv, http.MethodGet, "/static/app.css", nil, false)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("Cache-Control"), "max-age=3600") {
		t.Fatalf("status=%d cache=%q", rr.Code, rr.Header().Get("Cache-Control"))
	}
}
