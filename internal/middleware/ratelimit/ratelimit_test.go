package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(n int) (*Limiter, *clock) {
	clk := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: n})
	rl.now = clk.now
	return rl, clk
}

func TestAllowWindow(t *testing.T) {
	rl, clk := newTestLimiter(2)
	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request in window should be rejected")
	}
	if !rl.Allow("b") {
		t.Fatal("clients are limited independently")
	}
	clk.t = clk.t.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("window should reset")
	}
	if got := rl.GetMetrics(); got.Rejected != 1 || got.ClientCount != 2 {
		t.Fatalf("metrics = %+v", got)
	}
}

func TestSteadyTrafficDoesNotExtendWindow(t *testing.T) {
	rl, clk := newTestLimiter(2)
	rl.Allow("a")
	clk.t = clk.t.Add(40 * time.Second)
	rl.Allow("a")
	clk.t = clk.t.Add(30 * time.Second)
	if !rl.Allow("a") {
		t.Fatal("window started 70s ago and should have reset")
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, clk := newTestLimiter(5)
	rl.Allow("old")
	clk.t = clk.t.Add(11 * time.Minute)
	rl.Allow("new")
	if n := rl.cleanupStaleEntries(); n != 1 {
		t.Fatalf("removed = %d", n)
	}
}

func TestMiddlewareOnlyLimitsListedMethods(t *testing.T) {
	rl, _ := newTestLimiter(1)
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil, http.MethodPost)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/budget", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("GET %d = %d", i, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/item/new", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first POST = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/item/new", nil))
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("second POST = %d", rec.Code)
	}
}
