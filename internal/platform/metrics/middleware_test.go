package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestMiddleware(t *testing.T) {
	m := New()
	mw := RequestMiddleware(m)

	counted := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))

	counted.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	counted.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))
	// Self-scrapes are not wallet traffic and must not move the counters.
	counted.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	rec := httptest.NewRecorder()
	m.Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	if !strings.Contains(body, "wallet_requests_total 2") {
		t.Errorf("wallet_requests_total should be 2 (scrape uncounted):\n%s", body)
	}
	if !strings.Contains(body, "wallet_errors_total 1") {
		t.Errorf("wallet_errors_total should be 1:\n%s", body)
	}
}

func TestHandler_refreshes_gauges_before_scrape(t *testing.T) {
	m := New()
	handler := m.Handler(func() { m.SetRegisteredUsers(3) })

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "wallet_registered_users 3") {
		t.Errorf("gauge not refreshed before scrape:\n%s", rec.Body.String())
	}
}
