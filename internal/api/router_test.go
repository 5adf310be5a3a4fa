package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/univlib/lending-system/internal/core/domain"
	"github.com/univlib/lending-system/internal/core/service"
)

// The router registers prometheus collectors, so it is built once per test binary.
func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()
	lib := service.NewLibrary(domain.DefaultPolicy(), domain.NewIDIssuer(1), zerolog.Nop())
	for _, p := range []*domain.Patron{
		domain.NewPatron(1, "John", "john@mail.com", domain.RoleAdult),
		domain.NewPatron(4, "Lena", "lena@uni.edu", domain.RoleLibrarian),
	} {
		if err := lib.RegisterPatron(p); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if err := lib.AddItem(domain.NewBook(100, "Dune", "Frank Herbert", "978-0441013593", "Sci-Fi")); err != nil {
		t.Fatalf("add item: %v", err)
	}

	svc := service.NewLendingService(lib, nil, zerolog.Nop())
	return NewRouter(Dependencies{Service: svc, Log: zerolog.Nop()})
}

func serve(e *echo.Echo, method, target, body string, patronID string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if patronID != "" {
		req.Header.Set("X-Patron-ID", patronID)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouter_EndToEnd(t *testing.T) {
	e := newTestRouter(t)

	steps := []struct {
		name     string
		method   string
		target   string
		body     string
		patron   string
		wantCode int
		wantBody string
	}{
		{"liveness", http.MethodGet, "/health", "", "", http.StatusOK, `"ok"`},
		{"readiness", http.MethodGet, "/health/ready", "", "", http.StatusOK, `"engine":{"status":"ok"}`},
		{"no identity", http.MethodGet, "/v1/items", "", "", http.StatusUnauthorized, "X-Patron-ID"},
		{"unknown patron", http.MethodGet, "/v1/items", "", "77", http.StatusUnauthorized, "unknown patron"},
		{"list items", http.MethodGet, "/v1/items", "", "1", http.StatusOK, `"title":"Dune"`},
		{"adult cannot add items", http.MethodPost, "/v1/items", `{"id":101,"kind":"cd","title":"Blue"}`, "1", http.StatusForbidden, "forbidden"},
		{"librarian adds item", http.MethodPost, "/v1/items", `{"id":101,"kind":"cd","title":"Blue","composer":"Joni Mitchell"}`, "4", http.StatusCreated, `"kind":"cd"`},
		{"duplicate item", http.MethodPost, "/v1/items", `{"id":101,"kind":"cd","title":"Blue"}`, "4", http.StatusConflict, "already exists"},
		{"borrow", http.MethodPost, "/v1/loans", `{"patron_id":1,"item_id":100}`, "1", http.StatusCreated, `"reminder":"14 day(s) left"`},
		{"borrow again", http.MethodPost, "/v1/loans", `{"patron_id":1,"item_id":100}`, "1", http.StatusConflict, "not available"},
		{"missing item", http.MethodPost, "/v1/loans", `{"patron_id":1,"item_id":999}`, "1", http.StatusNotFound, "not found"},
		{"renew", http.MethodPost, "/v1/loans/renew", `{"patron_id":1,"item_id":100}`, "1", http.StatusOK, `"renew_count":1`},
		{"adult cannot read ledger", http.MethodGet, "/v1/loans", "", "1", http.StatusForbidden, "forbidden"},
		{"ledger", http.MethodGet, "/v1/loans", "", "4", http.StatusOK, `"count":1`},
		{"report", http.MethodGet, "/v1/loans/report", "", "4", http.StatusOK, "Reminder:"},
		{"patron loans", http.MethodGet, "/v1/patrons/1/loans", "", "1", http.StatusOK, `"item_id":100`},
		{"cannot remove item on loan", http.MethodDelete, "/v1/items/100", "", "4", http.StatusConflict, "on loan"},
		{"return", http.MethodPost, "/v1/loans/return", `{"patron_id":1,"item_id":100}`, "1", http.StatusOK, `"return_date"`},
		{"empty report", http.MethodGet, "/v1/loans/report", "", "4", http.StatusOK, "No loans currently registered."},
		{"history without journal", http.MethodGet, "/v1/patrons/1/history", "", "1", http.StatusOK, `"events":[]`},
		{"unknown route", http.MethodGet, "/v2/nothing", "", "", http.StatusNotFound, "error"},
	}

	for _, s := range steps {
		rec := serve(e, s.method, s.target, s.body, s.patron)
		if rec.Code != s.wantCode {
			t.Fatalf("%s: expected %d, got %d (%s)", s.name, s.wantCode, rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), s.wantBody) {
			t.Fatalf("%s: body %q does not contain %q", s.name, rec.Body.String(), s.wantBody)
		}
	}
}
