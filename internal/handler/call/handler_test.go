package call

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/proptalk/backend/internal/service/calls"
)

type fakeDialer struct {
	result calls.InitiateResult
	err    error
	tenant string
	to     string
}

func (f *fakeDialer) Initiate(ctx context.Context, tenantID, contactID, toNumber string) (calls.InitiateResult, error) {
	f.tenant = tenantID
	f.to = toNumber
	return f.result, f.err
}

func newTestRouter(d *fakeDialer) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) { New(d).RegisterRoutes(api) })
	return r
}

func postJSON(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/calls", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestInitiateCallReturnsCreated(t *testing.T) {
	dialer := &fakeDialer{result: calls.InitiateResult{ID: "call-1", TwilioCallSid: "CA1", Status: "initiated"}}
	router := newTestRouter(dialer)

	rec := postJSON(t, router, `{"realEstateAgentId":"re1","contactId":"c1","phoneNumber":"03001234567"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var result calls.InitiateResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.TwilioCallSid != "CA1" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if dialer.tenant != "re1" || dialer.to != "03001234567" {
		t.Fatalf("request fields not forwarded: %q %q", dialer.tenant, dialer.to)
	}
}

func TestInitiateCallValidation(t *testing.T) {
	router := newTestRouter(&fakeDialer{})

	if rec := postJSON(t, router, `{"phoneNumber":"03001234567"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing tenant should 400, got %d", rec.Code)
	}
	if rec := postJSON(t, router, `{"realEstateAgentId":"re1"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing number should 400, got %d", rec.Code)
	}
	if rec := postJSON(t, router, `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body should 400, got %d", rec.Code)
	}
}

func TestInitiateCallErrorMapping(t *testing.T) {
	body := `{"realEstateAgentId":"re1","phoneNumber":"03001234567"}`

	router := newTestRouter(&fakeDialer{err: calls.ErrTelephonyDisabled})
	if rec := postJSON(t, router, body); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("disabled telephony should 503, got %d", rec.Code)
	}

	router = newTestRouter(&fakeDialer{err: calls.ErrNoActiveAgent})
	if rec := postJSON(t, router, body); rec.Code != http.StatusBadRequest {
		t.Fatalf("no active agent should 400, got %d", rec.Code)
	}
}
