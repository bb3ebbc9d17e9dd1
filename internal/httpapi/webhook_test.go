package httpapi_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-solutions/internal/account"
	"github.com/p-n-ai/pai-solutions/internal/billing"
	"github.com/p-n-ai/pai-solutions/internal/content"
)

func (s *server) webhook(body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/paystack/webhook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(billing.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func (s *server) subscription() account.SubscriptionStatus {
	p, err := s.profiles.GetProfile(s.t.Context(), "student-1")
	if err != nil {
		s.t.Fatalf("GetProfile() error = %v", err)
	}
	return p.SubscriptionStatus
}

func TestWebhook(t *testing.T) {
	s := newServer(t, content.NewMemoryStore())
	charge := `{"event":"charge.success","data":{"id":987,"customer":{"customer_code":"CUS_1"}}}`

	if rec := s.webhook(charge, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing signature = %d, want 400", rec.Code)
	}

	if rec := s.webhook(charge, billing.Sign("sk_wrong", []byte(charge))); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret = %d, want 401", rec.Code)
	}
	if got := s.subscription(); got != account.SubscriptionNone {
		t.Fatalf("status after bad signature = %s, want NONE", got)
	}

	invoice := `{"event":"invoice.create","data":{"id":986,"customer":{"email":"s1@example.com"}}}`
	if rec := s.webhook(invoice, billing.Sign(webhookSecret, []byte(invoice))); rec.Code != http.StatusOK {
		t.Fatalf("invoice.create = %d", rec.Code)
	}
	if got := s.subscription(); got != account.SubscriptionPending {
		t.Fatalf("status after invoice.create = %s, want PENDING", got)
	}

	rec := s.webhook(charge, billing.Sign(webhookSecret, []byte(charge)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"received":true`) {
		t.Fatalf("charge.success = %d %s", rec.Code, rec.Body.String())
	}
	if got := s.subscription(); got != account.SubscriptionActive {
		t.Fatalf("status after charge.success = %s, want ACTIVE", got)
	}

	disable := `{"event":"subscription.disable","data":{"id":988,"customer":{"customer_code":"CUS_1"}}}`
	s.webhook(disable, billing.Sign(webhookSecret, []byte(disable)))
	if rec := s.webhook(charge, billing.Sign(webhookSecret, []byte(charge))); rec.Code != http.StatusOK {
		t.Errorf("replay = %d, want 200", rec.Code)
	}
	if got := s.subscription(); got != account.SubscriptionCancelled {
		t.Errorf("status after replay = %s, want CANCELLED", got)
	}
}

func TestWebhook_MalformedSignedBody(t *testing.T) {
	s := newServer(t, content.NewMemoryStore())
	body := `{"data":{}}`
	if rec := s.webhook(body, billing.Sign(webhookSecret, []byte(body))); rec.Code != http.StatusInternalServerError {
		t.Errorf("signed body without event = %d, want 500", rec.Code)
	}
}
