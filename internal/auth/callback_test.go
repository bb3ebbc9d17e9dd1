package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/p-n-ai/pai-solutions/internal/account"
	"github.com/p-n-ai/pai-solutions/internal/auth"
	"github.com/p-n-ai/pai-solutions/internal/platform/config"
)

type fakeExchanger struct {
	token *oauth2.Token
	err   error
	code  string
	opts  int
}

func (f *fakeExchanger) Exchange(_ context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	f.code = code
	f.opts = len(opts)
	return f.token, f.err
}

func TestCallback(t *testing.T) {
	tokens := auth.NewTokenVerifier(secret)
	sealer := newSealer(t, sessionKey, "study_session")
	access, err := tokens.Sign(auth.Identity{Subject: "user-9", Email: "u9@example.com"}, time.Minute)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	tests := []struct {
		name         string
		url          string
		exchanger    *fakeExchanger
		verifier     bool
		wantLocation string
		wantProfile  bool
	}{
		{"missing code", "/api/auth/callback", &fakeExchanger{}, false, "/auth/login", false},
		{"exchange fails", "/api/auth/callback?code=abc", &fakeExchanger{err: errors.New("invalid_grant")}, false, "/auth/login", false},
		{"token rejected", "/api/auth/callback?code=abc", &fakeExchanger{token: &oauth2.Token{AccessToken: "bogus"}}, false, "/auth/login", false},
		{"success", "/api/auth/callback?code=abc", &fakeExchanger{token: &oauth2.Token{AccessToken: access}}, true, "/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := account.NewMemoryStore()
			h := auth.NewCallback(tt.exchanger, tokens, sealer, profiles, auth.CookieOptions{Name: "study_session", Secure: true})

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.verifier {
				req.AddCookie(&http.Cookie{Name: auth.VerifierCookie, Value: "pkce-verifier"})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusFound {
				t.Fatalf("status = %d, want 302", rec.Code)
			}
			if loc := rec.Header().Get("Location"); loc != tt.wantLocation {
				t.Errorf("Location = %q, want %q", loc, tt.wantLocation)
			}

			_, err := profiles.GetProfile(t.Context(), "user-9")
			if (err == nil) != tt.wantProfile {
				t.Errorf("profile created = %v, want %v", err == nil, tt.wantProfile)
			}
			if !tt.wantProfile {
				return
			}

			if tt.exchanger.code != "abc" || tt.exchanger.opts != 1 {
				t.Errorf("Exchange(code %q, %d opts), want code abc with the verifier", tt.exchanger.code, tt.exchanger.opts)
			}
			var session *http.Cookie
			for _, c := range rec.Result().Cookies() {
				if c.Name == "study_session" {
					session = c
				}
			}
			if session == nil || !session.HttpOnly || !session.Secure {
				t.Fatalf("session cookie = %+v", session)
			}
			sess, err := sealer.Open(session.Value)
			if err != nil {
				t.Fatalf("Open(cookie) error = %v", err)
			}
			if sess.Subject != "user-9" {
				t.Errorf("session subject = %q", sess.Subject)
			}
		})
	}
}

func TestNewOAuthConfig(t *testing.T) {
	cfg := auth.NewOAuthConfig(config.OAuthConfig{
		ClientID:    "client",
		AuthURL:     "https://auth.example.com/authorize",
		TokenURL:    "https://auth.example.com/token",
		RedirectURL: "https://study.example.com/api/auth/callback",
	})
	if cfg.ClientID != "client" || cfg.Endpoint.TokenURL != "https://auth.example.com/token" {
		t.Errorf("NewOAuthConfig() = %+v", cfg)
	}
	var _ auth.CodeExchanger = cfg
}
