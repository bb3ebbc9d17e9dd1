package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/p-n-ai/pai-solutions/internal/account"
	"github.com/p-n-ai/pai-solutions/internal/platform/config"
)

const (
	// VerifierCookie holds the PKCE code verifier set when login started.
	VerifierCookie = "study_pkce"

	// LoginPath is where a failed or unavailable login lands.
	LoginPath = "/auth/login"
)

// CodeExchanger trades an authorization code for provider tokens.
// *oauth2.Config satisfies it.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// ProfileEnsurer creates the profile of a first-time user.
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, id, email string) (account.Profile, error)
}

// NewOAuthConfig builds the provider's OAuth2 client configuration.
func NewOAuthConfig(cfg config.OAuthConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
		Scopes: []string{"openid", "email"},
	}
}

// Callback completes the provider's authorization-code flow. It exchanges the
// code, records the profile, sets the session cookie and redirects home. Any
// failure redirects to the login page.
type Callback struct {
	exchanger CodeExchanger
	tokens    *TokenVerifier
	sealer    *Sealer
	profiles  ProfileEnsurer
	cookie    CookieOptions
}

// CookieOptions control the session cookie written on login.
type CookieOptions struct {
	Name   string
	Secure bool
}

func NewCallback(exchanger CodeExchanger, tokens *TokenVerifier, sealer *Sealer, profiles ProfileEnsurer, cookie CookieOptions) *Callback {
	return &Callback{
		exchanger: exchanger,
		tokens:    tokens,
		sealer:    sealer,
		profiles:  profiles,
		cookie:    cookie,
	}
}

func (c *Callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("auth callback without code", "error", r.URL.Query().Get("error"))
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}

	var opts []oauth2.AuthCodeOption
	if v, err := r.Cookie(VerifierCookie); err == nil && v.Value != "" {
		opts = append(opts, oauth2.VerifierOption(v.Value))
		http.SetCookie(w, &http.Cookie{Name: VerifierCookie, Path: "/", MaxAge: -1})
	}

	tok, err := c.exchanger.Exchange(r.Context(), code, opts...)
	if err != nil {
		slog.Error("auth code exchange failed", "error", err)
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}

	id, err := c.tokens.Verify(tok.AccessToken)
	if err != nil {
		slog.Error("provider token rejected", "error", err)
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}

	if _, err := c.profiles.EnsureProfile(r.Context(), id.Subject, id.Email); err != nil {
		slog.Error("ensuring profile", "profile_id", id.Subject, "error", err)
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}

	expires := time.Now().Add(SessionTTL)
	value, err := c.sealer.Seal(Session{Subject: id.Subject, Email: id.Email, Expires: expires})
	if err != nil {
		slog.Error("sealing session", "error", err)
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.cookie.Name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("user signed in", "profile_id", id.Subject)
	http.Redirect(w, r, "/", http.StatusFound)
}
