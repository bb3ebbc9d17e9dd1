package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

// Middleware attaches the caller identity to each request. Requests without
// valid credentials pass through anonymously; routes decide what they need.
type Middleware struct {
	tokens     *TokenVerifier
	sealer     *Sealer
	cookieName string
}

func NewMiddleware(tokens *TokenVerifier, sealer *Sealer, cookieName string) *Middleware {
	return &Middleware{tokens: tokens, sealer: sealer, cookieName: cookieName}
}

// Wrap returns next with identity resolution in front of it.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := m.identify(r); ok {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) identify(r *http.Request) (Identity, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || m.tokens == nil {
			return Identity{}, false
		}
		id, err := m.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			slog.Debug("rejected bearer token", "path", r.URL.Path, "error", err)
			return Identity{}, false
		}
		return id, true
	}

	if m.sealer == nil {
		return Identity{}, false
	}
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return Identity{}, false
	}
	sess, err := m.sealer.Open(cookie.Value)
	if err != nil {
		slog.Debug("rejected session cookie", "path", r.URL.Path, "error", err)
		return Identity{}, false
	}
	return Identity{Subject: sess.Subject, Email: sess.Email}, true
}
