package auth

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

// SessionTTL is how long a sealed session cookie stays valid.
const SessionTTL = 7 * 24 * time.Hour

// Session is the payload sealed into the session cookie.
type Session struct {
	Subject string    `json:"sub"`
	Email   string    `json:"email,omitempty"`
	Expires time.Time `json:"exp"`
}

// Sealer encrypts and authenticates session cookies with XChaCha20-Poly1305.
// The cookie name is bound as additional data so a value cannot be replayed
// under another cookie.
type Sealer struct {
	aead cipher.AEAD
	name string
}

// NewSealer derives the cipher key from key with SHA-256.
func NewSealer(key, cookieName string) (*Sealer, error) {
	if key == "" {
		return nil, fmt.Errorf("session key is empty")
	}
	sum := sha256.Sum256([]byte(key))
	aead, err := chacha20poly1305.NewX(sum[:])
	if err != nil {
		return nil, fmt.Errorf("creating session cipher: %w", err)
	}
	return &Sealer{aead: aead, name: cookieName}, nil
}

// Seal encodes s as an opaque cookie value.
func (s *Sealer) Seal(sess Session) (string, error) {
	plain, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("encoding session: %w", err)
	}
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+chacha20poly1305.Overhead)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("reading nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, plain, []byte(s.name))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal and rejects expired sessions.
func (s *Sealer) Open(value string) (Session, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return Session{}, apierr.Unauthorized("malformed session")
	}
	if len(raw) < s.aead.NonceSize() {
		return Session{}, apierr.Unauthorized("malformed session")
	}
	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(s.name))
	if err != nil {
		return Session{}, apierr.Unauthorized("session failed authentication")
	}

	var sess Session
	if err := json.Unmarshal(plain, &sess); err != nil {
		return Session{}, apierr.Unauthorized("malformed session")
	}
	if sess.Subject == "" || time.Now().After(sess.Expires) {
		return Session{}, apierr.Unauthorized("session expired")
	}
	return sess, nil
}
