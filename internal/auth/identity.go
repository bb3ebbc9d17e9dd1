// Package auth resolves who is calling: bearer tokens and sealed session
// cookies become an Identity on the request context, and Gate decides whether
// that identity is an administrator.
package auth

import "context"

// Identity is an authenticated caller. Subject is the profile id.
type Identity struct {
	Subject string
	Email   string
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller identity stored in ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.Subject != ""
}
