package auth

import (
	"context"
	"errors"

	"github.com/p-n-ai/pai-solutions/internal/account"
	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

// ProfileGetter loads profiles by id.
type ProfileGetter interface {
	GetProfile(ctx context.Context, id string) (account.Profile, error)
}

// Gate reports whether the caller is an administrator.
type Gate struct {
	profiles ProfileGetter
}

func NewGate(profiles ProfileGetter) *Gate {
	return &Gate{profiles: profiles}
}

// VerifyAdmin loads the caller's profile and checks its role. An anonymous
// caller or one without a profile is not an admin; only lookup failures are
// errors.
func (g *Gate) VerifyAdmin(ctx context.Context) (bool, error) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return false, nil
	}
	p, err := g.profiles.GetProfile(ctx, id.Subject)
	if errors.Is(err, apierr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Role == account.RoleAdmin, nil
}
