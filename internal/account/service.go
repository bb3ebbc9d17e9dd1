package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

// Authorizer decides whether the caller in ctx is an administrator.
type Authorizer interface {
	VerifyAdmin(ctx context.Context) (bool, error)
}

// RoleInput is the body of a role change.
type RoleInput struct {
	Role Role `json:"role" validate:"required,oneof=ADMIN STUDENT"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Service manages profiles on behalf of administrators.
type Service struct {
	store Store
	gate  Authorizer
}

func NewService(store Store, gate Authorizer) *Service {
	return &Service{store: store, gate: gate}
}

// SetRole changes the role of profile id. Only administrators may call it.
func (s *Service) SetRole(ctx context.Context, id string, in RoleInput) (Profile, error) {
	ok, err := s.gate.VerifyAdmin(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("verify admin: %w", err)
	}
	if !ok {
		return Profile{}, apierr.Unauthorized("admin access required")
	}
	if err := validate.Struct(in); err != nil {
		return Profile{}, apierr.Validation("role must be ADMIN or STUDENT")
	}

	p, err := s.store.SetRole(ctx, id, in.Role)
	if err != nil {
		return Profile{}, err
	}
	slog.Info("profile role changed", "profile_id", p.ID, "role", p.Role)
	return p, nil
}
