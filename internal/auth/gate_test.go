package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/pai-solutions/internal/account"
	"github.com/p-n-ai/pai-solutions/internal/auth"
)

type brokenProfiles struct{}

func (brokenProfiles) GetProfile(context.Context, string) (account.Profile, error) {
	return account.Profile{}, errors.New("connection refused")
}

func TestGate_VerifyAdmin(t *testing.T) {
	profiles := account.NewMemoryStore()
	profiles.Put(account.Profile{ID: "admin-1", Role: account.RoleAdmin})
	profiles.Put(account.Profile{ID: "student-1", Role: account.RoleStudent})
	gate := auth.NewGate(profiles)

	tests := []struct {
		name string
		ctx  context.Context
		want bool
	}{
		{"anonymous", t.Context(), false},
		{"admin", auth.WithIdentity(t.Context(), auth.Identity{Subject: "admin-1"}), true},
		{"student", auth.WithIdentity(t.Context(), auth.Identity{Subject: "student-1"}), false},
		{"no profile yet", auth.WithIdentity(t.Context(), auth.Identity{Subject: "ghost"}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gate.VerifyAdmin(tt.ctx)
			if err != nil {
				t.Fatalf("VerifyAdmin() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("VerifyAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGate_VerifyAdmin_LookupFailure(t *testing.T) {
	gate := auth.NewGate(brokenProfiles{})
	ctx := auth.WithIdentity(t.Context(), auth.Identity{Subject: "admin-1"})
	ok, err := gate.VerifyAdmin(ctx)
	if err == nil || ok {
		t.Fatalf("VerifyAdmin() = (%v, %v), want lookup error", ok, err)
	}
}
