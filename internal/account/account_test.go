package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-solutions/internal/account"
	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

func TestMemoryStore(t *testing.T) {
	testStore(t, account.NewMemoryStore())
}

// testStore exercises behaviour every Store implementation must share.
func testStore(t *testing.T, store account.Store) {
	t.Helper()
	ctx := t.Context()
	id := uuid.NewString()

	p, err := store.EnsureProfile(ctx, id, "learner@example.com")
	if err != nil {
		t.Fatalf("EnsureProfile() error = %v", err)
	}
	if p.Role != account.RoleStudent || p.SubscriptionStatus != account.SubscriptionNone {
		t.Errorf("EnsureProfile() = %+v, want STUDENT with NONE", p)
	}

	again, err := store.EnsureProfile(ctx, id, "other@example.com")
	if err != nil {
		t.Fatalf("EnsureProfile() second error = %v", err)
	}
	if again.Email != "learner@example.com" {
		t.Errorf("EnsureProfile() email = %q, want the first email kept", again.Email)
	}

	t.Run("subscription update keeps codes", func(t *testing.T) {
		got, err := store.UpdateSubscription(ctx, id, account.SubscriptionUpdate{
			Status:           account.SubscriptionActive,
			SubscriptionCode: "SUB_1",
			CustomerCode:     "CUS_1",
		})
		if err != nil {
			t.Fatalf("UpdateSubscription() error = %v", err)
		}
		if got.SubscriptionStatus != account.SubscriptionActive || got.CustomerCode != "CUS_1" {
			t.Errorf("UpdateSubscription() = %+v", got)
		}

		got, err = store.UpdateSubscription(ctx, id, account.SubscriptionUpdate{Status: account.SubscriptionCancelled})
		if err != nil {
			t.Fatalf("UpdateSubscription() error = %v", err)
		}
		if got.SubscriptionCode != "SUB_1" || got.CustomerCode != "CUS_1" {
			t.Errorf("UpdateSubscription() dropped codes: %+v", got)
		}
	})

	t.Run("lookups", func(t *testing.T) {
		byCode, err := store.FindByCustomerCode(ctx, "CUS_1")
		if err != nil || byCode.ID != id {
			t.Errorf("FindByCustomerCode() = %+v, %v", byCode, err)
		}
		byEmail, err := store.FindByEmail(ctx, "Learner@Example.com")
		if err != nil || byEmail.ID != id {
			t.Errorf("FindByEmail() = %+v, %v", byEmail, err)
		}
		for name, lookup := range map[string]func() error{
			"unknown code":  func() error { _, err := store.FindByCustomerCode(ctx, "CUS_X"); return err },
			"empty code":    func() error { _, err := store.FindByCustomerCode(ctx, ""); return err },
			"unknown email": func() error { _, err := store.FindByEmail(ctx, "nobody@example.com"); return err },
			"unknown id":    func() error { _, err := store.GetProfile(ctx, uuid.NewString()); return err },
		} {
			if err := lookup(); !errors.Is(err, apierr.ErrNotFound) {
				t.Errorf("%s: error = %v, want not found", name, err)
			}
		}
	})

	t.Run("set role", func(t *testing.T) {
		got, err := store.SetRole(ctx, id, account.RoleAdmin)
		if err != nil {
			t.Fatalf("SetRole() error = %v", err)
		}
		if got.Role != account.RoleAdmin {
			t.Errorf("SetRole() role = %s", got.Role)
		}
		if _, err := store.SetRole(ctx, uuid.NewString(), account.RoleAdmin); !errors.Is(err, apierr.ErrNotFound) {
			t.Errorf("SetRole(unknown) error = %v, want not found", err)
		}
	})
}

type gate bool

func (g gate) VerifyAdmin(context.Context) (bool, error) { return bool(g), nil }

func TestService_SetRole(t *testing.T) {
	store := account.NewMemoryStore()
	store.Put(account.Profile{ID: "p1"})

	tests := []struct {
		name     string
		gate     gate
		role     account.Role
		wantErr  error
		wantRole account.Role
	}{
		{"student cannot promote", false, account.RoleAdmin, apierr.ErrUnauthorized, account.RoleStudent},
		{"unknown role", true, "OWNER", apierr.ErrValidation, account.RoleStudent},
		{"admin promotes", true, account.RoleAdmin, nil, account.RoleAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := account.NewService(store, tt.gate)
			_, err := svc.SetRole(t.Context(), "p1", account.RoleInput{Role: tt.role})
			if tt.wantErr == nil && err != nil {
				t.Fatalf("SetRole() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("SetRole() error = %v, want %v", err, tt.wantErr)
			}
			p, _ := store.GetProfile(t.Context(), "p1")
			if p.Role != tt.wantRole {
				t.Errorf("stored role = %s, want %s", p.Role, tt.wantRole)
			}
		})
	}
}
