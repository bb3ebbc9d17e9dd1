package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-solutions/internal/account"
	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

// Profiles is the part of the account store webhooks touch.
type Profiles interface {
	FindByCustomerCode(ctx context.Context, code string) (account.Profile, error)
	FindByEmail(ctx context.Context, email string) (account.Profile, error)
	UpdateSubscription(ctx context.Context, id string, u account.SubscriptionUpdate) (account.Profile, error)
}

// Outcome describes what a delivery did.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeNoProfile Outcome = "no_profile"
)

// settleTimeout bounds Complete and Release. They run detached from the
// delivery's context so a disconnect cannot strand a claim.
const settleTimeout = 5 * time.Second

// Processor applies verified webhook deliveries exactly once per dedup key.
type Processor struct {
	profiles Profiles
	ledger   Ledger
}

func NewProcessor(profiles Profiles, ledger Ledger) *Processor {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	return &Processor{profiles: profiles, ledger: ledger}
}

// Process handles a delivery whose signature has already been verified.
func (p *Processor) Process(ctx context.Context, body []byte) (Outcome, error) {
	e, err := ParseEvent(body)
	if err != nil {
		return "", err
	}

	key, ok := e.DedupKey()
	if !ok {
		slog.Warn("webhook without dedup key, applying unguarded", "event", e.Event)
		return p.apply(ctx, e)
	}

	claimed, err := p.ledger.Claim(ctx, key, e.Event, body)
	if err != nil {
		return "", fmt.Errorf("claim %s: %w", key, err)
	}
	if !claimed {
		slog.Info("duplicate webhook acknowledged", "key", key)
		return OutcomeDuplicate, nil
	}

	outcome, err := p.apply(ctx, e)

	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	if err != nil {
		if rerr := p.ledger.Release(settleCtx, key); rerr != nil {
			slog.Error("releasing webhook claim", "key", key, "error", rerr)
		}
		return "", err
	}
	if err := p.ledger.Complete(settleCtx, key); err != nil {
		slog.Error("completing webhook claim", "key", key, "error", err)
	}
	return outcome, nil
}

func (p *Processor) apply(ctx context.Context, e Event) (Outcome, error) {
	profile, err := p.findProfile(ctx, e.Data.Customer)
	if errors.Is(err, apierr.ErrNotFound) {
		slog.Warn("webhook for unknown customer",
			"event", e.Event,
			"customer_code", e.Data.Customer.CustomerCode,
		)
		return OutcomeNoProfile, nil
	}
	if err != nil {
		return "", err
	}

	next, changed := Transition(profile.SubscriptionStatus, e.Event)
	if !changed {
		return OutcomeUnchanged, nil
	}

	_, err = p.profiles.UpdateSubscription(ctx, profile.ID, account.SubscriptionUpdate{
		Status:           next,
		SubscriptionCode: e.SubscriptionCode(),
		CustomerCode:     e.Data.Customer.CustomerCode,
	})
	if err != nil {
		return "", fmt.Errorf("update subscription of %s: %w", profile.ID, err)
	}
	slog.Info("subscription updated",
		"profile_id", profile.ID,
		"event", e.Event,
		"from", profile.SubscriptionStatus,
		"to", next,
	)
	return OutcomeApplied, nil
}

func (p *Processor) findProfile(ctx context.Context, c Customer) (account.Profile, error) {
	if c.CustomerCode != "" {
		profile, err := p.profiles.FindByCustomerCode(ctx, c.CustomerCode)
		if err == nil || !errors.Is(err, apierr.ErrNotFound) {
			return profile, err
		}
	}
	if c.Email != "" {
		return p.profiles.FindByEmail(ctx, c.Email)
	}
	return account.Profile{}, apierr.NotFound("no customer on webhook")
}
