package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/p-n-ai/pai-solutions/internal/account"
	"github.com/p-n-ai/pai-solutions/internal/billing"
)

func newProfiles(status account.SubscriptionStatus) *account.MemoryStore {
	store := account.NewMemoryStore()
	store.Put(account.Profile{
		ID:                 "p1",
		Email:              "learner@example.com",
		CustomerCode:       "CUS_1",
		SubscriptionStatus: status,
	})
	return store
}

func status(t *testing.T, store account.Store) account.SubscriptionStatus {
	t.Helper()
	p, err := store.GetProfile(t.Context(), "p1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	return p.SubscriptionStatus
}

func TestProcessor_ReplayIsIdempotent(t *testing.T) {
	profiles := newProfiles(account.SubscriptionNone)
	ledger := billing.NewMemoryLedger()
	p := billing.NewProcessor(profiles, ledger)
	body := []byte(`{"event":"charge.success","data":{"id":1001,"customer":{"customer_code":"CUS_1"}}}`)

	outcome, err := p.Process(t.Context(), body)
	if err != nil || outcome != billing.OutcomeApplied {
		t.Fatalf("Process() = (%s, %v), want applied", outcome, err)
	}
	if got := status(t, profiles); got != account.SubscriptionActive {
		t.Fatalf("status = %s, want ACTIVE", got)
	}
	if !ledger.Processed("charge.success:1001") {
		t.Error("ledger did not record the delivery as processed")
	}

	// A cancel in between must not be undone by the replayed charge.
	if _, err := p.Process(t.Context(), []byte(`{"event":"subscription.disable","data":{"id":1002,"customer":{"customer_code":"CUS_1"}}}`)); err != nil {
		t.Fatalf("Process(disable) error = %v", err)
	}
	outcome, err = p.Process(t.Context(), body)
	if err != nil || outcome != billing.OutcomeDuplicate {
		t.Fatalf("replay Process() = (%s, %v), want duplicate", outcome, err)
	}
	if got := status(t, profiles); got != account.SubscriptionCancelled {
		t.Errorf("status after replay = %s, want CANCELLED", got)
	}
}

func TestProcessor_EmailFallback(t *testing.T) {
	profiles := newProfiles(account.SubscriptionNone)
	p := billing.NewProcessor(profiles, nil)

	body := []byte(`{"event":"subscription.create","data":{"id":7,"subscription_code":"SUB_9","customer":{"customer_code":"CUS_NEW","email":"Learner@example.com"}}}`)
	outcome, err := p.Process(t.Context(), body)
	if err != nil || outcome != billing.OutcomeApplied {
		t.Fatalf("Process() = (%s, %v), want applied", outcome, err)
	}
	got, _ := profiles.GetProfile(t.Context(), "p1")
	if got.SubscriptionStatus != account.SubscriptionActive || got.SubscriptionCode != "SUB_9" || got.CustomerCode != "CUS_NEW" {
		t.Errorf("profile = %+v", got)
	}
}

func TestProcessor_Outcomes(t *testing.T) {
	tests := []struct {
		name  string
		from  account.SubscriptionStatus
		body  string
		want  billing.Outcome
		after account.SubscriptionStatus
	}{
		{"not_renew acknowledged", account.SubscriptionActive, `{"event":"subscription.not_renew","data":{"id":1,"customer":{"customer_code":"CUS_1"}}}`, billing.OutcomeUnchanged, account.SubscriptionActive},
		{"invoice on active is a no-op", account.SubscriptionActive, `{"event":"invoice.create","data":{"id":2,"customer":{"customer_code":"CUS_1"}}}`, billing.OutcomeUnchanged, account.SubscriptionActive},
		{"failed payment demotes", account.SubscriptionActive, `{"event":"invoice.payment_failed","data":{"id":3,"customer":{"customer_code":"CUS_1"}}}`, billing.OutcomeApplied, account.SubscriptionPending},
		{"unknown customer", account.SubscriptionNone, `{"event":"charge.success","data":{"id":4,"customer":{"customer_code":"CUS_X","email":"x@example.com"}}}`, billing.OutcomeNoProfile, account.SubscriptionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := newProfiles(tt.from)
			outcome, err := billing.NewProcessor(profiles, nil).Process(t.Context(), []byte(tt.body))
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if outcome != tt.want {
				t.Errorf("outcome = %s, want %s", outcome, tt.want)
			}
			if got := status(t, profiles); got != tt.after {
				t.Errorf("status = %s, want %s", got, tt.after)
			}
		})
	}
}

type flakyProfiles struct {
	*account.MemoryStore
	failures int
}

func (f *flakyProfiles) UpdateSubscription(ctx context.Context, id string, u account.SubscriptionUpdate) (account.Profile, error) {
	if f.failures > 0 {
		f.failures--
		return account.Profile{}, errors.New("connection reset")
	}
	return f.MemoryStore.UpdateSubscription(ctx, id, u)
}

func TestProcessor_FailureReleasesClaim(t *testing.T) {
	profiles := &flakyProfiles{MemoryStore: newProfiles(account.SubscriptionNone), failures: 1}
	p := billing.NewProcessor(profiles, billing.NewMemoryLedger())
	body := []byte(`{"event":"charge.success","data":{"id":55,"customer":{"customer_code":"CUS_1"}}}`)

	if _, err := p.Process(t.Context(), body); err == nil {
		t.Fatal("Process() error = nil, want update failure")
	}
	if got := status(t, profiles); got != account.SubscriptionNone {
		t.Fatalf("status after failure = %s, want NONE", got)
	}

	outcome, err := p.Process(t.Context(), body)
	if err != nil || outcome != billing.OutcomeApplied {
		t.Fatalf("retry Process() = (%s, %v), want applied", outcome, err)
	}
	if got := status(t, profiles); got != account.SubscriptionActive {
		t.Errorf("status after retry = %s, want ACTIVE", got)
	}
}

// ctxLedger fails once its context is done, the way a database call does.
type ctxLedger struct {
	*billing.MemoryLedger
}

func (l ctxLedger) Claim(ctx context.Context, key, event string, payload []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return l.MemoryLedger.Claim(ctx, key, event, payload)
}

func (l ctxLedger) Complete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.MemoryLedger.Complete(ctx, key)
}

func (l ctxLedger) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.MemoryLedger.Release(ctx, key)
}

// hangupProfiles cancels the delivery while the profile is being looked up.
type hangupProfiles struct {
	*account.MemoryStore
	cancel context.CancelFunc
}

func (h *hangupProfiles) FindByCustomerCode(ctx context.Context, code string) (account.Profile, error) {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	if err := ctx.Err(); err != nil {
		return account.Profile{}, err
	}
	return h.MemoryStore.FindByCustomerCode(ctx, code)
}

func TestProcessor_CancelledDeliveryCanBeRetried(t *testing.T) {
	store := newProfiles(account.SubscriptionNone)
	ctx, cancel := context.WithCancel(t.Context())
	profiles := &hangupProfiles{MemoryStore: store, cancel: cancel}
	ledger := ctxLedger{billing.NewMemoryLedger()}
	p := billing.NewProcessor(profiles, ledger)
	body := []byte(`{"event":"charge.success","data":{"id":42,"customer":{"customer_code":"CUS_1"}}}`)

	if _, err := p.Process(ctx, body); !errors.Is(err, context.Canceled) {
		t.Fatalf("Process() error = %v, want context.Canceled", err)
	}
	if got := status(t, store); got != account.SubscriptionNone {
		t.Fatalf("status after cancel = %s, want NONE", got)
	}

	outcome, err := p.Process(t.Context(), body)
	if err != nil || outcome != billing.OutcomeApplied {
		t.Fatalf("retry Process() = (%s, %v), want applied", outcome, err)
	}
	if got := status(t, store); got != account.SubscriptionActive {
		t.Errorf("status after retry = %s, want ACTIVE", got)
	}
	if !ledger.Processed("charge.success:42") {
		t.Error("ledger did not record the retried delivery")
	}
}

func TestProcessor_AbandonedClaimExpires(t *testing.T) {
	profiles := newProfiles(account.SubscriptionNone)
	ledger := billing.NewMemoryLedger()
	p := billing.NewProcessor(profiles, ledger)
	body := []byte(`{"event":"charge.success","data":{"id":77,"customer":{"customer_code":"CUS_1"}}}`)

	// A delivery that claimed the key and never finished.
	if ok, err := ledger.Claim(t.Context(), "charge.success:77", "charge.success", body); err != nil || !ok {
		t.Fatalf("Claim() = (%v, %v), want fresh claim", ok, err)
	}

	outcome, err := p.Process(t.Context(), body)
	if err != nil || outcome != billing.OutcomeDuplicate {
		t.Fatalf("Process() within lease = (%s, %v), want duplicate", outcome, err)
	}

	ledger.Lease = time.Millisecond
	time.Sleep(5 * time.Millisecond)

	outcome, err = p.Process(t.Context(), body)
	if err != nil || outcome != billing.OutcomeApplied {
		t.Fatalf("Process() after lease = (%s, %v), want applied", outcome, err)
	}
	if got := status(t, profiles); got != account.SubscriptionActive {
		t.Errorf("status = %s, want ACTIVE", got)
	}

	// Completed claims never expire.
	outcome, err = p.Process(t.Context(), body)
	if err != nil || outcome != billing.OutcomeDuplicate {
		t.Errorf("replay after completion = (%s, %v), want duplicate", outcome, err)
	}
}

type fakeKeys struct {
	keys   map[string]time.Duration
	err    error
	forgot []string
}

func (f *fakeKeys) SetOnce(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = ttl
	return true, nil
}

func (f *fakeKeys) Set(_ context.Context, key string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.keys[key] = ttl
	return nil
}

func (f *fakeKeys) Forget(_ context.Context, key string) error {
	delete(f.keys, key)
	f.forgot = append(f.forgot, key)
	return nil
}

func TestRedisLedger(t *testing.T) {
	ctx := t.Context()
	keys := &fakeKeys{keys: map[string]time.Duration{}}
	durable := billing.NewMemoryLedger()
	ledger := billing.NewRedisLedger(keys, durable)
	const key = "charge.success:1"

	ok, err := ledger.Claim(ctx, key, "charge.success", nil)
	if err != nil || !ok {
		t.Fatalf("Claim() = (%v, %v), want fresh claim", ok, err)
	}
	if ttl := keys.keys["webhook:"+key]; ttl != billing.ClaimLease {
		t.Errorf("claim ttl = %s, want %s", ttl, billing.ClaimLease)
	}
	ok, err = ledger.Claim(ctx, key, "charge.success", nil)
	if err != nil || ok {
		t.Fatalf("second Claim() = (%v, %v), want duplicate", ok, err)
	}

	if err := ledger.Release(ctx, key); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if len(keys.forgot) != 1 {
		t.Errorf("Release() forgot %v, want the cache key dropped", keys.forgot)
	}
	ok, err = ledger.Claim(ctx, key, "charge.success", nil)
	if err != nil || !ok {
		t.Fatalf("Claim() after release = (%v, %v), want fresh claim", ok, err)
	}

	if err := ledger.Complete(ctx, key); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if ttl := keys.keys["webhook:"+key]; ttl != billing.DedupTTL {
		t.Errorf("ttl after Complete() = %s, want %s", ttl, billing.DedupTTL)
	}
	if !durable.Processed(key) {
		t.Error("durable ledger did not record completion")
	}

	// With Redis down the durable ledger still deduplicates.
	keys.err = errors.New("redis: connection refused")
	ok, err = ledger.Claim(ctx, key, "charge.success", nil)
	if err != nil || ok {
		t.Errorf("Claim() with cache down = (%v, %v), want duplicate from durable ledger", ok, err)
	}
}
