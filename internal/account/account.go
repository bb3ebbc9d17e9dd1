// Package account stores user profiles: role, subscription state and study
// preferences.
package account

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleStudent Role = "STUDENT"
)

// SubscriptionStatus is the billing state of a profile.
type SubscriptionStatus string

const (
	SubscriptionNone      SubscriptionStatus = "NONE"
	SubscriptionPending   SubscriptionStatus = "PENDING"
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
)

// Profile is the application-side record of an authenticated user. ID is the
// auth provider's subject.
type Profile struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email,omitempty"`
	Role               Role               `json:"role"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus"`
	SubscriptionCode   string             `json:"subscriptionCode,omitempty"`
	CustomerCode       string             `json:"customerCode,omitempty"`
	Grade              *int               `json:"grade,omitempty"`
	School             string             `json:"school,omitempty"`
	Subjects           []string           `json:"subjects"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// SubscriptionUpdate changes billing fields. Empty codes leave the stored
// value untouched.
type SubscriptionUpdate struct {
	Status           SubscriptionStatus
	SubscriptionCode string
	CustomerCode     string
}

// Store persists profiles.
type Store interface {
	GetProfile(ctx context.Context, id string) (Profile, error)
	FindByCustomerCode(ctx context.Context, code string) (Profile, error)
	FindByEmail(ctx context.Context, email string) (Profile, error)
	// EnsureProfile creates a STUDENT profile with no subscription on first
	// sight of id and returns the stored profile.
	EnsureProfile(ctx context.Context, id, email string) (Profile, error)
	SetRole(ctx context.Context, id string, role Role) (Profile, error)
	UpdateSubscription(ctx context.Context, id string, u SubscriptionUpdate) (Profile, error)
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

// Put stores p as is. It is meant for tests and seeding.
func (s *MemoryStore) Put(p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Role == "" {
		p.Role = RoleStudent
	}
	if p.SubscriptionStatus == "" {
		p.SubscriptionStatus = SubscriptionNone
	}
	if p.Subjects == nil {
		p.Subjects = []string{}
	}
	p.UpdatedAt = time.Now().UTC()
	s.profiles[p.ID] = p
}

func (s *MemoryStore) GetProfile(_ context.Context, id string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return Profile{}, apierr.NotFound("profile not found: %s", id)
	}
	return p, nil
}

func (s *MemoryStore) find(match func(Profile) bool, what string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if match(p) {
			return p, nil
		}
	}
	return Profile{}, apierr.NotFound("profile not found by %s", what)
}

func (s *MemoryStore) FindByCustomerCode(_ context.Context, code string) (Profile, error) {
	if code == "" {
		return Profile{}, apierr.NotFound("profile not found by customer code")
	}
	return s.find(func(p Profile) bool { return p.CustomerCode == code }, "customer code")
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (Profile, error) {
	if email == "" {
		return Profile{}, apierr.NotFound("profile not found by email")
	}
	return s.find(func(p Profile) bool { return strings.EqualFold(p.Email, email) }, "email")
}

func (s *MemoryStore) EnsureProfile(_ context.Context, id, email string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.profiles[id]; ok {
		if p.Email == "" && email != "" {
			p.Email = email
			p.UpdatedAt = time.Now().UTC()
			s.profiles[id] = p
		}
		return p, nil
	}
	p := Profile{
		ID:                 id,
		Email:              email,
		Role:               RoleStudent,
		SubscriptionStatus: SubscriptionNone,
		Subjects:           []string{},
		UpdatedAt:          time.Now().UTC(),
	}
	s.profiles[id] = p
	return p, nil
}

func (s *MemoryStore) SetRole(_ context.Context, id string, role Role) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return Profile{}, apierr.NotFound("profile not found: %s", id)
	}
	p.Role = role
	p.UpdatedAt = time.Now().UTC()
	s.profiles[id] = p
	return p, nil
}

func (s *MemoryStore) UpdateSubscription(_ context.Context, id string, u SubscriptionUpdate) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return Profile{}, apierr.NotFound("profile not found: %s", id)
	}
	if u.Status != "" {
		p.SubscriptionStatus = u.Status
	}
	if u.SubscriptionCode != "" {
		p.SubscriptionCode = u.SubscriptionCode
	}
	if u.CustomerCode != "" {
		p.CustomerCode = u.CustomerCode
	}
	p.UpdatedAt = time.Now().UTC()
	s.profiles[id] = p
	return p, nil
}
