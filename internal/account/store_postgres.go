package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

const dbTimeout = 5 * time.Second

const profileColumns = `id::text, COALESCE(email, ''), role, subscription_status,
	COALESCE(subscription_code, ''), COALESCE(customer_code, ''), grade,
	COALESCE(school, ''), subjects, updated_at`

const uniqueViolation = "23505"

// PostgresStore is a PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	if err := row.Scan(
		&p.ID,
		&p.Email,
		&p.Role,
		&p.SubscriptionStatus,
		&p.SubscriptionCode,
		&p.CustomerCode,
		&p.Grade,
		&p.School,
		&p.Subjects,
		&p.UpdatedAt,
	); err != nil {
		return Profile{}, err
	}
	if p.Subjects == nil {
		p.Subjects = []string{}
	}
	return p, nil
}

func (s *PostgresStore) queryOne(ctx context.Context, what, query string, args ...any) (Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p, err := scanProfile(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, apierr.NotFound("profile not found by %s", what)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Profile{}, apierr.Validation("profile %s already belongs to another account", what)
		}
		return Profile{}, apierr.Upstream("profile by "+what, err)
	}
	return p, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (Profile, error) {
	if uuid.Validate(id) != nil {
		return Profile{}, apierr.NotFound("profile not found: %s", id)
	}
	return s.queryOne(ctx, "id",
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1::uuid`, id)
}

func (s *PostgresStore) FindByCustomerCode(ctx context.Context, code string) (Profile, error) {
	if code == "" {
		return Profile{}, apierr.NotFound("profile not found by customer code")
	}
	return s.queryOne(ctx, "customer code",
		`SELECT `+profileColumns+` FROM profiles WHERE customer_code = $1`, code)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (Profile, error) {
	if email == "" {
		return Profile{}, apierr.NotFound("profile not found by email")
	}
	return s.queryOne(ctx, "email",
		`SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1) LIMIT 1`, email)
}

func (s *PostgresStore) EnsureProfile(ctx context.Context, id, email string) (Profile, error) {
	if uuid.Validate(id) != nil {
		return Profile{}, apierr.Validation("profile id must be a UUID: %q", id)
	}
	return s.queryOne(ctx, "email",
		`INSERT INTO profiles (id, email)
		 VALUES ($1::uuid, $2)
		 ON CONFLICT (id) DO UPDATE
		 SET email = COALESCE(profiles.email, EXCLUDED.email)
		 RETURNING `+profileColumns,
		id,
		nullIfEmpty(email),
	)
}

func (s *PostgresStore) SetRole(ctx context.Context, id string, role Role) (Profile, error) {
	if uuid.Validate(id) != nil {
		return Profile{}, apierr.NotFound("profile not found: %s", id)
	}
	return s.queryOne(ctx, "id",
		`UPDATE profiles SET role = $2, updated_at = NOW()
		 WHERE id = $1::uuid
		 RETURNING `+profileColumns,
		id, string(role),
	)
}

func (s *PostgresStore) UpdateSubscription(ctx context.Context, id string, u SubscriptionUpdate) (Profile, error) {
	if uuid.Validate(id) != nil {
		return Profile{}, apierr.NotFound("profile not found: %s", id)
	}
	return s.queryOne(ctx, "id",
		`UPDATE profiles
		 SET subscription_status = COALESCE($2, subscription_status),
		     subscription_code   = COALESCE($3, subscription_code),
		     customer_code       = COALESCE($4, customer_code),
		     updated_at          = NOW()
		 WHERE id = $1::uuid
		 RETURNING `+profileColumns,
		id,
		nullIfEmpty(string(u.Status)),
		nullIfEmpty(u.SubscriptionCode),
		nullIfEmpty(u.CustomerCode),
	)
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
