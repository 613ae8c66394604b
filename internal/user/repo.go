package user

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bloghaven/bloghaven/internal/telemetry/tracing"
	"github.com/bloghaven/bloghaven/pkg"
)

// adminPasswordSentinel is stored as the admin row's password hash. It is not
// a valid bcrypt hash, so password login against this row can never succeed;
// the admin authenticates against the configured credentials instead.
const adminPasswordSentinel = "!"

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Create(ctx context.Context, u *User) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "userRepo.Create")
	defer span.End()

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	err := r.db.QueryRow(
		ctx,
		`INSERT INTO users (name, email, password_hash, avatar, bio, is_verified, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id;`,
		u.Name, u.Email, u.PasswordHash, u.Avatar, u.Bio, u.IsVerified, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrEmailTaken
		}
		return err
	}

	return nil
}

func (r *Repo) GetByID(ctx context.Context, id int) (*User, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "userRepo.GetByID")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	return r.scanOne(r.db.QueryRow(
		ctx,
		`SELECT id, name, email, password_hash, avatar, bio, is_verified, created_at
			FROM users WHERE id = $1;`,
		id,
	))
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "userRepo.GetByEmail")
	defer span.End()

	return r.scanOne(r.db.QueryRow(
		ctx,
		`SELECT id, name, email, password_hash, avatar, bio, is_verified, created_at
			FROM users WHERE email = $1;`,
		email,
	))
}

// AuthorIDByEmail resolves an email to the owning user's id. Used by blog
// authoring to resolve admin identities to their materialized user row.
func (r *Repo) AuthorIDByEmail(ctx context.Context, email string) (int, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

// UpdateProfile sets name and bio and returns the updated user.
func (r *Repo) UpdateProfile(ctx context.Context, id int, name, bio string) (*User, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "userRepo.UpdateProfile")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	return r.scanOne(r.db.QueryRow(
		ctx,
		`UPDATE users SET name = $1, bio = $2 WHERE id = $3
			RETURNING id, name, email, password_hash, avatar, bio, is_verified, created_at;`,
		name, bio, id,
	))
}

// EnsureAdminUser materializes the admin's user row so that admin-authored
// blogs always have a concrete author reference. Idempotent: an existing row
// with the admin email is returned untouched.
func (r *Repo) EnsureAdminUser(ctx context.Context, email string) (*User, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "userRepo.EnsureAdminUser")
	defer span.End()

	existing, err := r.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	adminUser := &User{
		Name:         "Admin",
		Email:        email,
		PasswordHash: adminPasswordSentinel,
		IsVerified:   true,
	}
	if err := r.Create(ctx, adminUser); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			// concurrent ensure, the row is there now
			return r.GetByEmail(ctx, email)
		}
		return nil, err
	}

	return adminUser, nil
}

func (r *Repo) scanOne(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash,
		&u.Avatar, &u.Bio, &u.IsVerified, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
