package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/credhub/internal/domain/user"
	"github.com/geocoder89/credhub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

// prom may be nil, in which case queries are not timed.
func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) Insert(ctx context.Context, email, passwordHash string) (user.User, error) {
	if passwordHash == "" {
		return user.User{}, user.ErrEmptyPassword
	}

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
	}

	err := r.observe("users.insert", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO users (id, email, password_hash)
			VALUES ($1, $2, $3)
			RETURNING created_at`,
			u.ID, u.Email, u.PasswordHash,
		).Scan(&u.CreatedAt)
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return user.User{}, user.ErrDuplicateEmail
		}

		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, bool, error) {
	return r.findOne(ctx, "users.find_by_email",
		`SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = $1`,
		email,
	)
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, bool, error) {
	// ids are UUIDs; anything else cannot exist and would only make postgres complain
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, false, nil
	}

	return r.findOne(ctx, "users.find_by_id",
		`SELECT id, email, password_hash, created_at
		FROM users
		WHERE id = $1`,
		id,
	)
}

func (r *UsersRepo) findOne(ctx context.Context, op, query string, arg any) (user.User, bool, error) {
	var u user.User
	found := true

	err := r.observe(op, func() error {
		err := r.pool.QueryRow(ctx, query, arg).Scan(
			&u.ID,
			&u.Email,
			&u.PasswordHash,
			&u.CreatedAt,
		)
		// absence is a normal outcome, not a DB error
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})

	if err != nil {
		return user.User{}, false, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return user.User{}, false, nil
	}

	return u, true, nil
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom == nil {
		return fn()
	}
	return r.prom.ObserveDB(op, fn)
}
