package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/credhub/internal/domain/user"
	"github.com/google/uuid"
)

// UsersRepo keeps users in process memory. Check-and-insert happens under one
// lock, so concurrent signups for the same email yield exactly one record.
type UsersRepo struct {
	mu      sync.RWMutex
	items   map[string]user.User // id -> user
	byEmail map[string]string    // email -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:   make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UsersRepo) Insert(ctx context.Context, email, passwordHash string) (user.User, error) {
	if passwordHash == "" {
		return user.User{}, user.ErrEmptyPassword
	}
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[email]; taken {
		return user.User{}, user.ErrDuplicateEmail
	}

	r.items[u.ID] = u
	r.byEmail[email] = u.ID

	return u, nil
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return user.User{}, false, nil
	}

	return r.items[id], true, nil
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, bool, error) {
	r.mu.RLock()
	u, ok := r.items[id]
	r.mu.RUnlock()

	return u, ok, nil
}

func (r *UsersRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}

// Delete removes a user. The service never calls it; tests use it to model an
// account that disappears after a token was issued.
func (r *UsersRepo) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.items[id]; ok {
		delete(r.byEmail, u.Email)
		delete(r.items, id)
	}
}
