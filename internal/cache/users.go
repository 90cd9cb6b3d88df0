package cache

import (
	"context"
	"log/slog"

	"github.com/geocoder89/credhub/internal/domain/user"
	"github.com/geocoder89/credhub/internal/observability"
)

type Users interface {
	Insert(ctx context.Context, email, passwordHash string) (user.User, error)
	FindByEmail(ctx context.Context, email string) (user.User, bool, error)
	FindByID(ctx context.Context, id string) (user.User, bool, error)
}

// CachedUsers remembers user ids the store reported as absent. Ids are fresh
// UUIDs that are never reissued, so an absent id stays absent; a found user is
// never cached and always comes from the store, which keeps removals made
// outside this service visible immediately. Cache errors are logged and the
// lookup falls through to the wrapped store.
type CachedUsers struct {
	next    Users
	backend Backend
	log     *slog.Logger
	prom    *observability.Prom
}

func NewCachedUsers(next Users, backend Backend, log *slog.Logger, prom *observability.Prom) *CachedUsers {
	return &CachedUsers{next: next, backend: backend, log: log, prom: prom}
}

var goneMarker = []byte("gone")

func goneKey(id string) string {
	return "user:gone:" + id
}

func (c *CachedUsers) Insert(ctx context.Context, email, passwordHash string) (user.User, error) {
	return c.next.Insert(ctx, email, passwordHash)
}

func (c *CachedUsers) FindByEmail(ctx context.Context, email string) (user.User, bool, error) {
	return c.next.FindByEmail(ctx, email)
}

func (c *CachedUsers) FindByID(ctx context.Context, id string) (user.User, bool, error) {
	_, gone, err := c.backend.Get(ctx, goneKey(id))
	switch {
	case err != nil:
		c.prom.CacheLookup("error")
		c.log.WarnContext(ctx, "user cache get failed", "err", err)
	case gone:
		c.prom.CacheLookup("hit")
		return user.User{}, false, nil
	default:
		c.prom.CacheLookup("miss")
	}

	u, found, err := c.next.FindByID(ctx, id)
	if err != nil || found {
		return u, found, err
	}

	if err := c.backend.Set(ctx, goneKey(id), goneMarker); err != nil {
		c.log.WarnContext(ctx, "user cache set failed", "err", err)
	}
	return user.User{}, false, nil
}
