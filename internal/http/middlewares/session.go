package middlewares

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/credhub/internal/actorctx"
	"github.com/geocoder89/credhub/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string, now time.Time) (auth.Claims, error)
}

type SessionMiddleware struct {
	tokens     TokenVerifier
	cookieName string
	log        *slog.Logger
	now        func() time.Time
}

func NewSessionMiddleware(tokens TokenVerifier, cookieName string, log *slog.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		tokens:     tokens,
		cookieName: cookieName,
		log:        log,
		now:        time.Now,
	}
}

// RequireSession accepts a bearer token or the session cookie, in that order.
// Every rejection looks the same to the client.
func (m *SessionMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := m.tokenFrom(c)
		if raw == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := m.tokens.Verify(raw, m.now())
		if err != nil {
			m.log.DebugContext(c.Request.Context(), "session rejected", "err", err)
			abortUnauthorized(c)
			return
		}

		c.Set(ctxUserIDKey, claims.Subject)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), claims.Subject))

		c.Next()
	}
}

func (m *SessionMiddleware) tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}

	raw, err := c.Cookie(m.cookieName)
	if err != nil {
		return ""
	}
	return raw
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
