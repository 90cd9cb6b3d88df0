// Package session describes how the session token travels in a cookie.
package session

import (
	"net/http"
	"time"
)

const CookieName = "authToken"

// Policy holds the cookie attributes attached to a session token. It has no
// state beyond its configuration and is safe to share.
type Policy struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

func NewPolicy(production bool, lifetime time.Duration) Policy {
	return Policy{
		Name:   CookieName,
		Secure: production,
		MaxAge: lifetime,
	}
}

// Cookie wraps token with the session attributes.
func (p Policy) Cookie(token string) *http.Cookie {
	c := p.base()
	c.Value = token
	c.MaxAge = int(p.MaxAge.Seconds())
	return c
}

// Clear returns the same cookie with an empty value and immediate expiry.
func (p Policy) Clear() *http.Cookie {
	c := p.base()
	c.MaxAge = -1 // Max-Age=0
	c.Expires = time.Unix(0, 0)
	return c
}

func (p Policy) base() *http.Cookie {
	return &http.Cookie{
		Name:     p.Name,
		Path:     "/",
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
