package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long a session token stays valid after issue.
const DefaultTTL = time.Hour

// MinSecretBytes is the shortest HS256 signing secret accepted, here and at config validation.
const MinSecretBytes = 32

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenMalformed   = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrInvalidSignature = fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	ErrTokenExpired     = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrInvalidClaims    = fmt.Errorf("%w: claims", ErrInvalidToken)

	ErrWeakSecret = errors.New("signing secret is too short")
)

type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if len(secret) < MinSecretBytes {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}, nil
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs {sub, iat, exp} for subjectID. Claim times carry whole seconds,
// so now is truncated before exp is derived from it.
func (m *Manager) Issue(subjectID string, now time.Time) (string, error) {
	if subjectID == "" {
		return "", ErrInvalidClaims
	}

	now = now.UTC().Truncate(time.Second)

	claims := jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks the signature over header.payload before the payload is
// decoded, then expiry against now. A token is expired once now >= exp.
func (m *Manager) Verify(tokenStr string, now time.Time) (Claims, error) {
	if err := m.checkSignature(tokenStr); err != nil {
		return Claims{}, err
	}

	var registered jwt.RegisteredClaims

	token, err := jwt.ParseWithClaims(tokenStr, &registered, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, classify(err)
	}

	if !token.Valid || registered.Subject == "" || registered.ExpiresAt == nil {
		return Claims{}, ErrInvalidClaims
	}

	c := Claims{
		Subject:   registered.Subject,
		ExpiresAt: registered.ExpiresAt.Time,
	}
	if registered.IssuedAt != nil {
		c.IssuedAt = registered.IssuedAt.Time
	}

	return c, nil
}

func (m *Manager) checkSignature(tokenStr string) error {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return ErrTokenMalformed
	}

	for _, seg := range parts[:2] {
		if _, err := m.parser.DecodeSegment(seg); err != nil {
			return ErrTokenMalformed
		}
	}

	sig, err := m.parser.DecodeSegment(parts[2])
	if err != nil {
		return ErrTokenMalformed
	}

	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, m.secret); err != nil {
		return ErrInvalidSignature
	}

	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrInvalidToken):
		return err
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	default:
		return fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
}
