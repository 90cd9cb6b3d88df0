// Package account implements the signup, login and who-am-I workflow on top
// of a credential store, a password hasher and a token issuer.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/credhub/internal/domain/user"
	"github.com/geocoder89/credhub/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/geocoder89/credhub/internal/account")

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

type Store interface {
	Insert(ctx context.Context, email, passwordHash string) (user.User, error)
	FindByEmail(ctx context.Context, email string) (user.User, bool, error)
	FindByID(ctx context.Context, id string) (user.User, bool, error)
}

type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

type TokenIssuer interface {
	Issue(subjectID string, now time.Time) (string, error)
}

// Session is what a successful signup or login hands back to the transport.
type Session struct {
	User  user.Identity
	Token string
}

type Service struct {
	users  Store
	hasher Hasher
	tokens TokenIssuer
	log    *slog.Logger
	prom   *observability.Prom
	now    func() time.Time

	// dummyHash is verified against when the email is unknown.
	dummyHash string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(p *observability.Prom) Option {
	return func(s *Service) { s.prom = p }
}

// NewService fails when the hasher cannot produce the digest used to keep
// unknown-email logins as slow as wrong-password ones.
func NewService(users Store, hasher Hasher, tokens TokenIssuer, log *slog.Logger, opts ...Option) (*Service, error) {
	s := &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := hasher.Hash("credhub-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	s.dummyHash = dummy

	return s, nil
}

func (s *Service) Signup(ctx context.Context, email, password string) (Session, error) {
	ctx, span := tracer.Start(ctx, "account.Signup")
	defer span.End()

	if password == "" {
		s.prom.AuthEvent("signup", "empty_password")
		return Session{}, user.ErrEmptyPassword
	}

	start := time.Now()
	hash, err := s.hasher.Hash(password)
	s.prom.ObserveHash(start)
	if err != nil {
		s.prom.AuthEvent("signup", "error")
		return Session{}, fail(span, fmt.Errorf("hash password: %w", err))
	}

	u, err := s.users.Insert(ctx, email, hash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			s.prom.AuthEvent("signup", "duplicate")
			return Session{}, user.ErrDuplicateEmail
		}

		s.prom.AuthEvent("signup", "error")
		return Session{}, fail(span, fmt.Errorf("insert user: %w", err))
	}

	token, err := s.tokens.Issue(u.ID, s.now())
	if err != nil {
		s.prom.AuthEvent("signup", "error")
		return Session{}, fail(span, fmt.Errorf("issue token: %w", err))
	}

	s.prom.AuthEvent("signup", "ok")
	s.log.InfoContext(ctx, "user registered", "user_id", u.ID)

	return Session{User: u.Identity(), Token: token}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	ctx, span := tracer.Start(ctx, "account.Login")
	defer span.End()

	u, found, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.prom.AuthEvent("login", "error")
		return Session{}, fail(span, fmt.Errorf("find user: %w", err))
	}

	start := time.Now()
	var match bool
	if found {
		match = s.hasher.Verify(password, u.PasswordHash)
	} else {
		// burn the same hashing time so a miss is not faster than a bad password
		s.hasher.Verify(password, s.dummyHash)
	}
	s.prom.ObserveHash(start)

	if !found || !match {
		s.prom.AuthEvent("login", "invalid_credentials")
		return Session{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, s.now())
	if err != nil {
		s.prom.AuthEvent("login", "error")
		return Session{}, fail(span, fmt.Errorf("issue token: %w", err))
	}

	s.prom.AuthEvent("login", "ok")

	return Session{User: u.Identity(), Token: token}, nil
}

// WhoAmI resolves an already verified token subject to its user.
func (s *Service) WhoAmI(ctx context.Context, subjectID string) (user.Identity, error) {
	ctx, span := tracer.Start(ctx, "account.WhoAmI")
	defer span.End()

	u, found, err := s.users.FindByID(ctx, subjectID)
	if err != nil {
		s.prom.AuthEvent("whoami", "error")
		return user.Identity{}, fail(span, fmt.Errorf("find user: %w", err))
	}
	if !found {
		s.prom.AuthEvent("whoami", "not_found")
		return user.Identity{}, ErrUserNotFound
	}

	s.prom.AuthEvent("whoami", "ok")
	return u.Identity(), nil
}

// fail marks the span for internal failures only; rejected credentials and
// conflicts are normal outcomes.
func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
