package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/application"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/access"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

const (
	authService = "auth-service"

	useCaseRegister     = "user.register"
	useCaseAuthenticate = "user.authenticate"
	useCaseCurrentUser  = "user.current"
)

// ErrInvalidCredentials is returned for a known user with a wrong password.
var ErrInvalidCredentials = fmt.Errorf("auth: wrong password: %w", apperr.ErrUnauthenticated)

type Service struct {
	users  user.Repository
	hasher Hasher
	tokens *Tokens
	ids    application.IDGenerator
	probe  *application.Probe
	now    func() time.Time
}

func NewService(users user.Repository, hasher Hasher, tokens *Tokens, ids application.IDGenerator, tel observability.Observability) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		ids:    ids,
		probe:  application.NewProbe(authService, tel),
		now:    time.Now,
	}
}

type RegisterInput struct {
	GivenName  string
	FamilyName string
	Email      string
	Password   string
}

// Register creates a seller account; the email must not be registered yet.
func (s *Service) Register(ctx context.Context, in RegisterInput) (_ *user.User, err error) {
	ctx, run := s.probe.Start(ctx, useCaseRegister, "RegisterUser")
	defer func() { run.End(err) }()

	email := user.NormalizeEmail(in.Email)
	if email == "" {
		return nil, apperr.Invalid("email", "is required")
	}
	if strings.TrimSpace(in.Password) == "" {
		return nil, apperr.Invalid("password", "is required")
	}

	switch _, lookupErr := s.users.FindByEmail(ctx, email); {
	case lookupErr == nil:
		return nil, user.ErrEmailTaken
	case !errors.Is(lookupErr, apperr.ErrNotFound):
		run.Status("REPO_LOOKUP_FAILED")
		return nil, fmt.Errorf("auth: lookup user: %w", lookupErr)
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u, err := user.New(s.ids.NewID(), in.GivenName, in.FamilyName, email, hashed, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return nil, fmt.Errorf("auth: insert user: %w", err)
	}
	run.Span().SetAttributes(attribute.String("user.id", u.ID))
	return u, nil
}

// Authenticate checks credentials and returns a signed token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (_ string, err error) {
	ctx, run := s.probe.Start(ctx, useCaseAuthenticate, "AuthenticateUser")
	defer func() { run.End(err) }()

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("auth: %w", err)
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		run.Status("WRONG_PASSWORD")
		return "", ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(u.Principal(), 0)
	if err != nil {
		run.Status("TOKEN_SIGN_FAILED")
		return "", err
	}
	run.Annotate(observability.F("user_id", u.ID))
	return token, nil
}

// CurrentUser resolves a token to the principal it was issued for.
func (s *Service) CurrentUser(ctx context.Context, token string) (_ access.Principal, err error) {
	_, run := s.probe.Start(ctx, useCaseCurrentUser, "CurrentUser")
	defer func() { run.End(err) }()

	return s.tokens.Resolve(token)
}

// Resolve is the bearer-header path: same as CurrentUser without use-case telemetry.
func (s *Service) Resolve(token string) (access.Principal, error) {
	return s.tokens.Resolve(token)
}

// IssueFor signs a token for an existing user, looked up by email.
func (s *Service) IssueFor(ctx context.Context, email string, ttl time.Duration) (string, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("auth: %w", err)
	}
	return s.tokens.Issue(u.Principal(), ttl)
}
