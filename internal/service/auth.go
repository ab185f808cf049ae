package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/msomdec/recall/internal/domain"
)

// DefaultTokenLifetime is how long a session token stays valid.
const DefaultTokenLifetime = 30 * time.Minute

// TokenSigner issues a signed token for a subject.
type TokenSigner interface {
	Sign(subject string, expiresAt time.Time) (string, error)
}

// TokenVerifier checks a token's signature and expiry and returns its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	UserName  string
	Token     string
	ExpiresAt time.Time
	// Draft is the pending autosave draft, if any.
	Draft *domain.Draft
}

// AuthService verifies credentials and resolves the identity behind a session token.
type AuthService struct {
	creds    domain.CredentialsRepository
	signer   TokenSigner
	verifier TokenVerifier
	drafts   domain.AutoSaveRepository
	log      *slog.Logger
	lifetime time.Duration
	now      func() time.Time
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithTokenLifetime overrides DefaultTokenLifetime.
func WithTokenLifetime(d time.Duration) AuthOption {
	return func(s *AuthService) { s.lifetime = d }
}

// WithAuthClock replaces the wall clock.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService creates a new AuthService.
func NewAuthService(creds domain.CredentialsRepository, signer TokenSigner, verifier TokenVerifier, drafts domain.AutoSaveRepository, log *slog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		creds:    creds,
		signer:   signer,
		verifier: verifier,
		drafts:   drafts,
		log:      log.With(slog.String("service", "auth")),
		lifetime: DefaultTokenLifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lifetime returns how long issued tokens are valid.
func (s *AuthService) Lifetime() time.Duration {
	return s.lifetime
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// compareUnknownUser spends the same bcrypt work as a real comparison so
// response time does not reveal whether a user name exists.
func compareUnknownUser(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("recall-unknown-user"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// Login verifies credentials and returns a signed session token. Unknown
// users and wrong passwords both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, userName, password string) (*LoginResult, error) {
	hash, err := s.creds.PasswordHash(ctx, userName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			compareUnknownUser(password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get credentials: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	expiresAt := s.now().UTC().Add(s.lifetime).Truncate(time.Second)
	token, err := s.signer.Sign(userName, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	draft, err := s.drafts.Read(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.WarnContext(ctx, "read autosave on login", slog.Any("error", err))
		}
		draft = nil
	}

	s.log.InfoContext(ctx, "user logged in", slog.String("user", userName))
	return &LoginResult{UserName: userName, Token: token, ExpiresAt: expiresAt, Draft: draft}, nil
}

// ValidateToken returns the user name carried by a valid, unexpired token.
func (s *AuthService) ValidateToken(token string) (string, error) {
	userName, err := s.verifier.Verify(token)
	if err != nil {
		return "", domain.ErrUnauthenticated
	}
	return userName, nil
}

// Identify resolves the user behind a raw Cookie header. Any malformed header,
// duplicate session cookie or invalid token yields no identity.
func (s *AuthService) Identify(cookieHeader, cookieName string) (string, bool) {
	token, ok := SessionToken(cookieHeader, cookieName)
	if !ok {
		return "", false
	}
	userName, err := s.ValidateToken(token)
	if err != nil {
		s.log.Debug("session token rejected")
		return "", false
	}
	return userName, true
}
