package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PabloPavan/swiftsnip/internal"
	"github.com/PabloPavan/swiftsnip/internal/apperrors"
	"github.com/PabloPavan/swiftsnip/internal/identity"
	"github.com/PabloPavan/swiftsnip/internal/session"
	"github.com/PabloPavan/swiftsnip/internal/users"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (users.User, error)
}

type SessionManager interface {
	Create(ctx context.Context, userID, role string) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	Refresh(ctx context.Context, sess *session.Session) (*session.Session, bool, error)
	Delete(ctx context.Context, id string) error
}

type TokenIssuer interface {
	Issue(userID, role string) (string, time.Time, error)
	Parse(raw string) (identity.Principal, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

type Service struct {
	Users            UserStore
	Sessions         SessionManager
	Tokens           TokenIssuer
	LoginLimiter     RateLimiter
	PasswordVerifier func(hashed, plain string) error
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	ClientIP string `json:"-"`
}

type SessionInfo struct {
	ID        string
	UserID    string
	Role      string
	CSRFToken string
	ExpiresAt time.Time
}

// AccessToken is the bearer credential handed to non-browser clients.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

type LoginResult struct {
	UserID    string
	UserEmail string
	UserRole  string
	Session   SessionInfo
	Access    *AccessToken
}

func (s *Service) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	if s.Users == nil || s.Sessions == nil {
		return LoginResult{}, apperrors.New(apperrors.KindInternal, "auth not configured")
	}

	email := users.NormalizeEmail(input.Email)
	password := input.Password
	if email == "" || strings.TrimSpace(password) == "" {
		return LoginResult{}, apperrors.New(apperrors.KindInvalidInput, "email and password are required")
	}
	if !strings.Contains(email, "@") {
		return LoginResult{}, apperrors.New(apperrors.KindInvalidInput, "invalid email")
	}

	keys := []string{"login:email:" + email}
	if ip := strings.TrimSpace(input.ClientIP); ip != "" {
		keys = append([]string{"login:ip:" + ip}, keys...)
	}
	if err := s.throttle(ctx, keys...); err != nil {
		return LoginResult{}, err
	}

	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, apperrors.New(apperrors.KindUnauthorized, "invalid credentials")
	}

	verifier := s.PasswordVerifier
	if verifier == nil {
		verifier = internal.DefaultPasswordVerifier
	}

	if err := verifier(u.PasswordHash, password); err != nil {
		return LoginResult{}, apperrors.New(apperrors.KindUnauthorized, "invalid credentials")
	}

	sess, err := s.Sessions.Create(ctx, u.ID, string(u.Role))
	if err != nil {
		return LoginResult{}, apperrors.Wrap(apperrors.KindUnavailable, "failed to create session", err)
	}

	var access *AccessToken
	if s.Tokens != nil {
		token, expiresAt, err := s.Tokens.Issue(u.ID, string(u.Role))
		if err != nil {
			return LoginResult{}, apperrors.Wrap(apperrors.KindInternal, "failed to issue token", err)
		}
		access = &AccessToken{Token: token, ExpiresAt: expiresAt}
	}

	return LoginResult{
		UserID:    u.ID,
		UserEmail: u.Email,
		UserRole:  string(u.Role),
		Session: SessionInfo{
			ID:        sess.ID,
			UserID:    sess.UserID,
			Role:      sess.Role,
			CSRFToken: sess.CSRFToken,
			ExpiresAt: sess.ExpiresAt,
		},
		Access: access,
	}, nil
}

func (s *Service) throttle(ctx context.Context, keys ...string) error {
	if s.LoginLimiter == nil {
		return nil
	}
	for _, key := range keys {
		allowed, retryAfter, err := s.LoginLimiter.Allow(ctx, key)
		if err != nil {
			return apperrors.Wrap(apperrors.KindUnavailable, "rate limit error", err)
		}
		if !allowed {
			return apperrors.RateLimit("too many requests", retryAfter)
		}
	}
	return nil
}

func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if s.Sessions == nil {
		return apperrors.New(apperrors.KindInternal, "auth not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	if err := s.Sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, session.ErrNotFound) {
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to logout", err)
	}
	return nil
}

// AuthenticateBearer resolves an access token issued at login.
func (s *Service) AuthenticateBearer(ctx context.Context, token string) (identity.Principal, error) {
	if strings.TrimSpace(token) == "" || s.Tokens == nil {
		return identity.Principal{}, apperrors.New(apperrors.KindUnauthorized, "unauthorized")
	}
	p, err := s.Tokens.Parse(token)
	if err != nil {
		return identity.Principal{}, apperrors.Wrap(apperrors.KindUnauthorized, "unauthorized", err)
	}
	return p, nil
}

func (s *Service) AuthenticateSession(ctx context.Context, sessionID, csrfToken, method string) (SessionInfo, bool, error) {
	if s.Sessions == nil {
		return SessionInfo{}, false, apperrors.New(apperrors.KindInternal, "auth not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return SessionInfo{}, false, apperrors.New(apperrors.KindUnauthorized, "missing session")
	}

	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return SessionInfo{}, false, apperrors.New(apperrors.KindUnauthorized, "unauthorized")
		}
		return SessionInfo{}, false, apperrors.Wrap(apperrors.KindUnavailable, "session store unavailable", err)
	}

	if requiresCSRFToken(method) {
		if csrfToken == "" || csrfToken != sess.CSRFToken {
			return SessionInfo{}, false, apperrors.New(apperrors.KindForbidden, "forbidden")
		}
	}

	refreshed := false
	sess, refreshed, err = s.Sessions.Refresh(ctx, sess)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return SessionInfo{}, false, apperrors.New(apperrors.KindUnauthorized, "unauthorized")
		}
		return SessionInfo{}, false, apperrors.Wrap(apperrors.KindUnavailable, "failed to refresh session", err)
	}

	info := SessionInfo{
		ID:        sess.ID,
		UserID:    sess.UserID,
		Role:      sess.Role,
		CSRFToken: sess.CSRFToken,
		ExpiresAt: sess.ExpiresAt,
	}
	return info, refreshed, nil
}

func requiresCSRFToken(method string) bool {
	switch method {
	case "GET", "HEAD", "OPTIONS":
		return false
	default:
		return true
	}
}
