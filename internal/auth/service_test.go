package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PabloPavan/swiftsnip/internal/apperrors"
	"github.com/PabloPavan/swiftsnip/internal/session"
	"github.com/PabloPavan/swiftsnip/internal/users"
)

type userStoreStub struct {
	getFn func(ctx context.Context, email string) (users.User, error)
}

func (u *userStoreStub) GetByEmail(ctx context.Context, email string) (users.User, error) {
	if u.getFn != nil {
		return u.getFn(ctx, email)
	}
	return users.User{}, users.ErrNotFound
}

type sessionStub struct {
	createFn  func(ctx context.Context, userID, role string) (*session.Session, error)
	getFn     func(ctx context.Context, id string) (*session.Session, error)
	refreshFn func(ctx context.Context, sess *session.Session) (*session.Session, bool, error)
	deleteFn  func(ctx context.Context, id string) error
}

func (s *sessionStub) Create(ctx context.Context, userID, role string) (*session.Session, error) {
	if s.createFn != nil {
		return s.createFn(ctx, userID, role)
	}
	return nil, errors.New("not implemented")
}

func (s *sessionStub) Get(ctx context.Context, id string) (*session.Session, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, session.ErrNotFound
}

func (s *sessionStub) Refresh(ctx context.Context, sess *session.Session) (*session.Session, bool, error) {
	if s.refreshFn != nil {
		return s.refreshFn(ctx, sess)
	}
	return sess, false, nil
}

func (s *sessionStub) Delete(ctx context.Context, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func TestServiceLoginInvalidEmail(t *testing.T) {
	store := &userStoreStub{}
	sessions := &sessionStub{}
	svc := &Service{Users: store, Sessions: sessions}

	_, err := svc.Login(context.Background(), LoginInput{Email: "invalid", Password: "x"})
	assertKind(t, err, apperrors.KindInvalidInput)
}

func TestServiceLoginSuccess(t *testing.T) {
	store := &userStoreStub{}
	sessions := &sessionStub{}

	store.getFn = func(ctx context.Context, email string) (users.User, error) {
		return users.User{ID: "usr_1", Email: "user@local", PasswordHash: "hash", Role: users.RoleAdmin}, nil
	}

	expiresAt := time.Now().Add(time.Hour)
	sessions.createFn = func(ctx context.Context, userID, role string) (*session.Session, error) {
		return &session.Session{
			ID:        "ses_1",
			UserID:    userID,
			Role:      role,
			CSRFToken: "csrf",
			ExpiresAt: expiresAt,
		}, nil
	}

	tokens, err := NewTokenService("0123456789abcdef0123", time.Minute)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}

	svc := &Service{
		Users:    store,
		Sessions: sessions,
		Tokens:   tokens,
		PasswordVerifier: func(hashed, plain string) error {
			if hashed != "hash" || plain != "pass" {
				return errors.New("mismatch")
			}
			return nil
		},
	}

	res, err := svc.Login(context.Background(), LoginInput{Email: "USER@LOCAL", Password: "pass"})
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if res.UserID != "usr_1" {
		t.Fatalf("unexpected user id: %s", res.UserID)
	}
	if res.Session.CSRFToken != "csrf" {
		t.Fatalf("unexpected csrf token: %s", res.Session.CSRFToken)
	}
	if res.Access == nil || res.Access.Token == "" {
		t.Fatal("expected access token")
	}

	p, err := svc.AuthenticateBearer(context.Background(), res.Access.Token)
	if err != nil {
		t.Fatalf("bearer: %v", err)
	}
	if p.UserID != "usr_1" || p.Role != string(users.RoleAdmin) {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

type limiterStub struct {
	blocked map[string]bool
	seen    []string
}

func (l *limiterStub) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	l.seen = append(l.seen, key)
	if l.blocked[key] {
		return false, 30 * time.Second, nil
	}
	return true, 0, nil
}

func TestServiceLoginRateLimited(t *testing.T) {
	limiter := &limiterStub{blocked: map[string]bool{"login:email:user@local": true}}
	svc := &Service{Users: &userStoreStub{}, Sessions: &sessionStub{}, LoginLimiter: limiter}

	_, err := svc.Login(context.Background(), LoginInput{Email: "user@local", Password: "pass", ClientIP: "10.0.0.1"})
	assertKind(t, err, apperrors.KindRateLimited)

	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.RetryAfter != 30*time.Second {
		t.Fatalf("unexpected retry after: %+v", appErr)
	}
	if len(limiter.seen) != 2 || limiter.seen[0] != "login:ip:10.0.0.1" {
		t.Fatalf("unexpected limiter keys: %v", limiter.seen)
	}
}

func TestServiceLoginWrongPassword(t *testing.T) {
	store := &userStoreStub{getFn: func(ctx context.Context, email string) (users.User, error) {
		return users.User{ID: "usr_1", PasswordHash: "hash"}, nil
	}}
	svc := &Service{
		Users:            store,
		Sessions:         &sessionStub{},
		PasswordVerifier: func(hashed, plain string) error { return errors.New("mismatch") },
	}

	_, err := svc.Login(context.Background(), LoginInput{Email: "user@local", Password: "nope"})
	assertKind(t, err, apperrors.KindUnauthorized)
}

func TestServiceAuthenticateBearerRejectsGarbage(t *testing.T) {
	tokens, err := NewTokenService("0123456789abcdef0123", time.Minute)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	svc := &Service{Tokens: tokens}

	_, err = svc.AuthenticateBearer(context.Background(), "abc.def.ghi")
	assertKind(t, err, apperrors.KindUnauthorized)

	_, err = (&Service{}).AuthenticateBearer(context.Background(), "anything")
	assertKind(t, err, apperrors.KindUnauthorized)
}

func TestServiceLogoutIgnoresMissingSession(t *testing.T) {
	sessions := &sessionStub{deleteFn: func(ctx context.Context, id string) error {
		return session.ErrNotFound
	}}
	svc := &Service{Sessions: sessions}

	if err := svc.Logout(context.Background(), "ses_gone"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("empty logout: %v", err)
	}
}

var _ TokenIssuer = (*TokenService)(nil)

func TestServiceAuthenticateSessionForbidden(t *testing.T) {
	sessions := &sessionStub{}
	svc := &Service{Sessions: sessions}

	sessions.getFn = func(ctx context.Context, id string) (*session.Session, error) {
		return &session.Session{ID: id, UserID: "usr_1", Role: "member", CSRFToken: "csrf"}, nil
	}
	sessions.refreshFn = func(ctx context.Context, sess *session.Session) (*session.Session, bool, error) {
		return sess, false, nil
	}

	_, _, err := svc.AuthenticateSession(context.Background(), "ses_1", "bad", "POST")
	assertKind(t, err, apperrors.KindForbidden)
}

func TestServiceAuthenticateSessionStoreFailure(t *testing.T) {
	sessions := &sessionStub{getFn: func(ctx context.Context, id string) (*session.Session, error) {
		return nil, errors.New("dial tcp 127.0.0.1:6379: connection refused")
	}}
	svc := &Service{Sessions: sessions}

	_, _, err := svc.AuthenticateSession(context.Background(), "ses_1", "", "GET")
	assertKind(t, err, apperrors.KindUnavailable)

	sessions.getFn = nil
	_, _, err = svc.AuthenticateSession(context.Background(), "ses_1", "", "GET")
	assertKind(t, err, apperrors.KindUnauthorized)
}

func TestServiceAuthenticateSessionRefreshFailure(t *testing.T) {
	sessions := &sessionStub{
		getFn: func(ctx context.Context, id string) (*session.Session, error) {
			return &session.Session{ID: id, UserID: "usr_1"}, nil
		},
		refreshFn: func(ctx context.Context, sess *session.Session) (*session.Session, bool, error) {
			return nil, false, errors.New("i/o timeout")
		},
	}
	svc := &Service{Sessions: sessions}

	_, _, err := svc.AuthenticateSession(context.Background(), "ses_1", "", "GET")
	assertKind(t, err, apperrors.KindUnavailable)
}

func assertKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error kind %s", kind)
	}
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected app error, got: %v", err)
	}
	if appErr.Kind != kind {
		t.Fatalf("unexpected kind: %s", appErr.Kind)
	}
}
