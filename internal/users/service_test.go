package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PabloPavan/swiftsnip/internal/apperrors"
	"github.com/PabloPavan/swiftsnip/internal/identity"
)

type storeStub struct {
	createFn func(ctx context.Context, u *User) error
	getFn    func(ctx context.Context, id string) (*User, error)
	updateFn func(ctx context.Context, id string, c Changes) error
	deleteFn func(ctx context.Context, id string) error
}

func (s *storeStub) Create(ctx context.Context, u *User) error {
	if s.createFn != nil {
		return s.createFn(ctx, u)
	}
	return nil
}

func (s *storeStub) GetByID(ctx context.Context, id string) (*User, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, ErrNotFound
}

func (s *storeStub) GetByEmail(ctx context.Context, email string) (User, error) {
	return User{}, errors.New("not used")
}

func (s *storeStub) Update(ctx context.Context, id string, c Changes) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, id, c)
	}
	return nil
}

func (s *storeStub) Delete(ctx context.Context, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func fakeHasher(plain string) (string, error) {
	return "hash:" + plain, nil
}

func TestServiceCreateUser(t *testing.T) {
	store := &storeStub{}
	svc := &Service{
		Store:          store,
		PasswordHasher: fakeHasher,
		IDGenerator: func() string {
			return "usr_test"
		},
	}

	var got *User
	store.createFn = func(ctx context.Context, u *User) error {
		got = u
		return nil
	}

	u, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    " TEST@LOCAL ",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("create user error: %v", err)
	}
	if u.ID != "usr_test" || u.Role != RoleUser {
		t.Fatalf("unexpected user: %+v", u)
	}
	if got == nil || got.Email != "test@local" {
		t.Fatalf("unexpected stored email: %+v", got)
	}
	if got.PasswordHash != "hash:correct horse" {
		t.Fatalf("unexpected password hash: %s", got.PasswordHash)
	}
}

func TestServiceCreateRejectsWeakInput(t *testing.T) {
	svc := &Service{Store: &storeStub{}, PasswordHasher: fakeHasher}

	_, err := svc.Create(context.Background(), CreateUserRequest{Email: "a@b", Password: "short"})
	assertKind(t, err, apperrors.KindInvalidInput)

	_, err = svc.Create(context.Background(), CreateUserRequest{Email: "nobody", Password: "long enough"})
	assertKind(t, err, apperrors.KindInvalidInput)

	_, err = svc.Create(context.Background(), CreateUserRequest{Email: "a@b.io", Password: strings.Repeat("ü", 37)})
	assertKind(t, err, apperrors.KindInvalidInput)
}

func TestServiceMe(t *testing.T) {
	store := &storeStub{getFn: func(ctx context.Context, id string) (*User, error) {
		return &User{ID: id, Email: "me@local"}, nil
	}}
	svc := &Service{Store: store}

	_, err := svc.Me(context.Background())
	assertKind(t, err, apperrors.KindUnauthorized)

	u, err := svc.Me(identity.WithUser(context.Background(), "usr_1", "user"))
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if u.ID != "usr_1" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestServiceUpdateSelf(t *testing.T) {
	store := &storeStub{}
	svc := &Service{Store: store, PasswordHasher: fakeHasher}

	var gotID string
	var got Changes
	store.updateFn = func(ctx context.Context, id string, c Changes) error {
		gotID, got = id, c
		return nil
	}

	ctx := identity.WithUser(context.Background(), "usr_1", "user")
	email := "Updated@Local"
	password := "new password"
	if err := svc.UpdateSelf(ctx, UpdateUserInput{Email: &email, Password: &password}); err != nil {
		t.Fatalf("update self error: %v", err)
	}
	if gotID != "usr_1" {
		t.Fatalf("unexpected target id: %s", gotID)
	}
	if got.Email != "updated@local" || got.PasswordHash != "hash:new password" {
		t.Fatalf("unexpected changes: %+v", got)
	}
}

func TestServiceUpdateSelfNoop(t *testing.T) {
	store := &storeStub{updateFn: func(ctx context.Context, id string, c Changes) error {
		t.Fatal("store must not be called")
		return nil
	}}
	svc := &Service{Store: store}

	ctx := identity.WithUser(context.Background(), "usr_1", "user")
	if err := svc.UpdateSelf(ctx, UpdateUserInput{}); err != nil {
		t.Fatalf("noop update: %v", err)
	}
}

func TestServiceDeleteSelf(t *testing.T) {
	var deleted string
	store := &storeStub{deleteFn: func(ctx context.Context, id string) error {
		deleted = id
		return nil
	}}
	svc := &Service{Store: store}

	assertKind(t, svc.DeleteSelf(context.Background()), apperrors.KindUnauthorized)

	if err := svc.DeleteSelf(identity.WithUser(context.Background(), "usr_1", "user")); err != nil {
		t.Fatalf("delete self: %v", err)
	}
	if deleted != "usr_1" {
		t.Fatalf("unexpected deleted id: %s", deleted)
	}
}

type ownedStub struct {
	calls []string
	err   error
}

func (o *ownedStub) ForgetOwner(ctx context.Context, ownerID string) error {
	o.calls = append(o.calls, ownerID)
	return o.err
}

func TestServiceDeleteSelfForgetsOwnedData(t *testing.T) {
	var order []string
	owned := &ownedStub{}
	store := &storeStub{deleteFn: func(ctx context.Context, id string) error {
		order = append(order, "delete:"+strings.Join(owned.calls, ","))
		return nil
	}}
	svc := &Service{Store: store, Owned: owned}

	if err := svc.DeleteSelf(identity.WithUser(context.Background(), "usr_1", "user")); err != nil {
		t.Fatalf("delete self: %v", err)
	}
	if len(order) != 1 || order[0] != "delete:usr_1" {
		t.Fatalf("cached data must be evicted before the delete: %v", order)
	}
	if len(owned.calls) != 2 {
		t.Fatalf("expected eviction before and after the delete, got %v", owned.calls)
	}
}

func TestServiceDeleteSelfKeepsAccountWhenEvictionFails(t *testing.T) {
	deleted := false
	store := &storeStub{deleteFn: func(ctx context.Context, id string) error {
		deleted = true
		return nil
	}}
	owned := &ownedStub{err: apperrors.New(apperrors.KindUnavailable, "cache down")}
	svc := &Service{Store: store, Owned: owned}

	err := svc.DeleteSelf(identity.WithUser(context.Background(), "usr_1", "user"))
	assertKind(t, err, apperrors.KindUnavailable)
	if deleted {
		t.Fatal("account must not be deleted while its cached rows cannot be evicted")
	}
}

func TestBuildUpdateQuery(t *testing.T) {
	query, args, err := buildUpdateQuery("usr_1", Changes{Email: "a@b"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.HasPrefix(query, `UPDATE "users" SET "email"=$1`) || !strings.Contains(query, `"id" = $2`) {
		t.Fatalf("unexpected query: %s", query)
	}
	if strings.Contains(query, "password_hash") {
		t.Fatalf("unset field in query: %s", query)
	}
	if len(args) != 2 || args[0] != "a@b" || args[1] != "usr_1" {
		t.Fatalf("unexpected args: %v", args)
	}
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
