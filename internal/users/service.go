package users

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/PabloPavan/swiftsnip/internal"
	"github.com/PabloPavan/swiftsnip/internal/apperrors"
	"github.com/PabloPavan/swiftsnip/internal/identity"
	"github.com/PabloPavan/swiftsnip/internal/telemetry"
)

type Store interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Update(ctx context.Context, id string, c Changes) error
	Delete(ctx context.Context, id string) error
}

// OwnedData drops cached copies of the rows an account owns.
type OwnedData interface {
	ForgetOwner(ctx context.Context, ownerID string) error
}

type Service struct {
	Store          Store
	Owned          OwnedData
	PasswordHasher func(plain string) (string, error)
	IDGenerator    func() string
}

type UpdateUserInput struct {
	Email    *string
	Password *string
}

// Create registers a new account (sign up).
func (s *Service) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "users store not configured")
	}

	email := NormalizeEmail(req.Email)
	if !strings.Contains(email, "@") {
		return nil, apperrors.New(apperrors.KindInvalidInput, "invalid email")
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	idGen := s.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return "usr_" + internal.RandomHex(12)
		}
	}

	u := &User{
		ID:           idGen(),
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
	}

	if err := s.Store.Create(ctx, u); err != nil {
		if IsUniqueViolationEmail(err) {
			return nil, apperrors.New(apperrors.KindConflict, "email already exists")
		}
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to create user", err)
	}

	return u, nil
}

func (s *Service) Me(ctx context.Context) (*User, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "users store not configured")
	}
	p := identity.From(ctx)
	if p.Anonymous() {
		return nil, apperrors.New(apperrors.KindUnauthorized, "unauthorized")
	}

	u, err := s.Store.GetByID(ctx, p.UserID)
	if err != nil {
		if IsNotFound(err) {
			return nil, apperrors.New(apperrors.KindNotFound, "user not found")
		}
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to load user", err)
	}
	return u, nil
}

func (s *Service) UpdateSelf(ctx context.Context, input UpdateUserInput) error {
	if s.Store == nil {
		return apperrors.New(apperrors.KindInternal, "users store not configured")
	}
	p := identity.From(ctx)
	if p.Anonymous() {
		return apperrors.New(apperrors.KindUnauthorized, "unauthorized")
	}

	var changes Changes
	if input.Email != nil {
		changes.Email = NormalizeEmail(*input.Email)
		if !strings.Contains(changes.Email, "@") {
			return apperrors.New(apperrors.KindInvalidInput, "invalid email")
		}
	}
	if input.Password != nil {
		hash, err := s.hash(*input.Password)
		if err != nil {
			return err
		}
		changes.PasswordHash = hash
	}
	if changes.Empty() {
		return nil
	}

	if err := s.Store.Update(ctx, p.UserID, changes); err != nil {
		switch {
		case IsNotFound(err):
			return apperrors.New(apperrors.KindNotFound, "user not found")
		case IsUniqueViolationEmail(err):
			return apperrors.New(apperrors.KindConflict, "email already exists")
		}
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to update user", err)
	}
	return nil
}

// DeleteSelf removes the caller's account; their snippets go with it.
func (s *Service) DeleteSelf(ctx context.Context) error {
	if s.Store == nil {
		return apperrors.New(apperrors.KindInternal, "users store not configured")
	}
	p := identity.From(ctx)
	if p.Anonymous() {
		return apperrors.New(apperrors.KindUnauthorized, "unauthorized")
	}

	if s.Owned != nil {
		if err := s.Owned.ForgetOwner(ctx, p.UserID); err != nil {
			return err
		}
	}
	if err := s.Store.Delete(ctx, p.UserID); err != nil {
		if IsNotFound(err) {
			return apperrors.New(apperrors.KindNotFound, "user not found")
		}
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to delete user", err)
	}
	if s.Owned != nil {
		if err := s.Owned.ForgetOwner(ctx, p.UserID); err != nil {
			telemetry.LogWarn(ctx, "failed to evict cached snippets of deleted user",
				telemetry.LogUserID(p.UserID),
				telemetry.LogErr(err),
			)
		}
	}
	return nil
}

func (s *Service) hash(password string) (string, error) {
	if utf8.RuneCountInString(strings.TrimSpace(password)) < MinPasswordLength {
		return "", apperrors.New(apperrors.KindInvalidInput, "password is too short")
	}
	if len(password) > MaxPasswordBytes {
		return "", apperrors.New(apperrors.KindInvalidInput, "password is too long")
	}
	hasher := s.PasswordHasher
	if hasher == nil {
		hasher = internal.DefaultPasswordHasher
	}
	hash, err := hasher(password)
	if err != nil {
		return "", apperrors.New(apperrors.KindInternal, "failed to process password")
	}
	return hash, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
