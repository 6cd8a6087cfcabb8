// Package theme persists the light/dark preference and notifies listeners of changes.
package theme

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloPavan/swiftsnip/internal/apperrors"
)

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case Light, Dark:
		return t, nil
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

func (t Theme) Toggled() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Backend persists one theme per owner and fans out changes.
type Backend interface {
	Load(ctx context.Context, owner string) (Theme, bool, error)
	Save(ctx context.Context, owner string, t Theme) error
	Subscribe(ctx context.Context, owner string) (<-chan Theme, error)
}

type Store struct {
	backend  Backend
	fallback Theme
}

// NewStore returns a store answering fallback for owners with nothing saved.
func NewStore(backend Backend, fallback Theme) *Store {
	if fallback != Dark {
		fallback = Light
	}
	return &Store{backend: backend, fallback: fallback}
}

func (s *Store) Default() Theme {
	return s.fallback
}

func (s *Store) Get(ctx context.Context, owner string) (Theme, error) {
	if owner == "" {
		return s.fallback, nil
	}
	t, ok, err := s.backend.Load(ctx, owner)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindUnavailable, "failed to load theme", err)
	}
	if !ok {
		return s.fallback, nil
	}
	return t, nil
}

func (s *Store) Set(ctx context.Context, owner string, t Theme) error {
	if owner == "" {
		return apperrors.New(apperrors.KindUnauthorized, "unauthorized")
	}
	if _, err := ParseTheme(string(t)); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, err.Error(), err)
	}
	if err := s.backend.Save(ctx, owner, t); err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to save theme", err)
	}
	return nil
}

func (s *Store) Toggle(ctx context.Context, owner string) (Theme, error) {
	current, err := s.Get(ctx, owner)
	if err != nil {
		return "", err
	}
	next := current.Toggled()
	if err := s.Set(ctx, owner, next); err != nil {
		return "", err
	}
	return next, nil
}

// Subscribe streams the owner's theme changes until ctx is done.
func (s *Store) Subscribe(ctx context.Context, owner string) (<-chan Theme, error) {
	if owner == "" {
		return nil, apperrors.New(apperrors.KindUnauthorized, "unauthorized")
	}
	ch, err := s.backend.Subscribe(ctx, owner)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to subscribe", err)
	}
	return ch, nil
}
