package snippets

import (
	"context"
	"time"
)

// Cache stores single snippets by id and lists per scope.
type Cache interface {
	GetByID(ctx context.Context, id string) (*Snippet, bool, error)
	SetByID(ctx context.Context, s *Snippet, ttl time.Duration) error
	DeleteByID(ctx context.Context, id string) error
	GetList(ctx context.Context, key string) ([]*Snippet, bool, error)
	SetList(ctx context.Context, key string, snippets []*Snippet, ttl time.Duration) error
	DeleteList(ctx context.Context, key string) error
}

const (
	publicListKey = "public"
	adminListKey  = "all"
)

// listCacheKey names the cached list of a scope. An owner entry holds only that owner's rows,
// so a mutation invalidates every list that can contain the row by naming the owner.
func listCacheKey(f VisibleFilter) string {
	switch f.Scope {
	case ScopeAll:
		return adminListKey
	case ScopeOwner:
		return "owner:" + f.OwnerID
	default:
		return publicListKey
	}
}
