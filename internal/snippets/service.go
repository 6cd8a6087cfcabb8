package snippets

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PabloPavan/swiftsnip/internal"
	"github.com/PabloPavan/swiftsnip/internal/access"
	"github.com/PabloPavan/swiftsnip/internal/apperrors"
	"github.com/PabloPavan/swiftsnip/internal/identity"
	"github.com/PabloPavan/swiftsnip/internal/telemetry"
	"golang.org/x/sync/singleflight"
)

const (
	MaxTags       = 20
	MaxTagLength  = 32
	MaxTitleRunes = 200
)

type Store interface {
	Create(ctx context.Context, s *Snippet) error
	GetByID(ctx context.Context, id string) (*Snippet, error)
	ListVisible(ctx context.Context, f VisibleFilter) ([]*Snippet, error)
	Modify(ctx context.Context, id string, fn func(current *Snippet) error) (*Snippet, error)
	Delete(ctx context.Context, id string, ownerID string) error
}

type Authorizer interface {
	CanRead(sub access.Subject, res access.Resource) bool
	CanWrite(sub access.Subject, res access.Resource) bool
}

type Service struct {
	Store        Store
	Policy       Authorizer
	Cache        Cache
	CacheTTL     time.Duration
	ListCacheTTL time.Duration
	IDGenerator  func() string
	Now          func() time.Time

	loads singleflight.Group
}

type ListInput struct {
	Search    string
	Tags      []string
	Languages []string
	Category  string
	Sort      string
	Limit     int
}

func (s *Service) List(ctx context.Context, input ListInput) ([]*Snippet, error) {
	params, err := s.queryParams(input)
	if err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSpan(ctx, "snippets.list",
		telemetry.ListAttrs(listScope(ctx), params.SearchText != "", len(params.Tags), len(params.Languages))...)
	defer span.End()

	visible, err := s.visible(ctx)
	if err != nil {
		return nil, err
	}
	out := Query(visible, params)
	if input.Limit > 0 && len(out) > input.Limit {
		out = out[:input.Limit]
	}
	return out, nil
}

func (s *Service) Facets(ctx context.Context) (Facets, error) {
	visible, err := s.visible(ctx)
	if err != nil {
		return Facets{}, err
	}
	return CollectFacets(visible), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Snippet, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "id is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "snippets.get", telemetry.SnippetAttrs(id, "")...)
	defer span.End()

	snippet, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(telemetry.SnippetAttrs(id, string(snippet.Language))...)
	if !s.Policy.CanRead(subject(ctx), resource(snippet)) {
		return nil, notFound()
	}
	return snippet, nil
}

func (s *Service) Create(ctx context.Context, req CreateSnippetRequest) (*Snippet, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	p := identity.From(ctx)
	if p.Anonymous() {
		return nil, apperrors.New(apperrors.KindUnauthorized, "unauthorized")
	}

	snippet := New()
	snippet.Title = req.Title
	snippet.Description = req.Description
	snippet.Code = req.Code
	snippet.Favorite = req.Favorite
	snippet.Tags = req.Tags
	if req.Public != nil {
		snippet.Public = *req.Public
	}
	if strings.TrimSpace(req.Language) != "" {
		lang, err := ParseLanguage(req.Language)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindInvalidInput, err.Error(), err)
		}
		snippet.Language = lang
	}
	if err := normalize(snippet); err != nil {
		return nil, err
	}

	idGen := s.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return "snp_" + internal.RandomHex(12)
		}
	}
	snippet.ID = idGen()
	snippet.OwnerID = p.UserID

	if err := s.Store.Create(ctx, snippet); err != nil {
		switch {
		case IsUniqueViolationID(err):
			return nil, apperrors.New(apperrors.KindConflict, "snippet already exists")
		case IsUnknownOwner(err):
			return nil, apperrors.New(apperrors.KindUnauthorized, "unknown user")
		}
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to create snippet", err)
	}

	s.invalidate(ctx, snippet.ID, p.UserID)
	return snippet, nil
}

// Update applies patch to a snippet owned by the caller and returns the stored record.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Snippet, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	p := identity.From(ctx)
	if p.Anonymous() {
		return nil, apperrors.New(apperrors.KindUnauthorized, "unauthorized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "id is required")
	}
	if patch.Empty() {
		return nil, apperrors.New(apperrors.KindInvalidInput, "nothing to update")
	}

	sub := subject(ctx)
	updated, err := s.Store.Modify(ctx, id, func(current *Snippet) error {
		if !s.Policy.CanWrite(sub, resource(current)) {
			return ErrNotFound
		}
		if err := apply(current, patch); err != nil {
			return err
		}
		return normalize(current)
	})
	if err != nil {
		var appErr *apperrors.Error
		switch {
		case errors.As(err, &appErr):
			return nil, appErr
		case IsNotFound(err):
			return nil, notFound()
		}
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to update snippet", err)
	}

	s.invalidate(ctx, id, p.UserID)
	return updated, nil
}

func (s *Service) SetFavorite(ctx context.Context, id string, favorite bool) (*Snippet, error) {
	return s.Update(ctx, id, Patch{Favorite: &favorite})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	p := identity.From(ctx)
	if p.Anonymous() {
		return apperrors.New(apperrors.KindUnauthorized, "unauthorized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return apperrors.New(apperrors.KindInvalidInput, "id is required")
	}

	if err := s.Store.Delete(ctx, id, p.UserID); err != nil {
		if IsNotFound(err) {
			return notFound()
		}
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to delete snippet", err)
	}

	s.invalidate(ctx, id, p.UserID)
	return nil
}

func (s *Service) ready() error {
	if s.Store == nil || s.Policy == nil {
		return apperrors.New(apperrors.KindInternal, "snippets service not configured")
	}
	return nil
}

func (s *Service) queryParams(input ListInput) (QueryParams, error) {
	params := QueryParams{
		SearchText: strings.TrimSpace(input.Search),
		Category:   ParseCategory(input.Category),
		Sort:       ParseSortKey(input.Sort),
	}
	if s.Now != nil {
		params.Now = s.Now()
	}
	for _, tag := range input.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			params.Tags = append(params.Tags, tag)
		}
	}
	for _, raw := range input.Languages {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		lang, err := ParseLanguage(raw)
		if err != nil {
			return QueryParams{}, apperrors.Wrap(apperrors.KindInvalidInput, err.Error(), err)
		}
		params.Languages = append(params.Languages, lang)
	}
	return params, nil
}

// visible loads every record the caller may read: their own plus public ones.
// Own and public rows are fetched and cached as separate scopes and merged here.
func (s *Service) visible(ctx context.Context) ([]*Snippet, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if identity.IsAdmin(ctx) {
		all, err := s.scope(ctx, VisibleFilter{Scope: ScopeAll})
		if err != nil {
			return nil, err
		}
		return s.readable(ctx, all), nil
	}

	public, err := s.scope(ctx, VisibleFilter{Scope: ScopePublic})
	if err != nil {
		return nil, err
	}
	p := identity.From(ctx)
	if p.Anonymous() {
		return s.readable(ctx, public), nil
	}

	own, err := s.scope(ctx, VisibleFilter{Scope: ScopeOwner, OwnerID: p.UserID})
	if err != nil {
		return nil, err
	}
	merged := make([]*Snippet, 0, len(own)+len(public))
	merged = append(merged, own...)
	for _, sn := range public {
		if sn != nil && sn.OwnerID != p.UserID {
			merged = append(merged, sn)
		}
	}
	return s.readable(ctx, merged), nil
}

func listScope(ctx context.Context) string {
	switch {
	case identity.IsAdmin(ctx):
		return "all"
	case identity.From(ctx).Anonymous():
		return "public"
	default:
		return "owner+public"
	}
}

func (s *Service) scope(ctx context.Context, f VisibleFilter) ([]*Snippet, error) {
	key := listCacheKey(f)
	if s.Cache != nil {
		if cached, ok, err := s.Cache.GetList(ctx, key); err == nil && ok {
			return cached, nil
		}
	}

	v, err, _ := s.loads.Do("list:"+key, func() (any, error) {
		return s.Store.ListVisible(ctx, f)
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to list snippets", err)
	}
	list := v.([]*Snippet)

	if s.Cache != nil && s.ListCacheTTL > 0 {
		_ = s.Cache.SetList(ctx, key, list, s.ListCacheTTL)
	}
	return list, nil
}

func (s *Service) readable(ctx context.Context, list []*Snippet) []*Snippet {
	sub := subject(ctx)
	out := make([]*Snippet, 0, len(list))
	for _, sn := range list {
		if sn != nil && s.Policy.CanRead(sub, resource(sn)) {
			out = append(out, sn)
		}
	}
	return out
}

func (s *Service) load(ctx context.Context, id string) (*Snippet, error) {
	if s.Cache != nil {
		if cached, ok, err := s.Cache.GetByID(ctx, id); err == nil && ok {
			return cached, nil
		}
	}

	v, err, _ := s.loads.Do("id:"+id, func() (any, error) {
		return s.Store.GetByID(ctx, id)
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, notFound()
		}
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to load snippet", err)
	}
	snippet := v.(*Snippet)

	if s.Cache != nil && s.CacheTTL > 0 {
		_ = s.Cache.SetByID(ctx, snippet, s.CacheTTL)
	}
	return snippet.clone(), nil
}

// invalidate drops the cached row and every list that can hold it.
func (s *Service) invalidate(ctx context.Context, id, ownerID string) {
	if s.Cache == nil {
		return
	}
	_ = s.Cache.DeleteByID(ctx, id)
	s.invalidateLists(ctx, ownerID)
}

func (s *Service) invalidateLists(ctx context.Context, ownerID string) {
	_ = s.Cache.DeleteList(ctx, listCacheKey(VisibleFilter{Scope: ScopeOwner, OwnerID: ownerID}))
	_ = s.Cache.DeleteList(ctx, listCacheKey(VisibleFilter{Scope: ScopePublic}))
	_ = s.Cache.DeleteList(ctx, listCacheKey(VisibleFilter{Scope: ScopeAll}))
}

// ForgetOwner evicts every cached entry holding rows of ownerID. Account deletion calls it
// before the rows cascade away, so their ids can still be listed, and again afterwards.
func (s *Service) ForgetOwner(ctx context.Context, ownerID string) error {
	if s.Cache == nil || s.Store == nil || ownerID == "" {
		return nil
	}
	rows, err := s.Store.ListVisible(ctx, VisibleFilter{Scope: ScopeOwner, OwnerID: ownerID})
	if err != nil {
		s.invalidateLists(ctx, ownerID)
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to list owner snippets", err)
	}
	for _, sn := range rows {
		_ = s.Cache.DeleteByID(ctx, sn.ID)
	}
	s.invalidateLists(ctx, ownerID)
	return nil
}

func apply(s *Snippet, p Patch) error {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Code != nil {
		s.Code = *p.Code
	}
	if p.Language != nil {
		lang, err := ParseLanguage(*p.Language)
		if err != nil {
			return apperrors.Wrap(apperrors.KindInvalidInput, err.Error(), err)
		}
		s.Language = lang
	}
	if p.Tags != nil {
		s.Tags = *p.Tags
	}
	if p.Favorite != nil {
		s.Favorite = *p.Favorite
	}
	if p.Public != nil {
		s.Public = *p.Public
	}
	return nil
}

// normalize enforces the save-time rules on s in place.
func normalize(s *Snippet) error {
	s.Title = strings.TrimSpace(s.Title)
	s.Description = strings.TrimSpace(s.Description)
	if s.Title == "" || strings.TrimSpace(s.Code) == "" {
		return apperrors.New(apperrors.KindInvalidInput, "title and code are required")
	}
	if utf8.RuneCountInString(s.Title) > MaxTitleRunes {
		return apperrors.New(apperrors.KindInvalidInput, "title is too long")
	}
	if !s.Language.Valid() {
		return apperrors.New(apperrors.KindInvalidInput, "unsupported language")
	}
	tags, err := normalizeTags(s.Tags)
	if err != nil {
		return err
	}
	s.Tags = tags
	return nil
}

func normalizeTags(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, tag := range in {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return nil, apperrors.New(apperrors.KindInvalidInput, "tag is too long: "+tag)
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > MaxTags {
		return nil, apperrors.New(apperrors.KindInvalidInput, "too many tags")
	}
	return out, nil
}

func notFound() *apperrors.Error {
	return apperrors.New(apperrors.KindNotFound, "not found")
}

func subject(ctx context.Context) access.Subject {
	p := identity.From(ctx)
	return access.Subject{ID: p.UserID, Role: p.Role}
}

func resource(s *Snippet) access.Resource {
	return access.Resource{OwnerID: s.OwnerID, Public: s.Public}
}
