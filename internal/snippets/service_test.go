package snippets

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PabloPavan/swiftsnip/internal/access"
	"github.com/PabloPavan/swiftsnip/internal/apperrors"
	"github.com/PabloPavan/swiftsnip/internal/identity"
)

type storeStub struct {
	createFn func(ctx context.Context, s *Snippet) error
	getFn    func(ctx context.Context, id string) (*Snippet, error)
	listFn   func(ctx context.Context, f VisibleFilter) ([]*Snippet, error)
	deleteFn func(ctx context.Context, id string, ownerID string) error

	rows map[string]*Snippet
}

func (s *storeStub) Create(ctx context.Context, sn *Snippet) error {
	if s.createFn != nil {
		return s.createFn(ctx, sn)
	}
	return nil
}

func (s *storeStub) GetByID(ctx context.Context, id string) (*Snippet, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	if row, ok := s.rows[id]; ok {
		return row.clone(), nil
	}
	return nil, ErrNotFound
}

func (s *storeStub) ListVisible(ctx context.Context, f VisibleFilter) ([]*Snippet, error) {
	if s.listFn != nil {
		return s.listFn(ctx, f)
	}
	var out []*Snippet
	for _, row := range s.rows {
		switch f.Scope {
		case ScopeOwner:
			if row.OwnerID != f.OwnerID {
				continue
			}
		case ScopePublic:
			if !row.Public {
				continue
			}
		}
		out = append(out, row.clone())
	}
	return out, nil
}

func (s *storeStub) Modify(ctx context.Context, id string, fn func(*Snippet) error) (*Snippet, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := row.clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = row.UpdatedAt.Add(time.Minute)
	s.rows[id] = next
	return next.clone(), nil
}

func (s *storeStub) Delete(ctx context.Context, id string, ownerID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id, ownerID)
	}
	row, ok := s.rows[id]
	if !ok || row.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

type cacheStub struct {
	mu      sync.Mutex
	byID    map[string]*Snippet
	lists   map[string][]*Snippet
	deleted []string
}

func newCacheStub() *cacheStub {
	return &cacheStub{byID: map[string]*Snippet{}, lists: map[string][]*Snippet{}}
}

func (c *cacheStub) GetByID(ctx context.Context, id string) (*Snippet, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byID[id]
	return s, ok, nil
}

func (c *cacheStub) SetByID(ctx context.Context, s *Snippet, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[s.ID] = s
	return nil
}

func (c *cacheStub) DeleteByID(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, id)
	c.deleted = append(c.deleted, "id:"+id)
	return nil
}

func (c *cacheStub) GetList(ctx context.Context, key string) ([]*Snippet, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lists[key]
	return l, ok, nil
}

func (c *cacheStub) SetList(ctx context.Context, key string, snippets []*Snippet, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[key] = snippets
	return nil
}

func (c *cacheStub) DeleteList(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lists, key)
	c.deleted = append(c.deleted, "list:"+key)
	return nil
}

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	policy, err := access.NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	return &Service{Store: store, Policy: policy, IDGenerator: func() string { return "snp_test" }}
}

func userCtx(id string) context.Context {
	return identity.WithUser(context.Background(), id, "user")
}

func TestServiceCreateDefaults(t *testing.T) {
	store := &storeStub{}
	svc := newTestService(t, store)

	var got *Snippet
	store.createFn = func(ctx context.Context, s *Snippet) error {
		got = s
		return nil
	}

	snippet, err := svc.Create(userCtx("usr_1"), CreateSnippetRequest{
		Title: "  hello ",
		Code:  "console.log('hi')",
		Tags:  []string{" a ", "b", "a", ""},
	})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if got == nil {
		t.Fatal("snippet not persisted")
	}
	if snippet.ID != "snp_test" || snippet.OwnerID != "usr_1" {
		t.Fatalf("unexpected identity fields: %+v", snippet)
	}
	if snippet.Title != "hello" {
		t.Fatalf("title not trimmed: %q", snippet.Title)
	}
	if snippet.Language != LanguageJavaScript || !snippet.Public {
		t.Fatalf("unexpected defaults: %+v", snippet)
	}
	if strings.Join(snippet.Tags, ",") != "a,b" {
		t.Fatalf("unexpected tags: %v", snippet.Tags)
	}
}

func TestServiceCreateUnauthorized(t *testing.T) {
	svc := newTestService(t, &storeStub{})

	_, err := svc.Create(context.Background(), CreateSnippetRequest{Title: "a", Code: "b"})
	assertKind(t, err, apperrors.KindUnauthorized)
}

func TestServiceCreateValidation(t *testing.T) {
	svc := newTestService(t, &storeStub{})
	manyTags := make([]string, MaxTags+1)
	for i := range manyTags {
		manyTags[i] = "t" + string(rune('a'+i))
	}

	cases := map[string]CreateSnippetRequest{
		"blank title":   {Title: "  ", Code: "x"},
		"blank code":    {Title: "x", Code: " \n"},
		"bad language":  {Title: "x", Code: "x", Language: "cobol"},
		"too many tags": {Title: "x", Code: "x", Tags: manyTags},
		"long tag":      {Title: "x", Code: "x", Tags: []string{strings.Repeat("x", MaxTagLength+1)}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(userCtx("usr_1"), req)
			assertKind(t, err, apperrors.KindInvalidInput)
		})
	}
}

func TestServiceCreateStoreFailureIsUnavailable(t *testing.T) {
	store := &storeStub{createFn: func(ctx context.Context, s *Snippet) error {
		return errors.New("connection reset")
	}}
	svc := newTestService(t, store)

	_, err := svc.Create(userCtx("usr_1"), CreateSnippetRequest{Title: "a", Code: "b"})
	assertKind(t, err, apperrors.KindUnavailable)
}

func TestServiceGetByIDHidesForeignPrivate(t *testing.T) {
	store := &storeStub{rows: map[string]*Snippet{
		"p": {ID: "p", OwnerID: "usr_1", Public: false, Title: "secret"},
		"o": {ID: "o", OwnerID: "usr_1", Public: true, Title: "open"},
	}}
	svc := newTestService(t, store)

	_, err := svc.GetByID(userCtx("usr_2"), "p")
	assertKind(t, err, apperrors.KindNotFound)

	_, err = svc.GetByID(context.Background(), "missing")
	assertKind(t, err, apperrors.KindNotFound)

	got, err := svc.GetByID(context.Background(), "o")
	if err != nil || got.Title != "open" {
		t.Fatalf("public snippet: %v %+v", err, got)
	}

	got, err = svc.GetByID(userCtx("usr_1"), "p")
	if err != nil || got.Title != "secret" {
		t.Fatalf("owner read: %v %+v", err, got)
	}
}

func TestServiceGetByIDUsesCache(t *testing.T) {
	calls := 0
	store := &storeStub{getFn: func(ctx context.Context, id string) (*Snippet, error) {
		calls++
		return &Snippet{ID: id, Public: true, OwnerID: "usr_1"}, nil
	}}
	svc := newTestService(t, store)
	svc.Cache = newCacheStub()
	svc.CacheTTL = time.Minute

	for i := 0; i < 3; i++ {
		if _, err := svc.GetByID(context.Background(), "s1"); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one store call, got %d", calls)
	}
}

func TestServiceListAppliesQuery(t *testing.T) {
	var scopes []VisibleFilter
	rows := &storeStub{rows: map[string]*Snippet{
		"1": {ID: "1", OwnerID: "usr_1", Title: "Go worker", Language: LanguageGo, Tags: []string{"concurrency"}},
		"2": {ID: "2", OwnerID: "usr_2", Title: "Go private", Language: LanguageGo},
		"3": {ID: "3", OwnerID: "usr_2", Title: "Rust ok", Language: LanguageRust, Public: true},
	}}
	store := &storeStub{listFn: func(ctx context.Context, f VisibleFilter) ([]*Snippet, error) {
		scopes = append(scopes, f)
		return rows.ListVisible(ctx, f)
	}}
	svc := newTestService(t, store)

	list, err := svc.List(userCtx("usr_1"), ListInput{Languages: []string{"golang", "Rust"}, Sort: "title"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(scopes) != 2 || scopes[0].Scope != ScopePublic || scopes[1] != (VisibleFilter{Scope: ScopeOwner, OwnerID: "usr_1"}) {
		t.Fatalf("unexpected scopes: %+v", scopes)
	}
	if len(list) != 2 || list[0].ID != "1" || list[1].ID != "3" {
		t.Fatalf("unexpected list: %v", ids(list))
	}
}

func TestServiceListOwnPublicRowAppearsOnce(t *testing.T) {
	store := &storeStub{rows: map[string]*Snippet{
		"1": {ID: "1", OwnerID: "usr_1", Title: "mine", Language: LanguageGo, Public: true},
	}}
	svc := newTestService(t, store)

	list, err := svc.List(userCtx("usr_1"), ListInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one row, got %v", ids(list))
	}
}

func TestServiceListLimitAppliesAfterQuery(t *testing.T) {
	base := day("2024-03-01")
	store := &storeStub{rows: map[string]*Snippet{
		"new": {ID: "new", Public: true, Title: "newest", Language: LanguageGo, UpdatedAt: base.Add(3 * time.Hour)},
		"api": {ID: "api", Public: true, Title: "api handler", Language: LanguageGo, UpdatedAt: base.Add(2 * time.Hour)},
		"old": {ID: "old", Public: true, Title: "oldest", Language: LanguageGo, UpdatedAt: base},
	}}
	svc := newTestService(t, store)

	list, err := svc.List(context.Background(), ListInput{Search: "api", Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "api" {
		t.Fatalf("search must see rows past the limit: %v", ids(list))
	}

	list, err = svc.List(context.Background(), ListInput{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.Join(ids(list), ",") != "new,api" {
		t.Fatalf("limit must cut the sorted result: %v", ids(list))
	}
}

func TestServiceListCacheDropsRowMadePrivate(t *testing.T) {
	store := &storeStub{rows: map[string]*Snippet{
		"s1": {ID: "s1", OwnerID: "usr_1", Title: "token", Code: "key=42", Language: LanguageGo, Public: true},
	}}
	svc := newTestService(t, store)
	svc.Cache = newCacheStub()
	svc.CacheTTL = time.Minute
	svc.ListCacheTTL = time.Minute

	reader := userCtx("usr_2")
	list, err := svc.List(reader, ListInput{})
	if err != nil || len(list) != 1 {
		t.Fatalf("warm list: %v %v", err, ids(list))
	}

	private := false
	if _, err := svc.Update(userCtx("usr_1"), "s1", Patch{Public: &private}); err != nil {
		t.Fatalf("update: %v", err)
	}

	list, err = svc.List(reader, ListInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("private row still listed for another user: %v", ids(list))
	}

	list, err = svc.List(userCtx("usr_1"), ListInput{})
	if err != nil || len(list) != 1 || list[0].Public {
		t.Fatalf("owner must still see the private row: %v %v", err, ids(list))
	}
}

func TestServiceListCacheDropsDeletedRow(t *testing.T) {
	store := &storeStub{rows: map[string]*Snippet{
		"s1": {ID: "s1", OwnerID: "usr_1", Title: "t", Code: "c", Language: LanguageGo, Public: true},
	}}
	svc := newTestService(t, store)
	svc.Cache = newCacheStub()
	svc.ListCacheTTL = time.Minute

	if list, _ := svc.List(userCtx("usr_2"), ListInput{}); len(list) != 1 {
		t.Fatalf("warm list: %v", ids(list))
	}
	if err := svc.Delete(userCtx("usr_1"), "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if list, _ := svc.List(userCtx("usr_2"), ListInput{}); len(list) != 0 {
		t.Fatalf("deleted row still listed: %v", ids(list))
	}
}

func TestServiceForgetOwner(t *testing.T) {
	store := &storeStub{rows: map[string]*Snippet{
		"s1": {ID: "s1", OwnerID: "usr_1", Title: "t", Code: "c", Language: LanguageGo, Public: true},
		"s2": {ID: "s2", OwnerID: "usr_2", Title: "t", Code: "c", Language: LanguageGo, Public: true},
	}}
	svc := newTestService(t, store)
	cache := newCacheStub()
	svc.Cache = cache
	svc.CacheTTL = time.Minute
	svc.ListCacheTTL = time.Minute

	if _, err := svc.GetByID(context.Background(), "s1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := svc.List(userCtx("usr_2"), ListInput{}); err != nil {
		t.Fatalf("list: %v", err)
	}

	if err := svc.ForgetOwner(context.Background(), "usr_1"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, ok, _ := cache.GetByID(context.Background(), "s1"); ok {
		t.Fatal("row of forgotten owner still cached")
	}
	if _, ok, _ := cache.GetList(context.Background(), publicListKey); ok {
		t.Fatal("public list still cached")
	}
	if _, ok, _ := cache.GetList(context.Background(), "owner:usr_2"); !ok {
		t.Fatal("unrelated owner list must survive")
	}
}

func TestServiceListRejectsUnknownLanguage(t *testing.T) {
	svc := newTestService(t, &storeStub{})

	_, err := svc.List(context.Background(), ListInput{Languages: []string{"klingon"}})
	assertKind(t, err, apperrors.KindInvalidInput)
}

func TestServiceListAdminSeesAllOwners(t *testing.T) {
	var seen VisibleFilter
	store := &storeStub{listFn: func(ctx context.Context, f VisibleFilter) ([]*Snippet, error) {
		seen = f
		return []*Snippet{{ID: "x", OwnerID: "usr_2"}}, nil
	}}
	svc := newTestService(t, store)

	ctx := identity.WithUser(context.Background(), "usr_9", identity.RoleAdmin)
	list, err := svc.List(ctx, ListInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if seen.Scope != ScopeAll || len(list) != 1 {
		t.Fatalf("admin list: %+v %v", seen, ids(list))
	}
}

func TestServiceUpdatePatchesOwnRecord(t *testing.T) {
	created := day("2024-01-01")
	store := &storeStub{rows: map[string]*Snippet{
		"s1": {ID: "s1", OwnerID: "usr_1", Title: "old", Code: "x", Language: LanguageGo, Tags: []string{}, CreatedAt: created, UpdatedAt: created},
	}}
	svc := newTestService(t, store)
	cache := newCacheStub()
	svc.Cache = cache

	title := "new"
	lang := "Python"
	got, err := svc.Update(userCtx("usr_1"), "s1", Patch{Title: &title, Language: &lang})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "new" || got.Language != LanguagePython || got.Code != "x" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Fatal("updated_at must move forward")
	}
	if len(cache.deleted) == 0 || cache.deleted[0] != "id:s1" {
		t.Fatalf("cache not invalidated: %v", cache.deleted)
	}
}

func TestServiceUpdateForeignRecordIsNotFound(t *testing.T) {
	store := &storeStub{rows: map[string]*Snippet{
		"s1": {ID: "s1", OwnerID: "usr_1", Title: "t", Code: "c", Language: LanguageGo, Public: true},
	}}
	svc := newTestService(t, store)

	fav := true
	_, err := svc.SetFavorite(userCtx("usr_2"), "s1", fav)
	assertKind(t, err, apperrors.KindNotFound)

	if store.rows["s1"].Favorite {
		t.Fatal("foreign update must not be stored")
	}
}

func TestServiceUpdateValidation(t *testing.T) {
	store := &storeStub{rows: map[string]*Snippet{
		"s1": {ID: "s1", OwnerID: "usr_1", Title: "t", Code: "c", Language: LanguageGo},
	}}
	svc := newTestService(t, store)

	_, err := svc.Update(userCtx("usr_1"), "s1", Patch{})
	assertKind(t, err, apperrors.KindInvalidInput)

	blank := "   "
	_, err = svc.Update(userCtx("usr_1"), "s1", Patch{Code: &blank})
	assertKind(t, err, apperrors.KindInvalidInput)

	if store.rows["s1"].Code != "c" {
		t.Fatal("rejected patch must not be stored")
	}
}

func TestServiceSetFavorite(t *testing.T) {
	store := &storeStub{rows: map[string]*Snippet{
		"s1": {ID: "s1", OwnerID: "usr_1", Title: "t", Code: "c", Language: LanguageGo},
	}}
	svc := newTestService(t, store)

	got, err := svc.SetFavorite(userCtx("usr_1"), "s1", true)
	if err != nil {
		t.Fatalf("favorite: %v", err)
	}
	if !got.Favorite {
		t.Fatal("expected favorite")
	}
}

func TestServiceDelete(t *testing.T) {
	var owner string
	store := &storeStub{deleteFn: func(ctx context.Context, id, ownerID string) error {
		owner = ownerID
		if id == "missing" {
			return ErrNotFound
		}
		return nil
	}}
	svc := newTestService(t, store)

	if err := svc.Delete(userCtx("usr_1"), "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if owner != "usr_1" {
		t.Fatalf("delete not scoped to owner: %q", owner)
	}

	assertKind(t, svc.Delete(userCtx("usr_1"), "missing"), apperrors.KindNotFound)
	assertKind(t, svc.Delete(context.Background(), "s1"), apperrors.KindUnauthorized)
}

func TestServiceFacets(t *testing.T) {
	store := &storeStub{listFn: func(ctx context.Context, f VisibleFilter) ([]*Snippet, error) {
		return []*Snippet{
			{ID: "1", Public: true, Language: LanguageSQL, Tags: []string{"db"}},
			{ID: "2", Public: true, Language: LanguageGo, Tags: []string{"api", "db"}},
		}, nil
	}}
	svc := newTestService(t, store)

	f, err := svc.Facets(context.Background())
	if err != nil {
		t.Fatalf("facets: %v", err)
	}
	if strings.Join(f.Tags, ",") != "api,db" || len(f.Languages) != 2 {
		t.Fatalf("unexpected facets: %+v", f)
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
