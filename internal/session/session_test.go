package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestManagerCreateAndGet(t *testing.T) {
	mgr := &Manager{Store: NewMemoryStore(), TTL: time.Hour}

	sess, err := mgr.Create(context.Background(), "usr_1", "user")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.CSRFToken == "" || len(sess.ID) < 10 {
		t.Fatalf("unexpected session: %+v", sess)
	}

	got, err := mgr.Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "usr_1" || got.CSRFToken != sess.CSRFToken {
		t.Fatalf("unexpected loaded session: %+v", got)
	}

	n, err := mgr.Active(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("active: %d %v", n, err)
	}
}

func TestManagerMaxAgeExpires(t *testing.T) {
	store := NewMemoryStore()
	mgr := &Manager{Store: store, TTL: time.Hour, MaxAge: time.Minute}

	old := Session{ID: "ses_old", UserID: "usr_1", CreatedAt: time.Now().Add(-2 * time.Minute), ExpiresAt: time.Now().Add(time.Hour)}
	_ = store.Set(context.Background(), old.ID, old, time.Hour)

	if _, err := mgr.Get(context.Background(), old.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Get(context.Background(), old.ID); !errors.Is(err, ErrNotFound) {
		t.Fatal("expired session should be deleted")
	}
}

func TestManagerRefreshExtendsNearExpiry(t *testing.T) {
	store := NewMemoryStore()
	mgr := &Manager{Store: store, TTL: time.Hour, RefreshBefore: 10 * time.Minute}

	sess := &Session{ID: "ses_1", UserID: "usr_1", CreatedAt: time.Now(), ExpiresAt: time.Now().Add(5 * time.Minute)}
	got, refreshed, err := mgr.Refresh(context.Background(), sess)
	if err != nil || !refreshed {
		t.Fatalf("refresh: %v %v", refreshed, err)
	}
	if time.Until(got.ExpiresAt) < 50*time.Minute {
		t.Fatalf("expiry not extended: %v", got.ExpiresAt)
	}

	_, refreshed, err = mgr.Refresh(context.Background(), got)
	if err != nil || refreshed {
		t.Fatalf("fresh session must not refresh: %v %v", refreshed, err)
	}
}

func TestCookieConfigReadWrite(t *testing.T) {
	cfg := CookieConfig{SameSite: ParseSameSite("strict")}

	rec := httptest.NewRecorder()
	cfg.Write(rec, "ses_1", time.Now().Add(time.Hour))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != DefaultCookieName || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookie: %+v", cookies)
	}
	if cookies[0].SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected same site: %v", cookies[0].SameSite)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	if cfg.Read(req) != "ses_1" {
		t.Fatal("cookie not read back")
	}
	if cfg.Read(httptest.NewRequest(http.MethodGet, "/", nil)) != "" {
		t.Fatal("missing cookie should read empty")
	}
}
