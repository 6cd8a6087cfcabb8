package identity

import (
	"context"
	"testing"
)

func TestFromAnonymous(t *testing.T) {
	p := From(context.Background())
	if !p.Anonymous() {
		t.Fatalf("expected anonymous principal, got %+v", p)
	}
	if IsAdmin(context.Background()) {
		t.Fatal("anonymous caller must not be admin")
	}
}

func TestWithUserRoundTrip(t *testing.T) {
	ctx := WithUser(context.Background(), " usr_1 ", RoleAdmin)
	ctx = WithMethod(ctx, MethodBearer)

	p := From(ctx)
	if p.UserID != "usr_1" || p.Role != RoleAdmin || p.Anonymous() {
		t.Fatalf("unexpected principal: %+v", p)
	}
	if !IsAdmin(ctx) {
		t.Fatal("expected admin")
	}
	if m, ok := AuthMethod(ctx); !ok || m != MethodBearer {
		t.Fatalf("unexpected method: %q", m)
	}
}
