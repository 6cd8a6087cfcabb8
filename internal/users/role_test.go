package users

import (
	"testing"

	"github.com/PabloPavan/swiftsnip/internal/identity"
)

func TestParseUserRole(t *testing.T) {
	cases := map[string]UserRole{
		"":        RoleUser,
		"user":    RoleUser,
		" Admin ": RoleAdmin,
	}
	for in, want := range cases {
		got, err := ParseUserRole(in)
		if err != nil || got != want {
			t.Fatalf("ParseUserRole(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseUserRole("owner"); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if string(RoleAdmin) != identity.RoleAdmin {
		t.Fatal("admin role must match the identity role checked by the access policy")
	}
}

func TestUserRoleScan(t *testing.T) {
	var r UserRole
	if err := r.Scan([]byte("ADMIN")); err != nil || r != RoleAdmin {
		t.Fatalf("scan bytes: %q %v", r, err)
	}
	if err := r.Scan(nil); err != nil || r != RoleUser {
		t.Fatalf("scan nil: %q %v", r, err)
	}
	if err := r.Scan(42); err == nil {
		t.Fatal("expected error for non-text column")
	}
}
