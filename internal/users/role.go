package users

import (
	"fmt"
	"strings"

	"github.com/PabloPavan/swiftsnip/internal/identity"
)

// UserRole is stored on the account and copied into sessions and access tokens.
// Admins may read every snippet; nobody may write another owner's rows.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = identity.RoleAdmin
)

// ParseUserRole reads a stored role case-insensitively. Empty means RoleUser.
func ParseUserRole(s string) (UserRole, error) {
	switch r := UserRole(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RoleUser, nil
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("invalid role: %q", s)
	}
}

// Scan lets the repositories read the role column straight into a UserRole.
func (r *UserRole) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan role: unsupported type %T", src)
	}
	parsed, err := ParseUserRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
