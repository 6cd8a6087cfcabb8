// Package identity carries the authenticated caller through a request context.
package identity

import (
	"context"
	"strings"
)

type ctxKey string

const (
	ctxUserIDKey ctxKey = "user_id"
	ctxRoleKey   ctxKey = "role"
	ctxMethodKey ctxKey = "auth_method"
)

const RoleAdmin = "admin"

// Method records how the caller proved who they are.
type Method string

const (
	MethodSession Method = "session"
	MethodBearer  Method = "bearer"
)

// Principal is the signed-in caller. The zero value is anonymous.
type Principal struct {
	UserID string
	Role   string
}

func (p Principal) Anonymous() bool {
	return strings.TrimSpace(p.UserID) == ""
}

func WithUser(ctx context.Context, userID string, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserIDKey, userID)
	ctx = context.WithValue(ctx, ctxRoleKey, role)
	return ctx
}

func WithMethod(ctx context.Context, m Method) context.Context {
	return context.WithValue(ctx, ctxMethodKey, m)
}

func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxUserIDKey)
	id, ok := v.(string)
	return id, ok
}

func Role(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxRoleKey)
	role, ok := v.(string)
	return role, ok
}

func AuthMethod(ctx context.Context) (Method, bool) {
	m, ok := ctx.Value(ctxMethodKey).(Method)
	return m, ok
}

func IsAdmin(ctx context.Context) bool {
	role, _ := Role(ctx)
	return role == RoleAdmin
}

// From returns the caller stored in ctx; anonymous when none is set.
func From(ctx context.Context) Principal {
	id, _ := UserID(ctx)
	role, _ := Role(ctx)
	return Principal{UserID: strings.TrimSpace(id), Role: role}
}
