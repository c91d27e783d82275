package shared

import (
	"context"
	"fmt"
	"strconv"
)

// Role is the closed set of account roles. Authorization decisions are keyed
// by role, never by free-form strings from the request.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleVendedor Role = "vendedor"
	RoleCliente  Role = "cliente"
)

// ParseRole validates a stored role value.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleVendedor, RoleCliente:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// SessionRoleKey is the session value holding the authenticated role.
const SessionRoleKey = "role"

// Actor identifies the authenticated caller of a core operation. It is
// derived from the session once per request and passed explicitly.
type Actor struct {
	UserID int64
	Role   Role
}

// IsStaff reports whether the actor may act on quotations of other clients.
func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleVendedor
}

// ActorFromContext resolves the request actor from the session, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	sess := SessionFromContext(ctx)
	if sess == nil || sess.User() == "" {
		return Actor{}, false
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return Actor{}, false
	}
	role, err := ParseRole(sess.Get(SessionRoleKey))
	if err != nil {
		return Actor{}, false
	}
	return Actor{UserID: id, Role: role}, true
}
