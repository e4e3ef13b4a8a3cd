package domain

import (
	"fmt"
	"time"
)

// Role is a coarse user category. It travels in the token claims so
// downstream services can make decisions without a lookup.
type Role string

const (
	RoleCreator Role = "creator"
	RoleMember  Role = "member"
	RoleAdmin   Role = "admin"
)

// DefaultRole is assigned when registration omits a role and to every
// account provisioned through an external identity provider.
const DefaultRole = RoleMember

// ParseRole accepts any known role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleCreator, RoleMember, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// SelfAssignable reports whether a caller may pick this role when
// registering. Admin is granted out of band only.
func (r Role) SelfAssignable() bool {
	return r == RoleCreator || r == RoleMember
}

func (r Role) String() string { return string(r) }

type User struct {
	ID           string
	Username     string
	Email        string // unique, stored lower-cased
	DisplayName  string
	PasswordHash string // argon2 encoded, or cryptox.UnusablePassword()
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
