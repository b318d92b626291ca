package domain

import (
	"strings"
	"time"
)

// User is the identity the engine consumes. Authentication happens
// elsewhere; the engine trusts id and role as given.
type User struct {
	ID          string
	DisplayName string
	Role        Role
	CreatedAt   time.Time
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return Fail(CodeInvalidInput, "user id is required")
	}
	if strings.TrimSpace(u.DisplayName) == "" {
		return Fail(CodeInvalidInput, "display name is required for %q", u.ID)
	}
	if !ValidRoles[u.Role] {
		return Fail(CodeInvalidInput, "invalid role %q for %q", u.Role, u.ID)
	}
	return nil
}

// SystemUser is the actor recorded for automated releases.
func SystemUser() User {
	return User{ID: SystemActorID, DisplayName: SystemActorName, Role: RoleRoot}
}
