package models

import (
	"sort"
	"strings"
)

// RoleViewer can only see what its permission codenames allow.
const RoleViewer = "viewer"

// RoleAdmin is a superuser: every permission check passes.
const RoleAdmin = "admin"

// UsernameField is the actor column searched and shown as the login name.
const UsernameField = "username"

type User struct {
	ID           int      `json:"id"`
	Username     string   `json:"username"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Role         string   `json:"role"`
	Permissions  []string `json:"permissions"`
	IsActive     bool     `json:"is_active"`
}

// IsSuperuser reports whether the user bypasses permission codenames.
func (u *User) IsSuperuser() bool {
	return u != nil && u.IsActive && u.Role == RoleAdmin
}

// HasPerm reports whether the user holds the codename, e.g. "auditlog.delete_logentry".
func (u *User) HasPerm(codename string) bool {
	if u == nil || !u.IsActive {
		return false
	}
	if u.IsSuperuser() {
		return true
	}
	for _, p := range u.Permissions {
		if p == codename {
			return true
		}
	}
	return false
}

// String is the display form used in changelists: full name when set, username otherwise.
func (u *User) String() string {
	if u == nil {
		return ""
	}
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full != "" {
		return full
	}
	return u.Username
}

// Fields returns the tracked field values used to diff user changes.
func (u *User) Fields() map[string]string {
	return map[string]string{
		"username":    u.Username,
		"first_name":  u.FirstName,
		"last_name":   u.LastName,
		"email":       u.Email,
		"role":        u.Role,
		"is_active":   boolString(u.IsActive),
		"password":    u.PasswordHash,
		"permissions": permissionList(u.Permissions),
	}
}

// permissionList is the codenames sorted and comma separated, so grant order does not register as a change.
func permissionList(perms []string) string {
	sorted := append([]string(nil), perms...)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}

func boolString(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
