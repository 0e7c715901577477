package model

import "strings"

// Role is the viewer's role in the review application.
type Role int

const (
	RoleAnonymous Role = iota
	RoleUser
	RoleManager
	RoleAdmin
)

// Identity keys persisted in the local key/value store, highest precedence first.
const (
	KeyAdmin   = "admin"
	KeyManager = "manager"
	KeyUser    = "user"
)

// IdentityKeys lists the persisted identity keys in precedence order.
var IdentityKeys = []string{KeyAdmin, KeyManager, KeyUser}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleManager:
		return "manager"
	case RoleUser:
		return "user"
	default:
		return "anonymous"
	}
}

// Key returns the store key that marks this role, or "" for anonymous.
func (r Role) Key() string {
	switch r {
	case RoleAdmin:
		return KeyAdmin
	case RoleManager:
		return KeyManager
	case RoleUser:
		return KeyUser
	default:
		return ""
	}
}

// ParseRole maps a role name to a Role. Unknown names are anonymous.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "manager":
		return RoleManager
	case "user":
		return RoleUser
	default:
		return RoleAnonymous
	}
}

// Session is the viewer identity, fixed for the lifetime of a view.
type Session struct {
	Role     Role
	Username string
}

// IsAuthor reports whether the viewer wrote the review.
func (s Session) IsAuthor(r Review) bool {
	return s.Username != "" && s.Username == r.Username
}

// CanDelete reports whether the delete action is offered for a review.
// Managers get the same rights as users.
func (s Session) CanDelete(r Review) bool {
	return s.Role == RoleAdmin || s.IsAuthor(r)
}

// CanEdit reports whether the edit action is offered for a review.
// Admins cannot edit reviews written by someone else.
func (s Session) CanEdit(r Review) bool {
	return s.IsAuthor(r)
}

// ActingUsername is the username sent with a delete request: admins
// delete on behalf of the author, everyone else as themselves.
func (s Session) ActingUsername(r Review) string {
	if s.Role == RoleAdmin {
		return r.Username
	}
	return s.Username
}
