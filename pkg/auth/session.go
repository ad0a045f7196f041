package auth

import "github.com/example/farmmarket/pkg/models"

// Session identifies the caller of a service operation. It is built once per request
// from the bearer token and handed explicitly to every call that needs it.
type Session struct {
	UserID string
	Email  string
	Role   models.Role
	Token  string
}

func (s Session) IsAdmin() bool {
	return s.Role == models.RoleAdmin
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// Owns reports whether the session may read a resource that belongs to userID.
func (s Session) Owns(userID string) bool {
	return s.IsAdmin() || (s.Authenticated() && s.UserID == userID)
}
