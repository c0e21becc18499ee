package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the stored profile of an authenticated account.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Role        string
	CreatedAt   time.Time
}

// IsAdmin reports whether the profile carries the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
