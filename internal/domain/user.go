package domain

import "time"

// Role represents the role of a user.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleManager  Role = "MANAGER"
)

// User represents a registered customer or manager.
// TelegramChatID is empty until the user links the notification bot.
type User struct {
	ID             string
	Email          string
	FirstName      string
	LastName       string
	Role           Role
	TelegramChatID string
	CreatedAt      time.Time
}

// IsManager reports whether the user holds the manager role.
func (u *User) IsManager() bool {
	return u.Role == RoleManager
}
