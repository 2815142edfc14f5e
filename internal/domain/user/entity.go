package user

import "time"

// Role represents user role in the system
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// User mirrors the remote store user document. IDs come from the external
// identity provider and are treated as opaque strings.
type User struct {
	ID        string   `firestore:"id" json:"id"`
	Name      string   `firestore:"name" json:"name"`
	Email     string   `firestore:"email" json:"email"`
	Role      Role     `firestore:"role" json:"role"`
	Latitude  *float64 `firestore:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude *float64 `firestore:"longitude,omitempty" json:"longitude,omitempty"`
	Phone     *string  `firestore:"phone,omitempty" json:"phone,omitempty"`

	// Notification preferences, consumed by the external dispatcher
	NotificationRadius   float64 `firestore:"notificationRadius" json:"notificationRadius"`
	NotificationsEnabled bool    `firestore:"notificationsEnabled" json:"notificationsEnabled"`

	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

// IsModerator returns true if user can moderate reports
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}

// IsAdmin returns true if user is an admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ParseRole decodes a stored role string, defaulting to RoleUser for
// unknown values so a bad document cannot grant privileges.
func ParseRole(s string) Role {
	switch s {
	case string(RoleModerator):
		return RoleModerator
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleUser
	}
}
