/*
Package identity contains core data structures related to user identity.

It defines the basic representation of an account within the school platform
(the User struct) and the role constants used for authorization checks.
*/
package identity

// Roles recognized by the platform. Every account carries exactly one.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User represents the basic identity information of a platform account.
// Fields use JSON tags for serialization in API responses and WebSocket messages.
type User struct {

	// ID is the unique identifier for the user (UUID string).
	ID string `json:"id"`

	// Username is the login name of the account.
	Username string `json:"username"`

	// DisplayName is the name shown to other users.
	DisplayName string `json:"displayName"`

	// Role is the account's role ("admin", "teacher", or "student").
	Role string `json:"role"`
}

// ValidRole reports whether the given string is a recognized role.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// IsStaff reports whether the role is allowed to send announcements
// (notifications targeted at other users).
func IsStaff(role string) bool {
	return role == RoleAdmin || role == RoleTeacher
}
