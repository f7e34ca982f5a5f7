package enums

import "fmt"

// UserRole represents an account's authorization level.
type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"
	UserRoleTherapist UserRole = "therapist"
	UserRoleViewer    UserRole = "viewer"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleTherapist,
	UserRoleViewer,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanDeletePatients reports whether the role may delete patient records.
func (r UserRole) CanDeletePatients() bool {
	return r == UserRoleAdmin || r == UserRoleTherapist
}

// CanManageUsers reports whether the role may administer accounts.
func (r UserRole) CanManageUsers() bool {
	return r == UserRoleAdmin
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
