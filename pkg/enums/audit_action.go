package enums

import "fmt"

// AuditAction identifies the kind of operation recorded in the audit trail.
type AuditAction string

const (
	AuditActionCreate        AuditAction = "CREATE"
	AuditActionUpdate        AuditAction = "UPDATE"
	AuditActionDelete        AuditAction = "DELETE"
	AuditActionSoftDelete    AuditAction = "SOFT_DELETE"
	AuditActionRestore       AuditAction = "RESTORE"
	AuditActionLogin         AuditAction = "LOGIN"
	AuditActionLogout        AuditAction = "LOGOUT"
	AuditActionLoginFailed   AuditAction = "LOGIN_FAILED"
	AuditActionPasswordReset AuditAction = "PASSWORD_RESET"
)

var validAuditActions = []AuditAction{
	AuditActionCreate,
	AuditActionUpdate,
	AuditActionDelete,
	AuditActionSoftDelete,
	AuditActionRestore,
	AuditActionLogin,
	AuditActionLogout,
	AuditActionLoginFailed,
	AuditActionPasswordReset,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
