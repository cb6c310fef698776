package domain

// Role is the access level of a back-office user.
type Role string

const (
	// RoleAdmin may read and modify every resource.
	RoleAdmin Role = "ADMIN"
	// RoleAuditor has read-only access.
	RoleAuditor Role = "AUDITOR"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleAuditor
}

// Actor identifies who performs a mutation and from where.
// It is attached to every audit record.
type Actor struct {
	UserID        int64
	Username      string
	Role          Role
	SourceAddress string
}
