// internal/domain/models/role.go
package models

// Role is one of the five canonical club roles. Stored role values may
// arrive in legacy shapes; see normalize.Role for the mapping.
type Role string

const (
	RoleVisitor    Role = "visitor"
	RoleMember     Role = "member"
	RoleGroupAdmin Role = "group_admin"
	RoleCoachAdmin Role = "coach_admin"
	RoleMainAdmin  Role = "main_admin"
)

// AllRoles lists the canonical roles from least to most privileged.
var AllRoles = []Role{RoleVisitor, RoleMember, RoleGroupAdmin, RoleCoachAdmin, RoleMainAdmin}

// IsValid reports whether r is one of the canonical roles.
func (r Role) IsValid() bool {
	for _, c := range AllRoles {
		if r == c {
			return true
		}
	}
	return false
}

// IsAdmin reports whether r manages people (group admin and above).
func (r Role) IsAdmin() bool {
	return r == RoleGroupAdmin || r == RoleCoachAdmin || r == RoleMainAdmin
}

// Label is the display name shown in dashboards and user lists.
func (r Role) Label() string {
	switch r {
	case RoleMainAdmin:
		return "Main admin"
	case RoleCoachAdmin:
		return "Coach admin"
	case RoleGroupAdmin:
		return "Group admin"
	case RoleMember:
		return "Member"
	default:
		return "Visitor"
	}
}

func (r Role) String() string { return string(r) }
