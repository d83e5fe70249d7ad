// internal/app/system/normalize/role.go
package normalize

import (
	"fmt"
	"strings"

	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
)

// roleRule maps one predicate to a canonical role. Rules are evaluated top
// to bottom and the first match wins.
type roleRule struct {
	match func(lower, compacted string) bool
	role  models.Role
}

func exact(values ...string) func(string, string) bool {
	return func(lower, _ string) bool {
		for _, v := range values {
			if lower == v {
				return true
			}
		}
		return false
	}
}

func contains(keyword string) func(string, string) bool {
	return func(_, compacted string) bool {
		return strings.Contains(compacted, keyword)
	}
}

var roleRules = []roleRule{
	// canonical identifiers
	{exact("main_admin", "mainadmin"), models.RoleMainAdmin},
	{exact("coach_admin", "coachadmin"), models.RoleCoachAdmin},
	{exact("group_admin", "groupadmin"), models.RoleGroupAdmin},
	{exact("member"), models.RoleMember},
	{exact("visitor"), models.RoleVisitor},

	// synonyms
	{exact("admin_main", "super_admin", "superadmin"), models.RoleMainAdmin},
	{exact("admin_coach", "coach"), models.RoleCoachAdmin},
	{exact("sub_admin", "subadmin", "admin_group"), models.RoleGroupAdmin},
	{exact("user", "adherent"), models.RoleMember},
	{exact("guest", "invite"), models.RoleVisitor},

	// keyword containment, most privileged first
	{contains("mainadmin"), models.RoleMainAdmin},
	{contains("coachadmin"), models.RoleCoachAdmin},
	{contains("groupadmin"), models.RoleGroupAdmin},
	{contains("member"), models.RoleMember},
	{contains("visitor"), models.RoleVisitor},
}

// Role maps any stored role representation to a canonical role.
// It never fails: nil, empty or unrecognized input resolves to Visitor.
func Role(raw any) models.Role {
	var s string
	switch v := raw.(type) {
	case nil:
		return models.RoleVisitor
	case string:
		s = v
	case models.Role:
		s = string(v)
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}

	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return models.RoleVisitor
	}
	compacted := compact(lower)
	for _, r := range roleRules {
		if r.match(lower, compacted) {
			return r.role
		}
	}
	return models.RoleVisitor
}
