// internal/app/system/authz/permissions.go
package authz

import (
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/normalize"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
)

// roleTable is the fixed capability set per canonical role.
var roleTable = map[models.Role]models.Permissions{
	models.RoleMainAdmin: {
		ManageUsers:       true,
		ManageAdmins:      true,
		ManagePermissions: true,
		CreateEvents:      true,
		DeleteEvents:      true,
		ViewHistory:       true,
		SendNotifications: true,
		ManageGroups:      true,
		ViewStatistics:    true,
	},
	models.RoleCoachAdmin: {
		CreateEvents:      true,
		ViewHistory:       true,
		SendNotifications: true,
		ViewStatistics:    true,
	},
	models.RoleGroupAdmin: {
		CreateEvents:      true,
		DeleteEvents:      true,
		ViewHistory:       true,
		SendNotifications: true,
		ManageGroups:      true,
	},
	models.RoleMember: {
		ViewHistory: true,
	},
	models.RoleVisitor: {
		ViewHistory: true,
	},
}

// Derive returns the capability set for a role. Non-canonical input is
// normalized first, so the result is always one of the five table rows.
func Derive(role models.Role) models.Permissions {
	if p, ok := roleTable[role]; ok {
		return p
	}
	return roleTable[normalize.Role(string(role))]
}

// Can reports whether role grants capability c.
func Can(role models.Role, c models.Capability) bool {
	return Derive(role).Has(c)
}
