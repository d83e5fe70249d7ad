// internal/domain/models/permissions.go
package models

// Capability names one permission flag.
type Capability string

const (
	CanManageUsers       Capability = "manage_users"
	CanManageAdmins      Capability = "manage_admins"
	CanManagePermissions Capability = "manage_permissions"
	CanCreateEvents      Capability = "create_events"
	CanDeleteEvents      Capability = "delete_events"
	CanViewHistory       Capability = "view_history"
	CanSendNotifications Capability = "send_notifications"
	CanManageGroups      Capability = "manage_groups"
	CanViewStatistics    Capability = "view_statistics"
)

// AllCapabilities lists every capability in display order.
var AllCapabilities = []Capability{
	CanManageUsers,
	CanManageAdmins,
	CanManagePermissions,
	CanCreateEvents,
	CanDeleteEvents,
	CanViewHistory,
	CanSendNotifications,
	CanManageGroups,
	CanViewStatistics,
}

// Permissions is the capability set attached to a user record.
// It is a cache of the role's derived set: rewritten on every write and
// never read back as the source of truth.
type Permissions struct {
	ManageUsers       bool `bson:"manage_users" json:"manage_users"`
	ManageAdmins      bool `bson:"manage_admins" json:"manage_admins"`
	ManagePermissions bool `bson:"manage_permissions" json:"manage_permissions"`
	CreateEvents      bool `bson:"create_events" json:"create_events"`
	DeleteEvents      bool `bson:"delete_events" json:"delete_events"`
	ViewHistory       bool `bson:"view_history" json:"view_history"`
	SendNotifications bool `bson:"send_notifications" json:"send_notifications"`
	ManageGroups      bool `bson:"manage_groups" json:"manage_groups"`
	ViewStatistics    bool `bson:"view_statistics" json:"view_statistics"`
}

// Has reports whether the capability is granted.
func (p Permissions) Has(c Capability) bool {
	switch c {
	case CanManageUsers:
		return p.ManageUsers
	case CanManageAdmins:
		return p.ManageAdmins
	case CanManagePermissions:
		return p.ManagePermissions
	case CanCreateEvents:
		return p.CreateEvents
	case CanDeleteEvents:
		return p.DeleteEvents
	case CanViewHistory:
		return p.ViewHistory
	case CanSendNotifications:
		return p.SendNotifications
	case CanManageGroups:
		return p.ManageGroups
	case CanViewStatistics:
		return p.ViewStatistics
	}
	return false
}

// Granted returns the granted capabilities in display order.
func (p Permissions) Granted() []Capability {
	out := make([]Capability, 0, len(AllCapabilities))
	for _, c := range AllCapabilities {
		if p.Has(c) {
			out = append(out, c)
		}
	}
	return out
}
