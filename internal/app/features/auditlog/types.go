// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/app/store/audit"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/paging"
)

// listItem is one audit row with actor and target names resolved.
type listItem struct {
	ID            string            `json:"id"`
	CreatedAt     time.Time         `json:"created_at"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	ActorID       string            `json:"actor_id,omitempty"`
	ActorName     string            `json:"actor_name,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	TargetName    string            `json:"target_name,omitempty"`
	GroupID       string            `json:"group_id,omitempty"`
	IP            string            `json:"ip"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listPage struct {
	Items []listItem `json:"items"`
	paging.Result
}

type categoryOption struct {
	Value  string   `json:"value"`
	Label  string   `json:"label"`
	Events []string `json:"events"`
}

// allCategories lists every category with the event types it carries.
func allCategories() []categoryOption {
	return []categoryOption{
		{Value: audit.CategoryAuth, Label: "Authentication", Events: eventTypesForCategory(audit.CategoryAuth)},
		{Value: audit.CategoryAdmin, Label: "Administration", Events: eventTypesForCategory(audit.CategoryAdmin)},
		{Value: audit.CategoryEvents, Label: "Club events", Events: eventTypesForCategory(audit.CategoryEvents)},
	}
}

// eventTypesForCategory returns the event types for a category, all of
// them when category is empty, and nil for an unknown category.
func eventTypesForCategory(category string) []string {
	authEvents := []string{
		audit.EventLoginSuccess,
		audit.EventLoginFailedUserNotFound,
		audit.EventLoginFailedWrongPassword,
		audit.EventLoginFailedUserDisabled,
		audit.EventLoginFailedRateLimit,
		audit.EventLogout,
	}
	adminEvents := []string{
		audit.EventUserCreated,
		audit.EventUserUpdated,
		audit.EventUserRoleChanged,
		audit.EventUserDeleted,
		audit.EventGroupCreated,
		audit.EventGroupUpdated,
		audit.EventGroupDeleted,
		audit.EventMemberAddedToGroup,
		audit.EventMemberRemovedFromGroup,
	}
	runEvents := []string{
		audit.EventRunCreated,
		audit.EventRunUpdated,
		audit.EventRunCancelled,
		audit.EventRunDeleted,
	}

	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryAdmin:
		return adminEvents
	case audit.CategoryEvents:
		return runEvents
	case "":
		all := make([]string, 0, len(authEvents)+len(adminEvents)+len(runEvents))
		all = append(all, authEvents...)
		all = append(all, adminEvents...)
		return append(all, runEvents...)
	default:
		return nil
	}
}
