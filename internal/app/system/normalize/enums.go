// internal/app/system/normalize/enums.go
package normalize

import (
	"strings"

	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
)

// EventType maps "daily", "Weekly", "EventType.daily" and similar to an
// event type. Unknown input returns "".
func EventType(s string) models.EventType {
	c := compact(s)
	switch {
	case strings.HasSuffix(c, "daily"):
		return models.EventDaily
	case strings.HasSuffix(c, "weekly"):
		return models.EventWeekly
	}
	return ""
}

// WeeklySubType maps "long_run", "longRun", "WeeklyEventSubType.specialEvent"
// and similar to a weekly subtype. Unknown input returns "".
func WeeklySubType(s string) models.WeeklySubType {
	c := compact(s)
	switch {
	case strings.HasSuffix(c, "longrun"):
		return models.WeeklyLongRun
	case strings.HasSuffix(c, "specialevent"):
		return models.WeeklySpecialEvent
	}
	return ""
}

// GroupLevel maps a level name (English, French or legacy enum string)
// to a group level. Unknown input returns "".
func GroupLevel(s string) models.GroupLevel {
	c := compact(s)
	switch {
	case strings.HasSuffix(c, "beginner"), strings.HasSuffix(c, "debutant"), strings.HasSuffix(c, "débutant"):
		return models.LevelBeginner
	case strings.HasSuffix(c, "intermediate"), strings.HasSuffix(c, "intermediaire"), strings.HasSuffix(c, "intermédiaire"):
		return models.LevelIntermediate
	case strings.HasSuffix(c, "advanced"), strings.HasSuffix(c, "avance"), strings.HasSuffix(c, "avancé"):
		return models.LevelAdvanced
	}
	return ""
}
