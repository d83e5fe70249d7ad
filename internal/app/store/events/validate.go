package eventstore

import (
	"errors"
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
)

var (
	ErrTitleRequired  = errors.New("title is required")
	ErrBadType        = errors.New("type must be daily or weekly")
	ErrGroupRequired  = errors.New("a daily event needs a group")
	ErrDateRequired   = errors.New("date is required")
	ErrBadTime        = errors.New("time must be HH:MM")
	ErrBadCoordinates = errors.New("coordinates out of range")
	ErrBadCapacity    = errors.New("max participants cannot be negative")
	ErrBadDistance    = errors.New("distance cannot be negative")
)

// Validate checks an event after normalization.
func Validate(e models.Event) error {
	switch {
	case e.Title == "":
		return ErrTitleRequired
	case e.Type != models.EventDaily && e.Type != models.EventWeekly:
		return ErrBadType
	case e.Type == models.EventDaily && e.GroupID == nil:
		return ErrGroupRequired
	case e.Date.IsZero():
		return ErrDateRequired
	case e.Capacity < 0:
		return ErrBadCapacity
	case e.DistanceKm < 0:
		return ErrBadDistance
	}
	if _, err := time.Parse("15:04", e.Time); err != nil || len(e.Time) != 5 {
		return ErrBadTime
	}
	if p := e.Location.Point; p != nil {
		if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
			return ErrBadCoordinates
		}
	}
	return nil
}
