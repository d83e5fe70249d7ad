package workers

import "time"

func (w *EventReminders) SetClock(now func() time.Time) { w.now = now }
