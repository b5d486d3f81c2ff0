package window

import "time"

// State is the process-wide next-week ordering toggle.
type State struct {
	Enabled   bool       `db:"next_week_enabled" json:"next_week_enabled"`
	WeekStart *time.Time `db:"week_start" json:"week_start,omitempty"`
}

// Evaluate reports whether the window is open for the given date. A window
// whose start date is today or earlier is expired and must be treated as
// disabled.
func (s State) Evaluate(today time.Time) (active, expired bool) {
	if !s.Enabled {
		return false, false
	}
	if s.WeekStart != nil && today.Before(*s.WeekStart) {
		return true, false
	}
	return false, true
}

func Disabled() State {
	return State{}
}

func Open(weekStart time.Time) State {
	return State{Enabled: true, WeekStart: &weekStart}
}
