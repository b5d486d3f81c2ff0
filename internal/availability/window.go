package availability

import (
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/window"
	"github.com/VITperson/batumi-lunch-site2/internal/util/calendar"
)

const (
	ReasonDayClosed  = "day closed for current week"
	ReasonPastCutoff = "past today's cutoff"
)

// Result tells whether an order for Day may be placed now and which
// delivery week it belongs to.
type Result struct {
	Day             menu.Weekday
	Allowed         bool
	Reason          string
	TargetsNextWeek bool
	WeekStart       time.Time
	DeliveryDate    time.Time
	// WindowExpired is set when the stored next-week window has run out.
	// The caller must persist it as disabled.
	WindowExpired bool
}

// Resolve decides availability of day at now. now must already be in the
// service time zone; state is the stored next-week window.
func Resolve(day menu.Weekday, now time.Time, state window.State, deadlineHour int) Result {
	today := calendar.DateOf(now)
	todayIdx := calendar.DayIndex(now)
	target := day.Index()

	active, expired := state.Evaluate(today)
	res := Result{
		Day:           day,
		WeekStart:     calendar.WeekStart(now),
		WindowExpired: expired,
	}

	switch {
	case target < todayIdx && !active:
		res.Reason = ReasonDayClosed
	case target == todayIdx && now.Hour() >= deadlineHour && !active:
		res.Reason = ReasonPastCutoff
	default:
		res.Allowed = true
		if active {
			res.TargetsNextWeek = true
			res.WeekStart = calendar.DateOf(*state.WeekStart)
		}
	}
	res.DeliveryDate = calendar.AddDays(res.WeekStart, target)
	return res
}
