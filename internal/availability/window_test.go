package availability

import (
	"testing"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/window"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(d time.Time, hour int) time.Time {
	return d.Add(time.Duration(hour) * time.Hour)
}

var (
	week     = date(2024, 3, 18) // Monday
	nextWeek = date(2024, 3, 25)
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		day         menu.Weekday
		now         time.Time
		state       window.State
		allowed     bool
		reason      string
		nextWeek    bool
		weekStart   time.Time
		delivery    time.Time
		windowTimed bool
	}{
		{
			name:      "later day this week",
			day:       menu.Wednesday,
			now:       at(week, 9),
			allowed:   true,
			weekStart: week,
			delivery:  date(2024, 3, 20),
		},
		{
			name:      "today before cutoff",
			day:       menu.Monday,
			now:       at(week, 9),
			allowed:   true,
			weekStart: week,
			delivery:  week,
		},
		{
			name:      "today at cutoff",
			day:       menu.Monday,
			now:       at(week, 10),
			reason:    ReasonPastCutoff,
			weekStart: week,
			delivery:  week,
		},
		{
			name:      "passed day",
			day:       menu.Monday,
			now:       at(date(2024, 3, 20), 9),
			reason:    ReasonDayClosed,
			weekStart: week,
			delivery:  week,
		},
		{
			name:      "weekend",
			day:       menu.Friday,
			now:       at(date(2024, 3, 23), 9),
			reason:    ReasonDayClosed,
			weekStart: week,
			delivery:  date(2024, 3, 22),
		},
		{
			name:      "passed day with window open",
			day:       menu.Monday,
			now:       at(date(2024, 3, 20), 9),
			state:     window.Open(nextWeek),
			allowed:   true,
			nextWeek:  true,
			weekStart: nextWeek,
			delivery:  nextWeek,
		},
		{
			name:      "past cutoff with window open",
			day:       menu.Monday,
			now:       at(week, 11),
			state:     window.Open(nextWeek),
			allowed:   true,
			nextWeek:  true,
			weekStart: nextWeek,
			delivery:  nextWeek,
		},
		{
			name:      "later day with window open goes to next week",
			day:       menu.Friday,
			now:       at(week, 9),
			state:     window.Open(nextWeek),
			allowed:   true,
			nextWeek:  true,
			weekStart: nextWeek,
			delivery:  date(2024, 3, 29),
		},
		{
			name:        "window reached its start date",
			day:         menu.Monday,
			now:         at(nextWeek, 11),
			state:       window.Open(nextWeek),
			reason:      ReasonPastCutoff,
			weekStart:   nextWeek,
			delivery:    nextWeek,
			windowTimed: true,
		},
		{
			name:        "enabled without a start date",
			day:         menu.Thursday,
			now:         at(week, 9),
			state:       window.State{Enabled: true},
			allowed:     true,
			weekStart:   week,
			delivery:    date(2024, 3, 21),
			windowTimed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.day, tt.now, tt.state, 10)
			assert.Equal(t, tt.allowed, res.Allowed)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, tt.nextWeek, res.TargetsNextWeek)
			assert.Equal(t, tt.weekStart, res.WeekStart)
			assert.Equal(t, tt.delivery, res.DeliveryDate)
			assert.Equal(t, tt.windowTimed, res.WindowExpired)
			assert.Equal(t, tt.day, res.Day)
		})
	}
}

func TestResolveLaterDaysBeforeDeadline(t *testing.T) {
	for today := 0; today < 5; today++ {
		now := at(week.AddDate(0, 0, today), 9)
		for _, day := range menu.Weekdays[today+1:] {
			res := Resolve(day, now, window.Disabled(), 10)
			assert.True(t, res.Allowed, "%s on %s", day, now.Weekday())
			assert.False(t, res.TargetsNextWeek)
			assert.Equal(t, week, res.WeekStart)
		}
	}
}

func TestResolveCutoffDayAtOrAfterDeadline(t *testing.T) {
	for _, day := range menu.Weekdays {
		for hour := 10; hour < 24; hour++ {
			now := at(week.AddDate(0, 0, day.Index()), hour)
			res := Resolve(day, now, window.Disabled(), 10)
			assert.False(t, res.Allowed)
			assert.Equal(t, ReasonPastCutoff, res.Reason)
		}
	}
}

func TestResolveUsesWallClockOfLocation(t *testing.T) {
	tbilisi := time.FixedZone("GET", 4*60*60)
	// 2024-03-18 07:00 UTC is 11:00 in Tbilisi.
	now := time.Date(2024, 3, 18, 7, 0, 0, 0, time.UTC).In(tbilisi)
	res := Resolve(menu.Monday, now, window.Disabled(), 10)
	assert.False(t, res.Allowed)
	assert.Equal(t, week, res.WeekStart)
}
