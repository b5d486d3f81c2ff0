package order

import (
	"context"
	"fmt"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/order"
	"github.com/VITperson/batumi-lunch-site2/internal/util/calendar"
	"github.com/shopspring/decimal"
)

type DayReport struct {
	Day       menu.Weekday    `json:"day_of_week"`
	Date      string          `json:"date"`
	Active    []order.Order   `json:"active"`
	Cancelled []order.Order   `json:"cancelled"`
	Portions  int             `json:"portions"`
	Total     decimal.Decimal `json:"total"`
}

type WeekReport struct {
	WeekStart string          `json:"week_start"`
	Days      []DayReport     `json:"days"`
	Orders    int             `json:"orders"`
	Portions  int             `json:"portions"`
	Total     decimal.Decimal `json:"total"`
	Cancelled int             `json:"cancelled"`
}

// WeekReport groups the orders of a delivery week by weekday. Cancelled
// orders are listed but left out of the totals. A non-nil day limits the
// report to that weekday.
func (s *Service) WeekReport(ctx context.Context, weekStart time.Time, day *menu.Weekday) (WeekReport, error) {
	weekStart = calendar.DateOf(weekStart)
	if !calendar.IsMonday(weekStart) {
		return WeekReport{}, fmt.Errorf("%w: week must start on Monday", calendar.ErrInvalidDate)
	}
	from, to := s.legacyRange(weekStart)
	orders, err := s.repo.ListOrdersByWeek(ctx, weekStart, from, to)
	if err != nil {
		return WeekReport{}, fmt.Errorf("list orders by week: %w", err)
	}

	days := menu.Weekdays
	if day != nil {
		days = []menu.Weekday{*day}
	}
	rep := WeekReport{
		WeekStart: calendar.Format(weekStart),
		Days:      make([]DayReport, 0, len(days)),
		Total:     decimal.Zero,
	}
	for _, d := range days {
		dr := DayReport{
			Day:       d,
			Date:      calendar.Format(calendar.AddDays(weekStart, d.Index())),
			Active:    []order.Order{},
			Cancelled: []order.Order{},
			Total:     decimal.Zero,
		}
		for _, o := range orders {
			if o.Day != d {
				continue
			}
			if o.Status.IsCancelled() {
				dr.Cancelled = append(dr.Cancelled, o)
				continue
			}
			dr.Active = append(dr.Active, o)
			dr.Portions += o.Count
			dr.Total = dr.Total.Add(o.Total)
		}
		rep.Orders += len(dr.Active)
		rep.Cancelled += len(dr.Cancelled)
		rep.Portions += dr.Portions
		rep.Total = rep.Total.Add(dr.Total)
		rep.Days = append(rep.Days, dr)
	}
	return rep, nil
}
