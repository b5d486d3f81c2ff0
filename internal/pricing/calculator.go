package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/order"
	"github.com/VITperson/batumi-lunch-site2/internal/util/calendar"
	"github.com/shopspring/decimal"
)

var ErrMenuUnavailable = errors.New("menu unavailable")

const (
	ReasonClosedByAdmin = "closed by admin"
	ReasonDateInPast    = "date in the past"
	ReasonPastCutoff    = "past cutoff"
)

type DayBreakdown struct {
	Day      menu.Weekday    `json:"day_of_week"`
	Date     time.Time       `json:"-"`
	Portions int             `json:"portions"`
	Items    []string        `json:"items"`
	Price    decimal.Decimal `json:"price"`
	Subtotal decimal.Decimal `json:"subtotal"`
	SoldOut  bool            `json:"sold_out"`
	Closed   bool            `json:"closed"`
	Reason   string          `json:"reason,omitempty"`
}

// Orderable reports whether the day counts towards the total.
func (d DayBreakdown) Orderable() bool {
	return !d.SoldOut && !d.Closed
}

type WeekBreakdown struct {
	WeekStart time.Time       `json:"-"`
	Days      []DayBreakdown  `json:"days"`
	Total     decimal.Decimal `json:"total"`
	HasMenu   bool            `json:"has_menu"`
}

// PriceDay prices one selection against week, delivered in the week
// starting at weekStart. now must be in the service time zone.
func PriceDay(sel order.BasketSelection, week *menu.MenuWeek, weekStart, now time.Time) (DayBreakdown, error) {
	if week == nil {
		return DayBreakdown{}, ErrMenuUnavailable
	}
	offer, ok := week.Offer(sel.Day)
	if !ok {
		return DayBreakdown{}, fmt.Errorf("%w: no offer for %s", ErrMenuUnavailable, sel.Day)
	}

	date := calendar.AddDays(calendar.DateOf(weekStart), sel.Day.Index())
	today := calendar.DateOf(now)
	price := offer.EffectivePrice(week.BasePrice)

	d := DayBreakdown{
		Day:      sel.Day,
		Date:     date,
		Portions: sel.Portions,
		Items:    offer.Items,
		Price:    price,
		Subtotal: price.Mul(decimal.NewFromInt(int64(sel.Portions))),
		SoldOut:  offer.IsSoldOut(),
	}
	switch {
	case offer.Status == menu.StatusClosed:
		d.Closed, d.Reason = true, ReasonClosedByAdmin
	case date.Before(today):
		d.Closed, d.Reason = true, ReasonDateInPast
	case date.Equal(today) && now.Hour() >= week.DeadlineHour:
		d.Closed, d.Reason = true, ReasonPastCutoff
	}
	return d, nil
}

// PriceWeek sums PriceDay over sels, skipping sold out and closed days.
func PriceWeek(sels []order.BasketSelection, week *menu.MenuWeek, weekStart, now time.Time) (WeekBreakdown, error) {
	wb := WeekBreakdown{
		WeekStart: calendar.DateOf(weekStart),
		Days:      make([]DayBreakdown, 0, len(sels)),
		Total:     decimal.Zero,
		HasMenu:   len(sels) > 0,
	}
	for _, sel := range sels {
		d, err := PriceDay(sel, week, weekStart, now)
		if err != nil {
			return WeekBreakdown{}, err
		}
		if d.Orderable() {
			wb.Total = wb.Total.Add(d.Subtotal)
		}
		wb.Days = append(wb.Days, d)
	}
	return wb, nil
}
