package menu

import (
	"time"

	"github.com/shopspring/decimal"
)

type DayStatus string

const (
	StatusAvailable DayStatus = "available"
	StatusSoldOut   DayStatus = "sold_out"
	StatusClosed    DayStatus = "closed"
)

func (s DayStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusSoldOut, StatusClosed:
		return true
	}
	return false
}

type MenuWeek struct {
	ID           int64           `db:"id" json:"id"`
	WeekStart    time.Time       `db:"week_start" json:"week_start"`
	Title        string          `db:"title" json:"title,omitempty"`
	IsPublished  bool            `db:"is_published" json:"is_published"`
	DeadlineHour int             `db:"order_deadline_hour" json:"order_deadline_hour"`
	BasePrice    decimal.Decimal `db:"base_price" json:"base_price"`
	Offers       []DayOffer      `db:"-" json:"day_offers"`
}

// Offer returns the offer published for day.
func (w *MenuWeek) Offer(day Weekday) (DayOffer, bool) {
	for _, o := range w.Offers {
		if o.Day == day {
			return o, true
		}
	}
	return DayOffer{}, false
}

type DayOffer struct {
	ID           int64               `db:"id" json:"id"`
	MenuWeekID   int64               `db:"menu_week_id" json:"-"`
	Day          Weekday             `db:"day_of_week" json:"day_of_week"`
	Items        []string            `db:"items" json:"items"`
	Calories     *int                `db:"calories" json:"calories,omitempty"`
	Price        decimal.NullDecimal `db:"price" json:"price"`
	Status       DayStatus           `db:"status" json:"status"`
	SoldOut      bool                `db:"sold_out" json:"sold_out"`
	PortionLimit *int                `db:"portion_limit" json:"portion_limit,omitempty"`
}

// IsSoldOut ORs the status and the independent flag.
func (o DayOffer) IsSoldOut() bool {
	return o.Status == StatusSoldOut || o.SoldOut
}

// EffectivePrice falls back to the week's base price when no override is set.
func (o DayOffer) EffectivePrice(base decimal.Decimal) decimal.Decimal {
	if o.Price.Valid {
		return o.Price.Decimal
	}
	return base
}
