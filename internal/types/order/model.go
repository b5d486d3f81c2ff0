package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusNew             OrderStatus = "new"
	StatusConfirmed       OrderStatus = "confirmed"
	StatusPreparing       OrderStatus = "preparing"
	StatusDelivered       OrderStatus = "delivered"
	StatusCancelled       OrderStatus = "cancelled"
	StatusCancelledByUser OrderStatus = "cancelled_by_user"
	StatusFailed          OrderStatus = "failed"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusNew, StatusConfirmed, StatusPreparing, StatusDelivered,
		StatusCancelled, StatusCancelledByUser, StatusFailed:
		return true
	}
	return false
}

func (s OrderStatus) IsCancelled() bool {
	return s == StatusCancelled || s == StatusCancelledByUser
}

// Modifiable reports whether the owner may still cancel or resize the order.
func (s OrderStatus) Modifiable() bool {
	return s == StatusNew
}

type Order struct {
	ID                int64           `db:"id" json:"id"`
	Code              string          `db:"order_code" json:"code"`
	CustomerID        int64           `db:"customer_id" json:"-"`
	DeliveryDate      time.Time       `db:"delivery_date" json:"delivery_date"`
	Day               menu.Weekday    `db:"day_of_week" json:"day_of_week"`
	Count             int             `db:"count" json:"count"`
	Items             []string        `db:"items" json:"items"`
	UnitPrice         decimal.Decimal `db:"price" json:"price"`
	Total             decimal.Decimal `db:"total" json:"total"`
	Status            OrderStatus     `db:"status" json:"status"`
	DeliveryWeekStart *time.Time      `db:"delivery_week_start" json:"delivery_week_start,omitempty"`
	NextWeek          bool            `db:"is_next_week" json:"next_week"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         *time.Time      `db:"updated_at" json:"updated_at,omitempty"`
}

// BasketSelection is one (day, portions) pick coming from a front-end.
type BasketSelection struct {
	Day      menu.Weekday `json:"day_of_week"`
	Portions int          `json:"portions"`
}

// Actor is whoever asks for a change: the order owner or an administrator.
type Actor struct {
	CustomerID int64
	Admin      bool
}

var ErrInvalidPortions = errors.New("invalid portion count")

// Validate checks the selection against the portion bound max.
func (s BasketSelection) Validate(max int) error {
	if !s.Day.Valid() {
		return fmt.Errorf("%w: %d", menu.ErrUnknownWeekday, int(s.Day))
	}
	if s.Portions < 1 || s.Portions > max {
		return fmt.Errorf("%w: %d, allowed 1..%d", ErrInvalidPortions, s.Portions, max)
	}
	return nil
}
