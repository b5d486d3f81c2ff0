package order

import (
	"context"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/availability"
	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/order"
	"github.com/shopspring/decimal"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, o *order.Order) error
	FindOrder(ctx context.Context, id int64) (*order.Order, error)
	ListOrdersByUser(ctx context.Context, customerID int64) ([]order.Order, error)
	ListActiveOrders(ctx context.Context, customerID int64) ([]order.Order, error)
	ListOrdersByWeek(ctx context.Context, weekStart, legacyFrom, legacyTo time.Time) ([]order.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status order.OrderStatus) (bool, error)
	UpdateOrderCount(ctx context.Context, id int64, count int, total decimal.Decimal, updatedAt time.Time) error
}

// Gate decides whether a weekday can be ordered right now.
type Gate interface {
	CheckAvailability(ctx context.Context, day menu.Weekday) (availability.Result, error)
}

// WeekLoader reads a menu week together with its day offers.
type WeekLoader interface {
	LoadWeek(ctx context.Context, weekStart time.Time) (*menu.MenuWeek, error)
}
