package storage

import (
	"context"
	"errors"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/order"
	"github.com/VITperson/batumi-lunch-site2/internal/types/window"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by lookups for a single record that does not exist.
var ErrNotFound = errors.New("not found")

// MenuCatalog отдаёт опубликованные недельные меню.
type MenuCatalog interface {
	GetMenuWeek(ctx context.Context, weekStart time.Time) (*menu.MenuWeek, error)
	ListDayOffers(ctx context.Context, menuWeekID int64) ([]menu.DayOffer, error)
}

// OrderRepository отвечает за операции над заказами.
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *order.Order) error
	FindOrder(ctx context.Context, id int64) (*order.Order, error)
	ListOrdersByUser(ctx context.Context, customerID int64) ([]order.Order, error)
	ListActiveOrders(ctx context.Context, customerID int64) ([]order.Order, error)
	ListOrdersByWeek(ctx context.Context, weekStart, legacyFrom, legacyTo time.Time) ([]order.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status order.OrderStatus) (bool, error)
	UpdateOrderCount(ctx context.Context, id int64, count int, total decimal.Decimal, updatedAt time.Time) error
}

// WindowRepository хранит состояние окна заказов на следующую неделю.
type WindowRepository interface {
	GetWindowState(ctx context.Context) (window.State, error)
	SetWindowState(ctx context.Context, s window.State) error
}

// Storage объединяет все репозитории.
type Storage interface {
	MenuCatalog
	OrderRepository
	WindowRepository

	// Для управления соединением
	Ping(ctx context.Context) error
	Close() error
}
