package order

import (
	"context"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/types/order"
	"github.com/shopspring/decimal"
)

type mockRepo struct {
	createOrderFn       func(ctx context.Context, o *order.Order) error
	findOrderFn         func(ctx context.Context, id int64) (*order.Order, error)
	listOrdersByUserFn  func(ctx context.Context, customerID int64) ([]order.Order, error)
	listActiveOrdersFn  func(ctx context.Context, customerID int64) ([]order.Order, error)
	listOrdersByWeekFn  func(ctx context.Context, weekStart, from, to time.Time) ([]order.Order, error)
	updateOrderStatusFn func(ctx context.Context, id int64, status order.OrderStatus) (bool, error)
	updateOrderCountFn  func(ctx context.Context, id int64, count int, total decimal.Decimal, updatedAt time.Time) error
}

func (m *mockRepo) CreateOrder(ctx context.Context, o *order.Order) error {
	return m.createOrderFn(ctx, o)
}
func (m *mockRepo) FindOrder(ctx context.Context, id int64) (*order.Order, error) {
	return m.findOrderFn(ctx, id)
}
func (m *mockRepo) ListOrdersByUser(ctx context.Context, customerID int64) ([]order.Order, error) {
	return m.listOrdersByUserFn(ctx, customerID)
}
func (m *mockRepo) ListActiveOrders(ctx context.Context, customerID int64) ([]order.Order, error) {
	return m.listActiveOrdersFn(ctx, customerID)
}
func (m *mockRepo) ListOrdersByWeek(ctx context.Context, weekStart, from, to time.Time) ([]order.Order, error) {
	return m.listOrdersByWeekFn(ctx, weekStart, from, to)
}
func (m *mockRepo) UpdateOrderStatus(ctx context.Context, id int64, status order.OrderStatus) (bool, error) {
	return m.updateOrderStatusFn(ctx, id, status)
}
func (m *mockRepo) UpdateOrderCount(ctx context.Context, id int64, count int, total decimal.Decimal, updatedAt time.Time) error {
	return m.updateOrderCountFn(ctx, id, count, total, updatedAt)
}
