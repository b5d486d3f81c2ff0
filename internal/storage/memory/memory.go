// Package memory is a process-local Storage used when no DATABASE_URI is
// configured and by tests. Records are copied in and out so callers never
// share memory with the store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/storage"
	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/order"
	"github.com/VITperson/batumi-lunch-site2/internal/types/window"
	"github.com/shopspring/decimal"
)

type Storage struct {
	mu         sync.RWMutex
	weeks      map[string]menu.MenuWeek
	orders     []order.Order
	win        window.State
	weekSeq    int64
	offerSeq   int64
	orderSeq   int64
	windowSets int
}

var _ storage.Storage = (*Storage)(nil)

func New() *Storage {
	return &Storage{weeks: make(map[string]menu.MenuWeek)}
}

func weekKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// PutMenuWeek inserts or replaces the menu published for w.WeekStart.
// Offers for an already present weekday replace the earlier one.
func (s *Storage) PutMenuWeek(w menu.MenuWeek) menu.MenuWeek {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.weeks[weekKey(w.WeekStart)]; ok {
		w.ID = existing.ID
	} else {
		s.weekSeq++
		w.ID = s.weekSeq
	}
	byDay := make(map[menu.Weekday]int)
	offers := make([]menu.DayOffer, 0, len(w.Offers))
	for _, o := range w.Offers {
		if o.ID == 0 {
			s.offerSeq++
			o.ID = s.offerSeq
		}
		o.MenuWeekID = w.ID
		o.Items = append([]string(nil), o.Items...)
		if i, ok := byDay[o.Day]; ok {
			offers[i] = o
			continue
		}
		byDay[o.Day] = len(offers)
		offers = append(offers, o)
	}
	sort.Slice(offers, func(i, j int) bool { return offers[i].Day < offers[j].Day })
	w.Offers = offers
	s.weeks[weekKey(w.WeekStart)] = w
	return copyWeek(w)
}

// LoadMenus reads a JSON array of menu weeks and puts each of them.
func (s *Storage) LoadMenus(r io.Reader) (int, error) {
	var weeks []menu.MenuWeek
	if err := json.NewDecoder(r).Decode(&weeks); err != nil {
		return 0, fmt.Errorf("decode menu weeks: %w", err)
	}
	for _, w := range weeks {
		w.WeekStart = time.Date(w.WeekStart.Year(), w.WeekStart.Month(), w.WeekStart.Day(), 0, 0, 0, 0, time.UTC)
		s.PutMenuWeek(w)
	}
	return len(weeks), nil
}

func (s *Storage) GetMenuWeek(ctx context.Context, weekStart time.Time) (*menu.MenuWeek, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.weeks[weekKey(weekStart)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := copyWeek(w)
	out.Offers = nil
	return &out, nil
}

func (s *Storage) ListDayOffers(ctx context.Context, menuWeekID int64) ([]menu.DayOffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.weeks {
		if w.ID == menuWeekID {
			return copyWeek(w).Offers, nil
		}
	}
	return nil, nil
}

func (s *Storage) CreateOrder(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderSeq++
	o.ID = s.orderSeq
	s.orders = append(s.orders, copyOrder(*o))
	return nil
}

func (s *Storage) FindOrder(ctx context.Context, id int64) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.ID == id {
			out := copyOrder(o)
			return &out, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Storage) ListOrdersByUser(ctx context.Context, customerID int64) ([]order.Order, error) {
	return s.filter(func(o order.Order) bool { return o.CustomerID == customerID }), nil
}

func (s *Storage) ListActiveOrders(ctx context.Context, customerID int64) ([]order.Order, error) {
	return s.filter(func(o order.Order) bool {
		return o.CustomerID == customerID && !o.Status.IsCancelled()
	}), nil
}

func (s *Storage) ListOrdersByWeek(ctx context.Context, weekStart, legacyFrom, legacyTo time.Time) ([]order.Order, error) {
	return s.filter(func(o order.Order) bool {
		if o.DeliveryWeekStart != nil {
			return o.DeliveryWeekStart.Equal(weekStart)
		}
		return !o.CreatedAt.Before(legacyFrom) && o.CreatedAt.Before(legacyTo)
	}), nil
}

func (s *Storage) UpdateOrderStatus(ctx context.Context, id int64, status order.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders[i].Status = status
			return true, nil
		}
	}
	return false, nil
}

func (s *Storage) UpdateOrderCount(ctx context.Context, id int64, count int, total decimal.Decimal, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders[i].Count = count
			s.orders[i].Total = total
			s.orders[i].UpdatedAt = &updatedAt
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Storage) GetWindowState(ctx context.Context) (window.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyWindow(s.win), nil
}

func (s *Storage) SetWindowState(ctx context.Context, st window.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.win = copyWindow(st)
	s.windowSets++
	return nil
}

// WindowWrites counts SetWindowState calls.
func (s *Storage) WindowWrites() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.windowSets
}

func (s *Storage) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Storage) Close() error { return nil }

// filter returns matches newest first, like the SQL store.
func (s *Storage) filter(keep func(order.Order) bool) []order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []order.Order
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, copyOrder(o))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func copyWeek(w menu.MenuWeek) menu.MenuWeek {
	offers := make([]menu.DayOffer, len(w.Offers))
	for i, o := range w.Offers {
		o.Items = append([]string(nil), o.Items...)
		offers[i] = o
	}
	w.Offers = offers
	return w
}

func copyOrder(o order.Order) order.Order {
	o.Items = append([]string(nil), o.Items...)
	if o.DeliveryWeekStart != nil {
		ws := *o.DeliveryWeekStart
		o.DeliveryWeekStart = &ws
	}
	if o.UpdatedAt != nil {
		u := *o.UpdatedAt
		o.UpdatedAt = &u
	}
	return o
}

func copyWindow(st window.State) window.State {
	if st.WeekStart != nil {
		ws := *st.WeekStart
		st.WeekStart = &ws
	}
	return st
}
