package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/logger"
	"github.com/VITperson/batumi-lunch-site2/internal/pricing"
	"github.com/VITperson/batumi-lunch-site2/internal/storage"
	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/order"
	"github.com/VITperson/batumi-lunch-site2/internal/util/calendar"
	"github.com/VITperson/batumi-lunch-site2/internal/util/ordercode"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidPortions = order.ErrInvalidPortions
	ErrOrderNotFound   = errors.New("order not found")
	ErrForbidden       = errors.New("order belongs to another customer")
	ErrNotModifiable   = errors.New("order is not modifiable")
	ErrDayUnavailable  = errors.New("day is not available for ordering")
	ErrTooFrequent     = errors.New("orders are submitted too frequently")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrConflictStale   = errors.New("conflict no longer matches the orders of this day")
)

// DayUnavailableError carries the reason a day cannot be ordered.
type DayUnavailableError struct {
	Day    menu.Weekday
	Reason string
}

func (e *DayUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s", e.Day, e.Reason)
}

func (e *DayUnavailableError) Unwrap() error {
	return ErrDayUnavailable
}

const reasonSoldOut = "sold out"

type OutcomeKind string

const (
	OutcomeCreated  OutcomeKind = "created"
	OutcomeReplaced OutcomeKind = "replaced"
	OutcomeMerged   OutcomeKind = "merged"
)

type Outcome struct {
	Kind     OutcomeKind  `json:"outcome"`
	Order    *order.Order `json:"order"`
	Replaced *order.Order `json:"replaced,omitempty"`
}

type Config struct {
	MaxPortions int
	// Cooldown is the minimum gap between two submissions of a customer.
	Cooldown time.Duration
	Location *time.Location
	Clock    calendar.Clock
}

type Service struct {
	repo  OrderRepository
	gate  Gate
	menus WeekLoader
	cfg   Config
	locks *keyedMutex

	mu         sync.Mutex
	lastSubmit map[int64]time.Time
}

func NewService(r OrderRepository, gate Gate, menus WeekLoader, cfg Config) *Service {
	if cfg.MaxPortions <= 0 {
		cfg.MaxPortions = 8
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		repo:       r,
		gate:       gate,
		menus:      menus,
		cfg:        cfg,
		locks:      newKeyedMutex(),
		lastSubmit: make(map[int64]time.Time),
	}
}

func (s *Service) now() time.Time {
	return s.cfg.Clock.In(s.cfg.Location)
}

// PlaceOrder checks out one selection. A same-day order in the same
// delivery week stops it with a *ConflictError.
func (s *Service) PlaceOrder(ctx context.Context, customerID int64, sel order.BasketSelection) (Outcome, error) {
	if err := sel.Validate(s.cfg.MaxPortions); err != nil {
		return Outcome{}, err
	}
	if err := s.checkCooldown(customerID); err != nil {
		return Outcome{}, err
	}
	draft, err := s.draft(ctx, customerID, sel)
	if err != nil {
		return Outcome{}, err
	}

	unlock := s.locks.Lock(weekKey(customerID, *draft.DeliveryWeekStart))
	defer unlock()

	conflict, err := s.DetectConflict(ctx, customerID, sel.Day, *draft.DeliveryWeekStart)
	if err != nil {
		return Outcome{}, err
	}
	if conflict != nil {
		return Outcome{}, &ConflictError{Info: conflict}
	}
	if err := s.create(ctx, draft); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeCreated, Order: draft}, nil
}

// ResolveConflict applies the chosen policy to a conflict returned by
// PlaceOrder. The prior order is re-read and must still be new and still be
// the active order for the conflict's day and delivery week.
func (s *Service) ResolveConflict(ctx context.Context, info ConflictInfo, resolution string, sel order.BasketSelection) (Outcome, error) {
	res, err := ParseResolution(resolution)
	if err != nil {
		return Outcome{}, err
	}
	if err := sel.Validate(s.cfg.MaxPortions); err != nil {
		return Outcome{}, err
	}
	if sel.Day != info.Day {
		return Outcome{}, fmt.Errorf("%w: conflict is for %s", ErrConflictMismatch, info.Day)
	}
	draft, err := s.draft(ctx, info.CustomerID, sel)
	if err != nil {
		return Outcome{}, err
	}
	ws := *draft.DeliveryWeekStart
	if !ws.Equal(calendar.DateOf(info.WeekStart)) {
		return Outcome{}, ErrConflictStale
	}

	unlock := s.locks.Lock(weekKey(info.CustomerID, ws))
	defer unlock()

	prior, err := s.find(ctx, info.PriorOrderID)
	if err != nil {
		return Outcome{}, err
	}
	if prior.CustomerID != info.CustomerID {
		return Outcome{}, ErrForbidden
	}
	if !prior.Status.Modifiable() {
		return Outcome{}, ErrNotModifiable
	}
	// prior must still be the order holding this day and week
	current, err := s.DetectConflict(ctx, info.CustomerID, info.Day, ws)
	if err != nil {
		return Outcome{}, err
	}
	if current == nil || current.PriorOrderID != prior.ID {
		return Outcome{}, ErrConflictStale
	}

	switch res {
	case ResolutionReplace:
		if err := s.replace(ctx, prior, draft); err != nil {
			return Outcome{}, err
		}
		logger.Log.Info("order replaced",
			zap.Int64("prior_order_id", prior.ID),
			zap.Int64("order_id", draft.ID),
		)
		return Outcome{Kind: OutcomeReplaced, Order: draft, Replaced: prior}, nil

	default:
		count := prior.Count + sel.Portions
		if count < 1 {
			count = 1
		}
		if err := s.resize(ctx, prior, count); err != nil {
			return Outcome{}, err
		}
		s.touch(info.CustomerID)
		logger.Log.Info("order merged",
			zap.Int64("order_id", prior.ID),
			zap.Int("added", sel.Portions),
			zap.Int("count", prior.Count),
		)
		return Outcome{Kind: OutcomeMerged, Order: prior}, nil
	}
}

// replace creates next and then cancels prior. When the cancel fails next is
// cancelled so the customer keeps exactly the prior order.
func (s *Service) replace(ctx context.Context, prior, next *order.Order) error {
	if err := s.create(ctx, next); err != nil {
		return err
	}
	err := s.setStatus(ctx, prior.ID, order.StatusCancelledByUser)
	if err == nil {
		prior.Status = order.StatusCancelledByUser
		return nil
	}
	if rbErr := s.setStatus(ctx, next.ID, order.StatusCancelled); rbErr != nil {
		logger.Log.Error("replacement order left active",
			zap.Int64("order_id", next.ID),
			zap.Int64("prior_order_id", prior.ID),
			zap.Error(rbErr),
		)
		return errors.Join(err, rbErr)
	}
	next.Status = order.StatusCancelled
	return err
}

// draft gates and prices sel without touching the store.
func (s *Service) draft(ctx context.Context, customerID int64, sel order.BasketSelection) (*order.Order, error) {
	res, err := s.gate.CheckAvailability(ctx, sel.Day)
	if err != nil {
		return nil, err
	}
	if !res.Allowed {
		return nil, &DayUnavailableError{Day: sel.Day, Reason: res.Reason}
	}
	week, err := s.menus.LoadWeek(ctx, res.WeekStart)
	if err != nil {
		return nil, err
	}
	now := s.now()
	day, err := pricing.PriceDay(sel, week, res.WeekStart, now)
	if err != nil {
		return nil, err
	}
	if !day.Orderable() {
		reason := day.Reason
		if reason == "" {
			reason = reasonSoldOut
		}
		return nil, &DayUnavailableError{Day: sel.Day, Reason: reason}
	}

	ws := res.WeekStart
	return &order.Order{
		Code:              ordercode.New(customerID, now),
		CustomerID:        customerID,
		DeliveryDate:      day.Date,
		Day:               sel.Day,
		Count:             sel.Portions,
		Items:             append([]string(nil), day.Items...),
		UnitPrice:         day.Price,
		Total:             day.Subtotal,
		Status:            order.StatusNew,
		DeliveryWeekStart: &ws,
		NextWeek:          res.TargetsNextWeek,
		CreatedAt:         now,
	}, nil
}

func (s *Service) create(ctx context.Context, o *order.Order) error {
	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	s.touch(o.CustomerID)
	logger.Log.Info("order created",
		zap.Int64("order_id", o.ID),
		zap.String("code", o.Code),
		zap.Int64("customer_id", o.CustomerID),
		zap.String("day", o.Day.String()),
		zap.Int("count", o.Count),
		zap.Bool("next_week", o.NextWeek),
	)
	return nil
}

func (s *Service) checkCooldown(customerID int64) error {
	if s.cfg.Cooldown <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastSubmit[customerID]; ok && s.now().Sub(last) < s.cfg.Cooldown {
		return ErrTooFrequent
	}
	return nil
}

func (s *Service) touch(customerID int64) {
	if s.cfg.Cooldown <= 0 {
		return
	}
	s.mu.Lock()
	s.lastSubmit[customerID] = s.now()
	s.mu.Unlock()
}

func (s *Service) find(ctx context.Context, id int64) (*order.Order, error) {
	o, err := s.repo.FindOrder(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order %d: %w", id, err)
	}
	return o, nil
}

func (s *Service) setStatus(ctx context.Context, id int64, status order.OrderStatus) error {
	ok, err := s.repo.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return fmt.Errorf("update order %d status: %w", id, err)
	}
	if !ok {
		return ErrOrderNotFound
	}
	return nil
}

func (s *Service) resize(ctx context.Context, o *order.Order, count int) error {
	now := s.now()
	total := o.UnitPrice.Mul(decimal.NewFromInt(int64(count)))
	if err := s.repo.UpdateOrderCount(ctx, o.ID, count, total, now); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("update order %d count: %w", o.ID, err)
	}
	o.Count = count
	o.Total = total
	o.UpdatedAt = &now
	return nil
}

// lockOrder serializes changes of o with submissions for the same week.
func (s *Service) lockOrder(o *order.Order) func() {
	ws := calendar.WeekStart(o.CreatedAt.In(s.cfg.Location))
	if o.DeliveryWeekStart != nil {
		ws = calendar.DateOf(*o.DeliveryWeekStart)
	}
	return s.locks.Lock(weekKey(o.CustomerID, ws))
}

// guarded loads order id for actor under its week lock and checks that it
// can still be changed. The returned unlock must be called.
func (s *Service) guarded(ctx context.Context, actor order.Actor, id int64) (*order.Order, func(), error) {
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !actor.Admin && o.CustomerID != actor.CustomerID {
		return nil, nil, ErrForbidden
	}
	unlock := s.lockOrder(o)
	// re-read under the lock
	if o, err = s.find(ctx, id); err != nil {
		unlock()
		return nil, nil, err
	}
	if !o.Status.Modifiable() {
		unlock()
		return nil, nil, ErrNotModifiable
	}
	return o, unlock, nil
}

// CancelOrder cancels a new order. Owners get cancelled_by_user,
// administrators cancelled.
func (s *Service) CancelOrder(ctx context.Context, actor order.Actor, id int64) (*order.Order, error) {
	o, unlock, err := s.guarded(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	status := order.StatusCancelledByUser
	if actor.Admin {
		status = order.StatusCancelled
	}
	if err := s.setStatus(ctx, o.ID, status); err != nil {
		return nil, err
	}
	o.Status = status
	logger.Log.Info("order cancelled",
		zap.Int64("order_id", o.ID),
		zap.String("status", string(status)),
		zap.Bool("admin", actor.Admin),
	)
	return o, nil
}

func (s *Service) UpdateCount(ctx context.Context, actor order.Actor, id int64, count int) (*order.Order, error) {
	if count < 1 || count > s.cfg.MaxPortions {
		return nil, fmt.Errorf("%w: %d, allowed 1..%d", ErrInvalidPortions, count, s.cfg.MaxPortions)
	}
	o, unlock, err := s.guarded(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	prev := o.Count
	if err := s.resize(ctx, o, count); err != nil {
		return nil, err
	}
	logger.Log.Info("order count updated",
		zap.Int64("order_id", o.ID),
		zap.Int("from", prev),
		zap.Int("to", count),
	)
	return o, nil
}

var transitions = map[order.OrderStatus][]order.OrderStatus{
	order.StatusNew:       {order.StatusConfirmed, order.StatusPreparing, order.StatusDelivered, order.StatusFailed},
	order.StatusConfirmed: {order.StatusPreparing, order.StatusDelivered, order.StatusFailed},
	order.StatusPreparing: {order.StatusDelivered, order.StatusFailed},
}

func canTransition(from, to order.OrderStatus) bool {
	for _, st := range transitions[from] {
		if st == to {
			return true
		}
	}
	return false
}

// AdvanceStatus moves an order along the kitchen flow. Cancellation goes
// through CancelOrder.
func (s *Service) AdvanceStatus(ctx context.Context, id int64, status order.OrderStatus) (*order.Order, error) {
	if !status.Valid() || status.IsCancelled() || status == order.StatusNew {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := s.lockOrder(o)
	defer unlock()

	if o, err = s.find(ctx, id); err != nil {
		return nil, err
	}
	if !canTransition(o.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrNotModifiable, o.Status, status)
	}
	if err := s.setStatus(ctx, id, status); err != nil {
		return nil, err
	}
	logger.Log.Info("order status changed",
		zap.Int64("order_id", id),
		zap.String("from", string(o.Status)),
		zap.String("to", string(status)),
	)
	o.Status = status
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, customerID int64) ([]order.Order, error) {
	return s.repo.ListOrdersByUser(ctx, customerID)
}
