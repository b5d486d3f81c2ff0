package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/logger"
	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/order"
	"github.com/VITperson/batumi-lunch-site2/internal/util/calendar"
	"go.uber.org/zap"
)

var (
	ErrConflictPending   = errors.New("an order for this day already exists, choose replace or merge")
	ErrUnknownResolution = errors.New("unknown resolution, expected replace or merge")
	ErrConflictMismatch  = errors.New("selection does not match the pending conflict")
)

type Resolution string

const (
	ResolutionReplace Resolution = "replace"
	ResolutionMerge   Resolution = "merge"
)

// ParseResolution accepts only the two known policies. Anything else keeps
// the conflict pending so the caller can ask again.
func ParseResolution(s string) (Resolution, error) {
	switch Resolution(strings.ToLower(strings.TrimSpace(s))) {
	case ResolutionReplace:
		return ResolutionReplace, nil
	case ResolutionMerge:
		return ResolutionMerge, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResolution, s)
}

// ConflictInfo describes the active order that blocks a new submission.
type ConflictInfo struct {
	PriorOrderID int64        `json:"prior_order_id"`
	PriorCode    string       `json:"prior_code"`
	PriorCount   int          `json:"prior_count"`
	CustomerID   int64        `json:"-"`
	Day          menu.Weekday `json:"day_of_week"`
	WeekStart    time.Time    `json:"week_start"`
}

type ConflictError struct {
	Info *ConflictInfo
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("order %d already covers %s of week %s",
		e.Info.PriorOrderID, e.Info.Day, calendar.Format(e.Info.WeekStart))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflictPending
}

// DetectConflict finds the customer's active order for day in the delivery
// week starting at weekStart. Orders without a stored delivery week are
// matched by creation time. The most recently created match wins.
func (s *Service) DetectConflict(ctx context.Context, customerID int64, day menu.Weekday, weekStart time.Time) (*ConflictInfo, error) {
	active, err := s.repo.ListActiveOrders(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}
	weekStart = calendar.DateOf(weekStart)
	from, to := s.legacyRange(weekStart)

	var best *order.Order
	for i := range active {
		o := &active[i]
		if o.Status.IsCancelled() || o.Day != day || !inWeek(o, weekStart, from, to) {
			continue
		}
		if best == nil || o.CreatedAt.After(best.CreatedAt) ||
			(o.CreatedAt.Equal(best.CreatedAt) && o.ID > best.ID) {
			best = o
		}
	}
	if best == nil {
		return nil, nil
	}
	info := &ConflictInfo{
		PriorOrderID: best.ID,
		PriorCode:    best.Code,
		PriorCount:   best.Count,
		CustomerID:   customerID,
		Day:          day,
		WeekStart:    weekStart,
	}
	logger.Log.Info("order conflict detected",
		zap.Int64("customer_id", customerID),
		zap.Int64("prior_order_id", best.ID),
		zap.String("day", day.String()),
		zap.String("week_start", calendar.Format(weekStart)),
	)
	return info, nil
}

func inWeek(o *order.Order, weekStart, from, to time.Time) bool {
	if o.DeliveryWeekStart != nil {
		return calendar.DateOf(*o.DeliveryWeekStart).Equal(weekStart)
	}
	return !o.CreatedAt.Before(from) && o.CreatedAt.Before(to)
}

// legacyRange is the week as instants in the service time zone.
func (s *Service) legacyRange(weekStart time.Time) (time.Time, time.Time) {
	y, m, d := weekStart.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, s.cfg.Location)
	return from, from.AddDate(0, 0, 7)
}
