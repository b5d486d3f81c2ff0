package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/storage"
	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/order"
	"github.com/VITperson/batumi-lunch-site2/internal/util/calendar"
	"github.com/shopspring/decimal"
)

var (
	ErrNoSelections      = errors.New("no selections provided")
	ErrInvalidWeeksAhead = errors.New("invalid weeks ahead")
	ErrInvalidWeekStart  = errors.New("week start must be a Monday")
	ErrUnknownMode       = errors.New("unknown order mode")
)

const (
	ModeSingle       = "single"
	ModeMultiweek    = "multiweek"
	ModeSubscription = "subscription"
)

type Config struct {
	MaxPortions   int
	MaxWeeksAhead int
	PromoDiscount decimal.Decimal
	Location      *time.Location
	Clock         calendar.Clock
}

type PriceRequest struct {
	WeekStart  time.Time
	Selections []order.BasketSelection
	WeeksAhead int
	PromoCode  string
	Mode       string
}

type PricedOrder struct {
	Mode         string
	Weeks        []WeekBreakdown
	Total        decimal.Decimal
	Discount     decimal.Decimal
	PromoApplied bool
}

type Service struct {
	menus MenuCatalog
	cfg   Config
}

func NewService(menus MenuCatalog, cfg Config) *Service {
	if cfg.MaxPortions <= 0 {
		cfg.MaxPortions = 8
	}
	if cfg.MaxWeeksAhead <= 0 {
		cfg.MaxWeeksAhead = 8
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{menus: menus, cfg: cfg}
}

func (s *Service) MaxPortions() int {
	return s.cfg.MaxPortions
}

// PriceSelections prices the same selections for WeeksAhead consecutive
// weeks. Weeks without a menu are reported with HasMenu=false and add
// nothing. The promo discount comes off the grand total once.
func (s *Service) PriceSelections(ctx context.Context, req PriceRequest) (PricedOrder, error) {
	now := s.cfg.Clock.In(s.cfg.Location)
	if err := s.validate(&req, now); err != nil {
		return PricedOrder{}, err
	}

	out := PricedOrder{
		Mode:     req.Mode,
		Weeks:    make([]WeekBreakdown, 0, req.WeeksAhead),
		Total:    decimal.Zero,
		Discount: decimal.Zero,
	}
	for i := 0; i < req.WeeksAhead; i++ {
		ws := calendar.AddDays(req.WeekStart, 7*i)
		week, err := s.LoadWeek(ctx, ws)
		if errors.Is(err, ErrMenuUnavailable) {
			out.Weeks = append(out.Weeks, WeekBreakdown{WeekStart: ws, Days: []DayBreakdown{}, Total: decimal.Zero})
			continue
		}
		if err != nil {
			return PricedOrder{}, err
		}
		wb, err := PriceWeek(req.Selections, week, ws, now)
		if err != nil {
			return PricedOrder{}, fmt.Errorf("week %s: %w", calendar.Format(ws), err)
		}
		out.Weeks = append(out.Weeks, wb)
		out.Total = out.Total.Add(wb.Total)
	}

	if strings.TrimSpace(req.PromoCode) != "" {
		out.PromoApplied = true
		out.Discount = decimal.Min(s.cfg.PromoDiscount, out.Total)
		if out.Discount.IsNegative() {
			out.Discount = decimal.Zero
		}
		out.Total = out.Total.Sub(out.Discount)
	}
	return out, nil
}

func (s *Service) validate(req *PriceRequest, now time.Time) error {
	if len(req.Selections) == 0 {
		return ErrNoSelections
	}
	for _, sel := range req.Selections {
		if err := sel.Validate(s.cfg.MaxPortions); err != nil {
			return err
		}
	}
	if req.WeeksAhead == 0 {
		req.WeeksAhead = 1
	}
	if req.WeeksAhead < 1 || req.WeeksAhead > s.cfg.MaxWeeksAhead {
		return fmt.Errorf("%w: %d, allowed 1..%d", ErrInvalidWeeksAhead, req.WeeksAhead, s.cfg.MaxWeeksAhead)
	}
	if req.WeekStart.IsZero() {
		req.WeekStart = calendar.WeekStart(now)
	}
	req.WeekStart = calendar.DateOf(req.WeekStart)
	if !calendar.IsMonday(req.WeekStart) {
		return fmt.Errorf("%w: %s", ErrInvalidWeekStart, calendar.Format(req.WeekStart))
	}
	switch req.Mode {
	case "":
		req.Mode = ModeSingle
	case ModeSingle, ModeMultiweek, ModeSubscription:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}
	return nil
}

// LoadWeek reads the published menu week starting at weekStart with its
// offers. Draft weeks count as missing.
func (s *Service) LoadWeek(ctx context.Context, weekStart time.Time) (*menu.MenuWeek, error) {
	week, err := s.menus.GetMenuWeek(ctx, weekStart)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: no menu for week %s", ErrMenuUnavailable, calendar.Format(weekStart))
	}
	if err != nil {
		return nil, fmt.Errorf("get menu week: %w", err)
	}
	if !week.IsPublished {
		return nil, fmt.Errorf("%w: menu for week %s is not published", ErrMenuUnavailable, calendar.Format(weekStart))
	}
	offers, err := s.menus.ListDayOffers(ctx, week.ID)
	if err != nil {
		return nil, fmt.Errorf("list day offers: %w", err)
	}
	week.Offers = offers
	return week, nil
}
