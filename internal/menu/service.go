package menu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/storage"
	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/util/calendar"
	"github.com/shopspring/decimal"
)

var ErrMenuNotFound = errors.New("menu is not published for this week")

type Service struct {
	repo     CatalogRepository
	location *time.Location
	clock    calendar.Clock
}

func NewService(r CatalogRepository, loc *time.Location, clock calendar.Clock) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: r, location: loc, clock: clock}
}

// DayView is an offer with its price already resolved against the week.
type DayView struct {
	Day          menu.Weekday    `json:"day_of_week"`
	Label        string          `json:"label"`
	Date         string          `json:"date"`
	Items        []string        `json:"items"`
	Calories     *int            `json:"calories,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Status       menu.DayStatus  `json:"status"`
	SoldOut      bool            `json:"sold_out"`
	PortionLimit *int            `json:"portion_limit,omitempty"`
}

type WeekView struct {
	WeekStart    string          `json:"week_start"`
	Title        string          `json:"title,omitempty"`
	DeadlineHour int             `json:"order_deadline_hour"`
	BasePrice    decimal.Decimal `json:"base_price"`
	Days         []DayView       `json:"days"`
}

func (s *Service) CurrentWeekStart() time.Time {
	return calendar.WeekStart(s.clock.In(s.location))
}

// Week returns the published menu of the week starting at weekStart with
// offers ordered Monday to Friday.
func (s *Service) Week(ctx context.Context, weekStart time.Time) (WeekView, error) {
	weekStart = calendar.DateOf(weekStart)
	if !calendar.IsMonday(weekStart) {
		return WeekView{}, fmt.Errorf("%w: week must start on Monday", calendar.ErrInvalidDate)
	}
	week, err := s.repo.GetMenuWeek(ctx, weekStart)
	if errors.Is(err, storage.ErrNotFound) {
		return WeekView{}, ErrMenuNotFound
	}
	if err != nil {
		return WeekView{}, fmt.Errorf("get menu week: %w", err)
	}
	if !week.IsPublished {
		return WeekView{}, ErrMenuNotFound
	}
	offers, err := s.repo.ListDayOffers(ctx, week.ID)
	if err != nil {
		return WeekView{}, fmt.Errorf("list day offers: %w", err)
	}
	week.Offers = offers

	view := WeekView{
		WeekStart:    calendar.Format(weekStart),
		Title:        week.Title,
		DeadlineHour: week.DeadlineHour,
		BasePrice:    week.BasePrice,
		Days:         []DayView{},
	}
	for _, day := range menu.Weekdays {
		offer, ok := week.Offer(day)
		if !ok {
			continue
		}
		view.Days = append(view.Days, DayView{
			Day:          day,
			Label:        day.Label(),
			Date:         calendar.Format(calendar.AddDays(weekStart, day.Index())),
			Items:        offer.Items,
			Calories:     offer.Calories,
			Price:        offer.EffectivePrice(week.BasePrice),
			Status:       offer.Status,
			SoldOut:      offer.IsSoldOut(),
			PortionLimit: offer.PortionLimit,
		})
	}
	return view, nil
}
