package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/logger"
	"github.com/VITperson/batumi-lunch-site2/internal/storage"
	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/window"
	"github.com/VITperson/batumi-lunch-site2/internal/util/calendar"
	"go.uber.org/zap"
)

var ErrWindowAlreadyOpen = errors.New("next week window is already open")

const DefaultDeadlineHour = 10

type Config struct {
	Location     *time.Location
	DeadlineHour int
	Clock        calendar.Clock
}

type Service struct {
	windows WindowRepository
	menus   MenuReader
	cfg     Config

	// serializes read-evaluate-write of the window state
	mu sync.Mutex
}

func NewService(windows WindowRepository, menus MenuReader, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DeadlineHour < 0 || cfg.DeadlineHour > 23 {
		cfg.DeadlineHour = DefaultDeadlineHour
	}
	return &Service{windows: windows, menus: menus, cfg: cfg}
}

// Now is the current instant in the service time zone.
func (s *Service) Now() time.Time {
	return s.cfg.Clock.In(s.cfg.Location)
}

func (s *Service) Location() *time.Location {
	return s.cfg.Location
}

// CheckAvailability resolves day against the stored window. An expired
// window is switched off in storage before returning.
func (s *Service) CheckAvailability(ctx context.Context, day menu.Weekday) (Result, error) {
	if !day.Valid() {
		return Result{}, fmt.Errorf("%w: %d", menu.ErrUnknownWeekday, int(day))
	}
	now := s.Now()
	deadline, err := s.DeadlineHour(ctx, now)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.windows.GetWindowState(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("get window state: %w", err)
	}
	res := Resolve(day, now, st, deadline)
	if res.WindowExpired {
		if err := s.expire(ctx, st); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

// WindowState returns the stored window, disabling it first when expired.
func (s *Service) WindowState(ctx context.Context) (window.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(ctx, calendar.DateOf(s.Now()))
}

func (s *Service) current(ctx context.Context, today time.Time) (window.State, error) {
	st, err := s.windows.GetWindowState(ctx)
	if err != nil {
		return window.State{}, fmt.Errorf("get window state: %w", err)
	}
	if _, expired := st.Evaluate(today); expired {
		if err := s.expire(ctx, st); err != nil {
			return window.State{}, err
		}
		return window.Disabled(), nil
	}
	return st, nil
}

func (s *Service) expire(ctx context.Context, prev window.State) error {
	if err := s.windows.SetWindowState(ctx, window.Disabled()); err != nil {
		return fmt.Errorf("disable expired window: %w", err)
	}
	fields := []zap.Field{}
	if prev.WeekStart != nil {
		fields = append(fields, zap.String("week_start", calendar.Format(*prev.WeekStart)))
	}
	logger.Log.Info("next week window expired", fields...)
	return nil
}

// OpenNextWeek enables ordering for the first Monday after today.
func (s *Service) OpenNextWeek(ctx context.Context) (window.State, error) {
	now := s.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.current(ctx, calendar.DateOf(now))
	if err != nil {
		return window.State{}, err
	}
	if st.Enabled {
		return st, ErrWindowAlreadyOpen
	}
	next := window.Open(calendar.NextWeekStart(now))
	if err := s.windows.SetWindowState(ctx, next); err != nil {
		return window.State{}, fmt.Errorf("open window: %w", err)
	}
	logger.Log.Info("next week window opened", zap.String("week_start", calendar.Format(*next.WeekStart)))
	return next, nil
}

func (s *Service) CloseNextWeek(ctx context.Context) (window.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.windows.SetWindowState(ctx, window.Disabled()); err != nil {
		return window.State{}, fmt.Errorf("close window: %w", err)
	}
	logger.Log.Info("next week window closed")
	return window.Disabled(), nil
}

// DeadlineHour is the cutoff of the week containing now: the published
// menu's value, or the configured default.
func (s *Service) DeadlineHour(ctx context.Context, now time.Time) (int, error) {
	w, err := s.menus.GetMenuWeek(ctx, calendar.WeekStart(now))
	if errors.Is(err, storage.ErrNotFound) {
		return s.cfg.DeadlineHour, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get menu week: %w", err)
	}
	if !w.IsPublished || w.DeadlineHour < 0 || w.DeadlineHour > 23 {
		return s.cfg.DeadlineHour, nil
	}
	return w.DeadlineHour, nil
}
