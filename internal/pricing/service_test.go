package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/storage/memory"
	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/order"
	"github.com/VITperson/batumi-lunch-site2/internal/util/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(now time.Time) (*Service, *memory.Storage) {
	store := memory.New()
	store.PutMenuWeek(*testWeek())
	svc := NewService(store, Config{
		MaxPortions:   8,
		MaxWeeksAhead: 8,
		PromoDiscount: dec(5),
		Clock:         func() time.Time { return now },
	})
	return svc, store
}

func TestPriceSelectionsMultiWeek(t *testing.T) {
	svc, _ := newTestService(time.Date(2024, 3, 17, 9, 0, 0, 0, time.UTC))
	priced, err := svc.PriceSelections(context.Background(), PriceRequest{
		WeekStart:  weekStart,
		Selections: []order.BasketSelection{{Day: menu.Monday, Portions: 2}},
		WeeksAhead: 3,
	})
	require.NoError(t, err)

	require.Len(t, priced.Weeks, 3)
	assert.True(t, priced.Weeks[0].HasMenu)
	assert.False(t, priced.Weeks[1].HasMenu)
	assert.False(t, priced.Weeks[2].HasMenu)
	assert.Equal(t, weekStart.AddDate(0, 0, 14), priced.Weeks[2].WeekStart)
	assert.True(t, priced.Total.Equal(dec(30)))
	assert.False(t, priced.PromoApplied)
	assert.Equal(t, ModeSingle, priced.Mode)
}

func TestPriceSelectionsPromo(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		promo    string
		applied  bool
		discount int64
		total    int64
	}{
		{name: "no promo", now: time.Date(2024, 3, 17, 9, 0, 0, 0, time.UTC), total: 30},
		{name: "blank promo", now: time.Date(2024, 3, 17, 9, 0, 0, 0, time.UTC), promo: "  ", total: 30},
		{name: "promo", now: time.Date(2024, 3, 17, 9, 0, 0, 0, time.UTC), promo: "LUNCH", applied: true, discount: 5, total: 25},
		{name: "promo capped at total", now: time.Date(2024, 3, 18, 11, 0, 0, 0, time.UTC), promo: "LUNCH", applied: true, discount: 0, total: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(tt.now)
			priced, err := svc.PriceSelections(context.Background(), PriceRequest{
				WeekStart:  weekStart,
				Selections: []order.BasketSelection{{Day: menu.Monday, Portions: 2}},
				WeeksAhead: 2,
				PromoCode:  tt.promo,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.applied, priced.PromoApplied)
			assert.True(t, priced.Discount.Equal(dec(tt.discount)), "discount %s", priced.Discount)
			assert.True(t, priced.Total.Equal(dec(tt.total)), "total %s", priced.Total)
		})
	}
}

func TestPriceSelectionsValidation(t *testing.T) {
	svc, _ := newTestService(time.Date(2024, 3, 17, 9, 0, 0, 0, time.UTC))
	monday2 := []order.BasketSelection{{Day: menu.Monday, Portions: 2}}
	tests := []struct {
		name string
		req  PriceRequest
		want error
	}{
		{name: "no selections", req: PriceRequest{WeekStart: weekStart}, want: ErrNoSelections},
		{name: "zero portions", req: PriceRequest{WeekStart: weekStart, Selections: []order.BasketSelection{{Day: menu.Monday}}}, want: order.ErrInvalidPortions},
		{name: "too many portions", req: PriceRequest{WeekStart: weekStart, Selections: []order.BasketSelection{{Day: menu.Monday, Portions: 9}}}, want: order.ErrInvalidPortions},
		{name: "bad weekday", req: PriceRequest{WeekStart: weekStart, Selections: []order.BasketSelection{{Day: menu.Weekday(7), Portions: 1}}}, want: menu.ErrUnknownWeekday},
		{name: "weeks ahead", req: PriceRequest{WeekStart: weekStart, Selections: monday2, WeeksAhead: 9}, want: ErrInvalidWeeksAhead},
		{name: "negative weeks ahead", req: PriceRequest{WeekStart: weekStart, Selections: monday2, WeeksAhead: -1}, want: ErrInvalidWeeksAhead},
		{name: "tuesday start", req: PriceRequest{WeekStart: weekStart.AddDate(0, 0, 1), Selections: monday2}, want: ErrInvalidWeekStart},
		{name: "mode", req: PriceRequest{WeekStart: weekStart, Selections: monday2, Mode: "yearly"}, want: ErrUnknownMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PriceSelections(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, http.StatusBadRequest, StatusFor(err))
		})
	}
}

func TestPriceSelectionsDefaultsToCurrentWeek(t *testing.T) {
	svc, _ := newTestService(time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC))
	priced, err := svc.PriceSelections(context.Background(), PriceRequest{
		Selections: []order.BasketSelection{{Day: menu.Friday, Portions: 1}},
	})
	require.NoError(t, err)
	require.Len(t, priced.Weeks, 1)
	assert.Equal(t, weekStart, priced.Weeks[0].WeekStart)
	assert.Equal(t, "17.5", priced.Total.String())
}

func TestPriceSelectionsMissingDayOffer(t *testing.T) {
	svc, store := newTestService(time.Date(2024, 3, 17, 9, 0, 0, 0, time.UTC))
	store.PutMenuWeek(menu.MenuWeek{WeekStart: weekStart.AddDate(0, 0, 7), IsPublished: true, BasePrice: dec(15), DeadlineHour: 10})

	_, err := svc.PriceSelections(context.Background(), PriceRequest{
		WeekStart:  weekStart.AddDate(0, 0, 7),
		Selections: []order.BasketSelection{{Day: menu.Monday, Portions: 1}},
	})
	assert.ErrorIs(t, err, ErrMenuUnavailable)
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(err))
}

func TestDraftMenuWeekIsNotPriced(t *testing.T) {
	svc, store := newTestService(time.Date(2024, 3, 17, 9, 0, 0, 0, time.UTC))
	draft := *testWeek()
	draft.WeekStart = weekStart.AddDate(0, 0, 7)
	draft.IsPublished = false
	store.PutMenuWeek(draft)

	_, err := svc.LoadWeek(context.Background(), draft.WeekStart)
	assert.ErrorIs(t, err, ErrMenuUnavailable)

	priced, err := svc.PriceSelections(context.Background(), PriceRequest{
		WeekStart:  draft.WeekStart,
		Selections: []order.BasketSelection{{Day: menu.Monday, Portions: 2}},
	})
	require.NoError(t, err)
	require.Len(t, priced.Weeks, 1)
	assert.False(t, priced.Weeks[0].HasMenu)
	assert.True(t, priced.Total.IsZero())
}

type brokenCatalog struct{}

func (brokenCatalog) GetMenuWeek(ctx context.Context, weekStart time.Time) (*menu.MenuWeek, error) {
	return nil, errors.New("db down")
}

func (brokenCatalog) ListDayOffers(ctx context.Context, menuWeekID int64) ([]menu.DayOffer, error) {
	return nil, nil
}

func TestPriceSelectionsCatalogError(t *testing.T) {
	svc := NewService(brokenCatalog{}, Config{})
	_, err := svc.PriceSelections(context.Background(), PriceRequest{
		WeekStart:  weekStart,
		Selections: []order.BasketSelection{{Day: menu.Monday, Portions: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, StatusFor(err))
	assert.Equal(t, 8, svc.MaxPortions())
}

func TestCalculateHandler(t *testing.T) {
	svc, _ := newTestService(time.Date(2024, 3, 17, 9, 0, 0, 0, time.UTC))
	h := NewHandler(svc)

	t.Run("ok", func(t *testing.T) {
		body := `{"week_start":"2024-03-18","selections":[{"day_of_week":"monday","portions":2},{"day_of_week":"Вторник","portions":1}],"promo_code":"HELLO"}`
		rec := httptest.NewRecorder()
		h.Calculate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders/calc", bytes.NewBufferString(body)))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp CalcResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Total.Equal(dec(25)))
		assert.True(t, resp.Discount.Equal(dec(5)))
		assert.True(t, resp.PromoApplied)
		require.Len(t, resp.Weeks, 1)
		assert.Equal(t, "2024-03-18", resp.Weeks[0].WeekStart)
		require.Len(t, resp.Weeks[0].Days, 2)
		assert.Equal(t, "2024-03-19", resp.Weeks[0].Days[1].Date)
		assert.True(t, resp.Weeks[0].Days[1].SoldOut)
	})

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "broken json", body: `{`, code: http.StatusBadRequest},
		{name: "unknown day", body: `{"selections":[{"day_of_week":"sunday","portions":1}]}`, code: http.StatusBadRequest},
		{name: "bad date", body: `{"week_start":"18.03.2024","selections":[{"day_of_week":"monday","portions":1}]}`, code: http.StatusBadRequest},
		{name: "no menu day", body: `{"week_start":"2024-03-25","selections":[{"day_of_week":"monday","portions":1}]}`, code: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Calculate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders/calc", bytes.NewBufferString(tt.body)))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestToPriceRequest(t *testing.T) {
	req, err := CalcRequest{WeekStart: "2024-03-18", WeeksAhead: 2}.ToPriceRequest()
	require.NoError(t, err)
	assert.Equal(t, weekStart, req.WeekStart)
	assert.Equal(t, 2, req.WeeksAhead)

	_, err = CalcRequest{WeekStart: "monday"}.ToPriceRequest()
	assert.ErrorIs(t, err, calendar.ErrInvalidDate)
}
