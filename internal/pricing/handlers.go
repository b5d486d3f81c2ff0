package pricing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/VITperson/batumi-lunch-site2/internal/logger"
	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/order"
	"github.com/VITperson/batumi-lunch-site2/internal/util/calendar"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type CalcRequest struct {
	WeekStart  string                  `json:"week_start"`
	Selections []order.BasketSelection `json:"selections"`
	WeeksAhead int                     `json:"weeks_ahead"`
	PromoCode  string                  `json:"promo_code"`
	Mode       string                  `json:"mode"`
}

type dayResponse struct {
	DayBreakdown
	Date string `json:"date"`
}

type weekResponse struct {
	WeekStart string          `json:"week_start"`
	Total     decimal.Decimal `json:"total"`
	HasMenu   bool            `json:"has_menu"`
	Days      []dayResponse   `json:"days"`
}

type CalcResponse struct {
	Total        decimal.Decimal `json:"total"`
	Discount     decimal.Decimal `json:"discount"`
	Mode         string          `json:"mode"`
	PromoApplied bool            `json:"promo_code_applied"`
	Weeks        []weekResponse  `json:"weeks"`
}

// ToPriceRequest parses the wire form of a calc request.
func (c CalcRequest) ToPriceRequest() (PriceRequest, error) {
	req := PriceRequest{
		Selections: c.Selections,
		WeeksAhead: c.WeeksAhead,
		PromoCode:  c.PromoCode,
		Mode:       c.Mode,
	}
	if c.WeekStart != "" {
		ws, err := calendar.ParseDate(c.WeekStart)
		if err != nil {
			return PriceRequest{}, err
		}
		req.WeekStart = ws
	}
	return req, nil
}

func NewCalcResponse(p PricedOrder) CalcResponse {
	resp := CalcResponse{
		Total:        p.Total,
		Discount:     p.Discount,
		Mode:         p.Mode,
		PromoApplied: p.PromoApplied,
		Weeks:        make([]weekResponse, 0, len(p.Weeks)),
	}
	for _, wb := range p.Weeks {
		wr := weekResponse{
			WeekStart: calendar.Format(wb.WeekStart),
			Total:     wb.Total,
			HasMenu:   wb.HasMenu,
			Days:      make([]dayResponse, 0, len(wb.Days)),
		}
		for _, d := range wb.Days {
			wr.Days = append(wr.Days, dayResponse{DayBreakdown: d, Date: calendar.Format(d.Date)})
		}
		resp.Weeks = append(resp.Weeks, wr)
	}
	return resp
}

// StatusFor maps pricing and input errors to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, menu.ErrUnknownWeekday),
		errors.Is(err, order.ErrInvalidPortions),
		errors.Is(err, calendar.ErrInvalidDate),
		errors.Is(err, ErrNoSelections),
		errors.Is(err, ErrInvalidWeeksAhead),
		errors.Is(err, ErrInvalidWeekStart),
		errors.Is(err, ErrUnknownMode):
		return http.StatusBadRequest
	case errors.Is(err, ErrMenuUnavailable):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var body CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req, err := body.ToPriceRequest()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	priced, err := h.svc.PriceSelections(r.Context(), req)
	if err != nil {
		code := StatusFor(err)
		if code == http.StatusInternalServerError {
			logger.Log.Error("price selections", zap.Error(err))
			http.Error(w, http.StatusText(code), code)
			return
		}
		http.Error(w, err.Error(), code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(NewCalcResponse(priced))
}
