package availability

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/VITperson/batumi-lunch-site2/internal/logger"
	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/window"
	"github.com/VITperson/batumi-lunch-site2/internal/util/calendar"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type resultResponse struct {
	Day             menu.Weekday `json:"day_of_week"`
	Allowed         bool         `json:"allowed"`
	Reason          string       `json:"reason,omitempty"`
	TargetsNextWeek bool         `json:"targets_next_week"`
	WeekStart       string       `json:"week_start"`
	DeliveryDate    string       `json:"delivery_date"`
}

type windowResponse struct {
	Enabled   bool   `json:"next_week_enabled"`
	WeekStart string `json:"week_start,omitempty"`
}

func toWindowResponse(st window.State) windowResponse {
	resp := windowResponse{Enabled: st.Enabled}
	if st.Enabled && st.WeekStart != nil {
		resp.WeekStart = calendar.Format(*st.WeekStart)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.Log.Error("request failed", zap.String("uri", r.RequestURI), zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	day, err := menu.ParseWeekday(chi.URLParam(r, "day"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.svc.CheckAvailability(r.Context(), day)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{
		Day:             res.Day,
		Allowed:         res.Allowed,
		Reason:          res.Reason,
		TargetsNextWeek: res.TargetsNextWeek,
		WeekStart:       calendar.Format(res.WeekStart),
		DeliveryDate:    calendar.Format(res.DeliveryDate),
	})
}

func (h *Handler) GetWindow(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.WindowState(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWindowResponse(st))
}

func (h *Handler) OpenWindow(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.OpenNextWeek(r.Context())
	switch {
	case errors.Is(err, ErrWindowAlreadyOpen):
		writeJSON(w, http.StatusConflict, toWindowResponse(st))
	case err != nil:
		internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, toWindowResponse(st))
	}
}

func (h *Handler) CloseWindow(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.CloseNextWeek(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWindowResponse(st))
}
