package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/VITperson/batumi-lunch-site2/internal/logger"
	"github.com/VITperson/batumi-lunch-site2/internal/middleware"
	"github.com/VITperson/batumi-lunch-site2/internal/pricing"
	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/order"
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

type conflictPayload struct {
	PriorOrderID int64        `json:"prior_order_id"`
	PriorCode    string       `json:"prior_code,omitempty"`
	PriorCount   int          `json:"prior_count"`
	Day          menu.Weekday `json:"day_of_week"`
	WeekStart    string       `json:"week_start"`
}

type conflictResponse struct {
	Error    string          `json:"error"`
	Conflict conflictPayload `json:"conflict"`
}

type unavailableResponse struct {
	Error  string       `json:"error"`
	Day    menu.Weekday `json:"day_of_week"`
	Reason string       `json:"reason"`
}

type resolveRequest struct {
	Conflict   conflictPayload `json:"conflict"`
	Resolution string          `json:"resolution"`
	Portions   int             `json:"portions"`
}

type countRequest struct {
	Count int `json:"count"`
}

type statusRequest struct {
	Status order.OrderStatus `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err with the status its kind maps to.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *ConflictError
	var unavailable *DayUnavailableError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, conflictResponse{
			Error: ErrConflictPending.Error(),
			Conflict: conflictPayload{
				PriorOrderID: conflict.Info.PriorOrderID,
				PriorCode:    conflict.Info.PriorCode,
				PriorCount:   conflict.Info.PriorCount,
				Day:          conflict.Info.Day,
				WeekStart:    calendar.Format(conflict.Info.WeekStart),
			},
		})
	case errors.As(err, &unavailable):
		writeJSON(w, http.StatusUnprocessableEntity, unavailableResponse{
			Error:  ErrDayUnavailable.Error(),
			Day:    unavailable.Day,
			Reason: unavailable.Reason,
		})
	case errors.Is(err, ErrUnknownResolution),
		errors.Is(err, ErrConflictMismatch),
		errors.Is(err, ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrOrderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrNotModifiable), errors.Is(err, ErrConflictStale):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrTooFrequent):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	default:
		code := pricing.StatusFor(err)
		if code == http.StatusInternalServerError {
			logger.Log.Error("order request failed", zap.String("uri", r.RequestURI), zap.Error(err))
			http.Error(w, http.StatusText(code), code)
			return
		}
		http.Error(w, err.Error(), code)
	}
}

func orderID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var sel order.BasketSelection
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out, err := h.svc.PlaceOrder(r.Context(), middleware.UserIDFromContext(r.Context()), sel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	weekStart, err := calendar.ParseDate(req.Conflict.WeekStart)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	info := ConflictInfo{
		PriorOrderID: req.Conflict.PriorOrderID,
		PriorCount:   req.Conflict.PriorCount,
		CustomerID:   middleware.UserIDFromContext(r.Context()),
		Day:          req.Conflict.Day,
		WeekStart:    weekStart,
	}
	sel := order.BasketSelection{Day: req.Conflict.Day, Portions: req.Portions}
	out, err := h.svc.ResolveConflict(r.Context(), info, req.Resolution, sel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	code := http.StatusOK
	if out.Kind == OutcomeReplaced {
		code = http.StatusCreated
	}
	writeJSON(w, code, out)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOrders(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// CancelOrder serves both the owner and the admin route; the actor comes
// from the token.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}
	o, err := h.svc.CancelOrder(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) UpdateCount(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}
	var req countRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	o, err := h.svc.UpdateCount(r.Context(), middleware.ActorFromContext(r.Context()), id, req.Count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	o, err := h.svc.AdvanceStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// WeekReport takes week_start (defaults to the current week) and an
// optional day query parameter.
func (h *Handler) WeekReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	weekStart := calendar.WeekStart(h.svc.now())
	if v := q.Get("week_start"); v != "" {
		ws, err := calendar.ParseDate(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		weekStart = ws
	}
	var day *menu.Weekday
	if v := q.Get("day"); v != "" {
		d, err := menu.ParseWeekday(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		day = &d
	}
	rep, err := h.svc.WeekReport(r.Context(), weekStart, day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
