package menu

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/VITperson/batumi-lunch-site2/internal/logger"
	"github.com/VITperson/batumi-lunch-site2/internal/util/calendar"
	"go.uber.org/zap"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetWeek serves the menu of week_start, or of the current week when the
// parameter is absent.
func (h *Handler) GetWeek(w http.ResponseWriter, r *http.Request) {
	weekStart := h.svc.CurrentWeekStart()
	if v := r.URL.Query().Get("week_start"); v != "" {
		ws, err := calendar.ParseDate(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		weekStart = ws
	}

	view, err := h.svc.Week(r.Context(), weekStart)
	switch {
	case errors.Is(err, calendar.ErrInvalidDate):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, ErrMenuNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		logger.Log.Error("get menu week", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}
