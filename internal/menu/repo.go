package menu

import (
	"context"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
)

type CatalogRepository interface {
	GetMenuWeek(ctx context.Context, weekStart time.Time) (*menu.MenuWeek, error)
	ListDayOffers(ctx context.Context, menuWeekID int64) ([]menu.DayOffer, error)
}
