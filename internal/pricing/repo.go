package pricing

import (
	"context"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
)

type MenuCatalog interface {
	GetMenuWeek(ctx context.Context, weekStart time.Time) (*menu.MenuWeek, error)
	ListDayOffers(ctx context.Context, menuWeekID int64) ([]menu.DayOffer, error)
}
