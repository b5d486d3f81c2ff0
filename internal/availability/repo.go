package availability

import (
	"context"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/window"
)

type WindowRepository interface {
	GetWindowState(ctx context.Context) (window.State, error)
	SetWindowState(ctx context.Context, s window.State) error
}

type MenuReader interface {
	GetMenuWeek(ctx context.Context, weekStart time.Time) (*menu.MenuWeek, error)
}
