package availability

import (
	"context"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/logger"
	"github.com/VITperson/batumi-lunch-site2/internal/types/window"
	"go.uber.org/zap"
)

type WindowReader interface {
	WindowState(ctx context.Context) (window.State, error)
}

// ExpiryLoop re-reads the window every interval so an expired window is
// switched off in storage even when nobody is ordering.
func ExpiryLoop(ctx context.Context, svc WindowReader, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Log.Info("window sweeper started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("window sweeper stopped")
			return
		case <-ticker.C:
			sweep(ctx, svc)
		}
	}
}

func sweep(ctx context.Context, svc WindowReader) {
	st, err := svc.WindowState(ctx)
	if err != nil {
		logger.Log.Warn("window sweep failed", zap.Error(err))
		return
	}
	logger.Log.Debug("window swept", zap.Bool("enabled", st.Enabled))
}
