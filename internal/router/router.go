package router

import (
	"github.com/VITperson/batumi-lunch-site2/internal/availability"
	"github.com/VITperson/batumi-lunch-site2/internal/logger"
	"github.com/VITperson/batumi-lunch-site2/internal/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/middleware"
	"github.com/VITperson/batumi-lunch-site2/internal/order"
	"github.com/VITperson/batumi-lunch-site2/internal/pricing"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(
	availH *availability.Handler,
	priceH *pricing.Handler,
	orderH *order.Handler,
	menuH *menu.Handler,
	jwtSecret []byte,
	signingKey string,
) chi.Router {
	r := chi.NewRouter()

	r.Use(logger.WithLogging)
	r.Use(chiMiddleware.Recoverer)

	r.Use(middleware.GzipHandler)
	r.Use(middleware.HashHandler(signingKey))

	r.Get("/api/v1/menu/week", menuH.GetWeek)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTMiddleware(jwtSecret))

		r.Get("/api/v1/availability/{day}", availH.CheckAvailability)
		r.Post("/api/v1/orders/calc", priceH.Calculate)
		r.Post("/api/v1/orders", orderH.PlaceOrder)
		r.Post("/api/v1/orders/resolve", orderH.ResolveConflict)
		r.Get("/api/v1/orders", orderH.ListOrders)
		r.Post("/api/v1/orders/{id}/cancel", orderH.CancelOrder)
		r.Patch("/api/v1/orders/{id}", orderH.UpdateCount)

		r.Route("/api/v1/admin", func(r chi.Router) {
			r.Use(middleware.AdminOnly)

			r.Get("/window", availH.GetWindow)
			r.Post("/window/open", availH.OpenWindow)
			r.Post("/window/close", availH.CloseWindow)
			r.Post("/orders/{id}/cancel", orderH.CancelOrder)
			r.Patch("/orders/{id}/status", orderH.AdvanceStatus)
			r.Get("/reports/week", orderH.WeekReport)
		})
	})

	return r
}
