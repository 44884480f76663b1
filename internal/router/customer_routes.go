package router

import (
	"github.com/labstack/echo/v4"

	"github.com/bookhaven/bookstore-api/internal/handler"
	"github.com/bookhaven/bookstore-api/internal/middleware"
)

// RegisterCustomer registers the endpoints an authenticated customer
// uses: placing and viewing their own orders and managing their own
// reviews. Any authenticated role may call these; ownership checks in
// the handlers keep users inside their own data.
func RegisterCustomer(e *echo.Echo, o *handler.OrderHandler, r *handler.ReviewHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))

	// Checkout: prices and totals are computed server side, stock
	// decrements and the order insert share one transaction.
	g.POST("/orders", o.PlaceOrder)
	g.GET("/orders", o.ListOrders)
	g.GET("/orders/:id", o.GetOrder)

	// One review per user per book; edits and deletes are owner-only.
	// POST takes the book id; PUT and DELETE take the review id.
	g.POST("/reviews/:id", r.Create)
	g.PUT("/reviews/:id", r.Update)
	g.DELETE("/reviews/:id", r.Delete)
}
