package router

import (
	"github.com/labstack/echo/v4"

	"github.com/bookhaven/bookstore-api/internal/handler"
	"github.com/bookhaven/bookstore-api/internal/middleware"
)

// RegisterAdmin registers the back-office surface. Every route in here
// requires a valid access token carrying the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, b *handler.BookHandler,
	imp *handler.ImportHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN"))

	// Book management. The public read side lives in RegisterCatalog.
	g.POST("/books", b.CreateBook)
	g.PUT("/books/:id", b.UpdateBook)
	g.DELETE("/books/:id", b.DeleteBook)

	admin := g.Group("/admin")
	admin.GET("/stats", a.DashboardStats)
	admin.GET("/orders", a.ListOrders)
	admin.PUT("/orders/:id/status", a.UpdateOrderStatus)
	admin.POST("/orders/:id/paid", a.MarkOrderPaid)
	admin.GET("/users", a.ListUsers)

	admin.POST("/categories", a.CreateCategory)
	admin.PUT("/categories/:id", a.UpdateCategory)
	admin.DELETE("/categories/:id", a.DeleteCategory)

	// Bulk import of books or categories, CSV upload or JSON array, with
	// per-row error isolation.
	admin.POST("/bulk-import/:type", imp.BulkImport)
	admin.GET("/template/:type", imp.Template)
}
