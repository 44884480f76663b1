package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/bookhaven/bookstore-api/internal/handler"
	"github.com/bookhaven/bookstore-api/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check,
// used by load balancers and monitoring to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes and their middleware.
// Unauthenticated operations live under /v1/auth; endpoints that need a
// valid access token hang off a protected /v1 group.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Register, login and refresh do not require an existing session.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token: the presented token is revoked
	// and a fresh pair is issued.
	g.POST("/refresh", a.Refresh)
	// Logout accepts a refresh token in the body and revokes that one
	// session; with only a bearer token it revokes every session.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	// Logout is reachable both ways: /v1/auth/logout with a refresh token
	// in the body, or /v1/logout with a bearer token to revoke every
	// session at once.
	auth.POST("/logout", a.Logout)
	auth.GET("/auth/me", a.Me)
	// /v1/me kept as a shorthand for the profile read.
	auth.GET("/me", a.Me)
	auth.PUT("/auth/profile", a.UpdateProfile)
	// Changing the password revokes all refresh sessions, so every
	// device must log in again.
	auth.PUT("/auth/password", a.ChangePassword)
}

// RegisterCatalog registers the public storefront surface: book browse
// and detail, the category list, per-book reviews and the storefront
// counters. No JWT is applied; cacheMW may be a pass-through when Redis
// is unavailable.
func RegisterCatalog(e *echo.Echo, b *handler.BookHandler, r *handler.ReviewHandler,
	s *handler.AdminHandler, cacheMW echo.MiddlewareFunc) {
	e.GET("/v1/books", b.ListBooks, cacheMW)
	e.GET("/v1/books/:id", b.GetBook, cacheMW)
	e.GET("/v1/books/meta/categories", b.ListCategories, cacheMW)
	e.GET("/v1/reviews/book/:id", r.ListByBook)
	e.GET("/v1/public/stats", s.PublicStats, cacheMW)
}
