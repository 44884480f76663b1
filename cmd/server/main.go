package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/bookhaven/bookstore-api/internal/config"
	"github.com/bookhaven/bookstore-api/internal/database"
	"github.com/bookhaven/bookstore-api/internal/handler"
	"github.com/bookhaven/bookstore-api/internal/middleware"
	"github.com/bookhaven/bookstore-api/internal/repository"
	"github.com/bookhaven/bookstore-api/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the rate limiter and the catalog response cache. A nil
	// client degrades both middlewares to pass-throughs.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	books := repository.NewBookRepo(db)
	categories := repository.NewCategoryRepo(db)
	orders := repository.NewOrderRepo(db)
	reviews := repository.NewReviewRepo(db)
	stats := repository.NewStatsRepo(db)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	bookH := handler.NewBookHandler(books, categories)
	orderH := handler.NewOrderHandler(cfg, orders, books, users)
	reviewH := handler.NewReviewHandler(reviews, books)
	adminH := handler.NewAdminHandler(stats, orders, users, categories)
	importH := handler.NewImportHandler(books, categories)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterCatalog(e, bookH, reviewH, adminH, cacheMW)
	router.RegisterCustomer(e, orderH, reviewH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminH, bookH, importH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
