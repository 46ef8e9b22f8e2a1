package main // identity service entry point

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/abyssal/species-observation/internal/config"
	"github.com/abyssal/species-observation/internal/database"
	"github.com/abyssal/species-observation/internal/handler"
	"github.com/abyssal/species-observation/internal/middleware"
	"github.com/abyssal/species-observation/internal/repository"
	"github.com/abyssal/species-observation/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load("auth-service")

	db, err := database.Open(database.Params{
		User: cfg.DBUser, Pass: cfg.DBPass,
		Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())

	if rdb := config.NewRedisClient(); rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	}

	router.RegisterAuth(e,
		handler.NewAuthHandler(cfg, users),
		handler.NewUserAdminHandler(users),
		cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("%s listening on %s (env=%s)", cfg.Service, addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
