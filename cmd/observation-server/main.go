package main // observation service entry point

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/abyssal/species-observation/internal/config"
	"github.com/abyssal/species-observation/internal/database"
	"github.com/abyssal/species-observation/internal/handler"
	"github.com/abyssal/species-observation/internal/middleware"
	"github.com/abyssal/species-observation/internal/queue"
	"github.com/abyssal/species-observation/internal/repository"
	"github.com/abyssal/species-observation/internal/router"
	"github.com/abyssal/species-observation/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load("observation-service")

	db, err := database.Open(database.Params{
		User: cfg.DBUser, Pass: cfg.DBPass,
		Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	species := repository.NewSpeciesRepo(db)
	observations := repository.NewObservationRepo(db)
	history := repository.NewHistoryRepo(db)

	rarity := service.NewRarityService(species, observations)
	relay := service.NewReputationRelay(cfg.AuthServiceURL)
	recorder := service.NewHistoryRecorder(observations, species, history)

	// The consumer tails the moderation event queue into logs/. It is
	// observability only; a broker outage never blocks moderation.
	go func() {
		if err := queue.StartModerationConsumer(); err != nil {
			log.Printf("queue consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())

	var cacheList echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
		if cc := config.LoadCacheConfig(); cc.Enabled {
			cacheList = middleware.NewRedisCache(cc, rdb)
		}
	}

	router.RegisterObservation(e,
		handler.NewSpeciesHandler(species, observations),
		handler.NewObservationHandler(observations, species, rarity, relay, recorder),
		handler.NewModerationHandler(observations, species, history, rarity, recorder),
		cfg.JWTSecret, cacheList)

	addr := ":" + cfg.Port
	log.Printf("%s listening on %s (env=%s)", cfg.Service, addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
