package main // taxonomy aggregator entry point

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/abyssal/species-observation/internal/config"
	"github.com/abyssal/species-observation/internal/handler"
	"github.com/abyssal/species-observation/internal/middleware"
	"github.com/abyssal/species-observation/internal/router"
	"github.com/abyssal/species-observation/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadAggregator("taxonomy-service")

	client := service.NewObservationClient(cfg.ObservationServiceURL)
	taxonomy := service.NewTaxonomyService(client)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())

	var cacheStats echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
		if cc := config.LoadCacheConfig(); cc.Enabled {
			cacheStats = middleware.NewRedisCache(cc, rdb)
		}
	}

	router.RegisterTaxonomy(e, handler.NewTaxonomyHandler(taxonomy), cfg.JWTSecret, cacheStats)

	addr := ":" + cfg.Port
	log.Printf("%s listening on %s (env=%s)", cfg.Service, addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
