package server

import (
	"gorm.io/gorm"

	"harvester/internal/core/harvest"
	"harvester/internal/core/mapper"
	"harvester/internal/health"
	"harvester/internal/platform/redis"

	"github.com/gofiber/fiber/v2"
)

type Dependencies struct {
	Harvest *harvest.Handler
	Map     *mapper.Service
	Redis   *redis.Service
	DB      *gorm.DB
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	healthHandler := health.NewHealthHandler(d.Redis, d.DB)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")

	api.Post("/harvests", d.Harvest.Create)
	api.Get("/harvests/:runId", d.Harvest.Status)

	mapHandler := mapper.NewHandler(d.Map)
	api.Get("/discover", mapHandler.HandleDiscover)

	return healthHandler
}
