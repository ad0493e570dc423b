package controller

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HealthController struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Version string
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, version string) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Version: version}
}

// Health reports whether the database and, when configured, Redis answer.
func (hc *HealthController) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{"database": "ok"}
	healthy := true

	sqlDB, err := hc.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		checks["database"] = err.Error()
		healthy = false
	}

	if hc.Redis != nil {
		checks["redis"] = "ok"
		if err := hc.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}
	}

	status := fiber.StatusOK
	state := "running"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		state = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":  state,
		"version": hc.Version,
		"checks":  checks,
	})
}
