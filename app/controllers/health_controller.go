package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/internal/pkg/cache"
)

// HealthController reports liveness of the storage and cache backends.
type HealthController struct {
	db *gorm.DB
}

func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{db: db}
}

func (hc *HealthController) HandleHealth(c *fiber.Ctx) error {
	dbStatus := "ok"
	cacheStatus := "ok"
	healthy := true

	if sqlDB, err := hc.db.DB(); err != nil {
		dbStatus = "error"
		healthy = false
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error"
		healthy = false
	}

	if err := cache.Ping(2 * time.Second); err != nil {
		cacheStatus = "error"
		healthy = false
	}

	status := fiber.StatusOK
	if !healthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"status":   status,
		"database": dbStatus,
		"cache":    cacheStatus,
	})
}
