package routes

import (
	"github.com/gofiber/fiber/v3"

	"github.com/nilch/nilch-api/internal/cache"
	"github.com/nilch/nilch-api/internal/version"
)

// RegisterDiagnosticsRoutes 暴露 /-/ 前缀的诊断接口，供部署侧探活与观察缓存。
func RegisterDiagnosticsRoutes(app *fiber.App, store cache.Store) {
	if app == nil {
		return
	}

	app.Get("/-/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": version.Full(),
		})
	})

	if store == nil {
		return
	}
	app.Get("/-/cache", func(c fiber.Ctx) error {
		return c.JSON(store.Snapshot())
	})
}
