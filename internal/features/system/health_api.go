package system

import (
	"go-groupware/internal/common/api"
	"go-groupware/internal/database"

	"github.com/gofiber/fiber/v2"
)

type HealthApi struct {
	pg *database.PostgresDB
}

func NewHealthApi(pg *database.PostgresDB) api.Route {
	return &HealthApi{pg: pg}
}

func (h *HealthApi) Setup(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := h.pg.DB.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
