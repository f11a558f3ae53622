package vacation

import (
	"go-groupware/internal/config"
	"go-groupware/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type VacationApi struct {
	controller *VacationController
	config     *config.Config
}

func NewVacationApi(controller *VacationController, config *config.Config) *VacationApi {
	return &VacationApi{controller: controller, config: config}
}

func (h *VacationApi) Setup(app *fiber.App) {
	vacations := app.Group("/api/vacations", middleware.AuthMiddleware(h.config.SkipAuth))

	vacations.Post("/", h.controller.Apply)
	vacations.Get("/", h.controller.ListMine)
	vacations.Get("/:id", h.controller.Get)
}
