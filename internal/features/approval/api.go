package approval

import (
	"go-groupware/internal/config"
	"go-groupware/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ApprovalApi struct {
	controller *ApprovalController
	config     *config.Config
}

func NewApprovalApi(controller *ApprovalController, config *config.Config) *ApprovalApi {
	return &ApprovalApi{
		controller: controller,
		config:     config,
	}
}

func (h *ApprovalApi) Setup(app *fiber.App) {
	approvals := app.Group("/api/approvals", middleware.AuthMiddleware(h.config.SkipAuth))

	// Static paths before the wildcard target routes
	approvals.Get("/requested-by-me", h.controller.RequestedByMe)
	approvals.Get("/get-myApproval-documents", h.controller.PendingToMe)
	approvals.Get("/approval-lines", h.controller.LinePreview)
	approvals.Get("/position-label/:targetId", h.controller.PositionLabel)

	approvals.Post("/:targetType/:targetId/approve", h.controller.Approve)
	approvals.Post("/:targetType/:targetId/reject", h.controller.Reject)
	approvals.Get("/:targetType/:targetId/history", h.controller.History)
	approvals.Get("/:targetType/:targetId/detail", h.controller.Detail)
}
