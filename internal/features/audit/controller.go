package audit

import (
	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	Service AuditService
}

func NewAuditController(service AuditService) *AuditController {
	return &AuditController{Service: service}
}

// ListLogs godoc
// @Summary List audit logs
// @Description List recorded actions, newest first
// @Tags audit
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {array} AuditLog
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/audit [get]
func (c *AuditController) ListLogs(ctx *fiber.Ctx) error {
	page := int64(ctx.QueryInt("page", 1))
	limit := int64(ctx.QueryInt("limit", 20))

	logs, err := c.Service.List(ctx.UserContext(), page, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(logs)
}
