package report

import (
	"fmt"

	"go-groupware/internal/common/clock"

	"github.com/gofiber/fiber/v2"
)

type ReportController struct {
	Service ReportService
	Clock   clock.Clock
}

func NewReportController(service ReportService, clk clock.Clock) *ReportController {
	return &ReportController{Service: service, Clock: clk}
}

// ExportApprovals godoc
// @Summary Export the approval register
// @Description Download all approval records (optionally one target type) as xlsx
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param target_type query string false "Filter by target type"
// @Success 200 {file} binary
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/reports/approvals.xlsx [get]
func (c *ReportController) ExportApprovals(ctx *fiber.Ctx) error {
	buf, err := c.Service.ExportApprovals(ctx.UserContext(), ctx.Query("target_type"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	filename := fmt.Sprintf("approvals_%s.xlsx", c.Clock.Now().Format("20060102"))
	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return ctx.Send(buf.Bytes())
}
