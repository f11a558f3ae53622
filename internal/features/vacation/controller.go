package vacation

import (
	"errors"
	"strconv"
	"time"

	"go-groupware/internal/features/approval"
	"go-groupware/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type VacationController struct {
	Service VacationService
}

func NewVacationController(service VacationService) *VacationController {
	return &VacationController{Service: service}
}

// Apply godoc
// @Summary Apply for a vacation
// @Description Creates the vacation request and materializes its approval line
// @Tags vacations
// @Accept json
// @Produce json
// @Param body body ApplyRequest true "Vacation request"
// @Success 201 {object} map[string]interface{} "vacation + approval line"
// @Failure 400 {object} map[string]string "Invalid request or no resolvable route"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/vacations [post]
func (c *VacationController) Apply(ctx *fiber.Ctx) error {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)

	var req ApplyRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	requester := approval.Actor{
		ID:             claims.UserID,
		Name:           claims.Name,
		DepartmentCode: claims.DepartmentCode,
		TeamCode:       claims.TeamCode,
		PositionCode:   claims.PositionCode,
	}

	v, records, err := c.Service.Apply(ctx.UserContext(), requester, req)
	if err != nil {
		code := fiber.StatusInternalServerError
		var missing *approval.MissingApproverError
		var parseErr *time.ParseError
		switch {
		case errors.Is(err, approval.ErrNoRoute),
			errors.As(err, &missing),
			errors.As(err, &parseErr),
			errors.Is(err, errInvalidDates):
			code = fiber.StatusBadRequest
		}
		return ctx.Status(code).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"vacation":      v,
		"approval_line": records,
	})
}

// Get godoc
// @Summary Get a vacation request
// @Tags vacations
// @Produce json
// @Param id path int true "Vacation ID"
// @Success 200 {object} Vacation
// @Failure 404 {object} map[string]string "Not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/vacations/{id} [get]
func (c *VacationController) Get(ctx *fiber.Ctx) error {
	id, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid vacation id"})
	}

	v, err := c.Service.Get(ctx.UserContext(), id)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if v == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Vacation not found"})
	}
	return ctx.JSON(v)
}

// ListMine godoc
// @Summary List my vacation requests
// @Tags vacations
// @Produce json
// @Success 200 {array} Vacation
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/vacations [get]
func (c *VacationController) ListMine(ctx *fiber.Ctx) error {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)

	vacations, err := c.Service.ListMine(ctx.UserContext(), claims.UserID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(vacations)
}
