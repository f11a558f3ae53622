package approval

import (
	"errors"

	"go-groupware/internal/features/directory"
	"go-groupware/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type ApprovalController struct {
	Service   ApprovalService
	Directory directory.DirectoryService
}

func NewApprovalController(service ApprovalService, dir directory.DirectoryService) *ApprovalController {
	return &ApprovalController{
		Service:   service,
		Directory: dir,
	}
}

func actor(ctx *fiber.Ctx) *utils.UserClaims {
	return ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
}

// statusForError maps the engine's error taxonomy onto HTTP codes. Internal
// detail goes to the log channel; the client only sees the terse message.
func statusForError(err error) int {
	var already *AlreadyProcessedError
	var missing *MissingApproverError

	switch {
	case errors.Is(err, ErrNotAuthorized):
		return fiber.StatusForbidden
	case errors.Is(err, ErrOutOfOrder),
		errors.Is(err, ErrNoRoute),
		errors.As(err, &already),
		errors.As(err, &missing):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// Approve godoc
// @Summary Approve the current step of a document
// @Description Approve the caller's pending step for the target document
// @Tags approvals
// @Produce json
// @Param targetType path string true "Target Type (e.g. VACATION)"
// @Param targetId path string true "Target Document ID"
// @Success 200 {object} map[string]bool "success"
// @Failure 400 {object} map[string]string "Already processed or out of order"
// @Failure 403 {object} map[string]string "Not an approver of this document"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/approvals/{targetType}/{targetId}/approve [post]
func (c *ApprovalController) Approve(ctx *fiber.Ctx) error {
	claims := actor(ctx)

	err := c.Service.Approve(ctx.UserContext(), ctx.Params("targetType"), ctx.Params("targetId"), claims.UserID)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"success": true})
}

// Reject godoc
// @Summary Reject the current step of a document
// @Description Reject the caller's pending step; voids all remaining steps
// @Tags approvals
// @Accept json
// @Produce json
// @Param targetType path string true "Target Type (e.g. VACATION)"
// @Param targetId path string true "Target Document ID"
// @Param body body map[string]string true "Rejection memo"
// @Success 200 {object} map[string]bool "success"
// @Failure 400 {object} map[string]string "Already processed or out of order"
// @Failure 403 {object} map[string]string "Not an approver of this document"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/approvals/{targetType}/{targetId}/reject [post]
func (c *ApprovalController) Reject(ctx *fiber.Ctx) error {
	claims := actor(ctx)

	var body struct {
		Memo string `json:"memo"`
	}
	_ = ctx.BodyParser(&body)

	err := c.Service.Reject(ctx.UserContext(), ctx.Params("targetType"), ctx.Params("targetId"), claims.UserID, body.Memo)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"success": true})
}

// History godoc
// @Summary Approval history of a document
// @Description Ordered transition log, newest first
// @Tags approvals
// @Produce json
// @Param targetType path string true "Target Type"
// @Param targetId path string true "Target Document ID"
// @Success 200 {array} HistoryEntry
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/approvals/{targetType}/{targetId}/history [get]
func (c *ApprovalController) History(ctx *fiber.Ctx) error {
	entries, err := c.Service.History(ctx.UserContext(), ctx.Params("targetType"), ctx.Params("targetId"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(entries)
}

// Detail godoc
// @Summary Document approval detail
// @Description Summary, approval records, current approver and live role map
// @Tags approvals
// @Produce json
// @Param targetType path string true "Target Type"
// @Param targetId path string true "Target Document ID"
// @Success 200 {object} DocumentDetail
// @Failure 404 {object} map[string]string "No approval line for this document"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/approvals/{targetType}/{targetId}/detail [get]
func (c *ApprovalController) Detail(ctx *fiber.Ctx) error {
	detail, err := c.Service.Detail(ctx.UserContext(), ctx.Params("targetType"), ctx.Params("targetId"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if detail == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No approval line for this document"})
	}
	return ctx.JSON(detail)
}

// RequestedByMe godoc
// @Summary Documents I submitted
// @Tags approvals
// @Produce json
// @Param target_type query string false "Filter by target type"
// @Success 200 {array} DocumentListItem
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/approvals/requested-by-me [get]
func (c *ApprovalController) RequestedByMe(ctx *fiber.Ctx) error {
	claims := actor(ctx)

	items, err := c.Service.RequestedByMe(ctx.UserContext(), claims.UserID, ctx.Query("target_type"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(items)
}

// PendingToMe godoc
// @Summary Documents waiting on me
// @Tags approvals
// @Produce json
// @Param target_type query string false "Filter by target type"
// @Success 200 {array} DocumentListItem
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/approvals/get-myApproval-documents [get]
func (c *ApprovalController) PendingToMe(ctx *fiber.Ctx) error {
	claims := actor(ctx)

	items, err := c.Service.PendingToMe(ctx.UserContext(), claims.UserID, ctx.Query("target_type"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(items)
}

// LinePreview godoc
// @Summary Preview an approval line before submission
// @Description Filtered route template with the live candidate for each step
// @Tags approvals
// @Produce json
// @Param doc_type query string true "Document type"
// @Param department_code query string true "Department code"
// @Param team_code query string false "Team code"
// @Param route_name query string true "Route name"
// @Success 200 {array} LinePreviewStep
// @Failure 400 {object} map[string]string "No matching route"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/approvals/approval-lines [get]
func (c *ApprovalController) LinePreview(ctx *fiber.Ctx) error {
	claims := actor(ctx)

	preview, err := c.Service.LinePreview(
		ctx.UserContext(),
		ctx.Query("doc_type"),
		ctx.Query("department_code"),
		ctx.Query("team_code"),
		ctx.Query("route_name"),
		claims.PositionCode,
	)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(preview)
}

// PositionLabel godoc
// @Summary Department/position display labels for a user
// @Tags approvals
// @Produce json
// @Param targetId path string true "User ID"
// @Success 200 {object} directory.PositionLabel
// @Failure 404 {object} map[string]string "Unknown user"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/approvals/position-label/{targetId} [get]
func (c *ApprovalController) PositionLabel(ctx *fiber.Ctx) error {
	label, err := c.Directory.PositionLabel(ctx.UserContext(), ctx.Params("targetId"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if label == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown user"})
	}
	return ctx.JSON(label)
}
