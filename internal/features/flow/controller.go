package flow

import (
	"errors"

	"go-approvals/pkg/condition"
	"go-approvals/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type FlowController struct {
	Service FlowService
}

func NewFlowController(service FlowService) *FlowController {
	return &FlowController{Service: service}
}

type instantiateFlowRequest struct {
	ObjectType   string `json:"object_type"`
	ObjectSource string `json:"object_source"`
	ObjectID     string `json:"object_id"`
}

type rejectFlowRequest struct {
	Reason string `json:"reason"`
}

type searchFlowsRequest struct {
	Filter *condition.Group `json:"filter"`
	Limit  int64            `json:"limit"`
	Offset int64            `json:"offset"`
}

// statusForError maps the service error taxonomy onto HTTP codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrFlowNotFound), errors.Is(err, ErrTemplateNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrDuplicateFlow), errors.Is(err, ErrAlreadySigned),
		errors.Is(err, ErrAlreadyTerminal), errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrNotEligible):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// InstantiateFlow godoc
// @Summary Open an approval flow for a business object
// @Description Resolves the active template for the object type/source pair and opens a pending flow
// @Tags flows
// @Accept json
// @Produce json
// @Param flow body instantiateFlowRequest true "Object reference"
// @Success 201 {object} ApprovalFlow
// @Failure 404 {object} map[string]string "No active template"
// @Failure 409 {object} map[string]string "Flow already open for this object"
// @Router /api/flows [post]
func (c *FlowController) InstantiateFlow(ctx *fiber.Ctx) error {
	var input instantiateFlowRequest
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if input.ObjectType == "" || input.ObjectSource == "" || input.ObjectID == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "object_type, object_source and object_id are required"})
	}

	f, err := c.Service.InstantiateFlow(ctx.UserContext(), input.ObjectType, input.ObjectSource, input.ObjectID)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(f)
}

// SubmitSignature godoc
// @Summary Sign a pending approval flow
// @Description Appends the caller's signature; when the last required officer signs the flow completes
// @Tags flows
// @Produce json
// @Param id path string true "Flow ID"
// @Success 200 {object} map[string]interface{} "Flow and evaluation after signing"
// @Failure 403 {object} map[string]string "Guard script vetoed the signature"
// @Failure 409 {object} map[string]string "Already signed or flow is terminal"
// @Router /api/flows/{id}/sign [post]
func (c *FlowController) SubmitSignature(ctx *fiber.Ctx) error {
	claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok || claims == nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	f, result, err := c.Service.SubmitSignature(ctx.UserContext(), ctx.Params("id"), claims.UserID, claims.Username)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"flow": f, "evaluation": result})
}

// RejectFlow godoc
// @Summary Reject a pending approval flow
// @Tags flows
// @Accept json
// @Produce json
// @Param id path string true "Flow ID"
// @Param rejection body rejectFlowRequest true "Rejection reason"
// @Success 200 {object} ApprovalFlow
// @Failure 409 {object} map[string]string "Flow is already terminal"
// @Router /api/flows/{id}/reject [post]
func (c *FlowController) RejectFlow(ctx *fiber.Ctx) error {
	claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok || claims == nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var input rejectFlowRequest
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	f, err := c.Service.RejectFlow(ctx.UserContext(), ctx.Params("id"), claims.UserID, input.Reason)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(f)
}

// GetFlowByID godoc
// @Summary Get a flow by ID
// @Tags flows
// @Produce json
// @Param id path string true "Flow ID"
// @Success 200 {object} ApprovalFlow
// @Failure 404 {object} map[string]string "Flow not found"
// @Router /api/flows/{id} [get]
func (c *FlowController) GetFlowByID(ctx *fiber.Ctx) error {
	f, err := c.Service.GetFlowByID(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if f == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Flow not found"})
	}
	return ctx.JSON(f)
}

// GetFlowByObject godoc
// @Summary Get the flow attached to a business object
// @Tags flows
// @Produce json
// @Param objectType path string true "Object type"
// @Param objectId path string true "Object ID"
// @Success 200 {object} ApprovalFlow
// @Failure 404 {object} map[string]string "Flow not found"
// @Router /api/flows/object/{objectType}/{objectId} [get]
func (c *FlowController) GetFlowByObject(ctx *fiber.Ctx) error {
	f, err := c.Service.GetFlow(ctx.UserContext(), ctx.Params("objectType"), ctx.Params("objectId"))
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if f == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Flow not found"})
	}
	return ctx.JSON(f)
}

// GetEvaluation godoc
// @Summary Evaluate a flow's completion state
// @Description Resolves every signer's current role and reports satisfied/unsatisfied officers
// @Tags flows
// @Produce json
// @Param id path string true "Flow ID"
// @Success 200 {object} EvaluationResult
// @Failure 404 {object} map[string]string "Flow not found"
// @Router /api/flows/{id}/evaluation [get]
func (c *FlowController) GetEvaluation(ctx *fiber.Ctx) error {
	f, err := c.Service.GetFlowByID(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if f == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Flow not found"})
	}

	result, err := c.Service.EvaluateFlow(ctx.UserContext(), f)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(result)
}

// SearchFlows godoc
// @Summary Search flows with a condition filter
// @Tags flows
// @Accept json
// @Produce json
// @Param search body searchFlowsRequest true "Filter"
// @Success 200 {array} ApprovalFlow
// @Router /api/flows/search [post]
func (c *FlowController) SearchFlows(ctx *fiber.Ctx) error {
	var input searchFlowsRequest
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	flows, err := c.Service.ListFlows(ctx.UserContext(), input.Filter, input.Limit, input.Offset)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(flows)
}

// RepairFlow godoc
// @Summary Re-evaluate a flow and repair its persisted status
// @Description Admin-only consistency tool; every run is recorded in the audit trail
// @Tags flows
// @Produce json
// @Param id path string true "Flow ID"
// @Success 200 {object} ApprovalFlow
// @Failure 404 {object} map[string]string "Flow not found"
// @Router /api/flows/{id}/repair [post]
func (c *FlowController) RepairFlow(ctx *fiber.Ctx) error {
	f, err := c.Service.RepairFlow(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(f)
}
