package notify

import (
	"github.com/gofiber/fiber/v2"
)

type NotifyController struct {
	Service NotifyService
}

func NewNotifyController(service NotifyService) *NotifyController {
	return &NotifyController{Service: service}
}

// CreateTarget godoc
// @Summary Register a completion webhook target
// @Tags notify
// @Accept json
// @Produce json
// @Param target body NotifyTarget true "Target"
// @Success 201 {object} NotifyTarget
// @Router /api/notify/targets [post]
func (c *NotifyController) CreateTarget(ctx *fiber.Ctx) error {
	var target NotifyTarget
	if err := ctx.BodyParser(&target); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if target.URL == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url is required"})
	}

	if err := c.Service.CreateTarget(ctx.UserContext(), &target); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(target)
}

// ListTargets godoc
// @Summary List webhook targets
// @Tags notify
// @Produce json
// @Success 200 {array} NotifyTarget
// @Router /api/notify/targets [get]
func (c *NotifyController) ListTargets(ctx *fiber.Ctx) error {
	targets, err := c.Service.ListTargets(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(targets)
}

// GetTarget godoc
// @Summary Get a webhook target
// @Tags notify
// @Produce json
// @Param id path string true "Target ID"
// @Success 200 {object} NotifyTarget
// @Failure 404 {object} map[string]string "Target not found"
// @Router /api/notify/targets/{id} [get]
func (c *NotifyController) GetTarget(ctx *fiber.Ctx) error {
	target, err := c.Service.GetTarget(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if target == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Target not found"})
	}
	return ctx.JSON(target)
}

// UpdateTarget godoc
// @Summary Update a webhook target
// @Tags notify
// @Accept json
// @Produce json
// @Param id path string true "Target ID"
// @Param updates body map[string]interface{} true "Field updates"
// @Success 200 {object} map[string]string "Target updated successfully"
// @Router /api/notify/targets/{id} [put]
func (c *NotifyController) UpdateTarget(ctx *fiber.Ctx) error {
	var updates map[string]interface{}
	if err := ctx.BodyParser(&updates); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.UpdateTarget(ctx.UserContext(), ctx.Params("id"), updates); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Target updated successfully"})
}

// DeleteTarget godoc
// @Summary Delete a webhook target
// @Tags notify
// @Produce json
// @Param id path string true "Target ID"
// @Success 200 {object} map[string]string "Target deleted successfully"
// @Router /api/notify/targets/{id} [delete]
func (c *NotifyController) DeleteTarget(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteTarget(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Target deleted successfully"})
}

// ListDeliveries godoc
// @Summary List delivery attempts for a flow
// @Tags notify
// @Produce json
// @Param flowId path string true "Flow ID"
// @Success 200 {array} Delivery
// @Router /api/notify/deliveries/{flowId} [get]
func (c *NotifyController) ListDeliveries(ctx *fiber.Ctx) error {
	deliveries, err := c.Service.ListDeliveries(ctx.UserContext(), ctx.Params("flowId"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(deliveries)
}
