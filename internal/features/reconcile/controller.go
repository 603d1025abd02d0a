package reconcile

import (
	"github.com/gofiber/fiber/v2"
)

type ReconcileController struct {
	Service ReconcileService
}

func NewReconcileController(service ReconcileService) *ReconcileController {
	return &ReconcileController{Service: service}
}

// RunNow godoc
// @Summary Run a reconciliation sweep immediately
// @Description Scans pending flows and records drift audit entries; repair stays a separate explicit action
// @Tags reconcile
// @Produce json
// @Success 200 {object} SweepReport
// @Router /api/reconcile/run [post]
func (c *ReconcileController) RunNow(ctx *fiber.Ctx) error {
	report, err := c.Service.RunNow(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(report)
}
