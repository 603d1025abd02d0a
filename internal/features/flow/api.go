package flow

import (
	"go-approvals/internal/config"
	"go-approvals/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type FlowApi struct {
	controller *FlowController
	config     *config.Config
}

func NewFlowApi(controller *FlowController, config *config.Config) *FlowApi {
	return &FlowApi{
		controller: controller,
		config:     config,
	}
}

func (h *FlowApi) Setup(app *fiber.App) {
	flows := app.Group("/api/flows", middleware.AuthMiddleware(h.config.SkipAuth))

	flows.Post("/", h.controller.InstantiateFlow)
	flows.Post("/search", h.controller.SearchFlows)
	flows.Get("/object/:objectType/:objectId", h.controller.GetFlowByObject)
	flows.Get("/:id", h.controller.GetFlowByID)
	flows.Get("/:id/evaluation", h.controller.GetEvaluation)
	flows.Post("/:id/sign", h.controller.SubmitSignature)
	flows.Post("/:id/reject", h.controller.RejectFlow)

	// Repair rewrites persisted status, so it stays admin-only
	flows.Post("/:id/repair", middleware.AdminMiddleware(), h.controller.RepairFlow)
}
