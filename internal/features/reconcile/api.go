package reconcile

import (
	"go-approvals/internal/config"
	"go-approvals/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ReconcileApi struct {
	controller *ReconcileController
	config     *config.Config
}

func NewReconcileApi(controller *ReconcileController, config *config.Config) *ReconcileApi {
	return &ReconcileApi{
		controller: controller,
		config:     config,
	}
}

func (h *ReconcileApi) Setup(app *fiber.App) {
	reconcile := app.Group("/api/reconcile", middleware.AuthMiddleware(h.config.SkipAuth), middleware.AdminMiddleware())

	reconcile.Post("/run", h.controller.RunNow)
}
