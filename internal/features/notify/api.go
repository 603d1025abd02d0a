package notify

import (
	"go-approvals/internal/config"
	"go-approvals/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type NotifyApi struct {
	controller *NotifyController
	config     *config.Config
}

func NewNotifyApi(controller *NotifyController, config *config.Config) *NotifyApi {
	return &NotifyApi{
		controller: controller,
		config:     config,
	}
}

func (h *NotifyApi) Setup(app *fiber.App) {
	notify := app.Group("/api/notify", middleware.AuthMiddleware(h.config.SkipAuth))

	notify.Get("/targets", h.controller.ListTargets)
	notify.Get("/targets/:id", h.controller.GetTarget)
	notify.Get("/deliveries/:flowId", h.controller.ListDeliveries)

	notify.Post("/targets", middleware.AdminMiddleware(), h.controller.CreateTarget)
	notify.Put("/targets/:id", middleware.AdminMiddleware(), h.controller.UpdateTarget)
	notify.Delete("/targets/:id", middleware.AdminMiddleware(), h.controller.DeleteTarget)
}
