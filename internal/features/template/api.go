package template

import (
	"go-approvals/internal/config"
	"go-approvals/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TemplateApi struct {
	controller *TemplateController
	config     *config.Config
}

func NewTemplateApi(controller *TemplateController, config *config.Config) *TemplateApi {
	return &TemplateApi{
		controller: controller,
		config:     config,
	}
}

func (h *TemplateApi) Setup(app *fiber.App) {
	templates := app.Group("/api/templates", middleware.AuthMiddleware(h.config.SkipAuth))

	templates.Get("/", h.controller.ListTemplates)
	templates.Get("/active/:objectType/:objectSource", h.controller.FindActive)
	templates.Get("/:id", h.controller.GetTemplateByID)

	// Template administration is an admin-only action
	templates.Post("/", middleware.AdminMiddleware(), h.controller.CreateTemplate)
	templates.Put("/:id", middleware.AdminMiddleware(), h.controller.UpdateTemplate)
}
