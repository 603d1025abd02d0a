package source

import (
	"go-approvals/internal/config"
	"go-approvals/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type SourceApi struct {
	controller *SourceController
	config     *config.Config
}

func NewSourceApi(controller *SourceController, config *config.Config) *SourceApi {
	return &SourceApi{
		controller: controller,
		config:     config,
	}
}

func (h *SourceApi) Setup(app *fiber.App) {
	// Source records carry external DB credentials, the whole surface is
	// admin only
	sources := app.Group("/api/sources", middleware.AuthMiddleware(h.config.SkipAuth), middleware.AdminMiddleware())

	sources.Get("/", h.controller.ListSources)
	sources.Get("/:id", h.controller.GetSource)
	sources.Post("/", h.controller.CreateSource)
	sources.Put("/:id", h.controller.UpdateSource)
	sources.Delete("/:id", h.controller.DeleteSource)
	sources.Post("/:id/test", h.controller.TestSource)
}
