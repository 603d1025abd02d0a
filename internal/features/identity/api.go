package identity

import (
	"go-approvals/internal/config"
	"go-approvals/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type IdentityApi struct {
	controller *IdentityController
	config     *config.Config
}

func NewIdentityApi(controller *IdentityController, config *config.Config) *IdentityApi {
	return &IdentityApi{
		controller: controller,
		config:     config,
	}
}

func (h *IdentityApi) Setup(app *fiber.App) {
	identity := app.Group("/api/identity", middleware.AuthMiddleware(h.config.SkipAuth))

	identity.Get("/roles", h.controller.ListRoles)
	identity.Get("/users", h.controller.ListUsers)
	identity.Get("/users/:id", h.controller.GetUser)

	// Directory mutations change who satisfies which requirement, admin only
	admin := identity.Group("/", middleware.AdminMiddleware())
	admin.Post("/roles", h.controller.CreateRole)
	admin.Put("/roles/:id", h.controller.UpdateRole)
	admin.Delete("/roles/:id", h.controller.DeleteRole)
	admin.Post("/users", h.controller.CreateUser)
	admin.Put("/users/:id/role", h.controller.AssignRole)
	admin.Delete("/users/:id", h.controller.DeleteUser)
}
