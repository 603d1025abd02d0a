package system

import (
	"go-approvals/internal/common/api"
	"go-approvals/internal/database"

	"github.com/gofiber/fiber/v2"
)

type HealthApi struct {
	DB *database.MongodbDB
}

func NewHealthApi(db *database.MongodbDB) api.Route {
	return &HealthApi{DB: db}
}

func (h *HealthApi) Setup(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := h.DB.DB.Client().Ping(c.UserContext(), nil); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"mongo":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
