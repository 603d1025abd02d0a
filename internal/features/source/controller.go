package source

import (
	"github.com/gofiber/fiber/v2"
)

type SourceController struct {
	Service SourceService
}

func NewSourceController(service SourceService) *SourceController {
	return &SourceController{Service: service}
}

// CreateSource godoc
// @Summary Register an external object source
// @Tags sources
// @Accept json
// @Produce json
// @Param source body ObjectSource true "Source"
// @Success 201 {object} ObjectSource
// @Router /api/sources [post]
func (c *SourceController) CreateSource(ctx *fiber.Ctx) error {
	var src ObjectSource
	if err := ctx.BodyParser(&src); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if src.Name == "" || src.DBType == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name and db_type are required"})
	}

	if err := c.Service.CreateSource(ctx.UserContext(), &src); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(src)
}

// ListSources godoc
// @Summary List registered object sources
// @Tags sources
// @Produce json
// @Success 200 {array} ObjectSource
// @Router /api/sources [get]
func (c *SourceController) ListSources(ctx *fiber.Ctx) error {
	sources, err := c.Service.ListSources(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(sources)
}

// GetSource godoc
// @Summary Get an object source by ID
// @Tags sources
// @Produce json
// @Param id path string true "Source ID"
// @Success 200 {object} ObjectSource
// @Failure 404 {object} map[string]string "Source not found"
// @Router /api/sources/{id} [get]
func (c *SourceController) GetSource(ctx *fiber.Ctx) error {
	src, err := c.Service.GetSource(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if src == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Source not found"})
	}
	return ctx.JSON(src)
}

// UpdateSource godoc
// @Summary Update an object source
// @Tags sources
// @Accept json
// @Produce json
// @Param id path string true "Source ID"
// @Param updates body map[string]interface{} true "Field updates"
// @Success 200 {object} map[string]string "Source updated successfully"
// @Router /api/sources/{id} [put]
func (c *SourceController) UpdateSource(ctx *fiber.Ctx) error {
	var updates map[string]interface{}
	if err := ctx.BodyParser(&updates); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.UpdateSource(ctx.UserContext(), ctx.Params("id"), updates); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Source updated successfully"})
}

// DeleteSource godoc
// @Summary Delete an object source
// @Tags sources
// @Produce json
// @Param id path string true "Source ID"
// @Success 200 {object} map[string]string "Source deleted successfully"
// @Router /api/sources/{id} [delete]
func (c *SourceController) DeleteSource(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteSource(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Source deleted successfully"})
}

// TestSource godoc
// @Summary Test connectivity to an object source
// @Tags sources
// @Produce json
// @Param id path string true "Source ID"
// @Success 200 {object} map[string]string "Connection successful"
// @Failure 502 {object} map[string]string "Connection failed"
// @Router /api/sources/{id}/test [post]
func (c *SourceController) TestSource(ctx *fiber.Ctx) error {
	if err := c.Service.TestSource(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Connection successful"})
}
