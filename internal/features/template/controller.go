package template

import (
	"github.com/gofiber/fiber/v2"
)

type TemplateController struct {
	Service TemplateService
}

func NewTemplateController(service TemplateService) *TemplateController {
	return &TemplateController{Service: service}
}

// CreateTemplate godoc
// @Summary Create an approval template
// @Description Create a reusable officer configuration for an object type/source pair
// @Tags templates
// @Accept json
// @Produce json
// @Param template body ApprovalTemplate true "Template"
// @Success 201 {object} map[string]string "Template created successfully"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/templates [post]
func (c *TemplateController) CreateTemplate(ctx *fiber.Ctx) error {
	var input ApprovalTemplate
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.CreateTemplate(ctx.UserContext(), input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Template created successfully"})
}

// UpdateTemplate godoc
// @Summary Update an approval template
// @Description Update officers/activation; in-flight flows are unaffected
// @Tags templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param template body ApprovalTemplate true "Template"
// @Success 200 {object} map[string]string "Template updated successfully"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/templates/{id} [put]
func (c *TemplateController) UpdateTemplate(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	var input ApprovalTemplate
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.UpdateTemplate(ctx.UserContext(), id, input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"message": "Template updated successfully"})
}

// GetTemplateByID godoc
// @Summary Get template by ID
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} ApprovalTemplate
// @Failure 404 {object} map[string]string "Template not found"
// @Router /api/templates/{id} [get]
func (c *TemplateController) GetTemplateByID(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	tmpl, err := c.Service.GetTemplateByID(ctx.UserContext(), id)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if tmpl == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Template not found"})
	}
	return ctx.JSON(tmpl)
}

// ListTemplates godoc
// @Summary List all approval templates
// @Tags templates
// @Produce json
// @Success 200 {array} ApprovalTemplate
// @Router /api/templates [get]
func (c *TemplateController) ListTemplates(ctx *fiber.Ctx) error {
	templates, err := c.Service.ListTemplates(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(templates)
}

// FindActive godoc
// @Summary Get the active template for an object type/source pair
// @Tags templates
// @Produce json
// @Param objectType path string true "Object type"
// @Param objectSource path string true "Object source"
// @Success 200 {object} ApprovalTemplate
// @Failure 404 {object} map[string]string "No active template"
// @Router /api/templates/active/{objectType}/{objectSource} [get]
func (c *TemplateController) FindActive(ctx *fiber.Ctx) error {
	tmpl, err := c.Service.FindActive(ctx.UserContext(), ctx.Params("objectType"), ctx.Params("objectSource"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if tmpl == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active template for this object type and source"})
	}
	return ctx.JSON(tmpl)
}
