package audit

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
)

type AuditController struct {
	Service AuditService
}

func NewAuditController(service AuditService) *AuditController {
	return &AuditController{Service: service}
}

// ListLogs godoc
// @Summary List audit logs
// @Description List the approval decision trail, newest first
// @Tags audit
// @Produce json
// @Param object_type query string false "Object type"
// @Param object_id query string false "Object ID"
// @Param flow_id query string false "Flow ID"
// @Param action query string false "Action"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {array} models.AuditLog
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/audit [get]
func (c *AuditController) ListLogs(ctx *fiber.Ctx) error {
	filter := bson.M{}
	if v := ctx.Query("object_type"); v != "" {
		filter["object_type"] = v
	}
	if v := ctx.Query("object_id"); v != "" {
		filter["object_id"] = v
	}
	if v := ctx.Query("flow_id"); v != "" {
		filter["flow_id"] = v
	}
	if v := ctx.Query("action"); v != "" {
		filter["action"] = v
	}

	page := int64(ctx.QueryInt("page", 1))
	limit := int64(ctx.QueryInt("limit", 50))

	logs, err := c.Service.ListLogs(ctx.UserContext(), filter, page, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(logs)
}
