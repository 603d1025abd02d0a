package report

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type ReportController struct {
	Service ReportService
}

func NewReportController(service ReportService) *ReportController {
	return &ReportController{Service: service}
}

// ExportFlows godoc
// @Summary Export flows and signatures as an Excel workbook
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "Filter by flow status"
// @Param object_type query string false "Filter by object type"
// @Success 200 {file} binary
// @Router /api/reports/flows/export [get]
func (c *ReportController) ExportFlows(ctx *fiber.Ctx) error {
	filter := ExportFilter{
		Status:     ctx.Query("status"),
		ObjectType: ctx.Query("object_type"),
	}

	data, filename, err := c.Service.ExportFlows(ctx.UserContext(), filter)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	return ctx.Send(data)
}
