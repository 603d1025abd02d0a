package report

import (
	"context"
	"fmt"
	"time"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/features/audit"
	"go-approvals/internal/features/flow"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
)

type ExportFilter struct {
	Status     string `json:"status"`
	ObjectType string `json:"object_type"`
}

type ReportService interface {
	// ExportFlows builds a two-sheet workbook: flows with their completion
	// counts, and the individual signatures.
	ExportFlows(ctx context.Context, filter ExportFilter) ([]byte, string, error)
}

type ReportServiceImpl struct {
	FlowRepo     flow.FlowRepository
	FlowService  flow.FlowService
	AuditService audit.AuditService
}

func NewReportService(flowRepo flow.FlowRepository, flowService flow.FlowService, auditService audit.AuditService) ReportService {
	return &ReportServiceImpl{
		FlowRepo:     flowRepo,
		FlowService:  flowService,
		AuditService: auditService,
	}
}

const (
	flowsSheet      = "Flows"
	signaturesSheet = "Signatures"
)

func (s *ReportServiceImpl) ExportFlows(ctx context.Context, filter ExportFilter) ([]byte, string, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.ObjectType != "" {
		query["object_type"] = filter.ObjectType
	}

	flows, err := s.FlowRepo.List(ctx, query, 10000, 0)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(flowsSheet)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	if _, err := f.NewSheet(signaturesSheet); err != nil {
		return nil, "", err
	}
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	flowHeaders := []string{
		"Flow ID", "Object Type", "Object ID", "Object Source", "Status",
		"Required", "Satisfied", "Signatures", "Created At", "Completed At",
		"Rejected By", "Reject Reason",
	}
	writeHeaders(f, flowsSheet, flowHeaders, headerStyle)

	sigHeaders := []string{"Flow ID", "Object Type", "Object ID", "Signer ID", "Signer Name", "Signed At"}
	writeHeaders(f, signaturesSheet, sigHeaders, headerStyle)

	sigRow := 2
	for rowIdx := range flows {
		fl := &flows[rowIdx]

		satisfied := 0
		if result, err := s.FlowService.EvaluateFlow(ctx, fl); err == nil {
			satisfied = len(result.SatisfiedRequired)
		}

		completedAt := ""
		if fl.CompletedAt != nil {
			completedAt = fl.CompletedAt.Format("2006-01-02 15:04:05")
		}

		values := []interface{}{
			fl.ID.Hex(), fl.ObjectType, fl.ObjectID, fl.ObjectSource, string(fl.Status),
			len(fl.RequiredOfficers), satisfied, len(fl.Signatures),
			fl.CreatedAt.Format("2006-01-02 15:04:05"), completedAt,
			fl.RejectedBy, fl.RejectReason,
		}
		writeRow(f, flowsSheet, rowIdx+2, values)

		for _, sig := range fl.Signatures {
			writeRow(f, signaturesSheet, sigRow, []interface{}{
				fl.ID.Hex(), fl.ObjectType, fl.ObjectID,
				sig.UserID, sig.Username, sig.SignedAt.Format("2006-01-02 15:04:05"),
			})
			sigRow++
		}
	}

	for i := range flowHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(flowsSheet, col, col, 18)
	}
	for i := range sigHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(signaturesSheet, col, col, 18)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionReport, "flows", "export", map[string]common_models.Change{
		"count":  {New: len(flows)},
		"filter": {New: filter},
	})

	filename := fmt.Sprintf("flows_%s.xlsx", time.Now().Format("20060102_150405"))
	return buffer.Bytes(), filename, nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, style)
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheet, cell, v)
	}
}
