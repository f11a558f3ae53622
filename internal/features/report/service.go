package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go-groupware/internal/features/approval"

	"github.com/xuri/excelize/v2"
)

type ReportService interface {
	// ExportApprovals renders the approval register as an xlsx workbook.
	ExportApprovals(ctx context.Context, targetType string) (*bytes.Buffer, error)
}

type ReportServiceImpl struct {
	ApprovalRepo approval.ApprovalRepository
}

func NewReportService(approvalRepo approval.ApprovalRepository) ReportService {
	return &ReportServiceImpl{ApprovalRepo: approvalRepo}
}

var exportHeaders = []string{
	"ID", "Target Type", "Target ID", "Step", "Status", "Final",
	"Requester", "Approver", "Memo", "Resolved At", "Created At",
}

func (s *ReportServiceImpl) ExportApprovals(ctx context.Context, targetType string) (*bytes.Buffer, error) {
	records, err := s.ApprovalRepo.ListAllByType(ctx, targetType)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Approvals"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for rowIdx, rec := range records {
		values := []interface{}{
			rec.ID,
			rec.TargetType,
			rec.TargetID,
			rec.Step,
			string(rec.Status),
			rec.IsFinal,
			rec.RequesterID,
			rec.ApproverID,
			rec.Memo,
			formatTimePtr(rec.ApprovedAt),
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	for i := range exportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, 16)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render approval register: %w", err)
	}
	return &buf, nil
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
