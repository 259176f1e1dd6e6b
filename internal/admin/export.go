package admin

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"quiz-funnel-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ExportFormat selects the lead export encoding.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

const exportDateLayout = "02/01/2006 15:04"

var exportHeaders = []string{"Nome", "Email", "Telefone", "Data", "Quiz"}

// ParseExportFormat defaults to CSV.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Export is an encoded lead export ready to be served.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportLeads encodes every lead matching search, newest first.
func (s *Service) ExportLeads(ctx context.Context, search string, format ExportFormat) (Export, error) {
	leads, err := s.repo.ExportLeads(ctx, strings.TrimSpace(search))
	if err != nil {
		return Export{}, fmt.Errorf("export leads: %w", err)
	}
	stamp := s.now().UTC().Format("2006-01-02")
	switch format {
	case FormatXLSX:
		body, err := leadsToExcel(leads)
		if err != nil {
			return Export{}, err
		}
		return Export{
			Filename:    "leads-" + stamp + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Body:        body,
		}, nil
	default:
		body, err := leadsToCSV(leads)
		if err != nil {
			return Export{}, err
		}
		return Export{
			Filename:    "leads-" + stamp + ".csv",
			ContentType: "text/csv; charset=utf-8",
			Body:        body,
		}, nil
	}
}

func leadRow(l domain.Lead) []string {
	return []string{l.Name, l.Email, l.Phone, l.CreatedAt.UTC().Format(exportDateLayout), l.QuizTitle}
}

func leadsToCSV(leads []domain.Lead) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeaders); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, l := range leads {
		if err := w.Write(leadRow(l)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func leadsToExcel(leads []domain.Lead) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Leads"
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("failed to name Excel sheet: %w", err)
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}
	for rowIndex, l := range leads {
		for colIndex, value := range leadRow(l) {
			cell, _ := excelize.CoordinatesToCellName(colIndex+1, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}
