package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"attendtrack/internal/report"
)

// AttendanceReport renders cross-student rows into an XLSX workbook and
// returns it as an in-memory buffer ready to stream.
func AttendanceReport(rows []report.ReportRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	sheet := "Attendance"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Student", "Email", "Class", "Subject", "Total Sessions", "Present", "Percentage"}
	for i, h := range headers {
		cell := fmt.Sprintf("%s1", string(rune('A'+i)))
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for i, r := range rows {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.StudentName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.StudentEmail)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), deref(r.ClassCode))
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), deref(r.SubjectCode))
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), r.TotalSessions)
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), r.PresentCount)
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), r.Percentage)
	}

	return f.WriteToBuffer()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
