package analytics

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	monthlySheet = "Monthly"
	statusSheet  = "Status"
)

// RenderReport writes s as an xlsx workbook with a monthly sheet and a status sheet.
func RenderReport(s Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", monthlySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(statusSheet); err != nil {
		return nil, err
	}

	header := []any{"Month", "Loans", "Repayments", "Repayment Amount", "Outstanding"}
	if err := f.SetSheetRow(monthlySheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, m := range s.Months {
		row := []any{
			m,
			s.MonthlyLoans[i],
			s.MonthlyRepayments[i],
			s.MonthlyRepaymentAmounts[i].InexactFloat64(),
			s.MonthlyOutstanding[i].InexactFloat64(),
		}
		if err := f.SetSheetRow(monthlySheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}

	rows := [][]any{
		{"Status", "Count"},
		{"Pending", s.StatusDistribution.Pending},
		{"Approved", s.StatusDistribution.Approved},
		{"Rejected", s.StatusDistribution.Rejected},
		{"Completed", s.StatusDistribution.Completed},
	}
	for i := range rows {
		if err := f.SetSheetRow(statusSheet, fmt.Sprintf("A%d", i+1), &rows[i]); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
