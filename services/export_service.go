package services

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github/itish2003/finrag/models"
)

const (
	sheetKeyMetrics       = "Key Metrics"
	sheetFinancialMetrics = "Financial Metrics"
	sheetRevenueBreakdown = "Revenue Breakdown"
)

// BuildInsightsWorkbook renders the insights as an xlsx file, one sheet per record.
func BuildInsightsWorkbook(document string, insights *models.InsightsResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Msg("SERVICE: error closing workbook")
		}
	}()

	if err := f.SetSheetName("Sheet1", sheetKeyMetrics); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	km := insights.KeyMetrics
	rows := [][]interface{}{
		{"Report", document},
		{"Metric", "Value"},
		{"Revenue", km.Revenue},
		{"Revenue Growth", km.RevenueGrowth},
		{"Profit", km.Profit},
		{"Profit Growth", km.ProfitGrowth},
		{"ROE", km.ROE},
		{"EPS", km.EPS},
	}
	if err := writeRows(f, sheetKeyMetrics, rows); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(sheetFinancialMetrics); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	fm := insights.FinancialMetrics
	rows = [][]interface{}{
		{"Metric", "Value"},
		{"Total Assets", fm.TotalAssets},
		{"Total Equity", fm.TotalEquity},
		{"Current Assets", fm.CurrentAssets},
		{"Revenue from Operations", fm.RevenueOperations},
		{"Net Profit", fm.NetProfit},
		{"Basic EPS", fm.BasicEPS},
	}
	if err := writeRows(f, sheetFinancialMetrics, rows); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(sheetRevenueBreakdown); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	rows = [][]interface{}{{"Segment", "Percentage", "Revenue"}}
	for _, s := range insights.RevenueBreakdown {
		rows = append(rows, []interface{}{s.Segment, s.Percentage, s.Revenue})
	}
	if err := writeRows(f, sheetRevenueBreakdown, rows); err != nil {
		return nil, err
	}

	for _, sheet := range []string{sheetKeyMetrics, sheetFinancialMetrics, sheetRevenueBreakdown} {
		if err := f.SetColWidth(sheet, "A", "C", 24); err != nil {
			return nil, fmt.Errorf("failed to size columns: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
