package excel

import (
	"fmt"

	"crisiswatch/ports"

	"github.com/xuri/excelize/v2"
)

// WriteInvoiceXLSX renders one run's invoice as a spreadsheet: a summary
// block on top, then one row per line item.
func WriteInvoiceXLSX(path string, rec ports.RunRecord) error {
	if rec.Invoice == nil {
		return fmt.Errorf("run %s has no invoice", rec.RunID)
	}
	inv := rec.Invoice

	f := excelize.NewFile()
	sheet := "Invoice"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	summary := [][]interface{}{
		{"Run", rec.RunID.String()},
		{"Customer", rec.CustomerID.String()},
		{"Subject", rec.Subject},
		{"Alert level", string(rec.AlertLevel)},
		{"Total value at risk (EUR)", rec.TotalValueAtRisk},
		{"Human-equivalent total (EUR)", inv.TotalHumanEquivalent},
		{"API compute total (EUR)", inv.TotalAPICost},
		{"Gross margin (%)", inv.TotalMarginPercent},
		{"ROI multiplier", inv.ROIMultiplier},
		{"Action refused", inv.ActionRefused},
	}
	if inv.ActionRefused {
		summary = append(summary, []interface{}{"Refusal reason", inv.RefusalReason})
	}
	for r, pair := range summary {
		for c, v := range pair {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	headerRow := len(summary) + 2
	headers := []string{"Stage", "Event", "Human equivalent (EUR)", "Compute cost (EUR)", "Margin (%)", "Detail"}
	for c, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(c+1, headerRow)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for r, item := range inv.LineItems {
		row := []interface{}{
			item.Stage,
			item.Event,
			item.HumanEquivalentEUR,
			item.ComputeCostEUR,
			item.MarginPercent,
			item.Detail,
		}
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, headerRow+1+r)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(path)
}
