/*
writer.go - Computed results to workbook

PURPOSE:
  Renders one consolidation run into an XLSX workbook: a detail sheet with
  one row per computed block, a totals sheet with the period/site rollup
  lines, a discrepancy sheet when reference values disagreed, and an error
  sheet listing blocks and rows that fell out of pricing. Sheet and header
  names follow the conventions of the source work plans.
*/
package spreadsheet

import (
	"bytes"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/groundside/shift-engine/billing"
)

const (
	sheetDetail        = "DETTAGLIO"
	sheetTotals        = "RIEPILOGO"
	sheetDiscrepancies = "DISCREPANZE"
	sheetErrors        = "ERRORI"
)

// RunOutput bundles everything one consolidation run produced.
type RunOutput struct {
	Blocks        []*billing.ComputedBlock
	Rollup        *billing.RollupResult
	Discrepancies []*billing.DiscrepancyRecord
	Dropped       []billing.RowRef
	Skipped       []SkippedSheet
}

// =============================================================================
// WRITING
// =============================================================================

// WriteFile renders a run to an XLSX file on disk.
func WriteFile(path string, out *RunOutput) error {
	f, err := build(out)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

// Write renders a run to an in-memory XLSX, for HTTP responses.
func Write(out *RunOutput) ([]byte, error) {
	f, err := build(out)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func build(out *RunOutput) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheetDetail)

	writeDetail(f, out.Blocks)
	if out.Rollup != nil {
		f.NewSheet(sheetTotals)
		writeTotals(f, out.Rollup)
	}
	if len(out.Discrepancies) > 0 {
		f.NewSheet(sheetDiscrepancies)
		writeDiscrepancies(f, out.Discrepancies)
	}
	if hasErrors(out) {
		f.NewSheet(sheetErrors)
		writeErrors(f, out)
	}
	return f, nil
}

// =============================================================================
// SHEETS
// =============================================================================

func writeDetail(f *excelize.File, blocks []*billing.ComputedBlock) {
	headers := []string{
		"DATA", "APT", "TURNO", "DURATA", "FESTIVO",
		"BASE", "EXTRA MIN", "EXTRA", "NOTTURNO MIN", "NOTTURNO",
		"TOTALE", "ASSISTENTE", "ERRORE",
	}
	setRow(f, sheetDetail, 1, toCells(headers))

	row := 2
	for _, cb := range blocks {
		if cb == nil {
			continue
		}
		b := cb.Block
		cells := []interface{}{
			billing.DayKey(b.Date),
			string(b.Site),
			b.RawLabel,
			billing.FormatHMM(cb.DurationMin),
			boolCell(cb.Holiday),
			moneyCell(cb.BaseCost),
			cb.ExtraBillableMin,
			moneyCell(cb.ExtraCost),
			cb.NightBillableMin,
			moneyCell(cb.NightCost),
			moneyCell(cb.Total),
			firstAssistant(b),
			errCell(cb.Err),
		}
		setRow(f, sheetDetail, row, cells)
		row++
	}
}

func writeTotals(f *excelize.File, rollup *billing.RollupResult) {
	headers := []string{
		"PERIODO", "APT", "BLOCCHI", "ORE",
		"EXTRA MIN", "NOTTURNO MIN", "BASE", "EXTRA", "NOTTURNO", "TOTALE",
	}
	setRow(f, sheetTotals, 1, toCells(headers))

	row := 2
	for _, l := range rollup.Lines {
		site := string(l.Site)
		if site == "" {
			site = "TUTTI"
		}
		cells := []interface{}{
			string(l.Period),
			site,
			l.Blocks,
			billing.FormatHMM(l.DurationMin),
			l.ExtraBillableMin,
			l.NightBillableMin,
			moneyCell(l.BaseCost),
			moneyCell(l.ExtraCost),
			moneyCell(l.NightCost),
			moneyCell(l.Total),
		}
		setRow(f, sheetTotals, row, cells)
		row++
	}
}

func writeDiscrepancies(f *excelize.File, recs []*billing.DiscrepancyRecord) {
	headers := []string{
		"DATA", "APT", "TURNO", "FILE", "FOGLIO", "RIGA",
		"EXTRA CALC", "EXTRA RIF", "EXTRA DELTA",
		"NOTT CALC", "NOTT RIF", "NOTT DELTA",
		"TOT CALC", "TOT RIF", "TOT DELTA",
	}
	setRow(f, sheetDiscrepancies, 1, toCells(headers))

	row := 2
	for _, rec := range recs {
		cells := []interface{}{
			rec.Key.Date, string(rec.Key.Site), rec.Key.Label,
			rec.First.File, rec.First.Sheet, rec.First.Row,
		}
		cells = append(cells, minutesCells(rec.ExtraMin)...)
		cells = append(cells, minutesCells(rec.NightMin)...)
		if rec.Total != nil {
			cells = append(cells,
				moneyCell(rec.Total.Computed),
				moneyCell(rec.Total.Reference),
				moneyCell(rec.Total.Delta))
		} else {
			cells = append(cells, "", "", "")
		}
		setRow(f, sheetDiscrepancies, row, cells)
		row++
	}
}

func writeErrors(f *excelize.File, out *RunOutput) {
	setRow(f, sheetErrors, 1, toCells([]string{"TIPO", "DATA", "APT", "TURNO", "FILE", "FOGLIO", "RIGA", "DETTAGLIO"}))

	row := 2
	for _, cb := range out.Blocks {
		if cb == nil || cb.Err == nil {
			continue
		}
		b := cb.Block
		setRow(f, sheetErrors, row, []interface{}{
			"BLOCCO", billing.DayKey(b.Date), string(b.Site), b.RawLabel,
			b.First.File, b.First.Sheet, b.First.Row, cb.Err.Error(),
		})
		row++
	}
	for _, ref := range out.Dropped {
		setRow(f, sheetErrors, row, []interface{}{
			"RIGA", "", "", "", ref.File, ref.Sheet, ref.Row, billing.ErrMissingDate.Error(),
		})
		row++
	}
	for _, sk := range out.Skipped {
		setRow(f, sheetErrors, row, []interface{}{
			"FOGLIO", "", "", "", sk.File, sk.Sheet, "", sk.Reason,
		})
		row++
	}
}

// =============================================================================
// CELL HELPERS
// =============================================================================

func hasErrors(out *RunOutput) bool {
	if len(out.Dropped) > 0 || len(out.Skipped) > 0 {
		return true
	}
	for _, cb := range out.Blocks {
		if cb != nil && cb.Err != nil {
			return true
		}
	}
	return false
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) {
	for i, v := range cells {
		name, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			continue
		}
		_ = f.SetCellValue(sheet, name, v)
	}
}

func toCells(headers []string) []interface{} {
	out := make([]interface{}, len(headers))
	for i, h := range headers {
		out[i] = h
	}
	return out
}

func moneyCell(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func boolCell(b bool) string {
	if b {
		return "1"
	}
	return ""
}

func errCell(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func firstAssistant(b *billing.Block) string {
	for _, r := range b.Rows {
		if r.Assistant != "" {
			return r.Assistant
		}
	}
	return ""
}

func minutesCells(d *billing.MinutesDelta) []interface{} {
	if d == nil {
		return []interface{}{"", "", ""}
	}
	return []interface{}{d.Computed, d.Reference, d.Delta}
}
