/*
reader.go - Workbook to RawRow stream

PURPOSE:
  Reads one or more XLSX work plans into the flat RawRow sequence the
  aggregator consumes. Rows keep their global read order (file, then sheet,
  then row) because forward-fill and first-seen block ordering depend on it.

  Reading is best-effort: sheets whose headers lack the minimum roles are
  skipped and reported, cells that refuse to parse leave the field empty.
  Dropping data silently is the one thing this reader never does.
*/
package spreadsheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/groundside/shift-engine/billing"
)

// =============================================================================
// READ RESULT
// =============================================================================

// SkippedSheet records a sheet left unread and why.
type SkippedSheet struct {
	File   string
	Sheet  string
	Reason string
}

// ReadResult is the outcome of reading one or more workbooks.
type ReadResult struct {
	Rows    []billing.RawRow
	Skipped []SkippedSheet
}

// Reader streams work plans into RawRows, carrying the global order across
// calls so multiple files read through one Reader aggregate correctly.
type Reader struct {
	// Operator stamps every row whose sheet has no operator column.
	Operator billing.OperatorID

	order int
}

// =============================================================================
// READING
// =============================================================================

// ReadFile opens a workbook from disk and reads every usable sheet.
func (r *Reader) ReadFile(path string) (*ReadResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()
	return r.read(f, path)
}

// Read reads a workbook from a stream, labeling rows with the given name.
func (r *Reader) Read(src io.Reader, name string) (*ReadResult, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", name, err)
	}
	defer f.Close()
	return r.read(f, name)
}

func (r *Reader) read(f *excelize.File, name string) (*ReadResult, error) {
	res := &ReadResult{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s!%s: %w", name, sheet, err)
		}
		if len(rows) < 2 {
			res.Skipped = append(res.Skipped, SkippedSheet{File: name, Sheet: sheet, Reason: "no data rows"})
			continue
		}

		cols := DetectColumns(rows[0])
		if missing := cols.Missing(); len(missing) > 0 {
			res.Skipped = append(res.Skipped, SkippedSheet{
				File:   name,
				Sheet:  sheet,
				Reason: fmt.Sprintf("unresolved columns: %v", missing),
			})
			continue
		}

		for i, cells := range rows[1:] {
			if blankRow(cells) {
				continue
			}
			row := r.toRawRow(cells, cols, name, sheet, i+2)
			res.Rows = append(res.Rows, row)
		}
	}
	return res, nil
}

// ReadFiles reads several workbooks in order into one combined result.
func (r *Reader) ReadFiles(paths []string) (*ReadResult, error) {
	combined := &ReadResult{}
	for _, p := range paths {
		res, err := r.ReadFile(p)
		if err != nil {
			return nil, err
		}
		combined.Rows = append(combined.Rows, res.Rows...)
		combined.Skipped = append(combined.Skipped, res.Skipped...)
	}
	return combined, nil
}

// =============================================================================
// CELL CONVERSION
// =============================================================================

func (r *Reader) toRawRow(cells []string, cols Columns, file, sheet string, rowIdx int) billing.RawRow {
	r.order++
	row := billing.RawRow{
		Operator: r.Operator,
		Ref:      billing.RowRef{File: file, Sheet: sheet, Row: rowIdx, Order: r.order},
	}

	row.Date = parseDateCell(cell(cells, cols, RoleDate))
	row.Site = billing.SiteCode(strings.ToUpper(strings.TrimSpace(cell(cells, cols, RoleSite))))
	row.ShiftLabel = strings.TrimSpace(cell(cells, cols, RoleShift))
	row.Assistant = strings.TrimSpace(cell(cells, cols, RoleAssistant))
	row.HolidayCell = strings.TrimSpace(cell(cells, cols, RoleHoliday))
	if op := strings.TrimSpace(cell(cells, cols, RoleOperator)); op != "" {
		row.Operator = billing.OperatorID(strings.ToUpper(op))
	}

	row.ATD = parseTimesCell(cell(cells, cols, RoleATD))
	row.STD = parseTimesCell(cell(cells, cols, RoleSTD))

	if v := parseMoneyCell(cell(cells, cols, RoleRefTotal)); v != nil {
		row.RefTotal = v
	}
	if v := parseMinutesCell(cell(cells, cols, RoleRefExtra)); v != nil {
		row.RefExtraMin = v
	}
	if v := parseMinutesCell(cell(cells, cols, RoleRefNight)); v != nil {
		row.RefNightMin = v
	}
	return row
}

func cell(cells []string, cols Columns, role Role) string {
	idx, ok := cols[role]
	if !ok || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// dateLayouts covers the formats excelize renders and the hand-typed ones.
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02",
	"02/01/06",
	"01-02-06",
	"2.1.2006",
}

// parseDateCell converts a date cell; a zero time means unparsable, which
// the aggregator reports as a dropped row.
func parseDateCell(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return billing.Day(t)
		}
	}
	// Excel serial date, the raw form of an unformatted date cell.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 20000 && serial < 80000 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return billing.Day(t)
		}
	}
	return time.Time{}
}

// parseTimesCell splits a departures cell on the usual separators and keeps
// every parsable clock time.
func parseTimesCell(s string) []billing.ClockTime {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []billing.ClockTime
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == ' ' || r == '\n'
	}) {
		if ct, ok := billing.ParseClockTime(tok); ok {
			out = append(out, ct)
		}
	}
	return out
}

// parseMoneyCell reads Italian-formatted amounts: an optional euro sign, a
// dot as thousands separator and a comma as the decimal mark ("1.234,56 €").
// Plain dot-decimal values pass through unchanged.
func parseMoneyCell(s string) *decimal.Decimal {
	s = strings.TrimSpace(strings.NewReplacer("€", "", "EUR", "").Replace(s))
	if s == "" {
		return nil
	}
	if strings.Contains(s, ",") {
		// With a comma present, dots can only be thousands separators.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// parseMinutesCell accepts both a bare minute count and the H:MM form used
// in the extra/night columns.
func parseMinutesCell(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.ContainsAny(s, ":.") {
		if ct, ok := billing.ParseClockTime(s); ok {
			m := ct.Hour*60 + ct.Minute
			return &m
		}
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
