package spreadsheet_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/groundside/shift-engine/billing"
	"github.com/groundside/shift-engine/spreadsheet"
	"github.com/groundside/shift-engine/tariff"
)

// workbook builds an in-memory XLSX with one sheet from string rows.
func workbook(t *testing.T, sheet string, rows [][]interface{}) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", sheet)
	for i, cells := range rows {
		for j, v := range cells {
			name, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, name, v))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return bytes.NewReader(buf.Bytes())
}

func TestReader_Read(t *testing.T) {
	src := workbook(t, "Agosto", [][]interface{}{
		{"DATA", "APT", "TURNO", "ATD", "FESTIVO", "ORE EXTRA", "IMPORTO"},
		{"03/08/2025", "vrn", "08-11", "11:20 / 11:35", "", "0:40", "€ 87,50"},
		{"", "", "", "", "", "", ""}, // blank rows are skipped
		{"04/08/2025", "BGY", "NO DEC 23:30-02:30", "", "SI", "", ""},
	})

	r := &spreadsheet.Reader{Operator: "SEASON"}
	res, err := r.Read(src, "agosto.xlsx")
	require.NoError(t, err)
	require.Empty(t, res.Skipped)
	require.Len(t, res.Rows, 2)

	// First data row: every cell resolved and normalized
	row := res.Rows[0]
	assert.Equal(t, time.Date(2025, time.August, 3, 0, 0, 0, 0, time.UTC), row.Date)
	assert.Equal(t, billing.SiteCode("VRN"), row.Site)
	assert.Equal(t, billing.OperatorID("SEASON"), row.Operator)
	assert.Equal(t, "08-11", row.ShiftLabel)
	require.Len(t, row.ATD, 2)
	assert.Equal(t, billing.NewClockTime(11, 20), row.ATD[0])
	assert.Equal(t, billing.NewClockTime(11, 35), row.ATD[1])
	require.NotNil(t, row.RefExtraMin)
	assert.Equal(t, 40, *row.RefExtraMin)
	require.NotNil(t, row.RefTotal)
	assert.True(t, row.RefTotal.Equal(decimal.RequireFromString("87.50")))

	// Second data row: holiday cell carried, provenance recorded
	row = res.Rows[1]
	assert.Equal(t, "SI", row.HolidayCell)
	assert.Equal(t, "agosto.xlsx", row.Ref.File)
	assert.Equal(t, "Agosto", row.Ref.Sheet)
	assert.Equal(t, 4, row.Ref.Row)
	assert.Equal(t, 2, row.Ref.Order)
}

func TestReader_ItalianMoneyFormats(t *testing.T) {
	// GIVEN: The money spellings that occur in real plans, thousands included
	src := workbook(t, "Agosto", [][]interface{}{
		{"DATA", "APT", "TURNO", "IMPORTO"},
		{"03/08/2025", "VRN", "08-11", "1.234,56 €"},
		{"04/08/2025", "VRN", "08-11", "87,50"},
		{"05/08/2025", "VRN", "08-11", "€ 87.50"},
		{"06/08/2025", "VRN", "08-11", "boh"},
	})

	r := &spreadsheet.Reader{}
	res, err := r.Read(src, "agosto.xlsx")
	require.NoError(t, err)
	require.Len(t, res.Rows, 4)

	want := []string{"1234.56", "87.50", "87.50"}
	for i, w := range want {
		require.NotNil(t, res.Rows[i].RefTotal, "row %d", i)
		assert.True(t, res.Rows[i].RefTotal.Equal(decimal.RequireFromString(w)),
			"row %d: got %s want %s", i, res.Rows[i].RefTotal, w)
	}

	// Unreadable amounts stay nil rather than billing garbage
	assert.Nil(t, res.Rows[3].RefTotal)
}

func TestReader_SkipsUnusableSheet(t *testing.T) {
	src := workbook(t, "Note", [][]interface{}{
		{"APPUNTI", "VARIE"},
		{"testo libero", ""},
	})

	r := &spreadsheet.Reader{}
	res, err := r.Read(src, "note.xlsx")
	require.NoError(t, err)

	assert.Empty(t, res.Rows)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "Note", res.Skipped[0].Sheet)
	assert.Contains(t, res.Skipped[0].Reason, "unresolved columns")
}

func TestReader_OrderSpansWorkbooks(t *testing.T) {
	header := []interface{}{"DATA", "APT", "TURNO"}
	first := workbook(t, "P1", [][]interface{}{header, {"03/08/2025", "VRN", "08-11"}})
	second := workbook(t, "P2", [][]interface{}{header, {"03/08/2025", "VRN", ""}})

	// GIVEN: Two workbooks read through one Reader
	r := &spreadsheet.Reader{}
	res1, err := r.Read(first, "a.xlsx")
	require.NoError(t, err)
	res2, err := r.Read(second, "b.xlsx")
	require.NoError(t, err)

	// THEN: Global order continues across files, so forward-fill works
	require.Len(t, res1.Rows, 1)
	require.Len(t, res2.Rows, 1)
	assert.Equal(t, 1, res1.Rows[0].Ref.Order)
	assert.Equal(t, 2, res2.Rows[0].Ref.Order)

	agg := billing.Aggregate(append(res1.Rows, res2.Rows...))
	require.Len(t, agg.Blocks, 1)
	assert.Len(t, agg.Blocks[0].Rows, 2)
}

// =============================================================================
// WRITER
// =============================================================================

func TestWrite_RoundRendersAllSheets(t *testing.T) {
	// GIVEN: A small run pushed through the whole pipeline
	src := workbook(t, "Agosto", [][]interface{}{
		{"DATA", "APT", "TURNO", "ATD"},
		{"03/08/2025", "VRN", "08-11", "11:20"},
		{"04/08/2025", "VRN", "RIPOSO", ""},
	})
	r := &spreadsheet.Reader{Operator: "SEASON"}
	read, err := r.Read(src, "agosto.xlsx")
	require.NoError(t, err)

	agg := billing.Aggregate(read.Rows)
	reg := tariff.DefaultRegistry()
	policy, err := reg.Lookup("SEASON", "VRN")
	require.NoError(t, err)

	engine := billing.NewEngine(policy)
	computed, err := engine.ComputeAll(context.Background(), agg.Blocks)
	require.NoError(t, err)

	// WHEN: Rendering the run in memory
	data, err := spreadsheet.Write(&spreadsheet.RunOutput{
		Blocks:  computed,
		Rollup:  billing.Rollup(computed),
		Dropped: agg.Dropped,
		Skipped: read.Skipped,
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	// THEN: Detail, totals and error sheets are present
	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "DETTAGLIO")
	assert.Contains(t, sheets, "RIEPILOGO")
	assert.Contains(t, sheets, "ERRORI")
	assert.NotContains(t, sheets, "DISCREPANZE")

	// AND: The clean block landed in the detail sheet with its total
	got, err := f.GetCellValue("DETTAGLIO", "A2")
	require.NoError(t, err)
	assert.Equal(t, "2025-08-03", got)
	total, err := f.GetCellValue("DETTAGLIO", "K2")
	require.NoError(t, err)
	assert.Equal(t, "81.00", total) // 75 base + 20min extra at 18/h

	// AND: The unparsable block is reported on the error sheet
	kind, err := f.GetCellValue("ERRORI", "A2")
	require.NoError(t, err)
	assert.Equal(t, "BLOCCO", kind)
}
