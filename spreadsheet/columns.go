/*
Package spreadsheet adapts XLSX work plans to and from the billing engine.

PURPOSE:
  Work plans arrive as Excel workbooks with hand-maintained headers: renamed,
  re-cased, reordered from month to month. This package resolves the headers
  to column roles best-effort, turns data rows into billing.RawRow values,
  and renders computed results back into a workbook.

FILES:
  - columns.go: Fuzzy header-to-role resolution
  - reader.go:  Workbook to RawRow stream
  - writer.go:  Computed results to workbook
*/
package spreadsheet

import (
	"regexp"
	"strings"
)

// =============================================================================
// COLUMN ROLES
// =============================================================================

// Role names one recognized column of a work plan.
type Role string

const (
	RoleDate      Role = "date"
	RoleOperator  Role = "operator"
	RoleSite      Role = "site"
	RoleShift     Role = "shift"
	RoleATD       Role = "atd"
	RoleSTD       Role = "std"
	RoleAssistant Role = "assistant"
	RoleHoliday   Role = "holiday"
	RoleRefTotal  Role = "ref_total"
	RoleRefExtra  Role = "ref_extra"
	RoleRefNight  Role = "ref_night"
)

// rolePatterns maps each role to its header patterns, most specific first.
// Headers are normalized (collapsed spaces, upper case) before matching.
var rolePatterns = map[Role][]*regexp.Regexp{
	RoleDate: {
		regexp.MustCompile(`^DATA$`),
		regexp.MustCompile(`\bDATE\b`),
	},
	RoleOperator: {
		regexp.MustCompile(`TOUR\s*OPERATOR`),
		regexp.MustCompile(`^TO$`),
		regexp.MustCompile(`\bOPERATORE\b`),
	},
	RoleSite: {
		regexp.MustCompile(`^APT$`),
		regexp.MustCompile(`\bAEROPORTO\b`),
		regexp.MustCompile(`\bSCALO\b`),
	},
	RoleShift: {
		regexp.MustCompile(`^TURNO$`),
		regexp.MustCompile(`^TURNO\s*ASSISTENTE$`),
		regexp.MustCompile(`\bTURNI\b`),
	},
	RoleATD: {
		regexp.MustCompile(`^ATD$`),
		regexp.MustCompile(`\bORARIO\s*ATD\b`),
	},
	RoleSTD: {
		regexp.MustCompile(`^STD$`),
		regexp.MustCompile(`\bORARIO\s*STD\b`),
	},
	RoleAssistant: {
		regexp.MustCompile(`^ASSISTENTE$`),
	},
	RoleHoliday: {
		regexp.MustCompile(`^FESTIVO$`),
		regexp.MustCompile(`\bHOLIDAY\b`),
	},
	RoleRefTotal: {
		regexp.MustCompile(`^IMPORTO$`),
		regexp.MustCompile(`\bTOTALE\b`),
		regexp.MustCompile(`^COSTO\s*$`),
	},
	RoleRefExtra: {
		regexp.MustCompile(`\bORE\s*EXTRA\b`),
		regexp.MustCompile(`^EXTRA$`),
		regexp.MustCompile(`\bEXTRA\s*(MIN|ORE)\b`),
	},
	RoleRefNight: {
		regexp.MustCompile(`^NOTTURNO$`),
		regexp.MustCompile(`\bNIGHT\b`),
	},
}

// requiredRoles must all resolve for a sheet to be usable.
var requiredRoles = []Role{RoleDate, RoleSite, RoleShift}

var headerSpacesRe = regexp.MustCompile(`\s+`)

// NormalizeHeader collapses whitespace and upper-cases a header cell.
func NormalizeHeader(s string) string {
	return strings.ToUpper(headerSpacesRe.ReplaceAllString(strings.TrimSpace(s), " "))
}

// =============================================================================
// DETECTION
// =============================================================================

// Columns maps resolved roles to zero-based column indexes.
type Columns map[Role]int

// Has reports whether a role resolved.
func (c Columns) Has(r Role) bool { _, ok := c[r]; return ok }

// Missing lists the required roles that did not resolve.
func (c Columns) Missing() []Role {
	var out []Role
	for _, r := range requiredRoles {
		if !c.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// DetectColumns resolves a header row to column roles. For each role the
// patterns are tried in order; the first header matching the earliest
// pattern wins, so exact names beat loose ones.
func DetectColumns(header []string) Columns {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = NormalizeHeader(h)
	}

	cols := make(Columns)
	for role, patterns := range rolePatterns {
		for _, pat := range patterns {
			found := -1
			for i, h := range normalized {
				if h != "" && pat.MatchString(h) {
					found = i
					break
				}
			}
			if found >= 0 {
				cols[role] = found
				break
			}
		}
	}
	return cols
}
