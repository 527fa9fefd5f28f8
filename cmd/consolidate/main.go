/*
main.go - Batch consolidation CLI

PURPOSE:
  Runs the whole pipeline from the command line: read work plan workbooks,
  aggregate and price the blocks under the selected tariff, and write the
  consolidated workbook. Meant for the month-end batch; the HTTP server in
  cmd/server serves the same engine interactively.

EXAMPLES:
  # Consolidate two work plans under the seasonal tariff
  consolidate run --operator SEASON --out agosto.xlsx piani/*.xlsx

  # Restrict to one site, round extra minutes up to 5
  consolidate run --operator BANDED --sites BGY \
      --extra-rounding ceiling --extra-step 5 --out bgy.xlsx piano.xlsx

  # With a YAML run config
  consolidate run --config run.yaml --out out.xlsx piano.xlsx

  # List the available tariffs
  consolidate policies
*/
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/groundside/shift-engine/billing"
	"github.com/groundside/shift-engine/config"
	"github.com/groundside/shift-engine/factory"
	"github.com/groundside/shift-engine/spreadsheet"
	"github.com/groundside/shift-engine/store/sqlite"
	"github.com/groundside/shift-engine/tariff"
)

var CLI struct {
	Version kong.VersionFlag
	DB      string `help:"SQLite tariff database; empty uses built-in presets only." type:"path"`

	Run      RunCmd      `cmd:"" help:"Consolidate work plan workbooks." default:"1"`
	Policies PoliciesCmd `cmd:"" help:"List the available tariffs."`
}

type appContext struct {
	registry *tariff.Registry
}

// =============================================================================
// RUN COMMAND
// =============================================================================

type RunCmd struct {
	Files []string `arg:"" help:"Work plan workbooks, in read order." type:"existingfile"`
	Out   string   `help:"Output workbook path." short:"o" default:"consolidated.xlsx"`

	Config   string   `help:"YAML run config path." type:"path"`
	Operator string   `help:"Operator whose tariff governs the run."`
	Policy   string   `help:"Explicit tariff ID, overriding operator lookup."`
	Sites    []string `help:"Restrict to these site codes."`

	ExtraRounding string `help:"Rounding mode for extra minutes (none, floor, ceiling, nearest)." default:"none"`
	ExtraStep     int    `help:"Rounding granularity for extra minutes." default:"1"`
	NightRounding string `help:"Rounding mode for night minutes." default:"none"`
	NightStep     int    `help:"Rounding granularity for night minutes." default:"1"`
}

func (c *RunCmd) Run(app *appContext) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	c.applyConfig(&cfg)

	// Extra JSON tariffs from the config join the registry.
	pf := factory.NewPolicyFactory()
	for _, path := range cfg.PolicyFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		policy, err := pf.ParsePolicy(string(data))
		if err != nil {
			return fmt.Errorf("policy file %s: %w", path, err)
		}
		app.registry.Register(policy)
	}

	operator := billing.OperatorID(strings.ToUpper(cfg.Operator))
	reader := &spreadsheet.Reader{Operator: operator}
	read, err := reader.ReadFiles(c.Files)
	if err != nil {
		return err
	}
	for _, sk := range read.Skipped {
		fmt.Fprintf(os.Stderr, "skipped %s!%s: %s\n", sk.File, sk.Sheet, sk.Reason)
	}
	if len(read.Rows) == 0 {
		return fmt.Errorf("no usable rows in %d file(s)", len(c.Files))
	}

	agg := billing.Aggregate(read.Rows, cfg.SiteCodes()...)

	policy, err := c.selectPolicy(app.registry, cfg, operator, agg.Blocks)
	if err != nil {
		return err
	}

	engine := billing.NewEngine(policy)
	engine.ExtraRounding = cfg.ExtraRounding.Rounding()
	engine.NightRounding = cfg.NightRounding.Rounding()
	engine.Calendar = cfg.Calendar()

	computed, err := engine.ComputeAll(context.Background(), agg.Blocks)
	if err != nil {
		return err
	}
	rollup := billing.Rollup(computed)

	out := &spreadsheet.RunOutput{
		Blocks:        computed,
		Rollup:        rollup,
		Discrepancies: billing.CompareAll(computed),
		Dropped:       agg.Dropped,
		Skipped:       read.Skipped,
	}
	if err := spreadsheet.WriteFile(c.Out, out); err != nil {
		return err
	}

	if line := rollup.Line(billing.PeriodMonth, ""); line != nil {
		fmt.Printf("%d blocks, %d with errors, %d rows dropped\n",
			line.Blocks+rollup.ErrorBlocks, rollup.ErrorBlocks, len(agg.Dropped))
		fmt.Printf("month total %s -> %s\n", line.Total.StringFixed(2), c.Out)
	} else {
		fmt.Printf("no billable blocks -> %s\n", c.Out)
	}
	return nil
}

// applyConfig lets command-line flags override the YAML run config.
func (c *RunCmd) applyConfig(cfg *config.Config) {
	if c.Operator != "" {
		cfg.Operator = c.Operator
	}
	if c.Policy != "" {
		cfg.PolicyID = c.Policy
	}
	if len(c.Sites) > 0 {
		cfg.Sites = c.Sites
	}
	if c.ExtraRounding != "none" || cfg.ExtraRounding.Mode == "" {
		cfg.ExtraRounding = config.RoundingConfig{Mode: c.ExtraRounding, Step: c.ExtraStep}
	}
	if c.NightRounding != "none" || cfg.NightRounding.Mode == "" {
		cfg.NightRounding = config.RoundingConfig{Mode: c.NightRounding, Step: c.NightStep}
	}
}

func (c *RunCmd) selectPolicy(reg *tariff.Registry, cfg config.Config, operator billing.OperatorID, blocks []*billing.Block) (*billing.RatePolicy, error) {
	if cfg.PolicyID != "" {
		if p := reg.Get(billing.PolicyID(cfg.PolicyID)); p != nil {
			return p, nil
		}
		return nil, fmt.Errorf("tariff %q: %w", cfg.PolicyID, billing.ErrPolicyNotFound)
	}
	if operator == "" {
		return nil, fmt.Errorf("an operator or an explicit tariff ID is required")
	}
	for _, b := range blocks {
		if b.Err == nil {
			return reg.Lookup(operator, b.Site)
		}
	}
	return reg.Lookup(operator, "")
}

// =============================================================================
// POLICIES COMMAND
// =============================================================================

type PoliciesCmd struct{}

func (c *PoliciesCmd) Run(app *appContext) error {
	for _, p := range app.registry.All() {
		sites := "any site"
		if len(p.Sites) > 0 {
			codes := make([]string, len(p.Sites))
			for i, s := range p.Sites {
				codes[i] = string(s)
			}
			sites = strings.Join(codes, ",")
		}
		fmt.Printf("%-14s %-10s %-10s %s\n", p.ID, p.Operator, sites, p.Name)
	}
	return nil
}

// =============================================================================
// ENTRY POINT
// =============================================================================

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("consolidate"),
		kong.Description("Ground-handling shift billing consolidation"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.3.0"},
	)

	registry := tariff.DefaultRegistry()
	if CLI.DB != "" {
		store, err := sqlite.New(CLI.DB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		if err := store.LoadRegistry(context.Background(), registry.Register); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load stored tariffs: %v\n", err)
		}
	}

	err := ctx.Run(&appContext{registry: registry})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
