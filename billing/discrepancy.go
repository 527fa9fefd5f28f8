/*
discrepancy.go - Reference-value comparison

PURPOSE:
  Work plans often carry the values a human already computed: an extra-minute
  count, a night-minute count, a total. When a block's first row has any of
  these, the reporter derives a DiscrepancyRecord comparing them against the
  engine's result. Purely informational: records never feed back into
  pricing and never block output.
*/
package billing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// DISCREPANCY RECORDS
// =============================================================================

// MinutesDelta compares a computed minute count against a reference.
type MinutesDelta struct {
	Computed  int
	Reference int
	Delta     int // Computed - Reference
}

// MoneyDelta compares a computed amount against a reference.
type MoneyDelta struct {
	Computed  decimal.Decimal
	Reference decimal.Decimal
	Delta     decimal.Decimal
}

// DiscrepancyRecord holds the per-field comparison for one block. A nil
// field means the source carried no reference for it.
type DiscrepancyRecord struct {
	Key      BlockKey
	First    RowRef
	ExtraMin *MinutesDelta
	NightMin *MinutesDelta
	Total    *MoneyDelta
}

// Clean reports whether every compared field matched exactly.
func (r *DiscrepancyRecord) Clean() bool {
	if r.ExtraMin != nil && r.ExtraMin.Delta != 0 {
		return false
	}
	if r.NightMin != nil && r.NightMin.Delta != 0 {
		return false
	}
	if r.Total != nil && !r.Total.Delta.IsZero() {
		return false
	}
	return true
}

// =============================================================================
// REPORTER
// =============================================================================

// Compare derives a discrepancy record for a computed block, or nil when
// the block carries no reference values at all.
func Compare(cb *ComputedBlock) *DiscrepancyRecord {
	b := cb.Block
	if b.RefExtraMin == nil && b.RefNightMin == nil && b.RefTotal == nil {
		return nil
	}

	rec := &DiscrepancyRecord{Key: b.Key(), First: b.First}
	if b.RefExtraMin != nil {
		rec.ExtraMin = &MinutesDelta{
			Computed:  cb.ExtraBillableMin,
			Reference: *b.RefExtraMin,
			Delta:     cb.ExtraBillableMin - *b.RefExtraMin,
		}
	}
	if b.RefNightMin != nil {
		rec.NightMin = &MinutesDelta{
			Computed:  cb.NightBillableMin,
			Reference: *b.RefNightMin,
			Delta:     cb.NightBillableMin - *b.RefNightMin,
		}
	}
	if b.RefTotal != nil {
		rec.Total = &MoneyDelta{
			Computed:  cb.Total,
			Reference: *b.RefTotal,
			Delta:     cb.Total.Sub(*b.RefTotal),
		}
	}
	return rec
}

// CompareAll collects the non-nil records for a computed batch, in order.
func CompareAll(blocks []*ComputedBlock) []*DiscrepancyRecord {
	var out []*DiscrepancyRecord
	for _, cb := range blocks {
		if cb == nil || cb.Err != nil {
			continue
		}
		if rec := Compare(cb); rec != nil {
			out = append(out, rec)
		}
	}
	return out
}
