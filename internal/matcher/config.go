// Package matcher implements the invoice reconciliation engine: candidate
// blocking, weighted field scoring, one-to-one assignment, duplicate
// detection, and result metrics.
package matcher

import (
	"fmt"
	"math"
)

// ConfidenceTier labels how trustworthy a reconciled pair is.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// DuplicateField selects which normalized field duplicate detection groups by.
type DuplicateField string

const (
	// DuplicateByInvoiceRef groups records sharing a normalized invoice
	// reference.
	DuplicateByInvoiceRef DuplicateField = "invoice_ref"
	// DuplicateByAmountDate groups records sharing both an exact amount and
	// a calendar date.
	DuplicateByAmountDate DuplicateField = "amount_date"
)

// ComponentWeights holds the relative contribution of each field similarity
// to the composite match score. Weights must sum to 1.0.
type ComponentWeights struct {
	Reference float64 `json:"reference"`
	Amount    float64 `json:"amount"`
	Date      float64 `json:"date"`
	Vendor    float64 `json:"vendor"`
}

// Sum returns the total of all component weights.
func (w ComponentWeights) Sum() float64 {
	return w.Reference + w.Amount + w.Date + w.Vendor
}

// TierBounds holds the inclusive lower score bounds of the high and medium
// confidence tiers. Anything below Medium is low confidence.
type TierBounds struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
}

// EngineConfig holds all tunable parameters of the reconciliation engine.
type EngineConfig struct {
	// Weights controls the composite score blend.
	Weights ComponentWeights `json:"weights"`

	// CommitThreshold is the minimum composite score at which a candidate
	// pair may be committed as reconciled.
	CommitThreshold float64 `json:"commit_threshold"`

	// DateToleranceDays is the window, in whole days, over which date
	// similarity decays linearly from 1 to 0.
	DateToleranceDays int `json:"date_tolerance_days"`

	// TierBounds maps committed scores onto confidence tiers.
	TierBounds TierBounds `json:"tier_bounds"`

	// DuplicateFields selects which groupings duplicate detection runs,
	// in report order.
	DuplicateFields []DuplicateField `json:"duplicate_fields"`
}

// DefaultEngineConfig returns the standard configuration: reference-dominated
// weights, a 0.85 commit threshold, a week of date tolerance, and both
// duplicate groupings enabled.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Weights: ComponentWeights{
			Reference: 0.65,
			Amount:    0.25,
			Date:      0.08,
			Vendor:    0.02,
		},
		CommitThreshold:   0.85,
		DateToleranceDays: 7,
		TierBounds: TierBounds{
			High:   0.95,
			Medium: 0.85,
		},
		DuplicateFields: []DuplicateField{DuplicateByInvoiceRef, DuplicateByAmountDate},
	}
}

// StrictEngineConfig returns a configuration that only commits near-exact
// pairs: a raised threshold and a tighter date window.
func StrictEngineConfig() *EngineConfig {
	config := DefaultEngineConfig()
	config.CommitThreshold = 0.95
	config.DateToleranceDays = 2
	return config
}

// RelaxedEngineConfig returns a configuration for noisy data: a lowered
// threshold and a wider date window.
func RelaxedEngineConfig() *EngineConfig {
	config := DefaultEngineConfig()
	config.CommitThreshold = 0.75
	config.DateToleranceDays = 14
	return config
}

// weightSumEpsilon absorbs float accumulation error when checking that the
// weights sum to 1.0.
const weightSumEpsilon = 1e-9

// Validate checks the configuration for consistency.
func (c *EngineConfig) Validate() error {
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"weights.reference", c.Weights.Reference},
		{"weights.amount", c.Weights.Amount},
		{"weights.date", c.Weights.Date},
		{"weights.vendor", c.Weights.Vendor},
	} {
		if w.value < 0 || w.value > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", w.name, w.value)
		}
	}

	if sum := c.Weights.Sum(); math.Abs(sum-1.0) > weightSumEpsilon {
		return fmt.Errorf("component weights must sum to 1.0, got %v", sum)
	}

	if c.CommitThreshold < 0 || c.CommitThreshold > 1 {
		return fmt.Errorf("commit threshold must be between 0 and 1, got %v", c.CommitThreshold)
	}

	if c.DateToleranceDays < 0 {
		return fmt.Errorf("date tolerance must be non-negative, got %d", c.DateToleranceDays)
	}

	if c.TierBounds.High < 0 || c.TierBounds.High > 1 {
		return fmt.Errorf("high tier bound must be between 0 and 1, got %v", c.TierBounds.High)
	}
	if c.TierBounds.Medium < 0 || c.TierBounds.Medium > 1 {
		return fmt.Errorf("medium tier bound must be between 0 and 1, got %v", c.TierBounds.Medium)
	}
	if c.TierBounds.High < c.TierBounds.Medium {
		return fmt.Errorf("high tier bound (%v) must not be below medium tier bound (%v)",
			c.TierBounds.High, c.TierBounds.Medium)
	}

	if len(c.DuplicateFields) == 0 {
		return fmt.Errorf("at least one duplicate field must be configured")
	}
	for _, field := range c.DuplicateFields {
		switch field {
		case DuplicateByInvoiceRef, DuplicateByAmountDate:
		default:
			return fmt.Errorf("unknown duplicate field %q", field)
		}
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *EngineConfig) Clone() *EngineConfig {
	clone := *c
	clone.DuplicateFields = make([]DuplicateField, len(c.DuplicateFields))
	copy(clone.DuplicateFields, c.DuplicateFields)
	return &clone
}

// TierFor maps a committed composite score onto its confidence tier.
func (c *EngineConfig) TierFor(score float64) ConfidenceTier {
	switch {
	case score >= c.TierBounds.High:
		return TierHigh
	case score >= c.TierBounds.Medium:
		return TierMedium
	default:
		return TierLow
	}
}
