package matcher

import (
	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"invoice-reconciliation-service/internal/models"
)

// ComponentScores carries the per-field similarities behind a composite
// score.
type ComponentScores struct {
	Reference float64 `json:"reference"`
	Amount    float64 `json:"amount"`
	Date      float64 `json:"date"`
	Vendor    float64 `json:"vendor"`
}

// Scorer computes weighted similarity scores between statement and ledger
// records.
type Scorer struct {
	config *EngineConfig
}

// NewScorer creates a Scorer with the given configuration.
func NewScorer(config *EngineConfig) *Scorer {
	return &Scorer{config: config}
}

// Score computes the composite score and its components for a candidate
// pair. Missing fields contribute zero on their component; the weights are
// never renormalized.
func (s *Scorer) Score(statement, ledger *models.NormalizedRecord) (float64, ComponentScores) {
	components := ComponentScores{
		Reference: referenceSimilarity(statement.InvoiceRef, ledger.InvoiceRef),
		Amount:    amountSimilarity(statement.Amount, ledger.Amount),
		Date:      s.dateSimilarity(statement, ledger),
		Vendor:    vendorSimilarity(statement.VendorID, ledger.VendorID),
	}

	w := s.config.Weights
	composite := w.Reference*components.Reference +
		w.Amount*components.Amount +
		w.Date*components.Date +
		w.Vendor*components.Vendor

	return composite, components
}

// referenceSimilarity compares two normalized invoice references. Exact
// matches score 1; otherwise the score is the Levenshtein ratio. An empty
// reference on either side scores 0.
func referenceSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}

	dist := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	return 1 - float64(dist)/float64(maxLen)
}

// amountSimilarity compares two amounts. Differences under one minor unit
// count as exact; beyond that the score decays with the relative difference
// against the larger magnitude.
func amountSimilarity(a, b *decimal.Decimal) float64 {
	if a == nil || b == nil {
		return 0
	}

	diff := a.Sub(*b).Abs()
	if diff.LessThan(decimal.New(1, -2)) {
		return 1
	}

	base := decimal.Max(a.Abs(), b.Abs(), decimal.New(1, -2))
	ratio, _ := diff.Div(base).Float64()
	if ratio >= 1 {
		return 0
	}
	return 1 - ratio
}

// dateSimilarity compares two calendar dates with linear decay over the
// configured tolerance window.
func (s *Scorer) dateSimilarity(statement, ledger *models.NormalizedRecord) float64 {
	if !statement.HasDate() || !ledger.HasDate() {
		return 0
	}

	days := models.DaysBetween(*statement.Date, *ledger.Date)
	if days == 0 {
		return 1
	}

	tolerance := s.config.DateToleranceDays
	if tolerance <= 0 || days >= tolerance {
		return 0
	}
	return 1 - float64(days)/float64(tolerance)
}

// vendorSimilarity is binary: both identifiers present and equal scores 1,
// anything else scores 0.
func vendorSimilarity(a, b string) float64 {
	if a != "" && a == b {
		return 1
	}
	return 0
}
