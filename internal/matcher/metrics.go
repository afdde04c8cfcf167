package matcher

import (
	"github.com/shopspring/decimal"

	"invoice-reconciliation-service/internal/models"
)

// Metrics summarizes one reconciliation run: record counts, match quality,
// and the financial totals an accountant checks first.
type Metrics struct {
	TotalRecords   int `json:"total_records"`
	StatementCount int `json:"statement_count"`
	LedgerCount    int `json:"ledger_count"`

	ReconciledCount         int     `json:"reconciled_count"`
	UnmatchedStatementCount int     `json:"unmatched_statement_count"`
	UnmatchedLedgerCount    int     `json:"unmatched_ledger_count"`
	MatchRate               float64 `json:"match_rate"`

	HighConfidence   int     `json:"high_confidence"`
	MediumConfidence int     `json:"medium_confidence"`
	LowConfidence    int     `json:"low_confidence"`
	AverageScore     float64 `json:"average_score"`

	// PerfectMatches counts reconciled pairs whose amounts agree to the
	// minor unit.
	PerfectMatches int `json:"perfect_matches"`

	TotalAmountDifference decimal.Decimal `json:"total_amount_difference"`
	LargestDiscrepancy    decimal.Decimal `json:"largest_discrepancy"`

	StatementTotal          decimal.Decimal `json:"statement_total"`
	LedgerTotal             decimal.Decimal `json:"ledger_total"`
	MatchedStatementTotal   decimal.Decimal `json:"matched_statement_total"`
	MatchedLedgerTotal      decimal.Decimal `json:"matched_ledger_total"`
	UnmatchedStatementTotal decimal.Decimal `json:"unmatched_statement_total"`
	UnmatchedLedgerTotal    decimal.Decimal `json:"unmatched_ledger_total"`

	// TotalVariance is the overall statement total minus the overall
	// ledger total.
	TotalVariance decimal.Decimal `json:"total_variance"`

	StatementDuplicateGroups int `json:"statement_duplicate_groups"`
	LedgerDuplicateGroups    int `json:"ledger_duplicate_groups"`
}

// minorUnit is one cent/paisa: the threshold under which two amounts count
// as identical.
var minorUnit = decimal.New(1, -2)

// aggregate derives run metrics from an otherwise complete result. It is a
// pure function of the result's other fields.
func aggregate(result *Result) Metrics {
	m := Metrics{
		StatementCount:           len(result.Reconciled) + len(result.UnmatchedStatement),
		LedgerCount:              len(result.Reconciled) + len(result.UnmatchedLedger),
		ReconciledCount:          len(result.Reconciled),
		UnmatchedStatementCount:  len(result.UnmatchedStatement),
		UnmatchedLedgerCount:     len(result.UnmatchedLedger),
		StatementDuplicateGroups: len(result.StatementDuplicates),
		LedgerDuplicateGroups:    len(result.LedgerDuplicates),
	}
	m.TotalRecords = m.StatementCount + m.LedgerCount

	if m.TotalRecords > 0 {
		m.MatchRate = float64(2*m.ReconciledCount) / float64(m.TotalRecords)
	}

	var scoreSum float64
	for _, pair := range result.Reconciled {
		scoreSum += pair.Score

		switch pair.Tier {
		case TierHigh:
			m.HighConfidence++
		case TierMedium:
			m.MediumConfidence++
		default:
			m.LowConfidence++
		}

		diff := pair.AmountDifference.Abs()
		if pair.Statement.HasAmount() && pair.Ledger.HasAmount() && diff.LessThan(minorUnit) {
			m.PerfectMatches++
		}
		m.TotalAmountDifference = m.TotalAmountDifference.Add(diff)
		if diff.GreaterThan(m.LargestDiscrepancy) {
			m.LargestDiscrepancy = diff
		}

		if pair.Statement.HasAmount() {
			m.MatchedStatementTotal = m.MatchedStatementTotal.Add(*pair.Statement.Amount)
		}
		if pair.Ledger.HasAmount() {
			m.MatchedLedgerTotal = m.MatchedLedgerTotal.Add(*pair.Ledger.Amount)
		}
	}
	if m.ReconciledCount > 0 {
		m.AverageScore = scoreSum / float64(m.ReconciledCount)
	}

	m.UnmatchedStatementTotal = sumAmounts(result.UnmatchedStatement)
	m.UnmatchedLedgerTotal = sumAmounts(result.UnmatchedLedger)

	m.StatementTotal = m.MatchedStatementTotal.Add(m.UnmatchedStatementTotal)
	m.LedgerTotal = m.MatchedLedgerTotal.Add(m.UnmatchedLedgerTotal)
	m.TotalVariance = m.StatementTotal.Sub(m.LedgerTotal)

	return m
}

// sumAmounts totals the parsed amounts of a record slice, skipping records
// whose amount is unknown.
func sumAmounts(records []*models.NormalizedRecord) decimal.Decimal {
	total := decimal.Zero
	for _, record := range records {
		if record.HasAmount() {
			total = total.Add(*record.Amount)
		}
	}
	return total
}
