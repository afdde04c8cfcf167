package matcher

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"invoice-reconciliation-service/internal/models"
)

func pairFor(engine *Engine, statement, ledger *models.NormalizedRecord) ReconciledPair {
	score, components := engine.scorer.Score(statement, ledger)
	return ReconciledPair{
		Statement:        statement,
		Ledger:           ledger,
		Score:            score,
		Components:       components,
		Tier:             engine.config.TierFor(score),
		AmountDifference: amountDifference(statement, ledger),
	}
}

func TestAggregateCountsAndTotals(t *testing.T) {
	engine := newTestEngine(t, nil)

	s0 := record(models.SourceStatement, 0, "inv1", "1000.00", "2024-01-05", "V1")
	l0 := record(models.SourceLedger, 0, "inv1", "1000.00", "2024-01-05", "V1")
	s1 := record(models.SourceStatement, 1, "inv2", "1050.00", "2024-01-05", "V2")
	l1 := record(models.SourceLedger, 1, "inv2", "1000.00", "2024-01-05", "V2")
	s2 := record(models.SourceStatement, 2, "inv3", "300.00", "2024-01-05", "V3")
	l2 := record(models.SourceLedger, 2, "inv9", "77.00", "2024-01-05", "V9")

	result := &Result{
		Reconciled:         []ReconciledPair{pairFor(engine, s0, l0), pairFor(engine, s1, l1)},
		UnmatchedStatement: []*models.NormalizedRecord{s2},
		UnmatchedLedger:    []*models.NormalizedRecord{l2},
	}

	m := aggregate(result)

	assert.Equal(t, 6, m.TotalRecords)
	assert.Equal(t, 3, m.StatementCount)
	assert.Equal(t, 3, m.LedgerCount)
	assert.Equal(t, 2, m.ReconciledCount)
	assert.Equal(t, 1, m.UnmatchedStatementCount)
	assert.Equal(t, 1, m.UnmatchedLedgerCount)
	assert.InDelta(t, 4.0/6.0, m.MatchRate, 1e-12)

	assert.Equal(t, 1, m.PerfectMatches)
	assert.Equal(t, "50.00", m.TotalAmountDifference.StringFixed(2))
	assert.Equal(t, "50.00", m.LargestDiscrepancy.StringFixed(2))

	assert.Equal(t, "2350.00", m.StatementTotal.StringFixed(2))
	assert.Equal(t, "2077.00", m.LedgerTotal.StringFixed(2))
	assert.Equal(t, "2050.00", m.MatchedStatementTotal.StringFixed(2))
	assert.Equal(t, "2000.00", m.MatchedLedgerTotal.StringFixed(2))
	assert.Equal(t, "300.00", m.UnmatchedStatementTotal.StringFixed(2))
	assert.Equal(t, "77.00", m.UnmatchedLedgerTotal.StringFixed(2))
	assert.Equal(t, "273.00", m.TotalVariance.StringFixed(2))
}

func TestAggregateConfidenceTiersAndAverage(t *testing.T) {
	engine := newTestEngine(t, nil)

	// Identical fields everywhere: a perfect pair in the high tier.
	s0 := record(models.SourceStatement, 0, "inv1", "100.00", "2024-01-05", "V1")
	l0 := record(models.SourceLedger, 0, "inv1", "100.00", "2024-01-05", "V1")

	// Date off by three days with no vendor on either side: composite
	// lands in the medium tier.
	s1 := record(models.SourceStatement, 1, "inv2", "1000.00", "2024-01-05", "")
	l1 := record(models.SourceLedger, 1, "inv2", "1000.00", "2024-01-08", "")

	p0 := pairFor(engine, s0, l0)
	p1 := pairFor(engine, s1, l1)
	assert.Equal(t, TierHigh, p0.Tier)
	assert.Equal(t, TierMedium, p1.Tier)

	result := &Result{Reconciled: []ReconciledPair{p0, p1}}
	m := aggregate(result)

	assert.Equal(t, 1, m.HighConfidence)
	assert.Equal(t, 1, m.MediumConfidence)
	assert.Equal(t, 0, m.LowConfidence)
	assert.InDelta(t, (p0.Score+p1.Score)/2, m.AverageScore, 1e-12)
}

func TestAggregateEmptyResult(t *testing.T) {
	m := aggregate(&Result{})

	assert.Equal(t, 0, m.TotalRecords)
	assert.Equal(t, 0.0, m.MatchRate)
	assert.Equal(t, 0.0, m.AverageScore)
	assert.True(t, m.TotalVariance.IsZero())
	assert.True(t, m.TotalVariance.Equal(decimal.Zero))
}

func TestAggregateCountsDuplicateGroups(t *testing.T) {
	result := &Result{
		StatementDuplicates: []DuplicateGroup{{}, {}},
		LedgerDuplicates:    []DuplicateGroup{{}},
	}

	m := aggregate(result)
	assert.Equal(t, 2, m.StatementDuplicateGroups)
	assert.Equal(t, 1, m.LedgerDuplicateGroups)
}
