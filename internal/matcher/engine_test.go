package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-reconciliation-service/internal/models"
)

func rawRow(source models.Source, index int, ref, amount, date, vendor string) models.RawRecord {
	return models.NewRawRecord(source, index,
		[]string{models.ColumnReference, models.ColumnAmount, models.ColumnDate, models.ColumnVendor},
		map[string]string{
			models.ColumnReference: ref,
			models.ColumnAmount:    amount,
			models.ColumnDate:      date,
			models.ColumnVendor:    vendor,
		})
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	config := DefaultEngineConfig()
	config.CommitThreshold = 2.0

	_, err := NewEngine(config)
	assert.Error(t, err)
}

func TestNewEngineDefaultsNilConfig(t *testing.T) {
	engine, err := NewEngine(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.85, engine.Config().CommitThreshold)
}

func TestReconcileCaseInsensitiveExactMatch(t *testing.T) {
	engine := newTestEngine(t, nil)

	result := engine.Reconcile(
		[]models.RawRecord{rawRow(models.SourceStatement, 0, "INV100", "1000.00", "2024-01-05", "V1")},
		[]models.RawRecord{rawRow(models.SourceLedger, 0, "inv100", "1000.00", "2024-01-05", "v1")},
	)

	require.Len(t, result.Reconciled, 1)
	pair := result.Reconciled[0]
	assert.InDelta(t, 1.0, pair.Score, 1e-12)
	assert.Equal(t, TierHigh, pair.Tier)
	assert.Equal(t, "0.00", pair.AmountDifference.StringFixed(2))
	assert.Empty(t, result.UnmatchedStatement)
	assert.Empty(t, result.UnmatchedLedger)
}

func TestReconcileToleratesAmountDiscrepancy(t *testing.T) {
	engine := newTestEngine(t, nil)

	result := engine.Reconcile(
		[]models.RawRecord{rawRow(models.SourceStatement, 0, "INV150", "1050.00", "2024-01-05", "V1")},
		[]models.RawRecord{rawRow(models.SourceLedger, 0, "INV150", "1000.00", "2024-01-05", "V1")},
	)

	require.Len(t, result.Reconciled, 1)
	assert.Equal(t, "50.00", result.Reconciled[0].AmountDifference.StringFixed(2))
	assert.Equal(t, 0, result.Metrics.PerfectMatches)
	assert.Equal(t, "50.00", result.Metrics.LargestDiscrepancy.StringFixed(2))
}

func TestReconcileUniqueRecordStaysUnmatched(t *testing.T) {
	engine := newTestEngine(t, nil)

	result := engine.Reconcile(
		[]models.RawRecord{
			rawRow(models.SourceStatement, 0, "INV100", "1000.00", "2024-01-05", "V1"),
			rawRow(models.SourceStatement, 1, "INV999", "42.00", "2024-03-01", "V9"),
		},
		[]models.RawRecord{rawRow(models.SourceLedger, 0, "INV100", "1000.00", "2024-01-05", "V1")},
	)

	require.Len(t, result.Reconciled, 1)
	require.Len(t, result.UnmatchedStatement, 1)
	assert.Equal(t, "inv999", result.UnmatchedStatement[0].InvoiceRef)
	assert.Empty(t, result.UnmatchedLedger)
}

func TestReconcileReportsDuplicatesWithinOneSource(t *testing.T) {
	engine := newTestEngine(t, nil)

	result := engine.Reconcile(
		[]models.RawRecord{
			rawRow(models.SourceStatement, 0, "INV200", "100.00", "2024-01-05", "V1"),
			rawRow(models.SourceStatement, 1, "INV200", "100.00", "2024-02-10", "V1"),
		},
		[]models.RawRecord{rawRow(models.SourceLedger, 0, "INV200", "100.00", "2024-01-05", "V1")},
	)

	require.NotEmpty(t, result.StatementDuplicates)
	group := result.StatementDuplicates[0]
	assert.Equal(t, DuplicateByInvoiceRef, group.Field)
	assert.Equal(t, "inv200", group.Value)
	assert.Len(t, group.Members, 2)
	assert.Empty(t, result.LedgerDuplicates)

	// The duplicated records still participate in matching: one of the two
	// statement rows reconciles, the other is unmatched.
	assert.Len(t, result.Reconciled, 1)
	assert.Len(t, result.UnmatchedStatement, 1)
}

func TestReconcileConservation(t *testing.T) {
	engine := newTestEngine(t, nil)

	statements := []models.RawRecord{
		rawRow(models.SourceStatement, 0, "INV1", "100.00", "2024-01-05", "V1"),
		rawRow(models.SourceStatement, 1, "INV2", "200.00", "2024-01-06", "V2"),
		rawRow(models.SourceStatement, 2, "INV3", "garbage", "not a date", ""),
		rawRow(models.SourceStatement, 3, "", "", "", ""),
	}
	ledgers := []models.RawRecord{
		rawRow(models.SourceLedger, 0, "INV1", "100.00", "2024-01-05", "V1"),
		rawRow(models.SourceLedger, 1, "INV9", "999.00", "2024-04-01", "V9"),
		rawRow(models.SourceLedger, 2, "INV2", "200.00", "2024-01-06", "V2"),
	}

	result := engine.Reconcile(statements, ledgers)

	total := 2*len(result.Reconciled) + len(result.UnmatchedStatement) + len(result.UnmatchedLedger)
	assert.Equal(t, len(statements)+len(ledgers), total)
	assert.Equal(t, len(statements)+len(ledgers), result.Metrics.TotalRecords)
}

func TestReconcileIsDeterministic(t *testing.T) {
	engine := newTestEngine(t, nil)

	statements := []models.RawRecord{
		rawRow(models.SourceStatement, 0, "INV1", "100.00", "2024-01-05", "V1"),
		rawRow(models.SourceStatement, 1, "INV1", "100.00", "2024-01-05", "V1"),
	}
	ledgers := []models.RawRecord{
		rawRow(models.SourceLedger, 0, "INV1", "100.00", "2024-01-05", "V1"),
		rawRow(models.SourceLedger, 1, "INV1", "100.00", "2024-01-05", "V1"),
	}

	first := engine.Reconcile(statements, ledgers)
	second := engine.Reconcile(statements, ledgers)

	require.Len(t, first.Reconciled, 2)
	for i := range first.Reconciled {
		assert.Equal(t, first.Reconciled[i].Statement.Index, second.Reconciled[i].Statement.Index)
		assert.Equal(t, first.Reconciled[i].Ledger.Index, second.Reconciled[i].Ledger.Index)
	}
}

func TestReconcileResultSetIsOrderIndependent(t *testing.T) {
	engine := newTestEngine(t, nil)

	statements := []models.RawRecord{
		rawRow(models.SourceStatement, 0, "INV1", "100.00", "2024-01-05", "V1"),
		rawRow(models.SourceStatement, 1, "INV2", "200.00", "2024-01-06", "V2"),
		rawRow(models.SourceStatement, 2, "INV3", "300.00", "2024-01-07", "V3"),
	}
	shuffled := []models.RawRecord{statements[2], statements[0], statements[1]}
	ledgers := []models.RawRecord{
		rawRow(models.SourceLedger, 0, "INV3", "300.00", "2024-01-07", "V3"),
		rawRow(models.SourceLedger, 1, "INV1", "100.00", "2024-01-05", "V1"),
		rawRow(models.SourceLedger, 2, "INV2", "200.00", "2024-01-06", "V2"),
	}

	pairSet := func(result *Result) map[string]bool {
		set := make(map[string]bool)
		for _, pair := range result.Reconciled {
			set[pair.Statement.InvoiceRef+"|"+pair.Ledger.InvoiceRef] = true
		}
		return set
	}

	first := engine.Reconcile(statements, ledgers)
	second := engine.Reconcile(shuffled, ledgers)

	assert.Equal(t, pairSet(first), pairSet(second))
	assert.Equal(t, first.Metrics.ReconciledCount, second.Metrics.ReconciledCount)
	assert.True(t, first.Metrics.StatementTotal.Equal(second.Metrics.StatementTotal))
}

func TestReconcileScoresStayInRange(t *testing.T) {
	engine := newTestEngine(t, RelaxedEngineConfig())

	result := engine.Reconcile(
		[]models.RawRecord{
			rawRow(models.SourceStatement, 0, "INV1", "100.00", "2024-01-05", "V1"),
			rawRow(models.SourceStatement, 1, "INV1X", "105.00", "2024-01-08", "V1"),
		},
		[]models.RawRecord{
			rawRow(models.SourceLedger, 0, "INV1", "100.00", "2024-01-05", "V1"),
			rawRow(models.SourceLedger, 1, "INV1Y", "98.00", "2024-01-10", "V1"),
		},
	)

	for _, pair := range result.Reconciled {
		assert.GreaterOrEqual(t, pair.Score, 0.0)
		assert.LessOrEqual(t, pair.Score, 1.0)
		assert.GreaterOrEqual(t, pair.Score, engine.Config().CommitThreshold)
	}
}

func TestReconcileEmptyInputs(t *testing.T) {
	engine := newTestEngine(t, nil)

	result := engine.Reconcile(nil, nil)
	assert.Empty(t, result.Reconciled)
	assert.Empty(t, result.UnmatchedStatement)
	assert.Empty(t, result.UnmatchedLedger)
	assert.Equal(t, 0, result.Metrics.TotalRecords)
	assert.Equal(t, 0.0, result.Metrics.MatchRate)
}
