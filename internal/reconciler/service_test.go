package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestServiceRunEndToEnd(t *testing.T) {
	dir := t.TempDir()

	statement := writeFile(t, dir, "gstr2b.csv",
		"Supplier GSTIN,Invoice No,Invoice Date,Total Invoice Value\n"+
			"27AAPFU0939F1ZV,INV100,05/01/2024,\"1,000.00\"\n"+
			"29GGGGG1314R9Z6,INV200,06/01/2024,500.00\n")
	ledger := writeFile(t, dir, "tally.csv",
		"Date,Voucher No,Party GSTIN,Amount\n"+
			"05-01-2024,inv100,27aapfu0939f1zv,1000\n"+
			"20-03-2024,INV900,33ZZZZZ9999Z9Z9,75\n")

	service, err := NewService(nil)
	require.NoError(t, err)

	result, err := service.Run(context.Background(), RunRequest{
		StatementFile: statement,
		LedgerFile:    ledger,
	})
	require.NoError(t, err)

	require.Len(t, result.Reconciled, 1)
	assert.Equal(t, "inv100", result.Reconciled[0].Statement.InvoiceRef)
	assert.Equal(t, matcher.TierHigh, result.Reconciled[0].Tier)

	assert.Len(t, result.UnmatchedStatement, 1)
	assert.Len(t, result.UnmatchedLedger, 1)

	require.NotNil(t, result.StatementStats)
	assert.Equal(t, 2, result.StatementStats.ParsedRows)
	require.NotNil(t, result.LedgerStats)
	assert.Equal(t, 2, result.LedgerStats.ParsedRows)

	assert.False(t, result.ProcessedAt.IsZero())
}

func TestServiceRunMissingInputs(t *testing.T) {
	service, err := NewService(nil)
	require.NoError(t, err)

	_, err = service.Run(context.Background(), RunRequest{LedgerFile: "x.csv"})
	require.Error(t, err)
	reconcilerErr, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryConfiguration, reconcilerErr.Category)

	_, err = service.Run(context.Background(), RunRequest{StatementFile: "x.csv"})
	assert.Error(t, err)
}

func TestServiceRunStatementFileMissing(t *testing.T) {
	dir := t.TempDir()
	ledger := writeFile(t, dir, "tally.csv", "Voucher No\nINV1\n")

	service, err := NewService(nil)
	require.NoError(t, err)

	_, err = service.Run(context.Background(), RunRequest{
		StatementFile: filepath.Join(dir, "does-not-exist.csv"),
		LedgerFile:    ledger,
	})
	require.Error(t, err)
	reconcilerErr, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryFile, reconcilerErr.Category)
}

func TestNewServiceRejectsInvalidMatchingConfig(t *testing.T) {
	config := DefaultConfig()
	config.Matching.CommitThreshold = 5

	_, err := NewService(config)
	assert.Error(t, err)
}
