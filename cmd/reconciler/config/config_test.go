package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-reconciliation-service/internal/reporter"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestBuildServiceConfigDefaults(t *testing.T) {
	resetViper(t)

	config, err := BuildServiceConfig(BuildOptions{Threshold: 0.85, DateTolerance: 7})
	require.NoError(t, err)

	assert.Equal(t, 0.85, config.Matching.CommitThreshold)
	assert.Equal(t, 7, config.Matching.DateToleranceDays)
	assert.Equal(t, "gstr2b", config.StatementSource.Name)
	assert.Equal(t, "tally", config.LedgerSource.Name)
	require.NoError(t, config.Matching.Validate())
}

func TestBuildServiceConfigPresets(t *testing.T) {
	resetViper(t)

	strict, err := BuildServiceConfig(BuildOptions{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, 0.95, strict.Matching.CommitThreshold)

	relaxed, err := BuildServiceConfig(BuildOptions{Relaxed: true})
	require.NoError(t, err)
	assert.Equal(t, 0.75, relaxed.Matching.CommitThreshold)

	_, err = BuildServiceConfig(BuildOptions{Strict: true, Relaxed: true})
	assert.Error(t, err)
}

func TestBuildServiceConfigExplicitFlagsWinOverPreset(t *testing.T) {
	resetViper(t)

	config, err := BuildServiceConfig(BuildOptions{
		Strict:        true,
		Threshold:     0.9,
		ThresholdSet:  true,
		DateTolerance: 3,
		ToleranceSet:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.9, config.Matching.CommitThreshold)
	assert.Equal(t, 3, config.Matching.DateToleranceDays)
}

func TestBuildServiceConfigWeightOverrides(t *testing.T) {
	resetViper(t)
	viper.Set("weights.reference", 0.5)
	viper.Set("weights.amount", 0.3)
	viper.Set("weights.date", 0.15)
	viper.Set("weights.vendor", 0.05)

	config, err := BuildServiceConfig(BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0.5, config.Matching.Weights.Reference)
	assert.Equal(t, 0.05, config.Matching.Weights.Vendor)
	require.NoError(t, config.Matching.Validate())
}

func TestBuildServiceConfigPartialWeightsIgnored(t *testing.T) {
	resetViper(t)
	viper.Set("weights.reference", 0.5)

	config, err := BuildServiceConfig(BuildOptions{})
	require.NoError(t, err)
	// Incomplete weight sets fall back to the defaults.
	assert.Equal(t, 0.65, config.Matching.Weights.Reference)
}

func TestBuildServiceConfigTierAndDuplicateOverrides(t *testing.T) {
	resetViper(t)
	viper.Set("tiers.high", 0.98)
	viper.Set("tiers.medium", 0.9)
	viper.Set("duplicate_fields", []string{"invoice_ref"})

	config, err := BuildServiceConfig(BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0.98, config.Matching.TierBounds.High)
	assert.Equal(t, 0.9, config.Matching.TierBounds.Medium)
	assert.Len(t, config.Matching.DuplicateFields, 1)
	require.NoError(t, config.Matching.Validate())
}

func TestBuildServiceConfigSourceOverrides(t *testing.T) {
	resetViper(t)
	viper.Set("statement.delimiter", ";")
	viper.Set("statement.column_aliases", map[string]string{"doc no": "reference"})

	config, err := BuildServiceConfig(BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, ';', config.StatementSource.Delimiter)
	assert.Equal(t, "reference", config.StatementSource.ColumnAliases["doc no"])
	// Ledger dialect is untouched.
	assert.Equal(t, ',', config.LedgerSource.Delimiter)
}

func TestBuildReportConfig(t *testing.T) {
	resetViper(t)

	config := BuildReportConfig("json")
	assert.Equal(t, reporter.FormatJSON, config.Format)
	assert.True(t, config.IncludeUnmatched)

	viper.Set("report.include_unmatched", false)
	viper.Set("report.max_listed_records", 5)
	config = BuildReportConfig("console")
	assert.False(t, config.IncludeUnmatched)
	assert.Equal(t, 5, config.MaxListedRecords)
}
