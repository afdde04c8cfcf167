// Package config translates CLI flags and viper settings into the service's
// configuration types.
package config

import (
	"fmt"

	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/parsers"
	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/internal/reporter"

	"github.com/spf13/viper"
)

// BuildOptions carries the matching-related flag values of one invocation.
// ThresholdSet and ToleranceSet distinguish an explicit flag from its
// default, so presets and explicit overrides compose predictably.
type BuildOptions struct {
	Threshold     float64
	DateTolerance int
	Strict        bool
	Relaxed       bool
	ThresholdSet  bool
	ToleranceSet  bool
}

// BuildServiceConfig assembles the full service configuration from flags and
// any loaded config file.
func BuildServiceConfig(opts BuildOptions) (*reconciler.Config, error) {
	if opts.Strict && opts.Relaxed {
		return nil, fmt.Errorf("strict and relaxed presets are mutually exclusive")
	}

	matching := matcher.DefaultEngineConfig()
	if opts.Strict {
		matching = matcher.StrictEngineConfig()
	}
	if opts.Relaxed {
		matching = matcher.RelaxedEngineConfig()
	}

	// Explicit flags win over the preset.
	if opts.ThresholdSet {
		matching.CommitThreshold = opts.Threshold
	}
	if opts.ToleranceSet {
		matching.DateToleranceDays = opts.DateTolerance
	}

	applyWeightOverrides(matching)
	applyTierOverrides(matching)
	applyDuplicateFieldOverrides(matching)

	return &reconciler.Config{
		Matching:        matching,
		StatementSource: buildSourceConfig(parsers.StatementSourceConfig(), "statement"),
		LedgerSource:    buildSourceConfig(parsers.LedgerSourceConfig(), "ledger"),
	}, nil
}

// applyWeightOverrides reads component weights from the config file, if one
// set them. All four must be given together.
func applyWeightOverrides(matching *matcher.EngineConfig) {
	keys := []string{"weights.reference", "weights.amount", "weights.date", "weights.vendor"}
	for _, key := range keys {
		if !viper.IsSet(key) {
			return
		}
	}

	matching.Weights = matcher.ComponentWeights{
		Reference: viper.GetFloat64("weights.reference"),
		Amount:    viper.GetFloat64("weights.amount"),
		Date:      viper.GetFloat64("weights.date"),
		Vendor:    viper.GetFloat64("weights.vendor"),
	}
}

// applyTierOverrides reads confidence tier bounds from the config file.
func applyTierOverrides(matching *matcher.EngineConfig) {
	if viper.IsSet("tiers.high") {
		matching.TierBounds.High = viper.GetFloat64("tiers.high")
	}
	if viper.IsSet("tiers.medium") {
		matching.TierBounds.Medium = viper.GetFloat64("tiers.medium")
	}
}

// applyDuplicateFieldOverrides reads the duplicate grouping list from the
// config file.
func applyDuplicateFieldOverrides(matching *matcher.EngineConfig) {
	if !viper.IsSet("duplicate_fields") {
		return
	}
	fields := viper.GetStringSlice("duplicate_fields")
	if len(fields) == 0 {
		return
	}
	matching.DuplicateFields = matching.DuplicateFields[:0]
	for _, field := range fields {
		matching.DuplicateFields = append(matching.DuplicateFields, matcher.DuplicateField(field))
	}
}

// buildSourceConfig applies per-source config file overrides (delimiter and
// extra column aliases) on top of the built-in dialect.
func buildSourceConfig(base *parsers.SourceConfig, section string) *parsers.SourceConfig {
	if delimiter := viper.GetString(section + ".delimiter"); delimiter != "" {
		base.Delimiter = rune(delimiter[0])
	}
	if viper.IsSet(section + ".has_header") {
		base.HasHeader = viper.GetBool(section + ".has_header")
	}
	for alias, canonical := range viper.GetStringMapString(section + ".column_aliases") {
		base.ColumnAliases[alias] = canonical
	}
	return base
}

// BuildReportConfig creates a report configuration for the requested output
// format.
func BuildReportConfig(format string) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.Format(format)

	if viper.IsSet("report.include_unmatched") {
		config.IncludeUnmatched = viper.GetBool("report.include_unmatched")
	}
	if viper.IsSet("report.include_duplicates") {
		config.IncludeDuplicates = viper.GetBool("report.include_duplicates")
	}
	if viper.IsSet("report.max_listed_records") {
		config.MaxListedRecords = viper.GetInt("report.max_listed_records")
	}

	return config
}
