// Package parsers turns CSV exports from the two source systems into the
// canonical raw rows the reconciliation engine consumes. Each source carries
// its own header vocabulary; a SourceConfig maps source-specific headers
// onto the canonical column names.
package parsers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// SourceConfig describes one input file's dialect: its delimiter, whether a
// header row is present, and how its headers map onto canonical columns.
type SourceConfig struct {
	Name        string        `json:"name"`
	Source      models.Source `json:"source"`
	Delimiter   rune          `json:"delimiter"`
	HasHeader   bool          `json:"has_header"`
	TrimSpaces  bool          `json:"trim_spaces"`
	SkipEmpty   bool          `json:"skip_empty"`
	// ColumnAliases maps lowercased source headers to canonical column
	// names. Headers without an alias pass through under their own
	// (lowercased) name.
	ColumnAliases map[string]string `json:"column_aliases"`
}

// StatementSourceConfig returns the dialect of a GSTR-2B statement export.
func StatementSourceConfig() *SourceConfig {
	return &SourceConfig{
		Name:       "gstr2b",
		Source:     models.SourceStatement,
		Delimiter:  ',',
		HasHeader:  true,
		TrimSpaces: true,
		SkipEmpty:  true,
		ColumnAliases: map[string]string{
			"invoice no":          models.ColumnReference,
			"invoice number":      models.ColumnReference,
			"invoice details":     models.ColumnReference,
			"invoice value":       models.ColumnAmount,
			"total invoice value": models.ColumnAmount,
			"taxable value":       models.ColumnAmount,
			"invoice date":        models.ColumnDate,
			"supplier gstin":      models.ColumnVendor,
			"gstin of supplier":   models.ColumnVendor,
			"gstin":               models.ColumnVendor,
		},
	}
}

// LedgerSourceConfig returns the dialect of a Tally purchase register export.
func LedgerSourceConfig() *SourceConfig {
	return &SourceConfig{
		Name:       "tally",
		Source:     models.SourceLedger,
		Delimiter:  ',',
		HasHeader:  true,
		TrimSpaces: true,
		SkipEmpty:  true,
		ColumnAliases: map[string]string{
			"voucher no":     models.ColumnReference,
			"voucher number": models.ColumnReference,
			"invoice no":     models.ColumnReference,
			"bill no":        models.ColumnReference,
			"amount":         models.ColumnAmount,
			"gross total":    models.ColumnAmount,
			"value":          models.ColumnAmount,
			"date":           models.ColumnDate,
			"voucher date":   models.ColumnDate,
			"party gstin":    models.ColumnVendor,
			"gstin":          models.ColumnVendor,
			"gstin/uin":      models.ColumnVendor,
		},
	}
}

// Validate checks the source configuration for consistency.
func (c *SourceConfig) Validate() error {
	if !c.Source.IsValid() {
		return fmt.Errorf("invalid source %q", c.Source)
	}
	if c.Delimiter == 0 {
		return fmt.Errorf("delimiter must be set")
	}
	return nil
}

// ParseStats reports what happened while reading one file. Row-level
// problems are collected here rather than aborting the parse.
type ParseStats struct {
	TotalRows   int                       `json:"total_rows"`
	ParsedRows  int                       `json:"parsed_rows"`
	SkippedRows int                       `json:"skipped_rows"`
	Errors      []*errors.ReconcilerError `json:"errors,omitempty"`
}

// RecordParser reads one source's CSV rows into canonical raw records.
type RecordParser struct {
	config *SourceConfig
	logger logger.Logger
}

// NewRecordParser creates a parser for the given source dialect. A nil
// delimiter or source is rejected.
func NewRecordParser(config *SourceConfig) (*RecordParser, error) {
	if config == nil {
		return nil, fmt.Errorf("source config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "source."+config.Name, config, err)
	}

	return &RecordParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("parser").WithField("source", config.Source.String()),
	}, nil
}

// ParseFile opens and parses a CSV file from disk.
func (p *RecordParser) ParseFile(ctx context.Context, path string) ([]models.RawRecord, *ParseStats, error) {
	file, err := os.Open(path)
	if err != nil {
		code := errors.CodeFileNotFound
		if os.IsPermission(err) {
			code = errors.CodeFilePermission
		}
		return nil, nil, errors.FileError(code, path, err)
	}
	defer file.Close()

	records, stats, err := p.Parse(ctx, file)
	if err != nil {
		if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
			return nil, stats, reconcilerErr.WithContext("file_path", path)
		}
		return nil, stats, err
	}
	return records, stats, nil
}

// Parse reads CSV rows from the reader. Malformed rows are skipped and
// recorded in the returned stats; only an unreadable stream or an unusable
// header is fatal.
func (p *RecordParser) Parse(ctx context.Context, r io.Reader) ([]models.RawRecord, *ParseStats, error) {
	reader := csv.NewReader(r)
	reader.Comma = p.config.Delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	stats := &ParseStats{}

	columns, err := p.readColumns(reader)
	if err != nil {
		return nil, stats, err
	}

	var records []models.RawRecord
	index := 0
	line := 1
	for {
		select {
		case <-ctx.Done():
			return nil, stats, ctx.Err()
		default:
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			stats.TotalRows++
			stats.SkippedRows++
			stats.Errors = append(stats.Errors,
				errors.ParseError(errors.CodeInvalidRow, p.config.Name, line, err.Error(), err))
			continue
		}

		stats.TotalRows++
		if p.config.SkipEmpty && isEmptyRow(row) {
			stats.SkippedRows++
			continue
		}

		fields := make(map[string]string, len(columns))
		for i, column := range columns {
			if i >= len(row) {
				break
			}
			value := row[i]
			if p.config.TrimSpaces {
				value = strings.TrimSpace(value)
			}
			fields[column] = value
		}

		records = append(records, models.NewRawRecord(p.config.Source, index, columns, fields))
		index++
		stats.ParsedRows++
	}

	p.logger.WithFields(logger.Fields{
		"total":   stats.TotalRows,
		"parsed":  stats.ParsedRows,
		"skipped": stats.SkippedRows,
	}).Info("parsed input file")

	return records, stats, nil
}

// readColumns resolves the canonical column list, either from the header row
// or from positional defaults when the file has none.
func (p *RecordParser) readColumns(reader *csv.Reader) ([]string, error) {
	if !p.config.HasHeader {
		return []string{models.ColumnReference, models.ColumnAmount, models.ColumnDate, models.ColumnVendor}, nil
	}

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.ParseError(errors.CodeInvalidFormat, p.config.Name, 1, "file is empty", nil)
	}
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, p.config.Name, 1, "unreadable header", err)
	}

	columns := make([]string, len(header))
	seen := make(map[string]bool)
	for i, name := range header {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := p.config.ColumnAliases[normalized]; ok {
			normalized = canonical
		}
		columns[i] = normalized
		seen[normalized] = true
	}

	// A file where no reference column can be identified cannot be
	// reconciled meaningfully.
	if !seen[models.ColumnReference] {
		return nil, errors.ParseError(errors.CodeMissingColumn, p.config.Name, 1, models.ColumnReference, nil)
	}

	return columns, nil
}

// isEmptyRow reports whether every cell of a row is blank.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
