// Package reporter renders reconciliation results for people and machines:
// a console summary, a JSON document, and a flat CSV export.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/models"
)

// Format selects the output rendering.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
)

// ReportConfig controls what a report includes.
type ReportConfig struct {
	Format            Format `json:"format"`
	IncludeUnmatched  bool   `json:"include_unmatched"`
	IncludeDuplicates bool   `json:"include_duplicates"`
	// MaxListedRecords caps how many unmatched records the console report
	// lists per side; zero means no cap.
	MaxListedRecords int `json:"max_listed_records"`
}

// DefaultReportConfig returns the standard report configuration: console
// output with unmatched records and duplicate groups included.
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:            FormatConsole,
		IncludeUnmatched:  true,
		IncludeDuplicates: true,
		MaxListedRecords:  50,
	}
}

// Validate checks the report configuration.
func (c *ReportConfig) Validate() error {
	switch c.Format {
	case FormatConsole, FormatJSON, FormatCSV:
	default:
		return fmt.Errorf("invalid report format %q", c.Format)
	}
	if c.MaxListedRecords < 0 {
		return fmt.Errorf("max listed records must be non-negative, got %d", c.MaxListedRecords)
	}
	return nil
}

// Reporter writes reconciliation results to an output stream.
type Reporter struct {
	config *ReportConfig
	out    io.Writer
}

// NewReporter creates a Reporter with the given configuration. A nil
// configuration selects the defaults.
func NewReporter(config *ReportConfig, out io.Writer) (*Reporter, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Reporter{config: config, out: out}, nil
}

// Write renders the result in the configured format.
func (r *Reporter) Write(result *matcher.Result) error {
	switch r.config.Format {
	case FormatJSON:
		return r.writeJSON(result)
	case FormatCSV:
		return r.writeCSV(result)
	default:
		return r.writeConsole(result)
	}
}

func (r *Reporter) writeJSON(result *matcher.Result) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// csvHeader is the column list of the flat CSV export. Every result row
// (reconciled, unmatched on either side) shares this shape.
var csvHeader = []string{
	"record_type",
	"statement_reference",
	"ledger_reference",
	"vendor",
	"statement_date",
	"ledger_date",
	"statement_amount",
	"ledger_amount",
	"amount_difference",
	"score",
	"tier",
}

func (r *Reporter) writeCSV(result *matcher.Result) error {
	w := csv.NewWriter(r.out)

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, pair := range result.Reconciled {
		row := []string{
			"reconciled",
			pair.Statement.InvoiceRef,
			pair.Ledger.InvoiceRef,
			firstNonEmpty(pair.Statement.VendorID, pair.Ledger.VendorID),
			formatDate(pair.Statement),
			formatDate(pair.Ledger),
			formatAmount(pair.Statement),
			formatAmount(pair.Ledger),
			pair.AmountDifference.StringFixed(2),
			strconv.FormatFloat(pair.Score, 'f', 4, 64),
			string(pair.Tier),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	if r.config.IncludeUnmatched {
		for _, record := range result.UnmatchedStatement {
			if err := w.Write(unmatchedRow("unmatched_statement", record, true)); err != nil {
				return err
			}
		}
		for _, record := range result.UnmatchedLedger {
			if err := w.Write(unmatchedRow("unmatched_ledger", record, false)); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}

func unmatchedRow(recordType string, record *models.NormalizedRecord, isStatement bool) []string {
	row := []string{recordType, "", "", record.VendorID, "", "", "", "", "", "", ""}
	if isStatement {
		row[1] = record.InvoiceRef
		row[4] = formatDate(record)
		row[6] = formatAmount(record)
	} else {
		row[2] = record.InvoiceRef
		row[5] = formatDate(record)
		row[7] = formatAmount(record)
	}
	return row
}

func (r *Reporter) writeConsole(result *matcher.Result) error {
	m := result.Metrics

	var b strings.Builder
	b.WriteString("Reconciliation Report\n")
	b.WriteString("=====================\n\n")

	b.WriteString("Summary\n")
	fmt.Fprintf(&b, "  Statement records:   %d\n", m.StatementCount)
	fmt.Fprintf(&b, "  Ledger records:      %d\n", m.LedgerCount)
	fmt.Fprintf(&b, "  Reconciled pairs:    %d\n", m.ReconciledCount)
	fmt.Fprintf(&b, "  Unmatched statement: %d\n", m.UnmatchedStatementCount)
	fmt.Fprintf(&b, "  Unmatched ledger:    %d\n", m.UnmatchedLedgerCount)
	fmt.Fprintf(&b, "  Match rate:          %.1f%%\n\n", m.MatchRate*100)

	b.WriteString("Match Quality\n")
	fmt.Fprintf(&b, "  High confidence:     %d\n", m.HighConfidence)
	fmt.Fprintf(&b, "  Medium confidence:   %d\n", m.MediumConfidence)
	fmt.Fprintf(&b, "  Low confidence:      %d\n", m.LowConfidence)
	fmt.Fprintf(&b, "  Average score:       %.4f\n", m.AverageScore)
	fmt.Fprintf(&b, "  Perfect matches:     %d\n\n", m.PerfectMatches)

	b.WriteString("Financials\n")
	fmt.Fprintf(&b, "  Statement total:     %s\n", m.StatementTotal.StringFixed(2))
	fmt.Fprintf(&b, "  Ledger total:        %s\n", m.LedgerTotal.StringFixed(2))
	fmt.Fprintf(&b, "  Total variance:      %s\n", m.TotalVariance.StringFixed(2))
	fmt.Fprintf(&b, "  Total discrepancy:   %s\n", m.TotalAmountDifference.StringFixed(2))
	fmt.Fprintf(&b, "  Largest discrepancy: %s\n\n", m.LargestDiscrepancy.StringFixed(2))

	if r.config.IncludeUnmatched {
		r.writeUnmatchedSection(&b, "Unmatched Statement Records", result.UnmatchedStatement)
		r.writeUnmatchedSection(&b, "Unmatched Ledger Records", result.UnmatchedLedger)
	}

	if r.config.IncludeDuplicates {
		r.writeDuplicateSection(&b, "Statement Duplicates", result.StatementDuplicates)
		r.writeDuplicateSection(&b, "Ledger Duplicates", result.LedgerDuplicates)
	}

	_, err := io.WriteString(r.out, b.String())
	return err
}

func (r *Reporter) writeUnmatchedSection(b *strings.Builder, title string, records []*models.NormalizedRecord) {
	if len(records) == 0 {
		return
	}

	fmt.Fprintf(b, "%s (%d)\n", title, len(records))
	listed := records
	if r.config.MaxListedRecords > 0 && len(listed) > r.config.MaxListedRecords {
		listed = listed[:r.config.MaxListedRecords]
	}
	for _, record := range listed {
		fmt.Fprintf(b, "  row %d: ref=%s amount=%s date=%s vendor=%s\n",
			record.Index,
			orDash(record.InvoiceRef),
			formatAmountOrDash(record),
			formatDateOrDash(record),
			orDash(record.VendorID))
	}
	if len(records) > len(listed) {
		fmt.Fprintf(b, "  ... and %d more\n", len(records)-len(listed))
	}
	b.WriteString("\n")
}

func (r *Reporter) writeDuplicateSection(b *strings.Builder, title string, groups []matcher.DuplicateGroup) {
	if len(groups) == 0 {
		return
	}

	fmt.Fprintf(b, "%s (%d groups)\n", title, len(groups))
	for _, group := range groups {
		rows := make([]string, 0, len(group.Members))
		for _, member := range group.Members {
			rows = append(rows, strconv.Itoa(member.Index))
		}
		fmt.Fprintf(b, "  %s=%s: rows %s\n", group.Field, group.Value, strings.Join(rows, ", "))
	}
	b.WriteString("\n")
}

func formatAmount(record *models.NormalizedRecord) string {
	if !record.HasAmount() {
		return ""
	}
	return record.Amount.StringFixed(2)
}

func formatDate(record *models.NormalizedRecord) string {
	if !record.HasDate() {
		return ""
	}
	return record.Date.Format("2006-01-02")
}

func formatAmountOrDash(record *models.NormalizedRecord) string {
	return orDash(formatAmount(record))
}

func formatDateOrDash(record *models.NormalizedRecord) string {
	return orDash(formatDate(record))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
