// Package models defines the record types exchanged between the invoice
// reconciliation engine and its collaborators, together with the field
// normalization rules that turn raw spreadsheet rows into comparable records.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies which of the two ledgers a record came from.
type Source string

const (
	// SourceStatement is the tax-authority statement side (e.g. a GSTR-2B
	// download).
	SourceStatement Source = "statement"
	// SourceLedger is the internal accounting ledger side (e.g. a Tally
	// purchase register export).
	SourceLedger Source = "ledger"
)

// String returns the string representation of Source
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is one of the two known sides
func (s Source) IsValid() bool {
	return s == SourceStatement || s == SourceLedger
}

// Canonical column names a RawRecord is expected to carry. Collaborators
// (the CSV parsers, an upload handler) are responsible for mapping their
// source-specific headers onto these names before handing rows to the engine.
const (
	ColumnReference = "reference"
	ColumnAmount    = "amount"
	ColumnDate      = "date"
	ColumnVendor    = "vendor"
)

// RawRecord is one already-decoded input row: an ordered column-to-value
// mapping tagged with its source and original row position. The engine never
// validates file structure, only per-field parseability.
type RawRecord struct {
	Source  Source            `json:"source"`
	Index   int               `json:"index"`
	Columns []string          `json:"columns"`
	Fields  map[string]string `json:"fields"`
}

// NewRawRecord creates a RawRecord preserving the supplied column order.
func NewRawRecord(source Source, index int, columns []string, fields map[string]string) RawRecord {
	return RawRecord{
		Source:  source,
		Index:   index,
		Columns: columns,
		Fields:  fields,
	}
}

// Get returns the raw value for a column, or "" when absent.
func (r RawRecord) Get(column string) string {
	return r.Fields[column]
}

// NormalizedRecord is the strongly-typed form of a RawRecord. Unparseable
// fields are nil/empty rather than errors: a partially populated record must
// still participate in blocking, scoring, and duplicate detection on its
// remaining fields.
type NormalizedRecord struct {
	Source     Source           `json:"source"`
	Index      int              `json:"index"`
	InvoiceRef string           `json:"invoice_ref,omitempty"`
	Date       *time.Time       `json:"date,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	VendorID   string           `json:"vendor_id,omitempty"`
	Raw        RawRecord        `json:"raw"`
}

// Normalize converts a RawRecord into its canonical typed form. It is a
// total, pure function: it never fails, and the same input always yields the
// same output.
func Normalize(raw RawRecord) *NormalizedRecord {
	return &NormalizedRecord{
		Source:     raw.Source,
		Index:      raw.Index,
		InvoiceRef: NormalizeInvoiceRef(raw.Get(ColumnReference)),
		Date:       ParseDate(raw.Get(ColumnDate)),
		Amount:     ParseAmount(raw.Get(ColumnAmount)),
		VendorID:   NormalizeVendorID(raw.Get(ColumnVendor)),
		Raw:        raw,
	}
}

// NormalizeAll normalizes every row of one source in input order.
func NormalizeAll(rows []RawRecord) []*NormalizedRecord {
	records := make([]*NormalizedRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, Normalize(row))
	}
	return records
}

// String returns a string representation of the NormalizedRecord
func (nr *NormalizedRecord) String() string {
	amount := "-"
	if nr.Amount != nil {
		amount = nr.Amount.StringFixed(2)
	}
	date := "-"
	if nr.Date != nil {
		date = nr.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("NormalizedRecord{Source: %s, Index: %d, Ref: %s, Amount: %s, Date: %s, Vendor: %s}",
		nr.Source, nr.Index, nr.InvoiceRef, amount, date, nr.VendorID)
}

// HasAmount reports whether the amount field parsed successfully.
func (nr *NormalizedRecord) HasAmount() bool {
	return nr.Amount != nil
}

// HasDate reports whether the date field parsed successfully.
func (nr *NormalizedRecord) HasDate() bool {
	return nr.Date != nil
}

// AbsAmount returns the absolute amount, or zero when the amount is unknown.
func (nr *NormalizedRecord) AbsAmount() decimal.Decimal {
	if nr.Amount == nil {
		return decimal.Zero
	}
	return nr.Amount.Abs()
}

// NormalizeInvoiceRef canonicalizes an invoice reference: trim, case-fold,
// and collapse internal whitespace runs to a single space. Residual
// formatting variation ("INV 100" vs "INV100") is the scorer's concern, not
// the normalizer's.
func NormalizeInvoiceRef(ref string) string {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return ""
	}
	return strings.Join(strings.Fields(ref), " ")
}

// NormalizeVendorID canonicalizes a tax-identifier string (GSTIN and
// similar): trim and uppercase. Returns "" when the field is blank.
func NormalizeVendorID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// currencyReplacer strips currency symbols and thousands separators before
// decimal parsing.
var currencyReplacer = strings.NewReplacer(
	"₹", "", "$", "", "€", "", "£", "", "¥", "",
	",", "", " ", "",
)

// ParseAmount parses a raw amount string into a two-place decimal. Currency
// symbols and thousands separators are stripped; accounting-style
// parentheses denote negative amounts. Returns nil when the value is blank
// or unparseable.
func ParseAmount(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}

	s = currencyReplacer.Replace(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}

	rounded := d.Round(2)
	return &rounded
}

// dateFormats is the ordered list of recognized calendar formats. First
// success wins, so day-first layouts take precedence over month-first ones.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2006/01/02",
	"02.01.2006",
	"2006.01.02",
	"02-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses a raw date string against the recognized format list and
// truncates the result to a calendar date (midnight UTC). Returns nil when
// no format matches.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &day
		}
	}

	return nil
}

// DaysBetween returns the absolute whole-day distance between two calendar
// dates.
func DaysBetween(a, b time.Time) int {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}
