package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"invoice-reconciliation-service/cmd/reconciler/config"
	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	statementFile string
	ledgerFile    string
	outputFormat  string
	outputFile    string
	threshold     float64
	dateTolerance int
	strictMode    bool
	relaxedMode   bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a statement file against a ledger file",
	Long: `Reconcile compares invoice records from a tax-authority statement with
invoice records from an internal accounting ledger, identifying matched
pairs, amount discrepancies, duplicates, and unmatched entries.

This command requires:
- A statement file (CSV format, e.g. a GSTR-2B export)
- A ledger file (CSV format, e.g. a Tally purchase register export)

Examples:
  # Basic reconciliation
  reconciler reconcile --statement-file gstr2b.csv --ledger-file tally.csv

  # JSON report written to a file
  reconciler reconcile -s gstr2b.csv -l tally.csv \
    --output-format json --output-file report.json

  # Tighter matching
  reconciler reconcile -s gstr2b.csv -l tally.csv --threshold 0.95 --date-tolerance 2

  # Preset tunings
  reconciler reconcile -s gstr2b.csv -l tally.csv --strict`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&statementFile, "statement-file", "s", "", "path to statement CSV file (required)")
	reconcileCmd.Flags().StringVarP(&ledgerFile, "ledger-file", "l", "", "path to ledger CSV file (required)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Matching configuration flags
	reconcileCmd.Flags().Float64VarP(&threshold, "threshold", "t", 0.85, "minimum composite score to commit a match (0.0-1.0)")
	reconcileCmd.Flags().IntVarP(&dateTolerance, "date-tolerance", "d", 7, "date matching tolerance in days")
	reconcileCmd.Flags().BoolVar(&strictMode, "strict", false, "use the strict matching preset")
	reconcileCmd.Flags().BoolVar(&relaxedMode, "relaxed", false, "use the relaxed matching preset")

	reconcileCmd.MarkFlagRequired("statement-file")
	reconcileCmd.MarkFlagRequired("ledger-file")

	// Bind flags to viper
	viper.BindPFlag("statement-file", reconcileCmd.Flags().Lookup("statement-file"))
	viper.BindPFlag("ledger-file", reconcileCmd.Flags().Lookup("ledger-file"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("threshold", reconcileCmd.Flags().Lookup("threshold"))
	viper.BindPFlag("date-tolerance", reconcileCmd.Flags().Lookup("date-tolerance"))
	viper.BindPFlag("strict", reconcileCmd.Flags().Lookup("strict"))
	viper.BindPFlag("relaxed", reconcileCmd.Flags().Lookup("relaxed"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	statementFile = viper.GetString("statement-file")
	ledgerFile = viper.GetString("ledger-file")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	threshold = viper.GetFloat64("threshold")
	dateTolerance = viper.GetInt("date-tolerance")
	strictMode = viper.GetBool("strict")
	relaxedMode = viper.GetBool("relaxed")

	if statementFile == "" {
		return fmt.Errorf("statement-file is required")
	}
	if ledgerFile == "" {
		return fmt.Errorf("ledger-file is required")
	}
	if strictMode && relaxedMode {
		return fmt.Errorf("--strict and --relaxed are mutually exclusive")
	}

	if err := validateFileExists(statementFile, "statement file"); err != nil {
		return err
	}
	if err := validateFileExists(ledgerFile, "ledger file"); err != nil {
		return err
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("threshold must be between 0.0 and 1.0")
	}
	if dateTolerance < 0 {
		return fmt.Errorf("date tolerance cannot be negative")
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	handler := NewCLIErrorHandler()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Statement file: %s\n", statementFile)
		fmt.Fprintf(os.Stderr, "Ledger file: %s\n", ledgerFile)
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", outputFile)
		}
	}

	serviceConfig, err := config.BuildServiceConfig(config.BuildOptions{
		Threshold:     threshold,
		DateTolerance: dateTolerance,
		Strict:        strictMode,
		Relaxed:       relaxedMode,
		ThresholdSet:  cmd.Flags().Changed("threshold"),
		ToleranceSet:  cmd.Flags().Changed("date-tolerance"),
	})
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	service, err := reconciler.NewService(serviceConfig)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	result, err := service.Run(ctx, reconciler.RunRequest{
		StatementFile: statementFile,
		LedgerFile:    ledgerFile,
	})
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	reportWarnings(result)

	// Determine output destination
	var output *os.File
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	reportConfig := config.BuildReportConfig(outputFormat)
	rep, err := reporter.NewReporter(reportConfig, output)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	if err := rep.Write(result.Result); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nReconciliation completed successfully.\n")
		fmt.Fprintf(os.Stderr, "Processed %d statement rows and %d ledger rows.\n",
			result.Metrics.StatementCount, result.Metrics.LedgerCount)
		fmt.Fprintf(os.Stderr, "Found %d matches, %d unmatched statement, %d unmatched ledger.\n",
			result.Metrics.ReconciledCount,
			result.Metrics.UnmatchedStatementCount,
			result.Metrics.UnmatchedLedgerCount)
		fmt.Fprintf(os.Stderr, "Processing time: %v\n", result.Elapsed)
	}

	return nil
}

// reportWarnings surfaces skipped-row counts on stderr so a clean-looking
// report does not hide input problems.
func reportWarnings(result *reconciler.RunResult) {
	if result.StatementStats != nil && result.StatementStats.SkippedRows > 0 {
		fmt.Fprintf(os.Stderr, "Warning: skipped %d of %d statement rows\n",
			result.StatementStats.SkippedRows, result.StatementStats.TotalRows)
	}
	if result.LedgerStats != nil && result.LedgerStats.SkippedRows > 0 {
		fmt.Fprintf(os.Stderr, "Warning: skipped %d of %d ledger rows\n",
			result.LedgerStats.SkippedRows, result.LedgerStats.TotalRows)
	}
}
