// Package reconciler wires the input parsers and the matching engine into a
// single file-to-result service, the unit the CLI drives.
package reconciler

import (
	"context"
	"time"

	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/parsers"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// Config holds everything a Service needs: the engine tuning and the two
// source dialects.
type Config struct {
	Matching        *matcher.EngineConfig `json:"matching"`
	StatementSource *parsers.SourceConfig `json:"statement_source"`
	LedgerSource    *parsers.SourceConfig `json:"ledger_source"`
}

// DefaultConfig returns the standard service configuration: default engine
// tuning, GSTR-2B statement dialect, Tally ledger dialect.
func DefaultConfig() *Config {
	return &Config{
		Matching:        matcher.DefaultEngineConfig(),
		StatementSource: parsers.StatementSourceConfig(),
		LedgerSource:    parsers.LedgerSourceConfig(),
	}
}

// RunRequest names the two input files of one reconciliation run.
type RunRequest struct {
	StatementFile string `json:"statement_file"`
	LedgerFile    string `json:"ledger_file"`
}

// RunResult is the engine result together with run provenance: parse
// statistics per side and timing.
type RunResult struct {
	*matcher.Result

	StatementStats *parsers.ParseStats `json:"statement_stats"`
	LedgerStats    *parsers.ParseStats `json:"ledger_stats"`

	ProcessedAt time.Time     `json:"processed_at"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Service runs complete reconciliations from files on disk.
type Service struct {
	config          *Config
	engine          *matcher.Engine
	statementParser *parsers.RecordParser
	ledgerParser    *parsers.RecordParser
	logger          logger.Logger
}

// NewService builds a Service, validating all configuration up front. A nil
// configuration selects the defaults.
func NewService(config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}

	engine, err := matcher.NewEngine(config.Matching)
	if err != nil {
		return nil, err
	}

	statementParser, err := parsers.NewRecordParser(config.StatementSource)
	if err != nil {
		return nil, err
	}
	ledgerParser, err := parsers.NewRecordParser(config.LedgerSource)
	if err != nil {
		return nil, err
	}

	return &Service{
		config:          config,
		engine:          engine,
		statementParser: statementParser,
		ledgerParser:    ledgerParser,
		logger:          logger.GetGlobalLogger().WithComponent("reconciler"),
	}, nil
}

// Run parses both input files and reconciles them.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.StatementFile == "" {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "statement file", nil, nil)
	}
	if req.LedgerFile == "" {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "ledger file", nil, nil)
	}

	started := time.Now()
	s.logger.WithFields(logger.Fields{
		"statement_file": req.StatementFile,
		"ledger_file":    req.LedgerFile,
	}).Info("starting run")

	statementRows, statementStats, err := s.statementParser.ParseFile(ctx, req.StatementFile)
	if err != nil {
		return nil, err
	}
	ledgerRows, ledgerStats, err := s.ledgerParser.ParseFile(ctx, req.LedgerFile)
	if err != nil {
		return nil, err
	}

	result := s.engine.Reconcile(statementRows, ledgerRows)

	runResult := &RunResult{
		Result:         result,
		StatementStats: statementStats,
		LedgerStats:    ledgerStats,
		ProcessedAt:    started,
		Elapsed:        time.Since(started),
	}

	s.logger.WithFields(logger.Fields{
		"reconciled": result.Metrics.ReconciledCount,
		"match_rate": result.Metrics.MatchRate,
		"elapsed":    runResult.Elapsed.String(),
	}).Info("run complete")

	return runResult, nil
}
