package matcher

import (
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// Engine runs the reconciliation pipeline: normalize both sides, block
// candidates, score them, assign one-to-one matches, detect duplicates, and
// aggregate metrics.
type Engine struct {
	config *EngineConfig
	scorer *Scorer
	logger logger.Logger
}

// Result is the complete outcome of one reconciliation run.
type Result struct {
	Reconciled         []ReconciledPair           `json:"reconciled"`
	UnmatchedStatement []*models.NormalizedRecord `json:"unmatched_statement"`
	UnmatchedLedger    []*models.NormalizedRecord `json:"unmatched_ledger"`

	StatementDuplicates []DuplicateGroup `json:"statement_duplicates"`
	LedgerDuplicates    []DuplicateGroup `json:"ledger_duplicates"`

	Metrics Metrics `json:"metrics"`
}

// NewEngine creates an Engine after validating the configuration. A nil
// configuration selects the defaults.
func NewEngine(config *EngineConfig) (*Engine, error) {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "engine", config, err)
	}

	return &Engine{
		config: config.Clone(),
		scorer: NewScorer(config),
		logger: logger.GetGlobalLogger().WithComponent("engine"),
	}, nil
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() *EngineConfig {
	return e.config.Clone()
}

// Reconcile matches statement rows against ledger rows. It accepts
// already-decoded rows, tolerates unparseable fields on individual records,
// and always produces a complete Result: every input record lands in exactly
// one of Reconciled, UnmatchedStatement, or UnmatchedLedger.
func (e *Engine) Reconcile(statementRows, ledgerRows []models.RawRecord) *Result {
	statements := models.NormalizeAll(statementRows)
	ledgers := models.NormalizeAll(ledgerRows)

	e.logger.WithFields(logger.Fields{
		"statement_records": len(statements),
		"ledger_records":    len(ledgers),
	}).Info("starting reconciliation")

	index := NewBlockingIndex(ledgers)

	var pairs []candidatePair
	for _, statement := range statements {
		for _, ledger := range index.Candidates(statement) {
			score, components := e.scorer.Score(statement, ledger)
			pairs = append(pairs, candidatePair{
				statement:  statement,
				ledger:     ledger,
				score:      score,
				components: components,
			})
		}
	}
	e.logger.Debugf("scored %d candidate pairs", len(pairs))

	reconciled := e.assign(pairs)

	claimedStatements := make(map[int]bool, len(reconciled))
	claimedLedgers := make(map[int]bool, len(reconciled))
	for _, pair := range reconciled {
		claimedStatements[pair.Statement.Index] = true
		claimedLedgers[pair.Ledger.Index] = true
	}

	result := &Result{
		Reconciled:          reconciled,
		UnmatchedStatement:  unclaimed(statements, claimedStatements),
		UnmatchedLedger:     unclaimed(ledgers, claimedLedgers),
		StatementDuplicates: e.findDuplicates(models.SourceStatement, statements),
		LedgerDuplicates:    e.findDuplicates(models.SourceLedger, ledgers),
	}
	result.Metrics = aggregate(result)

	e.logger.WithFields(logger.Fields{
		"reconciled":          result.Metrics.ReconciledCount,
		"unmatched_statement": result.Metrics.UnmatchedStatementCount,
		"unmatched_ledger":    result.Metrics.UnmatchedLedgerCount,
		"match_rate":          result.Metrics.MatchRate,
	}).Info("reconciliation complete")

	return result
}
