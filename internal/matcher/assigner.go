package matcher

import (
	"sort"

	"github.com/shopspring/decimal"

	"invoice-reconciliation-service/internal/models"
)

// ReconciledPair is one committed statement-to-ledger match.
type ReconciledPair struct {
	Statement *models.NormalizedRecord `json:"statement"`
	Ledger    *models.NormalizedRecord `json:"ledger"`

	Score      float64         `json:"score"`
	Components ComponentScores `json:"components"`
	Tier       ConfidenceTier  `json:"tier"`

	// AmountDifference is statement amount minus ledger amount, zero when
	// either amount is unknown.
	AmountDifference decimal.Decimal `json:"amount_difference"`
}

// candidatePair is one scored statement/ledger combination awaiting
// assignment.
type candidatePair struct {
	statement  *models.NormalizedRecord
	ledger     *models.NormalizedRecord
	score      float64
	components ComponentScores
}

// assign performs greedy one-to-one assignment over scored candidate pairs:
// highest score first, each record committed at most once, pairs below the
// commit threshold discarded. Ties break deterministically on row positions
// so a rerun over the same input yields the same result.
func (e *Engine) assign(pairs []candidatePair) []ReconciledPair {
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		si := pairs[i].statement.Index + pairs[i].ledger.Index
		sj := pairs[j].statement.Index + pairs[j].ledger.Index
		if si != sj {
			return si < sj
		}
		return pairs[i].statement.Index < pairs[j].statement.Index
	})

	claimedStatements := make(map[int]bool)
	claimedLedgers := make(map[int]bool)

	var reconciled []ReconciledPair
	for _, pair := range pairs {
		if pair.score < e.config.CommitThreshold {
			break
		}
		if claimedStatements[pair.statement.Index] || claimedLedgers[pair.ledger.Index] {
			continue
		}

		claimedStatements[pair.statement.Index] = true
		claimedLedgers[pair.ledger.Index] = true

		reconciled = append(reconciled, ReconciledPair{
			Statement:        pair.statement,
			Ledger:           pair.ledger,
			Score:            pair.score,
			Components:       pair.components,
			Tier:             e.config.TierFor(pair.score),
			AmountDifference: amountDifference(pair.statement, pair.ledger),
		})
	}

	return reconciled
}

// amountDifference returns statement minus ledger, or zero when either
// amount failed to parse.
func amountDifference(statement, ledger *models.NormalizedRecord) decimal.Decimal {
	if !statement.HasAmount() || !ledger.HasAmount() {
		return decimal.Zero
	}
	return statement.Amount.Sub(*ledger.Amount)
}

// unclaimed returns, in original row order, the records of one side that no
// reconciled pair committed.
func unclaimed(records []*models.NormalizedRecord, claimed map[int]bool) []*models.NormalizedRecord {
	var out []*models.NormalizedRecord
	for _, record := range records {
		if !claimed[record.Index] {
			out = append(out, record)
		}
	}
	return out
}
