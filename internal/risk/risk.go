// Package risk is the boundary to the external transaction-risk services.
//
// The scorer and the fraud explainer are black boxes from the ledger's
// point of view: they take natural-language summaries and return a score
// or an explanation. Both may fail; callers must treat failure as a typed
// outcome, never as a crash.
package risk

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable is returned when the upstream cannot be reached,
	// times out, or the circuit breaker is open.
	ErrUnavailable = errors.New("risk: service unavailable")
	// ErrBadResponse is returned when the upstream answers with something
	// that cannot be parsed into an assessment.
	ErrBadResponse = errors.New("risk: malformed response")
)

// Assessment is the scorer's verdict on a single transaction.
type Assessment struct {
	Score  int    `json:"riskScore"` // 0 (low) to 100 (high)
	Reason string `json:"riskReason"`
}

// Explanation is the explainer's verdict on a user's fraud report.
type Explanation struct {
	Reason string `json:"reason"`
}

// Scorer assigns a risk score to a transaction given a summary of the
// transaction and of the sender's history.
type Scorer interface {
	Score(ctx context.Context, transactionSummary, senderHistorySummary string) (*Assessment, error)
}

// Explainer analyzes a user-submitted fraud report against a transaction.
type Explainer interface {
	Explain(ctx context.Context, transactionSummary, userReport string) (*Explanation, error)
}

// clampScore forces a score into [0, 100].
func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
