package risk

import (
	"context"
	"fmt"
	"strings"
)

// suspiciousKeywords mirror the factors the production prompt asks the
// model to look for in transfer descriptions.
var suspiciousKeywords = []string{
	"urgent",
	"verify account",
	"unlock",
	"password",
	"gift card",
	"prize",
}

// StubScorer is a deterministic keyword scorer for development mode,
// used when no RISK_API_KEY is configured.
type StubScorer struct{}

// Score implements Scorer with a fixed heuristic: a low base score plus
// a penalty per suspicious keyword found in the transaction summary.
func (StubScorer) Score(ctx context.Context, transactionSummary, senderHistorySummary string) (*Assessment, error) {
	lower := strings.ToLower(transactionSummary)

	score := 15
	var matched []string
	for _, kw := range suspiciousKeywords {
		if strings.Contains(lower, kw) {
			score += 25
			matched = append(matched, kw)
		}
	}

	reason := "No obvious risk factors."
	if len(matched) > 0 {
		reason = fmt.Sprintf("Suspicious terms in description: %s.", strings.Join(matched, ", "))
	}

	return &Assessment{Score: clampScore(score), Reason: reason}, nil
}

// StubExplainer is a deterministic explainer for development mode.
type StubExplainer struct{}

// Explain implements Explainer by acknowledging the report verbatim.
func (StubExplainer) Explain(ctx context.Context, transactionSummary, userReport string) (*Explanation, error) {
	report := strings.TrimSpace(userReport)
	if len(report) > 120 {
		report = report[:120] + "…"
	}
	return &Explanation{
		Reason: fmt.Sprintf("User reported: %s", report),
	}, nil
}
