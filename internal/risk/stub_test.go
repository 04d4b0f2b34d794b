package risk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubScorerBaseline(t *testing.T) {
	a, err := StubScorer{}.Score(context.Background(), "Amount: $10.00, To: Bob, Description: lunch", "")
	require.NoError(t, err)
	assert.Equal(t, 15, a.Score)
	assert.Equal(t, "No obvious risk factors.", a.Reason)
}

func TestStubScorerKeywords(t *testing.T) {
	a, err := StubScorer{}.Score(context.Background(),
		"Amount: $500.00, To: Stranger, Description: URGENT please verify account", "")
	require.NoError(t, err)
	assert.Equal(t, 65, a.Score) // 15 + 25 + 25
	assert.Contains(t, a.Reason, "urgent")
	assert.Contains(t, a.Reason, "verify account")
}

func TestStubScorerClamps(t *testing.T) {
	summary := "urgent verify account unlock password gift card prize"
	a, err := StubScorer{}.Score(context.Background(), summary, "")
	require.NoError(t, err)
	assert.Equal(t, 100, a.Score)
}

func TestStubExplainer(t *testing.T) {
	e, err := StubExplainer{}.Explain(context.Background(), "Amount: $50.00", "  they demanded gift cards  ")
	require.NoError(t, err)
	assert.Equal(t, "User reported: they demanded gift cards", e.Reason)
}

func TestStubExplainerTruncatesLongReports(t *testing.T) {
	long := strings.Repeat("a", 500)
	e, err := StubExplainer{}.Explain(context.Background(), "x", long)
	require.NoError(t, err)
	assert.Less(t, len(e.Reason), 200)
	assert.Contains(t, e.Reason, "…")
}
