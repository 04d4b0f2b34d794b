package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionFor(t *testing.T) {
	txn := &Transaction{From: Party{UID: "alice"}, To: Party{UID: "bob"}}

	assert.Equal(t, DirectionSent, DirectionFor(txn, "alice"))
	assert.Equal(t, DirectionReceived, DirectionFor(txn, "bob"))
	// A third party sees "received"; listings only ever include involved users.
	assert.Equal(t, DirectionReceived, DirectionFor(txn, "carol"))
}

func TestTagForViewerSortsNewestFirstAndLeavesInputAlone(t *testing.T) {
	base := time.Now()
	input := []*Transaction{
		{ID: "old", From: Party{UID: "alice"}, Timestamp: base.Add(-2 * time.Hour)},
		{ID: "new", From: Party{UID: "alice"}, Timestamp: base},
		{ID: "mid", To: Party{UID: "alice"}, Timestamp: base.Add(-time.Hour)},
	}

	tagged := TagForViewer(input, "alice")
	require.Len(t, tagged, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{tagged[0].ID, tagged[1].ID, tagged[2].ID})
	assert.Equal(t, DirectionSent, tagged[0].Direction)
	assert.Equal(t, DirectionReceived, tagged[1].Direction)

	// Copies, not aliases: the originals stay untagged and unsorted.
	assert.Empty(t, input[0].Direction)
	assert.Equal(t, "old", input[0].ID)
}

func TestSentHistoryAverage(t *testing.T) {
	now := time.Now()
	txns := []*Transaction{
		{From: Party{UID: "alice"}, To: Party{UID: "bob"}, Amount: Cents(10000), Timestamp: now},
		{From: Party{UID: "alice"}, To: Party{UID: "bob"}, Amount: Cents(20000), Timestamp: now.Add(-time.Minute)},
		{From: Party{UID: "bob"}, To: Party{UID: "alice"}, Amount: Cents(99999), Timestamp: now.Add(-2 * time.Minute)},
	}

	h := SentHistory(txns, "alice")
	assert.Len(t, h.Transactions, 2)
	assert.Equal(t, Cents(15000), h.AvgAmount)
}

func TestSentHistoryEmpty(t *testing.T) {
	h := SentHistory(nil, "alice")
	assert.Empty(t, h.Transactions)
	assert.Equal(t, Cents(0), h.AvgAmount)

	// Received-only history also yields a zero average.
	h = SentHistory([]*Transaction{
		{From: Party{UID: "bob"}, To: Party{UID: "alice"}, Amount: Cents(5000)},
	}, "alice")
	assert.Empty(t, h.Transactions)
	assert.Equal(t, Cents(0), h.AvgAmount)
}

func TestSummarize(t *testing.T) {
	now := time.Now()
	txns := []*Transaction{
		{From: Party{UID: "alice"}, To: Party{UID: "bob"}, Amount: Cents(300), Timestamp: now},
		{From: Party{UID: "alice"}, To: Party{UID: "bob"}, Amount: Cents(100), Timestamp: now},
	}

	s := summarize(txns, "alice")
	assert.Equal(t, 2, s.TotalTransactions)
	assert.Equal(t, Cents(200), s.AverageAmount)

	empty := summarize(txns, "carol")
	assert.Zero(t, empty.TotalTransactions)
	assert.Zero(t, empty.AverageAmount)
}
