package ledger

import "sort"

// DirectionFor derives the viewer-relative direction of a transaction.
func DirectionFor(txn *Transaction, viewerUID string) Direction {
	if txn.From.UID == viewerUID {
		return DirectionSent
	}
	return DirectionReceived
}

// TagForViewer returns copies of the given transactions tagged with the
// viewer-relative direction, sorted by timestamp descending. Ties keep
// their input order.
func TagForViewer(txns []*Transaction, viewerUID string) []*Transaction {
	tagged := make([]*Transaction, len(txns))
	for i, txn := range txns {
		cp := *txn
		cp.Direction = DirectionFor(txn, viewerUID)
		tagged[i] = &cp
	}
	sort.SliceStable(tagged, func(i, j int) bool {
		return tagged[i].Timestamp.After(tagged[j].Timestamp)
	})
	return tagged
}

// SentHistory filters to the user's sent transactions and computes the
// average sent amount. AvgAmount is 0 when there are no sent transfers.
func SentHistory(txns []*Transaction, uid string) *UserHistory {
	var sent []*Transaction
	var total Cents
	for _, txn := range TagForViewer(txns, uid) {
		if txn.Direction == DirectionSent {
			sent = append(sent, txn)
			total += txn.Amount
		}
	}

	h := &UserHistory{Transactions: sent}
	if len(sent) > 0 {
		h.AvgAmount = total / Cents(len(sent))
	}
	return h
}

// summarize computes the persisted history summary from a full
// transaction list. Used by stores on balance writes.
func summarize(txns []*Transaction, uid string) HistorySummary {
	h := SentHistory(txns, uid)
	return HistorySummary{
		TotalTransactions: len(h.Transactions),
		AverageAmount:     h.AvgAmount,
	}
}
