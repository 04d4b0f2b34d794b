package ledger

import (
	"fmt"
	"time"
)

// Gate holds the fraud-heuristic thresholds. Both checks raise soft
// warnings: the caller may resubmit with the bypass flag, which skips
// the gate entirely.
type Gate struct {
	VelocityWindow    time.Duration // look-back for the velocity check
	VelocityThreshold int           // sent transfers within the window that trigger a warning
	AnomalyMultiplier int           // multiple of the historical average that triggers a warning
}

// DefaultGate returns the production thresholds: 3 transfers in 60
// seconds, or an amount above 5x the historical sent average.
func DefaultGate() *Gate {
	return &Gate{
		VelocityWindow:    60 * time.Second,
		VelocityThreshold: 3,
		AnomalyMultiplier: 5,
	}
}

// Warning is a soft block raised by the gate.
type Warning struct {
	Heuristic string // "velocity" or "anomaly"
	Message   string
}

// Check runs the velocity check, then the anomaly check, against the
// sender's sent history. It returns nil when neither fires.
func (g *Gate) Check(history *UserHistory, amount Cents, now time.Time) *Warning {
	cutoff := now.Add(-g.VelocityWindow)
	recent := 0
	for _, txn := range history.Transactions {
		if txn.Timestamp.After(cutoff) {
			recent++
		}
	}
	if recent >= g.VelocityThreshold {
		return &Warning{
			Heuristic: "velocity",
			Message:   "You're making transfers very quickly. Please confirm you want to proceed.",
		}
	}

	if history.AvgAmount > 0 && amount > history.AvgAmount*Cents(g.AnomalyMultiplier) {
		return &Warning{
			Heuristic: "anomaly",
			Message: fmt.Sprintf(
				"This transfer of $%s is much larger than your average of $%s. Please confirm you want to proceed.",
				amount, history.AvgAmount,
			),
		}
	}

	return nil
}
