package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kmadera/payfriend/internal/idgen"
	"github.com/kmadera/payfriend/internal/metrics"
	"github.com/kmadera/payfriend/internal/risk"
	"github.com/kmadera/payfriend/internal/syncutil"
	"github.com/kmadera/payfriend/internal/traces"
)

// Publisher receives completed transfers for fan-out (live feed).
type Publisher interface {
	PublishTransfer(txn *Transaction)
}

// Service orchestrates transfers: validation, fraud gate, risk scoring,
// and the atomic ledger mutation.
type Service struct {
	store     Store
	gate      *Gate
	scorer    risk.Scorer
	explainer risk.Explainer
	publisher Publisher // optional
	locks     syncutil.ShardedMutex
	logger    *slog.Logger
}

// NewService creates a transfer service.
func NewService(store Store, gate *Gate, scorer risk.Scorer, explainer risk.Explainer, logger *slog.Logger) *Service {
	if gate == nil {
		gate = DefaultGate()
	}
	return &Service{
		store:     store,
		gate:      gate,
		scorer:    scorer,
		explainer: explainer,
		logger:    logger,
	}
}

// WithPublisher attaches a transfer publisher (e.g. the WebSocket hub).
func (s *Service) WithPublisher(p Publisher) *Service {
	s.publisher = p
	return s
}

// TransferResult is the caller-facing outcome of SendMoney.
type TransferResult struct {
	Success     bool         `json:"success"`
	Warning     bool         `json:"warning,omitempty"`
	Message     string       `json:"message"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// FraudReportResult is the caller-facing outcome of ReportFraud.
type FraudReportResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Fraudulent bool   `json:"fraudulent,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// SendMoney transfers amount from the sender to the account number's
// owner. Business failures (validation, fraud warning, scorer outage)
// come back as a non-success TransferResult with a nil error; the error
// return is reserved for store failures.
//
// The whole sequence runs under per-account locks acquired in stable
// order, so concurrent transfers touching the same accounts serialize:
// two transfers from one sender cannot both pass the balance check, and
// the scorer never sees history that another commit is mutating.
func (s *Service) SendMoney(ctx context.Context, senderUID, receiverAccountNumber string, amount Cents, description string, bypassWarning bool) (*TransferResult, error) {
	ctx, span := traces.StartSpan(ctx, "ledger.SendMoney",
		traces.UserUID(senderUID), traces.Amount(amount.String()))
	defer span.End()

	// Resolve the receiver first so both lock keys are known. The
	// account-number → user binding never changes after creation.
	receiver, err := s.store.FindUserByAccountNumber(ctx, receiverAccountNumber)
	lockKeys := []string{senderUID}
	if err == nil {
		lockKeys = append(lockKeys, receiver.UID)
	}

	var unlock func()
	if len(lockKeys) == 2 {
		unlock = s.locks.LockPair(lockKeys[0], lockKeys[1])
	} else {
		unlock = s.locks.Lock(lockKeys[0])
	}
	defer unlock()

	sender, receiver, verr := s.validateTransfer(ctx, senderUID, receiverAccountNumber, amount)
	if verr != nil {
		if isValidationError(verr) {
			metrics.TransfersTotal.WithLabelValues("validation_failed").Inc()
			return &TransferResult{Success: false, Message: MessageFor(verr)}, nil
		}
		return nil, verr
	}

	// Fresh sent-history: used by both the fraud gate and the scorer so
	// they agree on one source of truth.
	all, err := s.store.ListForUser(ctx, sender.UID)
	if err != nil {
		return nil, err
	}
	history := SentHistory(all, sender.UID)

	if !bypassWarning {
		if w := s.gate.Check(history, amount, time.Now()); w != nil {
			metrics.TransfersTotal.WithLabelValues("warned").Inc()
			metrics.FraudWarningsTotal.WithLabelValues(w.Heuristic).Inc()
			return &TransferResult{Success: false, Warning: true, Message: w.Message}, nil
		}
	}

	txnSummary := fmt.Sprintf("Amount: $%s, To: %s, Description: %s", amount, receiver.Name, description)
	historySummary := fmt.Sprintf("User has made %d transfers with an average amount of $%s.",
		len(history.Transactions), history.AvgAmount)

	assessment, err := s.scorer.Score(ctx, txnSummary, historySummary)
	if err != nil {
		s.logger.Error("risk scorer failed, refusing transfer", "sender", senderUID, "error", err)
		metrics.TransfersTotal.WithLabelValues("scorer_unavailable").Inc()
		return &TransferResult{Success: false, Message: "Risk assessment unavailable. Please try again."}, nil
	}

	now := time.Now()
	txn := &Transaction{
		ID:          idgen.Txn(now),
		From:        Party{UID: sender.UID, Name: sender.Name, Email: sender.Email},
		To:          Party{UID: receiver.UID, Name: receiver.Name, Email: receiver.Email},
		Amount:      amount,
		Timestamp:   now,
		Description: description,
		Status:      StatusCompleted,
		RiskScore:   assessment.Score,
		RiskReason:  assessment.Reason,
	}

	if err := s.store.ApplyTransfer(ctx, txn); err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			// Balance moved between validation and commit.
			metrics.TransfersTotal.WithLabelValues("validation_failed").Inc()
			return &TransferResult{Success: false, Message: MessageFor(err)}, nil
		}
		metrics.TransfersTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("apply transfer: %w", err)
	}

	metrics.TransfersTotal.WithLabelValues("completed").Inc()
	metrics.RiskScores.Observe(float64(assessment.Score))
	span.SetAttributes(traces.TransactionID(txn.ID))

	s.logger.Info("transfer completed",
		"txn", txn.ID, "sender", sender.UID, "receiver", receiver.UID,
		"amount", amount.String(), "risk_score", assessment.Score)

	if s.publisher != nil {
		s.publisher.PublishTransfer(txn)
	}

	return &TransferResult{Success: true, Message: "Transfer completed successfully.", Transaction: txn}, nil
}

// ReportFraud marks a transaction as fraud-reported after running the
// user's report through the external explainer. Explainer failure leaves
// the transaction untouched and reports a generic failure.
func (s *Service) ReportFraud(ctx context.Context, transactionID, userReport string) (*FraudReportResult, error) {
	ctx, span := traces.StartSpan(ctx, "ledger.ReportFraud", traces.TransactionID(transactionID))
	defer span.End()

	txn, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			metrics.FraudReportsTotal.WithLabelValues("not_found").Inc()
			return &FraudReportResult{Success: false, Message: "Transaction not found."}, nil
		}
		return nil, err
	}

	summary := fmt.Sprintf("Amount: $%s, To: %s, From: %s, Date: %s, Description: %s",
		txn.Amount, txn.To.Name, txn.From.Name, txn.Timestamp.Format(time.RFC3339), txn.Description)

	explanation, err := s.explainer.Explain(ctx, summary, userReport)
	if err != nil {
		s.logger.Error("fraud explainer failed", "txn", transactionID, "error", err)
		metrics.FraudReportsTotal.WithLabelValues("explainer_failed").Inc()
		return &FraudReportResult{Success: false, Message: "Failed to analyze fraud report."}, nil
	}

	if err := s.store.MarkFraud(ctx, transactionID, explanation.Reason); err != nil {
		return nil, fmt.Errorf("mark fraud: %w", err)
	}

	metrics.FraudReportsTotal.WithLabelValues("submitted").Inc()
	s.logger.Info("fraud report recorded", "txn", transactionID)

	return &FraudReportResult{
		Success:    true,
		Message:    "Fraud report submitted and analyzed.",
		Fraudulent: true,
		Reason:     explanation.Reason,
	}, nil
}

// UpsertUser provisions a user, idempotently.
func (s *Service) UpsertUser(ctx context.Context, p Profile) (*User, error) {
	return s.store.UpsertUser(ctx, p)
}

// GetUser returns a user by UID.
func (s *Service) GetUser(ctx context.Context, uid string) (*User, error) {
	return s.store.FindUserByUID(ctx, uid)
}

// TransactionsForUser returns the user's transactions tagged with the
// viewer-relative direction, newest first.
func (s *Service) TransactionsForUser(ctx context.Context, uid string) ([]*Transaction, error) {
	txns, err := s.store.ListForUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return TagForViewer(txns, uid), nil
}

// GetTransaction returns a transaction by ID, tagged for the viewer when
// viewerUID is non-empty.
func (s *Service) GetTransaction(ctx context.Context, id, viewerUID string) (*Transaction, error) {
	txn, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewerUID != "" {
		txn.Direction = DirectionFor(txn, viewerUID)
	}
	return txn, nil
}

// HistoryStats recomputes the sender-side history aggregate on demand.
func (s *Service) HistoryStats(ctx context.Context, uid string) (*UserHistory, error) {
	txns, err := s.store.ListForUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return SentHistory(txns, uid), nil
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrSenderNotFound) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrReceiverNotFound) ||
		errors.Is(err, ErrSelfTransfer)
}
