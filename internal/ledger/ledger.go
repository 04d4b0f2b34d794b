// Package ledger tracks user balances and peer-to-peer transfers.
//
// Flow:
//  1. A user is provisioned on first successful authentication
//  2. Users transfer funds to another user's account number
//  3. Each transfer is validated, passed through the fraud gate, and
//     risk-scored by an external scorer before it commits
//  4. Committed transfers debit the sender, credit the receiver, and
//     append an immutable transaction record in one atomic unit
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrSenderNotFound      = errors.New("sender not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrReceiverNotFound    = errors.New("receiver account number not found")
	ErrSelfTransfer        = errors.New("cannot send money to yourself")
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateAccount    = errors.New("account number already taken")
)

// StartingBalance is credited to every newly provisioned user.
const StartingBalance = Cents(100000) // 1000.00

// Cents is a currency amount in minor units (2 decimal places).
// It marshals to and from a 2-decimal string like "1000.00".
type Cents int64

// ParseCents parses a decimal string like "12", "12.3", or "12.34".
func ParseCents(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" || len(frac) > 2 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	n, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if neg {
		n = -n
	}
	return Cents(n), nil
}

// String formats the amount with 2 decimal places.
func (c Cents) String() string {
	n := int64(c)
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	return fmt.Sprintf("%s%d.%02d", sign, n/100, n%100)
}

// MarshalJSON encodes the amount as a 2-decimal string.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON accepts either a quoted decimal string or a bare number.
func (c *Cents) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseCents(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Status of a transaction record.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
)

// Direction of a transaction relative to a viewing user. It is a derived
// view, never persisted: the same record is "sent" for the sender and
// "received" for the receiver.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Party is a snapshot of one side of a transfer at the time it happened.
type Party struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Transaction is an immutable transfer record. Only the fraud-report
// fields may change after creation.
type Transaction struct {
	ID            string    `json:"id"`
	From          Party     `json:"from"`
	To            Party     `json:"to"`
	Amount        Cents     `json:"amount"`
	Timestamp     time.Time `json:"timestamp"`
	Description   string    `json:"description"`
	Status        Status    `json:"status"`
	Direction     Direction `json:"direction,omitempty"` // set per-viewer on read
	FraudReported bool      `json:"fraudReported,omitempty"`
	FraudReason   string    `json:"fraudReason,omitempty"`
	RiskScore     int       `json:"riskScore"`
	RiskReason    string    `json:"riskReason,omitempty"`
}

// HistorySummary is the persisted aggregate of a user's sent transfers,
// recomputed from the transaction log on every balance write.
type HistorySummary struct {
	TotalTransactions int   `json:"totalTransactions"`
	AverageAmount     Cents `json:"averageAmount"`
}

// User holds a balance and a public account number used as transfer target.
type User struct {
	UID           string         `json:"uid"`
	Email         string         `json:"email"`
	Name          string         `json:"name"`
	AvatarURL     string         `json:"avatarUrl,omitempty"`
	AccountNumber string         `json:"accountNumber"`
	Balance       Cents          `json:"balance"`
	History       HistorySummary `json:"history"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// Profile is the identity payload used to provision a user.
type Profile struct {
	UID       string `json:"uid" binding:"required"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

// UserHistory is the on-demand aggregate of a user's sent transfers used
// by the fraud gate and the risk scorer. Always a full scan, never
// incrementally maintained.
type UserHistory struct {
	AvgAmount    Cents
	Transactions []*Transaction // sent only, newest first
}

// Store persists users and the transaction log.
//
// Email and account-number lookups are case-insensitive; UID lookups are
// exact. Implementations must make ApplyTransfer atomic: debit, credit,
// and append either all happen or none do, and a sender balance can never
// go negative.
type Store interface {
	FindUserByUID(ctx context.Context, uid string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByAccountNumber(ctx context.Context, accountNumber string) (*User, error)

	// UpsertUser provisions a user. Idempotent: an existing UID returns
	// the stored record after backfilling a missing account number or
	// history summary. New users get a unique account number and the
	// starting balance.
	UpsertUser(ctx context.Context, p Profile) (*User, error)

	// SetBalance overwrites a user's balance and recomputes their
	// persisted sent-history summary.
	SetBalance(ctx context.Context, uid string, balance Cents) error

	// AppendTransaction assigns an ID and prepends the record to the log.
	AppendTransaction(ctx context.Context, txn *Transaction) (*Transaction, error)

	GetTransaction(ctx context.Context, id string) (*Transaction, error)

	// MarkFraud sets the fraud-report fields. A second call overwrites
	// the reason; this matches current behavior and is not necessarily
	// intended.
	MarkFraud(ctx context.Context, id, reason string) error

	// ListForUser returns every transaction where the user is sender or
	// receiver, newest first, without direction tags.
	ListForUser(ctx context.Context, uid string) ([]*Transaction, error)

	// ApplyTransfer debits txn.From, credits txn.To, appends txn, and
	// refreshes both users' history summaries as one atomic unit.
	// Returns ErrInsufficientBalance without mutating anything if the
	// sender cannot cover the amount.
	ApplyTransfer(ctx context.Context, txn *Transaction) error
}
