package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kmadera/payfriend/internal/idgen"
)

// MemoryStore is a mutex-guarded in-memory store. It is the default
// backend when no DATABASE_URL is configured and the backend used by
// most tests.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*User   // by UID (case-sensitive)
	byEmail map[string]string  // lower(email) → UID
	byAcct  map[string]string  // normalized account number → UID
	txns    []*Transaction     // newest first
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
		byAcct:  make(map[string]string),
	}
}

func (m *MemoryStore) FindUserByUID(ctx context.Context, uid string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userByUID(uid)
}

func (m *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uid, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return m.userByUID(uid)
}

func (m *MemoryStore) FindUserByAccountNumber(ctx context.Context, accountNumber string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uid, ok := m.byAcct[NormalizeAccountNumber(accountNumber)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return m.userByUID(uid)
}

func (m *MemoryStore) UpsertUser(ctx context.Context, p Profile) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.users[p.UID]; ok {
		// Backfill fields missing from records created before the
		// account-number scheme existed.
		if existing.AccountNumber == "" {
			existing.AccountNumber = m.uniqueAccountNumber()
			m.byAcct[NormalizeAccountNumber(existing.AccountNumber)] = existing.UID
		}
		cp := *existing
		return &cp, nil
	}

	user := &User{
		UID:           p.UID,
		Email:         p.Email,
		Name:          p.Name,
		AvatarURL:     p.AvatarURL,
		AccountNumber: m.uniqueAccountNumber(),
		Balance:       StartingBalance,
		CreatedAt:     time.Now(),
	}

	m.users[user.UID] = user
	if user.Email != "" {
		m.byEmail[strings.ToLower(user.Email)] = user.UID
	}
	m.byAcct[NormalizeAccountNumber(user.AccountNumber)] = user.UID

	cp := *user
	return &cp, nil
}

func (m *MemoryStore) SetBalance(ctx context.Context, uid string, balance Cents) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[uid]
	if !ok {
		return ErrUserNotFound
	}
	user.Balance = balance
	user.History = summarize(m.txns, uid)
	return nil
}

func (m *MemoryStore) AppendTransaction(ctx context.Context, txn *Transaction) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *txn
	if cp.ID == "" {
		cp.ID = idgen.Txn(time.Now())
	}
	m.txns = append([]*Transaction{&cp}, m.txns...)

	out := cp
	return &out, nil
}

func (m *MemoryStore) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, txn := range m.txns {
		if txn.ID == id {
			cp := *txn
			return &cp, nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (m *MemoryStore) MarkFraud(ctx context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, txn := range m.txns {
		if txn.ID == id {
			txn.FraudReported = true
			txn.FraudReason = reason
			return nil
		}
	}
	return ErrTransactionNotFound
}

func (m *MemoryStore) ListForUser(ctx context.Context, uid string) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Transaction
	for _, txn := range m.txns {
		if txn.From.UID == uid || txn.To.UID == uid {
			cp := *txn
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) ApplyTransfer(ctx context.Context, txn *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sender, ok := m.users[txn.From.UID]
	if !ok {
		return ErrSenderNotFound
	}
	receiver, ok := m.users[txn.To.UID]
	if !ok {
		return ErrReceiverNotFound
	}
	if sender.Balance < txn.Amount {
		return ErrInsufficientBalance
	}

	cp := *txn
	if cp.ID == "" {
		cp.ID = idgen.Txn(time.Now())
	}

	sender.Balance -= txn.Amount
	receiver.Balance += txn.Amount
	m.txns = append([]*Transaction{&cp}, m.txns...)

	sender.History = summarize(m.txns, sender.UID)
	receiver.History = summarize(m.txns, receiver.UID)

	txn.ID = cp.ID
	return nil
}

// userByUID must be called with at least a read lock held.
func (m *MemoryStore) userByUID(uid string) (*User, error) {
	user, ok := m.users[uid]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

// uniqueAccountNumber must be called with the write lock held.
func (m *MemoryStore) uniqueAccountNumber() string {
	for {
		n := GenerateAccountNumber()
		if _, taken := m.byAcct[NormalizeAccountNumber(n)]; !taken {
			return n
		}
	}
}
