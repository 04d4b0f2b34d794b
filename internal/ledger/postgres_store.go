package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kmadera/payfriend/internal/idgen"
)

// PostgresStore implements Store with PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed ledger store. Schema is
// managed by goose migrations (cmd/migrate).
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `uid, email, name, avatar_url, account_number, balance_cents,
	history_total, history_avg_cents, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.UID, &u.Email, &u.Name, &u.AvatarURL, &u.AccountNumber,
		&u.Balance, &u.History.TotalTransactions, &u.History.AverageAmount, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (p *PostgresStore) FindUserByUID(ctx context.Context, uid string) (*User, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE uid = $1`, uid)
	return p.oneUser(row)
}

func (p *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return p.oneUser(row)
}

func (p *PostgresStore) FindUserByAccountNumber(ctx context.Context, accountNumber string) (*User, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE upper(account_number) = $1`,
		NormalizeAccountNumber(accountNumber))
	return p.oneUser(row)
}

func (p *PostgresStore) oneUser(row *sql.Row) (*User, error) {
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (p *PostgresStore) UpsertUser(ctx context.Context, prof Profile) (*User, error) {
	if existing, err := p.FindUserByUID(ctx, prof.UID); err == nil {
		if existing.AccountNumber != "" {
			return existing, nil
		}
		// Backfill a missing account number (legacy rows).
		return p.backfillAccountNumber(ctx, existing)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	// Insert with a fresh account number, retrying on the unique index.
	for attempt := 0; attempt < 5; attempt++ {
		acct := GenerateAccountNumber()
		row := p.db.QueryRowContext(ctx, `
			INSERT INTO users (uid, email, name, avatar_url, account_number, balance_cents)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (uid) DO NOTHING
			RETURNING `+userColumns,
			prof.UID, prof.Email, prof.Name, prof.AvatarURL, acct, int64(StartingBalance))

		u, err := scanUser(row)
		if err == nil {
			return u, nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			// Lost a concurrent upsert race for the same uid.
			return p.FindUserByUID(ctx, prof.UID)
		}
		if isUniqueViolation(err) {
			continue // account number collision, regenerate
		}
		return nil, err
	}
	return nil, ErrDuplicateAccount
}

func (p *PostgresStore) backfillAccountNumber(ctx context.Context, u *User) (*User, error) {
	for attempt := 0; attempt < 5; attempt++ {
		acct := GenerateAccountNumber()
		_, err := p.db.ExecContext(ctx,
			`UPDATE users SET account_number = $1 WHERE uid = $2`, acct, u.UID)
		if err == nil {
			u.AccountNumber = acct
			return u, nil
		}
		if isUniqueViolation(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrDuplicateAccount
}

func (p *PostgresStore) SetBalance(ctx context.Context, uid string, balance Cents) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET balance_cents = $1 WHERE uid = $2`, int64(balance), uid)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}

	if err := refreshHistory(ctx, tx, uid); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PostgresStore) AppendTransaction(ctx context.Context, txn *Transaction) (*Transaction, error) {
	cp := *txn
	if cp.ID == "" {
		cp.ID = idgen.Txn(time.Now())
	}
	if cp.Timestamp.IsZero() {
		cp.Timestamp = time.Now()
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO transactions (id, from_uid, from_name, from_email,
			to_uid, to_name, to_email, amount_cents, description, status,
			risk_score, risk_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		cp.ID, cp.From.UID, cp.From.Name, cp.From.Email,
		cp.To.UID, cp.To.Name, cp.To.Email, int64(cp.Amount), cp.Description,
		string(cp.Status), cp.RiskScore, cp.RiskReason, cp.Timestamp)
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

const txnColumns = `id, from_uid, from_name, from_email, to_uid, to_name, to_email,
	amount_cents, description, status, fraud_reported, fraud_reason,
	risk_score, risk_reason, created_at`

func scanTxn(row interface{ Scan(...any) error }) (*Transaction, error) {
	var t Transaction
	var status string
	err := row.Scan(&t.ID, &t.From.UID, &t.From.Name, &t.From.Email,
		&t.To.UID, &t.To.Name, &t.To.Email, &t.Amount, &t.Description,
		&status, &t.FraudReported, &t.FraudReason, &t.RiskScore, &t.RiskReason,
		&t.Timestamp)
	if err != nil {
		return nil, err
	}
	t.Status = Status(status)
	return &t, nil
}

func (p *PostgresStore) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE id = $1`, id)
	t, err := scanTxn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (p *PostgresStore) MarkFraud(ctx context.Context, id, reason string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE transactions SET fraud_reported = TRUE, fraud_reason = $1
		WHERE id = $2`, reason, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (p *PostgresStore) ListForUser(ctx context.Context, uid string) ([]*Transaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+txnColumns+` FROM transactions
		WHERE from_uid = $1 OR to_uid = $1
		ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ApplyTransfer runs the debit, credit, append, and history refresh in a
// single SQL transaction. Rows are locked in uid order so two transfers
// touching the same pair cannot deadlock, and the CHECK constraint on
// balance_cents backstops the in-transaction balance test.
func (p *PostgresStore) ApplyTransfer(ctx context.Context, txn *Transaction) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	first, second := txn.From.UID, txn.To.UID
	if second < first {
		first, second = second, first
	}
	for _, uid := range []string{first, second} {
		if _, err := tx.ExecContext(ctx,
			`SELECT 1 FROM users WHERE uid = $1 FOR UPDATE`, uid); err != nil {
			return err
		}
	}

	var balance int64
	err = tx.QueryRowContext(ctx,
		`SELECT balance_cents FROM users WHERE uid = $1`, txn.From.UID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSenderNotFound
	}
	if err != nil {
		return err
	}
	if Cents(balance) < txn.Amount {
		return ErrInsufficientBalance
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET balance_cents = balance_cents - $1 WHERE uid = $2`,
		int64(txn.Amount), txn.From.UID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET balance_cents = balance_cents + $1 WHERE uid = $2`,
		int64(txn.Amount), txn.To.UID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrReceiverNotFound
	}

	if txn.ID == "" {
		txn.ID = idgen.Txn(time.Now())
	}
	if txn.Timestamp.IsZero() {
		txn.Timestamp = time.Now()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, from_uid, from_name, from_email,
			to_uid, to_name, to_email, amount_cents, description, status,
			risk_score, risk_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		txn.ID, txn.From.UID, txn.From.Name, txn.From.Email,
		txn.To.UID, txn.To.Name, txn.To.Email, int64(txn.Amount),
		txn.Description, string(txn.Status), txn.RiskScore, txn.RiskReason,
		txn.Timestamp); err != nil {
		return err
	}

	for _, uid := range []string{txn.From.UID, txn.To.UID} {
		if err := refreshHistory(ctx, tx, uid); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// refreshHistory recomputes the persisted sent-history summary from the
// transaction log. Full scan per the contract, never incremental.
func refreshHistory(ctx context.Context, tx *sql.Tx, uid string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users SET
			history_total = s.cnt,
			history_avg_cents = s.avg
		FROM (
			SELECT COUNT(*) AS cnt,
			       COALESCE(CAST(AVG(amount_cents) AS BIGINT), 0) AS avg
			FROM transactions WHERE from_uid = $1
		) s
		WHERE uid = $1`, uid)
	if err != nil {
		return fmt.Errorf("refresh history for %s: %w", uid, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
