package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"keysbank-api/internal/models"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213

	maxTxAttempts = 3
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type MySQLStore struct {
	db     *sql.DB
	q      querier
	inTx   bool
	logger zerolog.Logger
}

func NewMySQLStore(db *sql.DB, logger zerolog.Logger) *MySQLStore {
	return &MySQLStore{db: db, q: db, logger: logger}
}

func (s *MySQLStore) Transactions() TransactionStore { return &mysqlTransactions{s.q} }
func (s *MySQLStore) Accounts() AccountStore         { return &mysqlAccounts{q: s.q, inTx: s.inTx} }
func (s *MySQLStore) Customers() CustomerStore       { return &mysqlCustomers{s.q} }

// WithinTx retries the whole unit of work when MySQL reports a deadlock or a
// lock wait timeout; fn must therefore be safe to run again from scratch.
func (s *MySQLStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if !isRetryable(err) {
			return err
		}
		s.logger.Warn().Err(err).Int("attempt", attempt).Msg("Retrying unit of work after lock conflict")
	}
	return err
}

func (s *MySQLStore) runTx(ctx context.Context, fn func(tx Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(&MySQLStore{db: s.db, q: tx, inTx: true, logger: s.logger}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit transaction", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlErrDeadlock || me.Number == mysqlErrLockWaitTimeout
	}
	return false
}

func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry {
		return me.Message, true
	}
	return "", false
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", models.ErrStoreFailure, op, err)
}

const entryColumns = "id, account_id, type, category, amount, description, correlation_id, created_at"

type mysqlTransactions struct{ q querier }

func (r *mysqlTransactions) Insert(ctx context.Context, e *models.LedgerEntry) error {
	var correlationID any
	if e.CorrelationID != nil {
		correlationID = e.CorrelationID.String()
	}

	_, err := r.q.ExecContext(ctx,
		"INSERT INTO transactions ("+entryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID.String(), e.AccountID.String(), string(e.Kind), e.Category,
		e.Amount.StringFixed(models.AmountScale), e.Description, correlationID, e.CreatedAt.UTC(),
	)
	if err != nil {
		return storeErr("insert ledger entry", err)
	}
	return nil
}

func (r *mysqlTransactions) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id.String()); err != nil {
		return storeErr("delete ledger entry", err)
	}
	return nil
}

func (r *mysqlTransactions) FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.LedgerEntry, error) {
	return r.query(ctx, "account_id = ?", accountID.String())
}

func (r *mysqlTransactions) FindByAccountAndRange(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*models.LedgerEntry, error) {
	return r.query(ctx, "account_id = ? AND created_at >= ? AND created_at < ?",
		accountID.String(), from.UTC(), to.UTC())
}

func (r *mysqlTransactions) FindByAccountAndKind(ctx context.Context, accountID uuid.UUID, kind models.EntryKind) ([]*models.LedgerEntry, error) {
	return r.query(ctx, "account_id = ? AND type = ?", accountID.String(), string(kind))
}

func (r *mysqlTransactions) FindByAccountKindAndRange(ctx context.Context, accountID uuid.UUID, kind models.EntryKind, from, to time.Time) ([]*models.LedgerEntry, error) {
	return r.query(ctx, "account_id = ? AND type = ? AND created_at >= ? AND created_at < ?",
		accountID.String(), string(kind), from.UTC(), to.UTC())
}

func (r *mysqlTransactions) FindBalanceEntriesInRange(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*models.LedgerEntry, error) {
	return r.FindByAccountKindAndRange(ctx, accountID, models.EntryKindBalance, from, to)
}

func (r *mysqlTransactions) query(ctx context.Context, where string, args ...any) ([]*models.LedgerEntry, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM transactions WHERE "+where+" ORDER BY created_at DESC, seq DESC",
		args...,
	)
	if err != nil {
		return nil, storeErr("query ledger entries", err)
	}
	defer rows.Close()

	entries := make([]*models.LedgerEntry, 0)
	for rows.Next() {
		var (
			e             models.LedgerEntry
			id, accountID string
			kind          string
			description   sql.NullString
			correlationID sql.NullString
			amount        decimal.Decimal
		)
		if err := rows.Scan(&id, &accountID, &kind, &e.Category, &amount, &description, &correlationID, &e.CreatedAt); err != nil {
			return nil, storeErr("scan ledger entry", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, storeErr("parse entry id", err)
		}
		if e.AccountID, err = uuid.Parse(accountID); err != nil {
			return nil, storeErr("parse account id", err)
		}
		if correlationID.Valid {
			cid, err := uuid.Parse(correlationID.String)
			if err != nil {
				return nil, storeErr("parse correlation id", err)
			}
			e.CorrelationID = &cid
		}
		e.Kind = models.EntryKind(kind)
		e.Amount = amount
		e.Description = description.String
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate ledger entries", err)
	}
	return entries, nil
}

type mysqlAccounts struct {
	q    querier
	inTx bool
}

func (r *mysqlAccounts) Create(ctx context.Context, a *models.Account) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO accounts (id, customer_id, agency, account_number, status, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		a.ID.String(), a.CustomerID.String(), a.Agency, a.AccountNumber, string(a.Status), a.CreatedAt.UTC(),
	)
	if msg, dup := duplicateKey(err); dup {
		if strings.Contains(msg, "uq_accounts_customer") {
			return models.ErrAccountAlreadyExists
		}
		return models.ErrAccountNumberTaken
	}
	if err != nil {
		return storeErr("insert account", err)
	}
	return nil
}

func (r *mysqlAccounts) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM accounts WHERE id = ? LIMIT 1", id.String())
}

func (r *mysqlAccounts) Lock(ctx context.Context, id uuid.UUID) (bool, error) {
	if !r.inTx {
		return r.Exists(ctx, id)
	}
	return r.exists(ctx, "SELECT 1 FROM accounts WHERE id = ? FOR UPDATE", id.String())
}

func (r *mysqlAccounts) ExistsByCustomer(ctx context.Context, customerID uuid.UUID) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM accounts WHERE customer_id = ? LIMIT 1", customerID.String())
}

func (r *mysqlAccounts) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storeErr("check account", err)
	}
	return true, nil
}

func (r *mysqlAccounts) FindByAgencyAndNumber(ctx context.Context, agency, number string) (*models.Account, error) {
	var (
		a              models.Account
		id, customerID string
		status         string
	)
	err := r.q.QueryRowContext(ctx,
		"SELECT id, customer_id, agency, account_number, status, created_at FROM accounts WHERE agency = ? AND account_number = ?",
		agency, number,
	).Scan(&id, &customerID, &a.Agency, &a.AccountNumber, &status, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, storeErr("find account", err)
	}
	if a.ID, err = uuid.Parse(id); err != nil {
		return nil, storeErr("parse account id", err)
	}
	if a.CustomerID, err = uuid.Parse(customerID); err != nil {
		return nil, storeErr("parse customer id", err)
	}
	a.Status = models.AccountStatus(status)
	return &a, nil
}

type mysqlCustomers struct{ q querier }

func (r *mysqlCustomers) Create(ctx context.Context, c *models.Customer) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO customers (id, name, email, created_at) VALUES (?, ?, ?, ?)",
		c.ID.String(), c.Name, c.Email, c.CreatedAt.UTC(),
	)
	if _, dup := duplicateKey(err); dup {
		return models.ErrEmailAlreadyExists
	}
	if err != nil {
		return storeErr("insert customer", err)
	}
	return nil
}

func (r *mysqlCustomers) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var (
		c   models.Customer
		cid string
	)
	err := r.q.QueryRowContext(ctx,
		"SELECT id, name, email, created_at FROM customers WHERE id = ?", id.String(),
	).Scan(&cid, &c.Name, &c.Email, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrCustomerNotFound
	}
	if err != nil {
		return nil, storeErr("find customer", err)
	}
	c.ID = id
	return &c, nil
}

func (r *mysqlCustomers) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx, "SELECT 1 FROM customers WHERE id = ? LIMIT 1", id.String()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storeErr("check customer", err)
	}
	return true, nil
}

var _ Store = (*MySQLStore)(nil)
