package postgres

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/fintrack/ledger-core/internal/interfaces"
	"github.com/fintrack/ledger-core/internal/models"
)

// Store is the postgres implementation of interfaces.LedgerStore.
//
// Expected schema:
//
//	CREATE TABLE balance_records (
//	    user_id       TEXT PRIMARY KEY,
//	    total_balance NUMERIC(14,2) NOT NULL,
//	    income        NUMERIC(14,2) NOT NULL,
//	    expenses      NUMERIC(14,2) NOT NULL,
//	    savings       NUMERIC(14,2) NOT NULL,
//	    version       BIGINT NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE transactions (
//	    id                TEXT PRIMARY KEY,
//	    user_id           TEXT NOT NULL,
//	    type              TEXT NOT NULL,
//	    amount            NUMERIC(14,2) NOT NULL,
//	    description       TEXT NOT NULL DEFAULT '',
//	    from_account      TEXT NOT NULL DEFAULT '',
//	    to_account        TEXT NOT NULL DEFAULT '',
//	    status            TEXT NOT NULL,
//	    transfer_group_id TEXT NOT NULL DEFAULT '',
//	    idempotency_key   TEXT,
//	    created_at        TIMESTAMPTZ NOT NULL
//	);
//	CREATE UNIQUE INDEX transactions_idempotency_key
//	    ON transactions (idempotency_key) WHERE idempotency_key <> '';
//	CREATE INDEX transactions_user_created
//	    ON transactions (user_id, created_at DESC);
type Store struct {
	db *sql.DB
}

// NewStore wraps an open postgres handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to postgres using a lib/pq connection string and verifies
// the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, models.NewStorageError(err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, models.NewStorageError(err)
	}
	return NewStore(db), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetBalance(ctx context.Context, userID string) (models.BalanceRecord, error) {
	const query = `SELECT user_id, total_balance, income, expenses, savings, version, updated_at
	FROM balance_records WHERE user_id = $1`

	var record models.BalanceRecord
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&record.UserID,
		&record.TotalBalance,
		&record.Income,
		&record.Expenses,
		&record.Savings,
		&record.Version,
		&record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return models.BalanceRecord{}, models.NewNotFoundError(userID)
	}
	if err != nil {
		return models.BalanceRecord{}, models.NewStorageError(err)
	}
	return record, nil
}

const txColumns = `id, user_id, type, amount, description, from_account, to_account, status, transfer_group_id, COALESCE(idempotency_key, ''), created_at`

func (s *Store) ListTransactions(ctx context.Context, userID string, page models.Pagination) ([]models.Transaction, error) {
	const query = `SELECT ` + txColumns + ` FROM transactions
	WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`

	page = page.Normalize()
	rows, err := s.db.QueryContext(ctx, query, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, models.NewStorageError(err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (s *Store) GetTransactionByKey(ctx context.Context, idempotencyKey string) (models.Transaction, bool, error) {
	const query = `SELECT ` + txColumns + ` FROM transactions WHERE idempotency_key = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, idempotencyKey))
	if err == sql.ErrNoRows {
		return models.Transaction{}, false, nil
	}
	if err != nil {
		return models.Transaction{}, false, models.NewStorageError(err)
	}
	return tx, true, nil
}

func (s *Store) GetTransferPair(ctx context.Context, transferGroupID string) ([]models.Transaction, error) {
	const query = `SELECT ` + txColumns + ` FROM transactions
	WHERE transfer_group_id = $1 ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, transferGroupID)
	if err != nil {
		return nil, models.NewStorageError(err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ApplyAtomic runs the whole batch inside one database transaction. Balance
// writes are guarded by the version predicate; zero affected rows means a
// concurrent writer won and the engine should re-read and retry.
func (s *Store) ApplyAtomic(ctx context.Context, updates []interfaces.BalanceUpdate, txs []models.Transaction) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.NewStorageError(err)
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	for _, update := range updates {
		if err = s.applyBalance(ctx, dbTx, update); err != nil {
			return err
		}
	}

	for _, tx := range txs {
		if err = s.insertTransaction(ctx, dbTx, tx); err != nil {
			return err
		}
	}

	if err = dbTx.Commit(); err != nil {
		return models.NewStorageError(err)
	}
	return nil
}

func (s *Store) applyBalance(ctx context.Context, dbTx *sql.Tx, update interfaces.BalanceUpdate) error {
	record := update.Record

	if update.ExpectedVersion == 0 {
		const query = `INSERT INTO balance_records (user_id, total_balance, income, expenses, savings, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, now())
		ON CONFLICT (user_id) DO NOTHING`

		result, err := dbTx.ExecContext(ctx, query,
			record.UserID, record.TotalBalance, record.Income, record.Expenses, record.Savings)
		if err != nil {
			return models.NewStorageError(err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return models.ErrVersionConflict
		}
		return nil
	}

	const query = `UPDATE balance_records
	SET total_balance = $1, income = $2, expenses = $3, savings = $4, version = version + 1, updated_at = now()
	WHERE user_id = $5 AND version = $6`

	result, err := dbTx.ExecContext(ctx, query,
		record.TotalBalance, record.Income, record.Expenses, record.Savings,
		record.UserID, update.ExpectedVersion)
	if err != nil {
		return models.NewStorageError(err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return models.ErrVersionConflict
	}
	return nil
}

func (s *Store) insertTransaction(ctx context.Context, dbTx *sql.Tx, tx models.Transaction) error {
	const query = `INSERT INTO transactions (id, user_id, type, amount, description, from_account, to_account, status, transfer_group_id, idempotency_key, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11)`

	_, err := dbTx.ExecContext(ctx, query,
		tx.ID, tx.UserID, string(tx.Type), tx.Amount, tx.Description,
		tx.FromAccount, tx.ToAccount, string(tx.Status), tx.TransferGroupID,
		tx.IdempotencyKey, tx.CreatedAt)
	if err != nil {
		return models.NewStorageError(err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var tx models.Transaction
	var txType, status string
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&txType,
		&tx.Amount,
		&tx.Description,
		&tx.FromAccount,
		&tx.ToAccount,
		&status,
		&tx.TransferGroupID,
		&tx.IdempotencyKey,
		&tx.CreatedAt,
	)
	if err != nil {
		return models.Transaction{}, err
	}
	tx.Type = models.TransactionType(txType)
	tx.Status = models.TransactionStatus(status)
	return tx, nil
}

func scanTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	var txs []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, models.NewStorageError(err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewStorageError(err)
	}
	return txs, nil
}

// Compile-time check: ensure Store implements the LedgerStore interface.
var _ interfaces.LedgerStore = (*Store)(nil)
