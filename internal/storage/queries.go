package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// TransactionRow mirrors one row of the transactions table.
type TransactionRow struct {
	Seq          int64
	ID           string
	Title        string
	Notes        string
	Tags         string
	Category     string
	Currency     string
	TotalCents   int64
	SplitType    string
	GroupID      string
	Date         string
	CreatedAt    string
	SyncStatus   string
	SyncAttempts int64
	SyncedAt     sql.NullString
}

type InsertTransactionParams struct {
	ID         string
	Title      string
	Notes      string
	Tags       string
	Category   string
	Currency   string
	TotalCents int64
	SplitType  string
	GroupID    string
	Date       string
	CreatedAt  string
}

const insertTransaction = `
INSERT INTO transactions (id, title, notes, tags, category, currency, total_cents, split_type, group_id, date, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		arg.ID, arg.Title, arg.Notes, arg.Tags, arg.Category, arg.Currency,
		arg.TotalCents, arg.SplitType, arg.GroupID, arg.Date, arg.CreatedAt)
	return err
}

const insertParticipant = `INSERT INTO transaction_participants (transaction_id, position, user_id) VALUES (?, ?, ?)`

func (q *Queries) InsertParticipant(ctx context.Context, txID string, position int, userID string) error {
	_, err := q.db.ExecContext(ctx, insertParticipant, txID, position, userID)
	return err
}

const insertPayer = `INSERT INTO transaction_payers (transaction_id, position, user_id, amount_cents) VALUES (?, ?, ?, ?)`

func (q *Queries) InsertPayer(ctx context.Context, txID string, position int, userID string, cents int64) error {
	_, err := q.db.ExecContext(ctx, insertPayer, txID, position, userID, cents)
	return err
}

const insertShare = `INSERT INTO transaction_shares (transaction_id, position, user_id, value) VALUES (?, ?, ?, ?)`

func (q *Queries) InsertShare(ctx context.Context, txID string, position int, userID string, value float64) error {
	_, err := q.db.ExecContext(ctx, insertShare, txID, position, userID, value)
	return err
}

const insertTransfer = `INSERT INTO transaction_transfers (transaction_id, position, from_user, to_user, amount_cents) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) InsertTransfer(ctx context.Context, txID string, position int, from, to string, cents int64) error {
	_, err := q.db.ExecContext(ctx, insertTransfer, txID, position, from, to, cents)
	return err
}

const transactionColumns = `seq, id, title, notes, tags, category, currency, total_cents, split_type, group_id, date, created_at, sync_status, sync_attempts, synced_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (TransactionRow, error) {
	var r TransactionRow
	err := row.Scan(&r.Seq, &r.ID, &r.Title, &r.Notes, &r.Tags, &r.Category, &r.Currency,
		&r.TotalCents, &r.SplitType, &r.GroupID, &r.Date, &r.CreatedAt,
		&r.SyncStatus, &r.SyncAttempts, &r.SyncedAt)
	return r, err
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions ORDER BY seq DESC`

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		r, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getPendingSync = `
SELECT id, created_at, sync_attempts FROM transactions
WHERE sync_status IN ('pending', 'error')
ORDER BY seq ASC
LIMIT ?`

type PendingSyncRow struct {
	ID           string
	CreatedAt    string
	SyncAttempts int64
}

func (q *Queries) GetPendingSync(ctx context.Context, limit int64) ([]PendingSyncRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSync, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PendingSyncRow
	for rows.Next() {
		var r PendingSyncRow
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.SyncAttempts); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const markSynced = `UPDATE transactions SET sync_status = 'synced', synced_at = ?, sync_attempts = sync_attempts + 1 WHERE id = ?`

func (q *Queries) MarkSynced(ctx context.Context, id, at string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markSynced, at, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markSyncError = `UPDATE transactions SET sync_status = 'error', sync_attempts = sync_attempts + 1 WHERE id = ?`

func (q *Queries) MarkSyncError(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markSyncError, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Child tables are cleared explicitly so deletes do not depend on the
// foreign_keys pragma being enabled on the connection.
var deleteTransactionStatements = []string{
	`DELETE FROM transaction_transfers WHERE transaction_id = ?`,
	`DELETE FROM transaction_shares WHERE transaction_id = ?`,
	`DELETE FROM transaction_payers WHERE transaction_id = ?`,
	`DELETE FROM transaction_participants WHERE transaction_id = ?`,
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	for _, stmt := range deleteTransactionStatements {
		if _, err := q.db.ExecContext(ctx, stmt, id); err != nil {
			return 0, err
		}
	}
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAllTransactions = `DELETE FROM transactions`

func (q *Queries) DeleteAll(ctx context.Context) error {
	for _, stmt := range []string{
		`DELETE FROM transaction_transfers`,
		`DELETE FROM transaction_shares`,
		`DELETE FROM transaction_payers`,
		`DELETE FROM transaction_participants`,
		deleteAllTransactions,
	} {
		if _, err := q.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ParticipantRow, PayerRow, ShareRow and TransferRow are child rows keyed
// by transaction id and ordered by position.
type ParticipantRow struct {
	TransactionID string
	UserID        string
}

type PayerRow struct {
	TransactionID string
	UserID        string
	AmountCents   int64
}

type ShareRow struct {
	TransactionID string
	UserID        string
	Value         float64
}

type TransferRow struct {
	TransactionID string
	FromUser      string
	ToUser        string
	AmountCents   int64
}

// childFilter restricts a child query to one transaction, or returns every
// row when id is empty.
func childFilter(base, id string) (string, []interface{}) {
	if id == "" {
		return base + ` ORDER BY transaction_id, position`, nil
	}
	return base + ` WHERE transaction_id = ? ORDER BY position`, []interface{}{id}
}

func (q *Queries) ListParticipants(ctx context.Context, id string) ([]ParticipantRow, error) {
	query, args := childFilter(`SELECT transaction_id, user_id FROM transaction_participants`, id)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ParticipantRow
	for rows.Next() {
		var r ParticipantRow
		if err := rows.Scan(&r.TransactionID, &r.UserID); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) ListPayers(ctx context.Context, id string) ([]PayerRow, error) {
	query, args := childFilter(`SELECT transaction_id, user_id, amount_cents FROM transaction_payers`, id)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PayerRow
	for rows.Next() {
		var r PayerRow
		if err := rows.Scan(&r.TransactionID, &r.UserID, &r.AmountCents); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) ListShares(ctx context.Context, id string) ([]ShareRow, error) {
	query, args := childFilter(`SELECT transaction_id, user_id, value FROM transaction_shares`, id)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ShareRow
	for rows.Next() {
		var r ShareRow
		if err := rows.Scan(&r.TransactionID, &r.UserID, &r.Value); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) ListTransfers(ctx context.Context, id string) ([]TransferRow, error) {
	query, args := childFilter(`SELECT transaction_id, from_user, to_user, amount_cents FROM transaction_transfers`, id)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransferRow
	for rows.Next() {
		var r TransferRow
		if err := rows.Scan(&r.TransactionID, &r.FromUser, &r.ToUser, &r.AmountCents); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
