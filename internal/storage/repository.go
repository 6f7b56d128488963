package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fairshare/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a transaction id is not in the store.
var ErrNotFound = errors.New("transaction not found")

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(context.Background(), dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveTransaction stores a transaction with its participants, payers,
// shares and transfers in one database transaction. New rows start
// pending export.
func (r *SQLiteRepository) SaveTransaction(ctx context.Context, t core.Transaction) error {
	tags, err := json.Marshal(nonNilTags(t.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	err = r.inTx(ctx, func(q *Queries) error {
		if err := q.InsertTransaction(ctx, InsertTransactionParams{
			ID:         t.ID,
			Title:      t.Title,
			Notes:      t.Notes,
			Tags:       string(tags),
			Category:   string(t.Category.OrDefault()),
			Currency:   t.Currency,
			TotalCents: t.TotalAmount.Cents,
			SplitType:  string(t.SplitType),
			GroupID:    t.GroupID,
			Date:       formatTime(t.Date),
			CreatedAt:  formatTime(t.CreatedAt),
		}); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		for i, u := range t.Participants {
			if err := q.InsertParticipant(ctx, t.ID, i, string(u)); err != nil {
				return fmt.Errorf("insert participant: %w", err)
			}
		}
		for i, p := range t.Payers {
			if err := q.InsertPayer(ctx, t.ID, i, string(p.UserID), p.Amount.Cents); err != nil {
				return fmt.Errorf("insert payer: %w", err)
			}
		}
		for i, s := range t.Shares {
			if err := q.InsertShare(ctx, t.ID, i, string(s.UserID), s.Value); err != nil {
				return fmt.Errorf("insert share: %w", err)
			}
		}
		for i, tr := range t.Transfers {
			if err := q.InsertTransfer(ctx, t.ID, i, string(tr.From), string(tr.To), tr.Amount.Cents); err != nil {
				return fmt.Errorf("insert transfer: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"transaction_id", t.ID,
		"title", t.Title,
		"amount_cents", t.TotalAmount.Cents,
		"transfers", len(t.Transfers))
	return nil
}

// DeleteTransaction removes a transaction and its child rows. It reports
// whether a row existed.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) (bool, error) {
	var affected int64
	err := r.inTx(ctx, func(q *Queries) error {
		n, err := q.DeleteTransaction(ctx, id)
		affected = n
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	if affected > 0 {
		slog.InfoContext(ctx, "Transaction deleted from SQLite", "transaction_id", id)
	}
	return affected > 0, nil
}

// DeleteAll removes every stored transaction.
func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if err := r.inTx(ctx, func(q *Queries) error { return q.DeleteAll(ctx) }); err != nil {
		return fmt.Errorf("delete all transactions: %w", err)
	}
	slog.InfoContext(ctx, "All transactions deleted from SQLite")
	return nil
}

// GetTransaction loads one transaction or returns ErrNotFound.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	txs, err := r.assemble(ctx, []TransactionRow{row}, id)
	if err != nil {
		return core.Transaction{}, err
	}
	return txs[0], nil
}

// ListTransactions returns every stored transaction, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return r.assemble(ctx, rows, "")
}

// PendingSync identifies a transaction whose transfers still have to be
// exported.
type PendingSync struct {
	ID        string
	CreatedAt time.Time
	Attempts  int64
}

// GetPendingSync returns up to limit transactions awaiting export, oldest
// first. Rows that previously failed are retried.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.queries.GetPendingSync(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	out := make([]PendingSync, 0, len(rows))
	for _, row := range rows {
		created, err := parseTime(row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at of %s: %w", row.ID, err)
		}
		out = append(out, PendingSync{ID: row.ID, CreatedAt: created, Attempts: row.SyncAttempts})
	}
	return out, nil
}

// MarkSynced marks a transaction as exported.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	n, err := r.queries.MarkSynced(ctx, id, formatTime(r.now()))
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "transaction_id", id)
	return nil
}

// MarkSyncError records a failed export attempt.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	n, err := r.queries.MarkSyncError(ctx, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "transaction_id", id)
	return nil
}

// SyncStatus returns the export status of a transaction.
func (r *SQLiteRepository) SyncStatus(ctx context.Context, id string) (string, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get sync status: %w", err)
	}
	return row.SyncStatus, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// assemble turns transaction rows into domain values, attaching child rows.
// id narrows the child queries to a single transaction when set.
func (r *SQLiteRepository) assemble(ctx context.Context, rows []TransactionRow, id string) ([]core.Transaction, error) {
	txs := make([]core.Transaction, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		t, err := rowToTransaction(row)
		if err != nil {
			return nil, err
		}
		txs[i] = t
		index[row.ID] = i
	}
	if len(rows) == 0 {
		return txs, nil
	}

	participants, err := r.queries.ListParticipants(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	for _, p := range participants {
		if i, ok := index[p.TransactionID]; ok {
			txs[i].Participants = append(txs[i].Participants, core.UserID(p.UserID))
		}
	}

	payers, err := r.queries.ListPayers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list payers: %w", err)
	}
	for _, p := range payers {
		if i, ok := index[p.TransactionID]; ok {
			txs[i].Payers = append(txs[i].Payers, core.Payer{UserID: core.UserID(p.UserID), Amount: core.Cents(p.AmountCents)})
		}
	}

	shares, err := r.queries.ListShares(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	for _, s := range shares {
		if i, ok := index[s.TransactionID]; ok {
			txs[i].Shares = append(txs[i].Shares, core.ShareInput{UserID: core.UserID(s.UserID), Value: s.Value})
		}
	}

	transfers, err := r.queries.ListTransfers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	for _, tr := range transfers {
		if i, ok := index[tr.TransactionID]; ok {
			txs[i].Transfers = append(txs[i].Transfers, core.Transfer{
				From:   core.UserID(tr.FromUser),
				To:     core.UserID(tr.ToUser),
				Amount: core.Cents(tr.AmountCents),
			})
		}
	}
	return txs, nil
}

func rowToTransaction(row TransactionRow) (core.Transaction, error) {
	var tags []string
	if err := json.Unmarshal([]byte(row.Tags), &tags); err != nil {
		return core.Transaction{}, fmt.Errorf("decode tags of %s: %w", row.ID, err)
	}
	if len(tags) == 0 {
		tags = nil
	}
	date, err := parseTime(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date of %s: %w", row.ID, err)
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at of %s: %w", row.ID, err)
	}
	return core.Transaction{
		ID:          row.ID,
		Title:       row.Title,
		Notes:       row.Notes,
		Tags:        tags,
		Category:    core.Category(row.Category),
		Currency:    row.Currency,
		Date:        date,
		GroupID:     row.GroupID,
		TotalAmount: core.Cents(row.TotalCents),
		SplitType:   core.SplitType(row.SplitType),
		Transfers:   []core.Transfer{},
		CreatedAt:   created,
	}, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
