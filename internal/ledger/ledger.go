// Package ledger owns the ordered, newest-first collection of transactions.
//
// Readers never lock: they load an immutable snapshot. Writers serialize on
// a mutex and publish a fresh slice, so a reader sees either the collection
// before a mutation or after it, never a half-applied one.
package ledger

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"fairshare/internal/core"
	"fairshare/internal/log"
)

// ErrUnbalanced is returned in strict mode when payments and owed amounts
// do not net to zero.
var ErrUnbalanced = errors.New("transaction does not balance")

type Ledger struct {
	mu    sync.Mutex
	state atomic.Pointer[state]

	newID  func() string
	now    func() time.Time
	strict bool
	logger *log.Logger
}

// state pairs a collection with its version so both are published together.
type state struct {
	txs     []core.Transaction
	version uint64
}

type Option func(*Ledger)

// WithStrictBalance rejects transactions whose payers do not cover the
// owed total exactly.
func WithStrictBalance(strict bool) Option {
	return func(l *Ledger) { l.strict = strict }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator overrides transaction id generation.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		newID:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.WithComponent(log.ComponentLedger)
	l.state.Store(&state{txs: []core.Transaction{}})
	return l
}

// Build runs split normalization, payment aggregation and settlement for
// in and assembles the resulting transaction without recording it.
func (l *Ledger) Build(in core.ExpenseInput) (core.Transaction, core.Settlement) {
	participants := core.DedupeUsers(in.Participants)
	owed := core.NormalizeOwed(in.SplitType, participants, in.Shares, in.TotalAmount)
	paid := core.AggregatePaid(in.Payers)
	settlement := core.Settle(paid, owed)

	createdAt := l.now()
	date := in.Date
	if date.IsZero() {
		date = createdAt
	}

	tx := core.Transaction{
		ID:           l.newID(),
		Title:        in.Title,
		Notes:        in.Notes,
		Tags:         slices.Clone(in.Tags),
		Category:     in.Category.OrDefault(),
		Currency:     in.Currency,
		Date:         date,
		GroupID:      in.GroupID,
		TotalAmount:  in.TotalAmount,
		SplitType:    in.SplitType,
		Participants: participants,
		Payers:       slices.Clone(in.Payers),
		Shares:       slices.Clone(in.Shares),
		Transfers:    settlement.Transfers,
		CreatedAt:    createdAt,
	}
	if tx.Transfers == nil {
		tx.Transfers = []core.Transfer{}
	}
	return tx, settlement
}

// Add builds a transaction from in and prepends it. It only fails in
// strict mode, when the transaction does not balance.
func (l *Ledger) Add(in core.ExpenseInput) (core.Transaction, error) {
	tx, settlement := l.Build(in)

	if !settlement.Balanced() {
		if l.strict {
			return core.Transaction{}, fmt.Errorf("%w: %s unmatched", ErrUnbalanced, settlement.Unmatched)
		}
		l.logger.Warn("Transaction does not balance",
			log.FieldTransactionID, tx.ID,
			log.FieldTitle, tx.Title,
			log.FieldUnmatched, settlement.Unmatched.Cents)
	}

	l.Insert(tx)

	l.logger.Debug("Transaction added",
		log.FieldTransactionID, tx.ID,
		log.FieldSplitType, string(tx.SplitType),
		log.FieldAmountCents, tx.TotalAmount.Cents,
		log.FieldTransfers, len(tx.Transfers))
	return tx, nil
}

// Insert prepends an already built transaction.
func (l *Ledger) Insert(tx core.Transaction) {
	l.mutate(func(cur []core.Transaction) []core.Transaction {
		next := make([]core.Transaction, 0, len(cur)+1)
		next = append(next, tx)
		return append(next, cur...)
	})
}

// Remove drops the transaction with the given id. Unknown ids are a no-op;
// the result reports whether anything was removed.
func (l *Ledger) Remove(id string) bool {
	removed := false
	l.mutate(func(cur []core.Transaction) []core.Transaction {
		next := make([]core.Transaction, 0, len(cur))
		for _, tx := range cur {
			if tx.ID == id {
				removed = true
				continue
			}
			next = append(next, tx)
		}
		if !removed {
			return nil
		}
		return next
	})
	return removed
}

// Clear empties the ledger.
func (l *Ledger) Clear() {
	l.mutate(func([]core.Transaction) []core.Transaction {
		return []core.Transaction{}
	})
}

// Load replaces the collection with txs, which must already be newest
// first. Used to hydrate from persistence.
func (l *Ledger) Load(txs []core.Transaction) {
	l.mutate(func([]core.Transaction) []core.Transaction {
		next := slices.Clone(txs)
		if next == nil {
			next = []core.Transaction{}
		}
		return next
	})
	l.logger.Info("Ledger loaded", log.FieldLedgerSize, len(txs))
}

// mutate applies fn under the writer lock and publishes its result. A nil
// result leaves the ledger and its version untouched.
func (l *Ledger) mutate(fn func([]core.Transaction) []core.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.state.Load()
	next := fn(cur.txs)
	if next == nil {
		return
	}
	l.state.Store(&state{txs: next, version: cur.version + 1})
}

// Snapshot returns the current transactions, newest first. The slice is a
// copy; the transactions themselves must be treated as read-only.
func (l *Ledger) Snapshot() []core.Transaction {
	return slices.Clone(l.state.Load().txs)
}

// View calls fn with the live snapshot and its version without copying.
// fn must not modify the slice.
func (l *Ledger) View(fn func(txs []core.Transaction, version uint64)) {
	st := l.state.Load()
	fn(st.txs, st.version)
}

func (l *Ledger) Get(id string) (core.Transaction, bool) {
	for _, tx := range l.state.Load().txs {
		if tx.ID == id {
			return tx, true
		}
	}
	return core.Transaction{}, false
}

func (l *Ledger) Len() int {
	return len(l.state.Load().txs)
}

// Version increases on every mutation. It keys memoized aggregates.
func (l *Ledger) Version() uint64 {
	return l.state.Load().version
}
