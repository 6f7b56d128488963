package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fairshare/internal/cache"
	"fairshare/internal/core"
	"fairshare/internal/ledger"
	"fairshare/internal/log"
)

// ErrInvalidInput wraps validation failures of an ExpenseInput.
var ErrInvalidInput = errors.New("invalid input")

// Store persists the ledger. A nil Store keeps the ledger in memory only.
type Store interface {
	SaveTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) (bool, error)
	DeleteAll(ctx context.Context) error
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	Ping(ctx context.Context) error
	Close() error
}

// Publisher announces ledger changes. A nil Publisher disables events.
type Publisher interface {
	PublishTransactionCreated(ctx context.Context, id string) error
	PublishTransactionDeleted(ctx context.Context, id string) error
	Close() error
}

// CacheConfig sizes the balance view caches.
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// LedgerService orchestrates ledger operations across the in-memory
// ledger, SQLite and AMQP, and memoizes balance views per ledger version.
type LedgerService struct {
	ledger    *ledger.Ledger
	store     Store
	publisher Publisher
	logger    *log.Logger

	owedToMe     *cache.LRUCache[[]core.CounterpartAmount]
	owing        *cache.LRUCache[[]core.CounterpartAmount]
	totals       *cache.LRUCache[core.Totals]
	counterparts *cache.LRUCache[[]core.UserID]
}

func NewLedgerService(l *ledger.Ledger, store Store, publisher Publisher, cc CacheConfig, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Nop()
	}
	if cc.TTL <= 0 {
		cc.TTL = 5 * time.Minute
	}
	return &LedgerService{
		ledger:       l,
		store:        store,
		publisher:    publisher,
		logger:       logger.WithComponent(log.ComponentService),
		owedToMe:     cache.NewLRUCache[[]core.CounterpartAmount](cc.Size, cc.TTL),
		owing:        cache.NewLRUCache[[]core.CounterpartAmount](cc.Size, cc.TTL),
		totals:       cache.NewLRUCache[core.Totals](cc.Size, cc.TTL),
		counterparts: cache.NewLRUCache[[]core.UserID](cc.Size, cc.TTL),
	}
}

// Caches lists the view caches for periodic cleanup.
func (s *LedgerService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.owedToMe, s.owing, s.totals, s.counterparts}
}

// Hydrate loads the persisted transactions into the ledger.
func (s *LedgerService) Hydrate(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("hydrate ledger: %w", err)
	}
	s.ledger.Load(txs)
	s.logger.InfoContext(ctx, "Ledger hydrated from storage",
		log.FieldOperation, log.OpHydrate,
		log.FieldLedgerSize, len(txs))
	return nil
}

// Create validates the input, records the transaction, persists it and
// publishes a created event. If persisting fails the ledger is rolled back.
// Publish failures are logged only; the worker's pending scan exports the
// transaction anyway.
func (s *LedgerService) Create(ctx context.Context, in core.ExpenseInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	tx, err := s.ledger.Add(in)
	if err != nil {
		return core.Transaction{}, err
	}

	if s.store != nil {
		if err := s.store.SaveTransaction(ctx, tx); err != nil {
			s.ledger.Remove(tx.ID)
			return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
		}
	}

	s.publish(ctx, tx.ID, true)

	s.logger.InfoContext(ctx, "Transaction created",
		log.FieldOperation, log.OpCreate,
		log.FieldTransactionID, tx.ID,
		log.FieldAmountCents, tx.TotalAmount.Cents,
		log.FieldTransfers, len(tx.Transfers))
	return tx, nil
}

// Delete removes a transaction. Unknown ids are a no-op and report false.
func (s *LedgerService) Delete(ctx context.Context, id string) (bool, error) {
	stored := false
	if s.store != nil {
		var err error
		stored, err = s.store.DeleteTransaction(ctx, id)
		if err != nil {
			return false, fmt.Errorf("delete transaction: %w", err)
		}
	}
	removed := s.ledger.Remove(id)
	if !removed && !stored {
		return false, nil
	}

	s.publish(ctx, id, false)

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldTransactionID, id)
	return true, nil
}

// Clear removes every transaction from storage and the ledger.
func (s *LedgerService) Clear(ctx context.Context) error {
	if s.store != nil {
		if err := s.store.DeleteAll(ctx); err != nil {
			return fmt.Errorf("clear storage: %w", err)
		}
	}
	s.ledger.Clear()
	s.logger.InfoContext(ctx, "Ledger cleared", log.FieldOperation, log.OpClear)
	return nil
}

// PreviewEqualSplit expands a single-payer equal split into the entries it
// would produce for me. Nothing is recorded.
func (s *LedgerService) PreviewEqualSplit(in core.EqualSplitInput, me core.UserID) ([]core.LedgerEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return core.ExpandEqualSplit(in, me), nil
}

// List returns up to limit transactions, newest first. A non-positive
// limit returns all of them.
func (s *LedgerService) List(limit int) []core.Transaction {
	if limit <= 0 {
		return s.ledger.Snapshot()
	}
	var out []core.Transaction
	s.ledger.View(func(txs []core.Transaction, _ uint64) {
		out = core.Recent(txs, limit)
	})
	return out
}

func (s *LedgerService) Get(id string) (core.Transaction, bool) {
	return s.ledger.Get(id)
}

// Net returns user's signed position in one transaction.
func (s *LedgerService) Net(id string, user core.UserID) (core.Money, bool) {
	tx, ok := s.ledger.Get(id)
	if !ok {
		return core.Money{}, false
	}
	return core.NetForUser(tx, user), true
}

func (s *LedgerService) OwedToMe(user core.UserID) []core.CounterpartAmount {
	return memo(s.ledger, s.owedToMe, user, 0, core.OwedToMe)
}

func (s *LedgerService) IOwe(user core.UserID) []core.CounterpartAmount {
	return memo(s.ledger, s.owing, user, 0, core.IOwe)
}

func (s *LedgerService) Totals(user core.UserID) core.Totals {
	return memo(s.ledger, s.totals, user, 0, core.TotalsFor)
}

func (s *LedgerService) RecentCounterparts(user core.UserID, limit int) []core.UserID {
	if limit <= 0 {
		limit = core.DefaultRecentCounterparts
	}
	return memo(s.ledger, s.counterparts, user, limit, func(txs []core.Transaction, me core.UserID) []core.UserID {
		return core.RecentCounterpartsFor(txs, me, limit)
	})
}

// Ready reports whether the backing store is reachable.
func (s *LedgerService) Ready(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Ping(ctx)
}

// Close closes both storage and AMQP connections.
func (s *LedgerService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *LedgerService) publish(ctx context.Context, id string, created bool) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not available, skipping event", log.FieldTransactionID, id)
		return
	}
	var err error
	if created {
		err = s.publisher.PublishTransactionCreated(ctx, id)
	} else {
		err = s.publisher.PublishTransactionDeleted(ctx, id)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldTransactionID, id,
			log.FieldError, err)
	}
}

// memo computes a view over one consistent ledger snapshot, keyed by the
// snapshot's version so any mutation invalidates earlier results.
func memo[T any](l *ledger.Ledger, c *cache.LRUCache[T], user core.UserID, limit int, compute func([]core.Transaction, core.UserID) T) T {
	var out T
	l.View(func(txs []core.Transaction, version uint64) {
		key := fmt.Sprintf("%d|%s|%d", version, user, limit)
		out = cache.GetOrCompute[T](c, key, func() T { return compute(txs, user) })
	})
	return out
}
