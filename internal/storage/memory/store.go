package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/fintrack/ledger-core/internal/interfaces"
	"github.com/fintrack/ledger-core/internal/models"
)

// Store is an in-memory implementation of interfaces.LedgerStore. A single
// mutex makes every batch in ApplyAtomic a real atomic scope: readers never
// observe a half-applied transfer.
type Store struct {
	mu       sync.Mutex
	balances map[string]models.BalanceRecord // keyed by user id
	log      []models.Transaction            // append-only
	byKey    map[string]string               // idempotency key -> transaction id
	byID     map[string]int                  // transaction id -> log index
	clock    func() time.Time
}

// NewStore creates an empty in-memory ledger store.
func NewStore() *Store {
	return &Store{
		balances: make(map[string]models.BalanceRecord),
		byKey:    make(map[string]string),
		byID:     make(map[string]int),
		clock:    time.Now,
	}
}

func (s *Store) GetBalance(ctx context.Context, userID string) (models.BalanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.balances[userID]
	if !ok {
		return models.BalanceRecord{}, models.NewNotFoundError(userID)
	}
	return record, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, page models.Pagination) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Transaction
	for _, tx := range s.log {
		if tx.UserID == userID {
			matched = append(matched, tx)
		}
	}

	// Newest first; log order breaks ties so equal timestamps stay stable.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page = page.Normalize()
	if page.Offset >= len(matched) {
		return []models.Transaction{}, nil
	}
	end := page.Offset + page.Limit
	if end > len(matched) {
		end = len(matched)
	}

	window := make([]models.Transaction, end-page.Offset)
	copy(window, matched[page.Offset:end])
	return window, nil
}

func (s *Store) GetTransactionByKey(ctx context.Context, idempotencyKey string) (models.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txID, ok := s.byKey[idempotencyKey]
	if !ok {
		return models.Transaction{}, false, nil
	}
	return s.log[s.byID[txID]], true, nil
}

func (s *Store) GetTransferPair(ctx context.Context, transferGroupID string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pair []models.Transaction
	for _, tx := range s.log {
		if tx.TransferGroupID == transferGroupID {
			pair = append(pair, tx)
		}
	}
	return pair, nil
}

// ApplyAtomic applies every balance update and appends every transaction row
// under one lock acquisition. Version checks run for the whole batch before
// anything is written, so a stale writer leaves no partial state behind.
func (s *Store) ApplyAtomic(ctx context.Context, updates []interfaces.BalanceUpdate, txs []models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, update := range updates {
		current, exists := s.balances[update.Record.UserID]
		if !exists && update.ExpectedVersion != 0 {
			return models.ErrVersionConflict
		}
		if exists && current.Version != update.ExpectedVersion {
			return models.ErrVersionConflict
		}
	}

	// Idempotency keys are unique across the whole log, matching the
	// partial unique index the postgres store relies on.
	for _, tx := range txs {
		if tx.IdempotencyKey == "" {
			continue
		}
		if _, exists := s.byKey[tx.IdempotencyKey]; exists {
			return models.NewStorageError(errors.New("idempotency key " + tx.IdempotencyKey + " already used"))
		}
	}

	now := s.clock().UTC()
	for _, update := range updates {
		record := update.Record
		record.Version = update.ExpectedVersion + 1
		record.UpdatedAt = now
		s.balances[record.UserID] = record
	}

	for _, tx := range txs {
		s.byID[tx.ID] = len(s.log)
		s.log = append(s.log, tx)
		if tx.IdempotencyKey != "" {
			s.byKey[tx.IdempotencyKey] = tx.ID
		}
	}
	return nil
}

// Compile-time check: ensure Store implements the LedgerStore interface.
var _ interfaces.LedgerStore = (*Store)(nil)
