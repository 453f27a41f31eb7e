package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fintrack/ledger-core/internal/interfaces"
	"github.com/fintrack/ledger-core/internal/models"
	"github.com/fintrack/ledger-core/internal/models/events"
)

const (
	// TopicTransactionCompleted carries events.TransactionCompleted payloads.
	TopicTransactionCompleted = "ledger.transaction_completed"
	// TopicTransferCompleted carries events.TransferCompleted payloads.
	TopicTransferCompleted = "ledger.transfer_completed"

	maxWriteAttempts = 4
	retryBaseDelay   = 2 * time.Millisecond
)

// Engine orchestrates validate -> project -> persist for single transactions
// and for paired transfers. It serializes writers per user: a mutex per user
// id guards the read-modify-write against in-process callers, and the store's
// version check closes the window against writers in other processes.
type Engine struct {
	store     interfaces.LedgerStore
	publisher interfaces.EventPublisher // may be nil; events are best-effort
	logger    *zap.Logger

	muMap map[string]*sync.Mutex // one lock per user id
	mapMu sync.Mutex             // protects muMap itself
}

// NewEngine creates an Engine on top of store. publisher may be nil to
// disable event emission; logger may be nil for a no-op logger.
func NewEngine(store interfaces.LedgerStore, publisher interfaces.EventPublisher, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:     store,
		publisher: publisher,
		logger:    logger,
		muMap:     make(map[string]*sync.Mutex),
	}
}

func (e *Engine) userLock(userID string) *sync.Mutex {
	e.mapMu.Lock()
	defer e.mapMu.Unlock()

	if _, exists := e.muMap[userID]; !exists {
		e.muMap[userID] = &sync.Mutex{}
	}
	return e.muMap[userID]
}

// SubmitSingle validates draft, projects its balance delta, and atomically
// upserts the user's balance record together with the appended log row.
// A draft carrying an idempotency key that was already applied returns the
// stored transaction without writing anything new.
func (e *Engine) SubmitSingle(ctx context.Context, userID string, draft models.TransactionDraft) (models.Transaction, models.BalanceRecord, error) {
	if userID == "" {
		return models.Transaction{}, models.BalanceRecord{}, models.NewValidationError("user_id", "user id is required")
	}

	draft, err := Validate(draft)
	if err != nil {
		return models.Transaction{}, models.BalanceRecord{}, err
	}

	if draft.IdempotencyKey != "" {
		stored, ok, err := e.store.GetTransactionByKey(ctx, draft.IdempotencyKey)
		if err != nil {
			return models.Transaction{}, models.BalanceRecord{}, err
		}
		if ok {
			balance, err := e.currentBalance(ctx, stored.UserID)
			if err != nil {
				return models.Transaction{}, models.BalanceRecord{}, err
			}
			return stored, balance, nil
		}
	}

	mu := e.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	// Re-check under the lock: a racing submit with the same key may have
	// committed between the first lookup and lock acquisition.
	if draft.IdempotencyKey != "" {
		stored, ok, err := e.store.GetTransactionByKey(ctx, draft.IdempotencyKey)
		if err != nil {
			return models.Transaction{}, models.BalanceRecord{}, err
		}
		if ok {
			balance, err := e.currentBalance(ctx, stored.UserID)
			if err != nil {
				return models.Transaction{}, models.BalanceRecord{}, err
			}
			return stored, balance, nil
		}
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		current, err := e.currentBalance(ctx, userID)
		if err != nil {
			return models.Transaction{}, models.BalanceRecord{}, err
		}

		tx := models.Transaction{
			ID:             uuid.New().String(),
			UserID:         userID,
			Type:           draft.Type,
			Amount:         draft.Amount,
			Description:    draft.Description,
			FromAccount:    draft.FromAccount,
			ToAccount:      draft.ToAccount,
			Status:         draft.Status,
			IdempotencyKey: draft.IdempotencyKey,
			CreatedAt:      time.Now().UTC(),
		}

		next := current.Apply(Project(tx))
		update := interfaces.BalanceUpdate{Record: next, ExpectedVersion: current.Version}

		err = e.store.ApplyAtomic(ctx, []interfaces.BalanceUpdate{update}, []models.Transaction{tx})
		if errors.Is(err, models.ErrVersionConflict) {
			// No wait after the last attempt; the budget is spent.
			if attempt < maxWriteAttempts-1 {
				if err := e.waitBeforeRetry(ctx, attempt); err != nil {
					return models.Transaction{}, models.BalanceRecord{}, err
				}
			}
			continue
		}
		if err != nil {
			return models.Transaction{}, models.BalanceRecord{}, err
		}

		balance, err := e.currentBalance(ctx, userID)
		if err != nil {
			return models.Transaction{}, models.BalanceRecord{}, err
		}

		// Pending rows have not completed; they get no completion event.
		if tx.Status == models.StatusCompleted {
			e.publish(ctx, TopicTransactionCompleted, events.TransactionCompleted{
				TransactionID: tx.ID,
				UserID:        tx.UserID,
				Type:          string(tx.Type),
				Amount:        tx.Amount,
				Status:        string(tx.Status),
				OccurredAt:    tx.CreatedAt,
			})
		}

		return tx, balance, nil
	}

	return models.Transaction{}, models.BalanceRecord{}, models.NewContentionError(userID, maxWriteAttempts)
}

// SubmitTransfer debits senderID and credits receiverID by amount as one
// all-or-nothing unit: both log rows and both balance updates commit
// together or not at all. The overdraft check runs inside the same atomic
// scope as the write, so two racing transfers cannot both pass it.
// idempotencyKey may be empty; a replayed key returns the stored pair.
func (e *Engine) SubmitTransfer(ctx context.Context, senderID, receiverID string, amount decimal.Decimal, description, idempotencyKey string) (models.Transaction, models.Transaction, error) {
	if senderID == "" {
		return models.Transaction{}, models.Transaction{}, models.NewValidationError("sender_id", "sender id is required")
	}
	if receiverID == "" {
		return models.Transaction{}, models.Transaction{}, models.NewValidationError("receiver_id", "receiver id is required")
	}
	if senderID == receiverID {
		return models.Transaction{}, models.Transaction{}, models.NewValidationError("receiver_id", "transfer requires two distinct users")
	}
	if !amount.IsPositive() {
		return models.Transaction{}, models.Transaction{}, models.NewValidationError("amount", "amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return models.Transaction{}, models.Transaction{}, models.NewValidationError("amount", "amount must have at most two decimal places")
	}

	if idempotencyKey != "" {
		sent, ok, err := e.store.GetTransactionByKey(ctx, idempotencyKey)
		if err != nil {
			return models.Transaction{}, models.Transaction{}, err
		}
		if ok {
			return e.replayTransfer(ctx, sent)
		}
	}

	senderMu := e.userLock(senderID)
	receiverMu := e.userLock(receiverID)

	// Fixed lock order keeps two crossing transfers from deadlocking.
	if senderID < receiverID {
		senderMu.Lock()
		receiverMu.Lock()
	} else {
		receiverMu.Lock()
		senderMu.Lock()
	}
	defer senderMu.Unlock()
	defer receiverMu.Unlock()

	// Same re-check as SubmitSingle, now that both locks are held.
	if idempotencyKey != "" {
		sent, ok, err := e.store.GetTransactionByKey(ctx, idempotencyKey)
		if err != nil {
			return models.Transaction{}, models.Transaction{}, err
		}
		if ok {
			return e.replayTransfer(ctx, sent)
		}
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		senderBal, err := e.currentBalance(ctx, senderID)
		if err != nil {
			return models.Transaction{}, models.Transaction{}, err
		}
		receiverBal, err := e.currentBalance(ctx, receiverID)
		if err != nil {
			return models.Transaction{}, models.Transaction{}, err
		}

		if senderBal.TotalBalance.Sub(amount).IsNegative() {
			return models.Transaction{}, models.Transaction{}, models.NewInsufficientFundsError(senderID)
		}

		groupID := uuid.New().String()
		now := time.Now().UTC()

		sent := models.Transaction{
			ID:              uuid.New().String(),
			UserID:          senderID,
			Type:            models.TypeTransferSent,
			Amount:          amount,
			Description:     description,
			FromAccount:     senderID,
			ToAccount:       receiverID,
			Status:          models.StatusCompleted,
			TransferGroupID: groupID,
			IdempotencyKey:  idempotencyKey,
			CreatedAt:       now,
		}
		received := models.Transaction{
			ID:              uuid.New().String(),
			UserID:          receiverID,
			Type:            models.TypeTransferReceived,
			Amount:          amount,
			Description:     description,
			FromAccount:     senderID,
			ToAccount:       receiverID,
			Status:          models.StatusCompleted,
			TransferGroupID: groupID,
			CreatedAt:       now,
		}

		updates := []interfaces.BalanceUpdate{
			{Record: senderBal.Apply(Project(sent)), ExpectedVersion: senderBal.Version},
			{Record: receiverBal.Apply(Project(received)), ExpectedVersion: receiverBal.Version},
		}

		err = e.store.ApplyAtomic(ctx, updates, []models.Transaction{sent, received})
		if errors.Is(err, models.ErrVersionConflict) {
			if attempt < maxWriteAttempts-1 {
				if err := e.waitBeforeRetry(ctx, attempt); err != nil {
					return models.Transaction{}, models.Transaction{}, err
				}
			}
			continue
		}
		if err != nil {
			return models.Transaction{}, models.Transaction{}, err
		}

		e.publish(ctx, TopicTransferCompleted, events.TransferCompleted{
			TransferGroupID: groupID,
			SenderID:        senderID,
			ReceiverID:      receiverID,
			Amount:          amount,
			OccurredAt:      now,
		})

		return sent, received, nil
	}

	return models.Transaction{}, models.Transaction{}, models.NewContentionError(senderID, maxWriteAttempts)
}

// GetBalance returns userID's balance record. Unknown users get a not-found
// ledger error.
func (e *Engine) GetBalance(ctx context.Context, userID string) (models.BalanceRecord, error) {
	if userID == "" {
		return models.BalanceRecord{}, models.NewValidationError("user_id", "user id is required")
	}
	return e.store.GetBalance(ctx, userID)
}

// ListTransactions returns userID's log entries newest first, windowed by page.
func (e *Engine) ListTransactions(ctx context.Context, userID string, page models.Pagination) ([]models.Transaction, error) {
	if userID == "" {
		return nil, models.NewValidationError("user_id", "user id is required")
	}
	return e.store.ListTransactions(ctx, userID, page.Normalize())
}

// currentBalance reads userID's record, substituting a zero-initialized one
// when the user has no record yet (lazy creation on first transaction).
func (e *Engine) currentBalance(ctx context.Context, userID string) (models.BalanceRecord, error) {
	record, err := e.store.GetBalance(ctx, userID)
	if err != nil {
		if models.CodeOf(err) == models.CodeNotFound {
			return models.NewBalanceRecord(userID), nil
		}
		return models.BalanceRecord{}, err
	}
	return record, nil
}

// replayTransfer reconstructs the (sent, received) pair for an idempotent
// transfer replay from the stored sent leg.
func (e *Engine) replayTransfer(ctx context.Context, sent models.Transaction) (models.Transaction, models.Transaction, error) {
	pair, err := e.store.GetTransferPair(ctx, sent.TransferGroupID)
	if err != nil {
		return models.Transaction{}, models.Transaction{}, err
	}
	for _, tx := range pair {
		if tx.Type == models.TypeTransferReceived {
			return sent, tx, nil
		}
	}
	return models.Transaction{}, models.Transaction{}, models.NewStorageError(errors.New("transfer group " + sent.TransferGroupID + " is missing its received leg"))
}

// waitBeforeRetry sleeps the exponential delay for attempt, respecting
// context cancellation.
func (e *Engine) waitBeforeRetry(ctx context.Context, attempt int) error {
	delay := retryBaseDelay << uint(attempt)

	e.logger.Debug("balance write contended, retrying",
		zap.Int("attempt", attempt+1),
		zap.Duration("delay", delay))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) publish(ctx context.Context, topic string, event any) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, topic, event); err != nil {
		e.logger.Warn("event publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
