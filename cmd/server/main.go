package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fintrack/ledger-core/internal/config"
	"github.com/fintrack/ledger-core/internal/events/kafka"
	"github.com/fintrack/ledger-core/internal/interfaces"
	"github.com/fintrack/ledger-core/internal/ledger"
	"github.com/fintrack/ledger-core/internal/models"
	"github.com/fintrack/ledger-core/internal/seed"
	"github.com/fintrack/ledger-core/internal/storage/memory"
	"github.com/fintrack/ledger-core/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx := context.Background()

	var store interfaces.LedgerStore
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("open postgres", zap.Error(err))
		}
		defer pg.Close()
		store = pg
	default:
		store = memory.NewStore()
	}

	var publisher interfaces.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
	}

	engine := ledger.NewEngine(store, publisher, logger)

	if cfg.SeedDemoData {
		if cfg.StoreBackend != config.BackendMemory {
			logger.Warn("SEED_DEMO_DATA is only honored with the memory store")
		} else if err := seed.DemoData(ctx, engine, 5); err != nil {
			logger.Fatal("seed demo data", zap.Error(err))
		}
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	http.HandleFunc("/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handleSubmitSingle(w, r, engine)
		case http.MethodGet:
			handleListTransactions(w, r, engine)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/transfers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handleSubmitTransfer(w, r, engine)
	})

	http.HandleFunc("/accounts/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		principal := principalID(r)
		if principal == "" {
			http.Error(w, "missing X-Principal-ID header", http.StatusBadRequest)
			return
		}

		balance, err := engine.GetBalance(r.Context(), principal)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, balance)
	})

	logger.Info("starting server", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreBackend))
	if err := http.ListenAndServe(cfg.HTTPAddr, nil); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// principalID returns the authenticated caller identity supplied by the
// access-control layer in front of this service. The core trusts it as-is.
func principalID(r *http.Request) string {
	return r.Header.Get("X-Principal-ID")
}

func handleSubmitSingle(w http.ResponseWriter, r *http.Request, engine *ledger.Engine) {
	principal := principalID(r)
	if principal == "" {
		http.Error(w, "missing X-Principal-ID header", http.StatusBadRequest)
		return
	}

	var draft models.TransactionDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	draft.IdempotencyKey = r.Header.Get("Idempotency-Key")

	tx, balance, err := engine.SubmitSingle(r.Context(), principal, draft)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Transaction models.Transaction   `json:"transaction"`
		Balance     models.BalanceRecord `json:"balance"`
	}{tx, balance})
}

func handleSubmitTransfer(w http.ResponseWriter, r *http.Request, engine *ledger.Engine) {
	principal := principalID(r)
	if principal == "" {
		http.Error(w, "missing X-Principal-ID header", http.StatusBadRequest)
		return
	}

	var req struct {
		ReceiverID  string          `json:"receiver_id"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sent, received, err := engine.SubmitTransfer(r.Context(), principal, req.ReceiverID, req.Amount, req.Description, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Sent     models.Transaction `json:"sent"`
		Received models.Transaction `json:"received"`
	}{sent, received})
}

func handleListTransactions(w http.ResponseWriter, r *http.Request, engine *ledger.Engine) {
	principal := principalID(r)
	if principal == "" {
		http.Error(w, "missing X-Principal-ID header", http.StatusBadRequest)
		return
	}

	page := models.Pagination{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}

	txs, err := engine.ListTransactions(r.Context(), principal, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func queryInt(r *http.Request, key string) int {
	value, _ := strconv.Atoi(r.URL.Query().Get(key))
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch models.CodeOf(err) {
	case models.CodeValidation:
		status = http.StatusBadRequest
	case models.CodeInsufficientFunds:
		status = http.StatusUnprocessableEntity
	case models.CodeNotFound:
		status = http.StatusNotFound
	case models.CodeTransientContention:
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}
