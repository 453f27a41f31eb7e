package seed

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"github.com/fintrack/ledger-core/internal/ledger"
	"github.com/fintrack/ledger-core/internal/models"
)

// DemoData fills the ledger with numUsers fake users carrying a handful of
// income and expense transactions each, plus a few transfers between them.
// Intended for local runs against the memory store.
func DemoData(ctx context.Context, engine *ledger.Engine, numUsers int) error {
	if numUsers < 2 {
		numUsers = 2
	}

	userIDs := make([]string, numUsers)
	for i := range userIDs {
		userIDs[i] = gofakeit.Username()

		// Opening income first so later expenses and transfers can clear.
		opening := models.TransactionDraft{
			Type:        models.TypeIncome,
			Amount:      decimal.NewFromFloat(gofakeit.Price(500, 5000)).Round(2),
			Description: "opening deposit",
		}
		if _, _, err := engine.SubmitSingle(ctx, userIDs[i], opening); err != nil {
			return fmt.Errorf("seed opening income for %s: %w", userIDs[i], err)
		}

		for j := 0; j < 3; j++ {
			expense := models.TransactionDraft{
				Type:        models.TypeExpense,
				Amount:      decimal.NewFromFloat(gofakeit.Price(5, 100)).Round(2),
				Description: gofakeit.ProductName(),
				FromAccount: "checking",
			}
			if _, _, err := engine.SubmitSingle(ctx, userIDs[i], expense); err != nil {
				return fmt.Errorf("seed expense for %s: %w", userIDs[i], err)
			}
		}
	}

	for n := 0; n < numUsers; n++ {
		from := userIDs[rand.Intn(len(userIDs))]
		to := userIDs[rand.Intn(len(userIDs))]
		if from == to {
			continue
		}
		amount := decimal.NewFromFloat(gofakeit.Price(1, 50)).Round(2)
		if _, _, err := engine.SubmitTransfer(ctx, from, to, amount, gofakeit.HackerPhrase(), ""); err != nil {
			return fmt.Errorf("seed transfer %s -> %s: %w", from, to, err)
		}
	}

	return nil
}
