package worker

import (
	"context"
	"fmt"

	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/events"
	"github.com/HanzKay/KrasandApps-V1/internal/metrics"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LowStockStore is satisfied by *database.Queries.
type LowStockStore interface {
	ListLowStockIngredients(ctx context.Context) ([]database.Ingredient, error)
}

// StockAlerter re-checks ingredient levels whenever an order is placed, since
// checkout is what draws stock down.
type StockAlerter struct {
	store LowStockStore
}

func NewStockAlerter(store LowStockStore) *StockAlerter {
	return &StockAlerter{store: store}
}

// Handle is an events.MessageHandler. Events other than order.created are
// acknowledged without work. Undecodable messages are dropped so they do
// not block the partition.
func (a *StockAlerter) Handle(ctx context.Context, msg kafka.Message) error {
	eventType, err := events.DecodeType(msg.Value)
	if err != nil {
		zap.L().Warn("skipping malformed event", zap.Error(err), zap.Int64("offset", msg.Offset))
		return nil
	}
	if eventType != events.TypeOrderCreated {
		return nil
	}
	_, err = a.Check(ctx)
	return err
}

// Check refreshes the low-stock gauge and logs one warning per ingredient at
// or below its minimum. It returns the number of such ingredients.
func (a *StockAlerter) Check(ctx context.Context) (int, error) {
	low, err := a.store.ListLowStockIngredients(ctx)
	if err != nil {
		return 0, fmt.Errorf("list low stock ingredients: %w", err)
	}
	metrics.LowStockIngredients.Set(float64(len(low)))
	for _, ing := range low {
		zap.L().Warn("ingredient low on stock",
			zap.String("ingredient_id", ing.ID.String()),
			zap.String("name", ing.Name),
			zap.String("current_stock", numericString(ing.CurrentStock)),
			zap.String("min_stock", numericString(ing.MinStock)),
			zap.String("unit", ing.Unit),
		)
	}
	return len(low), nil
}

func numericString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.000"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.000"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.000"
	}
	return d.StringFixed(3)
}
