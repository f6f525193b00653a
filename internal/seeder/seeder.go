package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/menumate/internal/database"
	"github.com/Additional-Code/menumate/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// DemoTenant is the tenant the sample orders are created for.
const DemoTenant = "demo-restaurant"

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) (*Seeder, error) {
	if !conns.Enabled() {
		return nil, errors.New("seeding requires BACKEND_DRIVER=sql")
	}
	return &Seeder{db: conns.Writer, logger: logger}, nil
}

type sampleLine struct {
	name  string
	price string
	qty   int
}

// Orders seeds numbered example orders for the demo tenant unless it already
// has orders.
func (s *Seeder) Orders(ctx context.Context) error {
	existing, err := s.db.NewSelect().
		Model((*entity.Order)(nil)).
		Where("tenant_id = ?", DemoTenant).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("count demo orders: %w", err)
	}
	if existing > 0 {
		s.logger.Info("demo orders already present", zap.Int("count", existing))
		return nil
	}

	samples := []struct {
		payment string
		lines   []sampleLine
	}{
		{payment: "cash", lines: []sampleLine{{"Masala Dosa", "120.00", 2}, {"Filter Coffee", "40.00", 2}}},
		{payment: "upi", lines: []sampleLine{{"Paneer Tikka", "260.00", 1}}},
		{payment: "card", lines: []sampleLine{{"Veg Biryani", "220.00", 1}, {"Gulab Jamun", "80.00", 3}}},
	}

	now := time.Now().UTC()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i, sample := range samples {
			number := int64(i + 1)
			order := &entity.Order{
				ID:            uuid.NewString(),
				TenantID:      DemoTenant,
				OrderNumber:   &number,
				PaymentMethod: sample.payment,
				CreatedAt:     now.Add(time.Duration(i) * time.Minute),
			}
			items := make([]entity.OrderItem, 0, len(sample.lines))
			for _, line := range sample.lines {
				item := entity.OrderItem{
					OrderID:   order.ID,
					DishName:  line.name,
					UnitPrice: decimal.RequireFromString(line.price),
					Quantity:  line.qty,
				}
				order.TotalAmount = order.TotalAmount.Add(item.Subtotal())
				items = append(items, item)
			}

			if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
				return fmt.Errorf("insert demo order %d: %w", number, err)
			}
			if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
				return fmt.Errorf("insert demo items %d: %w", number, err)
			}
		}

		s.logger.Info("seeded orders", zap.String("tenant", DemoTenant), zap.Int("count", len(samples)))
		return nil
	})
}
