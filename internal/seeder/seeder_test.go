package seeder

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap"

	"github.com/Additional-Code/menumate/internal/database"
	"github.com/Additional-Code/menumate/internal/entity"
)

func TestSeedOrdersIsIdempotent(t *testing.T) {
	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	_, err = db.NewCreateTable().Model((*entity.Order)(nil)).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewCreateTable().Model((*entity.OrderItem)(nil)).Exec(ctx)
	require.NoError(t, err)

	s, err := New(&database.Connections{Writer: db, Reader: db}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Orders(ctx))
	require.NoError(t, s.Orders(ctx))

	var orders []entity.Order
	require.NoError(t, db.NewSelect().Model(&orders).Relation("Items").Order("o.order_number ASC").Scan(ctx))
	require.Len(t, orders, 3)
	for i, order := range orders {
		require.NotNil(t, order.OrderNumber)
		assert.Equal(t, int64(i+1), *order.OrderNumber)
		assert.NotEmpty(t, order.Items)
	}
}

func TestNewRequiresDatabase(t *testing.T) {
	t.Parallel()

	_, err := New(&database.Connections{}, zap.NewNop())
	assert.Error(t, err)
}
