package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
)

// Sin base de datos: un id que no es UUID se resuelve antes de consultar.
func TestEventRepos_IDNoUUID(t *testing.T) {
	ctx := context.Background()
	receipts := postgres.NewReceiptEventRepository(nil)
	sales := postgres.NewSaleEventRepository(nil)

	for _, id := range []string{"abc", "123", "00000000-0000-0000-0000"} {
		_, err := receipts.GetByID(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound, id)
		assert.ErrorIs(t, receipts.Update(ctx, &entity.ReceiptEvent{ID: id}), domain.ErrNotFound, id)
		assert.ErrorIs(t, receipts.Delete(ctx, id), domain.ErrNotFound, id)

		_, err = sales.GetByID(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound, id)
		assert.ErrorIs(t, sales.Update(ctx, &entity.SaleEvent{ID: id}), domain.ErrNotFound, id)
		assert.ErrorIs(t, sales.Delete(ctx, id), domain.ErrNotFound, id)
	}

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := sales.Create(ctx, &entity.SaleEvent{ID: "venta-1", LocationID: "L", ItemID: "X", Day: day, Qty: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
