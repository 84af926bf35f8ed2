package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// newTestPool levanta PostgreSQL en un contenedor y aplica las migraciones.
// Requiere Docker; solo corre con LEDGER_IT=1.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("LEDGER_IT") != "1" {
		t.Skip("prueba de integración: definir LEDGER_IT=1")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stock_ledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := postgres.NewMigrator(dsn, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
	require.NoError(t, m.Close())

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 4}, nil)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return d
}

func TestPostgres_PipelineCompleto(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	now := mustDay(t, "2024-01-05").Add(12 * time.Hour)
	svc := ledger.NewService(ledger.Deps{
		Ledger:   postgres.NewLedgerRepository(pool),
		Receipts: postgres.NewReceiptEventRepository(pool),
		Sales:    postgres.NewSaleEventRepository(pool),
		Tx:       postgres.NewTxRunner(pool),
		Locker:   lock.NewMemoryLocker(),
		Clock:    func() time.Time { return now },
	})
	k := entity.LedgerKey{LocationID: "L", ItemID: "X", Day: mustDay(t, "2024-01-01")}

	_, err := svc.EditOpening(ctx, k, 10, nil)
	require.NoError(t, err)
	ev, _, err := svc.CreateReceipt(ctx, ledger.ReceiptInput{PermitNo: "P-1", LocationID: "L", ItemID: "X", Day: mustDay(t, "2024-01-03"), Qty: 7})
	require.NoError(t, err)
	_, _, err = svc.CreateSale(ctx, ledger.SaleInput{LocationID: "L", ItemID: "X", Day: mustDay(t, "2024-01-04"), Qty: 2})
	require.NoError(t, err)

	list, err := svc.GetRange(ctx, "L", "X", mustDay(t, "2024-01-01"), mustDay(t, "2024-01-05"), false)
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, int64(17), list[2].ClosingQty)
	assert.Equal(t, int64(15), list[4].ClosingQty)

	byPermit, err := postgres.NewReceiptEventRepository(pool).ListByPermit(ctx, "P-1")
	require.NoError(t, err)
	require.Len(t, byPermit, 1)
	assert.Equal(t, ev.ID, byPermit[0].ID)

	_, err = svc.DeleteReceipt(ctx, "no-es-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.DeleteReceipt(ctx, ev.ID)
	require.NoError(t, err)
	last, err := svc.GetDay(ctx, k.WithDay(mustDay(t, "2024-01-05")), false)
	require.NoError(t, err)
	assert.Equal(t, int64(8), last.ClosingQty)

	violations, err := svc.CheckContinuity(ctx, "L", "X", mustDay(t, "2024-01-01"), mustDay(t, "2024-01-05"))
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestPostgres_UpsertSinCambiosNoEscribe(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	repo := postgres.NewLedgerRepository(pool)

	e := &entity.LedgerEntry{LocationID: "L", ItemID: "X", Day: mustDay(t, "2024-01-01"), OpeningQty: 3, ReceiptQty: 2}
	e.Recompute()
	changed, err := repo.Upsert(ctx, e)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Upsert(ctx, e)
	require.NoError(t, err)
	assert.False(t, changed)

	prev, err := repo.Previous(ctx, "L", "X", mustDay(t, "2024-01-05"))
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, int64(5), prev.ClosingQty)

	first, err := repo.FirstDay(ctx, "L", "X")
	require.NoError(t, err)
	assert.True(t, first.Equal(mustDay(t, "2024-01-01")))

	_, err = repo.FirstDay(ctx, "L", "nada")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgres_CheckDeBalance(t *testing.T) {
	pool := newTestPool(t)
	repo := postgres.NewLedgerRepository(pool)

	bad := &entity.LedgerEntry{LocationID: "L", ItemID: "X", Day: mustDay(t, "2024-01-01"), OpeningQty: 3, ClosingQty: 9}
	_, err := repo.Upsert(context.Background(), bad)
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)
}
