package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domledger "github.com/jhoicas/stock-ledger/internal/domain/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

const (
	loc  = "L"
	item = "X"
)

// flakyTx falla una llamada concreta a Run para simular una caída del almacén a mitad de cascada.
type flakyTx struct {
	inner  ledger.TxRunner
	mu     sync.Mutex
	calls  int
	failAt int
}

// failAfter deja pasar n transacciones y hace fallar la siguiente.
func (f *flakyTx) failAfter(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAt = f.calls + n + 1
}

func (f *flakyTx) Run(ctx context.Context, fn func(ledgerRepo repository.LedgerRepository) error) error {
	f.mu.Lock()
	f.calls++
	fail := f.failAt != 0 && f.calls == f.failAt
	f.mu.Unlock()
	if fail {
		return errors.New("conexión con el almacén perdida")
	}
	return f.inner.Run(ctx, fn)
}

type fixture struct {
	mem    *memory.Store
	tx     *flakyTx
	locker *lock.MemoryLocker
	svc    *ledger.Service
}

func newFixture(t *testing.T, today string, opts ...func(*ledger.Deps)) *fixture {
	t.Helper()
	mem := memory.New()
	f := &fixture{mem: mem, tx: &flakyTx{inner: mem}, locker: lock.NewMemoryLocker()}
	now := day(t, today).Add(15 * time.Hour)
	deps := ledger.Deps{
		Ledger:   mem.Ledger(),
		Receipts: mem.Receipts(),
		Sales:    mem.Sales(),
		Tx:       f.tx,
		Locker:   f.locker,
		Clock:    func() time.Time { return now },
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.svc = ledger.NewService(deps)
	return f
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domledger.ParseDay(s)
	require.NoError(t, err)
	return d
}

func key(t *testing.T, s string) entity.LedgerKey {
	return entity.LedgerKey{LocationID: loc, ItemID: item, Day: day(t, s)}
}

// seed escribe una fila directamente en el repositorio, sin pasar por el servicio.
func (f *fixture) seed(t *testing.T, itemID, d string, opening, receipt, sale int64) {
	t.Helper()
	e := &entity.LedgerEntry{
		LocationID: loc, ItemID: itemID, Day: day(t, d),
		OpeningQty: opening, ReceiptQty: receipt, SaleQty: sale,
	}
	e.Recompute()
	_, err := f.mem.Ledger().Upsert(context.Background(), e)
	require.NoError(t, err)
}

type row struct {
	Day                       string
	Opening, In, Out, Closing int64
}

func (f *fixture) rows(t *testing.T, itemID, from, to string) []row {
	t.Helper()
	list, err := f.mem.Ledger().ListRange(context.Background(), loc, itemID, day(t, from), day(t, to))
	require.NoError(t, err)
	out := make([]row, 0, len(list))
	for _, e := range list {
		out = append(out, row{e.Day.Format(time.DateOnly), e.OpeningQty, e.ReceiptQty, e.SaleQty, e.ClosingQty})
	}
	return out
}
