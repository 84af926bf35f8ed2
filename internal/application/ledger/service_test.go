package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

func TestService_BackfillTomaCierreAnterior(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-01-01")
	f.seed(t, item, "2024-01-01", 10, 5, 3)

	e, err := f.svc.GetDay(ctx, key(t, "2024-01-02"), true)
	require.NoError(t, err)
	assert.Equal(t, int64(12), e.OpeningQty)
	assert.Equal(t, int64(0), e.ReceiptQty)
	assert.Equal(t, int64(0), e.SaleQty)
	assert.Equal(t, int64(12), e.ClosingQty)

	_, err = f.svc.GetDay(ctx, key(t, "2024-01-03"), false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_EditOpeningDesplazaLaCadena(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-01-05")

	_, _, err := f.svc.CreateReceipt(ctx, ledger.ReceiptInput{PermitNo: "P-1", LocationID: loc, ItemID: item, Day: day(t, "2024-01-01"), Qty: 5})
	require.NoError(t, err)
	_, _, err = f.svc.CreateSale(ctx, ledger.SaleInput{LocationID: loc, ItemID: item, Day: day(t, "2024-01-01"), Qty: 3})
	require.NoError(t, err)
	_, err = f.svc.EditOpening(ctx, key(t, "2024-01-01"), 10, nil)
	require.NoError(t, err)

	report, err := f.svc.EditOpening(ctx, key(t, "2024-01-01"), 20, nil)
	require.NoError(t, err)
	assert.True(t, report.Completed())
	assert.Equal(t, 4, report.DaysDone)
	assert.Equal(t, 4, report.DaysTotal)

	assert.Equal(t, []row{
		{"2024-01-01", 20, 5, 3, 22},
		{"2024-01-02", 22, 0, 0, 22},
		{"2024-01-03", 22, 0, 0, 22},
		{"2024-01-04", 22, 0, 0, 22},
		{"2024-01-05", 22, 0, 0, 22},
	}, f.rows(t, item, "2024-01-01", "2024-01-05"))
}

func TestService_BorrarEntradaReduceCierres(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-01-05")
	_, err := f.svc.EditOpening(ctx, key(t, "2024-01-01"), 10, nil)
	require.NoError(t, err)

	ev, _, err := f.svc.CreateReceipt(ctx, ledger.ReceiptInput{PermitNo: "P-7", LocationID: loc, ItemID: item, Day: day(t, "2024-01-03"), Qty: 7})
	require.NoError(t, err)
	assert.Equal(t, []row{
		{"2024-01-03", 10, 7, 0, 17},
		{"2024-01-04", 17, 0, 0, 17},
		{"2024-01-05", 17, 0, 0, 17},
	}, f.rows(t, item, "2024-01-03", "2024-01-05"))

	reports, err := f.svc.DeleteReceipt(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, []row{
		{"2024-01-03", 10, 0, 0, 10},
		{"2024-01-04", 10, 0, 0, 10},
		{"2024-01-05", 10, 0, 0, 10},
	}, f.rows(t, item, "2024-01-03", "2024-01-05"))
}

// populate arma el mismo historial de 90 días en cualquier fixture.
func populate(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	_, _, err := f.svc.CreateReceipt(ctx, ledger.ReceiptInput{PermitNo: "P-1", LocationID: loc, ItemID: item, Day: day(t, "2024-01-10"), Qty: 4})
	require.NoError(t, err)
	_, _, err = f.svc.CreateSale(ctx, ledger.SaleInput{LocationID: loc, ItemID: item, Day: day(t, "2024-02-15"), Qty: 2})
	require.NoError(t, err)
	_, _, err = f.svc.CreateSale(ctx, ledger.SaleInput{LocationID: loc, ItemID: item, Day: day(t, "2024-03-20"), Qty: 1})
	require.NoError(t, err)
}

func TestService_PropagacionInterrumpidaSeReanuda(t *testing.T) {
	ctx := context.Background()
	batch := func(d *ledger.Deps) { d.BatchSize = 30 }

	ref := newFixture(t, "2024-03-31", batch)
	populate(t, ref)
	_, err := ref.svc.EditOpening(ctx, key(t, "2024-01-01"), 50, nil)
	require.NoError(t, err)

	f := newFixture(t, "2024-03-31", batch)
	populate(t, f)
	f.tx.failAfter(1)
	report, err := f.svc.EditOpening(ctx, key(t, "2024-01-01"), 50, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPropagationInterrupted)
	assert.Equal(t, entity.PropagationPartial, report.Status)
	assert.Equal(t, 30, report.DaysDone)
	assert.Equal(t, 90, report.DaysTotal)
	assert.Equal(t, day(t, "2024-01-31"), report.LastCommittedDay)
	assert.Equal(t, day(t, "2024-02-01"), report.ResumeFrom)

	_, err = f.svc.CheckContinuity(ctx, loc, item, day(t, "2024-01-01"), day(t, "2024-03-31"))
	assert.ErrorIs(t, err, domain.ErrInconsistentHistory)

	resumed, err := f.svc.ResumePropagation(ctx, key(t, "2024-02-01"), nil)
	require.NoError(t, err)
	assert.True(t, resumed.Completed())

	assert.Equal(t, ref.rows(t, item, "2024-01-01", "2024-03-31"), f.rows(t, item, "2024-01-01", "2024-03-31"))
	violations, err := f.svc.CheckContinuity(ctx, loc, item, day(t, "2024-01-01"), day(t, "2024-03-31"))
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestService_CancelacionEntreVentanas(t *testing.T) {
	f := newFixture(t, "2024-03-01", func(d *ledger.Deps) { d.BatchSize = 10 })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	report, err := f.svc.EditOpening(ctx, key(t, "2024-01-01"), 5, func(done, total int) { cancel() })
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPropagationInterrupted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 10, report.DaysDone)
	assert.Equal(t, day(t, "2024-01-12"), report.ResumeFrom)

	report, err = f.svc.ResumePropagation(context.Background(), key(t, "2024-01-12"), nil)
	require.NoError(t, err)
	assert.True(t, report.Completed())
	last, err := f.svc.GetDay(context.Background(), key(t, "2024-03-01"), false)
	require.NoError(t, err)
	assert.Equal(t, int64(5), last.ClosingQty)
}

func TestService_PropagacionIdempotente(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-01-20")
	populate(t, f)
	_, err := f.svc.EditOpening(ctx, key(t, "2024-01-01"), 8, nil)
	require.NoError(t, err)

	before, err := f.mem.Ledger().ListRange(ctx, loc, item, day(t, "2024-01-01"), day(t, "2024-01-20"))
	require.NoError(t, err)

	_, err = f.svc.ResumePropagation(ctx, key(t, "2024-01-01"), nil)
	require.NoError(t, err)
	after, err := f.mem.Ledger().ListRange(ctx, loc, item, day(t, "2024-01-01"), day(t, "2024-01-20"))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	store := ledger.NewStore(f.mem.Ledger(), f.mem)
	changed, err := store.UpsertBatch(ctx, after)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestService_MoverEntradaResincronizaAmbasCeldas(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-01-05")

	ev, _, err := f.svc.CreateReceipt(ctx, ledger.ReceiptInput{PermitNo: "P-2", LocationID: loc, ItemID: item, Day: day(t, "2024-01-02"), Qty: 4})
	require.NoError(t, err)

	_, reports, err := f.svc.UpdateReceipt(ctx, ev.ID, ledger.ReceiptInput{PermitNo: "P-2", LocationID: loc, ItemID: "Y", Day: day(t, "2024-01-03"), Qty: 6})
	require.NoError(t, err)
	assert.Len(t, reports, 2)

	for _, r := range f.rows(t, item, "2024-01-02", "2024-01-05") {
		assert.Zero(t, r.In, r.Day)
		assert.Zero(t, r.Closing, r.Day)
	}
	assert.Equal(t, []row{
		{"2024-01-03", 0, 6, 0, 6},
		{"2024-01-04", 6, 0, 0, 6},
		{"2024-01-05", 6, 0, 0, 6},
	}, f.rows(t, "Y", "2024-01-01", "2024-01-05"))
}

func TestService_VariasVentasMismoDiaSeSuman(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-01-02")
	_, err := f.svc.EditOpening(ctx, key(t, "2024-01-01"), 20, nil)
	require.NoError(t, err)

	s1, _, err := f.svc.CreateSale(ctx, ledger.SaleInput{LocationID: loc, ItemID: item, Day: day(t, "2024-01-01"), Qty: 3})
	require.NoError(t, err)
	_, _, err = f.svc.CreateSale(ctx, ledger.SaleInput{LocationID: loc, ItemID: item, Day: day(t, "2024-01-01"), Qty: 4})
	require.NoError(t, err)
	_, _, err = f.svc.UpdateSale(ctx, s1.ID, ledger.SaleInput{LocationID: loc, ItemID: item, Day: day(t, "2024-01-01"), Qty: 1})
	require.NoError(t, err)

	assert.Equal(t, []row{
		{"2024-01-01", 20, 0, 5, 15},
		{"2024-01-02", 15, 0, 0, 15},
	}, f.rows(t, item, "2024-01-01", "2024-01-02"))

	_, err = f.svc.DeleteSale(ctx, s1.ID)
	require.NoError(t, err)
	_, err = f.svc.DeleteSale(ctx, s1.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_StockNegativoSePermiteYSeAdvierte(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-01-03")

	_, reports, err := f.svc.CreateSale(ctx, ledger.SaleInput{LocationID: loc, ItemID: item, Day: day(t, "2024-01-01"), Qty: 5})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Len(t, reports[0].NegativeDays, 3)

	e, err := f.svc.GetDay(ctx, key(t, "2024-01-03"), false)
	require.NoError(t, err)
	assert.Equal(t, int64(-5), e.ClosingQty)
	assert.True(t, e.NegativeStock())
}

func TestService_EventoInvalido(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-01-03")

	_, _, err := f.svc.CreateSale(ctx, ledger.SaleInput{LocationID: loc, ItemID: item, Day: day(t, "2024-01-01"), Qty: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, _, err = f.svc.CreateReceipt(ctx, ledger.ReceiptInput{LocationID: loc, ItemID: item, Day: day(t, "2024-01-01"), Qty: 2})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.svc.EditOpening(ctx, entity.LedgerKey{LocationID: loc, Day: day(t, "2024-01-01")}, 1, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// failingReceipts simula la tabla de permisos caída durante la resincronización.
type failingReceipts struct {
	*memory.ReceiptRepo
	fail bool
}

func (r *failingReceipts) SumQty(ctx context.Context, k entity.LedgerKey) (int64, error) {
	if r.fail {
		return 0, errors.New("tabla de permisos no disponible")
	}
	return r.ReceiptRepo.SumQty(ctx, k)
}

func TestService_ResyncFallidoNoPropaga(t *testing.T) {
	ctx := context.Background()
	var receipts *failingReceipts
	f := newFixture(t, "2024-01-03", func(d *ledger.Deps) {
		receipts = &failingReceipts{ReceiptRepo: d.Receipts.(*memory.ReceiptRepo)}
		d.Receipts = receipts
	})
	_, err := f.svc.EditOpening(ctx, key(t, "2024-01-01"), 3, nil)
	require.NoError(t, err)

	receipts.fail = true
	_, _, err = f.svc.CreateReceipt(ctx, ledger.ReceiptInput{PermitNo: "P-9", LocationID: loc, ItemID: item, Day: day(t, "2024-01-02"), Qty: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrResyncFailed)
	assert.Equal(t, []row{
		{"2024-01-02", 3, 0, 0, 3},
		{"2024-01-03", 3, 0, 0, 3},
	}, f.rows(t, item, "2024-01-02", "2024-01-03"))

	receipts.fail = false
	report, err := f.svc.Resync(ctx, key(t, "2024-01-02"), nil)
	require.NoError(t, err)
	assert.True(t, report.Completed())
	assert.Equal(t, []row{
		{"2024-01-02", 3, 2, 0, 5},
		{"2024-01-03", 5, 0, 0, 5},
	}, f.rows(t, item, "2024-01-02", "2024-01-03"))
}

func TestService_SerieOcupadaDevuelveConflicto(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-01-03", func(d *ledger.Deps) { d.LockWait = 20 * time.Millisecond })

	unlock, err := f.locker.Lock(ctx, key(t, "2024-01-01").Series())
	require.NoError(t, err)
	defer unlock()

	_, err = f.svc.EditOpening(ctx, key(t, "2024-01-01"), 1, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestService_CheckContinuityNoCorrige(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-01-03")
	f.seed(t, item, "2024-01-01", 10, 0, 0)
	f.seed(t, item, "2024-01-02", 7, 0, 0)

	violations, err := f.svc.CheckContinuity(ctx, loc, item, day(t, "2024-01-01"), day(t, "2024-01-03"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInconsistentHistory))
	require.Len(t, violations, 1)
	assert.Equal(t, day(t, "2024-01-02"), violations[0].Day)

	assert.Equal(t, []row{
		{"2024-01-01", 10, 0, 0, 10},
		{"2024-01-02", 7, 0, 0, 7},
	}, f.rows(t, item, "2024-01-01", "2024-01-03"))
}

func TestService_AutoFillYReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-01-04")
	f.seed(t, item, "2024-01-01", 5, 0, 0)
	f.seed(t, "Z", "2024-01-01", 0, 0, 0)

	var progress []int
	report, err := f.svc.AutoFill(ctx, loc, func(done, total int) { progress = append(progress, done) })
	require.NoError(t, err)
	assert.Equal(t, 1, report.Items)
	assert.Equal(t, 3, report.Created)
	assert.Equal(t, 1, report.Existing)
	assert.Equal(t, []int{1}, progress)
	assert.Len(t, f.rows(t, item, "2024-01-01", "2024-01-04"), 4)
	assert.Len(t, f.rows(t, "Z", "2024-01-01", "2024-01-04"), 1)

	n, err := f.svc.ResetLocation(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	_, err = f.svc.GetDay(ctx, key(t, "2024-01-01"), false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_GetRangeRellenaHastaHoy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-01-04")
	f.seed(t, item, "2024-01-01", 9, 0, 0)

	list, err := f.svc.GetRange(ctx, loc, item, day(t, "2024-01-01"), day(t, "2024-01-10"), true)
	require.NoError(t, err)
	require.Len(t, list, 4)
	for _, e := range list {
		assert.Equal(t, int64(9), e.ClosingQty)
	}

	_, err = f.svc.GetRange(ctx, loc, item, day(t, "2024-01-10"), day(t, "2024-01-01"), false)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
