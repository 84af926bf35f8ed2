package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domledger "github.com/jhoicas/stock-ledger/internal/domain/ledger"
)

// Backfill crea filas faltantes: apertura = cierre de la fila anterior (0 si no hay historial),
// entradas y ventas tomadas frescas de los sincronizadores, cierre por balance.
type Backfill struct {
	store     *Store
	receipts  *Synchronizer
	sales     *Synchronizer
	batchSize int
}

func newBackfill(store *Store, receipts, sales *Synchronizer, batchSize int) *Backfill {
	return &Backfill{store: store, receipts: receipts, sales: sales, batchSize: batchSize}
}

// Ensure devuelve la fila existente o la crea. created indica si se insertó.
func (b *Backfill) Ensure(ctx context.Context, key entity.LedgerKey) (entry *entity.LedgerEntry, created bool, err error) {
	entry, err = b.store.Get(ctx, key)
	if err == nil {
		return entry, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}
	entry, err = b.seed(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if _, err := b.store.Upsert(ctx, entry); err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// seed arma la fila nueva sin persistirla.
func (b *Backfill) seed(ctx context.Context, key entity.LedgerKey) (*entity.LedgerEntry, error) {
	prev, err := b.store.Previous(ctx, key.LocationID, key.ItemID, key.Day)
	if err != nil {
		return nil, err
	}
	var opening int64
	if prev != nil {
		opening = prev.ClosingQty
	}
	return b.fresh(ctx, key, opening)
}

// fresh arma una fila con la apertura indicada y agregados recién calculados.
func (b *Backfill) fresh(ctx context.Context, key entity.LedgerKey, opening int64) (*entity.LedgerEntry, error) {
	receipts, err := b.receipts.Sum(ctx, key)
	if err != nil {
		return nil, err
	}
	sales, err := b.sales.Sum(ctx, key)
	if err != nil {
		return nil, err
	}
	e := &entity.LedgerEntry{
		LocationID: key.LocationID,
		ItemID:     key.ItemID,
		Day:        domledger.DayOf(key.Day, nil),
		OpeningQty: opening,
		ReceiptQty: receipts,
		SaleQty:    sales,
	}
	e.Recompute()
	return e, nil
}

// FillRange asegura una fila por cada día de [from, to] para (local, ítem), en orden calendario
// y por ventanas. Las filas existentes no se tocan.
func (b *Backfill) FillRange(ctx context.Context, locationID, itemID string, from, to time.Time) (created, existing int, err error) {
	from, to = domledger.DayOf(from, nil), domledger.DayOf(to, nil)
	prev, err := b.store.Previous(ctx, locationID, itemID, from)
	if err != nil {
		return 0, 0, err
	}
	series := entity.LedgerKey{LocationID: locationID, ItemID: itemID}
	for _, w := range domledger.Windows(from, to, b.batchSize) {
		if err := ctx.Err(); err != nil {
			return created, existing, err
		}
		rows, err := b.store.ListRange(ctx, locationID, itemID, w[0], w[1])
		if err != nil {
			return created, existing, err
		}
		byDay := indexByDay(rows)
		var pending []*entity.LedgerEntry
		for d := w[0]; !d.After(w[1]); d = domledger.Next(d) {
			if e, ok := byDay[d.Format(time.DateOnly)]; ok {
				existing++
				prev = e
				continue
			}
			var opening int64
			if prev != nil {
				opening = prev.ClosingQty
			}
			e, err := b.fresh(ctx, series.WithDay(d), opening)
			if err != nil {
				return created, existing, err
			}
			pending = append(pending, e)
			prev = e
		}
		if len(pending) > 0 {
			if _, err := b.store.UpsertBatch(ctx, pending); err != nil {
				return created, existing, err
			}
			created += len(pending)
		}
	}
	return created, existing, nil
}

func indexByDay(rows []*entity.LedgerEntry) map[string]*entity.LedgerEntry {
	m := make(map[string]*entity.LedgerEntry, len(rows))
	for _, r := range rows {
		m[r.Day.Format(time.DateOnly)] = r
	}
	return m
}
