package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domledger "github.com/jhoicas/stock-ledger/internal/domain/ledger"
)

// DefaultBatchSize días por ventana confirmada.
const DefaultBatchSize = 30

// PropagateRequest parámetros de una corrida. Today es explícito: el motor nunca lee el reloj.
type PropagateRequest struct {
	Key        entity.LedgerKey
	Today      time.Time
	BatchSize  int
	OnProgress ProgressFunc
}

// Propagator recalcula el cierre de un día y arrastra la apertura hacia adelante hasta hoy,
// confirmando por ventanas. Quien lo invoca debe tener el candado de la serie.
type Propagator struct {
	store     *Store
	backfill  *Backfill
	batchSize int
}

func newPropagator(store *Store, backfill *Backfill, batchSize int) *Propagator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Propagator{store: store, backfill: backfill, batchSize: batchSize}
}

// Run ejecuta la cascada desde req.Key.Day. La apertura del día de origen se respeta tal cual.
// Si una ventana falla o ctx se cancela entre ventanas, devuelve el reporte parcial junto con
// un error que envuelve domain.ErrPropagationInterrupted.
func (p *Propagator) Run(ctx context.Context, req PropagateRequest) (*entity.PropagationReport, error) {
	key := req.Key
	key.Day = domledger.DayOf(key.Day, nil)
	today := domledger.DayOf(req.Today, nil)
	batch := req.BatchSize
	if batch <= 0 {
		batch = p.batchSize
	}

	report := &entity.PropagationReport{Origin: key, Today: today}
	if n := domledger.DaysBetween(key.Day, today); n > 0 {
		report.DaysTotal = n
	}

	origin, _, err := p.backfill.Ensure(ctx, key)
	if err != nil {
		return p.interrupted(report, key, err)
	}
	if _, err := p.store.Upsert(ctx, origin); err != nil {
		return p.interrupted(report, key, err)
	}
	report.LastCommittedDay = origin.Day
	if origin.NegativeStock() {
		report.NegativeDays = append(report.NegativeDays, origin.Day)
	}

	carry := origin.ClosingQty
	for _, w := range domledger.Windows(domledger.Next(key.Day), today, batch) {
		if err := ctx.Err(); err != nil {
			return p.interrupted(report, key, err)
		}
		rows, err := p.store.ListRange(ctx, key.LocationID, key.ItemID, w[0], w[1])
		if err != nil {
			return p.interrupted(report, key, err)
		}
		byDay := indexByDay(rows)

		window := make([]*entity.LedgerEntry, 0, domledger.DaysBetween(w[0], w[1])+1)
		var negatives []time.Time
		for d := w[0]; !d.After(w[1]); d = domledger.Next(d) {
			e, ok := byDay[d.Format(time.DateOnly)]
			if !ok {
				// Día sin fila: agregados frescos desde los sincronizadores, nunca copiados.
				e, err = p.backfill.fresh(ctx, key.WithDay(d), carry)
				if err != nil {
					return p.interrupted(report, key, err)
				}
			}
			e.OpeningQty = carry
			carry = e.Recompute()
			if e.NegativeStock() {
				negatives = append(negatives, e.Day)
			}
			window = append(window, e)
		}

		if _, err := p.store.UpsertBatch(ctx, window); err != nil {
			return p.interrupted(report, key, err)
		}
		report.DaysDone += len(window)
		report.LastCommittedDay = w[1]
		report.NegativeDays = append(report.NegativeDays, negatives...)
		if req.OnProgress != nil {
			req.OnProgress(report.DaysDone, report.DaysTotal)
		}
	}

	report.Status = entity.PropagationCompleted
	return report, nil
}

// Resume reanuda una corrida desde req.Key.Day: la apertura de ese día se vuelve a derivar del
// cierre de la fila anterior, así que es válido reanudar desde cualquier día.
func (p *Propagator) Resume(ctx context.Context, req PropagateRequest) (*entity.PropagationReport, error) {
	prev, err := p.store.Previous(ctx, req.Key.LocationID, req.Key.ItemID, req.Key.Day)
	if err != nil {
		report := &entity.PropagationReport{Origin: req.Key, Today: domledger.DayOf(req.Today, nil)}
		return p.interrupted(report, req.Key, err)
	}
	if prev != nil {
		req.Key = req.Key.WithDay(prev.Day)
	}
	return p.Run(ctx, req)
}

func (p *Propagator) interrupted(report *entity.PropagationReport, key entity.LedgerKey, cause error) (*entity.PropagationReport, error) {
	report.Status = entity.PropagationPartial
	if report.LastCommittedDay.IsZero() {
		report.ResumeFrom = key.Day
	} else {
		report.ResumeFrom = domledger.Next(report.LastCommittedDay)
	}
	if errors.Is(cause, domain.ErrPropagationInterrupted) {
		return report, cause
	}
	return report, fmt.Errorf("%w: %s, reanudar desde %s: %w",
		domain.ErrPropagationInterrupted, key.Series(), report.ResumeFrom.Format(time.DateOnly), cause)
}
