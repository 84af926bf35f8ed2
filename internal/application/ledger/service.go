package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domledger "github.com/jhoicas/stock-ledger/internal/domain/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// DefaultLockWait tiempo máximo esperando el candado de una serie.
const DefaultLockWait = 30 * time.Second

// Deps dependencias del servicio del libro.
type Deps struct {
	Ledger    repository.LedgerRepository
	Receipts  repository.ReceiptEventRepository
	Sales     repository.SaleEventRepository
	Tx        TxRunner
	Locker    KeyLocker
	Clock     Clock
	Location  *time.Location // zona horaria para calcular "hoy"
	BatchSize int
	LockWait  time.Duration
	Log       *logger.Logger
}

// Service expone el libro a la UI, reportes y subsistemas de entradas/ventas.
// Es el único lugar que mantiene balance y continuidad: nadie más recalcula aperturas o cierres.
type Service struct {
	store       *Store
	receipts    *Synchronizer
	sales       *Synchronizer
	backfill    *Backfill
	propagator  *Propagator
	receiptRepo repository.ReceiptEventRepository
	saleRepo    repository.SaleEventRepository
	locker      KeyLocker
	clock       Clock
	tz          *time.Location
	batchSize   int
	lockWait    time.Duration
	log         *logger.Logger
}

// NewService arma store, sincronizadores, backfill y motor de propagación.
func NewService(d Deps) *Service {
	if d.BatchSize <= 0 {
		d.BatchSize = DefaultBatchSize
	}
	if d.LockWait <= 0 {
		d.LockWait = DefaultLockWait
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}

	store := NewStore(d.Ledger, d.Tx)
	receipts := newSynchronizer(KindReceipt, d.Receipts, store)
	sales := newSynchronizer(KindSale, d.Sales, store)
	backfill := newBackfill(store, receipts, sales, d.BatchSize)
	receipts.seed = backfill.seed
	sales.seed = backfill.seed

	return &Service{
		store:       store,
		receipts:    receipts,
		sales:       sales,
		backfill:    backfill,
		propagator:  newPropagator(store, backfill, d.BatchSize),
		receiptRepo: d.Receipts,
		saleRepo:    d.Sales,
		locker:      d.Locker,
		clock:       d.Clock,
		tz:          d.Location,
		batchSize:   d.BatchSize,
		lockWait:    d.LockWait,
		log:         d.Log.Component("ledger"),
	}
}

// Today día calendario actual en la zona configurada.
func (s *Service) Today() time.Time {
	return domledger.DayOf(s.clock(), s.tz)
}

// GetDay devuelve la fila de un día. Sin backfill y sin fila devuelve domain.ErrNotFound.
func (s *Service) GetDay(ctx context.Context, key entity.LedgerKey, backfill bool) (*entity.LedgerEntry, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if !backfill {
		return s.store.Get(ctx, key)
	}
	var entry *entity.LedgerEntry
	err := s.withSeries(ctx, key, func(ctx context.Context) error {
		var err error
		entry, _, err = s.backfill.Ensure(ctx, key)
		return err
	})
	return entry, err
}

// GetRange lista las filas de [from, to]. Con backfill y un ítem concreto crea los días faltantes
// hasta hoy antes de leer.
func (s *Service) GetRange(ctx context.Context, locationID, itemID string, from, to time.Time, backfill bool) ([]*entity.LedgerEntry, error) {
	from, to = domledger.DayOf(from, nil), domledger.DayOf(to, nil)
	if locationID == "" || from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, domain.ErrInvalidInput
	}
	if backfill && itemID != "" {
		end := to
		if today := s.Today(); end.After(today) {
			end = today
		}
		if !end.Before(from) {
			series := entity.LedgerKey{LocationID: locationID, ItemID: itemID, Day: from}
			err := s.withSeries(ctx, series, func(ctx context.Context) error {
				_, _, err := s.backfill.FillRange(ctx, locationID, itemID, from, end)
				return err
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return s.store.ListRange(ctx, locationID, itemID, from, to)
}

// EditOpening fija la apertura de un día (creando la fila si falta) y propaga hasta hoy.
func (s *Service) EditOpening(ctx context.Context, key entity.LedgerKey, opening int64, onProgress ProgressFunc) (*entity.PropagationReport, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	var report *entity.PropagationReport
	err := s.withSeries(ctx, key, func(ctx context.Context) error {
		entry, _, err := s.backfill.Ensure(ctx, key)
		if err != nil {
			return err
		}
		entry.OpeningQty = opening
		if _, err := s.store.Upsert(ctx, entry); err != nil {
			return err
		}
		report, err = s.propagate(ctx, key, onProgress, false)
		return err
	})
	return report, err
}

// Resync recalcula entradas y ventas de una celda y propaga. Es el reintento esperado cuando
// una notificación de evento terminó en domain.ErrResyncFailed.
func (s *Service) Resync(ctx context.Context, key entity.LedgerKey, onProgress ProgressFunc) (*entity.PropagationReport, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	var report *entity.PropagationReport
	err := s.withSeries(ctx, key, func(ctx context.Context) error {
		for _, sync := range []*Synchronizer{s.receipts, s.sales} {
			if _, err := sync.Resync(ctx, key); err != nil {
				s.logResyncFailure(sync, key, err)
				return err
			}
		}
		var err error
		report, err = s.propagate(ctx, key, onProgress, false)
		return err
	})
	return report, err
}

// ResumePropagation reanuda una cascada interrumpida desde el día indicado (normalmente
// PropagationReport.ResumeFrom).
func (s *Service) ResumePropagation(ctx context.Context, key entity.LedgerKey, onProgress ProgressFunc) (*entity.PropagationReport, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	var report *entity.PropagationReport
	err := s.withSeries(ctx, key, func(ctx context.Context) error {
		var err error
		report, err = s.propagate(ctx, key, onProgress, true)
		return err
	})
	return report, err
}

// CheckContinuity revisa balance y continuidad en [from, to]. Si hay violaciones las devuelve junto con
// domain.ErrInconsistentHistory; no corrige nada.
func (s *Service) CheckContinuity(ctx context.Context, locationID, itemID string, from, to time.Time) ([]domledger.Violation, error) {
	if locationID == "" || itemID == "" || to.Before(from) {
		return nil, domain.ErrInvalidInput
	}
	rows, err := s.store.ListRange(ctx, locationID, itemID, from, to)
	if err != nil {
		return nil, err
	}
	violations := domledger.CheckContinuity(rows)
	if len(violations) > 0 {
		s.log.Series(locationID, itemID).Warn().
			Int("violations", len(violations)).
			Str("first", violations[0].String()).
			Msg("historial inconsistente")
		return violations, fmt.Errorf("%w: %s/%s: %d violaciones", domain.ErrInconsistentHistory, locationID, itemID, len(violations))
	}
	return nil, nil
}

// AutoFill asegura filas hasta hoy para cada ítem con historial distinto de cero en el local.
func (s *Service) AutoFill(ctx context.Context, locationID string, onProgress ProgressFunc) (*entity.AutoFillReport, error) {
	if locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	today := s.Today()
	items, err := s.store.ItemsWithHistory(ctx, locationID)
	if err != nil {
		return nil, err
	}
	report := &entity.AutoFillReport{LocationID: locationID, Today: today, Items: len(items)}
	for i, itemID := range items {
		first, err := s.store.FirstDay(ctx, locationID, itemID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return report, err
		}
		if first.After(today) {
			continue
		}
		series := entity.LedgerKey{LocationID: locationID, ItemID: itemID, Day: first}
		err = s.withSeries(ctx, series, func(ctx context.Context) error {
			created, existing, err := s.backfill.FillRange(ctx, locationID, itemID, first, today)
			report.Created += created
			report.Existing += existing
			return err
		})
		if err != nil {
			return report, err
		}
		if onProgress != nil {
			onProgress(i+1, len(items))
		}
	}
	s.log.Info().
		Str("location_id", locationID).
		Int("items", report.Items).
		Int("created", report.Created).
		Msg("autollenado del libro completado")
	return report, nil
}

// ResetLocation borra todo el libro del local. Los eventos externos no se tocan.
func (s *Service) ResetLocation(ctx context.Context, locationID string) (int64, error) {
	if locationID == "" {
		return 0, domain.ErrInvalidInput
	}
	n, err := s.store.DeleteLocation(ctx, locationID)
	if err != nil {
		return 0, err
	}
	s.log.Warn().Str("location_id", locationID).Int64("rows", n).Msg("libro del local reiniciado")
	return n, nil
}

// propagate corre el motor hasta hoy; requiere el candado de la serie.
func (s *Service) propagate(ctx context.Context, key entity.LedgerKey, onProgress ProgressFunc, resume bool) (*entity.PropagationReport, error) {
	req := PropagateRequest{Key: key, Today: s.Today(), BatchSize: s.batchSize, OnProgress: onProgress}
	var (
		report *entity.PropagationReport
		err    error
	)
	if resume {
		report, err = s.propagator.Resume(ctx, req)
	} else {
		report, err = s.propagator.Run(ctx, req)
	}
	log := s.log.Series(key.LocationID, key.ItemID)
	if err != nil {
		ev := log.Error().Err(err).
			Str("day", key.Day.Format(time.DateOnly))
		if report != nil {
			ev = ev.Int("days_done", report.DaysDone).
				Int("days_total", report.DaysTotal).
				Str("resume_from", report.ResumeFrom.Format(time.DateOnly))
		}
		ev.Msg("propagación interrumpida")
		return report, err
	}
	ev := log.Debug()
	if len(report.NegativeDays) > 0 {
		ev = log.Warn().Int("negative_days", len(report.NegativeDays))
	}
	ev.Str("from", report.Origin.Day.Format(time.DateOnly)).
		Int("days", report.DaysDone).
		Msg("propagación completada")
	return report, nil
}

// withSeries ejecuta fn con el candado de (local, ítem) tomado.
func (s *Service) withSeries(ctx context.Context, key entity.LedgerKey, fn func(ctx context.Context) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	unlock, err := s.locker.Lock(lockCtx, key.Series())
	cancel()
	if err != nil {
		return fmt.Errorf("%w: serie %s ocupada: %w", domain.ErrConflict, key.Series(), err)
	}
	defer unlock()
	return fn(ctx)
}

func (s *Service) logResyncFailure(sync *Synchronizer, key entity.LedgerKey, err error) {
	s.log.Series(key.LocationID, key.ItemID).Error().Err(err).
		Str("kind", sync.Kind()).
		Str("day", key.Day.Format(time.DateOnly)).
		Msg("resincronización fallida, no se propaga")
}

func validateKey(key entity.LedgerKey) error {
	if key.LocationID == "" || key.ItemID == "" || key.Day.IsZero() {
		return domain.ErrInvalidInput
	}
	return nil
}
