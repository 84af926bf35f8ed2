package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domledger "github.com/jhoicas/stock-ledger/internal/domain/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Store es el único punto de escritura del libro. Antes de persistir normaliza el día
// y recalcula el cierre; escribir los mismos valores dos veces no cambia nada.
type Store struct {
	repo repository.LedgerRepository
	tx   TxRunner
}

// NewStore construye el store sobre el repositorio (pool) y el runner de transacciones.
func NewStore(repo repository.LedgerRepository, tx TxRunner) *Store {
	return &Store{repo: repo, tx: tx}
}

// Get devuelve la fila o domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, key entity.LedgerKey) (*entity.LedgerEntry, error) {
	key.Day = domledger.DayOf(key.Day, nil)
	return s.repo.Get(ctx, key)
}

// Previous devuelve la última fila anterior a day o nil.
func (s *Store) Previous(ctx context.Context, locationID, itemID string, day time.Time) (*entity.LedgerEntry, error) {
	return s.repo.Previous(ctx, locationID, itemID, domledger.DayOf(day, nil))
}

// ListRange lista filas del local en [from, to].
func (s *Store) ListRange(ctx context.Context, locationID, itemID string, from, to time.Time) ([]*entity.LedgerEntry, error) {
	return s.repo.ListRange(ctx, locationID, itemID, domledger.DayOf(from, nil), domledger.DayOf(to, nil))
}

// ItemsWithHistory ítems con algún valor distinto de cero en el local.
func (s *Store) ItemsWithHistory(ctx context.Context, locationID string) ([]string, error) {
	return s.repo.ItemsWithHistory(ctx, locationID)
}

// FirstDay primer día registrado de la serie.
func (s *Store) FirstDay(ctx context.Context, locationID, itemID string) (time.Time, error) {
	return s.repo.FirstDay(ctx, locationID, itemID)
}

// Upsert valida, recalcula el cierre y persiste una fila.
func (s *Store) Upsert(ctx context.Context, entry *entity.LedgerEntry) (bool, error) {
	if err := prepare(entry); err != nil {
		return false, err
	}
	return s.repo.Upsert(ctx, entry)
}

// UpsertBatch persiste una ventana de filas en una sola transacción.
// Devuelve cuántas filas cambiaron realmente.
func (s *Store) UpsertBatch(ctx context.Context, entries []*entity.LedgerEntry) (int, error) {
	for _, e := range entries {
		if err := prepare(e); err != nil {
			return 0, err
		}
	}
	changed := 0
	err := s.tx.Run(ctx, func(ledgerRepo repository.LedgerRepository) error {
		changed = 0
		for _, e := range entries {
			ok, err := ledgerRepo.Upsert(ctx, e)
			if err != nil {
				return err
			}
			if ok {
				changed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// DeleteLocation borra el libro completo de un local.
func (s *Store) DeleteLocation(ctx context.Context, locationID string) (int64, error) {
	return s.repo.DeleteLocation(ctx, locationID)
}

func prepare(e *entity.LedgerEntry) error {
	if e.LocationID == "" || e.ItemID == "" || e.Day.IsZero() {
		return fmt.Errorf("%w: clave incompleta", domain.ErrConstraintViolation)
	}
	if e.ReceiptQty < 0 || e.SaleQty < 0 {
		return fmt.Errorf("%w: agregados negativos en %s", domain.ErrConstraintViolation, e.Key())
	}
	e.Day = domledger.DayOf(e.Day, nil)
	e.Recompute()
	return nil
}
