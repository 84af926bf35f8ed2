package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Tipos de sincronizador.
const (
	KindReceipt = "receipt"
	KindSale    = "sale"
)

// Synchronizer mantiene el agregado de entradas (o ventas) de una celda igual a la suma de sus eventos.
// Resync nunca propaga: quien lo invoca debe correr la propagación después (evento → resync → propagar).
type Synchronizer struct {
	kind   string
	source repository.AggregateSource
	store  *Store
	seed   func(ctx context.Context, key entity.LedgerKey) (*entity.LedgerEntry, error)
}

func newSynchronizer(kind string, source repository.AggregateSource, store *Store) *Synchronizer {
	return &Synchronizer{kind: kind, source: source, store: store}
}

// Kind devuelve "receipt" o "sale".
func (s *Synchronizer) Kind() string { return s.kind }

// Sum calcula el agregado fresco de la celda sin escribir nada.
func (s *Synchronizer) Sum(ctx context.Context, key entity.LedgerKey) (int64, error) {
	qty, err := s.source.SumQty(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %w", domain.ErrResyncFailed, s.kind, key, err)
	}
	if qty < 0 {
		return 0, fmt.Errorf("%w: suma %s negativa en %s", domain.ErrConstraintViolation, s.kind, key)
	}
	return qty, nil
}

// Resync recalcula el agregado de la celda, lo escribe en la fila (creándola si no existe con la
// regla de backfill) y devuelve el nuevo cierre.
func (s *Synchronizer) Resync(ctx context.Context, key entity.LedgerKey) (int64, error) {
	qty, err := s.Sum(ctx, key)
	if err != nil {
		return 0, err
	}
	entry, err := s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		entry, err = s.seed(ctx, key)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %w", domain.ErrResyncFailed, s.kind, key, err)
	}
	s.apply(entry, qty)
	if _, err := s.store.Upsert(ctx, entry); err != nil {
		return 0, fmt.Errorf("%w: %s %s: %w", domain.ErrResyncFailed, s.kind, key, err)
	}
	return entry.ClosingQty, nil
}

func (s *Synchronizer) apply(entry *entity.LedgerEntry, qty int64) {
	switch s.kind {
	case KindReceipt:
		entry.ReceiptQty = qty
	case KindSale:
		entry.SaleQty = qty
	}
	entry.Recompute()
}
