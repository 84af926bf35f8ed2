package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LedgerRepository define el puerto de persistencia del libro diario por (local, ítem, día).
// Usable con pool o dentro de una transacción (ver TxRunner).
type LedgerRepository interface {
	// Get devuelve domain.ErrNotFound si no existe la fila.
	Get(ctx context.Context, key entity.LedgerKey) (*entity.LedgerEntry, error)
	// Previous devuelve la última fila estrictamente anterior a day, o nil si no hay historial.
	Previous(ctx context.Context, locationID, itemID string, day time.Time) (*entity.LedgerEntry, error)
	// Upsert inserta o reemplaza la fila de su clave. Devuelve false si los valores ya eran iguales.
	Upsert(ctx context.Context, entry *entity.LedgerEntry) (bool, error)
	// ListRange lista filas del local en [from, to]; itemID vacío = todos los ítems.
	// Orden: ítem, día.
	ListRange(ctx context.Context, locationID, itemID string, from, to time.Time) ([]*entity.LedgerEntry, error)
	// ItemsWithHistory ítems del local con algún valor distinto de cero en su historial.
	ItemsWithHistory(ctx context.Context, locationID string) ([]string, error)
	// FirstDay primer día con fila para (local, ítem); domain.ErrNotFound si no hay.
	FirstDay(ctx context.Context, locationID, itemID string) (time.Time, error)
	// DeleteLocation borra todo el libro de un local (reinicio explícito).
	DeleteLocation(ctx context.Context, locationID string) (int64, error)
}
