package ledger

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando el repositorio del libro
// atado a esa tx. Cada ventana de la propagación se confirma con una sola llamada.
type TxRunner interface {
	Run(ctx context.Context, fn func(ledgerRepo repository.LedgerRepository) error) error
}

// KeyLocker serializa el trabajo sobre una serie (local, ítem): como máximo una propagación
// en curso por serie. Lock bloquea hasta obtener el candado o hasta que ctx termine.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Clock devuelve el instante actual; se inyecta para fijar "hoy" en tests.
type Clock func() time.Time

// ProgressFunc recibe días procesados y total tras cada ventana confirmada.
type ProgressFunc func(done, total int)
