package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AggregateSource suma las cantidades de eventos externos para una celda exacta del libro.
type AggregateSource interface {
	SumQty(ctx context.Context, key entity.LedgerKey) (int64, error)
}

// ReceiptEventRepository puerto de persistencia de entradas por permiso de traslado.
type ReceiptEventRepository interface {
	AggregateSource
	Create(ctx context.Context, ev *entity.ReceiptEvent) error
	// GetByID devuelve domain.ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*entity.ReceiptEvent, error)
	Update(ctx context.Context, ev *entity.ReceiptEvent) error
	Delete(ctx context.Context, id string) error
	ListByPermit(ctx context.Context, permitNo string) ([]*entity.ReceiptEvent, error)
}

// SaleEventRepository puerto de persistencia de ventas.
type SaleEventRepository interface {
	AggregateSource
	Create(ctx context.Context, ev *entity.SaleEvent) error
	// GetByID devuelve domain.ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*entity.SaleEvent, error)
	Update(ctx context.Context, ev *entity.SaleEvent) error
	Delete(ctx context.Context, id string) error
}
