package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.SaleEventRepository = (*SaleEventRepo)(nil)

// SaleEventRepo ventas sobre PostgreSQL.
type SaleEventRepo struct {
	q Querier
}

// NewSaleEventRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleEventRepository(q Querier) *SaleEventRepo {
	return &SaleEventRepo{q: q}
}

// Create persiste una venta.
func (r *SaleEventRepo) Create(ctx context.Context, ev *entity.SaleEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	} else if _, err := uuid.Parse(ev.ID); err != nil {
		return fmt.Errorf("%w: id %q no es UUID", domain.ErrInvalidInput, ev.ID)
	}
	query := `
		INSERT INTO sale_events (id, location_id, item_id, day, qty, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query, ev.ID, ev.LocationID, ev.ItemID, ev.Day, ev.Qty, ev.CreatedAt, ev.UpdatedAt)
	if err != nil {
		return wrapWriteErr("create sale event", err)
	}
	return nil
}

// GetByID obtiene una venta por ID.
func (r *SaleEventRepo) GetByID(ctx context.Context, id string) (*entity.SaleEvent, error) {
	if err := knownID(id); err != nil {
		return nil, err
	}
	query := `
		SELECT id, location_id, item_id, day, qty, created_at, updated_at
		FROM sale_events WHERE id = $1`
	var ev entity.SaleEvent
	err := r.q.QueryRow(ctx, query, id).Scan(
		&ev.ID, &ev.LocationID, &ev.ItemID, &ev.Day, &ev.Qty, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get sale event: %w", err)
	}
	return &ev, nil
}

// Update reemplaza los datos de la venta.
func (r *SaleEventRepo) Update(ctx context.Context, ev *entity.SaleEvent) error {
	if err := knownID(ev.ID); err != nil {
		return err
	}
	query := `
		UPDATE sale_events
		SET location_id = $2, item_id = $3, day = $4, qty = $5, updated_at = $6
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, ev.ID, ev.LocationID, ev.ItemID, ev.Day, ev.Qty, ev.UpdatedAt)
	if err != nil {
		return wrapWriteErr("update sale event", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina la venta.
func (r *SaleEventRepo) Delete(ctx context.Context, id string) error {
	if err := knownID(id); err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, `DELETE FROM sale_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sale event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SumQty suma las ventas de la celda exacta.
func (r *SaleEventRepo) SumQty(ctx context.Context, key entity.LedgerKey) (int64, error) {
	query := `
		SELECT COALESCE(SUM(qty), 0)::bigint FROM sale_events
		WHERE location_id = $1 AND item_id = $2 AND day = $3`
	var sum int64
	if err := r.q.QueryRow(ctx, query, key.LocationID, key.ItemID, key.Day).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum sale events: %w", err)
	}
	return sum, nil
}
