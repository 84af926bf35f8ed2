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

var _ repository.ReceiptEventRepository = (*ReceiptEventRepo)(nil)

// ReceiptEventRepo entradas por permiso de traslado sobre PostgreSQL.
type ReceiptEventRepo struct {
	q Querier
}

// NewReceiptEventRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReceiptEventRepository(q Querier) *ReceiptEventRepo {
	return &ReceiptEventRepo{q: q}
}

// Create persiste una entrada.
func (r *ReceiptEventRepo) Create(ctx context.Context, ev *entity.ReceiptEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	} else if _, err := uuid.Parse(ev.ID); err != nil {
		return fmt.Errorf("%w: id %q no es UUID", domain.ErrInvalidInput, ev.ID)
	}
	query := `
		INSERT INTO receipt_events (id, permit_no, location_id, item_id, day, qty, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		ev.ID, ev.PermitNo, ev.LocationID, ev.ItemID, ev.Day, ev.Qty, ev.CreatedAt, ev.UpdatedAt,
	)
	if err != nil {
		return wrapWriteErr("create receipt event", err)
	}
	return nil
}

// GetByID obtiene una entrada por ID.
func (r *ReceiptEventRepo) GetByID(ctx context.Context, id string) (*entity.ReceiptEvent, error) {
	if err := knownID(id); err != nil {
		return nil, err
	}
	query := `
		SELECT id, permit_no, location_id, item_id, day, qty, created_at, updated_at
		FROM receipt_events WHERE id = $1`
	var ev entity.ReceiptEvent
	err := r.q.QueryRow(ctx, query, id).Scan(
		&ev.ID, &ev.PermitNo, &ev.LocationID, &ev.ItemID, &ev.Day, &ev.Qty, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get receipt event: %w", err)
	}
	return &ev, nil
}

// Update reemplaza los datos de la entrada (puede cambiar de celda).
func (r *ReceiptEventRepo) Update(ctx context.Context, ev *entity.ReceiptEvent) error {
	if err := knownID(ev.ID); err != nil {
		return err
	}
	query := `
		UPDATE receipt_events
		SET permit_no = $2, location_id = $3, item_id = $4, day = $5, qty = $6, updated_at = $7
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, ev.ID, ev.PermitNo, ev.LocationID, ev.ItemID, ev.Day, ev.Qty, ev.UpdatedAt)
	if err != nil {
		return wrapWriteErr("update receipt event", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina la entrada.
func (r *ReceiptEventRepo) Delete(ctx context.Context, id string) error {
	if err := knownID(id); err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, `DELETE FROM receipt_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete receipt event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByPermit lista las entradas de un permiso de traslado.
func (r *ReceiptEventRepo) ListByPermit(ctx context.Context, permitNo string) ([]*entity.ReceiptEvent, error) {
	query := `
		SELECT id, permit_no, location_id, item_id, day, qty, created_at, updated_at
		FROM receipt_events WHERE permit_no = $1
		ORDER BY created_at`
	rows, err := r.q.Query(ctx, query, permitNo)
	if err != nil {
		return nil, fmt.Errorf("list receipt events by permit: %w", err)
	}
	defer rows.Close()
	var list []*entity.ReceiptEvent
	for rows.Next() {
		var ev entity.ReceiptEvent
		if err := rows.Scan(&ev.ID, &ev.PermitNo, &ev.LocationID, &ev.ItemID, &ev.Day, &ev.Qty, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan receipt event: %w", err)
		}
		list = append(list, &ev)
	}
	return list, rows.Err()
}

// SumQty suma las entradas de la celda exacta.
func (r *ReceiptEventRepo) SumQty(ctx context.Context, key entity.LedgerKey) (int64, error) {
	query := `
		SELECT COALESCE(SUM(qty), 0)::bigint FROM receipt_events
		WHERE location_id = $1 AND item_id = $2 AND day = $3`
	var sum int64
	if err := r.q.QueryRow(ctx, query, key.LocationID, key.ItemID, key.Day).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum receipt events: %w", err)
	}
	return sum, nil
}
