package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

const ledgerColumns = `location_id, item_id, day, opening_qty, receipt_qty, sale_qty, closing_qty, updated_at`

// LedgerRepo implementación de LedgerRepository sobre PostgreSQL (usable con pool o tx).
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador del libro. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Get obtiene la fila de (local, ítem, día).
func (r *LedgerRepo) Get(ctx context.Context, key entity.LedgerKey) (*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM stock_ledger WHERE location_id = $1 AND item_id = $2 AND day = $3`
	e, err := scanEntry(r.q.QueryRow(ctx, query, key.LocationID, key.ItemID, key.Day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

// Previous obtiene la última fila anterior a day para la serie.
func (r *LedgerRepo) Previous(ctx context.Context, locationID, itemID string, day time.Time) (*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM stock_ledger
		WHERE location_id = $1 AND item_id = $2 AND day < $3
		ORDER BY day DESC LIMIT 1`
	e, err := scanEntry(r.q.QueryRow(ctx, query, locationID, itemID, day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get previous ledger entry: %w", err)
	}
	return e, nil
}

// Upsert inserta o actualiza la fila por (location_id, item_id, day).
// Si los valores no cambian no se escribe nada (RowsAffected = 0).
func (r *LedgerRepo) Upsert(ctx context.Context, e *entity.LedgerEntry) (bool, error) {
	query := `
		INSERT INTO stock_ledger (location_id, item_id, day, opening_qty, receipt_qty, sale_qty, closing_qty, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (location_id, item_id, day)
		DO UPDATE SET
			opening_qty = EXCLUDED.opening_qty,
			receipt_qty = EXCLUDED.receipt_qty,
			sale_qty    = EXCLUDED.sale_qty,
			closing_qty = EXCLUDED.closing_qty,
			updated_at  = now()
		WHERE (stock_ledger.opening_qty, stock_ledger.receipt_qty, stock_ledger.sale_qty, stock_ledger.closing_qty)
			IS DISTINCT FROM (EXCLUDED.opening_qty, EXCLUDED.receipt_qty, EXCLUDED.sale_qty, EXCLUDED.closing_qty)`
	tag, err := r.q.Exec(ctx, query,
		e.LocationID, e.ItemID, e.Day,
		e.OpeningQty, e.ReceiptQty, e.SaleQty, e.ClosingQty,
	)
	if err != nil {
		return false, wrapWriteErr("upsert ledger entry", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListRange lista filas del local en [from, to], opcionalmente de un solo ítem.
func (r *LedgerRepo) ListRange(ctx context.Context, locationID, itemID string, from, to time.Time) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM stock_ledger
		WHERE location_id = $1 AND day BETWEEN $2 AND $3`
	args := []any{locationID, from, to}
	if itemID != "" {
		query += ` AND item_id = $4`
		args = append(args, itemID)
	}
	query += ` ORDER BY item_id, day`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger range: %w", err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// ItemsWithHistory ítems del local con al menos un valor distinto de cero.
func (r *LedgerRepo) ItemsWithHistory(ctx context.Context, locationID string) ([]string, error) {
	query := `
		SELECT DISTINCT item_id FROM stock_ledger
		WHERE location_id = $1
		  AND (opening_qty <> 0 OR receipt_qty <> 0 OR sale_qty <> 0 OR closing_qty <> 0)
		ORDER BY item_id`
	rows, err := r.q.Query(ctx, query, locationID)
	if err != nil {
		return nil, fmt.Errorf("list items with history: %w", err)
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan item id: %w", err)
		}
		items = append(items, id)
	}
	return items, rows.Err()
}

// FirstDay primer día con fila de la serie.
func (r *LedgerRepo) FirstDay(ctx context.Context, locationID, itemID string) (time.Time, error) {
	query := `SELECT min(day) FROM stock_ledger WHERE location_id = $1 AND item_id = $2`
	var first *time.Time
	if err := r.q.QueryRow(ctx, query, locationID, itemID).Scan(&first); err != nil {
		return time.Time{}, fmt.Errorf("first ledger day: %w", err)
	}
	if first == nil {
		return time.Time{}, domain.ErrNotFound
	}
	return *first, nil
}

// DeleteLocation borra el libro del local.
func (r *LedgerRepo) DeleteLocation(ctx context.Context, locationID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM stock_ledger WHERE location_id = $1`, locationID)
	if err != nil {
		return 0, fmt.Errorf("delete ledger location: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanEntry(row pgx.Row) (*entity.LedgerEntry, error) {
	var e entity.LedgerEntry
	if err := row.Scan(
		&e.LocationID, &e.ItemID, &e.Day,
		&e.OpeningQty, &e.ReceiptQty, &e.SaleQty, &e.ClosingQty, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}
