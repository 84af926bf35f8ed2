package entity

import "time"

// ReceiptEvent entrada de mercancía a un local en un día, agrupada por guía/permiso de traslado.
// Pertenece al subsistema de permisos; el libro solo lee la suma por (local, ítem, día).
type ReceiptEvent struct {
	ID         string
	PermitNo   string
	LocationID string
	ItemID     string
	Day        time.Time
	Qty        int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Key devuelve la celda del libro afectada por el evento.
func (r *ReceiptEvent) Key() LedgerKey {
	return LedgerKey{LocationID: r.LocationID, ItemID: r.ItemID, Day: r.Day}
}
