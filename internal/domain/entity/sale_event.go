package entity

import "time"

// SaleEvent venta de un ítem en un local en un día. Pertenece al subsistema de ventas.
type SaleEvent struct {
	ID         string
	LocationID string
	ItemID     string
	Day        time.Time
	Qty        int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Key devuelve la celda del libro afectada por el evento.
func (s *SaleEvent) Key() LedgerKey {
	return LedgerKey{LocationID: s.LocationID, ItemID: s.ItemID, Day: s.Day}
}
