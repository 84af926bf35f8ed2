package entity

import (
	"fmt"
	"time"
)

// LedgerKey identifica una celda del libro: local, ítem y día calendario (medianoche UTC).
type LedgerKey struct {
	LocationID string
	ItemID     string
	Day        time.Time
}

// String representa la clave como "local/ítem/AAAA-MM-DD" (útil en logs y claves de bloqueo).
func (k LedgerKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.LocationID, k.ItemID, k.Day.Format(time.DateOnly))
}

// Series devuelve la clave de la serie (local, ítem) sin el día.
func (k LedgerKey) Series() string {
	return k.LocationID + "/" + k.ItemID
}

// WithDay devuelve la misma serie en otro día.
func (k LedgerKey) WithDay(day time.Time) LedgerKey {
	k.Day = day
	return k
}

// LedgerEntry es la fila diaria del libro de inventario por local e ítem.
// ReceiptQty y SaleQty son derivados de los eventos externos; ClosingQty se deriva de los demás.
type LedgerEntry struct {
	LocationID string
	ItemID     string
	Day        time.Time
	OpeningQty int64 // puede ser negativo
	ReceiptQty int64 // suma de ReceiptEvent del día
	SaleQty    int64 // suma de SaleEvent del día
	ClosingQty int64
	UpdatedAt  time.Time
}

// Key devuelve la clave de la fila.
func (e *LedgerEntry) Key() LedgerKey {
	return LedgerKey{LocationID: e.LocationID, ItemID: e.ItemID, Day: e.Day}
}

// Recompute aplica el balance: cierre = apertura + entradas - ventas.
func (e *LedgerEntry) Recompute() int64 {
	e.ClosingQty = e.OpeningQty + e.ReceiptQty - e.SaleQty
	return e.ClosingQty
}

// Balanced indica si la fila cumple el balance tal como está.
func (e *LedgerEntry) Balanced() bool {
	return e.ClosingQty == e.OpeningQty+e.ReceiptQty-e.SaleQty
}

// NegativeStock marca cierres negativos; se permiten pero se advierten.
func (e *LedgerEntry) NegativeStock() bool {
	return e.ClosingQty < 0
}

// SameValues compara las cantidades (no la marca de tiempo).
func (e *LedgerEntry) SameValues(o *LedgerEntry) bool {
	return e.OpeningQty == o.OpeningQty &&
		e.ReceiptQty == o.ReceiptQty &&
		e.SaleQty == o.SaleQty &&
		e.ClosingQty == o.ClosingQty
}

// HasActivity indica si la fila tiene algún valor distinto de cero.
func (e *LedgerEntry) HasActivity() bool {
	return e.OpeningQty != 0 || e.ReceiptQty != 0 || e.SaleQty != 0 || e.ClosingQty != 0
}
