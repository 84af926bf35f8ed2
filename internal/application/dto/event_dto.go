package dto

import "time"

// ReceiptRequest body para POST/PUT /api/receipts.
type ReceiptRequest struct {
	PermitNo   string `json:"permit_no"`
	LocationID string `json:"location_id"`
	ItemID     string `json:"item_id"`
	Day        string `json:"day"`
	Qty        int64  `json:"qty"`
}

// ReceiptResponse entrada registrada.
type ReceiptResponse struct {
	ID         string    `json:"id"`
	PermitNo   string    `json:"permit_no"`
	LocationID string    `json:"location_id"`
	ItemID     string    `json:"item_id"`
	Day        string    `json:"day"`
	Qty        int64     `json:"qty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SaleRequest body para POST/PUT /api/sales.
type SaleRequest struct {
	LocationID string `json:"location_id"`
	ItemID     string `json:"item_id"`
	Day        string `json:"day"`
	Qty        int64  `json:"qty"`
}

// SaleResponse venta registrada.
type SaleResponse struct {
	ID         string    `json:"id"`
	LocationID string    `json:"location_id"`
	ItemID     string    `json:"item_id"`
	Day        string    `json:"day"`
	Qty        int64     `json:"qty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EventMutationResponse evento más las cascadas que disparó.
type EventMutationResponse struct {
	Receipt      *ReceiptResponse            `json:"receipt,omitempty"`
	Sale         *SaleResponse               `json:"sale,omitempty"`
	Propagations []PropagationReportResponse `json:"propagations"`
}
