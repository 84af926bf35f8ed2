package dto

import "time"

// LedgerEntryResponse fila diaria del libro.
type LedgerEntryResponse struct {
	LocationID    string    `json:"location_id"`
	ItemID        string    `json:"item_id"`
	Day           string    `json:"day"` // AAAA-MM-DD
	OpeningQty    int64     `json:"opening_qty"`
	ReceiptQty    int64     `json:"receipt_qty"`
	SaleQty       int64     `json:"sale_qty"`
	ClosingQty    int64     `json:"closing_qty"`
	NegativeStock bool      `json:"negative_stock"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LedgerRangeResponse filas de un rango de días.
type LedgerRangeResponse struct {
	Items        []LedgerEntryResponse `json:"items"`
	Total        int                   `json:"total"`
	NegativeDays int                   `json:"negative_days"`
}

// EditOpeningRequest body para PUT /api/ledger/{location}/{item}/{day}/opening.
type EditOpeningRequest struct {
	OpeningQty *int64 `json:"opening_qty"`
	Async      bool   `json:"async"`
}

// PropagationReportResponse resultado de una cascada.
type PropagationReportResponse struct {
	LocationID       string   `json:"location_id"`
	ItemID           string   `json:"item_id"`
	Origin           string   `json:"origin"`
	Today            string   `json:"today"`
	DaysTotal        int      `json:"days_total"`
	DaysDone         int      `json:"days_done"`
	LastCommittedDay string   `json:"last_committed_day,omitempty"`
	ResumeFrom       string   `json:"resume_from,omitempty"`
	Status           string   `json:"status"`
	NegativeDays     []string `json:"negative_days,omitempty"`
}

// PartialPropagationResponse la cascada se interrumpió; el libro es consistente hasta
// last_committed_day y se reanuda desde resume_from.
type PartialPropagationResponse struct {
	Code    string                      `json:"code"`
	Message string                      `json:"message"`
	Reports []PropagationReportResponse `json:"reports"`
}

// JobAcceptedResponse propagación lanzada en segundo plano.
type JobAcceptedResponse struct {
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
}

// JobResponse estado de un trabajo de propagación.
type JobResponse struct {
	ID         string                     `json:"id"`
	LocationID string                     `json:"location_id"`
	ItemID     string                     `json:"item_id"`
	Day        string                     `json:"day"`
	Status     string                     `json:"status"`
	DaysDone   int                        `json:"days_done"`
	DaysTotal  int                        `json:"days_total"`
	Report     *PropagationReportResponse `json:"report,omitempty"`
	Error      string                     `json:"error,omitempty"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt *time.Time                 `json:"finished_at,omitempty"`
}

// ViolationResponse fila que rompe el balance o la continuidad.
type ViolationResponse struct {
	Kind     string `json:"kind"`
	Day      string `json:"day"`
	Expected int64  `json:"expected"`
	Actual   int64  `json:"actual"`
}

// ContinuityResponse resultado de la verificación de un rango.
type ContinuityResponse struct {
	Consistent bool                `json:"consistent"`
	Violations []ViolationResponse `json:"violations"`
}

// AutoFillResponse resultado del autollenado de un local.
type AutoFillResponse struct {
	LocationID string `json:"location_id"`
	Today      string `json:"today"`
	Items      int    `json:"items"`
	Created    int    `json:"created"`
	Existing   int    `json:"existing"`
}

// ResetLocationResponse filas borradas del libro del local.
type ResetLocationResponse struct {
	LocationID  string `json:"location_id"`
	DeletedRows int64  `json:"deleted_rows"`
}
