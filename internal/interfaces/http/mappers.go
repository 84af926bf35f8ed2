package http

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domledger "github.com/jhoicas/stock-ledger/internal/domain/ledger"
)

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func toEntryResponse(e *entity.LedgerEntry) dto.LedgerEntryResponse {
	return dto.LedgerEntryResponse{
		LocationID:    e.LocationID,
		ItemID:        e.ItemID,
		Day:           formatDay(e.Day),
		OpeningQty:    e.OpeningQty,
		ReceiptQty:    e.ReceiptQty,
		SaleQty:       e.SaleQty,
		ClosingQty:    e.ClosingQty,
		NegativeStock: e.NegativeStock(),
		UpdatedAt:     e.UpdatedAt,
	}
}

func toRangeResponse(list []*entity.LedgerEntry) dto.LedgerRangeResponse {
	out := dto.LedgerRangeResponse{Items: make([]dto.LedgerEntryResponse, 0, len(list)), Total: len(list)}
	for _, e := range list {
		if e.NegativeStock() {
			out.NegativeDays++
		}
		out.Items = append(out.Items, toEntryResponse(e))
	}
	return out
}

func toReportResponse(r *entity.PropagationReport) dto.PropagationReportResponse {
	out := dto.PropagationReportResponse{
		LocationID:       r.Origin.LocationID,
		ItemID:           r.Origin.ItemID,
		Origin:           formatDay(r.Origin.Day),
		Today:            formatDay(r.Today),
		DaysTotal:        r.DaysTotal,
		DaysDone:         r.DaysDone,
		LastCommittedDay: formatDay(r.LastCommittedDay),
		ResumeFrom:       formatDay(r.ResumeFrom),
		Status:           r.Status,
	}
	for _, d := range r.NegativeDays {
		out.NegativeDays = append(out.NegativeDays, formatDay(d))
	}
	return out
}

func toReportsResponse(reports []*entity.PropagationReport) []dto.PropagationReportResponse {
	out := make([]dto.PropagationReportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, toReportResponse(r))
	}
	return out
}

func toJobResponse(s ledger.JobSnapshot) dto.JobResponse {
	out := dto.JobResponse{
		ID:         s.ID,
		LocationID: s.Key.LocationID,
		ItemID:     s.Key.ItemID,
		Day:        formatDay(s.Key.Day),
		Status:     s.Status,
		DaysDone:   s.DaysDone,
		DaysTotal:  s.DaysTotal,
		Error:      s.Error,
		StartedAt:  s.StartedAt,
	}
	if s.Report != nil {
		r := toReportResponse(s.Report)
		out.Report = &r
	}
	if !s.FinishedAt.IsZero() {
		f := s.FinishedAt
		out.FinishedAt = &f
	}
	return out
}

func toViolationsResponse(vs []domledger.Violation) dto.ContinuityResponse {
	out := dto.ContinuityResponse{Consistent: len(vs) == 0, Violations: make([]dto.ViolationResponse, 0, len(vs))}
	for _, v := range vs {
		out.Violations = append(out.Violations, dto.ViolationResponse{
			Kind:     v.Kind,
			Day:      formatDay(v.Day),
			Expected: v.Expected,
			Actual:   v.Actual,
		})
	}
	return out
}

func toReceiptResponse(ev *entity.ReceiptEvent) *dto.ReceiptResponse {
	return &dto.ReceiptResponse{
		ID:         ev.ID,
		PermitNo:   ev.PermitNo,
		LocationID: ev.LocationID,
		ItemID:     ev.ItemID,
		Day:        formatDay(ev.Day),
		Qty:        ev.Qty,
		CreatedAt:  ev.CreatedAt,
		UpdatedAt:  ev.UpdatedAt,
	}
}

func toSaleResponse(ev *entity.SaleEvent) *dto.SaleResponse {
	return &dto.SaleResponse{
		ID:         ev.ID,
		LocationID: ev.LocationID,
		ItemID:     ev.ItemID,
		Day:        formatDay(ev.Day),
		Qty:        ev.Qty,
		CreatedAt:  ev.CreatedAt,
		UpdatedAt:  ev.UpdatedAt,
	}
}
