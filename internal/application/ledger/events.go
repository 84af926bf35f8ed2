package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domledger "github.com/jhoicas/stock-ledger/internal/domain/ledger"
)

// ReceiptInput notificación de entrada desde el subsistema de permisos de traslado.
type ReceiptInput struct {
	PermitNo   string
	LocationID string
	ItemID     string
	Day        time.Time
	Qty        int64
}

// SaleInput notificación de venta desde el subsistema de ventas.
type SaleInput struct {
	LocationID string
	ItemID     string
	Day        time.Time
	Qty        int64
}

func (in ReceiptInput) validate() error {
	if in.PermitNo == "" || in.LocationID == "" || in.ItemID == "" || in.Day.IsZero() || in.Qty <= 0 {
		return domain.ErrInvalidInput
	}
	return nil
}

func (in SaleInput) validate() error {
	if in.LocationID == "" || in.ItemID == "" || in.Day.IsZero() || in.Qty <= 0 {
		return domain.ErrInvalidInput
	}
	return nil
}

// CreateReceipt registra la entrada y corre evento → resync → propagar sobre su celda.
func (s *Service) CreateReceipt(ctx context.Context, in ReceiptInput) (*entity.ReceiptEvent, []*entity.PropagationReport, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}
	now := s.clock()
	ev := &entity.ReceiptEvent{
		ID:         uuid.New().String(),
		PermitNo:   in.PermitNo,
		LocationID: in.LocationID,
		ItemID:     in.ItemID,
		Day:        domledger.DayOf(in.Day, nil),
		Qty:        in.Qty,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.receiptRepo.Create(ctx, ev); err != nil {
		return nil, nil, err
	}
	reports, err := s.syncAndPropagate(ctx, s.receipts, ev.Key())
	return ev, reports, err
}

// UpdateReceipt modifica la entrada. Si cambia de celda se resincronizan la anterior y la nueva.
func (s *Service) UpdateReceipt(ctx context.Context, id string, in ReceiptInput) (*entity.ReceiptEvent, []*entity.PropagationReport, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}
	ev, err := s.receiptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	before := ev.Key()
	ev.PermitNo = in.PermitNo
	ev.LocationID = in.LocationID
	ev.ItemID = in.ItemID
	ev.Day = domledger.DayOf(in.Day, nil)
	ev.Qty = in.Qty
	ev.UpdatedAt = s.clock()
	if err := s.receiptRepo.Update(ctx, ev); err != nil {
		return nil, nil, err
	}
	reports, err := s.syncAndPropagate(ctx, s.receipts, before, ev.Key())
	return ev, reports, err
}

// DeleteReceipt elimina la entrada y resincroniza su celda.
func (s *Service) DeleteReceipt(ctx context.Context, id string) ([]*entity.PropagationReport, error) {
	ev, err := s.receiptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.receiptRepo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return s.syncAndPropagate(ctx, s.receipts, ev.Key())
}

// CreateSale registra la venta y corre evento → resync → propagar sobre su celda.
func (s *Service) CreateSale(ctx context.Context, in SaleInput) (*entity.SaleEvent, []*entity.PropagationReport, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}
	now := s.clock()
	ev := &entity.SaleEvent{
		ID:         uuid.New().String(),
		LocationID: in.LocationID,
		ItemID:     in.ItemID,
		Day:        domledger.DayOf(in.Day, nil),
		Qty:        in.Qty,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.saleRepo.Create(ctx, ev); err != nil {
		return nil, nil, err
	}
	reports, err := s.syncAndPropagate(ctx, s.sales, ev.Key())
	return ev, reports, err
}

// UpdateSale modifica la venta. Si cambia de celda se resincronizan la anterior y la nueva.
func (s *Service) UpdateSale(ctx context.Context, id string, in SaleInput) (*entity.SaleEvent, []*entity.PropagationReport, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}
	ev, err := s.saleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	before := ev.Key()
	ev.LocationID = in.LocationID
	ev.ItemID = in.ItemID
	ev.Day = domledger.DayOf(in.Day, nil)
	ev.Qty = in.Qty
	ev.UpdatedAt = s.clock()
	if err := s.saleRepo.Update(ctx, ev); err != nil {
		return nil, nil, err
	}
	reports, err := s.syncAndPropagate(ctx, s.sales, before, ev.Key())
	return ev, reports, err
}

// DeleteSale elimina la venta y resincroniza su celda.
func (s *Service) DeleteSale(ctx context.Context, id string) ([]*entity.PropagationReport, error) {
	ev, err := s.saleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.saleRepo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return s.syncAndPropagate(ctx, s.sales, ev.Key())
}

// syncAndPropagate agrupa las celdas por serie; por cada serie toma el candado, resincroniza
// todas sus celdas y propaga una sola vez desde el día más antiguo.
// Si el resync falla no se propaga: el llamador debe reintentar (ver Service.Resync).
func (s *Service) syncAndPropagate(ctx context.Context, sync *Synchronizer, keys ...entity.LedgerKey) ([]*entity.PropagationReport, error) {
	groups := make(map[string][]entity.LedgerKey)
	var order []string
	for _, k := range keys {
		sk := k.Series()
		if _, ok := groups[sk]; !ok {
			order = append(order, sk)
		}
		if !containsDay(groups[sk], k.Day) {
			groups[sk] = append(groups[sk], k)
		}
	}

	var reports []*entity.PropagationReport
	for _, sk := range order {
		cells := groups[sk]
		sort.Slice(cells, func(i, j int) bool { return cells[i].Day.Before(cells[j].Day) })
		err := s.withSeries(ctx, cells[0], func(ctx context.Context) error {
			for _, k := range cells {
				if _, err := sync.Resync(ctx, k); err != nil {
					s.logResyncFailure(sync, k, err)
					return err
				}
			}
			report, err := s.propagate(ctx, cells[0], nil, false)
			if report != nil {
				reports = append(reports, report)
			}
			return err
		})
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func containsDay(keys []entity.LedgerKey, day time.Time) bool {
	for _, k := range keys {
		if k.Day.Equal(day) {
			return true
		}
	}
	return false
}
