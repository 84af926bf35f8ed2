package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	domledger "github.com/jhoicas/stock-ledger/internal/domain/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// EventHandler recibe las notificaciones de entradas (permisos de traslado) y ventas.
// Cada cambio corre evento → resync → propagar sobre las celdas afectadas.
type EventHandler struct {
	svc      *ledger.Service
	receipts repository.ReceiptEventRepository
}

// NewEventHandler construye el handler.
func NewEventHandler(svc *ledger.Service, receipts repository.ReceiptEventRepository) *EventHandler {
	return &EventHandler{svc: svc, receipts: receipts}
}

func receiptInput(in dto.ReceiptRequest) (ledger.ReceiptInput, error) {
	day, err := domledger.ParseDay(in.Day)
	if err != nil {
		return ledger.ReceiptInput{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return ledger.ReceiptInput{PermitNo: in.PermitNo, LocationID: in.LocationID, ItemID: in.ItemID, Day: day, Qty: in.Qty}, nil
}

func saleInput(in dto.SaleRequest) (ledger.SaleInput, error) {
	day, err := domledger.ParseDay(in.Day)
	if err != nil {
		return ledger.SaleInput{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return ledger.SaleInput{LocationID: in.LocationID, ItemID: in.ItemID, Day: day, Qty: in.Qty}, nil
}

// CreateReceipt godoc
// @Summary      Registrar entrada por permiso de traslado
// @Tags         receipts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiptRequest  true  "permit_no, location_id, item_id, day, qty"
// @Success      201  {object}  dto.EventMutationResponse
// @Success      202  {object}  dto.PartialPropagationResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/receipts [post]
func (h *EventHandler) CreateReceipt(c *fiber.Ctx) error {
	var body dto.ReceiptRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	in, err := receiptInput(body)
	if err != nil {
		return respondError(c, err)
	}
	ev, reports, err := h.svc.CreateReceipt(c.Context(), in)
	return respondPropagation(c, reports, err, func() error {
		return c.Status(fiber.StatusCreated).JSON(dto.EventMutationResponse{Receipt: toReceiptResponse(ev), Propagations: toReportsResponse(reports)})
	})
}

// UpdateReceipt godoc
// @Summary      Modificar entrada (puede cambiar de local, ítem o día)
// @Tags         receipts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "ID de la entrada"
// @Param        body  body  dto.ReceiptRequest  true  "Datos nuevos"
// @Success      200  {object}  dto.EventMutationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/receipts/{id} [put]
func (h *EventHandler) UpdateReceipt(c *fiber.Ctx) error {
	var body dto.ReceiptRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	in, err := receiptInput(body)
	if err != nil {
		return respondError(c, err)
	}
	ev, reports, err := h.svc.UpdateReceipt(c.Context(), c.Params("id"), in)
	return respondPropagation(c, reports, err, func() error {
		return c.JSON(dto.EventMutationResponse{Receipt: toReceiptResponse(ev), Propagations: toReportsResponse(reports)})
	})
}

// DeleteReceipt godoc
// @Summary      Eliminar entrada
// @Tags         receipts
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la entrada"
// @Success      200  {object}  dto.EventMutationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/receipts/{id} [delete]
func (h *EventHandler) DeleteReceipt(c *fiber.Ctx) error {
	reports, err := h.svc.DeleteReceipt(c.Context(), c.Params("id"))
	return respondPropagation(c, reports, err, func() error {
		return c.JSON(dto.EventMutationResponse{Propagations: toReportsResponse(reports)})
	})
}

// ListReceiptsByPermit godoc
// @Summary      Entradas de un permiso de traslado
// @Tags         receipts
// @Security     Bearer
// @Produce      json
// @Param        permit_no  query  string  true  "Número de permiso"
// @Success      200  {array}   dto.ReceiptResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/receipts [get]
func (h *EventHandler) ListReceiptsByPermit(c *fiber.Ctx) error {
	permitNo := c.Query("permit_no")
	if permitNo == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "permit_no es requerido"})
	}
	list, err := h.receipts.ListByPermit(c.Context(), permitNo)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]*dto.ReceiptResponse, 0, len(list))
	for _, ev := range list {
		out = append(out, toReceiptResponse(ev))
	}
	return c.JSON(out)
}

// CreateSale godoc
// @Summary      Registrar venta
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SaleRequest  true  "location_id, item_id, day, qty"
// @Success      201  {object}  dto.EventMutationResponse
// @Success      202  {object}  dto.PartialPropagationResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *EventHandler) CreateSale(c *fiber.Ctx) error {
	var body dto.SaleRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	in, err := saleInput(body)
	if err != nil {
		return respondError(c, err)
	}
	ev, reports, err := h.svc.CreateSale(c.Context(), in)
	return respondPropagation(c, reports, err, func() error {
		return c.Status(fiber.StatusCreated).JSON(dto.EventMutationResponse{Sale: toSaleResponse(ev), Propagations: toReportsResponse(reports)})
	})
}

// UpdateSale godoc
// @Summary      Modificar venta
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string           true  "ID de la venta"
// @Param        body  body  dto.SaleRequest  true  "Datos nuevos"
// @Success      200  {object}  dto.EventMutationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id} [put]
func (h *EventHandler) UpdateSale(c *fiber.Ctx) error {
	var body dto.SaleRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	in, err := saleInput(body)
	if err != nil {
		return respondError(c, err)
	}
	ev, reports, err := h.svc.UpdateSale(c.Context(), c.Params("id"), in)
	return respondPropagation(c, reports, err, func() error {
		return c.JSON(dto.EventMutationResponse{Sale: toSaleResponse(ev), Propagations: toReportsResponse(reports)})
	})
}

// DeleteSale godoc
// @Summary      Eliminar venta
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.EventMutationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id} [delete]
func (h *EventHandler) DeleteSale(c *fiber.Ctx) error {
	reports, err := h.svc.DeleteSale(c.Context(), c.Params("id"))
	return respondPropagation(c, reports, err, func() error {
		return c.JSON(dto.EventMutationResponse{Propagations: toReportsResponse(reports)})
	})
}
