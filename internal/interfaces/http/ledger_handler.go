package http

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domledger "github.com/jhoicas/stock-ledger/internal/domain/ledger"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// LedgerHandler maneja las peticiones HTTP del libro diario (protegido).
type LedgerHandler struct {
	svc  *ledger.Service
	jobs *ledger.Jobs
	log  *logger.Logger
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(svc *ledger.Service, jobs *ledger.Jobs, log *logger.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, jobs: jobs, log: log}
}

// dayRange lee from/to; si faltan usa los últimos 30 días hasta hoy.
func (h *LedgerHandler) dayRange(c *fiber.Ctx) (from, to time.Time, err error) {
	to = h.svc.Today()
	if s := c.Query("to"); s != "" {
		if to, err = domledger.ParseDay(s); err != nil {
			return from, to, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
	}
	from = to.AddDate(0, 0, -(ledger.DefaultBatchSize - 1))
	if s := c.Query("from"); s != "" {
		if from, err = domledger.ParseDay(s); err != nil {
			return from, to, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
	}
	return from, to, nil
}

// keyFromParams copia los parámetros: fiber reutiliza el buffer de la petición y la
// clave puede sobrevivir a ella en una propagación asíncrona.
func keyFromParams(c *fiber.Ctx) (entity.LedgerKey, error) {
	day, err := domledger.ParseDay(c.Params("day"))
	if err != nil {
		return entity.LedgerKey{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return entity.LedgerKey{
		LocationID: utils.CopyString(c.Params("location")),
		ItemID:     utils.CopyString(c.Params("item")),
		Day:        day,
	}, nil
}

// ListLocation godoc
// @Summary      Libro del local (todos los ítems)
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        location  path   string  true   "ID del local"
// @Param        from      query  string  false  "AAAA-MM-DD"
// @Param        to        query  string  false  "AAAA-MM-DD"
// @Success      200  {object}  dto.LedgerRangeResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/ledger/{location} [get]
func (h *LedgerHandler) ListLocation(c *fiber.Ctx) error {
	from, to, err := h.dayRange(c)
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.svc.GetRange(c.Context(), c.Params("location"), "", from, to, false)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toRangeResponse(list))
}

// ListItem godoc
// @Summary      Libro de un ítem en un rango de días
// @Description  Con backfill=true crea los días faltantes hasta hoy antes de leer.
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        location  path   string  true   "ID del local"
// @Param        item      path   string  true   "ID del ítem"
// @Param        from      query  string  false  "AAAA-MM-DD"
// @Param        to        query  string  false  "AAAA-MM-DD"
// @Param        backfill  query  bool    false  "Crear días faltantes"
// @Success      200  {object}  dto.LedgerRangeResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/ledger/{location}/{item} [get]
func (h *LedgerHandler) ListItem(c *fiber.Ctx) error {
	from, to, err := h.dayRange(c)
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.svc.GetRange(c.Context(), c.Params("location"), c.Params("item"), from, to, c.QueryBool("backfill", false))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toRangeResponse(list))
}

// GetDay godoc
// @Summary      Fila de un día
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        location  path   string  true   "ID del local"
// @Param        item      path   string  true   "ID del ítem"
// @Param        day       path   string  true   "AAAA-MM-DD"
// @Param        backfill  query  bool    false  "Crear la fila si falta"
// @Success      200  {object}  dto.LedgerEntryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/{location}/{item}/{day} [get]
func (h *LedgerHandler) GetDay(c *fiber.Ctx) error {
	key, err := keyFromParams(c)
	if err != nil {
		return respondError(c, err)
	}
	e, err := h.svc.GetDay(c.Context(), key, c.QueryBool("backfill", false))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toEntryResponse(e))
}

// EditOpening godoc
// @Summary      Editar la apertura de un día y propagar hasta hoy
// @Description  Con async=true la cascada corre en segundo plano y se consulta en /api/propagations/{id}.
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        location  path  string                  true  "ID del local"
// @Param        item      path  string                  true  "ID del ítem"
// @Param        day       path  string                  true  "AAAA-MM-DD"
// @Param        body      body  dto.EditOpeningRequest  true  "opening_qty"
// @Success      200  {object}  dto.PropagationReportResponse
// @Success      202  {object}  dto.PartialPropagationResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/ledger/{location}/{item}/{day}/opening [put]
func (h *LedgerHandler) EditOpening(c *fiber.Ctx) error {
	key, err := keyFromParams(c)
	if err != nil {
		return respondError(c, err)
	}
	var in dto.EditOpeningRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.OpeningQty == nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "opening_qty es requerido"})
	}
	opening := *in.OpeningQty

	h.log.Info().
		Str("user_id", GetUserID(c)).
		Str("company_id", GetCompanyID(c)).
		Str("key", key.String()).
		Int64("opening_qty", opening).
		Msg("edición de apertura")

	run := func(ctx context.Context, onProgress ledger.ProgressFunc) (*entity.PropagationReport, error) {
		return h.svc.EditOpening(ctx, key, opening, onProgress)
	}
	if in.Async {
		return h.startJob(c, key, run)
	}
	report, err := run(c.Context(), nil)
	return respondPropagation(c, []*entity.PropagationReport{report}, err, func() error {
		return c.JSON(toReportResponse(report))
	})
}

// Resync godoc
// @Summary      Recalcular entradas y ventas de un día y propagar
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        location  path  string  true  "ID del local"
// @Param        item      path  string  true  "ID del ítem"
// @Param        day       path  string  true  "AAAA-MM-DD"
// @Success      200  {object}  dto.PropagationReportResponse
// @Success      202  {object}  dto.PartialPropagationResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/ledger/{location}/{item}/{day}/resync [post]
func (h *LedgerHandler) Resync(c *fiber.Ctx) error {
	key, err := keyFromParams(c)
	if err != nil {
		return respondError(c, err)
	}
	report, err := h.svc.Resync(c.Context(), key, nil)
	return respondPropagation(c, []*entity.PropagationReport{report}, err, func() error {
		return c.JSON(toReportResponse(report))
	})
}

// Resume godoc
// @Summary      Reanudar una propagación interrumpida
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        location  path   string  true   "ID del local"
// @Param        item      path   string  true   "ID del ítem"
// @Param        day       path   string  true   "Día desde el que se reanuda (resume_from)"
// @Param        async     query  bool    false  "Correr en segundo plano"
// @Success      200  {object}  dto.PropagationReportResponse
// @Success      202  {object}  dto.JobAcceptedResponse
// @Router       /api/ledger/{location}/{item}/{day}/resume [post]
func (h *LedgerHandler) Resume(c *fiber.Ctx) error {
	key, err := keyFromParams(c)
	if err != nil {
		return respondError(c, err)
	}
	run := func(ctx context.Context, onProgress ledger.ProgressFunc) (*entity.PropagationReport, error) {
		return h.svc.ResumePropagation(ctx, key, onProgress)
	}
	if c.QueryBool("async", false) {
		return h.startJob(c, key, run)
	}
	report, err := run(c.Context(), nil)
	return respondPropagation(c, []*entity.PropagationReport{report}, err, func() error {
		return c.JSON(toReportResponse(report))
	})
}

// Continuity godoc
// @Summary      Verificar balance y continuidad de un rango
// @Description  No corrige nada: solo reporta las filas inconsistentes.
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        location  path   string  true   "ID del local"
// @Param        item      path   string  true   "ID del ítem"
// @Param        from      query  string  false  "AAAA-MM-DD"
// @Param        to        query  string  false  "AAAA-MM-DD"
// @Success      200  {object}  dto.ContinuityResponse
// @Failure      409  {object}  dto.ContinuityResponse
// @Router       /api/ledger/{location}/{item}/continuity [get]
func (h *LedgerHandler) Continuity(c *fiber.Ctx) error {
	from, to, err := h.dayRange(c)
	if err != nil {
		return respondError(c, err)
	}
	violations, err := h.svc.CheckContinuity(c.Context(), c.Params("location"), c.Params("item"), from, to)
	if errors.Is(err, domain.ErrInconsistentHistory) {
		return c.Status(fiber.StatusConflict).JSON(toViolationsResponse(violations))
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toViolationsResponse(violations))
}

// AutoFill godoc
// @Summary      Crear filas hasta hoy para todos los ítems con historial del local
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        location  path  string  true  "ID del local"
// @Success      200  {object}  dto.AutoFillResponse
// @Router       /api/ledger/{location}/autofill [post]
func (h *LedgerHandler) AutoFill(c *fiber.Ctx) error {
	report, err := h.svc.AutoFill(c.Context(), c.Params("location"), nil)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.AutoFillResponse{
		LocationID: report.LocationID,
		Today:      formatDay(report.Today),
		Items:      report.Items,
		Created:    report.Created,
		Existing:   report.Existing,
	})
}

// ResetLocation godoc
// @Summary      Borrar el libro completo de un local
// @Description  Los eventos de entradas y ventas no se tocan. Solo admin.
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        location  path  string  true  "ID del local"
// @Success      200  {object}  dto.ResetLocationResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/ledger/{location} [delete]
func (h *LedgerHandler) ResetLocation(c *fiber.Ctx) error {
	locationID := c.Params("location")
	n, err := h.svc.ResetLocation(c.Context(), locationID)
	if err != nil {
		return respondError(c, err)
	}
	h.log.Warn().Str("user_id", GetUserID(c)).Str("location_id", locationID).Msg("reinicio de libro solicitado")
	return c.JSON(dto.ResetLocationResponse{LocationID: locationID, DeletedRows: n})
}

func (h *LedgerHandler) startJob(c *fiber.Ctx, key entity.LedgerKey, fn ledger.JobFunc) error {
	id := h.jobs.Start(key, fn)
	return c.Status(fiber.StatusAccepted).JSON(dto.JobAcceptedResponse{
		JobID:     id,
		StatusURL: "/api/propagations/" + id,
	})
}
