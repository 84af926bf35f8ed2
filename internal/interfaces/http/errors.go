package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// respondError traduce los errores de dominio a status y código HTTP.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrConstraintViolation):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONSTRAINT_VIOLATION", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrResyncFailed):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "RESYNC_FAILED", Message: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

// respondPropagation responde 200 con el resultado o, si la cascada quedó a medias, 202 con los
// reportes parciales para que el cliente reanude.
func respondPropagation(c *fiber.Ctx, reports []*entity.PropagationReport, err error, ok func() error) error {
	if err == nil {
		return ok()
	}
	if errors.Is(err, domain.ErrPropagationInterrupted) {
		out := dto.PartialPropagationResponse{
			Code:    "PROPAGATION_INTERRUPTED",
			Message: err.Error(),
			Reports: make([]dto.PropagationReportResponse, 0, len(reports)),
		}
		for _, r := range reports {
			if r != nil {
				out.Reports = append(out.Reports, toReportResponse(r))
			}
		}
		return c.Status(fiber.StatusAccepted).JSON(out)
	}
	return respondError(c, err)
}
