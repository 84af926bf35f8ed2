package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
)

// PropagationHandler consulta y cancela propagaciones en segundo plano.
type PropagationHandler struct {
	jobs *ledger.Jobs
}

// NewPropagationHandler construye el handler.
func NewPropagationHandler(jobs *ledger.Jobs) *PropagationHandler {
	return &PropagationHandler{jobs: jobs}
}

// Get godoc
// @Summary      Estado de una propagación ("N de M días")
// @Tags         propagations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del trabajo"
// @Success      200  {object}  dto.JobResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/propagations/{id} [get]
func (h *PropagationHandler) Get(c *fiber.Ctx) error {
	snap, err := h.jobs.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toJobResponse(snap))
}

// Cancel godoc
// @Summary      Cancelar una propagación
// @Description  Se detiene al terminar la ventana en curso; queda reanudable.
// @Tags         propagations
// @Security     Bearer
// @Param        id   path  string  true  "ID del trabajo"
// @Success      202
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/propagations/{id} [delete]
func (h *PropagationHandler) Cancel(c *fiber.Ctx) error {
	if err := h.jobs.Cancel(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}
