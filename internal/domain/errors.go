package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// ErrConstraintViolation clave duplicada insertada sin semántica de upsert.
	ErrConstraintViolation = errors.New("violación de restricción del libro de inventario")
	// ErrPropagationInterrupted una ventana de la cascada falló; el libro queda consistente
	// hasta el último día confirmado y se puede reanudar desde ahí.
	ErrPropagationInterrupted = errors.New("propagación interrumpida, se requiere reanudar")
	// ErrInconsistentHistory balance o continuidad rotos en días que no estaban en propagación.
	ErrInconsistentHistory = errors.New("historial del libro inconsistente")
	// ErrResyncFailed no se pudo recalcular el agregado de entradas o ventas de una celda.
	ErrResyncFailed = errors.New("resincronización de agregados fallida")
)
