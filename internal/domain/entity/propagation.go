package entity

import "time"

// Estados de una corrida de propagación.
const (
	PropagationCompleted = "completed" // libro consistente hasta hoy
	PropagationPartial   = "partial"   // consistente hasta LastCommittedDay; reanudar desde ResumeFrom
)

// PropagationReport resume una corrida de la cascada de aperturas/cierres.
type PropagationReport struct {
	Origin           LedgerKey
	Today            time.Time
	DaysTotal        int // días posteriores al origen hasta hoy
	DaysDone         int
	LastCommittedDay time.Time
	ResumeFrom       time.Time // cero si la corrida terminó
	Status           string
	NegativeDays     []time.Time // días con cierre negativo (advertencia)
}

// Completed indica si el libro quedó consistente hasta hoy.
func (r *PropagationReport) Completed() bool {
	return r.Status == PropagationCompleted
}

// AutoFillReport resume un autollenado de rango para un local.
type AutoFillReport struct {
	LocationID string
	Today      time.Time
	Items      int
	Created    int
	Existing   int
}
