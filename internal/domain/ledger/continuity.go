package ledger

import (
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Tipos de violación detectados por CheckContinuity.
const (
	ViolationBalance    = "balance"    // cierre != apertura + entradas - ventas
	ViolationContinuity = "continuity" // apertura(d+1) != cierre(d)
)

// Violation describe una fila que rompe el balance o la continuidad.
type Violation struct {
	Kind     string
	Day      time.Time
	Expected int64
	Actual   int64
}

func (v Violation) String() string {
	return fmt.Sprintf("%s en %s: esperado %d, encontrado %d", v.Kind, v.Day.Format(time.DateOnly), v.Expected, v.Actual)
}

// CheckContinuity revisa una serie de filas de un mismo (local, ítem) ordenadas por día.
// Solo compara días consecutivos; un hueco en el calendario no es violación.
func CheckContinuity(entries []*entity.LedgerEntry) []Violation {
	var out []Violation
	var prev *entity.LedgerEntry
	for _, e := range entries {
		if !e.Balanced() {
			out = append(out, Violation{
				Kind:     ViolationBalance,
				Day:      e.Day,
				Expected: e.OpeningQty + e.ReceiptQty - e.SaleQty,
				Actual:   e.ClosingQty,
			})
		}
		if prev != nil && Next(prev.Day).Equal(e.Day) && e.OpeningQty != prev.ClosingQty {
			out = append(out, Violation{
				Kind:     ViolationContinuity,
				Day:      e.Day,
				Expected: prev.ClosingQty,
				Actual:   e.OpeningQty,
			})
		}
		prev = e
	}
	return out
}
