package ledger

import (
	"fmt"
	"time"
)

// DayOf normaliza un instante al día calendario en loc, representado como medianoche UTC.
// Si loc es nil se usa UTC.
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay interpreta "AAAA-MM-DD" como día del libro.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("día inválido %q: %w", s, err)
	}
	return t, nil
}

// Next devuelve el día calendario siguiente.
func Next(day time.Time) time.Time {
	return day.AddDate(0, 0, 1)
}

// Prev devuelve el día calendario anterior.
func Prev(day time.Time) time.Time {
	return day.AddDate(0, 0, -1)
}

// DaysBetween cuenta los días desde from hasta to (negativo si to es anterior).
// Ambos deben estar normalizados con DayOf. Usa segundos Unix: time.Duration
// se satura pasados ~292 años.
func DaysBetween(from, to time.Time) int {
	return int((to.Unix() - from.Unix()) / 86400)
}

// Windows parte el rango [from, to] en ventanas consecutivas de a lo sumo size días.
// Cada ventana es [inicio, fin] inclusive.
func Windows(from, to time.Time, size int) [][2]time.Time {
	if size <= 0 {
		size = 1
	}
	var out [][2]time.Time
	for start := from; !start.After(to); {
		end := start.AddDate(0, 0, size-1)
		if end.After(to) {
			end = to
		}
		out = append(out, [2]time.Time{start, end})
		start = Next(end)
	}
	return out
}
