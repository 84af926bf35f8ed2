package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domledger "github.com/jhoicas/stock-ledger/internal/domain/ledger"
)

// ─── autofill ────────────────────────────────────────────────────────────────

type autofillCmd struct {
	location string
}

func (*autofillCmd) Name() string { return "autofill" }
func (*autofillCmd) Synopsis() string {
	return "crea las filas faltantes hasta hoy para los ítems de un local"
}
func (*autofillCmd) Usage() string {
	return `ledgerctl autofill -l <local>
`
}

func (c *autofillCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.location, "l", "", "ID del local.")
}

func (c *autofillCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.location == "" {
		return fail("falta -l")
	}
	e, err := openEnv(ctx)
	if err != nil {
		return fail("%v", err)
	}
	defer e.Close()

	report, err := e.svc.AutoFill(ctx, c.location, progress("ítems"))
	if err != nil {
		return fail("autollenado: %v", err)
	}
	fmt.Printf("%s: %d ítems, %d filas creadas, %d existentes (hoy %s)\n",
		report.LocationID, report.Items, report.Created, report.Existing, report.Today.Format(time.DateOnly))
	return subcommands.ExitSuccess
}

// ─── propagate ───────────────────────────────────────────────────────────────

type propagateCmd struct {
	location string
	item     string
	day      string
	opening  int64
	setOpen  bool
}

func (*propagateCmd) Name() string { return "propagate" }
func (*propagateCmd) Synopsis() string {
	return "propaga (o reanuda) la cascada de una serie desde un día hasta hoy"
}
func (*propagateCmd) Usage() string {
	return `ledgerctl propagate -l <local> -i <ítem> -d <AAAA-MM-DD> [-opening <n>]

  Sin -opening reanuda desde el día indicado (normalmente resume_from de un reporte parcial).
  Con -opening fija la apertura de ese día y propaga.
`
}

func (c *propagateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.location, "l", "", "ID del local.")
	f.StringVar(&c.item, "i", "", "ID del ítem.")
	f.StringVar(&c.day, "d", "", "Día de origen (AAAA-MM-DD).")
	f.Func("opening", "Nueva apertura del día de origen.", func(s string) error {
		_, err := fmt.Sscan(s, &c.opening)
		c.setOpen = err == nil
		return err
	})
}

func (c *propagateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := domledger.ParseDay(c.day)
	if err != nil || c.location == "" || c.item == "" {
		return fail("se requieren -l, -i y -d válidos")
	}
	e, err := openEnv(ctx)
	if err != nil {
		return fail("%v", err)
	}
	defer e.Close()

	key := entity.LedgerKey{LocationID: c.location, ItemID: c.item, Day: day}
	var report *entity.PropagationReport
	if c.setOpen {
		report, err = e.svc.EditOpening(ctx, key, c.opening, progress("días"))
	} else {
		report, err = e.svc.ResumePropagation(ctx, key, progress("días"))
	}
	if errors.Is(err, domain.ErrPropagationInterrupted) && report != nil {
		return fail("interrumpida tras %d de %d días; reanudar con -d %s",
			report.DaysDone, report.DaysTotal, report.ResumeFrom.Format(time.DateOnly))
	}
	if err != nil {
		return fail("propagación: %v", err)
	}
	fmt.Printf("%s: %d días propagados hasta %s", key.Series(), report.DaysDone, report.Today.Format(time.DateOnly))
	if n := len(report.NegativeDays); n > 0 {
		fmt.Printf(" (%d días con stock negativo)", n)
	}
	fmt.Println()
	return subcommands.ExitSuccess
}

// ─── verify ──────────────────────────────────────────────────────────────────

type verifyCmd struct {
	location string
	item     string
	from     string
	to       string
}

func (*verifyCmd) Name() string { return "verify" }
func (*verifyCmd) Synopsis() string {
	return "verifica balance y continuidad de una serie sin corregir nada"
}
func (*verifyCmd) Usage() string {
	return `ledgerctl verify -l <local> -i <ítem> -from <AAAA-MM-DD> [-to <AAAA-MM-DD>]
`
}

func (c *verifyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.location, "l", "", "ID del local.")
	f.StringVar(&c.item, "i", "", "ID del ítem.")
	f.StringVar(&c.from, "from", "", "Primer día del rango.")
	f.StringVar(&c.to, "to", "", "Último día del rango (por defecto hoy).")
}

func (c *verifyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	from, err := domledger.ParseDay(c.from)
	if err != nil {
		return fail("%v", err)
	}
	e, err := openEnv(ctx)
	if err != nil {
		return fail("%v", err)
	}
	defer e.Close()

	to := e.svc.Today()
	if c.to != "" {
		if to, err = domledger.ParseDay(c.to); err != nil {
			return fail("%v", err)
		}
	}
	violations, err := e.svc.CheckContinuity(ctx, c.location, c.item, from, to)
	for _, v := range violations {
		fmt.Println(v.String())
	}
	if err != nil {
		return fail("%v", err)
	}
	fmt.Println("sin violaciones")
	return subcommands.ExitSuccess
}

// ─── reset ───────────────────────────────────────────────────────────────────

type resetCmd struct {
	location string
	yes      bool
}

func (*resetCmd) Name() string     { return "reset" }
func (*resetCmd) Synopsis() string { return "borra el libro de un local (los eventos se conservan)" }
func (*resetCmd) Usage() string {
	return `ledgerctl reset -l <local> -yes
`
}

func (c *resetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.location, "l", "", "ID del local.")
	f.BoolVar(&c.yes, "yes", false, "Confirmar el borrado.")
}

func (c *resetCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.location == "" || !c.yes {
		return fail("se requieren -l y -yes")
	}
	e, err := openEnv(ctx)
	if err != nil {
		return fail("%v", err)
	}
	defer e.Close()

	n, err := e.svc.ResetLocation(ctx, c.location)
	if err != nil {
		return fail("%v", err)
	}
	fmt.Printf("%s: %d filas borradas\n", c.location, n)
	return subcommands.ExitSuccess
}
