// ledgerctl tareas de operación del libro diario: migraciones, autollenado, propagación,
// verificación de continuidad e importación masiva de eventos.
//
// Uso: ledgerctl <comando> [flags]. La configuración se lee igual que la API (env / .env).
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"
	_ "time/tzdata"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&migrateCmd{}, "esquema")
	commander.Register(&autofillCmd{}, "libro")
	commander.Register(&propagateCmd{}, "libro")
	commander.Register(&verifyCmd{}, "libro")
	commander.Register(&resetCmd{}, "libro")
	commander.Register(&importCmd{}, "eventos")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := commander.Execute(ctx)
	stop()
	os.Exit(int(code))
}
