package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

type migrateCmd struct {
	down bool
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "aplica (o revierte) el esquema del libro en PostgreSQL" }
func (*migrateCmd) Usage() string {
	return `ledgerctl migrate [-down]

  Aplica las migraciones embebidas sobre DATABASE_URL (o DB_*). Con -down las revierte todas.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.down, "down", false, "Revertir todas las migraciones.")
}

func (c *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		return fail("cargar configuración: %v", err)
	}
	log := logger.New(logger.Config{Env: "development", Level: cfg.App.LogLevel})
	m, err := postgres.NewMigrator(cfg.DB.ConnectionString(), log)
	if err != nil {
		return fail("%v", err)
	}
	defer m.Close()

	if c.down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil {
		return fail("%v", err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return fail("%v", err)
	}
	fmt.Printf("versión del esquema: %d (dirty=%v)\n", version, dirty)
	return subcommands.ExitSuccess
}
