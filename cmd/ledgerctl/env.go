package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/bootstrap"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// env configuración, logger y servicio ya armados para un comando.
type env struct {
	cfg     *config.Config
	log     *logger.Logger
	backend *bootstrap.Backend
	svc     *ledger.Service
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: "development", Level: cfg.App.LogLevel, Output: os.Stderr})
	backend, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	svc, err := backend.Service(cfg, log)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &env{cfg: cfg, log: log, backend: backend, svc: svc}, nil
}

func (e *env) Close() { e.backend.Close() }

// fail imprime el error y devuelve ExitFailure.
func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitFailure
}

// progress imprime "N de M" en stderr sobre la misma línea.
func progress(label string) ledger.ProgressFunc {
	return func(done, total int) {
		fmt.Fprintf(os.Stderr, "\r%s: %d de %d", label, done, total)
		if done >= total {
			fmt.Fprintln(os.Stderr)
		}
	}
}
