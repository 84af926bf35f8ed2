// Package bootstrap arma el almacén del libro (PostgreSQL o memoria) y el candado por serie
// a partir de la configuración. Lo comparten la API y ledgerctl.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Backend repositorios, transacciones y candado listos para ledger.NewService.
type Backend struct {
	Ledger   repository.LedgerRepository
	Receipts repository.ReceiptEventRepository
	Sales    repository.SaleEventRepository
	Tx       ledger.TxRunner
	Locker   ledger.KeyLocker

	closers []func()
}

// Open conecta el almacén indicado por STORE_DRIVER y el candado (Redis si REDIS_ADDR está definido).
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Backend, error) {
	b := &Backend{}
	switch cfg.Ledger.StoreDriver {
	case "memory":
		mem := memory.New()
		b.Ledger, b.Receipts, b.Sales, b.Tx = mem.Ledger(), mem.Receipts(), mem.Sales(), mem
		log.Warn().Msg("almacén en memoria: el libro no sobrevive a un reinicio")
	default:
		if cfg.DB.AutoMigrate {
			if err := Migrate(cfg.DB, log); err != nil {
				return nil, err
			}
		}
		pool, err := postgres.NewPool(ctx, cfg.DB, log)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.Ledger = postgres.NewLedgerRepository(pool)
		b.Receipts = postgres.NewReceiptEventRepository(pool)
		b.Sales = postgres.NewSaleEventRepository(pool)
		b.Tx = postgres.NewTxRunner(pool)
	}

	if cfg.Redis.Addr != "" {
		rl, err := lock.NewRedisLocker(cfg.Redis, cfg.Ledger.LockTTL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("conexión a Redis: %w", err)
		}
		b.closers = append(b.closers, func() { _ = rl.Close() })
		b.Locker = rl
		log.Info().Str("addr", cfg.Redis.Addr).Msg("candado por serie en Redis")
	} else {
		b.Locker = lock.NewMemoryLocker()
	}
	return b, nil
}

// Migrate aplica las migraciones embebidas sobre la base configurada.
func Migrate(cfg config.DBConfig, log *logger.Logger) error {
	m, err := postgres.NewMigrator(cfg.ConnectionString(), log)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

// Service construye el servicio del libro sobre este backend.
func (b *Backend) Service(cfg *config.Config, log *logger.Logger) (*ledger.Service, error) {
	tz, err := cfg.Ledger.Location()
	if err != nil {
		return nil, fmt.Errorf("zona horaria %q: %w", cfg.Ledger.Timezone, err)
	}
	return ledger.NewService(ledger.Deps{
		Ledger:    b.Ledger,
		Receipts:  b.Receipts,
		Sales:     b.Sales,
		Tx:        b.Tx,
		Locker:    b.Locker,
		Location:  tz,
		BatchSize: cfg.Ledger.BatchSize,
		LockWait:  cfg.Ledger.LockWait,
		Log:       log,
	}), nil
}

// Close libera conexiones en orden inverso.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// Tokens firmador de JWT con JWT_SECRET, JWT_ISSUER y JWT_EXPIRATION_MINUTES.
func Tokens(cfg config.JWTConfig) (*jwt.Signer, error) {
	signer, err := jwt.NewSigner(cfg.Secret, cfg.Issuer, time.Duration(cfg.Expiration)*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET: %w", err)
	}
	return signer, nil
}
