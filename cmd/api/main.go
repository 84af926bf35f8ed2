package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/bootstrap"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Ledger.StoreDriver).
		Int("batch_size", cfg.Ledger.BatchSize).
		Str("timezone", cfg.Ledger.Timezone).
		Msg("iniciando aplicación")

	ctx := context.Background()
	backend, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacén del libro")
	}
	defer backend.Close()

	svc, err := backend.Service(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar servicio del libro")
	}
	jobs := ledger.NewJobs(cfg.Ledger.JobTTL, nil, log)
	tokens, err := bootstrap.Tokens(cfg.JWT)
	if err != nil {
		log.Fatal().Err(err).Msg("configurar autenticación")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		Immutable:    true, // las claves de serie viajan a trabajos asíncronos
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Minute * 5, // propagaciones síncronas largas
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "today": svc.Today().Format(time.DateOnly)})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:   svc,
		Jobs:     jobs,
		Receipts: backend.Receipts,
		Tokens:   tokens,
		Log:      log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// Las propagaciones en curso se cancelan entre ventanas y quedan reanudables.
	if err := jobs.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("propagaciones sin terminar al apagar")
	}

	log.Info().Msg("aplicación detenida")
}
