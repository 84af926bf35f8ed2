package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger   *ledger.Service
	Jobs     *ledger.Jobs
	Receipts repository.ReceiptEventRepository
	Tokens   *jwt.Signer
	Log      *logger.Logger
}

// Router registra las rutas de la API. Todo /api requiere Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	api := app.Group("/api", AuthMiddleware(deps.Tokens))

	anyRole := RequireRole(RoleAdmin, RoleBodeguero, RoleVendedor)
	editors := RequireRole(RoleAdmin, RoleBodeguero)

	// Libro diario
	ledgerHandler := NewLedgerHandler(deps.Ledger, deps.Jobs, log.Component("http"))
	lg := api.Group("/ledger")
	lg.Get("/:location", anyRole, ledgerHandler.ListLocation)
	lg.Delete("/:location", RequireRole(RoleAdmin), ledgerHandler.ResetLocation)
	lg.Post("/:location/autofill", editors, ledgerHandler.AutoFill)
	lg.Get("/:location/:item/continuity", anyRole, ledgerHandler.Continuity)
	lg.Get("/:location/:item", anyRole, ledgerHandler.ListItem)
	lg.Get("/:location/:item/:day", anyRole, ledgerHandler.GetDay)
	lg.Put("/:location/:item/:day/opening", editors, ledgerHandler.EditOpening)
	lg.Post("/:location/:item/:day/resync", editors, ledgerHandler.Resync)
	lg.Post("/:location/:item/:day/resume", editors, ledgerHandler.Resume)

	// Propagaciones en segundo plano
	propHandler := NewPropagationHandler(deps.Jobs)
	props := api.Group("/propagations")
	props.Get("/:id", anyRole, propHandler.Get)
	props.Delete("/:id", editors, propHandler.Cancel)

	// Notificaciones de eventos
	eventHandler := NewEventHandler(deps.Ledger, deps.Receipts)
	receipts := api.Group("/receipts", editors)
	receipts.Get("/", eventHandler.ListReceiptsByPermit)
	receipts.Post("/", eventHandler.CreateReceipt)
	receipts.Put("/:id", eventHandler.UpdateReceipt)
	receipts.Delete("/:id", eventHandler.DeleteReceipt)

	sales := api.Group("/sales", RequireRole(RoleAdmin, RoleVendedor))
	sales.Post("/", eventHandler.CreateSale)
	sales.Put("/:id", eventHandler.UpdateSale)
	sales.Delete("/:id", eventHandler.DeleteSale)
}
