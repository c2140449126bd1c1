package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturx/internal/application/billing"
	"github.com/jhoicas/facturx/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	GenerateUC *billing.GenerateFacturXUseCase
	Logger     *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	app.Use(RequestLogger(log))

	healthHandler := NewHealthHandler(deps.GenerateUC)
	app.Get("/health", healthHandler.Get)

	api := app.Group("/api")

	// Factur-X: el cuerpo es siempre un registro de factura JSON
	facturx := api.Group("/facturx", RequireJSON())
	facturxHandler := NewFacturXHandler(deps.GenerateUC, log)
	facturx.Post("/", facturxHandler.Generate)
	facturx.Post("/totals", facturxHandler.Totals)
}
