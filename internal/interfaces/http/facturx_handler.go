package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturx/internal/application/billing"
	"github.com/jhoicas/facturx/internal/application/dto"
	"github.com/jhoicas/facturx/pkg/logger"
)

// FacturXHandler expone el pipeline Factur-X por HTTP.
type FacturXHandler struct {
	uc  *billing.GenerateFacturXUseCase
	log *logger.Logger
}

// NewFacturXHandler construye el handler.
func NewFacturXHandler(uc *billing.GenerateFacturXUseCase, log *logger.Logger) *FacturXHandler {
	return &FacturXHandler{uc: uc, log: log}
}

// Generate genera el documento Factur-X y lo devuelve como adjunto PDF.
// POST /api/facturx
func (h *FacturXHandler) Generate(c *fiber.Ctx) error {
	var in dto.GenerateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	inv, err := in.ToEntity()
	if err != nil {
		return writeError(c, h.log, err)
	}
	profile, err := in.ParsedProfile(h.uc.DefaultProfile())
	if err != nil {
		return writeError(c, h.log, err)
	}

	res, err := h.uc.Generate(c.UserContext(), inv, profile)
	if err != nil {
		return writeError(c, h.log, err)
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, res.Filename))
	c.Set("X-Invoice-Number", res.InvoiceNumber)
	c.Set("X-Facturx-Profile", string(res.Profile))
	c.Set("X-Facturx-Xml-Sha256", res.XMLDigest)
	return c.Status(fiber.StatusOK).Send(res.PDF)
}

// Totals valida el registro y devuelve el desglose de totales sin generar el documento.
// POST /api/facturx/totals
func (h *FacturXHandler) Totals(c *fiber.Ctx) error {
	var in dto.GenerateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	inv, err := in.ToEntity()
	if err != nil {
		return writeError(c, h.log, err)
	}
	totals, err := h.uc.Preview(c.UserContext(), inv)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewTotalsResponse(inv.Number, inv.CurrencyOrDefault(), totals))
}

// HealthHandler responde a las sondas de disponibilidad.
type HealthHandler struct {
	uc *billing.GenerateFacturXUseCase
}

// NewHealthHandler construye el handler.
func NewHealthHandler(uc *billing.GenerateFacturXUseCase) *HealthHandler {
	return &HealthHandler{uc: uc}
}

// Get GET /health
func (h *HealthHandler) Get(c *fiber.Ctx) error {
	resp := dto.HealthResponse{Status: "ok"}
	if h.uc != nil {
		resp.Profile = string(h.uc.DefaultProfile())
	}
	return c.JSON(resp)
}
