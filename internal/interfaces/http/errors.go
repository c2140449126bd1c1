package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturx/internal/application/dto"
	"github.com/jhoicas/facturx/internal/domain"
	"github.com/jhoicas/facturx/pkg/logger"
)

const internalErrorMessage = "error interno al generar la factura"

// writeError traduce un error del pipeline a una respuesta HTTP.
//
//   - 422 Unprocessable Entity → datos del usuario (tasa no admitida, factura vacía, campo inválido).
//   - 409 Conflict → número de factura ya emitido.
//   - 500 Internal Server Error → cualquier otro error, incluida la inconsistencia de redondeo.
//     El detalle solo va al log; el cliente recibe un mensaje fijo.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	if domain.IsUserError(err) {
		resp := dto.ErrorResponse{
			Code:    userErrorCode(err),
			Message: firstLine(err),
			Field:   domain.FieldOf(err),
		}
		if details := strings.Split(err.Error(), "\n"); len(details) > 1 {
			resp.Details = details
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
	}
	if errors.Is(err, domain.ErrDuplicateInvoiceNumber) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:    "DUPLICATE_NUMBER",
			Message: domain.ErrDuplicateInvoiceNumber.Error(),
			Field:   "number",
		})
	}
	code := "INTERNAL"
	if errors.Is(err, domain.ErrRoundingInconsistency) {
		code = "ROUNDING_INCONSISTENCY"
	}
	if log != nil {
		log.Error().Err(err).Str("path", c.Path()).Str("code", code).Msg("error interno")
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: code, Message: internalErrorMessage})
}

func userErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidTaxRate):
		return "INVALID_TAX_RATE"
	case errors.Is(err, domain.ErrEmptyInvoice):
		return "EMPTY_INVOICE"
	default:
		return "VALIDATION"
	}
}

// firstLine primer mensaje de un error agregado con errors.Join.
func firstLine(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}
