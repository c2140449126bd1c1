package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturx/internal/application/dto"
	"github.com/jhoicas/facturx/pkg/logger"
)

// RequestLogger registra cada petición (método, ruta, estado, duración) con zerolog.
func RequestLogger(log *logger.Logger) fiber.Handler {
	log = log.Component("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error().Err(err)
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
		return err
	}
}

// RequireJSON rechaza con 415 los cuerpos que no se declaran application/json.
func RequireJSON() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ct := strings.ToLower(string(c.Request().Header.ContentType()))
		if !strings.HasPrefix(ct, fiber.MIMEApplicationJSON) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(dto.ErrorResponse{
				Code:    "UNSUPPORTED_MEDIA_TYPE",
				Message: "se espera Content-Type application/json",
			})
		}
		return c.Next()
	}
}
