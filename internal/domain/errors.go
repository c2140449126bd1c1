package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrInvalidInput = errors.New("entrada inválida")

	// Errores de datos del usuario: se detectan antes de generar XML o PDF.
	ErrInvalidTaxRate = errors.New("tasa de IVA no admitida")
	ErrEmptyInvoice   = errors.New("la factura no tiene líneas")

	// Errores de empaquetado Factur-X: abortan todo el pipeline.
	ErrMalformedBaseDocument      = errors.New("el PDF base no es un contenedor PDF válido")
	ErrMalformedStructuredPayload = errors.New("el XML CII no es XML bien formado")

	// ErrRoundingInconsistency indica un defecto del calculador (total_gross != total_net + total_vat).
	// Nunca es un error de validación del usuario.
	ErrRoundingInconsistency = errors.New("inconsistencia de redondeo en los totales")

	// ErrDuplicateInvoiceNumber el número ya figura en el registro de facturas emitidas.
	ErrDuplicateInvoiceNumber = errors.New("número de factura ya emitido")
)

// FieldError identifica el campo del registro de entrada que provocó el error.
type FieldError struct {
	Field string // ruta del campo, ej: lines[2].vat_rate
	Value any
	Err   error
}

// NewFieldError construye un FieldError.
func NewFieldError(field string, value any, err error) *FieldError {
	return &FieldError{Field: field, Value: value, Err: err}
}

// Error implementa error.
func (e *FieldError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v (valor: %v)", e.Field, e.Err, e.Value)
}

// Unwrap permite errors.Is contra los errores de dominio.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// FieldOf devuelve el primer campo identificado en la cadena de errores (o "" si no hay ninguno).
func FieldOf(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}

// IsUserError indica si err proviene de datos del usuario (y no de un defecto interno).
func IsUserError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidTaxRate) ||
		errors.Is(err, ErrEmptyInvoice)
}
