// Package numbering asigna números de factura cuando el registro de entrada no trae uno.
package numbering

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// UUIDSequence genera números únicos sin coordinación: prefijo + primeros 12 hex de un UUIDv4.
type UUIDSequence struct {
	prefix string
}

// NewUUIDSequence construye la secuencia basada en UUID.
func NewUUIDSequence(prefix string) *UUIDSequence {
	return &UUIDSequence{prefix: prefix}
}

// Next devuelve un número nuevo.
func (s *UUIDSequence) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generar uuid: %w", err)
	}
	short := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:12])
	return s.prefix + short, nil
}

// CounterSequence contador en memoria, seguro para uso concurrente.
// Su estado vive en el proceso: reiniciar el servicio reinicia la numeración.
type CounterSequence struct {
	prefix string
	next   atomic.Int64
}

// NewCounterSequence crea un contador que empieza en start.
func NewCounterSequence(prefix string, start int64) *CounterSequence {
	s := &CounterSequence{prefix: prefix}
	s.next.Store(start)
	return s
}

// Next devuelve prefix + valor con 6 dígitos como mínimo.
func (s *CounterSequence) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	n := s.next.Add(1) - 1
	return fmt.Sprintf("%s%06d", s.prefix, n), nil
}
