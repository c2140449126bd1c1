package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// InvoiceSequence genera números de factura a partir de una SEQUENCE de PostgreSQL.
// nextval es atómico y no transaccional: dos procesos nunca obtienen el mismo valor,
// aunque una factura abortada deja un hueco en la numeración.
type InvoiceSequence struct {
	q      Querier
	name   string
	prefix string
	width  int
}

// NewInvoiceSequence construye la secuencia. Pasar pool o tx (Querier).
// Los números se formatean como prefix + valor con ceros a la izquierda (6 dígitos).
func NewInvoiceSequence(q Querier, sequenceName, prefix string) *InvoiceSequence {
	return &InvoiceSequence{q: q, name: sequenceName, prefix: prefix, width: 6}
}

// EnsureSequence crea la secuencia si no existe.
func (s *InvoiceSequence) EnsureSequence(ctx context.Context, start int64) error {
	ident := pgx.Identifier(strings.Split(s.name, ".")).Sanitize()
	query := fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s START WITH %d", ident, start)
	if _, err := s.q.Exec(ctx, query); err != nil {
		return fmt.Errorf("crear secuencia %s: %w", s.name, err)
	}
	return nil
}

// Next devuelve el siguiente número de factura.
func (s *InvoiceSequence) Next(ctx context.Context) (string, error) {
	var n int64
	err := s.q.QueryRow(ctx, `SELECT nextval($1::regclass)`, s.name).Scan(&n)
	if err != nil {
		if isUndefinedTable(err) {
			return "", fmt.Errorf("secuencia %s no existe: %w", s.name, err)
		}
		return "", fmt.Errorf("nextval %s: %w", s.name, err)
	}
	return fmt.Sprintf("%s%0*d", s.prefix, s.width, n), nil
}
