package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturx/internal/infrastructure/postgres"
)

// nextval simula una secuencia que empieza en start.
func nextval(start int64) func([]any) pgx.Row {
	n := start - 1
	return func([]any) pgx.Row {
		return rowFunc(func(dest ...any) error {
			n++
			*(dest[0].(*int64)) = n
			return nil
		})
	}
}

func failingRow(err error) func([]any) pgx.Row {
	return func([]any) pgx.Row {
		return rowFunc(func(...any) error { return err })
	}
}

func TestInvoiceSequence_Next(t *testing.T) {
	q := &fakeQuerier{row: nextval(42)}
	seq := postgres.NewInvoiceSequence(q, "facturx_invoice_number_seq", "FA-")

	n, err := seq.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "FA-000042", n)
	assert.Equal(t, []any{"facturx_invoice_number_seq"}, q.args, "el nombre viaja como parámetro, no concatenado")

	n, err = seq.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "FA-000043", n)
}

func TestInvoiceSequence_SecuenciaInexistente(t *testing.T) {
	q := &fakeQuerier{row: failingRow(&pgconn.PgError{Code: "42P01", Message: "relation does not exist"})}
	_, err := postgres.NewInvoiceSequence(q, "missing_seq", "").Next(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no existe")

	q.row = failingRow(errors.New("conexión cerrada"))
	_, err = postgres.NewInvoiceSequence(q, "s", "").Next(context.Background())
	assert.ErrorContains(t, err, "conexión cerrada")
}

func TestInvoiceSequence_EnsureSequence(t *testing.T) {
	q := &fakeQuerier{}
	seq := postgres.NewInvoiceSequence(q, "billing.invoice_seq", "")
	require.NoError(t, seq.EnsureSequence(context.Background(), 100))
	require.Len(t, q.execs, 1)
	assert.Equal(t, `CREATE SEQUENCE IF NOT EXISTS "billing"."invoice_seq" START WITH 100`, q.execs[0])
}
