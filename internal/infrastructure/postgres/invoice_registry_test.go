package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturx/internal/domain"
	"github.com/jhoicas/facturx/internal/domain/entity"
	"github.com/jhoicas/facturx/internal/infrastructure/postgres"
)

func issued() *entity.IssuedInvoice {
	return &entity.IssuedInvoice{
		Number:     "FA-000042",
		IssueDate:  time.Date(2024, 9, 17, 0, 0, 0, 0, time.UTC),
		Profile:    "BASIC",
		SellerName: "Atelier Dupont SARL",
		BuyerName:  "Librairie Martin",
		Currency:   "EUR",
		TotalNet:   decimal.RequireFromString("115.19"),
		TotalVAT:   decimal.RequireFromString("15.03"),
		TotalGross: decimal.RequireFromString("130.22"),
		XMLDigest:  "ab",
	}
}

func TestInvoiceRegistry_Record(t *testing.T) {
	q := &fakeQuerier{}
	reg := postgres.NewInvoiceRegistry(q)
	rec := issued()

	require.NoError(t, reg.Record(context.Background(), rec))
	assert.NotEmpty(t, rec.ID, "se asigna un UUID")
	assert.False(t, rec.CreatedAt.IsZero())

	require.Len(t, q.execArgs, 1)
	args := q.execArgs[0]
	require.Len(t, args, 12)
	assert.Equal(t, "FA-000042", args[1])
	gross, ok := args[9].(decimal.Decimal)
	require.True(t, ok, "los importes se envían como decimal.Decimal")
	assert.Equal(t, "130.22", gross.StringFixed(2))
}

func TestInvoiceRegistry_NumeroDuplicado(t *testing.T) {
	q := &fakeQuerier{execErr: &pgconn.PgError{Code: "23505"}}
	err := postgres.NewInvoiceRegistry(q).Record(context.Background(), issued())
	assert.ErrorIs(t, err, domain.ErrDuplicateInvoiceNumber)
}

func TestInvoiceRegistry_FindByNumber(t *testing.T) {
	q := &fakeQuerier{row: func([]any) pgx.Row {
		return rowFunc(func(dest ...any) error {
			want := issued()
			*(dest[1].(*string)) = want.Number
			*(dest[9].(*decimal.Decimal)) = want.TotalGross
			return nil
		})
	}}
	rec, err := postgres.NewInvoiceRegistry(q).FindByNumber(context.Background(), "FA-000042")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "FA-000042", rec.Number)
	assert.Equal(t, []any{"FA-000042"}, q.args)
	assert.True(t, rec.TotalGross.Equal(decimal.RequireFromString("130.22")))

	q.row = failingRow(pgx.ErrNoRows)
	rec, err = postgres.NewInvoiceRegistry(q).FindByNumber(context.Background(), "FA-404")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestInvoiceRegistry_EnsureSchema(t *testing.T) {
	q := &fakeQuerier{}
	require.NoError(t, postgres.NewInvoiceRegistry(q).EnsureSchema(context.Background()))
	require.Len(t, q.execs, 1)
	assert.Contains(t, q.execs[0], "CREATE TABLE IF NOT EXISTS facturx_issued_invoices")
	assert.Contains(t, q.execs[0], "number      TEXT NOT NULL UNIQUE")
}
