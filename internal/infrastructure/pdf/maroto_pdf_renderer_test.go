package pdf_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturx/internal/domain/entity"
	"github.com/jhoicas/facturx/internal/domain/facturx"
	"github.com/jhoicas/facturx/internal/infrastructure/pdf"
)

func testInvoice() *entity.Invoice {
	return &entity.Invoice{
		Number:    "FA-2024-0007",
		IssueDate: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		Seller: entity.Party{
			LegalName:       "Atelier Dupont SARL",
			AddressLines:    []string{"12 rue de la Paix"},
			PostalCode:      "75002",
			City:            "Paris",
			CountryID:       "FR",
			TaxID:           "FR44732829320",
			TradeRegistryID: "73282932000074",
		},
		Buyer: entity.Party{LegalName: "Client Martin", City: "Lyon"},
		Lines: []entity.LineItem{
			{Description: "Conseil", Quantity: decimal.NewFromInt(2), UnitPriceNet: decimal.RequireFromString("1250.00"), VATRate: decimal.NewFromInt(20)},
			{Description: "Livres", Quantity: decimal.NewFromInt(3), UnitPriceNet: decimal.RequireFromString("12.90"), VATRate: decimal.RequireFromString("5.5")},
		},
	}
}

func TestRenderInvoicePDF_GeneraPDF(t *testing.T) {
	inv := testInvoice()
	totals, err := facturx.ComputeTotals(inv.Lines)
	require.NoError(t, err)

	out, err := pdf.NewMarotoPDFRenderer("facturx").RenderInvoicePDF(context.Background(), inv, totals)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")), "la salida debe ser un PDF")
}

func TestRenderInvoicePDF_NoModificaEntradas(t *testing.T) {
	inv := testInvoice()
	totals, err := facturx.ComputeTotals(inv.Lines)
	require.NoError(t, err)

	before := *inv
	beforeNet := totals.TotalNet.StringFixed(2)
	_, err = pdf.NewMarotoPDFRenderer("facturx").RenderInvoicePDF(context.Background(), inv, totals)
	require.NoError(t, err)

	assert.Equal(t, before.Number, inv.Number)
	assert.Equal(t, before.Seller.LegalName, inv.Seller.LegalName)
	assert.Len(t, inv.Lines, 2)
	assert.Equal(t, beforeNet, totals.TotalNet.StringFixed(2))
}

func TestRenderInvoicePDF_FacturaNula(t *testing.T) {
	_, err := pdf.NewMarotoPDFRenderer("facturx").RenderInvoicePDF(context.Background(), nil, entity.TotalsBreakdown{})
	assert.Error(t, err)
}
