package cii_test

import (
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturx/internal/domain"
	"github.com/jhoicas/facturx/internal/domain/entity"
	domfx "github.com/jhoicas/facturx/internal/domain/facturx"
	"github.com/jhoicas/facturx/internal/infrastructure/cii"
	pkgfacturx "github.com/jhoicas/facturx/pkg/facturx"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testInvoice() *entity.Invoice {
	return &entity.Invoice{
		Number:    "FA-2024-0042",
		IssueDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Seller: entity.Party{
			LegalName:       "Atelier Dupont & Fils",
			AddressLines:    []string{"12 rue de la Paix", "Bâtiment B"},
			PostalCode:      "75002",
			City:            "Paris",
			CountryID:       "FR",
			TaxID:           "FR44732829320",
			TradeRegistryID: "732 829 320 00074",
		},
		Buyer: entity.Party{
			LegalName:    "Client Martin",
			AddressLines: []string{"3 avenue Foch", "Etage 2", "Porte 4", "Code 1234"},
			PostalCode:   "69006",
			City:         "Lyon",
		},
		Lines: []entity.LineItem{
			{Description: "Conseil", Quantity: d("1"), UnitPriceNet: d("50.00"), VATRate: d("20")},
			{Description: "Livres", Quantity: d("1"), UnitPriceNet: d("50.00"), VATRate: d("5.5")},
			{Description: "Export", Quantity: d("1.5"), UnitPriceNet: d("10.125"), VATRate: d("0")},
		},
		Currency:     "EUR",
		PaymentTerms: "Paiement à réception de facture",
	}
}

func build(t *testing.T, inv *entity.Invoice, profile pkgfacturx.Profile) *cii.Document {
	t.Helper()
	totals, err := domfx.ComputeTotals(inv.Lines)
	require.NoError(t, err)
	doc, err := cii.NewXMLBuilderService().Build(&cii.InvoiceBuildContext{Invoice: inv, Totals: totals, Profile: profile})
	require.NoError(t, err)
	return doc
}

func parse(t *testing.T, data []byte) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(data))
	require.NotNil(t, doc.Root())
	return doc.Root()
}

// ──────────────────────────────────────────────────────────────────────────────
// Estructura del documento
// ──────────────────────────────────────────────────────────────────────────────

func TestBuild_Cabecera(t *testing.T) {
	doc := build(t, testInvoice(), pkgfacturx.ProfileBasic)
	data := string(doc.Bytes())

	assert.True(t, strings.HasPrefix(data, `<?xml version="1.0" encoding="UTF-8"?>`), "debe empezar con la declaración XML")
	assert.NotContains(t, data, "<!--", "sin comentarios")

	root := parse(t, doc.Bytes())
	assert.Equal(t, "rsm", root.Space)
	assert.Equal(t, "CrossIndustryInvoice", root.Tag)
	assert.Equal(t, pkgfacturx.NamespaceRAM, root.SelectAttrValue("xmlns:ram", ""))

	var order []string
	for _, c := range root.ChildElements() {
		order = append(order, c.Tag)
	}
	assert.Equal(t, []string{"ExchangedDocumentContext", "ExchangedDocument", "SupplyChainTradeTransaction"}, order)

	assert.Equal(t, pkgfacturx.ProfileBasic.URN(),
		root.FindElement("./rsm:ExchangedDocumentContext/ram:GuidelineSpecifiedDocumentContextParameter/ram:ID").Text())
	assert.Equal(t, "FA-2024-0042", root.FindElement("./rsm:ExchangedDocument/ram:ID").Text())
	assert.Equal(t, "380", root.FindElement("./rsm:ExchangedDocument/ram:TypeCode").Text())
	date := root.FindElement("./rsm:ExchangedDocument/ram:IssueDateTime/udt:DateTimeString")
	assert.Equal(t, "20240315", date.Text())
	assert.Equal(t, "102", date.SelectAttrValue("format", ""))
}

func TestBuild_Lineas(t *testing.T) {
	root := parse(t, build(t, testInvoice(), pkgfacturx.ProfileBasic).Bytes())
	tx := root.FindElement("./rsm:SupplyChainTradeTransaction")

	var order []string
	for _, c := range tx.ChildElements() {
		order = append(order, c.Tag)
	}
	assert.Equal(t, []string{
		"IncludedSupplyChainTradeLineItem", "IncludedSupplyChainTradeLineItem", "IncludedSupplyChainTradeLineItem",
		"ApplicableHeaderTradeAgreement", "ApplicableHeaderTradeDelivery", "ApplicableHeaderTradeSettlement",
	}, order, "líneas antes de los bloques de cabecera")

	items := tx.SelectElements("ram:IncludedSupplyChainTradeLineItem")
	require.Len(t, items, 3)

	third := items[2]
	assert.Equal(t, "3", third.FindElement("./ram:AssociatedDocumentLineDocument/ram:LineID").Text())
	assert.Equal(t, "Export", third.FindElement("./ram:SpecifiedTradeProduct/ram:Name").Text())
	assert.Equal(t, "10.125", third.FindElement(".//ram:ChargeAmount").Text())
	qty := third.FindElement(".//ram:BilledQuantity")
	assert.Equal(t, "1.50", qty.Text())
	assert.Equal(t, "C62", qty.SelectAttrValue("unitCode", ""))
	assert.Equal(t, "Z", third.FindElement(".//ram:CategoryCode").Text(), "tasa 0 usa la categoría Z")
	assert.Equal(t, "0.00", third.FindElement(".//ram:RateApplicablePercent").Text())
	// 1.5 × 10.125 = 15.1875 → 15.19
	assert.Equal(t, "15.19", third.FindElement(".//ram:LineTotalAmount").Text())

	assert.Equal(t, "S", items[1].FindElement(".//ram:CategoryCode").Text())
	assert.Equal(t, "5.50", items[1].FindElement(".//ram:RateApplicablePercent").Text())
}

func TestBuild_Partes(t *testing.T) {
	root := parse(t, build(t, testInvoice(), pkgfacturx.ProfileBasic).Bytes())
	seller := root.FindElement(".//ram:SellerTradeParty")
	require.NotNil(t, seller)

	assert.Equal(t, "Atelier Dupont & Fils", seller.FindElement("./ram:Name").Text())
	legal := seller.FindElement("./ram:SpecifiedLegalOrganization/ram:ID")
	assert.Equal(t, "73282932000074", legal.Text(), "SIRET sin espacios")
	assert.Equal(t, "0002", legal.SelectAttrValue("schemeID", ""))
	vat := seller.FindElement("./ram:SpecifiedTaxRegistration/ram:ID")
	assert.Equal(t, "FR44732829320", vat.Text())
	assert.Equal(t, "VA", vat.SelectAttrValue("schemeID", ""))
	assert.Equal(t, "Bâtiment B", seller.FindElement("./ram:PostalTradeAddress/ram:LineTwo").Text())

	buyer := root.FindElement(".//ram:BuyerTradeParty")
	addr := buyer.FindElement("./ram:PostalTradeAddress")
	assert.Equal(t, "Porte 4, Code 1234", addr.FindElement("./ram:LineThree").Text(), "líneas sobrantes unidas en LineThree")
	assert.Equal(t, "FR", addr.FindElement("./ram:CountryID").Text(), "país por defecto")
	assert.Nil(t, buyer.FindElement("./ram:SpecifiedTaxRegistration"), "sin N° de IVA no hay registro")

	assert.Contains(t, string(build(t, testInvoice(), pkgfacturx.ProfileBasic).Bytes()), "Dupont &amp; Fils", "texto escapado")
}

func TestBuild_Liquidacion(t *testing.T) {
	root := parse(t, build(t, testInvoice(), pkgfacturx.ProfileBasic).Bytes())
	settlement := root.FindElement(".//ram:ApplicableHeaderTradeSettlement")

	assert.Equal(t, "EUR", settlement.FindElement("./ram:InvoiceCurrencyCode").Text())
	taxes := settlement.SelectElements("ram:ApplicableTradeTax")
	require.Len(t, taxes, 3, "una fila por tasa distinta")

	rates := []string{}
	for _, tax := range taxes {
		rates = append(rates, tax.FindElement("./ram:RateApplicablePercent").Text())
	}
	assert.Equal(t, []string{"0.00", "5.50", "20.00"}, rates)
	assert.Equal(t, "2.75", taxes[1].FindElement("./ram:CalculatedAmount").Text())
	assert.Equal(t, "50.00", taxes[1].FindElement("./ram:BasisAmount").Text())

	assert.Equal(t, "Paiement à réception de facture",
		settlement.FindElement("./ram:SpecifiedTradePaymentTerms/ram:Description").Text())

	sum := settlement.FindElement("./ram:SpecifiedTradeSettlementHeaderMonetarySummation")
	assert.Equal(t, "115.19", sum.FindElement("./ram:LineTotalAmount").Text())
	assert.Equal(t, "115.19", sum.FindElement("./ram:TaxBasisTotalAmount").Text())
	taxTotal := sum.FindElement("./ram:TaxTotalAmount")
	assert.Equal(t, "12.75", taxTotal.Text())
	assert.Equal(t, "EUR", taxTotal.SelectAttrValue("currencyID", ""))
	assert.Equal(t, "127.94", sum.FindElement("./ram:GrandTotalAmount").Text())
	assert.Equal(t, "127.94", sum.FindElement("./ram:DuePayableAmount").Text())
}

func TestBuild_PerfilMinimum(t *testing.T) {
	root := parse(t, build(t, testInvoice(), pkgfacturx.ProfileMinimum).Bytes())

	assert.Equal(t, pkgfacturx.ProfileMinimum.URN(), root.FindElement(".//ram:GuidelineSpecifiedDocumentContextParameter/ram:ID").Text())
	assert.Nil(t, root.FindElement(".//ram:IncludedSupplyChainTradeLineItem"), "MINIMUM no transporta líneas")
	assert.Nil(t, root.FindElement(".//ram:ApplicableHeaderTradeSettlement/ram:ApplicableTradeTax"))
	assert.Nil(t, root.FindElement(".//ram:BuyerTradeParty/ram:PostalTradeAddress"))
	assert.Equal(t, "FR", root.FindElement(".//ram:SellerTradeParty/ram:PostalTradeAddress/ram:CountryID").Text())
	assert.Equal(t, "127.94", root.FindElement(".//ram:GrandTotalAmount").Text())
}

func TestBuild_PerfilEN16931(t *testing.T) {
	basic := string(build(t, testInvoice(), pkgfacturx.ProfileBasic).Bytes())
	en := string(build(t, testInvoice(), pkgfacturx.ProfileEN16931).Bytes())
	assert.Equal(t,
		strings.Replace(basic, pkgfacturx.ProfileBasic.URN(), pkgfacturx.ProfileEN16931.URN(), 1), en,
		"EN16931 comparte el árbol de BASIC y cambia el identificador de guía")
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades: determinismo, ida y vuelta, huella canónica
// ──────────────────────────────────────────────────────────────────────────────

func TestBuild_Determinista(t *testing.T) {
	a := build(t, testInvoice(), pkgfacturx.ProfileBasic)
	b := build(t, testInvoice(), pkgfacturx.ProfileBasic)
	assert.Equal(t, a.Bytes(), b.Bytes(), "misma entrada, mismos bytes")

	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Len(t, da, 64)

	other := testInvoice()
	other.Lines[0].UnitPriceNet = d("50.01")
	dc, err := build(t, other, pkgfacturx.ProfileBasic).Digest()
	require.NoError(t, err)
	assert.NotEqual(t, da, dc)
}

func TestReadTotals_IdaYVuelta(t *testing.T) {
	inv := testInvoice()
	totals, err := domfx.ComputeTotals(inv.Lines)
	require.NoError(t, err)
	doc := build(t, inv, pkgfacturx.ProfileBasic)

	read, err := cii.ReadTotals(doc.Bytes())
	require.NoError(t, err)

	assert.Equal(t, totals.TotalNet.StringFixed(2), read.TotalNet.StringFixed(2))
	assert.Equal(t, totals.TotalVAT.StringFixed(2), read.TotalVAT.StringFixed(2))
	assert.Equal(t, totals.TotalGross.StringFixed(2), read.TotalGross.StringFixed(2))
	require.Len(t, read.Rates, len(totals.Rates))
	for i := range totals.Rates {
		assert.True(t, totals.Rates[i].Rate.Equal(read.Rates[i].Rate))
		assert.True(t, totals.Rates[i].Net.Equal(read.Rates[i].Net))
		assert.True(t, totals.Rates[i].VAT.Equal(read.Rates[i].VAT))
	}
	require.NoError(t, domfx.CheckConsistency(read))

	number, err := cii.ReadInvoiceNumber(doc.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "FA-2024-0042", number)

	summary, err := cii.Read(doc.Bytes())
	require.NoError(t, err)
	assert.Equal(t, pkgfacturx.ProfileBasic.URN(), summary.GuidelineID)
	assert.Equal(t, "EUR", summary.Currency)
	assert.True(t, summary.IssueDate.Equal(inv.IssueDate))
}

func TestRead_XMLMalformado(t *testing.T) {
	for name, payload := range map[string]string{
		"no es XML":            "esto no es xml",
		"mal anidado":          "<a><b></a>",
		"raíz ajena":           "<Invoice/>",
		"dos raíces":           "<a/><b/>",
		"prefijo sin declarar": "<rsm:CrossIndustryInvoice/>",
		"importe ilegal":       `<rsm:CrossIndustryInvoice xmlns:rsm="x" xmlns:ram="y"><rsm:SupplyChainTradeTransaction><ram:ApplicableHeaderTradeSettlement><ram:SpecifiedTradeSettlementHeaderMonetarySummation><ram:TaxBasisTotalAmount>abc</ram:TaxBasisTotalAmount></ram:SpecifiedTradeSettlementHeaderMonetarySummation></ram:ApplicableHeaderTradeSettlement></rsm:SupplyChainTradeTransaction></rsm:CrossIndustryInvoice>`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := cii.ReadTotals([]byte(payload))
			assert.ErrorIs(t, err, domain.ErrMalformedStructuredPayload)
		})
	}
}

func TestBuild_ContextoInvalido(t *testing.T) {
	svc := cii.NewXMLBuilderService()
	_, err := svc.Build(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Build(&cii.InvoiceBuildContext{Invoice: testInvoice(), Profile: "EXTENDED"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Build(&cii.InvoiceBuildContext{Invoice: testInvoice()})
	assert.ErrorIs(t, err, cii.ErrTotalsMismatch, "totales sin líneas para un perfil con líneas")
	assert.False(t, domain.IsUserError(err), "un desajuste de totales es un error interno")
}
