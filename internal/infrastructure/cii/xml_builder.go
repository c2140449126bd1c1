package cii

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturx/internal/domain"
	"github.com/jhoicas/facturx/internal/domain/entity"
	pkgfacturx "github.com/jhoicas/facturx/pkg/facturx"
)

// ErrTotalsMismatch los totales recibidos no corresponden a las líneas de la factura.
// Es un defecto del llamador, no un error de datos del usuario.
var ErrTotalsMismatch = errors.New("cii: totales no corresponden a la factura")

// XMLBuilderService construye el XML CII de la factura para un perfil Factur-X.
// No guarda estado: puede usarse en paralelo desde varias peticiones.
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build genera el documento rsm:CrossIndustryInvoice.
// El orden de los elementos es fijo, de modo que la misma entrada produce siempre los mismos bytes.
func (s *XMLBuilderService) Build(ctx *InvoiceBuildContext) (*Document, error) {
	if ctx == nil || ctx.Invoice == nil {
		return nil, fmt.Errorf("cii: %w: falta la factura en el contexto", domain.ErrInvalidInput)
	}
	profile := ctx.Profile
	if profile == "" {
		profile = pkgfacturx.DefaultProfile
	}
	if !profile.Valid() {
		return nil, fmt.Errorf("cii: %w: perfil desconocido %q", domain.ErrInvalidInput, profile)
	}
	inv := ctx.Invoice
	if profile.IncludesLines() && len(ctx.Totals.Lines) != len(inv.Lines) {
		return nil, fmt.Errorf("%w: %d líneas en la factura, %d en los totales",
			ErrTotalsMismatch, len(inv.Lines), len(ctx.Totals.Lines))
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("rsm:CrossIndustryInvoice")
	root.CreateAttr("xmlns:rsm", pkgfacturx.NamespaceRSM)
	root.CreateAttr("xmlns:qdt", pkgfacturx.NamespaceQDT)
	root.CreateAttr("xmlns:ram", pkgfacturx.NamespaceRAM)
	root.CreateAttr("xmlns:udt", pkgfacturx.NamespaceUDT)

	// ---- rsm:ExchangedDocumentContext (perfil)
	guideline := root.CreateElement("rsm:ExchangedDocumentContext").
		CreateElement("ram:GuidelineSpecifiedDocumentContextParameter")
	writeRam(guideline, "ID", profile.URN())

	// ---- rsm:ExchangedDocument (BT-1, BT-3, BT-2)
	exchanged := root.CreateElement("rsm:ExchangedDocument")
	writeRam(exchanged, "ID", inv.Number)
	writeRam(exchanged, "TypeCode", pkgfacturx.DocumentTypeCommercialInvoice)
	issue := exchanged.CreateElement("ram:IssueDateTime").CreateElement("udt:DateTimeString")
	issue.CreateAttr("format", pkgfacturx.DateFormatCCYYMMDD)
	issue.SetText(inv.IssueDate.Format("20060102"))

	tx := root.CreateElement("rsm:SupplyChainTradeTransaction")

	// ---- ram:IncludedSupplyChainTradeLineItem (cada línea)
	if profile.IncludesLines() {
		for i, line := range inv.Lines {
			s.writeLineItem(tx, i+1, line, ctx.Totals.Lines[i])
		}
	}

	// ---- ram:ApplicableHeaderTradeAgreement (vendedor y comprador)
	agreement := tx.CreateElement("ram:ApplicableHeaderTradeAgreement")
	s.writeParty(agreement, "ram:SellerTradeParty", inv.Seller, profile, true)
	s.writeParty(agreement, "ram:BuyerTradeParty", inv.Buyer, profile, false)

	// ---- ram:ApplicableHeaderTradeDelivery (obligatorio aunque vacío)
	tx.CreateElement("ram:ApplicableHeaderTradeDelivery")

	// ---- ram:ApplicableHeaderTradeSettlement
	s.writeSettlement(tx, inv, ctx.Totals, profile)

	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("cii: serializar XML: %w", err)
	}
	return NewDocument(data, inv.Number, profile), nil
}

func (s *XMLBuilderService) writeLineItem(parent *etree.Element, lineID int, line entity.LineItem, amounts entity.LineAmounts) {
	item := parent.CreateElement("ram:IncludedSupplyChainTradeLineItem")
	writeRam(item.CreateElement("ram:AssociatedDocumentLineDocument"), "LineID", fmt.Sprintf("%d", lineID))
	writeRam(item.CreateElement("ram:SpecifiedTradeProduct"), "Name", line.Description)

	price := item.CreateElement("ram:SpecifiedLineTradeAgreement").CreateElement("ram:NetPriceProductTradePrice")
	writeRam(price, "ChargeAmount", formatQuantity(line.UnitPriceNet))

	qty := writeRam(item.CreateElement("ram:SpecifiedLineTradeDelivery"), "BilledQuantity", formatQuantity(line.Quantity))
	qty.CreateAttr("unitCode", pkgfacturx.UnitCodeOne)

	settlement := item.CreateElement("ram:SpecifiedLineTradeSettlement")
	tax := settlement.CreateElement("ram:ApplicableTradeTax")
	writeRam(tax, "TypeCode", pkgfacturx.TaxTypeVAT)
	writeRam(tax, "CategoryCode", pkgfacturx.TaxCategoryFor(line.VATRate))
	writeRam(tax, "RateApplicablePercent", formatRate(line.VATRate))
	writeRam(settlement.CreateElement("ram:SpecifiedTradeSettlementLineMonetarySummation"),
		"LineTotalAmount", formatAmount(amounts.Net))
}

// writeParty escribe SellerTradeParty / BuyerTradeParty.
// En MINIMUM solo se emite el nombre, el registro legal y, para el vendedor, el país.
func (s *XMLBuilderService) writeParty(parent *etree.Element, tag string, p entity.Party, profile pkgfacturx.Profile, seller bool) {
	party := parent.CreateElement(tag)
	writeRam(party, "Name", p.LegalName)

	if p.HasTradeRegistryID() {
		id := writeRam(party.CreateElement("ram:SpecifiedLegalOrganization"), "ID", compactID(p.TradeRegistryID))
		id.CreateAttr("schemeID", pkgfacturx.SchemeSIRET)
	}

	country := p.CountryID
	if country == "" {
		country = pkgfacturx.DefaultCountryID
	}
	switch {
	case profile.IncludesLines():
		addr := party.CreateElement("ram:PostalTradeAddress")
		if p.PostalCode != "" {
			writeRam(addr, "PostcodeCode", p.PostalCode)
		}
		for i, l := range addressLines(p.AddressLines) {
			writeRam(addr, addressTags[i], l)
		}
		if p.City != "" {
			writeRam(addr, "CityName", p.City)
		}
		writeRam(addr, "CountryID", country)
	case seller:
		writeRam(party.CreateElement("ram:PostalTradeAddress"), "CountryID", country)
	}

	if p.HasTaxID() {
		id := writeRam(party.CreateElement("ram:SpecifiedTaxRegistration"), "ID", strings.ToUpper(compactID(p.TaxID)))
		id.CreateAttr("schemeID", pkgfacturx.SchemeVAT)
	}
}

func (s *XMLBuilderService) writeSettlement(parent *etree.Element, inv *entity.Invoice, totals entity.TotalsBreakdown, profile pkgfacturx.Profile) {
	settlement := parent.CreateElement("ram:ApplicableHeaderTradeSettlement")
	currency := inv.CurrencyOrDefault()
	writeRam(settlement, "InvoiceCurrencyCode", currency)

	// Una fila de desglose por tasa (BG-23).
	if profile.IncludesLines() {
		for _, r := range totals.Rates {
			tax := settlement.CreateElement("ram:ApplicableTradeTax")
			writeRam(tax, "CalculatedAmount", formatAmount(r.VAT))
			writeRam(tax, "TypeCode", pkgfacturx.TaxTypeVAT)
			writeRam(tax, "BasisAmount", formatAmount(r.Net))
			writeRam(tax, "CategoryCode", pkgfacturx.TaxCategoryFor(r.Rate))
			writeRam(tax, "RateApplicablePercent", formatRate(r.Rate))
		}
		if inv.PaymentTerms != "" {
			writeRam(settlement.CreateElement("ram:SpecifiedTradePaymentTerms"), "Description", inv.PaymentTerms)
		}
	}

	sum := settlement.CreateElement("ram:SpecifiedTradeSettlementHeaderMonetarySummation")
	if profile.IncludesLines() {
		writeRam(sum, "LineTotalAmount", formatAmount(totals.TotalNet))
	}
	writeRam(sum, "TaxBasisTotalAmount", formatAmount(totals.TotalNet))
	taxTotal := writeRam(sum, "TaxTotalAmount", formatAmount(totals.TotalVAT))
	taxTotal.CreateAttr("currencyID", currency)
	writeRam(sum, "GrandTotalAmount", formatAmount(totals.TotalGross))
	writeRam(sum, "DuePayableAmount", formatAmount(totals.AmountDue()))
}

func writeRam(parent *etree.Element, local, value string) *etree.Element {
	el := parent.CreateElement("ram:" + local)
	el.SetText(value)
	return el
}

var addressTags = [3]string{"LineOne", "LineTwo", "LineThree"}

// addressLines reparte las líneas de dirección en LineOne..LineThree; el resto se une a LineThree.
func addressLines(lines []string) []string {
	var out []string
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	if len(out) > len(addressTags) {
		out = append(out[:2], strings.Join(out[2:], ", "))
	}
	return out
}

func compactID(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// formatAmount importe con exactamente 2 decimales y punto decimal.
func formatAmount(d decimal.Decimal) string {
	return d.StringFixedBank(2)
}

// formatRate porcentaje con 2 decimales (20.00, 5.50).
func formatRate(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// formatQuantity cantidad o precio unitario: hasta 4 decimales, nunca menos de 2.
func formatQuantity(d decimal.Decimal) string {
	r := d.RoundBank(4)
	if s := r.String(); decimalPlaces(s) >= 2 {
		return s
	}
	return r.StringFixed(2)
}

func decimalPlaces(s string) int {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}
