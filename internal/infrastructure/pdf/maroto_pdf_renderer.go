// Package pdf implementa la representación visual de la factura (la parte PDF
// de un documento Factur-X), antes de adjuntar el XML.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón social vendedor │  FACTURE N° + Fecha         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  VENDEDOR: dirección / SIRET / N° IVA                        │
//	│  COMPRADOR: dirección / N° IVA                               │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Descripción | Cant. | P.U. HT | TVA% | Total HT      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DESGLOSE TVA: Tasa | Base HT | TVA                          │
//	│  TOTALES: Total HT / Total TVA / NET À PAYER                 │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR resumen + condiciones de pago + leyenda          │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/jhoicas/facturx/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Renderer ──────────────────────────────────────────────────────────────────

// MarotoPDFRenderer implementa billing.InvoicePDFRenderer usando Maroto v2.
// Solo lee la factura y los totales; nunca los modifica.
type MarotoPDFRenderer struct {
	producer string
}

// NewMarotoPDFRenderer construye el renderer. producer se escribe como autor del PDF
// cuando la factura no aporta razón social.
func NewMarotoPDFRenderer(producer string) *MarotoPDFRenderer {
	return &MarotoPDFRenderer{producer: producer}
}

// RenderInvoicePDF genera el PDF y devuelve sus bytes.
// La fecha de creación del PDF es la fecha de emisión, no el reloj del sistema.
func (g *MarotoPDFRenderer) RenderInvoicePDF(
	_ context.Context,
	invoice *entity.Invoice,
	totals entity.TotalsBreakdown,
) ([]byte, error) {
	if invoice == nil {
		return nil, fmt.Errorf("pdf: factura nula")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Facture "+invoice.Number, true).
		WithAuthor(nonEmpty(invoice.Seller.LegalName, g.producer), true).
		WithCreationDate(invoice.IssueDate).
		WithPageNumber().
		Build()

	m := maroto.New(cfg)

	// Header principal
	m.AddRows(headerRow(invoice))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(partyRow("VENDEUR", invoice.Seller))
	m.AddRows(partyRow("CLIENT", invoice.Buyer))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	// Tabla de líneas
	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(invoice.Lines, totals.Lines)...)

	// Desglose de IVA y totales
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(vatBreakdownRows(totals.Rates)...)
	m.AddRows(totalsRow(totals))

	// Footer
	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRows(invoice, totals)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: razón social del vendedor (izq) y N° de factura + fecha (der).
func headerRow(invoice *entity.Invoice) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(invoice.Seller.LegalName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(registryLine(invoice.Seller), props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("FACTURE", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New("N° "+invoice.Number, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Date : "+invoice.IssueDate.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// partyRow: bloque de dirección de una parte.
func partyRow(title string, p entity.Party) core.Row {
	return row.New(18).Add(
		col.New(12).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(p.LegalName, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 5,
			}),
			text.New(addressLine(p), props.Text{Size: 8, Top: 10, Color: colorGray}),
			text.New(registryLine(p), props.Text{Size: 8, Top: 14, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de líneas.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Désignation", 5, align.Left),
		h("Qté", 1, align.Center),
		h("P.U. HT", 2, align.Right),
		h("TVA", 1, align.Center),
		h("Total HT", 3, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// tableDetailRows: una fila por línea; los importes vienen del calculador.
func tableDetailRows(lines []entity.LineItem, amounts []entity.LineAmounts) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for i, l := range lines {
		net := decimal.Zero
		if i < len(amounts) {
			net = amounts[i].Net
		}
		result = append(result, row.New(7).Add(
			col.New(5).Add(text.New(
				l.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(1).Add(text.New(
				l.Quantity.String(),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				formatMoney(l.UnitPriceNet),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				formatRate(l.VATRate),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(3).Add(text.New(
				formatMoney(net),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// vatBreakdownRows: una fila por tasa de IVA.
func vatBreakdownRows(rates []entity.RateSubtotal) []core.Row {
	small := func(s string, a align.Type, style fontstyle.Type) core.Component {
		return text.New(s, props.Text{Size: 8, Align: a, Style: style, Top: 1, Right: 1})
	}
	rows := []core.Row{
		row.New(6).Add(
			col.New(6),
			col.New(2).Add(small("Taux TVA", align.Center, fontstyle.Bold)),
			col.New(2).Add(small("Base HT", align.Right, fontstyle.Bold)),
			col.New(2).Add(small("Montant TVA", align.Right, fontstyle.Bold)),
		),
	}
	for _, r := range rates {
		rows = append(rows, row.New(5).Add(
			col.New(6),
			col.New(2).Add(small(formatRate(r.Rate), align.Center, fontstyle.Normal)),
			col.New(2).Add(small(formatMoney(r.Net), align.Right, fontstyle.Normal)),
			col.New(2).Add(small(formatMoney(r.VAT), align.Right, fontstyle.Normal)),
		))
	}
	return rows
}

// totalsRow: bloque de totales alineado a la derecha.
func totalsRow(totals entity.TotalsBreakdown) core.Row {
	label := func(s string, top float64) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top,
		})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}
	grand := func(s string, right float64) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: right, Top: 14,
		})
	}

	return row.New(22).Add(
		col.New(6), // espacio izquierdo
		col.New(3).Add(
			label("Total HT :", 2),
			label("Total TVA :", 8),
			grand("NET À PAYER :", 2),
		),
		col.New(3).Add(
			value(formatMoney(totals.TotalNet), 2),
			value(formatMoney(totals.TotalVAT), 8),
			grand(formatMoney(totals.AmountDue()), 1),
		),
	)
}

// footerRows: QR con el resumen de la factura, condiciones de pago y leyenda.
func footerRows(invoice *entity.Invoice, totals entity.TotalsBreakdown) []core.Row {
	terms := nonEmpty(invoice.PaymentTerms, "Paiement à réception de facture")
	summary := strings.Join([]string{
		invoice.Number,
		invoice.IssueDate.Format("2006-01-02"),
		invoice.Seller.TaxID,
		totals.AmountDue().StringFixed(2) + " " + invoice.CurrencyOrDefault(),
	}, "|")

	return []core.Row{
		row.New(32).Add(
			col.New(3).Add(code.NewQr(summary, props.Rect{
				Percent: 90,
				Center:  true,
			})),
			col.New(9).Add(
				text.New("Conditions de paiement : "+terms, props.Text{
					Size: 8, Top: 3, Left: 3,
				}),
				text.New("Facture électronique Factur-X : les données structurées (factur-x.xml) "+
					"sont jointes à ce document PDF/A-3.", props.Text{
					Size: 7, Top: 10, Left: 3, Color: colorGray,
				}),
				text.New("En cas de retard de paiement, une indemnité forfaitaire de 40 € pour frais "+
					"de recouvrement sera exigée (art. L441-10 du Code de commerce).", props.Text{
					Size: 6.5, Top: 18, Left: 3, Color: colorGray,
				}),
			),
		),
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func addressLine(p entity.Party) string {
	parts := make([]string, 0, len(p.AddressLines)+1)
	for _, l := range p.AddressLines {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	if city := strings.TrimSpace(p.PostalCode + " " + p.City); city != "" {
		parts = append(parts, city)
	}
	if p.CountryID != "" {
		parts = append(parts, p.CountryID)
	}
	return nonEmpty(strings.Join(parts, ", "), "—")
}

func registryLine(p entity.Party) string {
	var parts []string
	if p.HasTradeRegistryID() {
		parts = append(parts, "SIRET : "+p.TradeRegistryID)
	}
	if p.HasTaxID() {
		parts = append(parts, "N° TVA : "+p.TaxID)
	}
	return strings.Join(parts, "   |   ")
}

var frPrinter = message.NewPrinter(language.French)

// formatMoney importe con separadores franceses: "1 234,50 €".
// Los espacios finos de CLDR se sustituyen por espacios simples (fuentes core del PDF).
func formatMoney(d decimal.Decimal) string {
	s := frPrinter.Sprint(number.Decimal(d.InexactFloat64(), number.Scale(2)))
	return plainSpaces(s) + " €"
}

// formatRate tasa de IVA: "20 %", "5,5 %".
func formatRate(d decimal.Decimal) string {
	return strings.Replace(d.String(), ".", ",", 1) + " %"
}

func plainSpaces(s string) string {
	return strings.NewReplacer("\u202f", " ", "\u00a0", " ").Replace(s)
}
