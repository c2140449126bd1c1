package cii

import (
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturx/internal/domain"
	"github.com/jhoicas/facturx/internal/domain/entity"
)

// Summary datos de cabecera y totales leídos de un XML CII.
type Summary struct {
	Number      string
	GuidelineID string
	SellerName  string
	IssueDate   time.Time
	Currency    string
	Totals      entity.TotalsBreakdown // sin importes por línea
}

// Parse lee el XML y exige un documento bien formado: un único elemento raíz, nada más
// que espacios, comentarios o instrucciones de proceso fuera de él, y todos los prefijos
// de espacio de nombres declarados. Cualquier fallo es ErrMalformedStructuredPayload.
func Parse(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedStructuredPayload, err)
	}
	roots := 0
	for _, tok := range doc.Child {
		switch t := tok.(type) {
		case *etree.Element:
			roots++
		case *etree.CharData:
			if !t.IsWhitespace() {
				return nil, fmt.Errorf("%w: texto fuera del elemento raíz", domain.ErrMalformedStructuredPayload)
			}
		case *etree.Comment, *etree.ProcInst:
		default:
			return nil, fmt.Errorf("%w: nodo no admitido fuera del elemento raíz", domain.ErrMalformedStructuredPayload)
		}
	}
	switch {
	case roots == 0:
		return nil, fmt.Errorf("%w: documento sin elemento raíz", domain.ErrMalformedStructuredPayload)
	case roots > 1:
		return nil, fmt.Errorf("%w: %d elementos raíz", domain.ErrMalformedStructuredPayload, roots)
	}
	if err := checkNamespaces(doc.Root()); err != nil {
		return nil, err
	}
	return doc, nil
}

// checkNamespaces exige que cada prefijo usado en e y sus descendientes esté declarado.
func checkNamespaces(e *etree.Element) error {
	if e.Space != "" && e.NamespaceURI() == "" {
		return fmt.Errorf("%w: prefijo %q sin declarar en <%s>", domain.ErrMalformedStructuredPayload, e.Space, e.FullTag())
	}
	for i := range e.Attr {
		a := &e.Attr[i]
		if a.Space == "" || a.Space == "xmlns" || a.Space == "xml" {
			continue
		}
		if a.NamespaceURI() == "" {
			return fmt.Errorf("%w: prefijo %q sin declarar en el atributo %s", domain.ErrMalformedStructuredPayload, a.Space, a.FullKey())
		}
	}
	for _, child := range e.ChildElements() {
		if err := checkNamespaces(child); err != nil {
			return err
		}
	}
	return nil
}

// Read interpreta un rsm:CrossIndustryInvoice. Localiza los elementos por nombre local,
// sin depender de los prefijos elegidos por el emisor.
func Read(data []byte) (*Summary, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	root := doc.Root()
	if root.Tag != "CrossIndustryInvoice" {
		return nil, fmt.Errorf("%w: raíz %q no es CrossIndustryInvoice", domain.ErrMalformedStructuredPayload, root.Tag)
	}

	out := &Summary{
		GuidelineID: text(root, "ExchangedDocumentContext", "GuidelineSpecifiedDocumentContextParameter", "ID"),
		Number:      text(root, "ExchangedDocument", "ID"),
	}
	if raw := text(root, "ExchangedDocument", "IssueDateTime", "DateTimeString"); raw != "" {
		out.IssueDate, err = time.Parse("20060102", raw)
		if err != nil {
			return nil, fmt.Errorf("%w: fecha de emisión %q", domain.ErrMalformedStructuredPayload, raw)
		}
	}

	out.SellerName = text(root, "SupplyChainTradeTransaction", "ApplicableHeaderTradeAgreement", "SellerTradeParty", "Name")

	settlement := path(root, "SupplyChainTradeTransaction", "ApplicableHeaderTradeSettlement")
	if settlement == nil {
		return nil, fmt.Errorf("%w: falta ApplicableHeaderTradeSettlement", domain.ErrMalformedStructuredPayload)
	}
	out.Currency = text(settlement, "InvoiceCurrencyCode")

	for _, tax := range children(settlement, "ApplicableTradeTax") {
		var row entity.RateSubtotal
		if row.Rate, err = amount(tax, "RateApplicablePercent"); err != nil {
			return nil, err
		}
		if row.Net, err = amount(tax, "BasisAmount"); err != nil {
			return nil, err
		}
		if row.VAT, err = amount(tax, "CalculatedAmount"); err != nil {
			return nil, err
		}
		out.Totals.Rates = append(out.Totals.Rates, row)
	}

	sum := path(settlement, "SpecifiedTradeSettlementHeaderMonetarySummation")
	if sum == nil {
		return nil, fmt.Errorf("%w: falta SpecifiedTradeSettlementHeaderMonetarySummation", domain.ErrMalformedStructuredPayload)
	}
	if out.Totals.TotalNet, err = amount(sum, "TaxBasisTotalAmount"); err != nil {
		return nil, err
	}
	if out.Totals.TotalVAT, err = amount(sum, "TaxTotalAmount"); err != nil {
		return nil, err
	}
	if out.Totals.TotalGross, err = amount(sum, "GrandTotalAmount"); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadTotals devuelve el desglose por tasa y los totales de un XML CII.
func ReadTotals(data []byte) (entity.TotalsBreakdown, error) {
	s, err := Read(data)
	if err != nil {
		return entity.TotalsBreakdown{}, err
	}
	return s.Totals, nil
}

// ReadInvoiceNumber devuelve el número de factura (ExchangedDocument/ID).
func ReadInvoiceNumber(data []byte) (string, error) {
	s, err := Read(data)
	if err != nil {
		return "", err
	}
	return s.Number, nil
}

func path(el *etree.Element, tags ...string) *etree.Element {
	for _, tag := range tags {
		if el == nil {
			return nil
		}
		el = child(el, tag)
	}
	return el
}

func child(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func children(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

func text(el *etree.Element, tags ...string) string {
	if found := path(el, tags...); found != nil {
		return found.Text()
	}
	return ""
}

func amount(el *etree.Element, tag string) (decimal.Decimal, error) {
	found := child(el, tag)
	if found == nil {
		return decimal.Zero, fmt.Errorf("%w: falta %s", domain.ErrMalformedStructuredPayload, tag)
	}
	d, err := decimal.NewFromString(found.Text())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s no es un importe: %q", domain.ErrMalformedStructuredPayload, tag, found.Text())
	}
	return d, nil
}
