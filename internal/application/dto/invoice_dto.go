package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/facturx/internal/domain"
	"github.com/jhoicas/facturx/internal/domain/entity"
	pkgfacturx "github.com/jhoicas/facturx/pkg/facturx"
)

// DateLayout formato de issue_date en el registro de entrada.
const DateLayout = "2006-01-02"

// GenerateInvoiceRequest registro de factura: body de POST /api/facturx y archivo YAML de la CLI.
type GenerateInvoiceRequest struct {
	Number       string            `json:"number,omitempty" yaml:"number,omitempty"` // vacío: lo asigna la secuencia
	IssueDate    string            `json:"issue_date" yaml:"issue_date"`             // YYYY-MM-DD
	Currency     string            `json:"currency,omitempty" yaml:"currency,omitempty"`
	PaymentTerms string            `json:"payment_terms,omitempty" yaml:"payment_terms,omitempty"`
	Profile      string            `json:"profile,omitempty" yaml:"profile,omitempty"` // MINIMUM, BASIC, EN16931
	Seller       PartyRequest      `json:"seller" yaml:"seller"`
	Buyer        PartyRequest      `json:"buyer" yaml:"buyer"`
	Lines        []LineItemRequest `json:"lines" yaml:"lines"`
}

// PartyRequest emisor o receptor.
type PartyRequest struct {
	LegalName       string   `json:"legal_name" yaml:"legal_name"`
	AddressLines    []string `json:"address_lines,omitempty" yaml:"address_lines,omitempty"`
	PostalCode      string   `json:"postal_code,omitempty" yaml:"postal_code,omitempty"`
	City            string   `json:"city,omitempty" yaml:"city,omitempty"`
	CountryID       string   `json:"country_id,omitempty" yaml:"country_id,omitempty"`
	TaxID           string   `json:"tax_id,omitempty" yaml:"tax_id,omitempty"`
	TradeRegistryID string   `json:"trade_registry_id,omitempty" yaml:"trade_registry_id,omitempty"`
}

// LineItemRequest línea de factura. Los importes aceptan número o string JSON ("12.50").
type LineItemRequest struct {
	Description  string          `json:"description" yaml:"description"`
	Quantity     decimal.Decimal `json:"quantity" yaml:"quantity"`
	UnitPriceNet decimal.Decimal `json:"unit_price_net" yaml:"unit_price_net"`
	VATRate      decimal.Decimal `json:"vat_rate" yaml:"vat_rate"`
}

// ToEntity convierte el registro a la entidad de dominio.
// Normaliza el texto a NFC y aplica los valores por defecto (país FR, moneda EUR).
// Solo falla por un issue_date mal formado; el resto lo valida el dominio.
func (r *GenerateInvoiceRequest) ToEntity() (entity.Invoice, error) {
	inv := entity.Invoice{
		Number:       strings.TrimSpace(r.Number),
		Currency:     strings.ToUpper(strings.TrimSpace(r.Currency)),
		PaymentTerms: nfc(r.PaymentTerms),
		Seller:       r.Seller.toEntity(),
		Buyer:        r.Buyer.toEntity(),
		Lines:        make([]entity.LineItem, 0, len(r.Lines)),
	}
	if inv.Currency == "" {
		inv.Currency = pkgfacturx.DefaultCurrency
	}
	if s := strings.TrimSpace(r.IssueDate); s != "" {
		d, err := time.Parse(DateLayout, s)
		if err != nil {
			return entity.Invoice{}, domain.NewFieldError("issue_date", s,
				fmt.Errorf("%w: formato esperado %s", domain.ErrInvalidInput, DateLayout))
		}
		inv.IssueDate = d
	}
	for _, l := range r.Lines {
		inv.Lines = append(inv.Lines, entity.LineItem{
			Description:  nfc(l.Description),
			Quantity:     l.Quantity,
			UnitPriceNet: l.UnitPriceNet,
			VATRate:      l.VATRate,
		})
	}
	return inv, nil
}

// ParsedProfile devuelve el perfil pedido, o def si el registro no trae ninguno.
func (r *GenerateInvoiceRequest) ParsedProfile(def pkgfacturx.Profile) (pkgfacturx.Profile, error) {
	if strings.TrimSpace(r.Profile) == "" {
		return def, nil
	}
	p, err := pkgfacturx.ParseProfile(r.Profile)
	if err != nil {
		return "", domain.NewFieldError("profile", r.Profile, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
	}
	return p, nil
}

func (p PartyRequest) toEntity() entity.Party {
	lines := make([]string, 0, len(p.AddressLines))
	for _, l := range p.AddressLines {
		if l = nfc(l); l != "" {
			lines = append(lines, l)
		}
	}
	country := strings.ToUpper(strings.TrimSpace(p.CountryID))
	if country == "" {
		country = pkgfacturx.DefaultCountryID
	}
	return entity.Party{
		LegalName:       nfc(p.LegalName),
		AddressLines:    lines,
		PostalCode:      strings.TrimSpace(p.PostalCode),
		City:            nfc(p.City),
		CountryID:       country,
		TaxID:           strings.TrimSpace(p.TaxID),
		TradeRegistryID: strings.TrimSpace(p.TradeRegistryID),
	}
}

// nfc recorta y normaliza a NFC: "é" compuesto y descompuesto producen el mismo XML.
func nfc(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// TotalsResponse desglose de totales (POST /api/facturx/totals y salida de la CLI).
// Los importes van como string con 2 decimales para no perder precisión en JSON.
type TotalsResponse struct {
	InvoiceNumber string              `json:"invoice_number,omitempty"`
	Currency      string              `json:"currency"`
	Lines         []LineTotalResponse `json:"lines"`
	Rates         []RateTotalResponse `json:"rates"`
	TotalNet      string              `json:"total_net"`
	TotalVAT      string              `json:"total_vat"`
	TotalGross    string              `json:"total_gross"`
}

// LineTotalResponse importes de una línea.
type LineTotalResponse struct {
	Index int    `json:"index"`
	Net   string `json:"net"`
	VAT   string `json:"vat"`
	Gross string `json:"gross"`
}

// RateTotalResponse fila del desglose por tasa.
type RateTotalResponse struct {
	Rate string `json:"rate"`
	Net  string `json:"net"`
	VAT  string `json:"vat"`
}

// NewTotalsResponse construye la respuesta a partir del desglose.
func NewTotalsResponse(number, currency string, t entity.TotalsBreakdown) TotalsResponse {
	resp := TotalsResponse{
		InvoiceNumber: number,
		Currency:      currency,
		Lines:         make([]LineTotalResponse, 0, len(t.Lines)),
		Rates:         make([]RateTotalResponse, 0, len(t.Rates)),
		TotalNet:      t.TotalNet.StringFixed(2),
		TotalVAT:      t.TotalVAT.StringFixed(2),
		TotalGross:    t.TotalGross.StringFixed(2),
	}
	for _, l := range t.Lines {
		resp.Lines = append(resp.Lines, LineTotalResponse{
			Index: l.Index,
			Net:   l.Net.StringFixed(2),
			VAT:   l.VAT.StringFixed(2),
			Gross: l.Gross.StringFixed(2),
		})
	}
	for _, r := range t.Rates {
		resp.Rates = append(resp.Rates, RateTotalResponse{
			Rate: r.Rate.StringFixed(2),
			Net:  r.Net.StringFixed(2),
			VAT:  r.VAT.StringFixed(2),
		})
	}
	return resp
}
