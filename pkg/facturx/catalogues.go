// Package facturx contiene catálogos y validaciones alineados a la especificación
// Factur-X 1.0 / ZUGFeRD 2.x y a la norma europea EN 16931 (sintaxis UN/CEFACT CII D16B).
package facturx

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// Perfiles Factur-X
// Cada perfil es un subconjunto de EN 16931; el XML declara su URN en
// ExchangedDocumentContext/GuidelineSpecifiedDocumentContextParameter/ID.
// =============================================================================

// Profile perfil Factur-X.
type Profile string

const (
	ProfileMinimum Profile = "MINIMUM"
	ProfileBasic   Profile = "BASIC"
	ProfileEN16931 Profile = "EN16931"
)

// DefaultProfile perfil usado cuando el llamador no indica ninguno.
const DefaultProfile = ProfileBasic

var profileURNs = map[Profile]string{
	ProfileMinimum: "urn:factur-x.eu:1p0:minimum",
	ProfileBasic:   "urn:cen.eu:en16931:2017#compliant#urn:factur-x.eu:1p0:basic",
	ProfileEN16931: "urn:cen.eu:en16931:2017",
}

// valor de fx:ConformanceLevel en el XMP.
var conformanceLevels = map[Profile]string{
	ProfileMinimum: "MINIMUM",
	ProfileBasic:   "BASIC",
	ProfileEN16931: "EN 16931",
}

// ParseProfile interpreta un nombre de perfil (sin distinguir mayúsculas, admite "EN 16931").
// Cadena vacía devuelve DefaultProfile.
func ParseProfile(s string) (Profile, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultProfile, nil
	}
	s = strings.ReplaceAll(s, " ", "")
	p := Profile(s)
	if !p.Valid() {
		return "", fmt.Errorf("facturx: perfil desconocido %q", s)
	}
	return p, nil
}

// Valid indica si el perfil pertenece al catálogo.
func (p Profile) Valid() bool {
	_, ok := profileURNs[p]
	return ok
}

// URN identificador de la guía (BT-24).
func (p Profile) URN() string { return profileURNs[p] }

// ConformanceLevel nombre del perfil tal como lo espera el esquema de extensión XMP.
func (p Profile) ConformanceLevel() string { return conformanceLevels[p] }

// IncludesLines indica si el perfil transporta líneas de factura (MINIMUM no).
func (p Profile) IncludesLines() bool { return p != ProfileMinimum }

// =============================================================================
// Tipos de IVA admitidos (Francia metropolitana, CGI art. 278 y ss.)
// =============================================================================

var (
	VATRateZero         = decimal.Zero
	VATRateSuperReduced = decimal.RequireFromString("5.5")
	VATRateReduced      = decimal.NewFromInt(10)
	VATRateStandard     = decimal.NewFromInt(20)
)

// AllowedVATRates tasas de IVA admitidas, en orden ascendente.
var AllowedVATRates = []decimal.Decimal{VATRateZero, VATRateSuperReduced, VATRateReduced, VATRateStandard}

// IsAllowedVATRate indica si rate pertenece al conjunto enumerado (compara por valor: 20 == 20.00).
func IsAllowedVATRate(rate decimal.Decimal) bool {
	for _, r := range AllowedVATRates {
		if r.Equal(rate) {
			return true
		}
	}
	return false
}

// =============================================================================
// Listas de códigos CII (UNTDID / EN 16931)
// =============================================================================

const (
	DocumentTypeCommercialInvoice = "380"  // UNTDID 1001: factura comercial
	DateFormatCCYYMMDD            = "102"  // UNTDID 2379: AAAAMMDD
	UnitCodeOne                   = "C62"  // UN/ECE Rec 20: unidad
	TaxTypeVAT                    = "VAT"  // UNTDID 5153
	TaxCategoryStandard           = "S"    // UNCL 5305: tasa estándar/reducida
	TaxCategoryZero               = "Z"    // UNCL 5305: tasa cero
	SchemeSIRET                   = "0002" // ISO 6523 ICD: SIRENE
	SchemeVAT                     = "VA"   // N° de IVA intracomunitario
	DefaultCountryID              = "FR"
	DefaultCurrency               = "EUR"
)

// TaxCategoryFor devuelve el código de categoría de IVA para la tasa.
func TaxCategoryFor(rate decimal.Decimal) string {
	if rate.IsZero() {
		return TaxCategoryZero
	}
	return TaxCategoryStandard
}

// =============================================================================
// Espacios de nombres
// =============================================================================

const (
	NamespaceRSM = "urn:un:unece:uncefact:data:standard:CrossIndustryInvoice:100"
	NamespaceRAM = "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:100"
	NamespaceUDT = "urn:un:unece:uncefact:data:standard:UnqualifiedDataType:100"
	NamespaceQDT = "urn:un:unece:uncefact:data:standard:QualifiedDataType:100"

	// NamespaceFX esquema de extensión PDF/A declarado en el XMP.
	NamespaceFX = "urn:factur-x:pdfa:CrossIndustryDocument:invoice:1p0#"
)

// =============================================================================
// Adjunto
// =============================================================================

const (
	AttachmentFilename = "factur-x.xml"
	AttachmentMIMEType = "application/xml"
	AttachmentRelation = "Data"
	DocumentTypeXMP    = "INVOICE"
	FacturXVersion     = "1.0"
)
