// Package cii genera y lee el XML Cross Industry Invoice (UN/CEFACT D16B)
// que transporta la semántica EN 16931 dentro de una factura Factur-X.
package cii

import (
	"github.com/jhoicas/facturx/internal/domain/entity"
	pkgfacturx "github.com/jhoicas/facturx/pkg/facturx"
)

// InvoiceBuildContext contexto con todos los datos necesarios para construir el XML de la factura.
// Invoice debe estar validada y Totals debe provenir del calculador para las mismas líneas.
type InvoiceBuildContext struct {
	Invoice *entity.Invoice
	Totals  entity.TotalsBreakdown
	Profile pkgfacturx.Profile // vacío = BASIC
}

// Document XML CII serializado, listo para empaquetar.
type Document struct {
	data    []byte
	Number  string
	Profile pkgfacturx.Profile
}

// NewDocument envuelve bytes XML ya serializados.
func NewDocument(data []byte, number string, profile pkgfacturx.Profile) *Document {
	return &Document{data: data, Number: number, Profile: profile}
}

// Bytes devuelve el XML (UTF-8, con declaración).
func (d *Document) Bytes() []byte {
	return d.data
}

// Digest huella SHA-256 (hex) de la forma canónica C14N del XML.
func (d *Document) Digest() (string, error) {
	return Digest(d.data)
}
