package billing

import (
	"context"

	"github.com/jhoicas/facturx/internal/domain/entity"
	"github.com/jhoicas/facturx/internal/infrastructure/cii"
	pkgfacturx "github.com/jhoicas/facturx/pkg/facturx"
)

// InvoicePDFRenderer produce la representación visual (PDF) de la factura.
// No debe modificar la factura ni los totales.
type InvoicePDFRenderer interface {
	RenderInvoicePDF(ctx context.Context, invoice *entity.Invoice, totals entity.TotalsBreakdown) ([]byte, error)
}

// XMLBuilder construye el XML CII a partir de la factura validada y sus totales.
type XMLBuilder interface {
	Build(ctx *cii.InvoiceBuildContext) (*cii.Document, error)
}

// FacturXPackager adjunta el XML al PDF y devuelve el documento híbrido.
type FacturXPackager interface {
	Package(pdf, xml []byte, profile pkgfacturx.Profile) ([]byte, error)
}

// NumberSequence asigna números de factura. La unicidad entre llamadas es
// responsabilidad de la implementación (uuid, contador, secuencia PostgreSQL).
type NumberSequence interface {
	Next(ctx context.Context) (string, error)
}

// InvoiceRecorder registra cada factura emitida. Un número repetido debe
// devolver domain.ErrDuplicateInvoiceNumber.
type InvoiceRecorder interface {
	Record(ctx context.Context, rec *entity.IssuedInvoice) error
}
