package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/facturx/internal/domain/entity"
	domfacturx "github.com/jhoicas/facturx/internal/domain/facturx"
	"github.com/jhoicas/facturx/internal/infrastructure/cii"
	pkgfacturx "github.com/jhoicas/facturx/pkg/facturx"
	"github.com/jhoicas/facturx/pkg/logger"
)

// PreviewNumber número provisional usado al validar una vista previa sin número.
const PreviewNumber = "PREVIEW"

// GenerateResult documento Factur-X generado y sus metadatos.
type GenerateResult struct {
	InvoiceNumber string
	Profile       pkgfacturx.Profile
	Totals        entity.TotalsBreakdown
	XMLDigest     string // SHA-256 de la forma C14N del XML embebido
	Filename      string // factur-x_<número>.pdf
	PDF           []byte
	XML           []byte
}

// GenerateFacturXUseCase orquesta el pipeline completo:
// validación → totales → (XML ∥ PDF) → empaquetado.
// No guarda estado entre llamadas; puede usarse desde varias goroutines.
type GenerateFacturXUseCase struct {
	xmlBuilder     XMLBuilder
	renderer       InvoicePDFRenderer
	packager       FacturXPackager
	sequence       NumberSequence
	recorder       InvoiceRecorder
	defaultProfile pkgfacturx.Profile
	log            *logger.Logger
}

// NewGenerateFacturXUseCase construye el caso de uso inyectando sus dependencias.
// sequence puede ser nil: en ese caso toda factura debe traer número.
func NewGenerateFacturXUseCase(
	xmlBuilder XMLBuilder,
	renderer InvoicePDFRenderer,
	packager FacturXPackager,
	sequence NumberSequence,
	defaultProfile pkgfacturx.Profile,
	log *logger.Logger,
) *GenerateFacturXUseCase {
	if log == nil {
		log = logger.Nop()
	}
	if !defaultProfile.Valid() {
		defaultProfile = pkgfacturx.DefaultProfile
	}
	return &GenerateFacturXUseCase{
		xmlBuilder:     xmlBuilder,
		renderer:       renderer,
		packager:       packager,
		sequence:       sequence,
		defaultProfile: defaultProfile,
		log:            log.Component("facturx"),
	}
}

// WithRecorder activa el registro de facturas emitidas.
func (uc *GenerateFacturXUseCase) WithRecorder(r InvoiceRecorder) *GenerateFacturXUseCase {
	uc.recorder = r
	return uc
}

// DefaultProfile perfil usado cuando la petición no indica ninguno.
func (uc *GenerateFacturXUseCase) DefaultProfile() pkgfacturx.Profile {
	return uc.defaultProfile
}

// Generate produce el documento Factur-X de inv.
//
// Los errores de datos del usuario (domain.IsUserError) se detectan antes de generar
// XML o PDF. Cualquier error posterior aborta el pipeline sin salida parcial.
// profile vacío usa el perfil por defecto.
func (uc *GenerateFacturXUseCase) Generate(ctx context.Context, inv entity.Invoice, profile pkgfacturx.Profile) (*GenerateResult, error) {
	start := time.Now()
	if profile == "" {
		profile = uc.defaultProfile
	}
	if !profile.Valid() {
		var err error
		if profile, err = pkgfacturx.ParseProfile(string(profile)); err != nil {
			return nil, fmt.Errorf("facturx: %w", err)
		}
	}

	// ── 1. Validación en la frontera y totales ────────────────────────────────
	// Sin número se valida con un marcador: un rechazo no consume la secuencia.
	assign := strings.TrimSpace(inv.Number) == "" && uc.sequence != nil
	if assign {
		inv.Number = PreviewNumber
	}
	prepared, totals, err := prepare(inv)
	if err != nil {
		uc.log.Debug().Err(err).Str("invoice", inv.Number).Msg("factura rechazada")
		return nil, err
	}

	// ── 2. Número de factura ──────────────────────────────────────────────────
	if assign {
		n, err := uc.sequence.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("facturx: asignar número: %w", err)
		}
		prepared.Number = n
	}

	// ── 3. XML y PDF en paralelo: ambos solo leen la factura y los totales ───
	var (
		doc     *cii.Document
		pdfBase []byte
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := uc.xmlBuilder.Build(&cii.InvoiceBuildContext{Invoice: &prepared, Totals: totals, Profile: profile})
		if err != nil {
			return fmt.Errorf("facturx: construir XML: %w", err)
		}
		doc = d
		return nil
	})
	g.Go(func() error {
		b, err := uc.renderer.RenderInvoicePDF(gctx, &prepared, totals)
		if err != nil {
			return fmt.Errorf("facturx: generar PDF: %w", err)
		}
		pdfBase = b
		return nil
	})
	if err := g.Wait(); err != nil {
		uc.log.Error().Err(err).Str("invoice", prepared.Number).Msg("pipeline abortado")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ── 4. Empaquetado ────────────────────────────────────────────────────────
	out, err := uc.packager.Package(pdfBase, doc.Bytes(), profile)
	if err != nil {
		uc.log.Error().Err(err).Str("invoice", prepared.Number).Msg("empaquetado fallido")
		return nil, fmt.Errorf("facturx: empaquetar: %w", err)
	}

	digest, err := doc.Digest()
	if err != nil {
		return nil, fmt.Errorf("facturx: huella XML: %w", err)
	}

	// ── 5. Registro (opcional): un número ya emitido anula el resultado ───────
	if uc.recorder != nil {
		rec := &entity.IssuedInvoice{
			Number:     prepared.Number,
			IssueDate:  prepared.IssueDate,
			Profile:    string(profile),
			SellerName: prepared.Seller.LegalName,
			BuyerName:  prepared.Buyer.LegalName,
			Currency:   prepared.CurrencyOrDefault(),
			TotalNet:   totals.TotalNet,
			TotalVAT:   totals.TotalVAT,
			TotalGross: totals.TotalGross,
			XMLDigest:  digest,
		}
		if err := uc.recorder.Record(ctx, rec); err != nil {
			uc.log.Warn().Err(err).Str("invoice", prepared.Number).Msg("registro rechazado")
			return nil, fmt.Errorf("facturx: registrar: %w", err)
		}
	}

	uc.log.Info().
		Str("invoice", prepared.Number).
		Str("profile", string(profile)).
		Str("total_gross", totals.TotalGross.StringFixed(2)).
		Str("xml_sha256", digest).
		Int("pdf_bytes", len(out)).
		Dur("elapsed", time.Since(start)).
		Msg("factur-x generado")

	return &GenerateResult{
		InvoiceNumber: prepared.Number,
		Profile:       profile,
		Totals:        totals,
		XMLDigest:     digest,
		Filename:      Filename(prepared.Number),
		PDF:           out,
		XML:           doc.Bytes(),
	}, nil
}

// Preview valida inv y calcula sus totales sin generar XML ni PDF.
// No consume números de la secuencia.
func (uc *GenerateFacturXUseCase) Preview(_ context.Context, inv entity.Invoice) (entity.TotalsBreakdown, error) {
	if strings.TrimSpace(inv.Number) == "" {
		inv.Number = PreviewNumber
	}
	_, totals, err := prepare(inv)
	return totals, err
}

// prepare completa los identificadores derivables, valida y calcula los totales.
func prepare(inv entity.Invoice) (entity.Invoice, entity.TotalsBreakdown, error) {
	inv.Seller = domfacturx.WithDerivedTaxID(inv.Seller)
	inv.Lines = append([]entity.LineItem(nil), inv.Lines...)

	if err := domfacturx.ValidateInvoice(&inv); err != nil {
		return entity.Invoice{}, entity.TotalsBreakdown{}, err
	}
	totals, err := domfacturx.ComputeTotals(inv.Lines)
	if err != nil {
		return entity.Invoice{}, entity.TotalsBreakdown{}, err
	}
	return inv, totals, nil
}

// Filename nombre de descarga del documento: factur-x_<número>.pdf.
// Los caracteres fuera de [A-Za-z0-9._-] se sustituyen por "_".
func Filename(number string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, number)
	return "factur-x_" + safe + ".pdf"
}
