// Package facturx convierte un PDF de factura en un documento Factur-X:
// adjunta el XML CII como fichero embebido y declara PDF/A-3 en el XMP del catálogo.
package facturx

import (
	"fmt"
	"sort"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/jhoicas/facturx/internal/domain"
	"github.com/jhoicas/facturx/internal/infrastructure/cii"
	pkgfacturx "github.com/jhoicas/facturx/pkg/facturx"
)

// PackagerService implementa billing.FacturXPackager con pdfcpu.
// Cada llamada trabaja sobre su propio contexto PDF en memoria: no hay estado compartido.
type PackagerService struct {
	producer string
	now      func() time.Time
}

// NewPackagerService crea el servicio. producer aparece en pdf:Producer del XMP.
func NewPackagerService(producer string) *PackagerService {
	return &PackagerService{producer: producer, now: time.Now}
}

// WithClock fija el reloj usado para ModDate del adjunto y las fechas XMP.
func (s *PackagerService) WithClock(now func() time.Time) *PackagerService {
	s.now = now
	return s
}

// Package adjunta xml al pdf y devuelve el documento Factur-X.
//
// Transformación en dos etapas: se parsea el contenedor, se añaden objetos nuevos
// (fichero embebido, filespec, XMP) y se reserializa. Las páginas no se tocan.
// Si pdf no es un PDF válido falla con ErrMalformedBaseDocument; si xml no es XML
// bien formado, con ErrMalformedStructuredPayload. En caso de error no hay salida parcial.
func (s *PackagerService) Package(pdf, xml []byte, profile pkgfacturx.Profile) ([]byte, error) {
	if !profile.Valid() {
		return nil, fmt.Errorf("facturx: %w: perfil desconocido %q", domain.ErrInvalidInput, profile)
	}

	// ── 1. Parsear y validar ambas entradas antes de modificar nada ──
	ctx, err := readContext(pdf, true)
	if err != nil {
		return nil, err
	}
	if _, err := cii.Parse(xml); err != nil {
		return nil, err
	}

	now := s.now()
	info := XMPInfo{Producer: s.producer, Profile: profile, Date: now}
	if summary, err := cii.Read(xml); err == nil {
		info.Title = "Facture " + summary.Number
		info.Author = summary.SellerName
	}

	// ── 2. Fichero embebido + filespec ──
	fileSpec, err := s.addEmbeddedFile(ctx, xml, now)
	if err != nil {
		return nil, err
	}

	// ── 3. Catálogo: Names/EmbeddedFiles, AF, Metadata, Version ──
	catalog, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%w: catálogo ilegible: %v", domain.ErrMalformedBaseDocument, err)
	}
	if err := s.setEmbeddedFiles(ctx, catalog, *fileSpec); err != nil {
		return nil, err
	}
	if err := s.setAssociatedFiles(ctx, catalog, *fileSpec); err != nil {
		return nil, err
	}

	xmp, err := BuildXMP(info)
	if err != nil {
		return nil, err
	}
	metadata, err := ctx.IndRefForNewObject(plainStream(types.Dict{
		"Type":    types.Name("Metadata"),
		"Subtype": types.Name("XML"),
	}, xmp))
	if err != nil {
		return nil, fmt.Errorf("facturx: crear stream XMP: %w", err)
	}
	catalog["Metadata"] = *metadata
	catalog["Version"] = types.Name("1.7")

	// ── 4. Reserializar ──
	return writeContext(ctx)
}

// addEmbeddedFile crea el stream /EmbeddedFile (comprimido) y su /Filespec.
func (s *PackagerService) addEmbeddedFile(ctx *model.Context, xml []byte, now time.Time) (*types.IndirectRef, error) {
	sd := types.StreamDict{
		Dict: types.Dict{
			"Type":    types.Name("EmbeddedFile"),
			"Subtype": types.Name(pkgfacturx.AttachmentMIMEType),
			"Filter":  types.Name(filter.Flate),
			"Params": types.Dict{
				"Size":    types.Integer(len(xml)),
				"ModDate": types.StringLiteral(types.DateString(now)),
			},
		},
		Content:        xml,
		FilterPipeline: []types.PDFFilter{{Name: filter.Flate}},
	}
	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("facturx: comprimir XML: %w", err)
	}
	stream, err := ctx.IndRefForNewObject(sd)
	if err != nil {
		return nil, fmt.Errorf("facturx: crear fichero embebido: %w", err)
	}

	spec := types.Dict{
		"Type":           types.Name("Filespec"),
		"F":              types.StringLiteral(pkgfacturx.AttachmentFilename),
		"UF":             types.StringLiteral(pkgfacturx.AttachmentFilename),
		"Desc":           types.StringLiteral("Factur-X invoice"),
		"AFRelationship": types.Name(pkgfacturx.AttachmentRelation),
		"EF":             types.Dict{"F": *stream, "UF": *stream},
	}
	ref, err := ctx.IndRefForNewObject(spec)
	if err != nil {
		return nil, fmt.Errorf("facturx: crear filespec: %w", err)
	}
	return ref, nil
}

// setEmbeddedFiles reescribe el árbol Names/EmbeddedFiles como un único nodo hoja:
// conserva los adjuntos ajenos, descarta cualquier factur-x.xml previo y añade el nuevo.
func (s *PackagerService) setEmbeddedFiles(ctx *model.Context, catalog types.Dict, fileSpec types.IndirectRef) error {
	names, err := dictEntry(ctx, catalog, "Names")
	if err != nil {
		return fmt.Errorf("%w: /Names ilegible: %v", domain.ErrMalformedBaseDocument, err)
	}
	if names == nil {
		names = types.NewDict()
		catalog["Names"] = names
	}

	var entries []nameEntry
	if tree, err := dictEntry(ctx, names, "EmbeddedFiles"); err == nil && tree != nil {
		entries, err = collectNames(ctx, tree, 0)
		if err != nil {
			return err
		}
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.name != pkgfacturx.AttachmentFilename {
			kept = append(kept, e)
		}
	}
	kept = append(kept, nameEntry{name: pkgfacturx.AttachmentFilename, value: fileSpec})
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].name < kept[j].name })

	arr := make(types.Array, 0, 2*len(kept))
	for _, e := range kept {
		arr = append(arr, types.StringLiteral(e.name), e.value)
	}
	names["EmbeddedFiles"] = types.Dict{"Names": arr}

	// La caché de árboles de nombres de pdfcpu refleja el árbol anterior.
	delete(ctx.Names, "EmbeddedFiles")
	return nil
}

// setAssociatedFiles fija /AF del catálogo: los ficheros asociados previos que no
// sean factur-x.xml se conservan y el nuevo filespec se añade al final.
func (s *PackagerService) setAssociatedFiles(ctx *model.Context, catalog types.Dict, fileSpec types.IndirectRef) error {
	af := types.Array{}
	if o, found := catalog.Find("AF"); found && o != nil {
		obj, err := ctx.Dereference(o)
		if err != nil {
			return fmt.Errorf("%w: /AF ilegible: %v", domain.ErrMalformedBaseDocument, err)
		}
		if prev, ok := obj.(types.Array); ok {
			for _, item := range prev {
				spec, err := ctx.DereferenceDict(item)
				if err == nil && spec != nil && fileSpecName(spec) == pkgfacturx.AttachmentFilename {
					continue
				}
				af = append(af, item)
			}
		}
	}
	catalog["AF"] = append(af, fileSpec)
	return nil
}

// plainStream stream sin filtro (el XMP debe ser legible sin descomprimir).
func plainStream(d types.Dict, content []byte) types.StreamDict {
	length := int64(len(content))
	d["Length"] = types.Integer(length)
	return types.StreamDict{
		Dict:         d,
		Content:      content,
		Raw:          content,
		StreamLength: &length,
	}
}
