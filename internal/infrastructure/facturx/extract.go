package facturx

import (
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/jhoicas/facturx/internal/domain"
	pkgfacturx "github.com/jhoicas/facturx/pkg/facturx"
)

// ErrAttachmentNotFound el PDF no contiene el adjunto factur-x.xml.
var ErrAttachmentNotFound = errors.New("facturx: el PDF no contiene factur-x.xml")

// maxNameTreeDepth límite de recursión al recorrer árboles de nombres (protege de ciclos).
const maxNameTreeDepth = 32

// Attachment fichero embebido leído de un PDF.
type Attachment struct {
	Name         string
	MIMEType     string
	Relationship string
	Data         []byte
}

type nameEntry struct {
	name  string
	value types.Object
}

// ExtractEmbeddedFiles devuelve los ficheros del árbol Names/EmbeddedFiles, en el orden del árbol.
func ExtractEmbeddedFiles(pdf []byte) ([]Attachment, error) {
	ctx, err := readContext(pdf, false)
	if err != nil {
		return nil, err
	}
	catalog, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%w: catálogo ilegible: %v", domain.ErrMalformedBaseDocument, err)
	}
	names, err := dictEntry(ctx, catalog, "Names")
	if err != nil || names == nil {
		return nil, err
	}
	tree, err := dictEntry(ctx, names, "EmbeddedFiles")
	if err != nil || tree == nil {
		return nil, err
	}
	entries, err := collectNames(ctx, tree, 0)
	if err != nil {
		return nil, err
	}

	out := make([]Attachment, 0, len(entries))
	for _, e := range entries {
		a, err := readAttachment(ctx, e)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// ExtractXML devuelve el contenido de factur-x.xml.
func ExtractXML(pdf []byte) ([]byte, error) {
	files, err := ExtractEmbeddedFiles(pdf)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.Name == pkgfacturx.AttachmentFilename {
			return f.Data, nil
		}
	}
	return nil, ErrAttachmentNotFound
}

// ReadMetadata devuelve el stream XMP del catálogo (nil si no hay).
func ReadMetadata(pdf []byte) ([]byte, error) {
	ctx, err := readContext(pdf, false)
	if err != nil {
		return nil, err
	}
	catalog, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%w: catálogo ilegible: %v", domain.ErrMalformedBaseDocument, err)
	}
	o, found := catalog.Find("Metadata")
	if !found {
		return nil, nil
	}
	return streamContent(ctx, o)
}

// collectNames aplana un árbol de nombres (nodos /Names y /Kids).
func collectNames(ctx *model.Context, node types.Dict, depth int) ([]nameEntry, error) {
	if depth > maxNameTreeDepth {
		return nil, fmt.Errorf("%w: árbol de nombres demasiado profundo", domain.ErrMalformedBaseDocument)
	}
	var out []nameEntry

	if o, found := node.Find("Names"); found {
		obj, err := ctx.Dereference(o)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedBaseDocument, err)
		}
		if arr, ok := obj.(types.Array); ok {
			for i := 0; i+1 < len(arr); i += 2 {
				out = append(out, nameEntry{name: pdfString(arr[i]), value: arr[i+1]})
			}
		}
	}

	if o, found := node.Find("Kids"); found {
		obj, err := ctx.Dereference(o)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedBaseDocument, err)
		}
		kids, _ := obj.(types.Array)
		for _, kid := range kids {
			d, err := ctx.DereferenceDict(kid)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrMalformedBaseDocument, err)
			}
			if d == nil {
				continue
			}
			sub, err := collectNames(ctx, d, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
	}
	return out, nil
}

func readAttachment(ctx *model.Context, e nameEntry) (Attachment, error) {
	spec, err := ctx.DereferenceDict(e.value)
	if err != nil || spec == nil {
		return Attachment{}, fmt.Errorf("%w: filespec %q ilegible", domain.ErrMalformedBaseDocument, e.name)
	}
	a := Attachment{Name: e.name}
	if a.Name == "" {
		a.Name = fileSpecName(spec)
	}
	if rel, found := spec.Find("AFRelationship"); found {
		a.Relationship = pdfString(rel)
	}

	ef, err := dictEntry(ctx, spec, "EF")
	if err != nil || ef == nil {
		return Attachment{}, fmt.Errorf("%w: filespec %q sin /EF", domain.ErrMalformedBaseDocument, e.name)
	}
	o, found := ef.Find("UF")
	if !found {
		o, found = ef.Find("F")
	}
	if !found {
		return Attachment{}, fmt.Errorf("%w: filespec %q sin stream", domain.ErrMalformedBaseDocument, e.name)
	}
	if obj, err := ctx.Dereference(o); err == nil {
		if sd, ok := obj.(types.StreamDict); ok {
			if sub, found := sd.Find("Subtype"); found {
				a.MIMEType = pdfString(sub)
			}
		}
	}
	if a.Data, err = streamContent(ctx, o); err != nil {
		return Attachment{}, err
	}
	return a, nil
}

// streamContent desreferencia y decodifica un stream.
func streamContent(ctx *model.Context, o types.Object) (content []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			content, err = nil, fmt.Errorf("%w: stream ilegible: %v", domain.ErrMalformedBaseDocument, r)
		}
	}()
	obj, err := ctx.Dereference(o)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedBaseDocument, err)
	}
	sd, ok := obj.(types.StreamDict)
	if !ok {
		return nil, fmt.Errorf("%w: se esperaba un stream", domain.ErrMalformedBaseDocument)
	}
	if err := sd.Decode(); err != nil {
		return nil, fmt.Errorf("%w: decodificar stream: %v", domain.ErrMalformedBaseDocument, err)
	}
	return sd.Content, nil
}

// fileSpecName nombre de un filespec (/UF preferido sobre /F).
func fileSpecName(spec types.Dict) string {
	if o, found := spec.Find("UF"); found {
		if s := pdfString(o); s != "" {
			return s
		}
	}
	if o, found := spec.Find("F"); found {
		return pdfString(o)
	}
	return ""
}
