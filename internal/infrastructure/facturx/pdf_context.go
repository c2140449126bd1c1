package facturx

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/jhoicas/facturx/internal/domain"
)

func init() {
	// pdfcpu no debe crear ni leer ~/.config/pdfcpu en un servidor.
	api.DisableConfigDir()
}

// readContext parsea el contenedor PDF en memoria. pdfcpu puede entrar en pánico con
// entradas arbitrarias: cualquier fallo se traduce en ErrMalformedBaseDocument.
func readContext(pdf []byte, validate bool) (ctx *model.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			ctx, err = nil, fmt.Errorf("%w: %v", domain.ErrMalformedBaseDocument, r)
		}
	}()
	if len(pdf) == 0 {
		return nil, fmt.Errorf("%w: documento vacío", domain.ErrMalformedBaseDocument)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err = api.ReadContext(bytes.NewReader(pdf), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedBaseDocument, err)
	}
	if validate {
		if err = api.ValidateContext(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedBaseDocument, err)
		}
	}
	return ctx, nil
}

// writeContext serializa el contexto completo (sin escritura incremental).
func writeContext(ctx *model.Context) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("facturx: serializar PDF: %v", r)
		}
	}()
	var buf bytes.Buffer
	if err = api.WriteContext(ctx, &buf); err != nil {
		return nil, fmt.Errorf("facturx: serializar PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// dictEntry devuelve la entrada key de d ya desreferenciada como diccionario (nil si no existe).
func dictEntry(ctx *model.Context, d types.Dict, key string) (types.Dict, error) {
	o, found := d.Find(key)
	if !found || o == nil {
		return nil, nil
	}
	return ctx.DereferenceDict(o)
}

// pdfString decodifica un string PDF (literal o hexadecimal, PDFDocEncoding o UTF-16).
func pdfString(o types.Object) string {
	switch v := o.(type) {
	case types.StringLiteral:
		if s, err := types.StringLiteralToString(v); err == nil {
			return s
		}
		return string(v)
	case types.HexLiteral:
		if s, err := types.HexLiteralToString(v); err == nil {
			return s
		}
		return string(v)
	case types.Name:
		return decodeName(string(v))
	}
	return ""
}

// decodeName resuelve las secuencias #xx de un nombre PDF (ej: application#2Fxml).
func decodeName(s string) string {
	if !strings.Contains(s, "#") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '#' && i+2 < len(s) {
			if n, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(n))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
