package facturx

import (
	"fmt"
	"time"

	"github.com/beevik/etree"

	pkgfacturx "github.com/jhoicas/facturx/pkg/facturx"
)

const (
	nsX             = "adobe:ns:meta/"
	nsRDF           = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	nsPDFAID        = "http://www.aiim.org/pdfa/ns/id/"
	nsDC            = "http://purl.org/dc/elements/1.1/"
	nsPDF           = "http://ns.adobe.com/pdf/1.3/"
	nsXMP           = "http://ns.adobe.com/xap/1.0/"
	nsPDFAExtension = "http://www.aiim.org/pdfa/ns/extension/"
	nsPDFASchema    = "http://www.aiim.org/pdfa/ns/schema#"
	nsPDFAProperty  = "http://www.aiim.org/pdfa/ns/property#"

	xpacketID = "W5M0MpCehiHzreSzNTczkc9d"
)

// XMPInfo datos descriptivos del paquete XMP.
type XMPInfo struct {
	Title    string
	Author   string
	Producer string
	Profile  pkgfacturx.Profile
	Date     time.Time
}

// fxProperties propiedades del esquema de extensión Factur-X (nombre, descripción).
var fxProperties = [][2]string{
	{"DocumentFileName", "name of the embedded XML invoice file"},
	{"DocumentType", "INVOICE"},
	{"Version", "The actual version of the Factur-X XML schema"},
	{"ConformanceLevel", "The conformance level of the embedded Factur-X data"},
}

// BuildXMP genera el paquete XMP que declara PDF/A-3B y el esquema de extensión Factur-X.
func BuildXMP(info XMPInfo) ([]byte, error) {
	if !info.Profile.Valid() {
		return nil, fmt.Errorf("facturx: perfil desconocido %q", info.Profile)
	}
	date := info.Date.UTC().Format(time.RFC3339)

	doc := etree.NewDocument()
	doc.CreateProcInst("xpacket", `begin="`+"\ufeff"+`" id="`+xpacketID+`"`)
	meta := doc.CreateElement("x:xmpmeta")
	meta.CreateAttr("xmlns:x", nsX)
	rdf := meta.CreateElement("rdf:RDF")
	rdf.CreateAttr("xmlns:rdf", nsRDF)

	// ---- Identificación PDF/A-3B
	pdfaid := description(rdf, "pdfaid", nsPDFAID)
	pdfaid.CreateElement("pdfaid:part").SetText("3")
	pdfaid.CreateElement("pdfaid:conformance").SetText("B")

	// ---- Dublin Core
	dc := description(rdf, "dc", nsDC)
	title := dc.CreateElement("dc:title").CreateElement("rdf:Alt").CreateElement("rdf:li")
	title.CreateAttr("xml:lang", "x-default")
	title.SetText(info.Title)
	if info.Author != "" {
		dc.CreateElement("dc:creator").CreateElement("rdf:Seq").CreateElement("rdf:li").SetText(info.Author)
	}

	// ---- Productor y fechas
	pdf := description(rdf, "pdf", nsPDF)
	pdf.CreateElement("pdf:Producer").SetText(info.Producer)
	xmp := description(rdf, "xmp", nsXMP)
	xmp.CreateElement("xmp:CreatorTool").SetText(info.Producer)
	xmp.CreateElement("xmp:CreateDate").SetText(date)
	xmp.CreateElement("xmp:ModifyDate").SetText(date)

	// ---- Esquema de extensión Factur-X
	ext := description(rdf, "pdfaExtension", nsPDFAExtension)
	ext.CreateAttr("xmlns:pdfaSchema", nsPDFASchema)
	ext.CreateAttr("xmlns:pdfaProperty", nsPDFAProperty)
	schema := ext.CreateElement("pdfaExtension:schemas").CreateElement("rdf:Bag").CreateElement("rdf:li")
	schema.CreateAttr("rdf:parseType", "Resource")
	schema.CreateElement("pdfaSchema:schema").SetText("Factur-X PDFA Extension Schema")
	schema.CreateElement("pdfaSchema:namespaceURI").SetText(pkgfacturx.NamespaceFX)
	schema.CreateElement("pdfaSchema:prefix").SetText("fx")
	seq := schema.CreateElement("pdfaSchema:property").CreateElement("rdf:Seq")
	for _, p := range fxProperties {
		li := seq.CreateElement("rdf:li")
		li.CreateAttr("rdf:parseType", "Resource")
		li.CreateElement("pdfaProperty:name").SetText(p[0])
		li.CreateElement("pdfaProperty:valueType").SetText("Text")
		li.CreateElement("pdfaProperty:category").SetText("external")
		li.CreateElement("pdfaProperty:description").SetText(p[1])
	}

	// ---- Valores Factur-X
	fx := description(rdf, "fx", pkgfacturx.NamespaceFX)
	fx.CreateElement("fx:DocumentType").SetText(pkgfacturx.DocumentTypeXMP)
	fx.CreateElement("fx:DocumentFileName").SetText(pkgfacturx.AttachmentFilename)
	fx.CreateElement("fx:Version").SetText(pkgfacturx.FacturXVersion)
	fx.CreateElement("fx:ConformanceLevel").SetText(info.Profile.ConformanceLevel())

	doc.CreateProcInst("xpacket", `end="w"`)
	doc.Indent(1)
	return doc.WriteToBytes()
}

func description(rdf *etree.Element, prefix, ns string) *etree.Element {
	d := rdf.CreateElement("rdf:Description")
	d.CreateAttr("rdf:about", "")
	d.CreateAttr("xmlns:"+prefix, ns)
	return d
}
