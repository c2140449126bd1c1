package cii

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"

	"github.com/ucarion/c14n"

	"github.com/jhoicas/facturx/internal/domain"
)

// Canonicalize devuelve la forma canónica (C14N 1.0 inclusiva, sin comentarios) del XML.
func Canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	if err != nil {
		return nil, fmt.Errorf("cii: canonicalizar: %w: %v", domain.ErrMalformedStructuredPayload, err)
	}
	return out, nil
}

// Digest SHA-256 en hexadecimal de la forma canónica: huella del contenido que no
// depende del orden de atributos ni del estilo de comillas.
func Digest(data []byte) (string, error) {
	canon, err := Canonicalize(data)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}
