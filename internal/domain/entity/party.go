package entity

// Party representa al emisor (vendedor) o al receptor (comprador) de la factura.
// Inmutable una vez asociada a una factura.
type Party struct {
	LegalName       string
	AddressLines    []string // en orden; la primera es la línea principal
	PostalCode      string
	City            string
	CountryID       string // ISO 3166-1 alfa-2 (FR por defecto)
	TaxID           string // N° de IVA intracomunitario (opcional)
	TradeRegistryID string // SIRET (opcional)
}

// HasTaxID indica si la parte tiene identificador de IVA.
func (p Party) HasTaxID() bool { return p.TaxID != "" }

// HasTradeRegistryID indica si la parte tiene identificador de registro mercantil.
func (p Party) HasTradeRegistryID() bool { return p.TradeRegistryID != "" }
