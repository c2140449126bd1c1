package entity

import "time"

// Invoice representa la factura normalizada que recibe el motor.
// Se construye por petición; nada persiste entre llamadas.
type Invoice struct {
	Number       string // aportado por el llamador o generado por una secuencia externa
	IssueDate    time.Time
	Seller       Party
	Buyer        Party
	Lines        []LineItem
	Currency     string // EUR
	PaymentTerms string // texto libre (opcional)
}

// CurrencyOrDefault devuelve la moneda de la factura, EUR si no se indicó.
func (inv *Invoice) CurrencyOrDefault() string {
	if inv.Currency == "" {
		return "EUR"
	}
	return inv.Currency
}
