package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// IssuedInvoice asiento del registro de facturas emitidas (opcional, PostgreSQL).
// Solo guarda la cabecera y la huella del XML; el documento lo conserva el llamador.
type IssuedInvoice struct {
	ID         string
	Number     string
	IssueDate  time.Time
	Profile    string
	SellerName string
	BuyerName  string
	Currency   string
	TotalNet   decimal.Decimal
	TotalVAT   decimal.Decimal
	TotalGross decimal.Decimal
	XMLDigest  string
	CreatedAt  time.Time
}
