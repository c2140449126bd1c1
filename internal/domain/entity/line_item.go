package entity

import "github.com/shopspring/decimal"

// LineItem representa una línea de factura. Los importes derivados (neto, IVA, bruto)
// no se almacenan: los recalcula el calculador de totales.
type LineItem struct {
	Description  string
	Quantity     decimal.Decimal // > 0
	UnitPriceNet decimal.Decimal // >= 0, sin IVA
	VATRate      decimal.Decimal // porcentaje: 0, 5.5, 10 o 20
}
