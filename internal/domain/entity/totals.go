package entity

import "github.com/shopspring/decimal"

// LineAmounts importes de una línea, redondeados a 2 decimales.
type LineAmounts struct {
	Index   int
	VATRate decimal.Decimal
	Net     decimal.Decimal
	VAT     decimal.Decimal
	Gross   decimal.Decimal
}

// RateSubtotal fila del desglose de IVA (una por tasa distinta).
type RateSubtotal struct {
	Rate decimal.Decimal
	Net  decimal.Decimal
	VAT  decimal.Decimal
}

// TotalsBreakdown desglose derivado de las líneas.
// Invariante: TotalGross == TotalNet + TotalVAT, exacto.
type TotalsBreakdown struct {
	Lines      []LineAmounts
	Rates      []RateSubtotal // orden ascendente por tasa
	TotalNet   decimal.Decimal
	TotalVAT   decimal.Decimal
	TotalGross decimal.Decimal
}

// ByRate busca la fila del desglose para una tasa.
func (t TotalsBreakdown) ByRate(rate decimal.Decimal) (RateSubtotal, bool) {
	for _, r := range t.Rates {
		if r.Rate.Equal(rate) {
			return r, true
		}
	}
	return RateSubtotal{}, false
}

// AmountDue importe a pagar (igual al total bruto: sin anticipos ni retenciones).
func (t TotalsBreakdown) AmountDue() decimal.Decimal {
	return t.TotalGross
}
