// Package facturx contiene la lógica de dominio de la factura Factur-X:
// cálculo de totales con desglose de IVA y validación del registro de entrada.
// Todas las funciones son puras: no hay estado compartido entre llamadas.
package facturx

import (
	"fmt"
	"slices"

	"github.com/jhoicas/facturx/internal/domain"
	"github.com/jhoicas/facturx/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// AmountScale decimales de todos los importes monetarios.
const AmountScale = 2

var hundred = decimal.NewFromInt(100)

// ComputeTotals calcula importes por línea, desglose por tasa de IVA y totales de la factura.
//
// Cada línea se redondea a 2 decimales (redondeo bancario, mitad al par) antes de agregarse;
// los subtotales y totales son sumas de importes ya redondeados y nunca se vuelven a redondear.
// Falla con ErrEmptyInvoice si no hay líneas y con ErrInvalidTaxRate si alguna tasa no está admitida.
func ComputeTotals(lines []entity.LineItem) (entity.TotalsBreakdown, error) {
	if len(lines) == 0 {
		return entity.TotalsBreakdown{}, domain.ErrEmptyInvoice
	}

	out := entity.TotalsBreakdown{
		Lines:      make([]entity.LineAmounts, 0, len(lines)),
		TotalNet:   decimal.Zero,
		TotalVAT:   decimal.Zero,
		TotalGross: decimal.Zero,
	}
	byRate := make(map[string]*entity.RateSubtotal)

	for i, line := range lines {
		if err := ValidateLine(i, line); err != nil {
			return entity.TotalsBreakdown{}, err
		}
		amounts := LineAmounts(i, line)
		out.Lines = append(out.Lines, amounts)

		key := line.VATRate.String()
		sub, ok := byRate[key]
		if !ok {
			sub = &entity.RateSubtotal{Rate: line.VATRate, Net: decimal.Zero, VAT: decimal.Zero}
			byRate[key] = sub
		}
		sub.Net = sub.Net.Add(amounts.Net)
		sub.VAT = sub.VAT.Add(amounts.VAT)
	}

	out.Rates = make([]entity.RateSubtotal, 0, len(byRate))
	for _, sub := range byRate {
		out.Rates = append(out.Rates, *sub)
	}
	slices.SortFunc(out.Rates, func(a, b entity.RateSubtotal) int { return a.Rate.Cmp(b.Rate) })

	for _, sub := range out.Rates {
		out.TotalNet = out.TotalNet.Add(sub.Net)
		out.TotalVAT = out.TotalVAT.Add(sub.VAT)
	}
	out.TotalGross = out.TotalNet.Add(out.TotalVAT)

	if err := CheckConsistency(out); err != nil {
		return entity.TotalsBreakdown{}, err
	}
	return out, nil
}

// LineAmounts calcula neto, IVA y bruto de una línea ya validada.
// neto = round(cantidad × precio), IVA = round(neto × tasa / 100), bruto = neto + IVA.
func LineAmounts(index int, line entity.LineItem) entity.LineAmounts {
	net := line.Quantity.Mul(line.UnitPriceNet).RoundBank(AmountScale)
	vat := net.Mul(line.VATRate).Div(hundred).RoundBank(AmountScale)
	return entity.LineAmounts{
		Index:   index,
		VATRate: line.VATRate,
		Net:     net,
		VAT:     vat,
		Gross:   net.Add(vat),
	}
}

// CheckConsistency verifica las identidades del desglose:
// bruto = neto + IVA, Σ líneas = Σ tasas = totales. Un fallo es un defecto del calculador.
func CheckConsistency(t entity.TotalsBreakdown) error {
	if !t.TotalGross.Equal(t.TotalNet.Add(t.TotalVAT)) {
		return fmt.Errorf("%w: bruto %s != neto %s + IVA %s",
			domain.ErrRoundingInconsistency, t.TotalGross.StringFixed(2), t.TotalNet.StringFixed(2), t.TotalVAT.StringFixed(2))
	}

	sumNet, sumVAT := decimal.Zero, decimal.Zero
	for _, r := range t.Rates {
		sumNet = sumNet.Add(r.Net)
		sumVAT = sumVAT.Add(r.VAT)
	}
	if !sumNet.Equal(t.TotalNet) || !sumVAT.Equal(t.TotalVAT) {
		return fmt.Errorf("%w: desglose por tasa (%s / %s) no coincide con los totales (%s / %s)",
			domain.ErrRoundingInconsistency, sumNet.StringFixed(2), sumVAT.StringFixed(2), t.TotalNet.StringFixed(2), t.TotalVAT.StringFixed(2))
	}

	if len(t.Lines) > 0 {
		lineNet, lineVAT := decimal.Zero, decimal.Zero
		for _, l := range t.Lines {
			if !l.Gross.Equal(l.Net.Add(l.VAT)) {
				return fmt.Errorf("%w: línea %d bruto %s != neto %s + IVA %s",
					domain.ErrRoundingInconsistency, l.Index, l.Gross.StringFixed(2), l.Net.StringFixed(2), l.VAT.StringFixed(2))
			}
			lineNet = lineNet.Add(l.Net)
			lineVAT = lineVAT.Add(l.VAT)
		}
		if !lineNet.Equal(t.TotalNet) || !lineVAT.Equal(t.TotalVAT) {
			return fmt.Errorf("%w: suma de líneas (%s / %s) no coincide con los totales",
				domain.ErrRoundingInconsistency, lineNet.StringFixed(2), lineVAT.StringFixed(2))
		}
	}
	return nil
}
