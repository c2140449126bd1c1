package facturx_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/jhoicas/facturx/internal/domain"
	"github.com/jhoicas/facturx/internal/domain/entity"
	"github.com/jhoicas/facturx/internal/domain/facturx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(qty, price, rate string) entity.LineItem {
	return entity.LineItem{
		Description:  "Prestation",
		Quantity:     d(qty),
		UnitPriceNet: d(price),
		VATRate:      d(rate),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario A: una línea, 2 × 100.00 al 20 %.
// ──────────────────────────────────────────────────────────────────────────────

func TestComputeTotals_EscenarioA(t *testing.T) {
	totals, err := facturx.ComputeTotals([]entity.LineItem{line("2", "100.00", "20")})
	require.NoError(t, err)

	require.Len(t, totals.Lines, 1)
	assert.Equal(t, "200.00", totals.Lines[0].Net.StringFixed(2))
	assert.Equal(t, "40.00", totals.Lines[0].VAT.StringFixed(2))
	assert.Equal(t, "240.00", totals.Lines[0].Gross.StringFixed(2))

	assert.Equal(t, "200.00", totals.TotalNet.StringFixed(2))
	assert.Equal(t, "40.00", totals.TotalVAT.StringFixed(2))
	assert.Equal(t, "240.00", totals.TotalGross.StringFixed(2))
	assert.Equal(t, "240.00", totals.AmountDue().StringFixed(2))
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario B: dos líneas con tasas distintas producen dos filas de desglose.
// ──────────────────────────────────────────────────────────────────────────────

func TestComputeTotals_EscenarioB(t *testing.T) {
	totals, err := facturx.ComputeTotals([]entity.LineItem{
		line("1", "50.00", "20"),
		line("1", "50.00", "5.5"),
	})
	require.NoError(t, err)

	require.Len(t, totals.Rates, 2)
	assert.Equal(t, "5.50", totals.Rates[0].Rate.StringFixed(2), "las tasas se ordenan de menor a mayor")
	assert.Equal(t, "50.00", totals.Rates[0].Net.StringFixed(2))
	assert.Equal(t, "2.75", totals.Rates[0].VAT.StringFixed(2))
	assert.Equal(t, "20.00", totals.Rates[1].Rate.StringFixed(2))
	assert.Equal(t, "50.00", totals.Rates[1].Net.StringFixed(2))
	assert.Equal(t, "10.00", totals.Rates[1].VAT.StringFixed(2))

	assert.Equal(t, "100.00", totals.TotalNet.StringFixed(2))
	assert.Equal(t, "12.75", totals.TotalVAT.StringFixed(2))
	assert.Equal(t, "112.75", totals.TotalGross.StringFixed(2))

	row, ok := totals.ByRate(d("5.5"))
	require.True(t, ok)
	assert.Equal(t, "2.75", row.VAT.StringFixed(2))
	_, ok = totals.ByRate(d("10"))
	assert.False(t, ok)
}

// Escenario C: tasa no admitida.
func TestComputeTotals_TasaNoAdmitida(t *testing.T) {
	_, err := facturx.ComputeTotals([]entity.LineItem{
		line("1", "10.00", "20"),
		line("1", "10.00", "7"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidTaxRate))
	assert.Equal(t, "lines[1].vat_rate", domain.FieldOf(err))
}

// Escenario D: sin líneas.
func TestComputeTotals_SinLineas(t *testing.T) {
	_, err := facturx.ComputeTotals(nil)
	assert.ErrorIs(t, err, domain.ErrEmptyInvoice)
}

func TestComputeTotals_EntradaInvalida(t *testing.T) {
	_, err := facturx.ComputeTotals([]entity.LineItem{line("0", "10.00", "20")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, "lines[0].quantity", domain.FieldOf(err))

	_, err = facturx.ComputeTotals([]entity.LineItem{line("1", "-1", "20")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, "lines[0].unit_price_net", domain.FieldOf(err))
}

// ──────────────────────────────────────────────────────────────────────────────
// Redondeo bancario (mitad al par) por línea, antes de agregar.
// ──────────────────────────────────────────────────────────────────────────────

func TestLineAmounts_RedondeoBancario(t *testing.T) {
	cases := []struct {
		name           string
		item           entity.LineItem
		net, vat, gros string
	}{
		{"neto 0.125 baja al par", line("1", "0.125", "0"), "0.12", "0.00", "0.12"},
		{"neto 0.135 sube al par", line("1", "0.135", "0"), "0.14", "0.00", "0.14"},
		{"IVA 0.025 baja al par", line("1", "0.25", "10"), "0.25", "0.02", "0.27"},
		{"IVA sobre neto redondeado", line("3", "0.333", "20"), "1.00", "0.20", "1.20"},
		{"tasa 5.5", line("1", "19.99", "5.5"), "19.99", "1.10", "21.09"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := facturx.LineAmounts(0, tc.item)
			assert.Equal(t, tc.net, got.Net.StringFixed(2))
			assert.Equal(t, tc.vat, got.VAT.StringFixed(2))
			assert.Equal(t, tc.gros, got.Gross.StringFixed(2))
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades: invariante de redondeo, completitud del desglose, determinismo.
// ──────────────────────────────────────────────────────────────────────────────

func randomLines(r *rand.Rand, n int) []entity.LineItem {
	rates := []string{"0", "5.5", "10", "20"}
	lines := make([]entity.LineItem, n)
	for i := range lines {
		lines[i] = entity.LineItem{
			Description:  "Article",
			Quantity:     decimal.New(int64(r.Intn(9999)+1), -int32(r.Intn(4))),
			UnitPriceNet: decimal.New(int64(r.Intn(1_000_000)), -int32(r.Intn(4))),
			VATRate:      d(rates[r.Intn(len(rates))]),
		}
	}
	return lines
}

func TestComputeTotals_InvarianteDeRedondeo(t *testing.T) {
	r := rand.New(rand.NewSource(20240917))
	for iter := 0; iter < 500; iter++ {
		lines := randomLines(r, r.Intn(12)+1)
		totals, err := facturx.ComputeTotals(lines)
		require.NoError(t, err)

		assert.True(t, totals.TotalGross.Equal(totals.TotalNet.Add(totals.TotalVAT)),
			"bruto debe ser exactamente neto + IVA (iteración %d)", iter)
		for _, l := range totals.Lines {
			assert.LessOrEqual(t, -l.Net.Exponent(), int32(2), "neto con más de 2 decimales")
			assert.LessOrEqual(t, -l.VAT.Exponent(), int32(2), "IVA con más de 2 decimales")
		}
		require.NoError(t, facturx.CheckConsistency(totals))
	}
}

func TestComputeTotals_CompletitudDelDesglose(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		lines := randomLines(r, r.Intn(20)+1)
		totals, err := facturx.ComputeTotals(lines)
		require.NoError(t, err)

		distinct := map[string]bool{}
		for _, l := range lines {
			distinct[l.VATRate.String()] = true
		}
		assert.Len(t, totals.Rates, len(distinct), "una fila por tasa distinta")

		sumNet, sumVAT := decimal.Zero, decimal.Zero
		for i, row := range totals.Rates {
			sumNet = sumNet.Add(row.Net)
			sumVAT = sumVAT.Add(row.VAT)
			if i > 0 {
				assert.True(t, totals.Rates[i-1].Rate.LessThan(row.Rate), "orden ascendente")
			}
		}
		assert.True(t, sumNet.Equal(totals.TotalNet))
		assert.True(t, sumVAT.Equal(totals.TotalVAT))
	}
}

func TestComputeTotals_Determinista(t *testing.T) {
	lines := randomLines(rand.New(rand.NewSource(1)), 15)
	a, err := facturx.ComputeTotals(lines)
	require.NoError(t, err)
	b, err := facturx.ComputeTotals(lines)
	require.NoError(t, err)
	assert.Equal(t, render(a), render(b))
}

func render(t entity.TotalsBreakdown) []string {
	var out []string
	for _, l := range t.Lines {
		out = append(out, l.Net.StringFixed(2), l.VAT.StringFixed(2), l.Gross.StringFixed(2))
	}
	for _, r := range t.Rates {
		out = append(out, r.Rate.String(), r.Net.StringFixed(2), r.VAT.StringFixed(2))
	}
	return append(out, t.TotalNet.StringFixed(2), t.TotalVAT.StringFixed(2), t.TotalGross.StringFixed(2))
}

func TestCheckConsistency_DetectaDefecto(t *testing.T) {
	totals, err := facturx.ComputeTotals([]entity.LineItem{line("1", "10", "20")})
	require.NoError(t, err)

	totals.TotalGross = totals.TotalGross.Add(d("0.01"))
	assert.ErrorIs(t, facturx.CheckConsistency(totals), domain.ErrRoundingInconsistency)
}
