package facturx

import (
	"errors"
	"fmt"

	"github.com/jhoicas/facturx/internal/domain"
	"github.com/jhoicas/facturx/internal/domain/entity"
	pkgfacturx "github.com/jhoicas/facturx/pkg/facturx"
)

// ValidateInvoice valida el registro de factura una sola vez, en la frontera.
// Acumula todas las violaciones (errors.Join); cada una es un *domain.FieldError
// que nombra el campo. Los componentes internos asumen una factura ya validada.
func ValidateInvoice(inv *entity.Invoice) error {
	if inv == nil {
		return fmt.Errorf("%w: factura nula", domain.ErrInvalidInput)
	}
	var errs []error

	if inv.Number == "" {
		errs = append(errs, domain.NewFieldError("number", nil, fmt.Errorf("%w: número de factura requerido", domain.ErrInvalidInput)))
	}
	if inv.IssueDate.IsZero() {
		errs = append(errs, domain.NewFieldError("issue_date", nil, fmt.Errorf("%w: fecha de emisión requerida", domain.ErrInvalidInput)))
	}
	if cur := inv.CurrencyOrDefault(); cur != pkgfacturx.DefaultCurrency {
		errs = append(errs, domain.NewFieldError("currency", cur, fmt.Errorf("%w: solo se admite %s", domain.ErrInvalidInput, pkgfacturx.DefaultCurrency)))
	}

	errs = append(errs, validateParty("seller", inv.Seller)...)
	errs = append(errs, validateParty("buyer", inv.Buyer)...)

	if len(inv.Lines) == 0 {
		errs = append(errs, domain.NewFieldError("lines", nil, domain.ErrEmptyInvoice))
	}
	for i, line := range inv.Lines {
		if err := ValidateLine(i, line); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ValidateLine valida una línea: cantidad > 0, precio >= 0 y tasa de IVA admitida.
func ValidateLine(i int, line entity.LineItem) error {
	field := func(name string) string { return fmt.Sprintf("lines[%d].%s", i, name) }

	if !pkgfacturx.IsAllowedVATRate(line.VATRate) {
		return domain.NewFieldError(field("vat_rate"), line.VATRate.String(), domain.ErrInvalidTaxRate)
	}
	if !line.Quantity.IsPositive() {
		return domain.NewFieldError(field("quantity"), line.Quantity.String(),
			fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrInvalidInput))
	}
	if line.UnitPriceNet.IsNegative() {
		return domain.NewFieldError(field("unit_price_net"), line.UnitPriceNet.String(),
			fmt.Errorf("%w: el precio unitario no puede ser negativo", domain.ErrInvalidInput))
	}
	if line.Description == "" {
		return domain.NewFieldError(field("description"), nil,
			fmt.Errorf("%w: descripción requerida", domain.ErrInvalidInput))
	}
	return nil
}

func validateParty(prefix string, p entity.Party) []error {
	var errs []error
	if p.LegalName == "" {
		errs = append(errs, domain.NewFieldError(prefix+".legal_name", nil,
			fmt.Errorf("%w: razón social requerida", domain.ErrInvalidInput)))
	}
	if p.HasTradeRegistryID() {
		if err := pkgfacturx.ValidateSIRET(p.TradeRegistryID); err != nil {
			errs = append(errs, domain.NewFieldError(prefix+".trade_registry_id", p.TradeRegistryID,
				fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)))
		}
	}
	if p.HasTaxID() {
		if err := pkgfacturx.ValidateVATNumber(p.TaxID); err != nil {
			errs = append(errs, domain.NewFieldError(prefix+".tax_id", p.TaxID,
				fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)))
		}
	}
	if p.CountryID != "" && len(p.CountryID) != 2 {
		errs = append(errs, domain.NewFieldError(prefix+".country_id", p.CountryID,
			fmt.Errorf("%w: código de país ISO 3166-1 alfa-2", domain.ErrInvalidInput)))
	}
	return errs
}

// WithDerivedTaxID completa el N° de IVA de una parte francesa a partir de su SIRET
// cuando no se informó. Si no puede derivarse devuelve la parte sin cambios.
func WithDerivedTaxID(p entity.Party) entity.Party {
	if p.HasTaxID() || !p.HasTradeRegistryID() {
		return p
	}
	if p.CountryID != "" && p.CountryID != pkgfacturx.DefaultCountryID {
		return p
	}
	siren, err := pkgfacturx.SIRENFromSIRET(p.TradeRegistryID)
	if err != nil {
		return p
	}
	vat, err := pkgfacturx.FrenchVATNumberFromSIREN(siren)
	if err != nil {
		return p
	}
	p.TaxID = vat
	return p
}
