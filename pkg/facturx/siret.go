package facturx

import (
	"fmt"
	"strings"
	"unicode"
)

// ValidateSIRET valida un SIRET: 14 dígitos (se admiten espacios) con clave de Luhn.
func ValidateSIRET(siret string) error {
	digits := compact(siret)
	if len(digits) != 14 || !allDigits(digits) {
		return fmt.Errorf("facturx: SIRET debe tener 14 dígitos, se recibió %q", siret)
	}
	if !luhn(digits) {
		return fmt.Errorf("facturx: clave de control del SIRET inválida: %s", digits)
	}
	return nil
}

// ValidateSIREN valida un SIREN: 9 dígitos con clave de Luhn.
func ValidateSIREN(siren string) error {
	digits := compact(siren)
	if len(digits) != 9 || !allDigits(digits) {
		return fmt.Errorf("facturx: SIREN debe tener 9 dígitos, se recibió %q", siren)
	}
	if !luhn(digits) {
		return fmt.Errorf("facturx: clave de control del SIREN inválida: %s", digits)
	}
	return nil
}

// SIRENFromSIRET devuelve los 9 primeros dígitos del SIRET.
func SIRENFromSIRET(siret string) (string, error) {
	if err := ValidateSIRET(siret); err != nil {
		return "", err
	}
	return compact(siret)[:9], nil
}

// FrenchVATNumberFromSIREN calcula el N° de IVA intracomunitario francés:
// FR + clave (12 + 3 × (SIREN mod 97)) mod 97 en 2 dígitos + SIREN.
func FrenchVATNumberFromSIREN(siren string) (string, error) {
	if err := ValidateSIREN(siren); err != nil {
		return "", err
	}
	digits := compact(siren)
	var n int
	for _, d := range digits {
		n = n*10 + int(d-'0')
	}
	key := (12 + 3*(n%97)) % 97
	return fmt.Sprintf("FR%02d%s", key, digits), nil
}

// ValidateVATNumber comprueba la forma de un N° de IVA intracomunitario:
// prefijo de país de 2 letras seguido de 2 a 13 caracteres alfanuméricos.
// Para FR además verifica la clave contra el SIREN.
func ValidateVATNumber(vat string) error {
	v := strings.ToUpper(compact(vat))
	if len(v) < 4 || len(v) > 15 {
		return fmt.Errorf("facturx: longitud de N° de IVA inválida: %q", vat)
	}
	for _, r := range v[:2] {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("facturx: N° de IVA sin prefijo de país: %q", vat)
		}
	}
	for _, r := range v[2:] {
		if !unicode.IsDigit(r) && (r < 'A' || r > 'Z') {
			return fmt.Errorf("facturx: N° de IVA con caracteres no válidos: %q", vat)
		}
	}
	if v[:2] == "FR" && len(v) == 13 && allDigits(v[2:]) {
		expected, err := FrenchVATNumberFromSIREN(v[4:])
		if err != nil {
			return err
		}
		if expected != v {
			return fmt.Errorf("facturx: clave del N° de IVA francés inválida: esperado %s, recibido %s", expected, v)
		}
	}
	return nil
}

// luhn clave de Luhn: se duplica un dígito de cada dos empezando por el penúltimo desde la derecha.
func luhn(digits string) bool {
	var sum int
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
