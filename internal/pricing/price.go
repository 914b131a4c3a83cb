// Package pricing converts human-entered prices into canonical decimals and back.
package pricing

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ErrInvalidPrice = errors.New("invalid price")

// Format tells Parse which separators the input uses.
type Format int

const (
	// FormatBRL uses "." for thousands and "," for decimals: "1.234,56".
	FormatBRL Format = iota
	// FormatPlain is a canonical decimal such as "1234.56".
	FormatPlain
)

const currencySymbol = "R$"

// maxPrice is the first value a NUMERIC(12,2) column cannot hold.
var maxPrice = decimal.New(1, 10)

var canonical = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// Parse returns the price rounded to cents. Anything that is not a number, or
// is not strictly positive after rounding, fails with ErrInvalidPrice.
func Parse(raw string, f Format) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimPrefix(s, currencySymbol))
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidPrice)
	}

	if f == FormatBRL {
		if strings.Count(s, ",") > 1 {
			return decimal.Zero, fmt.Errorf("%w: %q has more than one decimal separator", ErrInvalidPrice, raw)
		}
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	if !canonical.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidPrice, raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidPrice, err)
	}

	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: must be greater than zero", ErrInvalidPrice)
	}
	if d.GreaterThanOrEqual(maxPrice) {
		return decimal.Zero, fmt.Errorf("%w: must be less than %s", ErrInvalidPrice, maxPrice)
	}
	return d, nil
}

// FormatCurrency renders d as Brazilian currency, e.g. "R$ 1.234,56".
func FormatCurrency(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return currencySymbol + " " + brPrinter.Sprintf("%.2f", f)
}
