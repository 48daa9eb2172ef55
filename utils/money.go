package utils

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/2eliot/Inefablestore/models"
)

// FormatMoney formats an amount for display in the given currency.
// USD uses comma thousands and two decimals ("$1,234.50"); bolívares are shown
// without decimals and with dot thousands, as in Venezuela ("Bs. 1.160").
func FormatMoney(amount decimal.Decimal, currency models.Currency) string {
	if currency == models.CurrencyBSD {
		return formatGrouped(amount.Round(0), "Bs. ", '.', ',', 0)
	}
	return formatGrouped(amount.Round(2), "$", ',', '.', 2)
}

func formatGrouped(amount decimal.Decimal, symbol string, thousands, point byte, places int32) string {
	neg := amount.IsNegative()
	if neg {
		amount = amount.Neg()
	}

	s := amount.StringFixed(places)
	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}

	var b strings.Builder
	// Pre-allocate: digits + separators + symbol
	b.Grow(len(s) + len(s)/3 + len(symbol) + 1)
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(symbol)

	// Insert separators from the left.
	rem := len(intPart) % 3
	if rem == 0 {
		rem = 3
	}
	b.WriteString(intPart[:rem])
	for i := rem; i < len(intPart); i += 3 {
		b.WriteByte(thousands)
		b.WriteString(intPart[i : i+3])
	}
	if fracPart != "" {
		b.WriteByte(point)
		b.WriteString(fracPart)
	}

	return b.String()
}
