package models

import "strings"

// Currency is the symbol a checkout is displayed and charged in
type Currency string

const (
	CurrencyUSD Currency = "USD"
	// CurrencyBSD is the local currency (bolívares), converted through the store exchange rate
	CurrencyBSD Currency = "BSD"
)

// PaymentMethod identifies how the buyer claims to have paid
type PaymentMethod string

const (
	PaymentMethodPagoMovil PaymentMethod = "pm"
	PaymentMethodBinance   PaymentMethod = "binance"
)

// Quantity bounds for a single checkout line
const (
	MinQuantity = 1
	MaxQuantity = 99
)

// ParseCurrency normalizes a currency symbol, reporting whether it is one the store accepts
func ParseCurrency(s string) (Currency, bool) {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case CurrencyUSD:
		return CurrencyUSD, true
	case CurrencyBSD:
		return CurrencyBSD, true
	}
	return "", false
}

// PaymentMethodFor derives the payment method from the currency actually charged.
// Local currency is paid by pago móvil, USD through Binance.
func PaymentMethodFor(c Currency) PaymentMethod {
	if c == CurrencyBSD {
		return PaymentMethodPagoMovil
	}
	return PaymentMethodBinance
}

// CurrencyForMethod maps the navigation "method" parameter back to a currency
func CurrencyForMethod(method string) (Currency, bool) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(method))) {
	case PaymentMethodPagoMovil:
		return CurrencyBSD, true
	case PaymentMethodBinance:
		return CurrencyUSD, true
	}
	return "", false
}

// ClampQuantity keeps q within [MinQuantity, MaxQuantity]
func ClampQuantity(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}
