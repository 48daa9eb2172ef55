package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/2eliot/Inefablestore/models"
)

// Quote is the result of pricing one checkout line
type Quote struct {
	// Amount is what the buyer is charged, in ChargeCurrency
	Amount decimal.Decimal `json:"amount"`
	// BaseAmount is the pre-discount amount in the same currency, for "was/now" display
	BaseAmount     decimal.Decimal `json:"base_amount"`
	ChargeCurrency models.Currency `json:"currency"`
	// DiscountFraction is the fraction actually applied to one unit
	DiscountFraction decimal.Decimal `json:"discount_fraction"`
	Quantity         int             `json:"quantity"`
}

// Discounted reports whether the quote is below its pre-discount amount
func (q Quote) Discounted() bool {
	return q.BaseAmount.GreaterThan(q.Amount)
}

// Rounded returns the charge amount rounded to cents, as sent on an order payload
func (q Quote) Rounded() decimal.Decimal {
	return q.Amount.Round(2)
}

// PaymentMethod derives the payment method from the charged currency
func (q Quote) PaymentMethod() models.PaymentMethod {
	return models.PaymentMethodFor(q.ChargeCurrency)
}

var one = decimal.NewFromInt(1)

// NormalizeFraction returns f when 0 <= f < 1 and zero otherwise
func NormalizeFraction(f decimal.Decimal) decimal.Decimal {
	if f.IsNegative() || f.GreaterThanOrEqual(one) {
		return decimal.Zero
	}
	return f
}

// ComputeTotal prices quantity units of an item.
//
// The discount is a flat deduction of unitPrice*fraction: it applies to exactly one unit,
// whatever the quantity. Local currency is only charged when the rate is positive; with an
// unknown rate the amount stays in USD instead of collapsing to zero.
func ComputeTotal(unitPrice decimal.Decimal, quantity int, currency models.Currency, rate decimal.Decimal, fraction decimal.Decimal) Quote {
	if unitPrice.IsNegative() {
		unitPrice = decimal.Zero
	}
	quantity = models.ClampQuantity(quantity)
	fraction = NormalizeFraction(fraction)

	base := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	discounted := base.Sub(unitPrice.Mul(fraction))

	q := Quote{
		Amount:           discounted,
		BaseAmount:       base,
		ChargeCurrency:   models.CurrencyUSD,
		DiscountFraction: fraction,
		Quantity:         quantity,
	}
	if currency == models.CurrencyBSD && rate.IsPositive() {
		q.Amount = discounted.Mul(rate)
		q.BaseAmount = base.Mul(rate)
		q.ChargeCurrency = models.CurrencyBSD
	}
	return q
}

// QuoteItem prices an item, treating a nil item as nothing to charge
func QuoteItem(item *models.Item, quantity int, currency models.Currency, rate decimal.Decimal, fraction decimal.Decimal) Quote {
	if item == nil {
		return ComputeTotal(decimal.Zero, quantity, currency, rate, decimal.Zero)
	}
	return ComputeTotal(item.Price, quantity, currency, rate, fraction)
}
