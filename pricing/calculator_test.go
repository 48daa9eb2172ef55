package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/2eliot/Inefablestore/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotal_Scenarios(t *testing.T) {
	tests := []struct {
		name         string
		price        string
		qty          int
		currency     models.Currency
		rate         string
		fraction     string
		wantAmount   string
		wantBase     string
		wantCurrency models.Currency
	}{
		{"usd with discount on one unit", "10", 3, models.CurrencyUSD, "40", "0.10", "29", "30", models.CurrencyUSD},
		{"local currency with rate", "10", 3, models.CurrencyBSD, "40", "0.10", "1160", "1200", models.CurrencyBSD},
		{"local currency without rate falls back to usd", "10", 3, models.CurrencyBSD, "0", "0.10", "29", "30", models.CurrencyUSD},
		{"negative rate is unknown", "10", 1, models.CurrencyBSD, "-5", "0", "10", "10", models.CurrencyUSD},
		{"no discount", "2.5", 4, models.CurrencyUSD, "0", "0", "10", "10", models.CurrencyUSD},
		{"fraction of one is ignored", "10", 1, models.CurrencyUSD, "0", "1", "10", "10", models.CurrencyUSD},
		{"negative fraction is ignored", "10", 1, models.CurrencyUSD, "0", "-0.2", "10", "10", models.CurrencyUSD},
		{"quantity below one counts as one", "10", 0, models.CurrencyUSD, "0", "0", "10", "10", models.CurrencyUSD},
		{"quantity capped at 99", "1", 150, models.CurrencyUSD, "0", "0", "99", "99", models.CurrencyUSD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ComputeTotal(d(tt.price), tt.qty, tt.currency, d(tt.rate), d(tt.fraction))
			assert.True(t, d(tt.wantAmount).Equal(q.Amount), "amount: want %s got %s", tt.wantAmount, q.Amount)
			assert.True(t, d(tt.wantBase).Equal(q.BaseAmount), "base: want %s got %s", tt.wantBase, q.BaseAmount)
			assert.Equal(t, tt.wantCurrency, q.ChargeCurrency)
		})
	}
}

func TestComputeTotal_DiscountIndependentOfQuantity(t *testing.T) {
	price := d("7.35")
	fraction := d("0.15")
	saving := price.Mul(fraction)

	for q := 1; q <= models.MaxQuantity; q++ {
		full := ComputeTotal(price, q, models.CurrencyUSD, decimal.Zero, decimal.Zero)
		discounted := ComputeTotal(price, q, models.CurrencyUSD, decimal.Zero, fraction)
		assert.True(t, full.Amount.Sub(saving).Equal(discounted.Amount), "quantity %d", q)
	}
}

func TestComputeTotal_UnknownRateForcesUSD(t *testing.T) {
	for _, c := range []models.Currency{models.CurrencyUSD, models.CurrencyBSD} {
		for _, rate := range []string{"0", "-1"} {
			q := ComputeTotal(d("5"), 2, c, d(rate), decimal.Zero)
			assert.Equal(t, models.CurrencyUSD, q.ChargeCurrency)
			assert.Equal(t, models.PaymentMethodBinance, q.PaymentMethod())
		}
	}
}

func TestComputeTotal_Idempotent(t *testing.T) {
	a := ComputeTotal(d("3.33"), 7, models.CurrencyBSD, d("36.5"), d("0.2"))
	b := ComputeTotal(d("3.33"), 7, models.CurrencyBSD, d("36.5"), d("0.2"))
	assert.True(t, a.Amount.Equal(b.Amount))
	assert.True(t, a.BaseAmount.Equal(b.BaseAmount))
	assert.Equal(t, a.ChargeCurrency, b.ChargeCurrency)
}

func TestQuote_Helpers(t *testing.T) {
	q := ComputeTotal(d("10"), 1, models.CurrencyBSD, d("36.123"), d("0.1"))
	assert.True(t, q.Discounted())
	assert.True(t, d("325.11").Equal(q.Rounded()))
	assert.Equal(t, models.PaymentMethodPagoMovil, q.PaymentMethod())

	none := QuoteItem(nil, 3, models.CurrencyUSD, decimal.Zero, d("0.5"))
	assert.True(t, none.Amount.IsZero())
	assert.False(t, none.Discounted())
}
