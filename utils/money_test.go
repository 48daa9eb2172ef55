package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/2eliot/Inefablestore/models"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   string
		currency models.Currency
		want     string
	}{
		{"29", models.CurrencyUSD, "$29.00"},
		{"1234.5", models.CurrencyUSD, "$1,234.50"},
		{"0.999", models.CurrencyUSD, "$1.00"},
		{"1160", models.CurrencyBSD, "Bs. 1.160"},
		{"1234567.6", models.CurrencyBSD, "Bs. 1.234.568"},
		{"999", models.CurrencyBSD, "Bs. 999"},
		{"-12", models.CurrencyUSD, "-$12.00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(decimal.RequireFromString(tt.amount), tt.currency))
		})
	}
}
