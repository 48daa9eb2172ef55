package models

import "github.com/shopspring/decimal"

// ExchangeRateResponse is the body of GET /store/rate.
// A zero rate means the rate is unknown.
type ExchangeRateResponse struct {
	Rate decimal.Decimal `json:"rate"`
}

// PaymentsConfig holds the admin-configured destination accounts shown at checkout
type PaymentsConfig struct {
	PMBank       string `json:"pm_bank"`
	PMName       string `json:"pm_name"`
	PMPhone      string `json:"pm_phone"`
	PMID         string `json:"pm_id"`
	BinanceEmail string `json:"binance_email"`
	BinancePhone string `json:"binance_phone"`
}

// PaymentsResponse is the body of GET /store/payments
type PaymentsResponse struct {
	OK       bool           `json:"ok"`
	Payments PaymentsConfig `json:"payments"`
}

// PaymentRow is a label/value pair rendered in the checkout payment box
type PaymentRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// RowsFor returns the destination rows matching the charged currency
func (p PaymentsConfig) RowsFor(c Currency) []PaymentRow {
	if c == CurrencyBSD {
		return []PaymentRow{
			{Label: "Banco", Value: p.PMBank},
			{Label: "Nombre", Value: p.PMName},
			{Label: "Teléfono", Value: p.PMPhone},
			{Label: "Cédula/RIF", Value: p.PMID},
		}
	}
	return []PaymentRow{
		{Label: "Email", Value: p.BinanceEmail},
		{Label: "Pay ID", Value: p.BinancePhone},
	}
}
