package models

import "github.com/shopspring/decimal"

// ItemDiscount overrides the global discount fraction for one item
type ItemDiscount struct {
	ItemID   int64           `json:"item_id"`
	Discount decimal.Decimal `json:"discount"`
}

// DiscountGrant is the outcome of validating a referral/creator code
type DiscountGrant struct {
	Code          string          `json:"code"`
	Discount      decimal.Decimal `json:"discount"` // global fraction, 0 <= f < 1
	ItemDiscounts []ItemDiscount  `json:"item_discounts,omitempty"`
}

// DiscountValidationResponse is the body of GET /store/special/validate
// Example response:
// {"ok": true, "allowed": true, "discount": 0.1, "item_discounts": [{"item_id": 7, "discount": 0.15}]}
type DiscountValidationResponse struct {
	OK            bool            `json:"ok"`
	Allowed       bool            `json:"allowed"`
	Discount      decimal.Decimal `json:"discount"`
	ItemDiscounts []ItemDiscount  `json:"item_discounts,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// Special user scopes
const (
	SpecialScopeAll     = "all"
	SpecialScopePackage = "package"
)

// SpecialUser is a creator/referral partner owning a discount code
type SpecialUser struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discount_percent"` // 10 means 10%
	Scope           string          `json:"scope"`            // all | package
	ScopePackageID  *int64          `json:"scope_package_id,omitempty"`
	Active          bool            `json:"active"`
}

// AppliesTo reports whether the code may be used on the given store package
func (s SpecialUser) AppliesTo(storePackageID int64) bool {
	if s.Scope != SpecialScopePackage {
		return true
	}
	if storePackageID <= 0 {
		return false
	}
	return s.ScopePackageID == nil || *s.ScopePackageID == storePackageID
}

// PercentToFraction converts a percent (10) to a fraction (0.1), rounded to 4 places
func PercentToFraction(p decimal.Decimal) decimal.Decimal {
	return p.Div(decimal.NewFromInt(100)).Round(4)
}
