package models

import "github.com/shopspring/decimal"

func init() {
	// Prices and amounts travel as JSON numbers on the store API.
	decimal.MarshalJSONWithoutQuotes = true
}

// Item represents a purchasable package item (e.g. "100 diamonds") of a store package
type Item struct {
	ID      int64           `json:"id"`
	Title   string          `json:"title"`
	Price   decimal.Decimal `json:"price"`             // USD, never negative
	Sticker string          `json:"sticker,omitempty"` // non-empty marks a special tier
	Icon    string          `json:"icon,omitempty"`
}

// IsSpecial reports whether the item carries a special-tier sticker
func (i Item) IsSpecial() bool {
	return i.Sticker != ""
}

// ItemsResponse is the body of GET /store/package/{gid}/items
// Example response:
// {
//   "ok": true,
//   "items": [
//     {"id": 7, "title": "100 Diamantes", "price": 1.5, "sticker": "hot", "icon": "icons/100.png"}
//   ]
// }
type ItemsResponse struct {
	OK    bool   `json:"ok"`
	Items []Item `json:"items"`
	Error string `json:"error,omitempty"`
}
