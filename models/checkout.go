package models

// CheckoutSelection is the in-progress checkout a buyer carries from the details view
// to the checkout view. ItemIndex is the position in the live item list, -1 when nothing
// is selected.
type CheckoutSelection struct {
	ItemIndex    int      `json:"selectedIndex"`
	Quantity     int      `json:"quantity"`
	Currency     Currency `json:"currency"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	CustomerID   string   `json:"customer_id"`
	ZoneID       string   `json:"zone_id"`
	DiscountCode string   `json:"discount_code"`
	Save         bool     `json:"save"`
}

// NewCheckoutSelection returns the first-visit defaults: no item, one unit, USD
func NewCheckoutSelection() CheckoutSelection {
	return CheckoutSelection{
		ItemIndex: -1,
		Quantity:  MinQuantity,
		Currency:  CurrencyUSD,
	}
}

// Buyer groups the buyer contact fields of a selection
type Buyer struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	CustomerID string `json:"customer_id"`
	ZoneID     string `json:"zone_id"`
}

// Buyer returns the buyer fields of the selection
func (s CheckoutSelection) Buyer() Buyer {
	return Buyer{
		Name:       s.Name,
		Email:      s.Email,
		Phone:      s.Phone,
		CustomerID: s.CustomerID,
		ZoneID:     s.ZoneID,
	}
}

// WithBuyer returns a copy of the selection with the buyer fields replaced
func (s CheckoutSelection) WithBuyer(b Buyer) CheckoutSelection {
	s.Name = b.Name
	s.Email = b.Email
	s.Phone = b.Phone
	s.CustomerID = b.CustomerID
	s.ZoneID = b.ZoneID
	return s
}
