package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order status values
const (
	OrderStatusPending  = "pending"
	OrderStatusApproved = "approved"
	OrderStatusRejected = "rejected"
)

// Order represents an order row in the database
type Order struct {
	ID             int64           `json:"id"`
	Status         string          `json:"status"` // pending, approved, rejected
	StorePackageID int64           `json:"store_package_id"`
	ItemID         *int64          `json:"item_id,omitempty"`
	Quantity       int             `json:"quantity"`
	Method         PaymentMethod   `json:"method"`
	Currency       Currency        `json:"currency"`
	Amount         decimal.Decimal `json:"amount"`
	Reference      string          `json:"reference"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	CustomerID     string          `json:"customer_id"`
	CustomerZone   string          `json:"customer_zone"`
	SpecialCode    string          `json:"special_code,omitempty"`
	SpecialUserID  *int64          `json:"special_user_id,omitempty"`
	IdempotencyKey string          `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
}

// OrderPayload is the body of POST /orders, built once per confirm action
// Example request:
// POST /orders
// {
//   "store_package_id": 3,
//   "item_id": 7,
//   "quantity": 3,
//   "amount": 1160,
//   "currency": "BSD",
//   "method": "pm",
//   "reference": "123456",
//   "name": "Ana",
//   "email": "ana@example.com",
//   "phone": "+584141234567",
//   "customer_id": "99887766",
//   "customer_zone": "2041",
//   "special_code": "CREATOR10"
// }
type OrderPayload struct {
	StorePackageID int64           `json:"store_package_id"`
	ItemID         int64           `json:"item_id"`
	Quantity       int             `json:"quantity"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       Currency        `json:"currency"`
	Method         PaymentMethod   `json:"method"`
	Reference      string          `json:"reference"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	CustomerID     string          `json:"customer_id"`
	CustomerZone   string          `json:"customer_zone"`
	SpecialCode    string          `json:"special_code,omitempty"`
}

// CreateOrderResponse is the body returned by POST /orders
// Example success: {"ok": true, "order_id": 42}
// Example failure: {"ok": false, "error": "Referencia ya registrada"}
type CreateOrderResponse struct {
	OK      bool   `json:"ok"`
	OrderID int64  `json:"order_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ReferenceCheckResponse is the body of GET /orders/reference/{reference}/exists
type ReferenceCheckResponse struct {
	Exists  bool   `json:"exists"`
	Message string `json:"message,omitempty"`
}
