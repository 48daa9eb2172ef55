// Package storeapi defines the store backend contracts consumed by the checkout engine
// and an HTTP client implementing them.
package storeapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/2eliot/Inefablestore/models"
)

// Catalog serves the data a checkout view needs before pricing
type Catalog interface {
	ItemsForProduct(ctx context.Context, productID int64) ([]models.Item, error)
	// ExchangeRate returns local units per USD; zero means unknown
	ExchangeRate(ctx context.Context) (decimal.Decimal, error)
	PaymentMethods(ctx context.Context) (*models.PaymentsConfig, error)
}

// DiscountValidator validates referral/creator codes
type DiscountValidator interface {
	// ValidateDiscountCode returns the grant for an allowed code and ErrDiscountRejected
	// when the backend answered that the code does not apply
	ValidateDiscountCode(ctx context.Context, code string, productID int64) (*models.DiscountGrant, error)
}

// ReferenceChecker asks whether a payment reference is already claimed
type ReferenceChecker interface {
	ReferenceExists(ctx context.Context, reference string) (*models.ReferenceCheckResponse, error)
}

// OrderCreator records an order claim
type OrderCreator interface {
	// CreateOrder returns the new order id. A blocked buyer yields an error matching
	// ErrBlocked and a claimed reference one matching ErrReferenceTaken.
	CreateOrder(ctx context.Context, payload *models.OrderPayload, idempotencyKey string) (int64, error)
}

// API is the full collaborator surface of the store backend
type API interface {
	Catalog
	DiscountValidator
	ReferenceChecker
	OrderCreator
}

var (
	// ErrDiscountRejected means the backend answered that a code is invalid or not allowed
	ErrDiscountRejected = errors.New("discount code rejected")
	// ErrBlocked means an identifier on the order is administratively blocked
	ErrBlocked = errors.New("order blocked")
	// ErrReferenceTaken means another pending or approved order claims the reference
	ErrReferenceTaken = errors.New("reference already claimed")
)

// StatusError is a non-2xx answer from the store backend
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("store api: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known statuses onto the sentinel errors
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case 403:
		return ErrBlocked
	case 409:
		return ErrReferenceTaken
	}
	return nil
}

// MessageOf returns the backend message carried by err, if any
func MessageOf(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}
