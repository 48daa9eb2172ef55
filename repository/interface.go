package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/2eliot/Inefablestore/models"
)

var (
	// ErrNotFound means the requested row does not exist or is inactive
	ErrNotFound = errors.New("not found")
	// ErrReferenceTaken means a pending or approved order already claims the reference
	ErrReferenceTaken = errors.New("reference already claimed")
	// ErrBlocked means an identifier on the order is blocked
	ErrBlocked = errors.New("identifier blocked")
)

// ItemRepositoryInterface defines the contract for store package item operations
type ItemRepositoryInterface interface {
	ListByPackage(ctx context.Context, storePackageID int64) ([]models.Item, error)
	GetByID(ctx context.Context, itemID int64) (*models.Item, error)
}

// ConfigRepositoryInterface defines the contract for store configuration operations
type ConfigRepositoryInterface interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	ExchangeRate(ctx context.Context) (decimal.Decimal, error)
	Payments(ctx context.Context) (*models.PaymentsConfig, error)
}

// SpecialUserRepositoryInterface defines the contract for referral code operations
type SpecialUserRepositoryInterface interface {
	GetByCode(ctx context.Context, code string) (*models.SpecialUser, error)
	ItemDiscounts(ctx context.Context, specialUserID int64) ([]models.ItemDiscount, error)
}

// OrderRepositoryInterface defines the contract for order operations
type OrderRepositoryInterface interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, bool, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	IsBlocked(ctx context.Context, email, phone, customerID string) (bool, error)
	PruneBuyerHistory(ctx context.Context, email, customerID string, keep int) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
}
