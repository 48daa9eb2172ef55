package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/2eliot/Inefablestore/models"
	"github.com/2eliot/Inefablestore/notify"
	"github.com/2eliot/Inefablestore/repository"
	"github.com/2eliot/Inefablestore/storeapi"
)

// Messages returned to buyers by the store backend
const (
	MsgEmptyCode          = "Código vacío"
	MsgInvalidCode        = "Código inválido"
	MsgCodeOutOfScope     = "El código no aplica a este juego"
	MsgPackageRequired    = "store_package_id requerido"
	MsgReferenceRequired  = "Referencia requerida"
	MsgInvalidAmount      = "Monto inválido"
	MsgInvalidMethod      = "Método inválido"
	MsgInvalidCurrency    = "Moneda inválida"
	MsgInvalidQuantity    = "Cantidad inválida"
	MsgInvalidItem        = "Paquete inválido"
	MsgBlocked            = "No podemos procesar tu orden. Contáctanos para más información"
	MsgReferenceNotUnique = "Esta referencia ya fue registrada en otra orden"
)

const (
	maxReferenceLength = 120
	notifyTimeout      = 5 * time.Second

	// MaxOrdersPerBuyer is how many of a buyer's orders are kept; older ones are pruned
	MaxOrdersPerBuyer = 30
)

// RequestError is a rejection the HTTP layer reports with StatusCode and Message.
// Err, when set, is the storeapi sentinel the rejection corresponds to.
type RequestError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Unwrap() error { return e.Err }

func badRequest(msg string) *RequestError {
	return &RequestError{StatusCode: http.StatusBadRequest, Message: msg}
}

// StoreService implements the store backend over the repositories
type StoreService struct {
	items    repository.ItemRepositoryInterface
	config   repository.ConfigRepositoryInterface
	specials repository.SpecialUserRepositoryInterface
	orders   repository.OrderRepositoryInterface
	notifier notify.Notifier
}

// Ensure StoreService implements storeapi.API
var _ storeapi.API = (*StoreService)(nil)

// NewStoreService creates a new StoreService. A nil notifier disables order events.
func NewStoreService(
	items repository.ItemRepositoryInterface,
	config repository.ConfigRepositoryInterface,
	specials repository.SpecialUserRepositoryInterface,
	orders repository.OrderRepositoryInterface,
	notifier notify.Notifier,
) *StoreService {
	return &StoreService{
		items:    items,
		config:   config,
		specials: specials,
		orders:   orders,
		notifier: notifier,
	}
}

// ItemsForProduct returns the active items of a store package
func (s *StoreService) ItemsForProduct(ctx context.Context, productID int64) ([]models.Item, error) {
	return s.items.ListByPackage(ctx, productID)
}

// Item returns one active item
func (s *StoreService) Item(ctx context.Context, itemID int64) (*models.Item, error) {
	return s.items.GetByID(ctx, itemID)
}

// ExchangeRate returns local units per USD, zero when unknown
func (s *StoreService) ExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	return s.config.ExchangeRate(ctx)
}

// PaymentMethods returns the configured destination accounts
func (s *StoreService) PaymentMethods(ctx context.Context) (*models.PaymentsConfig, error) {
	return s.config.Payments(ctx)
}

// ValidateDiscountCode resolves an active special user by code and checks its scope.
// Rejections are *RequestError values unwrapping to storeapi.ErrDiscountRejected.
func (s *StoreService) ValidateDiscountCode(ctx context.Context, code string, productID int64) (*models.DiscountGrant, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &RequestError{StatusCode: http.StatusBadRequest, Message: MsgEmptyCode, Err: storeapi.ErrDiscountRejected}
	}

	su, err := s.specials.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			zap.S().Infof("🏷️ ValidateDiscountCode: Unknown code %q", code)
			return nil, &RequestError{StatusCode: http.StatusNotFound, Message: MsgInvalidCode, Err: storeapi.ErrDiscountRejected}
		}
		return nil, err
	}
	if !su.AppliesTo(productID) {
		zap.S().Infof("🏷️ ValidateDiscountCode: Code %q not valid for store_package_id=%d", code, productID)
		return nil, &RequestError{StatusCode: http.StatusBadRequest, Message: MsgCodeOutOfScope, Err: storeapi.ErrDiscountRejected}
	}

	overrides, err := s.specials.ItemDiscounts(ctx, su.ID)
	if err != nil {
		return nil, err
	}

	return &models.DiscountGrant{
		Code:          su.Code,
		Discount:      models.PercentToFraction(su.DiscountPercent),
		ItemDiscounts: overrides,
	}, nil
}

// ReferenceExists reports whether a pending or approved order claims reference
func (s *StoreService) ReferenceExists(ctx context.Context, reference string) (*models.ReferenceCheckResponse, error) {
	exists, err := s.orders.ReferenceExists(ctx, strings.TrimSpace(reference))
	if err != nil {
		return nil, err
	}
	resp := &models.ReferenceCheckResponse{Exists: exists}
	if exists {
		resp.Message = MsgReferenceNotUnique
	}
	return resp, nil
}

// CreateOrder validates payload and records a pending order. Replaying an idempotency key
// returns the original order id without creating a second order.
func (s *StoreService) CreateOrder(ctx context.Context, payload *models.OrderPayload, idempotencyKey string) (int64, error) {
	order, err := s.orderFromPayload(ctx, payload)
	if err != nil {
		return 0, err
	}
	order.IdempotencyKey = strings.TrimSpace(idempotencyKey)

	blocked, err := s.orders.IsBlocked(ctx, order.Email, order.Phone, order.CustomerID)
	if err != nil {
		return 0, err
	}
	if blocked {
		zap.S().Warnf("🚫 CreateOrder: Blocked identifier on order for store_package_id=%d", order.StorePackageID)
		return 0, &RequestError{StatusCode: http.StatusForbidden, Message: MsgBlocked, Err: storeapi.ErrBlocked}
	}

	if order.SpecialCode != "" {
		su, err := s.specials.GetByCode(ctx, order.SpecialCode)
		switch {
		case err == nil:
			order.SpecialUserID = &su.ID
		case !errors.Is(err, repository.ErrNotFound):
			zap.S().Warnf("⚠️ CreateOrder: Could not resolve special code %q: %v", order.SpecialCode, err)
		}
	}

	saved, created, err := s.orders.Create(ctx, order)
	if err != nil {
		if errors.Is(err, repository.ErrReferenceTaken) {
			return 0, &RequestError{StatusCode: http.StatusConflict, Message: MsgReferenceNotUnique, Err: storeapi.ErrReferenceTaken}
		}
		return 0, err
	}

	if !created {
		return saved.ID, nil
	}

	if s.notifier != nil {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		if err := s.notifier.OrderCreated(nctx, saved); err != nil {
			zap.S().Errorf("❌ CreateOrder: Failed to publish order id=%d: %v", saved.ID, err)
		}
		cancel()
	}

	// history pruning never fails the order
	if _, err := s.orders.PruneBuyerHistory(ctx, saved.Email, saved.CustomerID, MaxOrdersPerBuyer); err != nil {
		zap.S().Warnf("⚠️ CreateOrder: Failed to prune order history for order id=%d: %v", saved.ID, err)
	}
	return saved.ID, nil
}

func (s *StoreService) orderFromPayload(ctx context.Context, p *models.OrderPayload) (*models.Order, error) {
	if p == nil || p.StorePackageID <= 0 {
		return nil, badRequest(MsgPackageRequired)
	}
	reference := strings.TrimSpace(p.Reference)
	if reference == "" || len(reference) > maxReferenceLength {
		return nil, badRequest(MsgReferenceRequired)
	}
	if !p.Amount.IsPositive() {
		return nil, badRequest(MsgInvalidAmount)
	}
	method := models.PaymentMethod(strings.ToLower(strings.TrimSpace(string(p.Method))))
	if method != models.PaymentMethodPagoMovil && method != models.PaymentMethodBinance {
		return nil, badRequest(MsgInvalidMethod)
	}
	currency := models.CurrencyUSD
	if p.Currency != "" {
		c, ok := models.ParseCurrency(string(p.Currency))
		if !ok {
			return nil, badRequest(MsgInvalidCurrency)
		}
		currency = c
	}
	quantity := p.Quantity
	if quantity == 0 {
		quantity = models.MinQuantity
	}
	if quantity < models.MinQuantity || quantity > models.MaxQuantity {
		return nil, badRequest(MsgInvalidQuantity)
	}

	order := &models.Order{
		Status:         models.OrderStatusPending,
		StorePackageID: p.StorePackageID,
		Quantity:       quantity,
		Method:         method,
		Currency:       currency,
		Amount:         p.Amount.Round(2),
		Reference:      reference,
		Name:           strings.TrimSpace(p.Name),
		Email:          strings.TrimSpace(p.Email),
		Phone:          strings.TrimSpace(p.Phone),
		CustomerID:     strings.TrimSpace(p.CustomerID),
		CustomerZone:   strings.TrimSpace(p.CustomerZone),
		SpecialCode:    strings.TrimSpace(p.SpecialCode),
	}

	if p.ItemID > 0 {
		if _, err := s.items.GetByID(ctx, p.ItemID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, badRequest(MsgInvalidItem)
			}
			return nil, fmt.Errorf("failed to check item: %w", err)
		}
		id := p.ItemID
		order.ItemID = &id
	}
	return order, nil
}
