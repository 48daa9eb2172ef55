package checkout

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/2eliot/Inefablestore/metrics"
	"github.com/2eliot/Inefablestore/models"
	"github.com/2eliot/Inefablestore/storeapi"
)

// DefaultSubmitTimeout bounds a single order submission
const DefaultSubmitTimeout = 15 * time.Second

// ErrorKind classifies a checkout failure
type ErrorKind string

const (
	KindNone           ErrorKind = ""
	KindValidation     ErrorKind = "validation"
	KindResolutionMiss ErrorKind = "resolution_miss"
	KindCollision      ErrorKind = "collision"
	KindBlocked        ErrorKind = "blocked"
	KindTransient      ErrorKind = "transient"
	KindBusy           ErrorKind = "busy"
)

// Outcome is the terminal result of a submission
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeBlocked Outcome = "blocked"
	OutcomeFailed  Outcome = "failed"
)

// User-facing reasons
const (
	ReasonNoItem         = "Selecciona un paquete"
	ReasonBadReference   = "La referencia debe tener 6 dígitos"
	ReasonNoName         = "Ingresa tu nombre"
	ReasonBadEmail       = "Ingresa un correo válido"
	ReasonBusy           = "Ya estamos procesando tu orden"
	ReasonTimeout        = "La solicitud tardó demasiado, intenta de nuevo"
	ReasonTransient      = "No pudimos registrar tu orden, intenta de nuevo"
	ReasonBlocked        = "No podemos procesar tu orden. Contáctanos para más información"
	ReasonReferenceTaken = referenceTakenFallback
)

// SubmitRequest is everything a confirm action sends
type SubmitRequest struct {
	ProductID int64
	Item      *models.Item
	Selection models.CheckoutSelection
	Amount    decimal.Decimal
	Currency  models.Currency
	Reference string
	// DiscountCode is set only when the code was granted
	DiscountCode string
}

// SubmitResult is Success(OrderID), Blocked(Reason) or Failed(Kind, Reason)
type SubmitResult struct {
	Outcome  Outcome   `json:"outcome"`
	OrderID  int64     `json:"order_id,omitempty"`
	Kind     ErrorKind `json:"kind,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	TimedOut bool      `json:"timed_out,omitempty"`
}

func failed(kind ErrorKind, reason string) SubmitResult {
	return SubmitResult{Outcome: OutcomeFailed, Kind: kind, Reason: reason}
}

// ValidationError is a client-side rejection raised before any network call
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// BuildPayload validates req and renders the order payload. The payment method follows
// the charged currency.
func BuildPayload(req SubmitRequest) (*models.OrderPayload, error) {
	if req.Item == nil {
		return nil, &ValidationError{Reason: ReasonNoItem}
	}
	if !IsValidReference(req.Reference) {
		return nil, &ValidationError{Reason: ReasonBadReference}
	}
	buyer := req.Selection.Buyer()
	name := strings.TrimSpace(buyer.Name)
	if name == "" {
		return nil, &ValidationError{Reason: ReasonNoName}
	}
	email := strings.TrimSpace(buyer.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, &ValidationError{Reason: ReasonBadEmail}
	}

	currency := req.Currency
	if currency == "" {
		currency = models.CurrencyUSD
	}
	return &models.OrderPayload{
		StorePackageID: req.ProductID,
		ItemID:         req.Item.ID,
		Quantity:       models.ClampQuantity(req.Selection.Quantity),
		Amount:         req.Amount.Round(2),
		Currency:       currency,
		Method:         models.PaymentMethodFor(currency),
		Reference:      req.Reference,
		Name:           name,
		Email:          email,
		Phone:          strings.TrimSpace(buyer.Phone),
		CustomerID:     strings.TrimSpace(buyer.CustomerID),
		CustomerZone:   strings.TrimSpace(buyer.ZoneID),
		SpecialCode:    strings.TrimSpace(req.DiscountCode),
	}, nil
}

// OrderSubmitter posts orders, one request per confirm action
type OrderSubmitter struct {
	api     storeapi.OrderCreator
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.CheckoutMetrics

	busy atomic.Bool
}

// NewOrderSubmitter creates a submitter; a non-positive timeout uses DefaultSubmitTimeout
func NewOrderSubmitter(api storeapi.OrderCreator, timeout time.Duration, logger *zap.Logger, m *metrics.CheckoutMetrics) *OrderSubmitter {
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderSubmitter{api: api, timeout: timeout, logger: logger, metrics: m}
}

// Busy reports whether a submission is in flight
func (s *OrderSubmitter) Busy() bool {
	return s.busy.Load()
}

// Submit validates req and posts it once. While a submission is in flight further calls
// fail with KindBusy and send nothing.
func (s *OrderSubmitter) Submit(ctx context.Context, req SubmitRequest) SubmitResult {
	payload, err := BuildPayload(req)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return s.observe(failed(KindValidation, ve.Reason), 0)
		}
		return s.observe(failed(KindValidation, err.Error()), 0)
	}

	if !s.busy.CompareAndSwap(false, true) {
		return failed(KindBusy, ReasonBusy)
	}
	defer s.busy.Store(false)

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := uuid.NewString()
	orderID, err := s.api.CreateOrder(ctx, payload, key)
	took := time.Since(start)
	if err == nil {
		s.logger.Info("order created",
			zap.Int64("order_id", orderID),
			zap.Int64("store_package_id", payload.StorePackageID),
			zap.String("amount", payload.Amount.String()),
			zap.String("currency", string(payload.Currency)))
		return s.observe(SubmitResult{Outcome: OutcomeSuccess, OrderID: orderID}, took)
	}

	return s.observe(s.classify(ctx, err, key), took)
}

func (s *OrderSubmitter) classify(ctx context.Context, err error, key string) SubmitResult {
	msg := storeapi.MessageOf(err)
	switch {
	case errors.Is(err, storeapi.ErrBlocked):
		s.logger.Warn("order blocked", zap.String("idempotency_key", key), zap.Error(err))
		if msg == "" {
			msg = ReasonBlocked
		}
		return SubmitResult{Outcome: OutcomeBlocked, Kind: KindBlocked, Reason: msg}
	case errors.Is(err, storeapi.ErrReferenceTaken):
		if msg == "" {
			msg = ReasonReferenceTaken
		}
		return failed(KindCollision, msg)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		s.logger.Warn("order submission timed out", zap.String("idempotency_key", key), zap.Duration("timeout", s.timeout))
		r := failed(KindTransient, ReasonTimeout)
		r.TimedOut = true
		return r
	}
	s.logger.Error("order submission failed", zap.String("idempotency_key", key), zap.Error(err))
	return failed(KindTransient, ReasonTransient)
}

func (s *OrderSubmitter) observe(r SubmitResult, took time.Duration) SubmitResult {
	s.metrics.ObserveSubmission(string(r.Outcome), string(r.Kind), took)
	return r
}
