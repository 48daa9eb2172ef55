// Package checkout holds the checkout engine: discount resolution, payment reference
// guarding, selection persistence and order submission, orchestrated per buyer session.
package checkout

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/2eliot/Inefablestore/metrics"
	"github.com/2eliot/Inefablestore/models"
	"github.com/2eliot/Inefablestore/pricing"
	"github.com/2eliot/Inefablestore/storeapi"
	"github.com/2eliot/Inefablestore/utils"
)

// ErrItemOutOfRange is returned when selecting an index outside the live item list
var ErrItemOutOfRange = errors.New("item index out of range")

// ErrUnknownCurrency is returned for a currency the store does not accept
var ErrUnknownCurrency = errors.New("unknown currency")

// Deps are the collaborators shared by every checkout
type Deps struct {
	API               storeapi.API
	Discounts         *DiscountResolver
	State             *StateStore
	SubmitTimeout     time.Duration
	ReferenceDebounce time.Duration
	Logger            *zap.Logger
	Metrics           *metrics.CheckoutMetrics
}

// Checkout holds one buyer's selection for one product and re-derives the quote and the
// submit gate after every change.
type Checkout struct {
	deps      Deps
	sess      *Session
	productID int64
	logger    *zap.Logger

	guard     *ReferenceGuard
	submitter *OrderSubmitter

	mu       sync.Mutex
	sel      models.CheckoutSelection
	items    []models.Item
	rate     decimal.Decimal
	payments *models.PaymentsConfig
	grant    *models.DiscountGrant
	last     *SubmitResult
}

// NewCheckout creates a checkout for productID in sess, starting from defaults
func NewCheckout(deps Deps, sess *Session, productID int64) *Checkout {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Discounts == nil {
		deps.Discounts = NewDiscountResolver(deps.API, logger)
	}
	if deps.State == nil {
		deps.State = NewStateStore(NewMemoryStateBackend(), logger)
	}

	c := &Checkout{
		deps:      deps,
		sess:      sess,
		productID: productID,
		logger:    logger.With(zap.String("session", sess.ID), zap.Int64("product_id", productID)),
		sel:       models.NewCheckoutSelection(),
		rate:      decimal.Zero,
	}
	c.guard = sess.Guard(func() *ReferenceGuard {
		return NewReferenceGuard(deps.API, deps.ReferenceDebounce, logger, deps.Metrics)
	})
	c.submitter = sess.Submitter(func() *OrderSubmitter {
		return NewOrderSubmitter(deps.API, deps.SubmitTimeout, logger, deps.Metrics)
	})
	return c
}

// Rehydrate restores the selection from params and persisted state, then loads the item
// list, exchange rate and payment accounts concurrently. Each fetch may fail on its own:
// no items leaves nothing selectable, no rate means USD, no payments hides the accounts.
func (c *Checkout) Rehydrate(ctx context.Context, params url.Values) {
	sel := c.deps.State.Load(ctx, c.sess, params)
	c.mu.Lock()
	c.sel = sel
	c.mu.Unlock()

	var (
		items    []models.Item
		rate     = decimal.Zero
		payments *models.PaymentsConfig
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := c.deps.API.ItemsForProduct(gctx, c.productID)
		if err != nil {
			c.logger.Warn("failed to load items", zap.Error(err))
			return nil
		}
		items = list
		return nil
	})
	g.Go(func() error {
		r, err := c.deps.API.ExchangeRate(gctx)
		if err != nil {
			c.logger.Warn("failed to load exchange rate", zap.Error(err))
			return nil
		}
		rate = r
		return nil
	})
	g.Go(func() error {
		p, err := c.deps.API.PaymentMethods(gctx)
		if err != nil {
			c.logger.Warn("failed to load payment methods", zap.Error(err))
			return nil
		}
		payments = p
		return nil
	})
	_ = g.Wait()

	c.mu.Lock()
	c.items = items
	c.rate = rate
	c.payments = payments
	c.sel = Revalidate(c.sel, items)
	code := c.sel.DiscountCode
	if code == "" {
		// the navigation superseded any earlier code
		c.grant = nil
	}
	c.mu.Unlock()

	if code != "" {
		c.ApplyDiscountCode(ctx, code)
	}
}

// SetItems replaces the live item list, revalidating the selection against it
func (c *Checkout) SetItems(items []models.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.sel = Revalidate(c.sel, items)
}

// SetRate replaces the exchange rate; zero means unknown
func (c *Checkout) SetRate(rate decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = rate
}

// SelectItem selects the item at index
func (c *Checkout) SelectItem(ctx context.Context, index int) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.items) {
		c.mu.Unlock()
		return ErrItemOutOfRange
	}
	c.sel.ItemIndex = index
	sel := c.sel
	c.mu.Unlock()

	c.persist(ctx, sel)
	return nil
}

// SetQuantity sets the quantity, clamped to 1..99
func (c *Checkout) SetQuantity(ctx context.Context, q int) {
	c.mu.Lock()
	c.sel.Quantity = models.ClampQuantity(q)
	sel := c.sel
	c.mu.Unlock()

	c.persist(ctx, sel)
}

// SetCurrency sets the requested currency. BSD is still charged in USD while the rate
// is unknown.
func (c *Checkout) SetCurrency(ctx context.Context, currency string) error {
	cur, ok := models.ParseCurrency(currency)
	if !ok {
		return ErrUnknownCurrency
	}
	c.mu.Lock()
	c.sel.Currency = cur
	sel := c.sel
	c.mu.Unlock()

	c.persist(ctx, sel)
	return nil
}

// SetBuyer replaces the buyer contact fields
func (c *Checkout) SetBuyer(ctx context.Context, b models.Buyer) {
	c.mu.Lock()
	c.sel = c.sel.WithBuyer(b)
	sel := c.sel
	c.mu.Unlock()

	c.persist(ctx, sel)
}

// ApplyDiscountCode validates code and applies the grant. An empty code clears the
// discount; an invalid one leaves the checkout undiscounted without blocking it.
func (c *Checkout) ApplyDiscountCode(ctx context.Context, code string) bool {
	code = strings.TrimSpace(code)

	c.mu.Lock()
	c.sel.DiscountCode = code
	if code == "" {
		c.grant = nil
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	grant, ok := c.deps.Discounts.Validate(ctx, c.sess, code, c.productID)
	if ok {
		c.deps.Metrics.ObserveDiscountValidation("granted")
	} else {
		c.deps.Metrics.ObserveDiscountValidation("invalid")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// a newer code may have been entered while this one was validated
	if c.sel.DiscountCode != code {
		return false
	}
	if !ok {
		c.grant = nil
		return false
	}
	c.grant = grant
	return true
}

// SetSave toggles persistence. Turning it off deletes what was stored.
func (c *Checkout) SetSave(ctx context.Context, save bool) error {
	c.mu.Lock()
	sel := c.sel
	c.mu.Unlock()

	if err := c.deps.State.SetOptIn(ctx, c.sess, &sel, save); err != nil {
		return err
	}

	c.mu.Lock()
	c.sel.Save = sel.Save
	c.mu.Unlock()
	return nil
}

// InputReference applies typed reference text and, once it has 6 digits, checks it
// after the debounce window.
func (c *Checkout) InputReference(ctx context.Context, raw string) ReferenceStatus {
	t, ready := c.guard.Input(raw)
	if !ready {
		return c.guard.Status()
	}
	return c.guard.CheckDebounced(ctx, t)
}

// PasteReference applies pasted reference text and checks it without waiting
func (c *Checkout) PasteReference(ctx context.Context, raw string) ReferenceStatus {
	t, ready := c.guard.Paste(raw)
	if !ready {
		return c.guard.Status()
	}
	return c.guard.Check(ctx, t)
}

// BlurReference marks an incomplete reference as invalid
func (c *Checkout) BlurReference() ReferenceStatus {
	return c.guard.Blur()
}

// Selection returns a copy of the current selection
func (c *Checkout) Selection() models.CheckoutSelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel
}

// Quote prices the current selection
func (c *Checkout) Quote() pricing.Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quoteLocked()
}

func (c *Checkout) selectedLocked() *models.Item {
	if c.sel.ItemIndex < 0 || c.sel.ItemIndex >= len(c.items) {
		return nil
	}
	item := c.items[c.sel.ItemIndex]
	return &item
}

func (c *Checkout) quoteLocked() pricing.Quote {
	item := c.selectedLocked()
	var fraction decimal.Decimal
	if item != nil {
		fraction = EffectiveFraction(c.grant, item.ID)
	}
	return pricing.QuoteItem(item, c.sel.Quantity, c.sel.Currency, c.rate, fraction)
}

// CanSubmit reports whether the confirm control should be enabled
func (c *Checkout) CanSubmit() bool {
	c.mu.Lock()
	selected := c.selectedLocked() != nil
	c.mu.Unlock()
	return selected && c.guard.CanSubmit() && !c.submitter.Busy()
}

// DiscountView describes the applied discount
type DiscountView struct {
	Code     string          `json:"code,omitempty"`
	Applied  bool            `json:"applied"`
	Fraction decimal.Decimal `json:"fraction"`
}

// View is the read model rendered by the checkout page
type View struct {
	ProductID   int64                    `json:"product_id"`
	Items       []models.Item            `json:"items"`
	Selection   models.CheckoutSelection `json:"selection"`
	Selected    *models.Item             `json:"selected,omitempty"`
	Quote       pricing.Quote            `json:"quote"`
	AmountText  string                   `json:"amount_text"`
	BaseText    string                   `json:"base_text,omitempty"`
	Method      models.PaymentMethod     `json:"method"`
	RateKnown   bool                     `json:"rate_known"`
	PaymentRows []models.PaymentRow      `json:"payment_rows,omitempty"`
	Discount    DiscountView             `json:"discount"`
	Reference   ReferenceStatus          `json:"reference"`
	CanSubmit   bool                     `json:"can_submit"`
	Submitting  bool                     `json:"submitting"`
	LastResult  *SubmitResult            `json:"last_result,omitempty"`
}

// View renders the current state
func (c *Checkout) View() View {
	c.mu.Lock()
	q := c.quoteLocked()
	item := c.selectedLocked()
	v := View{
		ProductID:  c.productID,
		Items:      c.items,
		Selection:  c.sel,
		Selected:   item,
		Quote:      q,
		Method:     q.PaymentMethod(),
		RateKnown:  c.rate.IsPositive(),
		LastResult: c.last,
	}
	if c.payments != nil {
		v.PaymentRows = c.payments.RowsFor(q.ChargeCurrency)
	}
	if c.grant != nil {
		v.Discount = DiscountView{Code: c.grant.Code, Applied: q.DiscountFraction.IsPositive(), Fraction: q.DiscountFraction}
	} else {
		v.Discount = DiscountView{Code: c.sel.DiscountCode}
	}
	c.mu.Unlock()

	v.AmountText = utils.FormatMoney(q.Amount, q.ChargeCurrency)
	if q.Discounted() {
		v.BaseText = utils.FormatMoney(q.BaseAmount, q.ChargeCurrency)
	}
	v.Reference = c.guard.Status()
	v.Submitting = c.submitter.Busy()
	v.CanSubmit = item != nil && v.Reference.State == ReferenceAvailable && !v.Submitting
	return v
}

// Confirm submits the order once the reference is known to be free. A reference still
// pending is checked first; a taken one blocks the submission with the backend message.
func (c *Checkout) Confirm(ctx context.Context) SubmitResult {
	status := c.guard.Status()
	if status.State == ReferenceChecking {
		status = c.guard.Check(ctx, c.guard.Current())
	}

	var res SubmitResult
	switch status.State {
	case ReferenceAvailable:
		res = c.submit(ctx, status.Value)
	case ReferenceTaken:
		res = failed(KindCollision, status.Message)
	default:
		res = failed(KindValidation, ReasonBadReference)
	}

	c.mu.Lock()
	c.last = &res
	c.mu.Unlock()
	return res
}

func (c *Checkout) submit(ctx context.Context, reference string) SubmitResult {
	c.mu.Lock()
	req := SubmitRequest{
		ProductID: c.productID,
		Item:      c.selectedLocked(),
		Selection: c.sel,
		Reference: reference,
	}
	q := c.quoteLocked()
	req.Amount = q.Amount
	req.Currency = q.ChargeCurrency
	if c.grant != nil {
		req.DiscountCode = c.grant.Code
	}
	c.mu.Unlock()

	res := c.submitter.Submit(ctx, req)
	switch res.Outcome {
	case OutcomeSuccess:
		c.logger.Info("checkout confirmed", zap.Int64("order_id", res.OrderID))
		c.guard.Reset()
	case OutcomeFailed:
		if res.Kind == KindCollision {
			c.guard.MarkTaken(res.Reason)
		}
	}
	return res
}

func (c *Checkout) persist(ctx context.Context, sel models.CheckoutSelection) {
	if err := c.deps.State.Save(ctx, c.sess, sel); err != nil {
		c.logger.Warn("failed to persist checkout state", zap.Error(err))
	}
}
