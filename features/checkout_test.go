package features

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"github.com/2eliot/Inefablestore/checkout"
	"github.com/2eliot/Inefablestore/models"
	"github.com/2eliot/Inefablestore/storeapi"
)

const productID = 3

// storeStub is an in-memory store backend for the scenarios
type storeStub struct {
	mu      sync.Mutex
	items   []models.Item
	rate    decimal.Decimal
	codes   map[string]decimal.Decimal
	claimed map[string]bool
	blocked map[string]bool
	orders  []models.OrderPayload
}

func (s *storeStub) ItemsForProduct(context.Context, int64) ([]models.Item, error) {
	return s.items, nil
}

func (s *storeStub) ExchangeRate(context.Context) (decimal.Decimal, error) { return s.rate, nil }

func (s *storeStub) PaymentMethods(context.Context) (*models.PaymentsConfig, error) {
	return &models.PaymentsConfig{PMBank: "Banesco", BinanceEmail: "pay@example.com"}, nil
}

func (s *storeStub) ValidateDiscountCode(_ context.Context, code string, _ int64) (*models.DiscountGrant, error) {
	d, ok := s.codes[code]
	if !ok {
		return nil, storeapi.ErrDiscountRejected
	}
	return &models.DiscountGrant{Code: code, Discount: d}, nil
}

func (s *storeStub) ReferenceExists(_ context.Context, ref string) (*models.ReferenceCheckResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &models.ReferenceCheckResponse{Exists: s.claimed[ref]}, nil
}

func (s *storeStub) CreateOrder(_ context.Context, p *models.OrderPayload, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blocked[p.Email] {
		return 0, &storeapi.StatusError{StatusCode: http.StatusForbidden, Message: "Contáctanos por WhatsApp"}
	}
	if s.claimed[p.Reference] {
		return 0, &storeapi.StatusError{StatusCode: http.StatusConflict}
	}
	s.claimed[p.Reference] = true
	s.orders = append(s.orders, *p)
	return int64(len(s.orders)), nil
}

type checkoutTestContext struct {
	store    *storeStub
	checkout *checkout.Checkout
	result   checkout.SubmitResult
}

func (c *checkoutTestContext) reset() {
	c.store = &storeStub{
		rate:    decimal.Zero,
		codes:   map[string]decimal.Decimal{},
		claimed: map[string]bool{},
		blocked: map[string]bool{},
	}
	c.checkout = nil
	c.result = checkout.SubmitResult{}
}

func (c *checkoutTestContext) theStoreSellsForUSD(title string, price int) error {
	c.store.items = append(c.store.items, models.Item{
		ID:    int64(len(c.store.items) + 1),
		Title: title,
		Price: decimal.NewFromInt(int64(price)),
	})
	return nil
}

func (c *checkoutTestContext) theCreatorCodeGrantsPercent(code string, percent int) error {
	c.store.codes[code] = models.PercentToFraction(decimal.NewFromInt(int64(percent)))
	return nil
}

func (c *checkoutTestContext) theExchangeRateIs(rate int) error {
	c.store.rate = decimal.NewFromInt(int64(rate))
	return nil
}

func (c *checkoutTestContext) theExchangeRateIsUnknown() error {
	c.store.rate = decimal.Zero
	return nil
}

func (c *checkoutTestContext) theReferenceIsAlreadyClaimed(ref string) error {
	c.store.claimed[ref] = true
	return nil
}

func (c *checkoutTestContext) theBuyerIsBlocked(email string) error {
	c.store.blocked[email] = true
	return nil
}

func (c *checkoutTestContext) iOpenTheCheckoutForItemWithQuantityIn(item, quantity int, currency string) error {
	deps := checkout.Deps{API: c.store}
	sess := checkout.NewSession("buyer")
	c.checkout = checkout.NewCheckout(deps, sess, productID)

	params := url.Values{}
	params.Set(checkout.ParamSelected, strconv.Itoa(item-1))
	params.Set(checkout.ParamQuantity, strconv.Itoa(quantity))
	params.Set(checkout.ParamCurrency, currency)
	c.checkout.Rehydrate(context.Background(), params)

	if got := c.checkout.Selection().ItemIndex; got != item-1 {
		return fmt.Errorf("expected item index %d, got %d", item-1, got)
	}
	return nil
}

func (c *checkoutTestContext) iApplyTheCode(code string) error {
	c.checkout.ApplyDiscountCode(context.Background(), code)
	return nil
}

func (c *checkoutTestContext) iFillInMyDetailsAsWithEmail(name, email string) error {
	c.checkout.SetBuyer(context.Background(), models.Buyer{Name: name, Email: email})
	return nil
}

func (c *checkoutTestContext) iTypeTheReference(raw string) error {
	c.checkout.InputReference(context.Background(), raw)
	return nil
}

func (c *checkoutTestContext) iPasteTheReference(raw string) error {
	c.checkout.PasteReference(context.Background(), raw)
	return nil
}

func (c *checkoutTestContext) iConfirm() error {
	c.result = c.checkout.Confirm(context.Background())
	return nil
}

func (c *checkoutTestContext) iAmCharged(want string) error {
	if got := c.checkout.View().AmountText; got != want {
		return fmt.Errorf("expected charge %q, got %q", want, got)
	}
	return nil
}

func (c *checkoutTestContext) thePaymentMethodIs(want string) error {
	if got := string(c.checkout.View().Method); got != want {
		return fmt.Errorf("expected payment method %q, got %q", want, got)
	}
	return nil
}

// theReferenceIs matches either the normalized value or the lifecycle state
func (c *checkoutTestContext) theReferenceIs(want string) error {
	status := c.checkout.View().Reference
	if strings.Trim(want, "0123456789") == "" {
		if status.Value != want {
			return fmt.Errorf("expected reference %q, got %q", want, status.Value)
		}
		return nil
	}
	if string(status.State) != want {
		return fmt.Errorf("expected reference state %q, got %q", want, status.State)
	}
	return nil
}

func (c *checkoutTestContext) iCannotConfirm() error {
	if c.checkout.CanSubmit() {
		return fmt.Errorf("expected confirm to be disabled")
	}
	return nil
}

func (c *checkoutTestContext) iCanConfirm() error {
	if !c.checkout.CanSubmit() {
		return fmt.Errorf("expected confirm to be enabled, reference is %+v", c.checkout.View().Reference)
	}
	return nil
}

func (c *checkoutTestContext) theOrderIsBlocked() error {
	if c.result.Outcome != checkout.OutcomeBlocked {
		return fmt.Errorf("expected blocked outcome, got %+v", c.result)
	}
	if c.result.Reason == "" || c.result.Reason == checkout.ReasonTransient {
		return fmt.Errorf("expected a contact message, got %q", c.result.Reason)
	}
	return nil
}

func (c *checkoutTestContext) theOrderIsCreated() error {
	if c.result.Outcome != checkout.OutcomeSuccess || c.result.OrderID == 0 {
		return fmt.Errorf("expected a created order, got %+v", c.result)
	}
	if len(c.store.orders) != 1 {
		return fmt.Errorf("expected one order, got %d", len(c.store.orders))
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the store sells "([^"]*)" for (\d+) USD$`, tc.theStoreSellsForUSD)
	ctx.Step(`^the creator code "([^"]*)" grants (\d+) percent$`, tc.theCreatorCodeGrantsPercent)
	ctx.Step(`^the exchange rate is (\d+)$`, tc.theExchangeRateIs)
	ctx.Step(`^the exchange rate is unknown$`, tc.theExchangeRateIsUnknown)
	ctx.Step(`^the reference "([^"]*)" is already claimed$`, tc.theReferenceIsAlreadyClaimed)
	ctx.Step(`^the buyer "([^"]*)" is blocked$`, tc.theBuyerIsBlocked)

	// When steps
	ctx.Step(`^I open the checkout for item (\d+) with quantity (\d+) in "([^"]*)"$`, tc.iOpenTheCheckoutForItemWithQuantityIn)
	ctx.Step(`^I apply the code "([^"]*)"$`, tc.iApplyTheCode)
	ctx.Step(`^I fill in my details as "([^"]*)" with e-mail "([^"]*)"$`, tc.iFillInMyDetailsAsWithEmail)
	ctx.Step(`^I type the reference "([^"]*)"$`, tc.iTypeTheReference)
	ctx.Step(`^I paste the reference "([^"]*)"$`, tc.iPasteTheReference)
	ctx.Step(`^I confirm$`, tc.iConfirm)

	// Then steps
	ctx.Step(`^I am charged "([^"]*)"$`, tc.iAmCharged)
	ctx.Step(`^the payment method is "([^"]*)"$`, tc.thePaymentMethodIs)
	ctx.Step(`^the reference is "([^"]*)"$`, tc.theReferenceIs)
	ctx.Step(`^I cannot confirm$`, tc.iCannotConfirm)
	ctx.Step(`^I can confirm$`, tc.iCanConfirm)
	ctx.Step(`^the order is blocked$`, tc.theOrderIsBlocked)
	ctx.Step(`^the order is created$`, tc.theOrderIsCreated)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
