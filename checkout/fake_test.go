package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/2eliot/Inefablestore/models"
	"github.com/2eliot/Inefablestore/storeapi"
)

var errNetwork = errors.New("network unreachable")

// fakeAPI is an in-memory storeapi.API with call recording
type fakeAPI struct {
	mu sync.Mutex

	items       []models.Item
	itemsErr    error
	rate        decimal.Decimal
	rateErr     error
	payments    *models.PaymentsConfig
	paymentsErr error

	grants        map[string]*models.DiscountGrant
	validateErr   error
	validateCalls int

	taken     map[string]string
	refErr    error
	refCalls  []string
	refBlock  chan struct{}
	refCalled chan string

	createFn func(ctx context.Context, p *models.OrderPayload, key string) (int64, error)
	created  []*models.OrderPayload
	keys     []string
}

var _ storeapi.API = (*fakeAPI)(nil)

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		items: []models.Item{
			{ID: 7, Title: "100 Diamantes", Price: decimal.NewFromInt(10)},
			{ID: 8, Title: "310 Diamantes", Price: decimal.NewFromInt(20), Sticker: "hot"},
		},
		rate: decimal.NewFromInt(40),
		payments: &models.PaymentsConfig{
			PMBank:       "Banesco",
			PMName:       "Inefable Store",
			PMPhone:      "04141234567",
			PMID:         "V-12345678",
			BinanceEmail: "pay@inefablestore.com",
			BinancePhone: "123456789",
		},
		grants: map[string]*models.DiscountGrant{},
		taken:  map[string]string{},
	}
}

func (f *fakeAPI) ItemsForProduct(ctx context.Context, productID int64) ([]models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items, f.itemsErr
}

func (f *fakeAPI) ExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rate, f.rateErr
}

func (f *fakeAPI) PaymentMethods(ctx context.Context) (*models.PaymentsConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payments, f.paymentsErr
}

func (f *fakeAPI) ValidateDiscountCode(ctx context.Context, code string, productID int64) (*models.DiscountGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validateCalls++
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	g, ok := f.grants[code]
	if !ok {
		return nil, storeapi.ErrDiscountRejected
	}
	cp := *g
	return &cp, nil
}

func (f *fakeAPI) ReferenceExists(ctx context.Context, reference string) (*models.ReferenceCheckResponse, error) {
	f.mu.Lock()
	f.refCalls = append(f.refCalls, reference)
	block, called := f.refBlock, f.refCalled
	f.mu.Unlock()

	if called != nil {
		called <- reference
	}
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refErr != nil {
		return nil, f.refErr
	}
	msg, ok := f.taken[reference]
	return &models.ReferenceCheckResponse{Exists: ok, Message: msg}, nil
}

func (f *fakeAPI) CreateOrder(ctx context.Context, p *models.OrderPayload, key string) (int64, error) {
	f.mu.Lock()
	f.created = append(f.created, p)
	f.keys = append(f.keys, key)
	fn := f.createFn
	n := int64(len(f.created))
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, p, key)
	}
	return 100 + n, nil
}

func (f *fakeAPI) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeAPI) refCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.refCalls)
}
