package controller

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/2eliot/Inefablestore/models"
	"github.com/2eliot/Inefablestore/repository"
	"github.com/2eliot/Inefablestore/service"
	"github.com/2eliot/Inefablestore/storeapi"
)

// fakeStore is an in-memory StoreBackend
type fakeStore struct {
	mu        sync.Mutex
	items     map[int64][]models.Item
	rate      decimal.Decimal
	payments  models.PaymentsConfig
	codes     map[string]decimal.Decimal
	claimed   map[string]bool
	createErr error
	keys      []string
	payloads  []models.OrderPayload
	nextID    int64
}

var _ StoreBackend = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		items: map[int64][]models.Item{
			3: {
				{ID: 7, Title: "100 Diamantes", Price: decimal.NewFromInt(10), Icon: "icons/100.png"},
				{ID: 8, Title: "310 Diamantes", Price: decimal.NewFromInt(20), Sticker: "hot"},
			},
		},
		rate:     decimal.NewFromInt(40),
		payments: models.PaymentsConfig{PMBank: "Banesco", BinanceEmail: "pay@example.com"},
		codes:    map[string]decimal.Decimal{"CREATOR10": decimal.RequireFromString("0.1")},
		claimed:  map[string]bool{},
		nextID:   100,
	}
}

func (f *fakeStore) ItemsForProduct(_ context.Context, gid int64) ([]models.Item, error) {
	items, ok := f.items[gid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return items, nil
}

func (f *fakeStore) Item(_ context.Context, id int64) (*models.Item, error) {
	for _, items := range f.items {
		for i := range items {
			if items[i].ID == id {
				it := items[i]
				return &it, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) ExchangeRate(context.Context) (decimal.Decimal, error) { return f.rate, nil }

func (f *fakeStore) PaymentMethods(context.Context) (*models.PaymentsConfig, error) {
	p := f.payments
	return &p, nil
}

func (f *fakeStore) ValidateDiscountCode(_ context.Context, code string, _ int64) (*models.DiscountGrant, error) {
	if code == "" {
		return nil, &service.RequestError{StatusCode: http.StatusBadRequest, Message: service.MsgEmptyCode, Err: storeapi.ErrDiscountRejected}
	}
	d, ok := f.codes[code]
	if !ok {
		return nil, &service.RequestError{StatusCode: http.StatusNotFound, Message: service.MsgInvalidCode, Err: storeapi.ErrDiscountRejected}
	}
	return &models.DiscountGrant{Code: code, Discount: d}, nil
}

func (f *fakeStore) ReferenceExists(_ context.Context, ref string) (*models.ReferenceCheckResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimed[ref] {
		return &models.ReferenceCheckResponse{Exists: true, Message: service.MsgReferenceNotUnique}, nil
	}
	return &models.ReferenceCheckResponse{}, nil
}

func (f *fakeStore) CreateOrder(_ context.Context, p *models.OrderPayload, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	f.payloads = append(f.payloads, *p)
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.claimed[p.Reference] = true
	f.nextID++
	return f.nextID, nil
}

func newStoreRouter(store *fakeStore, icons *service.IconService) http.Handler {
	sc := NewStoreController(store, icons)
	oc := NewOrderController(store)

	r := chi.NewRouter()
	r.Get("/store/package/{gid}/items", sc.GetItems)
	r.Get("/store/items/{id}/icon", sc.GetItemIcon)
	r.Get("/store/rate", sc.GetRate)
	r.Get("/store/payments", sc.GetPayments)
	r.Get("/store/special/validate", sc.ValidateSpecialCode)
	r.Post("/orders", oc.CreateOrder)
	r.Get("/orders/reference/{reference}/exists", oc.ReferenceExists)
	return r
}
