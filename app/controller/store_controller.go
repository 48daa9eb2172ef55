package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/2eliot/Inefablestore/models"
	"github.com/2eliot/Inefablestore/repository"
	"github.com/2eliot/Inefablestore/service"
	"github.com/2eliot/Inefablestore/storeapi"
)

// StoreBackend is the store surface served over HTTP
type StoreBackend interface {
	storeapi.API
	Item(ctx context.Context, itemID int64) (*models.Item, error)
}

// StoreController handles the public catalog, rate, payment and discount endpoints
type StoreController struct {
	store StoreBackend
	icons *service.IconService
}

// NewStoreController creates a new StoreController
func NewStoreController(store StoreBackend, icons *service.IconService) *StoreController {
	return &StoreController{
		store: store,
		icons: icons,
	}
}

// GetItems handles GET /store/package/{gid}/items
func (c *StoreController) GetItems(w http.ResponseWriter, r *http.Request) {
	gid, ok := int64Param(r, "gid")
	if !ok {
		respondError(w, http.StatusBadRequest, "Juego inválido")
		return
	}

	items, err := c.store.ItemsForProduct(r.Context(), gid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Juego no encontrado")
			return
		}
		respondServiceError(w, "GetItems", err)
		return
	}

	zap.S().Debugf("✅ GetItems: %d items for store_package_id=%d", len(items), gid)
	respondJSON(w, http.StatusOK, models.ItemsResponse{OK: true, Items: items})
}

// GetItemIcon handles GET /store/items/{id}/icon?size=thumb|medium
// Returns the item icon as an optimized JPEG
func (c *StoreController) GetItemIcon(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		http.Error(w, "Invalid item id", http.StatusBadRequest)
		return
	}

	item, err := c.store.Item(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Item not found", http.StatusNotFound)
			return
		}
		zap.S().Errorf("❌ GetItemIcon: Error fetching item id=%d: %v", id, err)
		http.Error(w, "Failed to load item", http.StatusInternalServerError)
		return
	}

	size := r.URL.Query().Get("size")
	if size == "" {
		size = service.IconSizeThumb
	}
	data, err := c.icons.Icon(item, size)
	if err != nil {
		if errors.Is(err, service.ErrIconNotFound) {
			http.Error(w, "Icon not found", http.StatusNotFound)
			return
		}
		zap.S().Errorf("❌ GetItemIcon: Error optimizing icon for item id=%d: %v", id, err)
		http.Error(w, "Failed to process icon", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		zap.S().Errorf("❌ GetItemIcon: Error writing response: %v", err)
	}
}

// GetRate handles GET /store/rate
func (c *StoreController) GetRate(w http.ResponseWriter, r *http.Request) {
	rate, err := c.store.ExchangeRate(r.Context())
	if err != nil {
		respondServiceError(w, "GetRate", err)
		return
	}
	respondJSON(w, http.StatusOK, models.ExchangeRateResponse{Rate: rate})
}

// GetPayments handles GET /store/payments
func (c *StoreController) GetPayments(w http.ResponseWriter, r *http.Request) {
	p, err := c.store.PaymentMethods(r.Context())
	if err != nil {
		respondServiceError(w, "GetPayments", err)
		return
	}
	respondJSON(w, http.StatusOK, models.PaymentsResponse{OK: true, Payments: *p})
}

// ValidateSpecialCode handles GET /store/special/validate?code=X&gid=N
// An unparsable gid counts as no package.
func (c *StoreController) ValidateSpecialCode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := strings.TrimSpace(q.Get("code"))
	gid, err := strconv.ParseInt(strings.TrimSpace(q.Get("gid")), 10, 64)
	if err != nil {
		gid = 0
	}

	grant, err := c.store.ValidateDiscountCode(r.Context(), code, gid)
	if err != nil {
		respondServiceError(w, "ValidateSpecialCode", err)
		return
	}

	respondJSON(w, http.StatusOK, models.DiscountValidationResponse{
		OK:            true,
		Allowed:       true,
		Discount:      grant.Discount,
		ItemDiscounts: grant.ItemDiscounts,
	})
}
