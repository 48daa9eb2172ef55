package controller

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/2eliot/Inefablestore/models"
	"github.com/2eliot/Inefablestore/storeapi"
)

// OrderController handles order claims
type OrderController struct {
	store storeapi.API
}

// NewOrderController creates a new OrderController
func NewOrderController(store storeapi.API) *OrderController {
	return &OrderController{
		store: store,
	}
}

// ReferenceExists handles GET /orders/reference/{reference}/exists
// Only pending and approved orders claim a reference.
func (c *OrderController) ReferenceExists(w http.ResponseWriter, r *http.Request) {
	reference := strings.TrimSpace(chi.URLParam(r, "reference"))
	if reference == "" {
		respondError(w, http.StatusBadRequest, "Referencia requerida")
		return
	}

	resp, err := c.store.ReferenceExists(r.Context(), reference)
	if err != nil {
		respondServiceError(w, "ReferenceExists", err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// CreateOrder handles POST /orders
// The optional Idempotency-Key header replays the original order instead of creating a
// second one.
func (c *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	zap.S().Infof("📥 CreateOrder: Received %s request to %s", r.Method, r.URL.Path)

	var payload models.OrderPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		zap.S().Warnf("❌ CreateOrder: Failed to decode request body: %v", err)
		respondError(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}

	id, err := c.store.CreateOrder(r.Context(), &payload, r.Header.Get(storeapi.IdempotencyHeader))
	if err != nil {
		respondServiceError(w, "CreateOrder", err)
		return
	}

	zap.S().Infof("✅ CreateOrder: Order id=%d for store_package_id=%d", id, payload.StorePackageID)
	respondJSON(w, http.StatusOK, models.CreateOrderResponse{OK: true, OrderID: id})
}
