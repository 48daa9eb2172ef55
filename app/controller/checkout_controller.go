package controller

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/2eliot/Inefablestore/checkout"
	"github.com/2eliot/Inefablestore/models"
)

// SessionCookie names the cookie carrying the checkout session id
const SessionCookie = "inefable_sid"

// Reference edit modes
const (
	ReferenceModeInput = "input"
	ReferenceModePaste = "paste"
	ReferenceModeBlur  = "blur"
)

// CheckoutController binds the checkout engine to HTTP, one Checkout per session and product
type CheckoutController struct {
	sessions *checkout.SessionRegistry
	deps     checkout.Deps
	ttl      time.Duration
	secure   bool
}

// NewCheckoutController creates a new CheckoutController. secure marks the session
// cookie HTTPS-only.
func NewCheckoutController(sessions *checkout.SessionRegistry, deps checkout.Deps, ttl time.Duration, secure bool) *CheckoutController {
	return &CheckoutController{
		sessions: sessions,
		deps:     deps,
		ttl:      ttl,
		secure:   secure,
	}
}

// SelectionRequest is the body of PUT /checkout/{gid}/selection. Absent fields are left
// unchanged; fields apply in declaration order.
type SelectionRequest struct {
	ItemIndex *int          `json:"item_index,omitempty"`
	Quantity  *int          `json:"quantity,omitempty"`
	Currency  *string       `json:"currency,omitempty"`
	Buyer     *models.Buyer `json:"buyer,omitempty"`
	Save      *bool         `json:"save,omitempty"`
}

// DiscountRequest is the body of POST /checkout/{gid}/discount
type DiscountRequest struct {
	Code string `json:"code"`
}

// ReferenceRequest is the body of POST /checkout/{gid}/reference
type ReferenceRequest struct {
	Value string `json:"value"`
	Mode  string `json:"mode"` // input | paste | blur
}

// ConfirmResponse is the body of POST /checkout/{gid}/confirm
type ConfirmResponse struct {
	Result checkout.SubmitResult `json:"result"`
	View   checkout.View         `json:"view"`
}

// LinkResponse is the body of GET /checkout/{gid}/link
type LinkResponse struct {
	URL string `json:"url"`
}

// open resolves the caller's session and its checkout for the {gid} parameter. A fresh
// checkout is always rehydrated; load forces it, as a page load does.
func (c *CheckoutController) open(w http.ResponseWriter, r *http.Request, load bool) (*checkout.Checkout, bool) {
	gid, ok := int64Param(r, "gid")
	if !ok {
		respondError(w, http.StatusBadRequest, "Juego inválido")
		return nil, false
	}

	var sid string
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		sid = cookie.Value
	}
	sess, _ := c.sessions.Get(sid)
	if sess.ID != sid {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			MaxAge:   int(c.ttl.Seconds()),
			HttpOnly: true,
			Secure:   c.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	co, existed := sess.Checkout(gid, func() *checkout.Checkout {
		return checkout.NewCheckout(c.deps, sess, gid)
	})
	if !existed || load {
		co.Rehydrate(r.Context(), r.URL.Query())
	}
	return co, true
}

// GetCheckout handles GET /checkout/{gid}
// Every call is a page load: the selection is rebuilt from the query parameters (sel, cur,
// method, q, cid, zid, n, e, p, rc), then saved state, then defaults.
func (c *CheckoutController) GetCheckout(w http.ResponseWriter, r *http.Request) {
	co, ok := c.open(w, r, true)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, co.View())
}

// GetLink handles GET /checkout/{gid}/link
// Returns the navigation URL reproducing the current selection
func (c *CheckoutController) GetLink(w http.ResponseWriter, r *http.Request) {
	co, ok := c.open(w, r, false)
	if !ok {
		return
	}
	gid, _ := int64Param(r, "gid")
	params := checkout.EncodeParams(co.Selection())
	respondJSON(w, http.StatusOK, LinkResponse{URL: fmt.Sprintf("/checkout/%d?%s", gid, params.Encode())})
}

// UpdateSelection handles PUT /checkout/{gid}/selection
func (c *CheckoutController) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	co, ok := c.open(w, r, false)
	if !ok {
		return
	}

	var req SelectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}

	ctx := r.Context()
	if req.ItemIndex != nil {
		if err := co.SelectItem(ctx, *req.ItemIndex); err != nil {
			c.respondSelectionError(w, err)
			return
		}
	}
	if req.Quantity != nil {
		co.SetQuantity(ctx, *req.Quantity)
	}
	if req.Currency != nil {
		if err := co.SetCurrency(ctx, *req.Currency); err != nil {
			c.respondSelectionError(w, err)
			return
		}
	}
	if req.Buyer != nil {
		co.SetBuyer(ctx, *req.Buyer)
	}
	if req.Save != nil {
		if err := co.SetSave(ctx, *req.Save); err != nil {
			zap.S().Warnf("⚠️ UpdateSelection: Failed to update saved checkout: %v", err)
		}
	}

	respondJSON(w, http.StatusOK, co.View())
}

func (c *CheckoutController) respondSelectionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrItemOutOfRange):
		respondError(w, http.StatusBadRequest, "Paquete inválido")
	case errors.Is(err, checkout.ErrUnknownCurrency):
		respondError(w, http.StatusBadRequest, "Moneda inválida")
	default:
		respondServiceError(w, "UpdateSelection", err)
	}
}

// ApplyDiscount handles POST /checkout/{gid}/discount
// An empty code clears the discount; an invalid one leaves the price undiscounted.
func (c *CheckoutController) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	co, ok := c.open(w, r, false)
	if !ok {
		return
	}

	var req DiscountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}
	co.ApplyDiscountCode(r.Context(), req.Code)
	respondJSON(w, http.StatusOK, co.View())
}

// EditReference handles POST /checkout/{gid}/reference
func (c *CheckoutController) EditReference(w http.ResponseWriter, r *http.Request) {
	co, ok := c.open(w, r, false)
	if !ok {
		return
	}

	var req ReferenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}

	switch req.Mode {
	case ReferenceModePaste:
		co.PasteReference(r.Context(), req.Value)
	case ReferenceModeBlur:
		co.BlurReference()
	case ReferenceModeInput, "":
		co.InputReference(r.Context(), req.Value)
	default:
		respondError(w, http.StatusBadRequest, "Modo inválido")
		return
	}
	respondJSON(w, http.StatusOK, co.View())
}

// Confirm handles POST /checkout/{gid}/confirm
func (c *CheckoutController) Confirm(w http.ResponseWriter, r *http.Request) {
	co, ok := c.open(w, r, false)
	if !ok {
		return
	}

	res := co.Confirm(r.Context())
	zap.S().Infof("🧾 Confirm: outcome=%s kind=%s order_id=%d", res.Outcome, res.Kind, res.OrderID)
	respondJSON(w, confirmStatus(res), ConfirmResponse{Result: res, View: co.View()})
}

func confirmStatus(res checkout.SubmitResult) int {
	switch res.Outcome {
	case checkout.OutcomeSuccess:
		return http.StatusOK
	case checkout.OutcomeBlocked:
		return http.StatusForbidden
	}
	switch res.Kind {
	case checkout.KindValidation:
		return http.StatusUnprocessableEntity
	case checkout.KindCollision, checkout.KindBusy:
		return http.StatusConflict
	case checkout.KindTransient:
		if res.TimedOut {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
