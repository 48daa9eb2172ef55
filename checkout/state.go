package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/2eliot/Inefablestore/models"
)

// StateKeyPrefix namespaces persisted checkout state
const StateKeyPrefix = "inefablestore_checkout:"

// Navigation parameters carried from the details view to the checkout view
const (
	ParamSelected   = "sel"
	ParamCurrency   = "cur"
	ParamMethod     = "method"
	ParamCustomerID = "cid"
	ParamZoneID     = "zid"
	ParamName       = "n"
	ParamEmail      = "e"
	ParamPhone      = "p"
	ParamQuantity   = "q"
	ParamCode       = "rc"
)

// ErrStateNotFound is returned by a StateBackend when nothing is stored under a key
var ErrStateNotFound = errors.New("checkout state not found")

// StateBackend stores opaque persisted selections
type StateBackend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// persistedState is the stored shape. The discount code is never persisted.
type persistedState struct {
	CustomerID    string          `json:"customer_id"`
	ZoneID        string          `json:"zone_id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Currency      models.Currency `json:"currency"`
	SelectedIndex int             `json:"selectedIndex"`
	Quantity      int             `json:"quantity"`
	Save          bool            `json:"save"`
}

// StateStore resolves a CheckoutSelection from URL parameters, persisted state and
// defaults, in that order of priority.
type StateStore struct {
	backend StateBackend
	logger  *zap.Logger
}

// NewStateStore creates a store over backend
func NewStateStore(backend StateBackend, logger *zap.Logger) *StateStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateStore{backend: backend, logger: logger}
}

func stateKey(sess *Session) string {
	return StateKeyPrefix + sess.ID
}

// Load returns the selection for sess. It never fails: unreadable or absent state falls
// back to defaults. The result is not yet checked against the live item list, see
// Revalidate.
func (s *StateStore) Load(ctx context.Context, sess *Session, params url.Values) models.CheckoutSelection {
	sel := models.NewCheckoutSelection()

	if p, ok := s.persisted(ctx, sess); ok {
		sel.CustomerID = p.CustomerID
		sel.ZoneID = p.ZoneID
		sel.Name = p.Name
		sel.Email = p.Email
		sel.Phone = p.Phone
		if c, ok := models.ParseCurrency(string(p.Currency)); ok {
			sel.Currency = c
		}
		sel.ItemIndex = p.SelectedIndex
		sel.Quantity = models.ClampQuantity(p.Quantity)
		sel.Save = true
	}

	applyParams(&sel, params)
	return sel
}

func (s *StateStore) persisted(ctx context.Context, sess *Session) (persistedState, bool) {
	var p persistedState
	data, err := s.backend.Get(ctx, stateKey(sess))
	if err != nil {
		if !errors.Is(err, ErrStateNotFound) {
			s.logger.Warn("failed to read checkout state", zap.String("session", sess.ID), zap.Error(err))
		}
		return p, false
	}
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn("discarding unreadable checkout state", zap.String("session", sess.ID), zap.Error(err))
		return p, false
	}
	return p, p.Save
}

func applyParams(sel *models.CheckoutSelection, params url.Values) {
	if params == nil {
		return
	}
	if v, ok := param(params, ParamSelected); ok {
		if i, err := strconv.Atoi(v); err == nil {
			sel.ItemIndex = i
		}
	}
	if v, ok := param(params, ParamCurrency); ok {
		if c, ok := models.ParseCurrency(v); ok {
			sel.Currency = c
		}
	}
	// method wins over cur when both are present
	if v, ok := param(params, ParamMethod); ok {
		if c, ok := models.CurrencyForMethod(v); ok {
			sel.Currency = c
		}
	}
	if v, ok := param(params, ParamQuantity); ok {
		if q, err := strconv.Atoi(v); err == nil {
			sel.Quantity = models.ClampQuantity(q)
		}
	}
	if v, ok := param(params, ParamCustomerID); ok {
		sel.CustomerID = v
	}
	if v, ok := param(params, ParamZoneID); ok {
		sel.ZoneID = v
	}
	if v, ok := param(params, ParamName); ok {
		sel.Name = v
	}
	if v, ok := param(params, ParamEmail); ok {
		sel.Email = v
	}
	if v, ok := param(params, ParamPhone); ok {
		sel.Phone = v
	}
	if v, ok := param(params, ParamCode); ok {
		sel.DiscountCode = v
	}
}

func param(params url.Values, key string) (string, bool) {
	v := strings.TrimSpace(params.Get(key))
	return v, v != ""
}

// Save persists sel when it carries the opt-in flag. Without it the call does nothing.
func (s *StateStore) Save(ctx context.Context, sess *Session, sel models.CheckoutSelection) error {
	if !sel.Save {
		return nil
	}
	data, err := json.Marshal(persistedState{
		CustomerID:    sel.CustomerID,
		ZoneID:        sel.ZoneID,
		Name:          sel.Name,
		Email:         sel.Email,
		Phone:         sel.Phone,
		Currency:      sel.Currency,
		SelectedIndex: sel.ItemIndex,
		Quantity:      sel.Quantity,
		Save:          true,
	})
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, stateKey(sess), data)
}

// Clear removes any persisted state for sess
func (s *StateStore) Clear(ctx context.Context, sess *Session) error {
	return s.backend.Delete(ctx, stateKey(sess))
}

// SetOptIn updates the opt-in flag on sel. Opting in saves immediately; opting out
// deletes what was stored.
func (s *StateStore) SetOptIn(ctx context.Context, sess *Session, sel *models.CheckoutSelection, save bool) error {
	sel.Save = save
	if !save {
		return s.Clear(ctx, sess)
	}
	return s.Save(ctx, sess, *sel)
}

// Revalidate clamps sel against the live item list: an index out of range falls back to
// the first item (or none when the list is empty) and the quantity to 1..99.
func Revalidate(sel models.CheckoutSelection, items []models.Item) models.CheckoutSelection {
	switch {
	case len(items) == 0:
		sel.ItemIndex = -1
	case sel.ItemIndex < 0 || sel.ItemIndex >= len(items):
		sel.ItemIndex = 0
	}
	sel.Quantity = models.ClampQuantity(sel.Quantity)
	if _, ok := models.ParseCurrency(string(sel.Currency)); !ok {
		sel.Currency = models.CurrencyUSD
	}
	return sel
}

// EncodeParams renders sel as navigation parameters for the checkout view
func EncodeParams(sel models.CheckoutSelection) url.Values {
	v := url.Values{}
	if sel.ItemIndex >= 0 {
		v.Set(ParamSelected, strconv.Itoa(sel.ItemIndex))
	}
	if sel.Currency != "" {
		v.Set(ParamCurrency, string(sel.Currency))
		v.Set(ParamMethod, string(models.PaymentMethodFor(sel.Currency)))
	}
	v.Set(ParamQuantity, strconv.Itoa(models.ClampQuantity(sel.Quantity)))
	setIf := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	setIf(ParamCustomerID, sel.CustomerID)
	setIf(ParamZoneID, sel.ZoneID)
	setIf(ParamName, sel.Name)
	setIf(ParamEmail, sel.Email)
	setIf(ParamPhone, sel.Phone)
	setIf(ParamCode, sel.DiscountCode)
	return v
}

// MemoryStateBackend keeps state in process memory
type MemoryStateBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStateBackend creates an empty in-memory backend
func NewMemoryStateBackend() *MemoryStateBackend {
	return &MemoryStateBackend{data: make(map[string][]byte)}
}

func (m *MemoryStateBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.data[key]
	if !ok {
		return nil, ErrStateNotFound
	}
	return append([]byte(nil), d...), nil
}

func (m *MemoryStateBackend) Set(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStateBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
