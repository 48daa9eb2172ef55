package checkout

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/2eliot/Inefablestore/models"
)

// discountEntry is a definitive backend answer for one code on one product
type discountEntry struct {
	grant   *models.DiscountGrant // nil when the code was rejected
	checked time.Time
}

// Session is the per-buyer context carried across checkout requests: the discount
// answers already obtained and the payment reference being typed.
type Session struct {
	ID string

	mu        sync.Mutex
	discounts map[string]discountEntry
	guard     *ReferenceGuard
	submitter *OrderSubmitter
	checkouts map[int64]*Checkout
}

// NewSession creates an empty session with the given id
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		discounts: make(map[string]discountEntry),
		checkouts: make(map[int64]*Checkout),
	}
}

func (s *Session) cachedDiscount(key string) (discountEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.discounts[key]
	return e, ok
}

func (s *Session) storeDiscount(key string, grant *models.DiscountGrant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discounts[key] = discountEntry{grant: grant, checked: time.Now()}
}

// Guard returns the session's reference guard, creating it on first use
func (s *Session) Guard(newGuard func() *ReferenceGuard) *ReferenceGuard {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guard == nil {
		s.guard = newGuard()
	}
	return s.guard
}

// Submitter returns the session's order submitter, creating it on first use. One per
// session keeps the busy flag scoped to a single buyer.
func (s *Session) Submitter(newSubmitter func() *OrderSubmitter) *OrderSubmitter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitter == nil {
		s.submitter = newSubmitter()
	}
	return s.submitter
}

// Checkout returns the session's checkout for productID, building it with newCheckout on
// first use. The boolean reports whether it already existed.
func (s *Session) Checkout(productID int64, newCheckout func() *Checkout) (*Checkout, bool) {
	s.mu.Lock()
	c, ok := s.checkouts[productID]
	s.mu.Unlock()
	if ok {
		return c, true
	}

	// built unlocked: NewCheckout takes the session lock for the guard and submitter
	fresh := newCheckout()

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.checkouts[productID]; ok {
		return c, true
	}
	s.checkouts[productID] = fresh
	return fresh, false
}

// SessionRegistry keeps sessions alive for a sliding TTL, bounded in size
type SessionRegistry struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *Session]
}

// NewSessionRegistry creates a registry holding up to size sessions for ttl each
func NewSessionRegistry(size int, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		cache: expirable.NewLRU[string, *Session](size, nil, ttl),
	}
}

// Get returns the live session for id. An empty, expired or unknown id gets a fresh
// session under a newly minted id; client-chosen ids are never adopted. The boolean
// reports whether the session already existed.
func (r *SessionRegistry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" {
		if s, ok := r.cache.Get(id); ok {
			// refresh the TTL
			r.cache.Add(id, s)
			return s, true
		}
	}
	id = uuid.NewString()
	s := NewSession(id)
	r.cache.Add(id, s)
	return s, false
}

// Forget drops a session
func (r *SessionRegistry) Forget(id string) {
	r.cache.Remove(id)
}

// Len returns the number of live sessions
func (r *SessionRegistry) Len() int {
	return r.cache.Len()
}
