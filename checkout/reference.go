package checkout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/2eliot/Inefablestore/metrics"
	"github.com/2eliot/Inefablestore/storeapi"
)

// ReferenceLength is the number of digits in a payment reference
const ReferenceLength = 6

// DefaultReferenceDebounce is how long typing must pause before a uniqueness check fires
const DefaultReferenceDebounce = 400 * time.Millisecond

// referenceTakenFallback is shown only when the backend reports a collision without a message
const referenceTakenFallback = "Esta referencia ya fue registrada en otra orden"

// ReferenceState is the position of a payment reference in its validation lifecycle
type ReferenceState string

const (
	ReferenceEmpty         ReferenceState = "empty"
	ReferenceTyping        ReferenceState = "typing"
	ReferenceSyntaxInvalid ReferenceState = "syntax_invalid"
	ReferenceChecking      ReferenceState = "checking"
	ReferenceAvailable     ReferenceState = "available"
	ReferenceTaken         ReferenceState = "taken"
)

// ReferenceStatus is a snapshot of the guard
type ReferenceStatus struct {
	State   ReferenceState `json:"state"`
	Value   string         `json:"value"`
	Message string         `json:"message,omitempty"`
}

// Ticket identifies one edit of the reference. A check result is applied only if its
// ticket is still the latest one.
type Ticket struct {
	Value string
	Seq   uint64
}

// NormalizeReferenceInput strips non-digits from typed text and keeps the first 6
func NormalizeReferenceInput(raw string) string {
	digits := onlyDigits(raw)
	if len(digits) > ReferenceLength {
		return digits[:ReferenceLength]
	}
	return digits
}

// NormalizeReferencePaste strips non-digits from pasted text and keeps the last 6, since
// bank receipts print the short reference at the end of a longer number.
func NormalizeReferencePaste(raw string) string {
	digits := onlyDigits(raw)
	if len(digits) > ReferenceLength {
		return digits[len(digits)-ReferenceLength:]
	}
	return digits
}

// IsValidReference reports whether ref is exactly 6 ASCII digits
func IsValidReference(ref string) bool {
	return len(ref) == ReferenceLength && onlyDigits(ref) == ref
}

func onlyDigits(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// ReferenceGuard tracks a payment reference from typing to a uniqueness verdict
type ReferenceGuard struct {
	checker  storeapi.ReferenceChecker
	debounce time.Duration
	logger   *zap.Logger
	metrics  *metrics.CheckoutMetrics

	mu      sync.Mutex
	state   ReferenceState
	value   string
	message string
	seq     uint64
}

// NewReferenceGuard creates a guard in the Empty state
func NewReferenceGuard(checker storeapi.ReferenceChecker, debounce time.Duration, logger *zap.Logger, m *metrics.CheckoutMetrics) *ReferenceGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce < 0 {
		debounce = 0
	}
	return &ReferenceGuard{
		checker:  checker,
		debounce: debounce,
		logger:   logger,
		metrics:  m,
		state:    ReferenceEmpty,
	}
}

// Input applies typed text. The returned ticket is usable for a check only when the
// boolean is true, meaning the value reached 6 digits.
func (g *ReferenceGuard) Input(raw string) (Ticket, bool) {
	return g.edit(NormalizeReferenceInput(raw))
}

// Paste applies pasted text
func (g *ReferenceGuard) Paste(raw string) (Ticket, bool) {
	return g.edit(NormalizeReferencePaste(raw))
}

func (g *ReferenceGuard) edit(value string) (Ticket, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Re-entering the same complete value keeps the verdict already obtained
	if value == g.value && len(value) == ReferenceLength {
		return Ticket{Value: g.value, Seq: g.seq}, g.state == ReferenceChecking
	}

	prev := g.state
	g.seq++
	g.value = value
	g.message = ""

	switch {
	case value == "":
		g.state = ReferenceEmpty
	case len(value) < ReferenceLength:
		if prev == ReferenceAvailable || prev == ReferenceTaken || prev == ReferenceSyntaxInvalid {
			g.state = ReferenceSyntaxInvalid
		} else {
			g.state = ReferenceTyping
		}
	default:
		g.state = ReferenceChecking
		return Ticket{Value: value, Seq: g.seq}, true
	}
	return Ticket{Value: value, Seq: g.seq}, false
}

// Blur marks an incomplete reference as invalid once the buyer leaves the field
func (g *ReferenceGuard) Blur() ReferenceStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == ReferenceTyping {
		g.state = ReferenceSyntaxInvalid
	}
	return g.statusLocked()
}

// CheckDebounced waits the debounce window and then checks t, unless a newer edit
// superseded it in the meantime.
func (g *ReferenceGuard) CheckDebounced(ctx context.Context, t Ticket) ReferenceStatus {
	if g.debounce > 0 {
		timer := time.NewTimer(g.debounce)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return g.Status()
		case <-timer.C:
		}
	}
	if !g.current(t) {
		return g.Status()
	}
	return g.Check(ctx, t)
}

// Check asks the backend whether t's reference is already claimed. A failed check is
// treated as available; the backend enforces uniqueness again on submit.
func (g *ReferenceGuard) Check(ctx context.Context, t Ticket) ReferenceStatus {
	if !g.current(t) || !IsValidReference(t.Value) {
		return g.Status()
	}

	res, err := g.checker.ReferenceExists(ctx, t.Value)

	g.mu.Lock()
	defer g.mu.Unlock()

	if t.Seq != g.seq {
		g.logger.Debug("discarding stale reference check", zap.String("reference", t.Value), zap.Uint64("seq", t.Seq))
		g.metrics.ObserveReferenceCheck("stale")
		return g.statusLocked()
	}

	switch {
	case err != nil:
		g.logger.Warn("reference check failed", zap.String("reference", t.Value), zap.Error(err))
		g.metrics.ObserveReferenceCheck("error")
		g.state = ReferenceAvailable
		g.message = ""
	case res.Exists:
		g.metrics.ObserveReferenceCheck("taken")
		g.state = ReferenceTaken
		g.message = res.Message
		if g.message == "" {
			g.message = referenceTakenFallback
		}
	default:
		g.metrics.ObserveReferenceCheck("available")
		g.state = ReferenceAvailable
		g.message = ""
	}
	return g.statusLocked()
}

// MarkTaken records a collision learned from a failed submit
func (g *ReferenceGuard) MarkTaken(message string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if message == "" {
		message = referenceTakenFallback
	}
	g.state = ReferenceTaken
	g.message = message
}

// Reset returns the guard to Empty
func (g *ReferenceGuard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	g.state = ReferenceEmpty
	g.value = ""
	g.message = ""
}

// Status returns the current snapshot
func (g *ReferenceGuard) Status() ReferenceStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusLocked()
}

// Value returns the normalized reference
func (g *ReferenceGuard) Value() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Current returns the ticket for the latest edit
func (g *ReferenceGuard) Current() Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Ticket{Value: g.value, Seq: g.seq}
}

// CanSubmit is true only once the reference is known to be available
func (g *ReferenceGuard) CanSubmit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == ReferenceAvailable
}

func (g *ReferenceGuard) current(t Ticket) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return t.Seq == g.seq && t.Value == g.value
}

func (g *ReferenceGuard) statusLocked() ReferenceStatus {
	return ReferenceStatus{State: g.state, Value: g.value, Message: g.message}
}
