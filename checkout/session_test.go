package checkout

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRegistry_Get(t *testing.T) {
	r := NewSessionRegistry(10, time.Minute)

	s, existed := r.Get("")
	assert.False(t, existed)
	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)

	again, existed := r.Get(s.ID)
	assert.True(t, existed)
	assert.Same(t, s, again)

	// a forged id is replaced by a fresh one
	forged, existed := r.Get("not-a-uuid")
	assert.False(t, existed)
	assert.NotEqual(t, "not-a-uuid", forged.ID)

	// a well-formed but unknown id is not adopted either
	id := uuid.NewString()
	fresh, existed := r.Get(id)
	assert.False(t, existed)
	assert.NotEqual(t, id, fresh.ID)
	_, err = uuid.Parse(fresh.ID)
	require.NoError(t, err)

	_, existed = r.Get(id)
	assert.False(t, existed)

	assert.Equal(t, 4, r.Len())
	r.Forget(fresh.ID)
	assert.Equal(t, 3, r.Len())
}

func TestSessionRegistry_ExpiredIdIsReplaced(t *testing.T) {
	r := NewSessionRegistry(10, 20*time.Millisecond)
	s, _ := r.Get("")

	time.Sleep(50 * time.Millisecond)
	replaced, existed := r.Get(s.ID)
	assert.False(t, existed)
	assert.NotEqual(t, s.ID, replaced.ID)
}

func TestSessionRegistry_Expires(t *testing.T) {
	r := NewSessionRegistry(10, 20*time.Millisecond)
	s, _ := r.Get("")

	require.Eventually(t, func() bool {
		_, existed := r.Get(s.ID)
		return !existed
	}, time.Second, 30*time.Millisecond)
}

func TestSession_SharedGuardAndSubmitter(t *testing.T) {
	api := newFakeAPI()
	sess := NewSession("s1")

	g1 := sess.Guard(func() *ReferenceGuard { return NewReferenceGuard(api, 0, nil, nil) })
	g2 := sess.Guard(func() *ReferenceGuard { return NewReferenceGuard(api, 0, nil, nil) })
	assert.Same(t, g1, g2)

	s1 := sess.Submitter(func() *OrderSubmitter { return NewOrderSubmitter(api, 0, nil, nil) })
	s2 := sess.Submitter(func() *OrderSubmitter { return NewOrderSubmitter(api, 0, nil, nil) })
	assert.Same(t, s1, s2)
}

func TestSession_CheckoutPerProduct(t *testing.T) {
	api := newFakeAPI()
	sess := NewSession("s1")
	deps := Deps{API: api}

	c1, existed := sess.Checkout(3, func() *Checkout { return NewCheckout(deps, sess, 3) })
	assert.False(t, existed)
	c2, existed := sess.Checkout(3, func() *Checkout { return NewCheckout(deps, sess, 3) })
	assert.True(t, existed)
	assert.Same(t, c1, c2)

	other, existed := sess.Checkout(4, func() *Checkout { return NewCheckout(deps, sess, 4) })
	assert.False(t, existed)
	assert.NotSame(t, c1, other)
}
