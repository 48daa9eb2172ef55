package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeReference(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		input string
		paste string
	}{
		{"mixed characters", "12a3456", "123456", "123456"},
		{"ten digit paste", "0102030405", "010203", "030405"},
		{"spaces and dashes", " 98-76 54 ", "987654", "987654"},
		{"short", "12", "12", "12"},
		{"no digits", "abc", "", ""},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NormalizeReferenceInput(tt.raw)
			pa := NormalizeReferencePaste(tt.raw)
			assert.Equal(t, tt.input, in)
			assert.Equal(t, tt.paste, pa)
			assert.LessOrEqual(t, len(in), ReferenceLength)
			assert.LessOrEqual(t, len(pa), ReferenceLength)
		})
	}
}

func TestIsValidReference(t *testing.T) {
	assert.True(t, IsValidReference("123456"))
	assert.False(t, IsValidReference("12345"))
	assert.False(t, IsValidReference("12345a"))
	assert.False(t, IsValidReference("1234567"))
}

func TestReferenceGuard_Transitions(t *testing.T) {
	api := newFakeAPI()
	g := NewReferenceGuard(api, 0, nil, nil)
	ctx := context.Background()

	assert.Equal(t, ReferenceEmpty, g.Status().State)

	_, ready := g.Input("12")
	assert.False(t, ready)
	assert.Equal(t, ReferenceTyping, g.Status().State)

	assert.Equal(t, ReferenceSyntaxInvalid, g.Blur().State)
	assert.False(t, g.CanSubmit())

	ticket, ready := g.Input("12a3456")
	require.True(t, ready)
	assert.Equal(t, "123456", ticket.Value)
	assert.Equal(t, ReferenceChecking, g.Status().State)
	assert.False(t, g.CanSubmit())

	st := g.Check(ctx, ticket)
	assert.Equal(t, ReferenceAvailable, st.State)
	assert.True(t, g.CanSubmit())

	_, ready = g.Input("")
	assert.False(t, ready)
	assert.Equal(t, ReferenceEmpty, g.Status().State)
}

func TestReferenceGuard_TakenThenEdit(t *testing.T) {
	api := newFakeAPI()
	api.taken["123456"] = "Referencia usada en la orden #12"
	g := NewReferenceGuard(api, 0, nil, nil)
	ctx := context.Background()

	ticket, ready := g.Input("123456")
	require.True(t, ready)
	st := g.Check(ctx, ticket)
	assert.Equal(t, ReferenceTaken, st.State)
	assert.Equal(t, "Referencia usada en la orden #12", st.Message)
	assert.False(t, g.CanSubmit())

	// deleting a digit after a verdict is a syntax error, not plain typing
	_, ready = g.Input("12345")
	assert.False(t, ready)
	assert.Equal(t, ReferenceSyntaxInvalid, g.Status().State)

	// changing one digit restarts the check cycle
	ticket, ready = g.Input("123457")
	require.True(t, ready)
	assert.Equal(t, ReferenceChecking, g.Status().State)
	assert.Equal(t, ReferenceAvailable, g.Check(ctx, ticket).State)
	assert.True(t, g.CanSubmit())
}

func TestReferenceGuard_TakenFallbackMessage(t *testing.T) {
	api := newFakeAPI()
	api.taken["654321"] = ""
	g := NewReferenceGuard(api, 0, nil, nil)

	ticket, _ := g.Paste("654321")
	st := g.Check(context.Background(), ticket)
	assert.Equal(t, ReferenceTaken, st.State)
	assert.NotEmpty(t, st.Message)
}

func TestReferenceGuard_FailedCheckIsAvailable(t *testing.T) {
	api := newFakeAPI()
	api.refErr = errNetwork
	g := NewReferenceGuard(api, 0, nil, nil)

	ticket, _ := g.Input("111111")
	assert.Equal(t, ReferenceAvailable, g.Check(context.Background(), ticket).State)
	assert.True(t, g.CanSubmit())
}

func TestReferenceGuard_StaleResultDiscarded(t *testing.T) {
	api := newFakeAPI()
	api.taken["111111"] = "usada"
	api.refBlock = make(chan struct{})
	api.refCalled = make(chan string, 1)
	g := NewReferenceGuard(api, 0, nil, nil)
	ctx := context.Background()

	first, _ := g.Input("111111")
	done := make(chan ReferenceStatus, 1)
	go func() { done <- g.Check(ctx, first) }()
	<-api.refCalled

	// the buyer edits while the first check is in flight
	second, ready := g.Input("222222")
	require.True(t, ready)

	close(api.refBlock)
	st := <-done

	assert.Equal(t, ReferenceChecking, st.State)
	assert.Equal(t, "222222", st.Value)
	assert.Empty(t, st.Message)

	api.mu.Lock()
	api.refBlock = nil
	api.refCalled = nil
	api.mu.Unlock()
	assert.Equal(t, ReferenceAvailable, g.Check(ctx, second).State)
}

func TestReferenceGuard_DebounceSkipsSupersededTicket(t *testing.T) {
	api := newFakeAPI()
	g := NewReferenceGuard(api, 30*time.Millisecond, nil, nil)
	ctx := context.Background()

	first, _ := g.Input("111111")
	done := make(chan ReferenceStatus, 1)
	go func() { done <- g.CheckDebounced(ctx, first) }()

	second, _ := g.Input("222222")
	<-done
	assert.Zero(t, api.refCallCount())

	st := g.CheckDebounced(ctx, second)
	assert.Equal(t, ReferenceAvailable, st.State)
	assert.Equal(t, []string{"222222"}, api.refCalls)
}

func TestReferenceGuard_SameValueKeepsVerdict(t *testing.T) {
	api := newFakeAPI()
	g := NewReferenceGuard(api, 0, nil, nil)

	ticket, _ := g.Input("123456")
	g.Check(context.Background(), ticket)

	_, ready := g.Input("123456")
	assert.False(t, ready)
	assert.Equal(t, ReferenceAvailable, g.Status().State)
	assert.Equal(t, 1, api.refCallCount())
}
