package flows

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGuidedProductCreation(t *testing.T) {
	reg := NewRegistry(time.Minute)

	out := Advance(reg, "u1", "c1", "I want to create product")
	require.Equal(t, OutcomeAsk, out.Kind)
	assert.Equal(t, "Product title?", out.Prompt)

	out = Advance(reg, "u1", "c1", "Running Shoes")
	require.Equal(t, OutcomeAsk, out.Kind)
	assert.Equal(t, "Product description?", out.Prompt)

	out = Advance(reg, "u1", "c1", "Lightweight running shoes")
	require.Equal(t, OutcomeAsk, out.Kind)
	assert.Equal(t, "Product price?", out.Prompt)

	// Non-numeric price re-asks without advancing.
	out = Advance(reg, "u1", "c1", "cheap")
	require.Equal(t, OutcomeAsk, out.Kind)
	assert.Equal(t, "Enter numeric price only.", out.Prompt)

	out = Advance(reg, "u1", "c1", "1999")
	require.Equal(t, OutcomeAsk, out.Kind)
	assert.Equal(t, "Stock quantity?", out.Prompt)

	out = Advance(reg, "u1", "c1", "10")
	require.Equal(t, OutcomeTool, out.Kind)
	assert.Equal(t, "seller_create_product", out.ToolName)
	assert.Equal(t, "Running Shoes", out.Arguments["name"])
	assert.Equal(t, "Lightweight running shoes", out.Arguments["description"])
	assert.Equal(t, 1999.0, out.Arguments["price"])
	assert.Equal(t, 10, out.Arguments["stock_quantity"])

	// Completion removes the session.
	assert.Nil(t, reg.Peek("u1", "c1"))
	assert.Equal(t, 0, reg.Len())
}

func TestActiveFlowConsumesTriggerPhrases(t *testing.T) {
	reg := NewRegistry(time.Minute)

	Advance(reg, "u1", "c1", "create product")
	// Mid-flow, a phrase that would normally shortcut to a tool is consumed
	// as the product name.
	out := Advance(reg, "u1", "c1", "show dashboard")
	require.Equal(t, OutcomeAsk, out.Kind)
	assert.Equal(t, "Product description?", out.Prompt)
	assert.Equal(t, "show dashboard", reg.Peek("u1", "c1").Data["name"])
}

func TestCommandShortcuts(t *testing.T) {
	reg := NewRegistry(time.Minute)

	out := Advance(reg, "u1", "c1", "please list my products")
	require.Equal(t, OutcomeTool, out.Kind)
	assert.Equal(t, "seller_products", out.ToolName)

	out = Advance(reg, "u1", "c1", "Show Dashboard")
	require.Equal(t, OutcomeTool, out.Kind)
	assert.Equal(t, "seller_dashboard", out.ToolName)

	// Shortcuts never leave a session behind.
	assert.Equal(t, 0, reg.Len())
}

func TestUnrelatedMessagePasses(t *testing.T) {
	reg := NewRegistry(time.Minute)

	out := Advance(reg, "u1", "c1", "what's the weather like?")
	assert.Equal(t, OutcomePass, out.Kind)
	assert.Equal(t, 0, reg.Len())
}

func TestStepCeilingExpiresSession(t *testing.T) {
	reg := NewRegistry(time.Minute)

	Advance(reg, "u1", "c1", "create product")
	Advance(reg, "u1", "c1", "Shoes")
	Advance(reg, "u1", "c1", "Desc")

	// Burn the remaining steps with invalid prices. Two steps are already
	// spent, so the ceiling trips on the (MaxSteps-2+1)th invalid message.
	var out Outcome
	for i := 0; i < MaxSteps-2+1; i++ {
		out = Advance(reg, "u1", "c1", "not a number")
	}
	assert.Equal(t, "Session expired. Please say 'create product' again.", out.Prompt)
	assert.Nil(t, reg.Peek("u1", "c1"))
}

func TestSessionsAreScopedPerUserAndChat(t *testing.T) {
	reg := NewRegistry(time.Minute)

	Advance(reg, "u1", "c1", "create product")
	Advance(reg, "u1", "c2", "create product")
	Advance(reg, "u2", "c1", "create product")
	require.Equal(t, 3, reg.Len())

	Advance(reg, "u1", "c1", "Shoes")
	assert.Equal(t, "Shoes", reg.Peek("u1", "c1").Data["name"])
	assert.Empty(t, reg.Peek("u1", "c2").Data["name"])
	assert.Empty(t, reg.Peek("u2", "c1").Data["name"])
}

func TestRegistrySweep(t *testing.T) {
	reg := NewRegistry(10 * time.Millisecond)

	Advance(reg, "u1", "c1", "create product")
	require.Equal(t, 1, reg.Len())

	time.Sleep(30 * time.Millisecond)
	removed := reg.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryConcurrentUpdates(t *testing.T) {
	reg := NewRegistry(time.Minute)

	const workers = 16
	const rounds = 100
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			chatID := fmt.Sprintf("c%d", w%4)
			for i := 0; i < rounds; i++ {
				reg.Update("u1", chatID, func(s *Session) bool {
					s.Steps++
					return true
				})
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for _, chatID := range []string{"c0", "c1", "c2", "c3"} {
		s := reg.Peek("u1", chatID)
		require.NotNil(t, s)
		total += s.Steps
	}
	assert.Equal(t, workers*rounds, total, "no increments may be lost")
}
