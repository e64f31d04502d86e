package agents

import (
	"context"
	"strings"
	"testing"

	"bistro/internal/models"
	"bistro/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrderAgent(t *testing.T, withIndex bool) *OrderAgent {
	t.Helper()
	menu := models.DefaultMenu()

	var index *search.MenuIndex
	if withIndex {
		var err error
		index, err = search.NewMenuIndex(menu)
		require.NoError(t, err)
		t.Cleanup(func() { index.Close() })
	}
	editor := NewOrderEditor(nil, menu, Settings{}, nil, nil)
	return NewOrderAgent(nil, menu, index, editor, Settings{}, nil, nil)
}

func TestOrderAgent_AddItems(t *testing.T) {
	agent := newTestOrderAgent(t, false)

	t.Run("all found", func(t *testing.T) {
		state := newState()
		result, err := agent.AddItems(state, []ExtractedItem{{Name: "Classic Burger", Quantity: 2}})
		require.NoError(t, err)
		require.Len(t, result.Added, 1)
		assert.False(t, result.NeedsClarification)
		assert.True(t, strings.HasPrefix(result.Message, "Great! I've added 1 item(s) to your order."))
		assert.Contains(t, result.Message, "Total: $28.06")
	})

	t.Run("aliases resolve", func(t *testing.T) {
		state := newState()
		result, err := agent.AddItems(state, []ExtractedItem{{Name: "coke"}})
		require.NoError(t, err)
		require.Len(t, result.Added, 1)
		assert.Equal(t, "Coca Cola", result.Added[0].Name)
		assert.Equal(t, 1, result.Added[0].Quantity)
	})

	t.Run("partly found", func(t *testing.T) {
		state := newState()
		result, err := agent.AddItems(state, []ExtractedItem{{Name: "burger", Quantity: 1}, {Name: "sushi", Quantity: 1}})
		require.NoError(t, err)
		assert.True(t, result.NeedsClarification)
		assert.Equal(t, []string{"sushi"}, result.Failed)
		assert.True(t, strings.HasPrefix(result.Message, "I've added 1 item(s) to your order, but couldn't find 1 item(s): sushi."))
	})

	t.Run("nothing found", func(t *testing.T) {
		state := newState()
		result, err := agent.AddItems(state, []ExtractedItem{{Name: "sushi"}})
		require.NoError(t, err)
		assert.Empty(t, result.Added)
		assert.Equal(t, "I couldn't find any of those items on our menu. Would you like to see our menu?", result.Message)
		assert.True(t, state.Ledger().Empty())
	})

	t.Run("no items", func(t *testing.T) {
		result, err := agent.AddItems(newState(), nil)
		require.NoError(t, err)
		assert.True(t, result.NeedsClarification)
	})

	t.Run("over the line limit", func(t *testing.T) {
		state := newState()
		first, err := agent.AddItems(state, []ExtractedItem{{Name: "Classic Burger", Quantity: models.MaxItemQuantity}})
		require.NoError(t, err)
		require.Len(t, first.Added, 1)

		result, err := agent.AddItems(state, []ExtractedItem{
			{Name: "Classic Burger", Quantity: 5},
			{Name: "Coca Cola", Quantity: 1},
		})
		require.NoError(t, err)
		assert.True(t, result.NeedsClarification)
		assert.Equal(t, []string{"Classic Burger"}, result.OverLimit)
		require.Len(t, result.Added, 1)
		assert.Contains(t, result.Message, "I can only take up to 99 of each item, so I left out: Classic Burger.")
		assert.Equal(t, models.MaxItemQuantity+1, state.Ledger().ItemCount())
	})

	t.Run("capped at the order limit", func(t *testing.T) {
		state := newState()
		names := []string{"Classic Burger", "Coca Cola", "Coffee", "Iced Tea", "House Wine", "Garlic Bread", "Onion Rings"}
		items := make([]ExtractedItem, len(names))
		for i, name := range names {
			items[i] = ExtractedItem{Name: name, Quantity: 1}
		}
		result, err := agent.AddItems(state, items)
		require.NoError(t, err)
		assert.Len(t, result.Added, DefaultSettings().MaxOrderItems)
		assert.False(t, state.Ledger().Contains("Onion Rings"))
	})
}

func TestOrderAgent_AddItemsToleratesTypos(t *testing.T) {
	state := newState()

	result, err := newTestOrderAgent(t, false).AddItems(state, []ExtractedItem{{Name: "salmn"}})
	require.NoError(t, err)
	assert.Empty(t, result.Added)

	result, err = newTestOrderAgent(t, true).AddItems(state, []ExtractedItem{{Name: "salmn"}})
	require.NoError(t, err)
	require.Len(t, result.Added, 1)
	assert.Equal(t, "Grilled Salmon", result.Added[0].Name)
}

func TestOrderAgent_Modify(t *testing.T) {
	agent := newTestOrderAgent(t, false)
	ctx := context.Background()

	message, err := agent.Modify(ctx, newState(), RouteDecision{}, "change something")
	require.NoError(t, err)
	assert.Equal(t, "I'd be happy to help modify your order. What changes would you like to make?", message)

	state := newState()
	addLine(state, "Classic Burger", 1, "12.99")

	message, err = agent.Modify(ctx, state, RouteDecision{Items: []ExtractedItem{{Name: "Coca Cola", Quantity: 1}}}, "also a coke")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(message, "Great!"))
	assert.True(t, state.Ledger().Contains("Coca Cola"))

	message, err = agent.Modify(ctx, state, RouteDecision{}, "remove the burger")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(message, "I've removed Classic Burger from your order."))
	assert.False(t, state.Ledger().Contains("Classic Burger"))
}

func TestOrderAgent_Summary(t *testing.T) {
	agent := newTestOrderAgent(t, false)

	state := newState()
	assert.Equal(t, "empty", agent.Summary(state).Status)
	assert.Equal(t, "Your order is currently empty. Would you like to see our menu?", agent.FormatSummary(state))
	assert.ErrorIs(t, agent.Validate(state), models.ErrEmptyOrder)

	addLine(state, "Classic Burger", 2, "12.99")
	summary := agent.Summary(state)
	assert.Equal(t, "active", summary.Status)
	require.Len(t, summary.Items, 1)

	formatted := agent.FormatSummary(state)
	assert.Contains(t, formatted, "Subtotal: $25.98")
	assert.Contains(t, formatted, "Tax: $2.08")
	assert.Contains(t, formatted, "Total: $28.06")
	assert.NoError(t, agent.Validate(state))
}
