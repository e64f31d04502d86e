package models

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func burger(qty int, customizations ...string) OrderLine {
	return OrderLine{
		Name:           "Classic Burger",
		Quantity:       qty,
		UnitPrice:      decimal.RequireFromString("12.99"),
		Customizations: customizations,
	}
}

func TestLedger_AddMergesIdenticalLines(t *testing.T) {
	l := NewLedger()

	require.NoError(t, l.Add(burger(1, "extra cheese")))
	require.NoError(t, l.Add(burger(2, "extra cheese")))

	lines := l.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, 3, l.ItemCount())
}

func TestLedger_AddKeepsDifferentCustomizationsApart(t *testing.T) {
	l := NewLedger()

	require.NoError(t, l.Add(burger(1, "extra cheese")))
	require.NoError(t, l.Add(burger(1)))
	require.NoError(t, l.Add(burger(1, "no onions", "extra cheese")))
	require.NoError(t, l.Add(burger(1, "extra cheese", "no onions")))

	assert.Len(t, l.Lines(), 4, "customization order matters")
}

func TestLedger_AddMatchesNameCaseInsensitively(t *testing.T) {
	l := NewLedger()

	require.NoError(t, l.Add(burger(1)))
	line := burger(1)
	line.Name = "classic burger "
	require.NoError(t, l.Add(line))

	require.Len(t, l.Lines(), 1)
	assert.Equal(t, 2, l.Lines()[0].Quantity)
}

func TestLedger_AddValidates(t *testing.T) {
	l := NewLedger()

	assert.ErrorIs(t, l.Add(burger(0)), ErrInvalidQuantity)
	assert.ErrorIs(t, l.Add(burger(-2)), ErrInvalidQuantity)

	negative := burger(1)
	negative.UnitPrice = decimal.RequireFromString("-1")
	assert.ErrorIs(t, l.Add(negative), ErrNegativePrice)

	unnamed := burger(1)
	unnamed.Name = "  "
	assert.ErrorIs(t, l.Add(unnamed), ErrInvalidItem)

	free := burger(1)
	free.UnitPrice = decimal.Zero
	assert.NoError(t, l.Add(free))
}

func TestLedger_QuantityLimit(t *testing.T) {
	l := NewLedger()

	assert.ErrorIs(t, l.Add(burger(math.MaxInt64)), ErrInvalidQuantity)
	assert.True(t, l.Empty())

	require.NoError(t, l.Add(burger(MaxItemQuantity)))
	assert.ErrorIs(t, l.Add(burger(1)), ErrInvalidQuantity)
	assert.ErrorIs(t, l.Add(burger(math.MaxInt64)), ErrInvalidQuantity)

	lines := l.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, MaxItemQuantity, lines[0].Quantity)
	assert.False(t, NewPricingCalculator(DefaultTaxRate).Calculate(lines).Total.IsNegative())

	assert.ErrorIs(t, l.SetQuantity("Classic Burger", MaxItemQuantity+1), ErrInvalidQuantity)
	require.NoError(t, l.SetQuantity("Classic Burger", 5))
	assert.Equal(t, 5, l.ItemCount())
}

func TestLedger_RemoveOnlyLineDeletesItem(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Add(burger(2)))

	require.NoError(t, l.Remove("classic burger"))

	assert.True(t, l.Empty())
	assert.False(t, l.Contains("Classic Burger"))
	assert.ErrorIs(t, l.Remove("Classic Burger"), ErrItemNotFound)
}

func TestLedger_RemoveDeletesEveryLineOfItem(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Add(burger(1)))
	require.NoError(t, l.Add(burger(1, "extra cheese")))
	require.NoError(t, l.Add(OrderLine{Name: "Coca Cola", Quantity: 1, UnitPrice: decimal.RequireFromString("2.99")}))

	require.NoError(t, l.Remove("Classic Burger"))

	require.Len(t, l.Lines(), 1)
	assert.Equal(t, "Coca Cola", l.Lines()[0].Name)
}

func TestLedger_DecreaseAndSetQuantity(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Add(burger(3)))

	require.NoError(t, l.Decrease("Classic Burger", 1))
	assert.Equal(t, 2, l.Lines()[0].Quantity)

	require.NoError(t, l.SetQuantity("Classic Burger", 5))
	assert.Equal(t, 5, l.Lines()[0].Quantity)

	require.NoError(t, l.Decrease("Classic Burger", 10))
	assert.True(t, l.Empty())

	assert.ErrorIs(t, l.Decrease("Classic Burger", 1), ErrItemNotFound)
	assert.ErrorIs(t, l.Decrease("Classic Burger", 0), ErrInvalidQuantity)
}

func TestLedger_SetQuantityZeroRemoves(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Add(burger(3)))

	require.NoError(t, l.SetQuantity("Classic Burger", 0))
	assert.True(t, l.Empty())
}

func TestLedger_AmbiguousLines(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Add(burger(1)))
	require.NoError(t, l.Add(burger(1, "extra cheese")))

	assert.ErrorIs(t, l.SetQuantity("Classic Burger", 2), ErrAmbiguousItem)
	assert.ErrorIs(t, l.Decrease("Classic Burger", 1), ErrAmbiguousItem)
}

func TestLedger_FrozenRejectsMutations(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Add(burger(1)))
	l.Freeze()

	assert.True(t, l.Frozen())
	assert.ErrorIs(t, l.Add(burger(1)), ErrLedgerFrozen)
	assert.ErrorIs(t, l.Remove("Classic Burger"), ErrLedgerFrozen)
	assert.ErrorIs(t, l.Decrease("Classic Burger", 1), ErrLedgerFrozen)
	assert.ErrorIs(t, l.SetQuantity("Classic Burger", 4), ErrLedgerFrozen)
	assert.ErrorIs(t, l.Clear(), ErrLedgerFrozen)
	assert.Equal(t, 1, l.ItemCount())
}

func TestLedger_LinesIsACopy(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Add(burger(1, "extra cheese")))

	lines := l.Lines()
	lines[0].Quantity = 99
	lines[0].Customizations[0] = "changed"

	assert.Equal(t, 1, l.Lines()[0].Quantity)
	assert.Equal(t, "extra cheese", l.Lines()[0].Customizations[0])
}

func TestPricingCalculator_TotalIsSubtotalPlusTax(t *testing.T) {
	calc := NewPricingCalculator(DefaultTaxRate)
	lines := []OrderLine{
		burger(2),
		{Name: "Coca Cola", Quantity: 3, UnitPrice: decimal.RequireFromString("2.99")},
	}

	totals := calc.Calculate(lines)

	assert.True(t, decimal.RequireFromString("34.95").Equal(totals.Subtotal), totals.Subtotal.String())
	assert.True(t, totals.Subtotal.Mul(decimal.RequireFromString("1.08")).Equal(totals.Total))
	assert.True(t, totals.Subtotal.Add(totals.Tax).Equal(totals.Total))
	assert.Equal(t, "$37.75", FormatMoney(totals.Total))
}

func TestPricingCalculator_EmptyOrder(t *testing.T) {
	totals := NewPricingCalculator(DefaultTaxRate).Calculate(nil)

	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, totals.Total.IsZero())
}

func TestPricingCalculator_NegativeRateFallsBack(t *testing.T) {
	calc := NewPricingCalculator(decimal.RequireFromString("-0.5"))
	assert.True(t, DefaultTaxRate.Equal(calc.TaxRate))
}
