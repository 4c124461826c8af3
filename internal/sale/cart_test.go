package sale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
)

func TestAddItemMergesExistingLines(t *testing.T) {
	cart := NewCart("tenant-1")

	require.NoError(t, cart.AddItem("p1", "Coffee Beans", 2, 25.00, 0))
	require.NoError(t, cart.AddItem("p1", "Coffee Beans", 3, 25.00, 0))

	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 125.00, cart.Totals().Subtotal)
}

func TestCartTotalsWithTax(t *testing.T) {
	cart := NewCart("tenant-1")
	require.NoError(t, cart.AddItem("p1", "Coffee Beans", 2, 25.00, 0.075))

	totals := cart.Totals()
	assert.Equal(t, 50.00, totals.Subtotal)
	assert.Equal(t, 3.75, totals.Tax)
	assert.Equal(t, 0.00, totals.Discount)
	assert.Equal(t, 53.75, totals.Total)
}

func TestCartRejectsInvalidLines(t *testing.T) {
	cart := NewCart("tenant-1")

	err := cart.AddItem("p1", "Coffee Beans", 0, 25.00, 0)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = cart.AddItem("p1", "Coffee Beans", 1, 0, 0)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	cart := NewCart("tenant-1")
	require.NoError(t, cart.AddItem("p1", "Coffee Beans", 2, 25.00, 0))

	require.NoError(t, cart.UpdateQuantity("p1", 0))
	assert.Empty(t, cart.Items())
	assert.Equal(t, 0.00, cart.Totals().Total)
}

func TestRemoveUnknownLineFails(t *testing.T) {
	cart := NewCart("tenant-1")
	err := cart.RemoveItem("missing")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestLineDiscountAppliesBeforeTax(t *testing.T) {
	cart := NewCart("tenant-1")
	require.NoError(t, cart.AddItem("p1", "Coffee Beans", 2, 25.00, 0.10))
	require.NoError(t, cart.ApplyDiscount("p1", 10.00, DiscountAmount))

	totals := cart.Totals()
	assert.Equal(t, 50.00, totals.Subtotal)
	assert.Equal(t, 10.00, totals.Discount)
	// Tax is computed on the discounted line: (50 - 10) * 0.10.
	assert.Equal(t, 4.00, totals.Tax)
	assert.Equal(t, 44.00, totals.Total)
}

func TestSaleLevelPercentDiscount(t *testing.T) {
	cart := NewCart("tenant-1")
	require.NoError(t, cart.AddItem("p1", "Coffee Beans", 4, 25.00, 0))
	require.NoError(t, cart.ApplyDiscount("", 10, DiscountPercent))

	totals := cart.Totals()
	assert.Equal(t, 100.00, totals.Subtotal)
	assert.Equal(t, 10.00, totals.Discount)
	assert.Equal(t, 90.00, totals.Total)
}

func TestDiscountValidation(t *testing.T) {
	cart := NewCart("tenant-1")
	require.NoError(t, cart.AddItem("p1", "Coffee Beans", 1, 20.00, 0))

	err := cart.ApplyDiscount("p1", -1, DiscountAmount)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = cart.ApplyDiscount("p1", 120, DiscountPercent)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = cart.ApplyDiscount("p1", 25.00, DiscountAmount)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = cart.ApplyDiscount("p1", 5, DiscountKind("bogus"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestClearResetsCart(t *testing.T) {
	cart := NewCart("tenant-1")
	require.NoError(t, cart.AddItem("p1", "Coffee Beans", 2, 25.00, 0))
	cart.SetCustomer("c1")

	cart.Clear()
	assert.Empty(t, cart.Items())
	assert.Empty(t, cart.CustomerID)
	assert.Equal(t, StateBuilding, cart.State())
	assert.Equal(t, Totals{}, cart.Totals())
}
