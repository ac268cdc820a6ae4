package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerRef_KeysDoNotCollide(t *testing.T) {
	assert.NotEqual(t, AnonymousRef("42").Key(), UserRef("42").Key())
	assert.Equal(t, "user:42", UserRef("42").Key())
	assert.Equal(t, "anonymous:device-1", AnonymousRef("device-1").Key())
}

func TestCart_FindAndRemoveLine(t *testing.T) {
	cart := NewCart(UserRef("u1"))
	cart.Lines = []CartLine{
		{ID: "a", ProductID: 1, Quantity: 1},
		{ID: "b", ProductID: 2, VariantID: "M/Blue", Quantity: 2},
		{ID: "c", ProductID: 3, Quantity: 3},
	}

	// Same product, different variant, is a different line.
	assert.Equal(t, -1, cart.FindLine(LineKey{ProductID: 2}))
	assert.Equal(t, 1, cart.FindLine(LineKey{ProductID: 2, VariantID: "M/Blue"}))

	assert.True(t, cart.RemoveLine(LineKey{ProductID: 2, VariantID: "M/Blue"}))
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, "a", cart.Lines[0].ID)
	assert.Equal(t, "c", cart.Lines[1].ID)

	assert.False(t, cart.RemoveLine(LineKey{ProductID: 2, VariantID: "M/Blue"}))
	assert.Len(t, cart.Lines, 2)
}

func TestCart_CloneIsIndependent(t *testing.T) {
	cart := NewCart(UserRef("u1"))
	cart.Lines = []CartLine{
		{ID: "a", ProductID: 1, Quantity: 1, UnitPrice: decimal.RequireFromString("9.99")},
	}

	clone := cart.Clone()
	clone.Lines[0].Quantity = 99
	clone.Lines = append(clone.Lines, CartLine{ID: "b", ProductID: 2, Quantity: 1})

	assert.Equal(t, 1, cart.Lines[0].Quantity)
	assert.Len(t, cart.Lines, 1)
}
