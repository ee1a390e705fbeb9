package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkTotals verifies the aggregate invariants that must hold after every
// mutator: totalAmount is the sum of subtotals and no product appears in
// more than one line.
func checkTotals(t *testing.T, cart *Cart) {
	t.Helper()

	var amount float64
	var items int
	seen := make(map[string]bool)
	for i := range cart.Items {
		item := &cart.Items[i]
		amount += float64(item.Quantity) * item.UnitPrice
		items += item.Quantity
		assert.False(t, seen[item.ProductID], "duplicate line for product %s", item.ProductID)
		seen[item.ProductID] = true
	}
	assert.Equal(t, amount, cart.TotalAmount())
	assert.Equal(t, items, cart.TotalItems())
}

func TestNewCart_Owners(t *testing.T) {
	userCart := NewUserCart("user-1")
	require.NotNil(t, userCart.UserID)
	assert.Equal(t, "user-1", *userCart.UserID)
	assert.Nil(t, userCart.SessionID)
	assert.NoError(t, userCart.Validate())
	assert.False(t, userCart.Persisted)

	sessionCart := NewSessionCart("sess-1")
	require.NotNil(t, sessionCart.SessionID)
	assert.Nil(t, sessionCart.UserID)
	assert.NoError(t, sessionCart.Validate())

	assert.NotEqual(t, userCart.ID, sessionCart.ID)
}

func TestCart_AddItem_Validation(t *testing.T) {
	cart := NewUserCart("user-1")

	assert.ErrorIs(t, cart.AddItem("", 1, 100), ErrEmptyProductID)
	assert.ErrorIs(t, cart.AddItem("p1", 0, 100), ErrInvalidQuantity)
	assert.ErrorIs(t, cart.AddItem("p1", -3, 100), ErrInvalidQuantity)
	assert.ErrorIs(t, cart.AddItem("p1", 1, 0), ErrInvalidPrice)
	assert.ErrorIs(t, cart.AddItem("p1", 1, -10), ErrInvalidPrice)
	assert.Empty(t, cart.Items)
}

func TestCart_AddItem_MergesExistingLine(t *testing.T) {
	cart := NewUserCart("user-1")

	require.NoError(t, cart.AddItem("p1", 2, 100))
	assert.Equal(t, 200.0, cart.TotalAmount())
	checkTotals(t, cart)

	// Re-adding increases quantity; the first price snapshot wins.
	require.NoError(t, cart.AddItem("p1", 3, 150))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 100.0, cart.Items[0].UnitPrice)
	assert.Equal(t, 500.0, cart.TotalAmount())
	checkTotals(t, cart)
}

func TestCart_RemoveItem(t *testing.T) {
	cart := NewUserCart("user-1")
	require.NoError(t, cart.AddItem("p1", 2, 100))
	require.NoError(t, cart.AddItem("p2", 1, 50))

	assert.ErrorIs(t, cart.RemoveItem("missing"), ErrItemNotFound)

	require.NoError(t, cart.RemoveItem("p1"))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p2", cart.Items[0].ProductID)
	checkTotals(t, cart)
}

func TestCart_UpdateQuantity(t *testing.T) {
	cart := NewUserCart("user-1")
	require.NoError(t, cart.AddItem("p1", 2, 100))

	assert.ErrorIs(t, cart.UpdateQuantity("p1", -1), ErrInvalidQuantity)
	assert.ErrorIs(t, cart.UpdateQuantity("missing", 3), ErrItemNotFound)

	require.NoError(t, cart.UpdateQuantity("p1", 7))
	assert.Equal(t, 7, cart.Items[0].Quantity)
	checkTotals(t, cart)

	// Zero behaves as removal.
	require.NoError(t, cart.UpdateQuantity("p1", 0))
	assert.True(t, cart.IsEmpty())
}

func TestCart_MergeWith(t *testing.T) {
	user := NewUserCart("user-1")
	require.NoError(t, user.AddItem("a", 1, 100))

	session := NewSessionCart("sess-1")
	require.NoError(t, session.AddItem("a", 2, 120))
	require.NoError(t, session.AddItem("b", 1, 30))

	user.MergeWith(session)

	require.Len(t, user.Items, 2)
	a := user.Item("a")
	require.NotNil(t, a)
	assert.Equal(t, 3, a.Quantity)
	assert.Equal(t, 100.0, a.UnitPrice) // receiver's snapshot wins

	b := user.Item("b")
	require.NotNil(t, b)
	assert.Equal(t, 1, b.Quantity)
	checkTotals(t, user)

	// Merge never mutates the source.
	assert.Len(t, session.Items, 2)
}

func TestCart_MergeWith_Nil(t *testing.T) {
	cart := NewUserCart("user-1")
	require.NoError(t, cart.AddItem("a", 1, 100))
	cart.MergeWith(nil)
	assert.Len(t, cart.Items, 1)
}

func TestCart_TransferToUser(t *testing.T) {
	userOwned := NewUserCart("user-1")
	assert.ErrorIs(t, userOwned.TransferToUser("user-2"), ErrUserOwnerExists)

	sessionOwned := NewSessionCart("sess-1")
	require.NoError(t, sessionOwned.TransferToUser("user-1"))
	require.NotNil(t, sessionOwned.UserID)
	assert.Equal(t, "user-1", *sessionOwned.UserID)
	assert.Nil(t, sessionOwned.SessionID)
	assert.NoError(t, sessionOwned.Validate())
}

func TestCart_Clear(t *testing.T) {
	cart := NewUserCart("user-1")
	require.NoError(t, cart.AddItem("p1", 2, 100))

	id := cart.ID
	cart.Clear()

	assert.True(t, cart.IsEmpty())
	assert.Equal(t, id, cart.ID)
	assert.Zero(t, cart.TotalAmount())
}

func TestCart_MutatorsBumpUpdatedAt(t *testing.T) {
	cart := NewUserCart("user-1")
	before := cart.UpdatedAt

	time.Sleep(time.Millisecond)
	require.NoError(t, cart.AddItem("p1", 1, 10))
	assert.True(t, cart.UpdatedAt.After(before))

	before = cart.UpdatedAt
	time.Sleep(time.Millisecond)
	require.NoError(t, cart.UpdateQuantity("p1", 2))
	assert.True(t, cart.UpdatedAt.After(before))

	before = cart.UpdatedAt
	time.Sleep(time.Millisecond)
	cart.Clear()
	assert.True(t, cart.UpdatedAt.After(before))
}

func TestCart_Validate_OwnerInvariant(t *testing.T) {
	cart := &Cart{ID: "x"}
	assert.ErrorIs(t, cart.Validate(), ErrNoOwner)

	user := "u"
	session := "s"
	cart.UserID = &user
	cart.SessionID = &session
	assert.ErrorIs(t, cart.Validate(), ErrNoOwner)

	cart.SessionID = nil
	assert.NoError(t, cart.Validate())
}

func TestReservation_Expired(t *testing.T) {
	now := time.Now()
	live := Reservation{ExpiresAt: now.Add(time.Minute)}
	lapsed := Reservation{ExpiresAt: now.Add(-time.Minute)}

	assert.False(t, live.Expired(now))
	assert.True(t, lapsed.Expired(now))
}

func TestInventory_Available(t *testing.T) {
	inv := Inventory{Stock: 10, Reserved: 4}
	assert.Equal(t, 6, inv.Available())

	over := Inventory{Stock: 3, Reserved: 5}
	assert.Equal(t, 0, over.Available())
}
