package giftbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkpro/desk/internal/cart"
	"sparkpro/desk/internal/catalog"
	"sparkpro/desk/internal/domain"
)

func newSelector() (*Selector, *cart.Cart) {
	cat := catalog.New(nil, []domain.GiftBox{
		{ID: "G1", Name: "Family Box", GrandTotal: 500, StockAvailable: 5, Active: true},
		{ID: "G2", Name: "Kids Box", GrandTotal: 150, StockAvailable: 1, Active: true},
		{ID: "G3", Name: "Retired Box", GrandTotal: 90, StockAvailable: 9, Active: false},
	})
	c := cart.New(cat)
	return NewSelector(c), c
}

func TestValidateAgainstStock(t *testing.T) {
	box := domain.GiftBox{Name: "Family Box", StockAvailable: 5}
	assert.NoError(t, ValidateAgainstStock(box, 5))
	assert.ErrorIs(t, ValidateAgainstStock(box, 6), ErrOverStock)
	assert.ErrorIs(t, ValidateAgainstStock(box, -1), ErrInvalidQuantity)
}

func TestOverStockEntryIsRejected(t *testing.T) {
	sel, c := newSelector()
	_, err := sel.SetQuantity("G1", 2)
	require.NoError(t, err)

	notices, err := sel.SetQuantity("G1", 10)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticeOverStockRejected, notices[0].Code)
	assert.Equal(t, 2, c.GiftQuantity("G1"))
}

func TestOptionsListActiveBoxesWithSelection(t *testing.T) {
	sel, _ := newSelector()
	_, err := sel.Increment("G2")
	require.NoError(t, err)

	options := sel.Options()
	require.Len(t, options, 2)
	assert.Equal(t, 0, options[0].Selected)
	assert.Equal(t, 1, options[1].Selected)
}

func TestStepsStopAtBoundaries(t *testing.T) {
	sel, c := newSelector()

	notices, err := sel.Decrement("G2")
	require.NoError(t, err)
	assert.Empty(t, notices)

	_, err = sel.Increment("G2")
	require.NoError(t, err)
	notices, err = sel.Increment("G2")
	require.NoError(t, err)
	assert.Empty(t, notices)
	assert.Equal(t, 1, c.GiftQuantity("G2"))

	_, err = sel.SetQuantity("G2", 0)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestUnknownBox(t *testing.T) {
	sel, _ := newSelector()
	_, err := sel.SetQuantity("G3", 1)
	assert.ErrorIs(t, err, cart.ErrUnknownItem)
}

func TestDecrementAppliesAfterStockDrops(t *testing.T) {
	sel, c := newSelector()
	_, err := sel.SetQuantity("G1", 4)
	require.NoError(t, err)

	c.SetCatalog(catalog.New(nil, []domain.GiftBox{
		{ID: "G1", Name: "Family Box", GrandTotal: 500, StockAvailable: 1, Active: true},
	}))

	notices, err := sel.Decrement("G1")
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticeOverStockClamped, notices[0].Code)
	assert.Equal(t, 1, c.GiftQuantity("G1"))

	notices, err = sel.Decrement("G1")
	require.NoError(t, err)
	assert.Empty(t, notices)
	assert.Equal(t, 0, c.GiftQuantity("G1"))
}
