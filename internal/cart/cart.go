// Package cart holds the live, user-editable cart of one billing desk and
// the load-time reconciliation that produces it from a saved draft.
package cart

import (
	"errors"
	"fmt"

	"sparkpro/desk/internal/catalog"
	"sparkpro/desk/internal/domain"
)

var ErrUnknownItem = errors.New("item is not in the active catalog")

// Cart is not safe for concurrent use; the owning desk serializes access.
// Every mutation leaves the line it touches with 0 < quantity <= stock.
type Cart struct {
	catalog   *catalog.Catalog
	lines     []domain.CartLine
	giftLines []domain.GiftSelectionLine
}

func New(cat *catalog.Catalog) *Cart {
	if cat == nil {
		cat = catalog.Empty()
	}
	return &Cart{catalog: cat}
}

// Load replaces the cart content with a reconciliation result.
func (c *Cart) Load(r Reconciliation) {
	c.lines = append([]domain.CartLine(nil), r.Lines...)
	c.giftLines = append([]domain.GiftSelectionLine(nil), r.GiftLines...)
}

// SetCatalog swaps the catalog used to resolve insertions and stock limits.
func (c *Cart) SetCatalog(cat *catalog.Catalog) {
	if cat == nil {
		cat = catalog.Empty()
	}
	c.catalog = cat
}

func (c *Cart) Catalog() *catalog.Catalog {
	return c.catalog
}

func (c *Cart) Lines() []domain.CartLine {
	return append(make([]domain.CartLine, 0, len(c.lines)), c.lines...)
}

func (c *Cart) GiftLines() []domain.GiftSelectionLine {
	return append(make([]domain.GiftSelectionLine, 0, len(c.giftLines)), c.giftLines...)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0 && len(c.giftLines) == 0
}

func (c *Cart) Clear() {
	c.lines = nil
	c.giftLines = nil
}

func (c *Cart) Quantity(productID string) int {
	if i := c.lineIndex(productID); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

func (c *Cart) GiftQuantity(giftBoxID string) int {
	if i := c.giftIndex(giftBoxID); i >= 0 {
		return c.giftLines[i].Quantity
	}
	return 0
}

// SetQuantity clamps qty into [0, stock]. Asking for more than stock still
// applies the clamp and returns an over-stock notice; zero removes the line.
func (c *Cart) SetQuantity(productID string, qty int) ([]domain.Notice, error) {
	product, err := c.resolveProduct(productID)
	if err != nil {
		return nil, err
	}
	applied, notices := clampEntry(qty, product.StockAvailable, product.Name, product.ID)

	i := c.lineIndex(productID)
	switch {
	case applied == 0 && i >= 0:
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	case applied == 0:
	case i >= 0:
		c.lines[i] = domain.CartLine{Product: product, Quantity: applied}
	default:
		c.lines = append(c.lines, domain.CartLine{Product: product, Quantity: applied})
	}
	return notices, nil
}

func (c *Cart) Increment(productID string) ([]domain.Notice, error) {
	product, err := c.resolveProduct(productID)
	if err != nil {
		return nil, err
	}
	current := c.Quantity(productID)
	if current >= product.StockAvailable {
		return nil, nil
	}
	return c.SetQuantity(productID, current+1)
}

func (c *Cart) Decrement(productID string) ([]domain.Notice, error) {
	current := c.Quantity(productID)
	if current == 0 {
		return nil, nil
	}
	return c.SetQuantity(productID, current-1)
}

func (c *Cart) Remove(productID string) {
	if i := c.lineIndex(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// SetGiftQuantity is SetQuantity for gift lines.
func (c *Cart) SetGiftQuantity(giftBoxID string, qty int) ([]domain.Notice, error) {
	box, err := c.resolveGiftBox(giftBoxID)
	if err != nil {
		return nil, err
	}
	applied, notices := clampEntry(qty, box.StockAvailable, box.Name, box.ID)

	i := c.giftIndex(giftBoxID)
	switch {
	case applied == 0 && i >= 0:
		c.giftLines = append(c.giftLines[:i], c.giftLines[i+1:]...)
	case applied == 0:
	case i >= 0:
		c.giftLines[i] = domain.GiftSelectionLine{GiftBox: box, Quantity: applied}
	default:
		c.giftLines = append(c.giftLines, domain.GiftSelectionLine{GiftBox: box, Quantity: applied})
	}
	return notices, nil
}

func (c *Cart) IncrementGift(giftBoxID string) ([]domain.Notice, error) {
	box, err := c.resolveGiftBox(giftBoxID)
	if err != nil {
		return nil, err
	}
	current := c.GiftQuantity(giftBoxID)
	if current >= box.StockAvailable {
		return nil, nil
	}
	return c.SetGiftQuantity(giftBoxID, current+1)
}

func (c *Cart) DecrementGift(giftBoxID string) ([]domain.Notice, error) {
	current := c.GiftQuantity(giftBoxID)
	if current == 0 {
		return nil, nil
	}
	return c.SetGiftQuantity(giftBoxID, current-1)
}

func (c *Cart) RemoveGift(giftBoxID string) {
	if i := c.giftIndex(giftBoxID); i >= 0 {
		c.giftLines = append(c.giftLines[:i], c.giftLines[i+1:]...)
	}
}

// resolveProduct prefers the live catalog so stock limits follow refreshes;
// a line already in the cart stays editable after its product disappears.
func (c *Cart) resolveProduct(productID string) (domain.Product, error) {
	if p, ok := c.catalog.Product(productID); ok {
		return p, nil
	}
	if i := c.lineIndex(productID); i >= 0 {
		return c.lines[i].Product, nil
	}
	return domain.Product{}, fmt.Errorf("product %q: %w", productID, ErrUnknownItem)
}

func (c *Cart) resolveGiftBox(giftBoxID string) (domain.GiftBox, error) {
	if g, ok := c.catalog.GiftBox(giftBoxID); ok {
		return g, nil
	}
	if i := c.giftIndex(giftBoxID); i >= 0 {
		return c.giftLines[i].GiftBox, nil
	}
	return domain.GiftBox{}, fmt.Errorf("gift box %q: %w", giftBoxID, ErrUnknownItem)
}

func (c *Cart) lineIndex(productID string) int {
	for i, line := range c.lines {
		if line.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) giftIndex(giftBoxID string) int {
	for i, line := range c.giftLines {
		if line.GiftBox.ID == giftBoxID {
			return i
		}
	}
	return -1
}

func clampEntry(qty int, stock int, name string, id string) (int, []domain.Notice) {
	if qty < 0 {
		qty = 0
	}
	if stock < 0 {
		stock = 0
	}
	if qty <= stock {
		return qty, nil
	}
	return stock, []domain.Notice{{
		Level:     domain.NoticeWarning,
		Code:      domain.NoticeOverStockClamped,
		Message:   fmt.Sprintf("only %d of %s in stock; quantity set to %d", stock, name, stock),
		SubjectID: id,
	}}
}
