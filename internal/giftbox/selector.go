// Package giftbox implements the interactive gift-box picker. Unlike load-time
// reconciliation, entry above stock is refused and the line stays as it was.
package giftbox

import (
	"errors"
	"fmt"

	"sparkpro/desk/internal/cart"
	"sparkpro/desk/internal/domain"
)

var (
	ErrOverStock       = errors.New("requested quantity exceeds stock")
	ErrInvalidQuantity = errors.New("quantity must not be negative")
)

// ValidateAgainstStock checks one interactive entry.
func ValidateAgainstStock(box domain.GiftBox, qty int) error {
	if qty < 0 {
		return ErrInvalidQuantity
	}
	if qty > box.StockAvailable {
		return fmt.Errorf("%s: %d requested, %d in stock: %w", box.Name, qty, box.StockAvailable, ErrOverStock)
	}
	return nil
}

// Selector edits the gift lines of a cart.
type Selector struct {
	cart *cart.Cart
}

func NewSelector(c *cart.Cart) *Selector {
	return &Selector{cart: c}
}

// Options lists every active gift box with its currently selected quantity.
func (s *Selector) Options() []domain.GiftOption {
	boxes := s.cart.Catalog().GiftBoxes
	options := make([]domain.GiftOption, 0, len(boxes))
	for _, box := range boxes {
		options = append(options, domain.GiftOption{GiftBox: box, Selected: s.cart.GiftQuantity(box.ID)})
	}
	return options
}

// SetQuantity applies qty when it fits in stock. An over-stock entry is
// reported as a notice and changes nothing.
func (s *Selector) SetQuantity(giftBoxID string, qty int) ([]domain.Notice, error) {
	box, ok := s.cart.Catalog().GiftBox(giftBoxID)
	if !ok {
		return nil, fmt.Errorf("gift box %q: %w", giftBoxID, cart.ErrUnknownItem)
	}
	if err := ValidateAgainstStock(box, qty); err != nil {
		if errors.Is(err, ErrOverStock) {
			return []domain.Notice{{
				Level:     domain.NoticeWarning,
				Code:      domain.NoticeOverStockRejected,
				Message:   fmt.Sprintf("only %d of %s in stock; change rejected", box.StockAvailable, box.Name),
				SubjectID: box.ID,
			}}, nil
		}
		return nil, err
	}
	return s.cart.SetGiftQuantity(giftBoxID, qty)
}

func (s *Selector) Increment(giftBoxID string) ([]domain.Notice, error) {
	box, ok := s.cart.Catalog().GiftBox(giftBoxID)
	if !ok {
		return nil, fmt.Errorf("gift box %q: %w", giftBoxID, cart.ErrUnknownItem)
	}
	current := s.cart.GiftQuantity(giftBoxID)
	if current >= box.StockAvailable {
		return nil, nil
	}
	return s.SetQuantity(giftBoxID, current+1)
}

// Decrement always applies. A selection left above a refreshed stock level
// is clamped down to it instead of being rejected.
func (s *Selector) Decrement(giftBoxID string) ([]domain.Notice, error) {
	current := s.cart.GiftQuantity(giftBoxID)
	if current == 0 {
		return nil, nil
	}
	if _, ok := s.cart.Catalog().GiftBox(giftBoxID); !ok {
		s.cart.RemoveGift(giftBoxID)
		return nil, nil
	}
	return s.cart.DecrementGift(giftBoxID)
}
