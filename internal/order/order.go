// Package order turns a live cart into a draft save or a placed order.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sparkpro/desk/internal/apiclient"
	"sparkpro/desk/internal/cart"
	"sparkpro/desk/internal/domain"
	"sparkpro/desk/internal/pricing"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrMissingCustomer = errors.New("customer id is required")
)

type Remote interface {
	SaveCart(ctx context.Context, cred apiclient.Credential, payload domain.OrderPayload) error
	PlaceOrder(ctx context.Context, cred apiclient.Credential, payload domain.OrderPayload) (domain.OrderResult, error)
}

type Submitter struct {
	remote Remote
}

func NewSubmitter(remote Remote) *Submitter {
	return &Submitter{remote: remote}
}

// BuildPayload prices the cart and rounds money to two decimals.
func BuildPayload(customerID string, c *cart.Cart, settings domain.PricingSettings) domain.OrderPayload {
	lines := c.Lines()
	giftLines := c.GiftLines()
	snap := pricing.Compute(lines, giftLines, settings)

	payload := domain.OrderPayload{
		CustomerID:   customerID,
		ProductLines: make([]domain.LineRef, 0, len(lines)),
		GiftLines:    make([]domain.LineRef, 0, len(giftLines)),
		DiscountPct:  settings.DiscountPct,
		Subtotal:     pricing.Money(snap.Subtotal),
		GST: domain.OrderGST{
			Enabled: settings.GST.Enabled,
			Pct:     settings.GST.Pct,
			Amount:  pricing.Money(snap.GSTAmount),
		},
		GrandTotal: pricing.Money(snap.GrandTotal),
	}
	for _, line := range lines {
		payload.ProductLines = append(payload.ProductLines, domain.LineRef{ID: line.Product.ID, Quantity: line.Quantity})
	}
	for _, line := range giftLines {
		payload.GiftLines = append(payload.GiftLines, domain.LineRef{ID: line.GiftBox.ID, Quantity: line.Quantity})
	}
	return payload
}

// SaveDraft upserts the pending cart. The live cart is kept either way.
func (s *Submitter) SaveDraft(ctx context.Context, cred apiclient.Credential, customerID string, c *cart.Cart, settings domain.PricingSettings) error {
	if strings.TrimSpace(customerID) == "" {
		return ErrMissingCustomer
	}
	if err := s.remote.SaveCart(ctx, cred, BuildPayload(customerID, c, settings)); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Checkout places the order. An empty cart is refused before any network
// call; the cart is cleared only after the API confirms the order.
func (s *Submitter) Checkout(ctx context.Context, cred apiclient.Credential, customerID string, c *cart.Cart, settings domain.PricingSettings) (domain.OrderResult, error) {
	if strings.TrimSpace(customerID) == "" {
		return domain.OrderResult{}, ErrMissingCustomer
	}
	if c.IsEmpty() {
		return domain.OrderResult{}, ErrEmptyCart
	}
	result, err := s.remote.PlaceOrder(ctx, cred, BuildPayload(customerID, c, settings))
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("place order: %w", err)
	}
	c.Clear()
	return result, nil
}
