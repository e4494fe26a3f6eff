package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"sparkpro/desk/internal/cart"
	"sparkpro/desk/internal/domain"
	"sparkpro/desk/internal/giftbox"
	"sparkpro/desk/internal/order"
	"sparkpro/desk/internal/pricing"
	"sparkpro/desk/internal/session"
)

// desk is one open billing session for a customer. Every read and write of
// its cart happens under mu, and the view returned from an operation is built
// before mu is released. A closed desk has left the desks map and refuses
// further operations.
type desk struct {
	mu         sync.Mutex
	tenantID   string
	customerID string
	cart       *cart.Cart
	selector   *giftbox.Selector
	pricing    domain.PricingSettings
	openedBy   string
	openedAt   time.Time
	closed     bool
	lastUsed   atomic.Int64
}

func (d *desk) touch(at time.Time) {
	d.lastUsed.Store(at.UnixNano())
}

func deskKey(tenantID string, customerID string) string {
	return tenantID + "/" + customerID
}

func normalizeCustomerID(customerID string) (string, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return "", fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}
	return customerID, nil
}

// OpenDesk loads the catalog and the saved draft, reconciles them, and
// installs the result as the customer's live cart. Opening an already open
// desk is the explicit reload.
func (s *Service) OpenDesk(ctx context.Context, customerID string) (domain.DeskView, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return domain.DeskView{}, err
	}
	customerID, err = normalizeCustomerID(customerID)
	if err != nil {
		return domain.DeskView{}, err
	}

	cat, err := s.fetcher.Load(ctx, sess)
	if err != nil {
		s.logger.Warn("catalog load failed", zap.String("customer", customerID), zap.Error(err))
		return domain.DeskView{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	pending, err := s.remote.PendingCart(ctx, sess, customerID)
	if err != nil {
		s.logger.Warn("pending cart fetch failed", zap.String("customer", customerID), zap.Error(err))
		return domain.DeskView{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	result := cart.ReconcileAgainstStock(pending, cat)
	c := cart.New(cat)
	c.Load(result)
	d := &desk{
		tenantID:   sess.Identity().TenantID,
		customerID: customerID,
		cart:       c,
		selector:   giftbox.NewSelector(c),
		pricing:    result.Pricing,
		openedBy:   sess.Identity().UserID,
		openedAt:   s.now(),
	}
	d.touch(d.openedAt)

	s.mu.Lock()
	s.evictIdleLocked(d.openedAt)
	s.desks[deskKey(d.tenantID, customerID)] = d
	s.mu.Unlock()

	s.logAudit(ctx, "desk_open", "customer", customerID,
		fmt.Sprintf("lines=%d,gift_lines=%d,notices=%d", len(result.Lines), len(result.GiftLines), len(result.Notices)))

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view(result.Notices), nil
}

// withDesk runs fn under the desk lock and returns the view fn leaves behind.
func (s *Service) withDesk(ctx context.Context, customerID string, fn func(sess *session.Session, d *desk) ([]domain.Notice, error)) (domain.DeskView, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return domain.DeskView{}, err
	}
	d, err := s.lookupDesk(sess, customerID)
	if err != nil {
		return domain.DeskView{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return domain.DeskView{}, ErrDeskNotOpen
	}
	d.touch(s.now())
	notices, err := fn(sess, d)
	if err != nil {
		return domain.DeskView{}, err
	}
	return d.view(notices), nil
}

func (s *Service) lookupDesk(sess *session.Session, customerID string) (*desk, error) {
	customerID, err := normalizeCustomerID(customerID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	d, ok := s.desks[deskKey(sess.Identity().TenantID, customerID)]
	s.mu.Unlock()
	if !ok {
		return nil, ErrDeskNotOpen
	}
	return d, nil
}

func (s *Service) Desk(ctx context.Context, customerID string) (domain.DeskView, error) {
	return s.withDesk(ctx, customerID, func(_ *session.Session, _ *desk) ([]domain.Notice, error) {
		return nil, nil
	})
}

func (s *Service) CloseDesk(ctx context.Context, customerID string) error {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return err
	}
	customerID, err = normalizeCustomerID(customerID)
	if err != nil {
		return err
	}

	key := deskKey(sess.Identity().TenantID, customerID)
	s.mu.Lock()
	d, ok := s.desks[key]
	delete(s.desks, key)
	s.mu.Unlock()
	if !ok {
		return ErrDeskNotOpen
	}
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// dropDesk removes d from the map when it is still the registered desk for
// its customer. The caller holds d.mu.
func (s *Service) dropDesk(d *desk) {
	d.closed = true
	key := deskKey(d.tenantID, d.customerID)
	s.mu.Lock()
	if s.desks[key] == d {
		delete(s.desks, key)
	}
	s.mu.Unlock()
}

// evictIdleLocked closes desks untouched for longer than the idle TTL. Desks
// busy with an operation are skipped. The caller holds s.mu.
func (s *Service) evictIdleLocked(now time.Time) {
	if s.deskIdleTTL <= 0 {
		return
	}
	cutoff := now.Add(-s.deskIdleTTL).UnixNano()
	for key, d := range s.desks {
		if d.lastUsed.Load() >= cutoff || !d.mu.TryLock() {
			continue
		}
		d.closed = true
		d.mu.Unlock()
		delete(s.desks, key)
		s.logger.Info("idle desk evicted", zap.String("desk", key))
	}
}

// desksOf lists the open desks of a tenant.
func (s *Service) desksOf(tenantID string) []*desk {
	s.mu.Lock()
	defer s.mu.Unlock()
	open := make([]*desk, 0)
	for _, d := range s.desks {
		if d.tenantID == tenantID {
			open = append(open, d)
		}
	}
	return open
}

func (s *Service) SetProductQuantity(ctx context.Context, customerID string, productID string, qty int) (domain.DeskView, error) {
	return s.withDesk(ctx, customerID, func(_ *session.Session, d *desk) ([]domain.Notice, error) {
		return d.cart.SetQuantity(productID, qty)
	})
}

func (s *Service) IncrementProduct(ctx context.Context, customerID string, productID string) (domain.DeskView, error) {
	return s.withDesk(ctx, customerID, func(_ *session.Session, d *desk) ([]domain.Notice, error) {
		return d.cart.Increment(productID)
	})
}

func (s *Service) DecrementProduct(ctx context.Context, customerID string, productID string) (domain.DeskView, error) {
	return s.withDesk(ctx, customerID, func(_ *session.Session, d *desk) ([]domain.Notice, error) {
		return d.cart.Decrement(productID)
	})
}

func (s *Service) RemoveProduct(ctx context.Context, customerID string, productID string) (domain.DeskView, error) {
	return s.withDesk(ctx, customerID, func(_ *session.Session, d *desk) ([]domain.Notice, error) {
		d.cart.Remove(productID)
		return nil, nil
	})
}

func (s *Service) SetGiftLineQuantity(ctx context.Context, customerID string, giftBoxID string, qty int) (domain.DeskView, error) {
	return s.withDesk(ctx, customerID, func(_ *session.Session, d *desk) ([]domain.Notice, error) {
		return d.cart.SetGiftQuantity(giftBoxID, qty)
	})
}

func (s *Service) IncrementGiftLine(ctx context.Context, customerID string, giftBoxID string) (domain.DeskView, error) {
	return s.withDesk(ctx, customerID, func(_ *session.Session, d *desk) ([]domain.Notice, error) {
		return d.cart.IncrementGift(giftBoxID)
	})
}

func (s *Service) DecrementGiftLine(ctx context.Context, customerID string, giftBoxID string) (domain.DeskView, error) {
	return s.withDesk(ctx, customerID, func(_ *session.Session, d *desk) ([]domain.Notice, error) {
		return d.cart.DecrementGift(giftBoxID)
	})
}

func (s *Service) RemoveGiftLine(ctx context.Context, customerID string, giftBoxID string) (domain.DeskView, error) {
	return s.withDesk(ctx, customerID, func(_ *session.Session, d *desk) ([]domain.Notice, error) {
		d.cart.RemoveGift(giftBoxID)
		return nil, nil
	})
}

func (s *Service) GiftOptions(ctx context.Context, customerID string) ([]domain.GiftOption, error) {
	var options []domain.GiftOption
	_, err := s.withDesk(ctx, customerID, func(_ *session.Session, d *desk) ([]domain.Notice, error) {
		options = d.selector.Options()
		return nil, nil
	})
	return options, err
}

func (s *Service) SelectGift(ctx context.Context, customerID string, giftBoxID string, qty int) (domain.DeskView, error) {
	return s.withDesk(ctx, customerID, func(_ *session.Session, d *desk) ([]domain.Notice, error) {
		notices, err := d.selector.SetQuantity(giftBoxID, qty)
		if errors.Is(err, giftbox.ErrInvalidQuantity) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return notices, err
	})
}

func (s *Service) IncrementSelectedGift(ctx context.Context, customerID string, giftBoxID string) (domain.DeskView, error) {
	return s.withDesk(ctx, customerID, func(_ *session.Session, d *desk) ([]domain.Notice, error) {
		return d.selector.Increment(giftBoxID)
	})
}

func (s *Service) DecrementSelectedGift(ctx context.Context, customerID string, giftBoxID string) (domain.DeskView, error) {
	return s.withDesk(ctx, customerID, func(_ *session.Session, d *desk) ([]domain.Notice, error) {
		return d.selector.Decrement(giftBoxID)
	})
}

func (s *Service) UpdatePricing(ctx context.Context, customerID string, settings domain.PricingSettings) (domain.DeskView, error) {
	return s.withDesk(ctx, customerID, func(_ *session.Session, d *desk) ([]domain.Notice, error) {
		notices, err := pricing.ValidateSettings(settings)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		d.pricing = settings
		return notices, nil
	})
}

// SaveDraft holds the desk lock across the upstream call so the saved draft
// is exactly the cart the caller sees in the response.
func (s *Service) SaveDraft(ctx context.Context, customerID string) (domain.DeskView, error) {
	return s.withDesk(ctx, customerID, func(sess *session.Session, d *desk) ([]domain.Notice, error) {
		if err := s.submitter.SaveDraft(ctx, sess, d.customerID, d.cart, d.pricing); err != nil {
			s.logger.Warn("save draft failed", zap.String("customer", d.customerID), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrSubmission, err)
		}
		s.logAudit(ctx, "cart_save", "customer", d.customerID,
			fmt.Sprintf("lines=%d,gift_lines=%d", len(d.cart.Lines()), len(d.cart.GiftLines())))
		return []domain.Notice{{
			Level:   domain.NoticeInfo,
			Code:    domain.NoticeDraftSaved,
			Message: "cart saved as draft",
		}}, nil
	})
}

// Checkout places the order and, on success, closes the desk. The returned
// view is the cleared cart.
func (s *Service) Checkout(ctx context.Context, customerID string) (domain.CheckoutResponse, error) {
	var result domain.OrderResult
	view, err := s.withDesk(ctx, customerID, func(sess *session.Session, d *desk) ([]domain.Notice, error) {
		payload := order.BuildPayload(d.customerID, d.cart, d.pricing)
		itemCount := 0
		for _, line := range payload.ProductLines {
			itemCount += line.Quantity
		}
		for _, line := range payload.GiftLines {
			itemCount += line.Quantity
		}

		placed, err := s.submitter.Checkout(ctx, sess, d.customerID, d.cart, d.pricing)
		if errors.Is(err, order.ErrEmptyCart) {
			return nil, err
		}
		if err != nil {
			s.logger.Warn("checkout failed", zap.String("customer", d.customerID), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrSubmission, err)
		}
		result = placed

		identity := sess.Identity()
		invoice, err := s.repo.RecordInvoice(ctx, domain.Invoice{
			TenantID:         identity.TenantID,
			CustomerID:       d.customerID,
			OrderID:          placed.OrderID,
			InvoiceReference: placed.InvoiceReference,
			GrandTotal:       payload.GrandTotal,
			ItemCount:        itemCount,
			CreatedBy:        identity.UserID,
			CreatedAt:        s.now(),
		})
		entityID := placed.InvoiceReference
		if err != nil {
			s.logger.Error("failed to record invoice", zap.String("invoice_reference", placed.InvoiceReference), zap.Error(err))
		} else {
			entityID = invoice.ID
		}
		s.logAudit(ctx, "order_checkout", "invoice", entityID,
			fmt.Sprintf("customer=%s,grand_total=%.2f,items=%d", d.customerID, payload.GrandTotal, itemCount))
		s.dropDesk(d)

		return []domain.Notice{{
			Level:     domain.NoticeInfo,
			Code:      domain.NoticeOrderPlaced,
			Message:   "order placed",
			SubjectID: placed.InvoiceReference,
		}}, nil
	})
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	return domain.CheckoutResponse{Desk: view, Result: result}, nil
}

func (d *desk) view(notices []domain.Notice) domain.DeskView {
	lines := d.cart.Lines()
	giftLines := d.cart.GiftLines()
	if notices == nil {
		notices = make([]domain.Notice, 0)
	}
	return domain.DeskView{
		CustomerID: d.customerID,
		Lines:      lines,
		GiftLines:  giftLines,
		Pricing:    d.pricing,
		Summary:    pricing.Compute(lines, giftLines, d.pricing).Summary(),
		Notices:    notices,
		OpenedBy:   d.openedBy,
		OpenedAt:   d.openedAt,
	}
}

// NoticeFor maps a failed desk operation to the notice shown with the error.
func NoticeFor(err error) (domain.Notice, bool) {
	switch {
	case errors.Is(err, ErrLoadFailed):
		return domain.Notice{Level: domain.NoticeError, Code: domain.NoticeCatalogLoadFailed, Message: "could not load the catalog; try again"}, true
	case errors.Is(err, ErrSubmission):
		return domain.Notice{Level: domain.NoticeError, Code: domain.NoticeSubmissionFailed, Message: "the order could not be submitted; the cart was kept, try again"}, true
	case errors.Is(err, order.ErrEmptyCart):
		return domain.Notice{Level: domain.NoticeError, Code: domain.NoticeEmptyCart, Message: "add at least one product or gift box before checkout"}, true
	default:
		return domain.Notice{}, false
	}
}
