package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sparkpro/desk/internal/accounts"
	"sparkpro/desk/internal/apiclient"
	"sparkpro/desk/internal/catalog"
	"sparkpro/desk/internal/domain"
	"sparkpro/desk/internal/order"
	"sparkpro/desk/internal/session"
	"sparkpro/desk/internal/store/memory"
)

type fakeRemote struct {
	mu         sync.Mutex
	products   []domain.Product
	giftBoxes  []domain.GiftBox
	pending    map[string]*domain.PendingCart
	saved      []domain.OrderPayload
	placed     []domain.OrderPayload
	placeErr   error
	productErr error
	subAdmins  []accounts.SubAdmin
	updatedSub accounts.SubAdminForm
	boxCreates int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		products: []domain.Product{
			{ID: "P1", Name: "Sparkler", Price: 100, StockAvailable: 5, Active: true},
			{ID: "P2", Name: "Rocket", Price: 40, StockAvailable: 10, Active: true},
		},
		giftBoxes: []domain.GiftBox{
			{ID: "G1", Name: "Family Box", GrandTotal: 500, StockAvailable: 5, Active: true},
		},
		pending: map[string]*domain.PendingCart{},
		subAdmins: []accounts.SubAdmin{{
			ID:      "sa-1",
			Name:    "Ravi",
			Email:   "ravi@sparkpro.test",
			Company: accounts.CompanyDetails{Name: "Ravi Crackers"},
			Active:  true,
		}},
	}
}

func (f *fakeRemote) ActiveProducts(context.Context, apiclient.Credential) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productErr != nil {
		return nil, f.productErr
	}
	return append([]domain.Product(nil), f.products...), nil
}

func (f *fakeRemote) ActiveGiftBoxes(context.Context, apiclient.Credential) ([]domain.GiftBox, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.GiftBox(nil), f.giftBoxes...), nil
}

func (f *fakeRemote) PendingCart(_ context.Context, _ apiclient.Credential, customerID string) (*domain.PendingCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending[customerID], nil
}

func (f *fakeRemote) SaveCart(_ context.Context, _ apiclient.Credential, payload domain.OrderPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, payload)
	return nil
}

func (f *fakeRemote) PlaceOrder(_ context.Context, _ apiclient.Credential, payload domain.OrderPayload) (domain.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, payload)
	if f.placeErr != nil {
		return domain.OrderResult{}, f.placeErr
	}
	return domain.OrderResult{OrderID: "ord-1", InvoiceReference: "INV-0001"}, nil
}

func (f *fakeRemote) GiftBoxes(ctx context.Context, cred apiclient.Credential) ([]domain.GiftBox, error) {
	return f.ActiveGiftBoxes(ctx, cred)
}

func (f *fakeRemote) CreateGiftBox(_ context.Context, _ apiclient.Credential, req domain.GiftBoxRequest) (domain.GiftBox, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boxCreates++
	box := domain.GiftBox{ID: "G-new", Name: req.Name, Products: req.Products, GrandTotal: req.GrandTotal, StockAvailable: req.StockAvailable, Active: true}
	f.giftBoxes = append(f.giftBoxes, box)
	return box, nil
}

func (f *fakeRemote) UpdateGiftBox(_ context.Context, _ apiclient.Credential, id string, req domain.GiftBoxRequest) (domain.GiftBox, error) {
	return domain.GiftBox{ID: id, Name: req.Name, Products: req.Products, GrandTotal: req.GrandTotal, StockAvailable: req.StockAvailable, Active: true}, nil
}

func (f *fakeRemote) SubAdmins(context.Context, apiclient.Credential) ([]accounts.SubAdmin, error) {
	return f.subAdmins, nil
}

func (f *fakeRemote) CreateSubAdmin(_ context.Context, _ apiclient.Credential, form accounts.SubAdminForm) (accounts.SubAdmin, error) {
	return accounts.SubAdmin{ID: "sa-2", Name: form.Name, Email: form.Email, Company: form.Company, Bank: form.Bank, Active: true}, nil
}

func (f *fakeRemote) UpdateSubAdmin(_ context.Context, _ apiclient.Credential, id string, form accounts.SubAdminForm) (accounts.SubAdmin, error) {
	f.updatedSub = form
	return accounts.SubAdmin{ID: id, Name: form.Name, Email: form.Email, Company: form.Company, Bank: form.Bank, Active: true}, nil
}

func newTestService(remote *fakeRemote) (*Service, *memory.Store) {
	repo := memory.New()
	return New(remote, catalog.NewFetcher(remote, nil, nil), repo, nil), repo
}

func asRole(role string) context.Context {
	return session.WithSession(context.Background(), session.New("tok", domain.Identity{
		UserID:   "u-" + role,
		Role:     role,
		TenantID: "tenant-a",
	}))
}

func TestOpenDeskReconcilesPendingCart(t *testing.T) {
	remote := newFakeRemote()
	remote.pending["c1"] = &domain.PendingCart{
		CustomerID:   "c1",
		ProductLines: []domain.LineRef{{ID: "P1", Quantity: 8}, {ID: "GONE", Quantity: 1}},
		DiscountPct:  10,
	}
	svc, repo := newTestService(remote)
	ctx := asRole(domain.RoleSubAdmin)

	view, err := svc.OpenDesk(ctx, "c1")
	if err != nil {
		t.Fatalf("open desk failed: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].Quantity != 5 {
		t.Fatalf("expected P1 clamped to 5, got %+v", view.Lines)
	}
	if len(view.Notices) != 2 {
		t.Fatalf("expected clamp and unavailable notices, got %+v", view.Notices)
	}
	if view.Summary.Subtotal != 500 || view.Summary.GrandTotal != 450 {
		t.Fatalf("unexpected summary %+v", view.Summary)
	}

	logs, _ := repo.ListAuditLogs(context.Background(), "tenant-a", 10)
	if len(logs) != 1 || logs[0].Action != "desk_open" {
		t.Fatalf("expected desk_open audit, got %+v", logs)
	}
}

func TestOpenDeskFailsWhenCatalogFails(t *testing.T) {
	remote := newFakeRemote()
	remote.productErr = errors.New("upstream down")
	svc, _ := newTestService(remote)
	ctx := asRole(domain.RoleSubAdmin)

	_, err := svc.OpenDesk(ctx, "c1")
	if !errors.Is(err, ErrLoadFailed) {
		t.Fatalf("expected ErrLoadFailed, got %v", err)
	}
	if _, err := svc.Desk(ctx, "c1"); !errors.Is(err, ErrDeskNotOpen) {
		t.Fatalf("desk must not open after a failed load, got %v", err)
	}
	if notice, ok := NoticeFor(err); !ok || notice.Code != domain.NoticeCatalogLoadFailed {
		t.Fatalf("expected catalog_load_failed notice, got %+v", notice)
	}
}

func TestDeskRequiresSession(t *testing.T) {
	svc, _ := newTestService(newFakeRemote())
	if _, err := svc.OpenDesk(context.Background(), "c1"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestDesksAreScopedByTenant(t *testing.T) {
	svc, _ := newTestService(newFakeRemote())
	if _, err := svc.OpenDesk(asRole(domain.RoleSubAdmin), "c1"); err != nil {
		t.Fatalf("open desk failed: %v", err)
	}

	other := session.WithSession(context.Background(), session.New("tok", domain.Identity{UserID: "u2", Role: domain.RoleSubAdmin, TenantID: "tenant-b"}))
	if _, err := svc.Desk(other, "c1"); !errors.Is(err, ErrDeskNotOpen) {
		t.Fatalf("expected desk of another tenant to be invisible, got %v", err)
	}
}

func TestMutationsKeepTotalsConsistent(t *testing.T) {
	svc, _ := newTestService(newFakeRemote())
	ctx := asRole(domain.RoleSubAdmin)
	if _, err := svc.OpenDesk(ctx, "c1"); err != nil {
		t.Fatalf("open desk failed: %v", err)
	}

	view, err := svc.SetProductQuantity(ctx, "c1", "P1", 3)
	if err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	view, err = svc.UpdatePricing(ctx, "c1", domain.PricingSettings{DiscountPct: 10, GST: domain.GSTSettings{Enabled: true, Pct: 18}})
	if err != nil {
		t.Fatalf("update pricing failed: %v", err)
	}
	if view.Summary.GSTAmount != 48.6 || view.Summary.GrandTotal != 318.6 {
		t.Fatalf("unexpected summary %+v", view.Summary)
	}

	view, err = svc.SetProductQuantity(ctx, "c1", "P1", 0)
	if err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	if len(view.Lines) != 0 || view.Summary.GrandTotal != 0 {
		t.Fatalf("expected empty cart and zero total, got %+v", view)
	}

	if _, err := svc.SetProductQuantity(ctx, "c1", "NOPE", 1); err == nil {
		t.Fatalf("expected unknown product to fail")
	}
}

func TestUpdatePricingRejectsNegativeButWarnsAboveHundred(t *testing.T) {
	svc, _ := newTestService(newFakeRemote())
	ctx := asRole(domain.RoleSubAdmin)
	if _, err := svc.OpenDesk(ctx, "c1"); err != nil {
		t.Fatalf("open desk failed: %v", err)
	}

	if _, err := svc.UpdatePricing(ctx, "c1", domain.PricingSettings{DiscountPct: -5}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	view, err := svc.UpdatePricing(ctx, "c1", domain.PricingSettings{DiscountPct: 150})
	if err != nil {
		t.Fatalf("update pricing failed: %v", err)
	}
	if len(view.Notices) != 1 || view.Notices[0].Code != domain.NoticePercentOutOfRange {
		t.Fatalf("expected out-of-range notice, got %+v", view.Notices)
	}
}

func TestSelectorRejectsOverStock(t *testing.T) {
	svc, _ := newTestService(newFakeRemote())
	ctx := asRole(domain.RoleSubAdmin)
	if _, err := svc.OpenDesk(ctx, "c1"); err != nil {
		t.Fatalf("open desk failed: %v", err)
	}
	if _, err := svc.SelectGift(ctx, "c1", "G1", 2); err != nil {
		t.Fatalf("select gift failed: %v", err)
	}

	view, err := svc.SelectGift(ctx, "c1", "G1", 10)
	if err != nil {
		t.Fatalf("select gift failed: %v", err)
	}
	if view.GiftLines[0].Quantity != 2 {
		t.Fatalf("expected gift line unchanged at 2, got %d", view.GiftLines[0].Quantity)
	}
	if len(view.Notices) != 1 || view.Notices[0].Code != domain.NoticeOverStockRejected {
		t.Fatalf("expected over-stock rejection notice, got %+v", view.Notices)
	}

	options, err := svc.GiftOptions(ctx, "c1")
	if err != nil || len(options) != 1 || options[0].Selected != 2 {
		t.Fatalf("unexpected options %+v err=%v", options, err)
	}

	view, err = svc.SetGiftLineQuantity(ctx, "c1", "G1", 10)
	if err != nil {
		t.Fatalf("set gift line failed: %v", err)
	}
	if view.GiftLines[0].Quantity != 5 {
		t.Fatalf("expected gift table entry clamped to 5, got %d", view.GiftLines[0].Quantity)
	}
}

func TestCheckoutEmptyCartMakesNoCall(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := newTestService(remote)
	ctx := asRole(domain.RoleSubAdmin)
	if _, err := svc.OpenDesk(ctx, "c1"); err != nil {
		t.Fatalf("open desk failed: %v", err)
	}

	_, err := svc.Checkout(ctx, "c1")
	if !errors.Is(err, order.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if len(remote.placed) != 0 {
		t.Fatalf("expected no network call, got %d", len(remote.placed))
	}
	if notice, ok := NoticeFor(err); !ok || notice.Code != domain.NoticeEmptyCart {
		t.Fatalf("expected empty_cart notice, got %+v", notice)
	}
}

func TestCheckoutRecordsInvoiceAndClearsCart(t *testing.T) {
	remote := newFakeRemote()
	svc, repo := newTestService(remote)
	ctx := asRole(domain.RoleSubAdmin)
	if _, err := svc.OpenDesk(ctx, "c1"); err != nil {
		t.Fatalf("open desk failed: %v", err)
	}
	if _, err := svc.SetProductQuantity(ctx, "c1", "P1", 3); err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	if _, err := svc.IncrementGiftLine(ctx, "c1", "G1"); err != nil {
		t.Fatalf("increment gift failed: %v", err)
	}

	resp, err := svc.Checkout(ctx, "c1")
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if resp.Result.InvoiceReference != "INV-0001" {
		t.Fatalf("unexpected result %+v", resp.Result)
	}
	if len(resp.Desk.Lines) != 0 || len(resp.Desk.GiftLines) != 0 {
		t.Fatalf("expected cleared cart, got %+v", resp.Desk)
	}

	invoices, err := svc.ListInvoices(ctx, "c1", 10)
	if err != nil || len(invoices) != 1 {
		t.Fatalf("expected one invoice, got %+v err=%v", invoices, err)
	}
	if invoices[0].GrandTotal != 800 || invoices[0].ItemCount != 4 {
		t.Fatalf("unexpected invoice %+v", invoices[0])
	}
	got, err := svc.GetInvoice(ctx, invoices[0].ID)
	if err != nil || got.InvoiceReference != "INV-0001" {
		t.Fatalf("get invoice failed: %+v err=%v", got, err)
	}

	logs, _ := repo.ListAuditLogs(context.Background(), "tenant-a", 10)
	found := false
	for _, entry := range logs {
		if entry.Action == "order_checkout" && entry.EntityID == invoices[0].ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected checkout audit, got %+v", logs)
	}
}

func TestCheckoutFailureKeepsCart(t *testing.T) {
	remote := newFakeRemote()
	remote.placeErr = &apiclient.StatusError{Status: 500, Message: "boom"}
	svc, _ := newTestService(remote)
	ctx := asRole(domain.RoleSubAdmin)
	if _, err := svc.OpenDesk(ctx, "c1"); err != nil {
		t.Fatalf("open desk failed: %v", err)
	}
	if _, err := svc.SetProductQuantity(ctx, "c1", "P2", 2); err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}

	_, err := svc.Checkout(ctx, "c1")
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("expected ErrSubmission, got %v", err)
	}
	view, err := svc.Desk(ctx, "c1")
	if err != nil || len(view.Lines) != 1 || view.Lines[0].Quantity != 2 {
		t.Fatalf("expected cart untouched, got %+v err=%v", view, err)
	}
}

func TestSaveDraftThenReopenRestoresCart(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := newTestService(remote)
	ctx := asRole(domain.RoleSubAdmin)
	if _, err := svc.OpenDesk(ctx, "c1"); err != nil {
		t.Fatalf("open desk failed: %v", err)
	}
	if _, err := svc.SetProductQuantity(ctx, "c1", "P2", 4); err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	view, err := svc.SaveDraft(ctx, "c1")
	if err != nil {
		t.Fatalf("save draft failed: %v", err)
	}
	if len(view.Lines) != 1 || view.Notices[0].Code != domain.NoticeDraftSaved {
		t.Fatalf("expected cart kept and draft notice, got %+v", view)
	}

	saved := remote.saved[0]
	remote.pending["c1"] = &domain.PendingCart{CustomerID: "c1", ProductLines: saved.ProductLines, GiftLines: saved.GiftLines}
	if err := svc.CloseDesk(ctx, "c1"); err != nil {
		t.Fatalf("close desk failed: %v", err)
	}
	view, err = svc.OpenDesk(ctx, "c1")
	if err != nil || len(view.Lines) != 1 || view.Lines[0].Quantity != 4 {
		t.Fatalf("expected restored cart, got %+v err=%v", view, err)
	}
}

func TestCreateGiftBoxValidatesAndAudits(t *testing.T) {
	remote := newFakeRemote()
	svc, repo := newTestService(remote)
	ctx := asRole(domain.RoleSubAdmin)

	_, err := svc.CreateGiftBox(ctx, domain.GiftBoxRequest{Name: "Empty"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	box, err := svc.CreateGiftBox(ctx, domain.GiftBoxRequest{
		Name:           " Combo ",
		Products:       []domain.GiftBoxItem{{ProductID: "P1", Quantity: 2}},
		GrandTotal:     180,
		StockAvailable: 4,
	})
	if err != nil {
		t.Fatalf("create gift box failed: %v", err)
	}
	if box.Name != "Combo" || remote.boxCreates != 1 {
		t.Fatalf("unexpected box %+v", box)
	}

	logs, _ := repo.ListAuditLogs(context.Background(), "tenant-a", 10)
	if len(logs) != 1 || logs[0].Action != "giftbox_create" {
		t.Fatalf("expected giftbox_create audit, got %+v", logs)
	}
}

func TestSubAdminManagementRequiresSuperAdmin(t *testing.T) {
	svc, _ := newTestService(newFakeRemote())

	if _, err := svc.ListSubAdmins(asRole(domain.RoleSubAdmin)); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ListAuditLogs(asRole(domain.RoleSubAdmin), 10); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestUpdateSubAdminAppliesSectionUpdates(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := newTestService(remote)
	ctx := asRole(domain.RoleSuperAdmin)

	updated, err := svc.UpdateSubAdmin(ctx, "sa-1", []accounts.FieldChange{
		{Section: accounts.SectionCompany, Field: "gstin", Value: "33ABCDE1234F1Z5"},
		{Section: accounts.SectionProfile, Field: "phone", Value: "9876543210"},
	})
	if err != nil {
		t.Fatalf("update sub-admin failed: %v", err)
	}
	if updated.Company.GSTIN != "33ABCDE1234F1Z5" || remote.updatedSub.Phone != "9876543210" {
		t.Fatalf("unexpected update %+v / %+v", updated, remote.updatedSub)
	}

	_, err = svc.UpdateSubAdmin(ctx, "sa-1", []accounts.FieldChange{{Section: "bankdetails", Field: "ifsc", Value: "X"}})
	if !errors.Is(err, accounts.ErrInvalidForm) {
		t.Fatalf("expected ErrInvalidForm, got %v", err)
	}

	_, err = svc.UpdateSubAdmin(ctx, "missing", []accounts.FieldChange{{Section: accounts.SectionProfile, Field: "name", Value: "X"}})
	if err == nil {
		t.Fatalf("expected missing sub-admin to fail")
	}
}

func TestConcurrentMutationsKeepInvariant(t *testing.T) {
	svc, _ := newTestService(newFakeRemote())
	ctx := asRole(domain.RoleSubAdmin)
	if _, err := svc.OpenDesk(ctx, "c1"); err != nil {
		t.Fatalf("open desk failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			view, err := svc.IncrementProduct(ctx, "c1", "P1")
			if err != nil {
				t.Errorf("increment failed: %v", err)
				return
			}
			for _, line := range view.Lines {
				if line.Quantity > line.Product.StockAvailable {
					t.Errorf("quantity %d exceeds stock %d", line.Quantity, line.Product.StockAvailable)
				}
			}
		}()
	}
	wg.Wait()

	view, _ := svc.Desk(ctx, "c1")
	if len(view.Lines) != 1 || view.Lines[0].Quantity != 5 {
		t.Fatalf("expected P1 capped at 5, got %+v", view.Lines)
	}
}

func TestRefreshCatalogUpdatesOpenDeskLimits(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := newTestService(remote)
	ctx := asRole(domain.RoleSubAdmin)
	if _, err := svc.OpenDesk(ctx, "c1"); err != nil {
		t.Fatalf("open desk failed: %v", err)
	}

	remote.mu.Lock()
	remote.products[0].StockAvailable = 1
	remote.mu.Unlock()
	cat, err := svc.RefreshCatalog(ctx)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if p, _ := cat.Product("P1"); p.StockAvailable != 1 {
		t.Fatalf("expected refreshed stock 1, got %d", p.StockAvailable)
	}

	view, err := svc.SetProductQuantity(ctx, "c1", "P1", 5)
	if err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].Quantity != 1 {
		t.Fatalf("expected quantity clamped to live stock 1, got %+v", view.Lines)
	}
	if len(view.Notices) != 1 || view.Notices[0].Code != domain.NoticeOverStockClamped {
		t.Fatalf("expected over_stock_clamped notice, got %+v", view.Notices)
	}
}

func TestRefreshCatalogLeavesOtherTenantsAlone(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := newTestService(remote)
	other := session.WithSession(context.Background(), session.New("tok-b", domain.Identity{
		UserID:   "u-b",
		Role:     domain.RoleSubAdmin,
		TenantID: "tenant-b",
	}))
	if _, err := svc.OpenDesk(other, "c1"); err != nil {
		t.Fatalf("open desk failed: %v", err)
	}

	remote.mu.Lock()
	remote.products[0].StockAvailable = 1
	remote.mu.Unlock()
	if _, err := svc.RefreshCatalog(asRole(domain.RoleSubAdmin)); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	view, err := svc.SetProductQuantity(other, "c1", "P1", 5)
	if err != nil || len(view.Lines) != 1 || view.Lines[0].Quantity != 5 {
		t.Fatalf("expected tenant-b desk to keep its catalog, got %+v err=%v", view.Lines, err)
	}
}

func TestCheckoutClosesDesk(t *testing.T) {
	svc, _ := newTestService(newFakeRemote())
	ctx := asRole(domain.RoleSubAdmin)
	if _, err := svc.OpenDesk(ctx, "c1"); err != nil {
		t.Fatalf("open desk failed: %v", err)
	}
	if _, err := svc.IncrementProduct(ctx, "c1", "P2"); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if _, err := svc.Checkout(ctx, "c1"); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if _, err := svc.Desk(ctx, "c1"); !errors.Is(err, ErrDeskNotOpen) {
		t.Fatalf("expected ErrDeskNotOpen after checkout, got %v", err)
	}
	svc.mu.Lock()
	open := len(svc.desks)
	svc.mu.Unlock()
	if open != 0 {
		t.Fatalf("expected no open desks, got %d", open)
	}
}

func TestIdleDesksAreEvictedOnOpen(t *testing.T) {
	svc, _ := newTestService(newFakeRemote())
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	svc.deskIdleTTL = time.Hour
	ctx := asRole(domain.RoleSubAdmin)

	if _, err := svc.OpenDesk(ctx, "stale"); err != nil {
		t.Fatalf("open desk failed: %v", err)
	}
	if _, err := svc.OpenDesk(ctx, "busy"); err != nil {
		t.Fatalf("open desk failed: %v", err)
	}

	now = now.Add(50 * time.Minute)
	if _, err := svc.Desk(ctx, "busy"); err != nil {
		t.Fatalf("touch desk failed: %v", err)
	}

	now = now.Add(20 * time.Minute)
	if _, err := svc.OpenDesk(ctx, "fresh"); err != nil {
		t.Fatalf("open desk failed: %v", err)
	}

	if _, err := svc.Desk(ctx, "stale"); !errors.Is(err, ErrDeskNotOpen) {
		t.Fatalf("expected stale desk evicted, got %v", err)
	}
	if _, err := svc.Desk(ctx, "busy"); err != nil {
		t.Fatalf("expected recently used desk kept, got %v", err)
	}
}
