// Package catalog loads the tenant's active products and gift boxes.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"sparkpro/desk/internal/apiclient"
	"sparkpro/desk/internal/cache"
	"sparkpro/desk/internal/domain"
)

// Credential is a bearer that also knows which tenant it acts for.
type Credential interface {
	apiclient.Credential
	Identity() domain.Identity
}

type Source interface {
	ActiveProducts(ctx context.Context, cred apiclient.Credential) ([]domain.Product, error)
	ActiveGiftBoxes(ctx context.Context, cred apiclient.Credential) ([]domain.GiftBox, error)
}

// Catalog is an immutable view of the active catalog.
type Catalog struct {
	Products  []domain.Product `json:"products"`
	GiftBoxes []domain.GiftBox `json:"giftBoxes"`

	productByID map[string]domain.Product
	giftBoxByID map[string]domain.GiftBox
}

func New(products []domain.Product, giftBoxes []domain.GiftBox) *Catalog {
	c := &Catalog{
		Products:    make([]domain.Product, 0, len(products)),
		GiftBoxes:   make([]domain.GiftBox, 0, len(giftBoxes)),
		productByID: make(map[string]domain.Product, len(products)),
		giftBoxByID: make(map[string]domain.GiftBox, len(giftBoxes)),
	}
	for _, p := range activeProducts(products) {
		c.Products = append(c.Products, p)
		c.productByID[p.ID] = p
	}
	for _, g := range activeGiftBoxes(giftBoxes) {
		c.GiftBoxes = append(c.GiftBoxes, g)
		c.giftBoxByID[g.ID] = g
	}
	return c
}

func Empty() *Catalog {
	return New(nil, nil)
}

func (c *Catalog) Product(id string) (domain.Product, bool) {
	if c == nil {
		return domain.Product{}, false
	}
	p, ok := c.productByID[id]
	return p, ok
}

func (c *Catalog) GiftBox(id string) (domain.GiftBox, bool) {
	if c == nil {
		return domain.GiftBox{}, false
	}
	g, ok := c.giftBoxByID[id]
	return g, ok
}

type Fetcher struct {
	source Source
	cache  cache.CatalogCache
	logger *zap.Logger
	group  singleflight.Group
}

func NewFetcher(source Source, catalogCache cache.CatalogCache, logger *zap.Logger) *Fetcher {
	if catalogCache == nil {
		catalogCache = cache.NoopCatalogCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{source: source, cache: catalogCache, logger: logger}
}

func (f *Fetcher) LoadActiveProducts(ctx context.Context, cred Credential) ([]domain.Product, error) {
	return f.loadProducts(ctx, cred, false)
}

func (f *Fetcher) LoadActiveGiftBoxes(ctx context.Context, cred Credential) ([]domain.GiftBox, error) {
	return f.loadGiftBoxes(ctx, cred, false)
}

// Load returns only after both lists are in; either failure fails the whole load.
func (f *Fetcher) Load(ctx context.Context, cred Credential) (*Catalog, error) {
	return f.load(ctx, cred, false)
}

// Refresh bypasses the cache and overwrites it with what the API returns.
func (f *Fetcher) Refresh(ctx context.Context, cred Credential) (*Catalog, error) {
	return f.load(ctx, cred, true)
}

func (f *Fetcher) load(ctx context.Context, cred Credential, bypass bool) (*Catalog, error) {
	var products []domain.Product
	var giftBoxes []domain.GiftBox

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = f.loadProducts(gctx, cred, bypass)
		return err
	})
	g.Go(func() error {
		var err error
		giftBoxes, err = f.loadGiftBoxes(gctx, cred, bypass)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return New(products, giftBoxes), nil
}

func (f *Fetcher) loadProducts(ctx context.Context, cred Credential, bypass bool) ([]domain.Product, error) {
	tenant := cred.Identity().TenantID
	if !bypass {
		cached, err := f.cache.GetProducts(ctx, tenant)
		if err == nil {
			return activeProducts(cached), nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			f.logger.Warn("catalog cache read failed", zap.String("tenant", tenant), zap.Error(err))
		}
	}

	key := "products:" + tenant
	if bypass {
		key = "refresh:" + key
	}
	v, err, _ := f.group.Do(key, func() (interface{}, error) {
		products, err := f.source.ActiveProducts(ctx, cred)
		if err != nil {
			return nil, fmt.Errorf("load active products: %w", err)
		}
		products = activeProducts(products)
		if err := f.cache.SetProducts(ctx, tenant, products); err != nil {
			f.logger.Warn("catalog cache write failed", zap.String("tenant", tenant), zap.Error(err))
		}
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

func (f *Fetcher) loadGiftBoxes(ctx context.Context, cred Credential, bypass bool) ([]domain.GiftBox, error) {
	tenant := cred.Identity().TenantID
	if !bypass {
		cached, err := f.cache.GetGiftBoxes(ctx, tenant)
		if err == nil {
			return activeGiftBoxes(cached), nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			f.logger.Warn("catalog cache read failed", zap.String("tenant", tenant), zap.Error(err))
		}
	}

	key := "giftboxes:" + tenant
	if bypass {
		key = "refresh:" + key
	}
	v, err, _ := f.group.Do(key, func() (interface{}, error) {
		boxes, err := f.source.ActiveGiftBoxes(ctx, cred)
		if err != nil {
			return nil, fmt.Errorf("load active gift boxes: %w", err)
		}
		boxes = activeGiftBoxes(boxes)
		if err := f.cache.SetGiftBoxes(ctx, tenant, boxes); err != nil {
			f.logger.Warn("catalog cache write failed", zap.String("tenant", tenant), zap.Error(err))
		}
		return boxes, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.GiftBox), nil
}

// Invalidate drops the cached catalog of a tenant.
func (f *Fetcher) Invalidate(ctx context.Context, tenantID string) error {
	return f.cache.Invalidate(ctx, tenantID)
}

func activeProducts(in []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(in))
	for _, p := range in {
		if !p.Active {
			continue
		}
		if p.StockAvailable < 0 {
			p.StockAvailable = 0
		}
		out = append(out, p)
	}
	return out
}

func activeGiftBoxes(in []domain.GiftBox) []domain.GiftBox {
	out := make([]domain.GiftBox, 0, len(in))
	for _, g := range in {
		if !g.Active {
			continue
		}
		if g.StockAvailable < 0 {
			g.StockAvailable = 0
		}
		out = append(out, g)
	}
	return out
}
