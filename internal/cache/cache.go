package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"sparkpro/desk/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// CatalogCache stores the active catalog of a tenant. Implementations return
// ErrCacheMiss when nothing is stored.
type CatalogCache interface {
	GetProducts(ctx context.Context, tenantID string) ([]domain.Product, error)
	SetProducts(ctx context.Context, tenantID string, products []domain.Product) error
	GetGiftBoxes(ctx context.Context, tenantID string) ([]domain.GiftBox, error)
	SetGiftBoxes(ctx context.Context, tenantID string, boxes []domain.GiftBox) error
	Invalidate(ctx context.Context, tenantID string) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) GetProducts(_ context.Context, _ string) ([]domain.Product, error) {
	return nil, ErrCacheMiss
}

func (NoopCatalogCache) SetProducts(_ context.Context, _ string, _ []domain.Product) error {
	return nil
}

func (NoopCatalogCache) GetGiftBoxes(_ context.Context, _ string) ([]domain.GiftBox, error) {
	return nil, ErrCacheMiss
}

func (NoopCatalogCache) SetGiftBoxes(_ context.Context, _ string, _ []domain.GiftBox) error {
	return nil
}

func (NoopCatalogCache) Invalidate(_ context.Context, _ string) error {
	return nil
}

// RevocationList remembers bearer tokens that were logged out before they
// expired.
type RevocationList interface {
	Revoke(ctx context.Context, token string, until time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type MemoryRevocationList struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{now: time.Now, entries: make(map[string]time.Time)}
}

func (l *MemoryRevocationList) Revoke(_ context.Context, token string, until time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[tokenDigest(token)] = until
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, token string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := tokenDigest(token)
	until, ok := l.entries[key]
	if !ok {
		return false, nil
	}
	if !l.now().Before(until) {
		delete(l.entries, key)
		return false, nil
	}
	return true, nil
}

// tokenDigest keeps raw credentials out of every revocation backend.
func tokenDigest(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
