package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"sparkpro/desk/internal/domain"
	"sparkpro/desk/internal/store"
	"sparkpro/desk/internal/xid"
)

type Store struct {
	mu        sync.RWMutex
	invoices  []domain.Invoice
	byRef     map[string]int
	auditLogs []domain.AuditLog
}

func New() *Store {
	return &Store{byRef: make(map[string]int)}
}

// RecordInvoice is idempotent on (tenant, invoice reference).
func (s *Store) RecordInvoice(_ context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if err := store.ValidateInvoice(invoice); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := invoice.TenantID + "\x00" + invoice.InvoiceReference
	if i, ok := s.byRef[key]; ok {
		existing := s.invoices[i]
		return &existing, nil
	}
	if invoice.ID == "" {
		invoice.ID = xid.New("inv")
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}
	s.byRef[key] = len(s.invoices)
	s.invoices = append(s.invoices, invoice)

	created := invoice
	return &created, nil
}

func (s *Store) GetInvoice(_ context.Context, tenantID string, id string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, invoice := range s.invoices {
		if invoice.ID == id && invoice.TenantID == tenantID {
			found := invoice
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListInvoices(_ context.Context, tenantID string, customerID string, limit int) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Invoice, 0, 16)
	for _, invoice := range s.invoices {
		if invoice.TenantID != tenantID {
			continue
		}
		if customerID != "" && invoice.CustomerID != customerID {
			continue
		}
		result = append(result, invoice)
	}

	slices.SortFunc(result, func(a, b domain.Invoice) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, tenantID string, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if tenantID != "" && entry.TenantID != tenantID {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
