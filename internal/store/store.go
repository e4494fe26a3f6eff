package store

import (
	"context"
	"errors"

	"sparkpro/desk/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidEntry = errors.New("invalid ledger entry")
)

// Repository is the desk's local ledger: invoices of placed orders and the
// audit trail. The SparkPro API stays the system of record for everything else.
type Repository interface {
	RecordInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, tenantID string, id string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, tenantID string, customerID string, limit int) ([]domain.Invoice, error)
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, tenantID string, limit int) ([]domain.AuditLog, error)
}

// ValidateInvoice is shared by every Repository implementation.
func ValidateInvoice(invoice domain.Invoice) error {
	if invoice.TenantID == "" || invoice.CustomerID == "" || invoice.InvoiceReference == "" {
		return ErrInvalidEntry
	}
	if invoice.GrandTotal < 0 || invoice.ItemCount < 0 {
		return ErrInvalidEntry
	}
	return nil
}
