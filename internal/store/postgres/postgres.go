package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"sparkpro/desk/internal/domain"
	"sparkpro/desk/internal/store"
	"sparkpro/desk/internal/xid"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate() error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	driver, err := migratepgx.WithInstance(s.db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RecordInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if err := store.ValidateInvoice(invoice); err != nil {
		return nil, err
	}
	if invoice.ID == "" {
		invoice.ID = xid.New("inv")
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices (
			id, tenant_id, customer_id, order_id, invoice_reference, grand_total, item_count, created_by, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, invoice.ID, invoice.TenantID, invoice.CustomerID, invoice.OrderID, invoice.InvoiceReference,
		invoice.GrandTotal, invoice.ItemCount, invoice.CreatedBy, invoice.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return s.findByReference(ctx, invoice.TenantID, invoice.InvoiceReference)
		}
		return nil, err
	}

	created := invoice
	return &created, nil
}

func (s *Store) GetInvoice(ctx context.Context, tenantID string, id string) (*domain.Invoice, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, customer_id, order_id, invoice_reference, grand_total, item_count, created_by, created_at
		FROM invoices
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return scanInvoice(row)
}

func (s *Store) findByReference(ctx context.Context, tenantID string, reference string) (*domain.Invoice, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, customer_id, order_id, invoice_reference, grand_total, item_count, created_by, created_at
		FROM invoices
		WHERE tenant_id = $1 AND invoice_reference = $2
	`, tenantID, reference)
	return scanInvoice(row)
}

func (s *Store) ListInvoices(ctx context.Context, tenantID string, customerID string, limit int) ([]domain.Invoice, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, customer_id, order_id, invoice_reference, grand_total, item_count, created_by, created_at
		FROM invoices
		WHERE tenant_id = $1
			AND ($2 = '' OR customer_id = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, tenantID, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0, limit)
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, tenant_id, actor_user_id, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.TenantID, entry.ActorUserID, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, tenantID string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, actor_user_id, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.TenantID, &entry.ActorUserID, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := row.Scan(&invoice.ID, &invoice.TenantID, &invoice.CustomerID, &invoice.OrderID, &invoice.InvoiceReference,
		&invoice.GrandTotal, &invoice.ItemCount, &invoice.CreatedBy, &invoice.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	invoice.CreatedAt = invoice.CreatedAt.UTC()
	return &invoice, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
