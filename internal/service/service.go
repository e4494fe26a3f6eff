package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"sparkpro/desk/internal/accounts"
	"sparkpro/desk/internal/apiclient"
	"sparkpro/desk/internal/catalog"
	"sparkpro/desk/internal/domain"
	"sparkpro/desk/internal/order"
	"sparkpro/desk/internal/session"
	"sparkpro/desk/internal/store"
	"sparkpro/desk/internal/xid"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("role not permitted")
	ErrDeskNotOpen     = errors.New("desk is not open")
	ErrInvalidInput    = errors.New("invalid input")
	ErrLoadFailed      = errors.New("could not load catalog")
	ErrSubmission      = errors.New("order submission failed")
)

// Remote is the slice of the SparkPro API the desk depends on.
type Remote interface {
	catalog.Source
	order.Remote
	PendingCart(ctx context.Context, cred apiclient.Credential, customerID string) (*domain.PendingCart, error)
	GiftBoxes(ctx context.Context, cred apiclient.Credential) ([]domain.GiftBox, error)
	CreateGiftBox(ctx context.Context, cred apiclient.Credential, req domain.GiftBoxRequest) (domain.GiftBox, error)
	UpdateGiftBox(ctx context.Context, cred apiclient.Credential, id string, req domain.GiftBoxRequest) (domain.GiftBox, error)
	SubAdmins(ctx context.Context, cred apiclient.Credential) ([]accounts.SubAdmin, error)
	CreateSubAdmin(ctx context.Context, cred apiclient.Credential, form accounts.SubAdminForm) (accounts.SubAdmin, error)
	UpdateSubAdmin(ctx context.Context, cred apiclient.Credential, id string, form accounts.SubAdminForm) (accounts.SubAdmin, error)
}

type Service struct {
	remote    Remote
	fetcher   *catalog.Fetcher
	submitter *order.Submitter
	repo      store.Repository
	logger    *zap.Logger
	now       func() time.Time

	mu          sync.Mutex
	desks       map[string]*desk
	deskIdleTTL time.Duration
}

const defaultDeskIdleTTL = 2 * time.Hour

func New(remote Remote, fetcher *catalog.Fetcher, repo store.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		remote:      remote,
		fetcher:     fetcher,
		submitter:   order.NewSubmitter(remote),
		repo:        repo,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		desks:       make(map[string]*desk),
		deskIdleTTL: defaultDeskIdleTTL,
	}
}

func sessionFrom(ctx context.Context, roles ...string) (*session.Session, error) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if len(roles) > 0 && !sess.HasRole(roles...) {
		return nil, ErrForbidden
	}
	return sess, nil
}

func (s *Service) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	cat, err := s.fetcher.Load(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return cat, nil
}

func (s *Service) RefreshCatalog(ctx context.Context) (*catalog.Catalog, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	cat, err := s.fetcher.Refresh(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	// Open desks take the new stock limits for later edits; existing lines
	// are not reconciled.
	for _, d := range s.desksOf(sess.Identity().TenantID) {
		d.mu.Lock()
		if !d.closed {
			d.cart.SetCatalog(cat)
		}
		d.mu.Unlock()
	}
	return cat, nil
}

func (s *Service) ListInvoices(ctx context.Context, customerID string, limit int) ([]domain.Invoice, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.ListInvoices(ctx, sess.Identity().TenantID, strings.TrimSpace(customerID), limit)
}

func (s *Service) GetInvoice(ctx context.Context, id string) (domain.Invoice, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return domain.Invoice{}, err
	}
	invoice, err := s.repo.GetInvoice(ctx, sess.Identity().TenantID, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	return *invoice, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	sess, err := sessionFrom(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, sess.Identity().TenantID, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	identity := domain.Identity{UserID: "system", Role: "system"}
	if sess, ok := session.FromContext(ctx); ok {
		identity = sess.Identity()
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:          xid.New("audit"),
		TenantID:    identity.TenantID,
		ActorUserID: identity.UserID,
		ActorRole:   identity.Role,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Detail:      detail,
		CreatedAt:   s.now(),
	}); err != nil {
		s.logger.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("entity", entityType+"/"+entityID),
			zap.Error(err),
		)
	}
}
