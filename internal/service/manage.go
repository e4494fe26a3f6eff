package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sparkpro/desk/internal/accounts"
	"sparkpro/desk/internal/apiclient"
	"sparkpro/desk/internal/domain"
	"sparkpro/desk/internal/store"
)

func (s *Service) ListGiftBoxes(ctx context.Context) ([]domain.GiftBox, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.remote.GiftBoxes(ctx, sess)
}

func (s *Service) CreateGiftBox(ctx context.Context, req domain.GiftBoxRequest) (domain.GiftBox, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return domain.GiftBox{}, err
	}
	req, err = normalizeGiftBoxRequest(req)
	if err != nil {
		return domain.GiftBox{}, err
	}

	created, err := s.remote.CreateGiftBox(ctx, sess, req)
	if err != nil {
		return domain.GiftBox{}, err
	}
	s.invalidateCatalog(ctx, sess.Identity().TenantID)
	s.logAudit(ctx, "giftbox_create", "giftbox", created.ID,
		fmt.Sprintf("name=%s,grand_total=%.2f,stock=%d", created.Name, created.GrandTotal, created.StockAvailable))
	return created, nil
}

func (s *Service) UpdateGiftBox(ctx context.Context, id string, req domain.GiftBoxRequest) (domain.GiftBox, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return domain.GiftBox{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.GiftBox{}, fmt.Errorf("%w: gift box id is required", ErrInvalidInput)
	}
	req, err = normalizeGiftBoxRequest(req)
	if err != nil {
		return domain.GiftBox{}, err
	}

	updated, err := s.remote.UpdateGiftBox(ctx, sess, id, req)
	if err != nil {
		return domain.GiftBox{}, err
	}
	s.invalidateCatalog(ctx, sess.Identity().TenantID)
	s.logAudit(ctx, "giftbox_update", "giftbox", id,
		fmt.Sprintf("name=%s,grand_total=%.2f,stock=%d,active=%t", updated.Name, updated.GrandTotal, updated.StockAvailable, updated.Active))
	return updated, nil
}

func (s *Service) invalidateCatalog(ctx context.Context, tenantID string) {
	if err := s.fetcher.Invalidate(ctx, tenantID); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.String("tenant", tenantID), zap.Error(err))
	}
}

func normalizeGiftBoxRequest(req domain.GiftBoxRequest) (domain.GiftBoxRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return req, fmt.Errorf("%w: gift box name is required", ErrInvalidInput)
	}
	if len(req.Products) == 0 {
		return req, fmt.Errorf("%w: gift box needs at least one product", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(req.Products))
	for i, item := range req.Products {
		item.ProductID = strings.TrimSpace(item.ProductID)
		if item.ProductID == "" || item.Quantity < 1 {
			return req, fmt.Errorf("%w: gift box products need an id and a positive quantity", ErrInvalidInput)
		}
		if _, dup := seen[item.ProductID]; dup {
			return req, fmt.Errorf("%w: product %s listed twice", ErrInvalidInput, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
		req.Products[i] = item
	}
	if req.GrandTotal < 0 || req.StockAvailable < 0 {
		return req, fmt.Errorf("%w: grand total and stock must not be negative", ErrInvalidInput)
	}
	return req, nil
}

func (s *Service) ListSubAdmins(ctx context.Context) ([]accounts.SubAdmin, error) {
	sess, err := sessionFrom(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return nil, err
	}
	return s.remote.SubAdmins(ctx, sess)
}

func (s *Service) CreateSubAdmin(ctx context.Context, form accounts.SubAdminForm) (accounts.SubAdmin, error) {
	sess, err := sessionFrom(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return accounts.SubAdmin{}, err
	}
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	if err := form.Validate(true); err != nil {
		return accounts.SubAdmin{}, err
	}

	created, err := s.remote.CreateSubAdmin(ctx, sess, form)
	if err != nil {
		return accounts.SubAdmin{}, err
	}
	s.logAudit(ctx, "subadmin_create", "subadmin", created.ID, "email="+created.Email)
	return created, nil
}

// UpdateSubAdmin applies section updates to the stored account and sends the
// resulting form upstream.
func (s *Service) UpdateSubAdmin(ctx context.Context, id string, changes []accounts.FieldChange) (accounts.SubAdmin, error) {
	sess, err := sessionFrom(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return accounts.SubAdmin{}, err
	}
	if len(changes) == 0 {
		return accounts.SubAdmin{}, fmt.Errorf("%w: no changes", accounts.ErrInvalidForm)
	}

	updates := make([]accounts.Update, 0, len(changes))
	for _, change := range changes {
		update, err := accounts.ParseChange(change)
		if err != nil {
			return accounts.SubAdmin{}, err
		}
		updates = append(updates, update)
	}

	existing, err := s.findSubAdmin(ctx, sess, id)
	if err != nil {
		return accounts.SubAdmin{}, err
	}
	form, err := accounts.Apply(existing.Form(), updates...)
	if err != nil {
		return accounts.SubAdmin{}, err
	}
	if err := form.Validate(false); err != nil {
		return accounts.SubAdmin{}, err
	}

	updated, err := s.remote.UpdateSubAdmin(ctx, sess, existing.ID, form)
	if err != nil {
		return accounts.SubAdmin{}, err
	}

	sections := make([]string, 0, len(changes))
	for _, change := range changes {
		sections = append(sections, string(change.Section)+"."+change.Field)
	}
	s.logAudit(ctx, "subadmin_update", "subadmin", existing.ID, "fields="+strings.Join(sections, ","))
	return updated, nil
}

func (s *Service) findSubAdmin(ctx context.Context, cred apiclient.Credential, id string) (accounts.SubAdmin, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return accounts.SubAdmin{}, fmt.Errorf("%w: sub-admin id is required", ErrInvalidInput)
	}
	admins, err := s.remote.SubAdmins(ctx, cred)
	if err != nil {
		return accounts.SubAdmin{}, err
	}
	for _, admin := range admins {
		if admin.ID == id {
			return admin, nil
		}
	}
	return accounts.SubAdmin{}, fmt.Errorf("sub-admin %s: %w", id, store.ErrNotFound)
}
