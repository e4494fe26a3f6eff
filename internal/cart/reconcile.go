package cart

import (
	"fmt"

	"sparkpro/desk/internal/catalog"
	"sparkpro/desk/internal/domain"
)

// Reconciliation is a stock-consistent cart derived from a saved draft.
type Reconciliation struct {
	Lines     []domain.CartLine
	GiftLines []domain.GiftSelectionLine
	Pricing   domain.PricingSettings
	Notices   []domain.Notice
}

// ReconcileAgainstStock checks every draft line against the live catalog.
// Missing items are dropped, sold-out items are dropped, and quantities
// above stock are clamped; each case yields a notice. A nil draft means an
// empty cart. The function is pure and idempotent.
func ReconcileAgainstStock(pending *domain.PendingCart, cat *catalog.Catalog) Reconciliation {
	out := Reconciliation{
		Lines:     make([]domain.CartLine, 0),
		GiftLines: make([]domain.GiftSelectionLine, 0),
		Notices:   make([]domain.Notice, 0),
	}
	if pending == nil {
		return out
	}
	out.Pricing = domain.PricingSettings{DiscountPct: pending.DiscountPct, GST: pending.GST}

	for _, ref := range mergeRefs(pending.ProductLines) {
		product, ok := cat.Product(ref.ID)
		if !ok {
			out.Notices = append(out.Notices, unavailableNotice("product", ref.ID))
			continue
		}
		qty, notice := clampToStock(ref.Quantity, product.StockAvailable, product.Name, product.ID)
		if notice != nil {
			out.Notices = append(out.Notices, *notice)
		}
		if qty > 0 {
			out.Lines = append(out.Lines, domain.CartLine{Product: product, Quantity: qty})
		}
	}

	for _, ref := range mergeRefs(pending.GiftLines) {
		box, ok := cat.GiftBox(ref.ID)
		if !ok {
			out.Notices = append(out.Notices, unavailableNotice("gift box", ref.ID))
			continue
		}
		qty, notice := clampToStock(ref.Quantity, box.StockAvailable, box.Name, box.ID)
		if notice != nil {
			out.Notices = append(out.Notices, *notice)
		}
		if qty > 0 {
			out.GiftLines = append(out.GiftLines, domain.GiftSelectionLine{GiftBox: box, Quantity: qty})
		}
	}
	return out
}

// mergeRefs folds repeated ids into one ref and drops non-positive quantities.
func mergeRefs(refs []domain.LineRef) []domain.LineRef {
	merged := make([]domain.LineRef, 0, len(refs))
	index := make(map[string]int, len(refs))
	for _, ref := range refs {
		if ref.ID == "" || ref.Quantity <= 0 {
			continue
		}
		if i, ok := index[ref.ID]; ok {
			merged[i].Quantity += ref.Quantity
			continue
		}
		index[ref.ID] = len(merged)
		merged = append(merged, ref)
	}
	return merged
}

func clampToStock(requested int, stock int, name string, id string) (int, *domain.Notice) {
	switch {
	case stock <= 0:
		return 0, &domain.Notice{
			Level:     domain.NoticeWarning,
			Code:      domain.NoticeOutOfStock,
			Message:   fmt.Sprintf("%s is out of stock and was removed", name),
			SubjectID: id,
		}
	case requested > stock:
		return stock, &domain.Notice{
			Level:     domain.NoticeWarning,
			Code:      domain.NoticeClamped,
			Message:   fmt.Sprintf("%s quantity reduced from %d to available stock %d", name, requested, stock),
			SubjectID: id,
		}
	default:
		return requested, nil
	}
}

func unavailableNotice(kind string, id string) domain.Notice {
	return domain.Notice{
		Level:     domain.NoticeWarning,
		Code:      domain.NoticeUnavailable,
		Message:   fmt.Sprintf("%s %s is no longer available and was removed", kind, id),
		SubjectID: id,
	}
}
