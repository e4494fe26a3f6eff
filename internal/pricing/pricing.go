// Package pricing derives cart totals. Everything here is a pure function of
// its inputs and is recomputed on every query.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"sparkpro/desk/internal/domain"
)

var ErrInvalidPercent = errors.New("percentage must be a non-negative number")

var hundred = decimal.NewFromInt(100)

// Snapshot keeps full precision; Summary rounds for display and payloads.
type Snapshot struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Discounted     decimal.Decimal
	GSTAmount      decimal.Decimal
	GrandTotal     decimal.Decimal
}

func Compute(lines []domain.CartLine, giftLines []domain.GiftSelectionLine, settings domain.PricingSettings) Snapshot {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(decimal.NewFromFloat(line.Product.Price).Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	for _, line := range giftLines {
		subtotal = subtotal.Add(decimal.NewFromFloat(line.GiftBox.GrandTotal).Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	discountPct := decimal.NewFromFloat(settings.DiscountPct)
	discounted := subtotal.Mul(decimal.NewFromInt(1).Sub(discountPct.Div(hundred)))

	gst := decimal.Zero
	if settings.GST.Enabled {
		gst = discounted.Mul(decimal.NewFromFloat(settings.GST.Pct)).Div(hundred)
	}

	return Snapshot{
		Subtotal:       subtotal,
		DiscountAmount: subtotal.Sub(discounted),
		Discounted:     discounted,
		GSTAmount:      gst,
		GrandTotal:     discounted.Add(gst),
	}
}

func ComputeGrandTotal(lines []domain.CartLine, giftLines []domain.GiftSelectionLine, settings domain.PricingSettings) decimal.Decimal {
	return Compute(lines, giftLines, settings).GrandTotal
}

func (s Snapshot) Summary() domain.PricingSummary {
	return domain.PricingSummary{
		Subtotal:       Money(s.Subtotal),
		DiscountAmount: Money(s.DiscountAmount),
		Discounted:     Money(s.Discounted),
		GSTAmount:      Money(s.GSTAmount),
		GrandTotal:     Money(s.GrandTotal),
	}
}

// Money rounds to two decimal places for transmission.
func Money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// ValidateSettings rejects negative or non-finite percentages. Values above
// 100 are accepted and reported through the returned notices.
func ValidateSettings(settings domain.PricingSettings) ([]domain.Notice, error) {
	if err := validatePercent("discount", settings.DiscountPct); err != nil {
		return nil, err
	}
	if err := validatePercent("gst", settings.GST.Pct); err != nil {
		return nil, err
	}

	var notices []domain.Notice
	if settings.DiscountPct > 100 {
		notices = append(notices, outOfRange("discount", settings.DiscountPct))
	}
	if settings.GST.Enabled && settings.GST.Pct > 100 {
		notices = append(notices, outOfRange("gst", settings.GST.Pct))
	}
	return notices, nil
}

func validatePercent(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%s: %w", name, ErrInvalidPercent)
	}
	return nil
}

func outOfRange(name string, v float64) domain.Notice {
	return domain.Notice{
		Level:   domain.NoticeWarning,
		Code:    domain.NoticePercentOutOfRange,
		Message: fmt.Sprintf("%s of %g%% is above 100%%", name, v),
	}
}
