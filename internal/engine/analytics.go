package engine

import (
	"github.com/shopspring/decimal"

	"github.com/fundlab/playground-engine/internal/catalog"
	"github.com/fundlab/playground-engine/internal/model"
)

var hundred = decimal.NewFromInt(100)

// CompositionSlice is one segment of the portfolio composition breakdown.
type CompositionSlice struct {
	Name       string          `json:"name"`
	Value      decimal.Decimal `json:"value"`
	Percentage decimal.Decimal `json:"percentage"`
}

// InvestedValue sums units * current mark price across all holdings.
func InvestedValue(s *model.PlaygroundState) decimal.Decimal {
	sum := decimal.Zero
	for _, h := range s.Holdings {
		sum = sum.Add(h.MarketValue())
	}
	return sum
}

// TotalValue is cash plus invested value.
func TotalValue(s *model.PlaygroundState) decimal.Decimal {
	return s.CashBalance.Add(InvestedValue(s))
}

// GainLossPercent is the lifetime return since inception, measured against
// the fixed starting deposit — not against the value at any later step.
func GainLossPercent(s *model.PlaygroundState) decimal.Decimal {
	return TotalValue(s).Sub(catalog.StartingCash).Div(catalog.StartingCash).Mul(hundred)
}

// IsDiversified reports whether the portfolio holds at least 3 distinct
// instruments.
func IsDiversified(s *model.PlaygroundState) bool {
	return len(s.Holdings) >= 3
}

// Composition breaks the portfolio down by holding market value plus a
// synthetic "Cash" slice. Percentages sum to 100. With nothing invested the
// breakdown is a single 100% cash slice.
func Composition(s *model.PlaygroundState) []CompositionSlice {
	invested := InvestedValue(s)
	if invested.IsZero() {
		return []CompositionSlice{
			{Name: "Cash", Value: s.CashBalance, Percentage: hundred},
		}
	}

	total := s.CashBalance.Add(invested)
	slices := make([]CompositionSlice, 0, len(s.Holdings)+1)
	for _, h := range s.Holdings {
		value := h.MarketValue()
		slices = append(slices, CompositionSlice{
			Name:       h.Name,
			Value:      value,
			Percentage: value.Div(total).Mul(hundred),
		})
	}
	slices = append(slices, CompositionSlice{
		Name:       "Cash",
		Value:      s.CashBalance,
		Percentage: s.CashBalance.Div(total).Mul(hundred),
	})
	return slices
}
