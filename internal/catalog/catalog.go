// Package catalog holds the fixed seed of tradable virtual instruments.
//
// The seed is a compatibility constant: ids, starting prices, and bootstrap
// price histories must stay stable so previously saved sessions keep
// resolving their holdings.
package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/fundlab/playground-engine/internal/model"
)

// StartingCash is the fixed opening balance of every fresh session.
var StartingCash = decimal.NewFromInt(100000)

// Seed returns fresh copies of the four seed instruments.
// Callers own the returned slice and may mutate it freely.
func Seed() []model.Instrument {
	return []model.Instrument{
		{
			ID:           "large_cap",
			Name:         "Large Cap Fund",
			Description:  "Invests in top 100 companies by market cap. Lower risk, steady returns.",
			RiskLevel:    model.RiskLow,
			CurrentPrice: decimal.NewFromInt(100),
			PriceHistory: history(95, 97, 99, 100),
		},
		{
			ID:           "balanced",
			Name:         "Balanced Mix Fund",
			Description:  "Mix of equity and debt for moderate growth. Medium risk.",
			RiskLevel:    model.RiskMedium,
			CurrentPrice: decimal.NewFromInt(120),
			PriceHistory: history(110, 115, 118, 120),
		},
		{
			ID:           "index",
			Name:         "Index Basket",
			Description:  "Tracks the market index. Low cost, diversified exposure.",
			RiskLevel:    model.RiskMedium,
			CurrentPrice: decimal.NewFromInt(150),
			PriceHistory: history(140, 145, 148, 150),
		},
		{
			ID:           "debt",
			Name:         "Debt Saver Fund",
			Description:  "Invests in government and corporate bonds. Very low risk.",
			RiskLevel:    model.RiskLow,
			CurrentPrice: decimal.NewFromInt(50),
			PriceHistory: history(48, 49, 49.5, 50),
		},
	}
}

// Lookup returns the seed instrument with the given id, or false when the
// id is not part of the catalog.
func Lookup(id string) (model.Instrument, bool) {
	for _, inst := range Seed() {
		if inst.ID == id {
			return inst, true
		}
	}
	return model.Instrument{}, false
}

func history(prices ...float64) []decimal.Decimal {
	h := make([]decimal.Decimal, len(prices))
	for i, p := range prices {
		h[i] = decimal.NewFromFloat(p)
	}
	return h
}
