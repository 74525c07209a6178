// Package market implements the simulated market-move model: a single
// percentage shock applied across the whole instrument catalog, with
// per-instrument random variation and risk-tier amplification.
//
// The random source is injected, never ambient, so tests can pin a seed and
// get reproducible price paths while production callers supply real entropy.
//
// All monetary values use shopspring/decimal — never float64 for money.
// The per-instrument perturbation is drawn as float64 and immediately
// converted to decimal.
package market

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fundlab/playground-engine/internal/engine"
	"github.com/fundlab/playground-engine/internal/model"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)

	// PriceFloor prevents non-positive prices regardless of shock size.
	PriceFloor = decimal.NewFromInt(1)

	// VariationBand is the half-width of the uniform per-instrument
	// perturbation: each instrument deviates from the base move by a draw
	// from [-VariationBand, +VariationBand].
	VariationBand = 0.02

	// HistoryCap bounds each instrument's retained price history.
	HistoryCap = 10
)

// amplification scales the deviation from a neutral multiplier by risk
// tier, so a 0% move stays near 0% on every tier.
var amplification = map[model.RiskLevel]decimal.Decimal{
	model.RiskLow:    decimal.NewFromInt(1),
	model.RiskMedium: decimal.NewFromFloat(1.2),
	model.RiskHigh:   decimal.NewFromFloat(1.5),
}

// Simulator applies market moves using the supplied random source.
type Simulator struct {
	rng *rand.Rand
}

// NewSimulator creates a simulator around rng. Pass a seeded source for
// deterministic tests.
func NewSimulator(rng *rand.Rand) *Simulator {
	return &Simulator{rng: rng}
}

// NewDefaultSimulator creates a simulator with a time-seeded source.
func NewDefaultSimulator() *Simulator {
	return NewSimulator(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// Apply executes one market move of percent (signed, e.g. -5 for a 5% drop)
// against the snapshot and returns the new snapshot. Per instrument:
//
//	m = 1 + percent/100
//	effective = 1 + (m + v - 1) * amplification      v ~ U[-0.02, +0.02]
//	newPrice  = max(PriceFloor, oldPrice * effective), rounded to 2dp
//
// The pre-rounded price is what enters the price history. Holdings' mark
// prices are resynced afterwards; units and cost basis are untouched. The
// cumulative move counter accumulates percent as a plain running sum.
// Unlike buy/sell, a market move has no failure path.
func (sim *Simulator) Apply(state *model.PlaygroundState, percent decimal.Decimal) *model.PlaygroundState {
	base := one.Add(percent.Div(hundred))

	next := state.Clone()
	for i := range next.Instruments {
		inst := &next.Instruments[i]

		variation := decimal.NewFromFloat((sim.rng.Float64()*2 - 1) * VariationBand)
		instrumentMultiplier := base.Add(variation)

		amp, ok := amplification[inst.RiskLevel]
		if !ok {
			amp = one
		}
		effective := one.Add(instrumentMultiplier.Sub(one).Mul(amp))

		newPrice := inst.CurrentPrice.Mul(effective)
		if newPrice.LessThan(PriceFloor) {
			newPrice = PriceFloor
		}

		inst.CurrentPrice = newPrice.Round(2)
		inst.PriceHistory = appendCapped(inst.PriceHistory, newPrice)
	}

	// Resync every holding's mark to its instrument's new price.
	for i := range next.Holdings {
		h := &next.Holdings[i]
		if inst, ok := next.FindInstrument(h.InstrumentID); ok {
			h.CurrentPrice = inst.CurrentPrice
		}
	}

	next.MarketMovePercent = state.MarketMovePercent.Add(percent)
	next.TotalValue = next.CashBalance.Add(engine.InvestedValue(next))
	next.History = append(next.History, model.HistoryEntry{
		Step:           len(next.History),
		PortfolioValue: next.TotalValue,
		Timestamp:      time.Now().UTC(),
	})
	return next
}

// appendCapped appends price, dropping the oldest entries beyond HistoryCap.
func appendCapped(history []decimal.Decimal, price decimal.Decimal) []decimal.Decimal {
	if len(history) >= HistoryCap {
		history = history[len(history)-(HistoryCap-1):]
	}
	return append(history, price)
}
