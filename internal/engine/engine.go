// Package engine implements the virtual-portfolio transaction engine:
// buy/sell execution against a session snapshot, plus the read-only
// portfolio analytics derived from it.
//
// Every mutating operation is copy-on-write: it validates against one
// immutable snapshot, then returns a brand-new snapshot with exactly one
// history entry appended. On rejection the input snapshot is returned
// untouched, so all-or-nothing semantics hold by construction. The engine
// itself takes no locks; hosts serialize calls per session.
//
// All monetary values use shopspring/decimal — never float64 for money.
package engine

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fundlab/playground-engine/internal/catalog"
	"github.com/fundlab/playground-engine/internal/model"
)

var (
	// ErrInvalidAmount is returned when a buy or sell amount is <= 0.
	ErrInvalidAmount = errors.New("engine: amount must be positive")

	// ErrInsufficientFunds is returned when a buy exceeds the cash balance.
	ErrInsufficientFunds = errors.New("engine: insufficient funds")

	// ErrInstrumentNotFound is returned when the referenced instrument is
	// absent from the catalog.
	ErrInstrumentNotFound = errors.New("engine: instrument not found")

	// ErrHoldingNotFound is returned when a sell targets an instrument
	// with no open position.
	ErrHoldingNotFound = errors.New("engine: no holding found")

	// ErrInsufficientUnits is returned when a sell implies more units
	// than currently held.
	ErrInsufficientUnits = errors.New("engine: insufficient units to sell")
)

// DustEpsilon is the unit threshold below which a position is removed
// instead of being kept as a zero-dust holding.
var DustEpsilon = decimal.NewFromFloat(0.001)

// NewState creates a fresh session snapshot: starting cash, the seed
// instrument catalog, and history entry 0 recording the initial deposit.
func NewState() *model.PlaygroundState {
	return &model.PlaygroundState{
		CashBalance: catalog.StartingCash,
		Holdings:    []model.Holding{},
		History: []model.HistoryEntry{
			{
				Step:           0,
				PortfolioValue: catalog.StartingCash,
				Timestamp:      time.Now().UTC(),
			},
		},
		MarketMovePercent: decimal.Zero,
		Instruments:       catalog.Seed(),
		TotalValue:        catalog.StartingCash,
	}
}

// Buy spends amount of cash on an instrument at its current price.
// Fractional units are allowed; no rounding happens during computation, so
// the cash balance decreases by amount exactly.
func Buy(state *model.PlaygroundState, instrumentID string, amount decimal.Decimal) (*model.PlaygroundState, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return state, ErrInvalidAmount
	}
	if amount.GreaterThan(state.CashBalance) {
		return state, ErrInsufficientFunds
	}
	instrument, ok := state.FindInstrument(instrumentID)
	if !ok {
		return state, ErrInstrumentNotFound
	}

	units := amount.Div(instrument.CurrentPrice)

	next := state.Clone()
	next.CashBalance = state.CashBalance.Sub(amount)
	next.TradeCount = state.TradeCount + 1

	if holding, ok := next.FindHolding(instrumentID); ok {
		// Cost-weighted average: the amount actually spent goes into the
		// numerator, not units*price, so the average tracks real cost
		// basis across buys at different prices.
		totalUnits := holding.Units.Add(units)
		totalCost := holding.Units.Mul(holding.AvgBuyPrice).Add(amount)
		holding.Units = totalUnits
		holding.AvgBuyPrice = totalCost.Div(totalUnits)
		holding.CurrentPrice = instrument.CurrentPrice
	} else {
		next.Holdings = append(next.Holdings, model.Holding{
			ID:           uuid.New().String(),
			InstrumentID: instrumentID,
			Name:         instrument.Name,
			Units:        units,
			AvgBuyPrice:  instrument.CurrentPrice,
			CurrentPrice: instrument.CurrentPrice,
		})
	}

	finalize(next)
	return next, nil
}

// Sell liquidates amount worth of an open position at the instrument's
// current price. The cash balance increases by amount exactly. A position
// whose remaining units fall below DustEpsilon is removed entirely.
// AvgBuyPrice is left unchanged on partial sells.
func Sell(state *model.PlaygroundState, instrumentID string, amount decimal.Decimal) (*model.PlaygroundState, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return state, ErrInvalidAmount
	}
	holding, ok := state.FindHolding(instrumentID)
	if !ok {
		return state, ErrHoldingNotFound
	}
	// Defensive: holdings always reference catalog instruments, but a
	// malformed snapshot must not panic the engine.
	instrument, ok := state.FindInstrument(instrumentID)
	if !ok {
		return state, ErrInstrumentNotFound
	}

	unitsToSell := amount.Div(instrument.CurrentPrice)
	if unitsToSell.GreaterThan(holding.Units) {
		return state, ErrInsufficientUnits
	}

	next := state.Clone()
	next.CashBalance = state.CashBalance.Add(amount)
	next.TradeCount = state.TradeCount + 1

	remaining := holding.Units.Sub(unitsToSell)
	if remaining.LessThan(DustEpsilon) {
		kept := next.Holdings[:0]
		for _, h := range next.Holdings {
			if h.InstrumentID != instrumentID {
				kept = append(kept, h)
			}
		}
		next.Holdings = kept
	} else {
		h, _ := next.FindHolding(instrumentID)
		h.Units = remaining
		h.CurrentPrice = instrument.CurrentPrice
	}

	finalize(next)
	return next, nil
}

// finalize recomputes the derived total and appends the history entry for
// an accepted operation. Exactly one entry per accepted mutation.
func finalize(s *model.PlaygroundState) {
	s.TotalValue = s.CashBalance.Add(InvestedValue(s))
	s.History = append(s.History, model.HistoryEntry{
		Step:           len(s.History),
		PortfolioValue: s.TotalValue,
		Timestamp:      time.Now().UTC(),
	})
}
