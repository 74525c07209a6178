// Package model defines the core domain types shared across the playground
// engine. All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskLevel is an instrument's risk tier. Higher tiers amplify simulated
// market moves.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Instrument is a tradable virtual fund. Prices are mutated only by the
// market simulator; transactions read them but never write them.
type Instrument struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	RiskLevel    RiskLevel       `json:"risk_level"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	// PriceHistory is ordered oldest-first, capped at the most recent
	// 10 entries.
	PriceHistory []decimal.Decimal `json:"price_history"`
}

// Clone returns a deep copy of the instrument.
func (i Instrument) Clone() Instrument {
	c := i
	c.PriceHistory = make([]decimal.Decimal, len(i.PriceHistory))
	copy(c.PriceHistory, i.PriceHistory)
	return c
}

// Holding is an open position in one instrument.
//
// Units*AvgBuyPrice approximates the position's total cost basis.
// AvgBuyPrice is cost-weighted across buys and frozen on sells; realized
// gains are not tracked, only the unrealized mark via CurrentPrice.
type Holding struct {
	ID           string          `json:"id"`
	InstrumentID string          `json:"instrument_id"`
	Name         string          `json:"name"` // denormalized, fixed at creation
	Units        decimal.Decimal `json:"units"`
	AvgBuyPrice  decimal.Decimal `json:"avg_buy_price"`
	CurrentPrice decimal.Decimal `json:"current_price"` // mark at last sync
}

// MarketValue returns units * current mark price.
func (h Holding) MarketValue() decimal.Decimal {
	return h.Units.Mul(h.CurrentPrice)
}

// HistoryEntry records portfolio value after one accepted operation.
// The sequence is append-only; steps are dense integers starting at 0,
// and entry 0 always records the initial deposit.
type HistoryEntry struct {
	Step           int             `json:"step"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	Timestamp      time.Time       `json:"timestamp"`
}

// PlaygroundState is the aggregate root of one simulation session.
// Mutating operations are copy-on-write: they read one snapshot and return
// a brand-new one, so a rejected operation leaves the prior state untouched.
type PlaygroundState struct {
	CashBalance decimal.Decimal `json:"cash_balance"`
	Holdings    []Holding       `json:"holdings"`
	History     []HistoryEntry  `json:"history"`
	// MarketMovePercent is the running sum of applied move percentages.
	// Diagnostic only — never used in a pricing formula.
	MarketMovePercent decimal.Decimal `json:"market_move_percent"`
	Instruments       []Instrument    `json:"instruments"`
	TotalValue        decimal.Decimal `json:"total_value"`
	TradeCount        int             `json:"trade_count"`
}

// Clone returns a deep copy of the state. Mutating operations clone first,
// then modify the copy.
func (s *PlaygroundState) Clone() *PlaygroundState {
	c := *s
	c.Holdings = make([]Holding, len(s.Holdings))
	copy(c.Holdings, s.Holdings)
	c.History = make([]HistoryEntry, len(s.History))
	copy(c.History, s.History)
	c.Instruments = make([]Instrument, len(s.Instruments))
	for i, inst := range s.Instruments {
		c.Instruments[i] = inst.Clone()
	}
	return &c
}

// FindInstrument returns the catalog entry for id, or false when absent.
func (s *PlaygroundState) FindInstrument(id string) (*Instrument, bool) {
	for i := range s.Instruments {
		if s.Instruments[i].ID == id {
			return &s.Instruments[i], true
		}
	}
	return nil, false
}

// FindHolding returns the open position for an instrument, or false when no
// position exists.
func (s *PlaygroundState) FindHolding(instrumentID string) (*Holding, bool) {
	for i := range s.Holdings {
		if s.Holdings[i].InstrumentID == instrumentID {
			return &s.Holdings[i], true
		}
	}
	return nil, false
}
