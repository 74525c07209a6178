// Package playground provides the HTTP handlers and session management for
// the virtual-portfolio playground: creating sessions, executing buy/sell
// orders, applying simulated market moves, and querying analytics.
//
// All monetary values use shopspring/decimal — never float64 for money.
package playground

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fundlab/playground-engine/internal/catalog"
	"github.com/fundlab/playground-engine/internal/engine"
	"github.com/fundlab/playground-engine/internal/market"
	"github.com/fundlab/playground-engine/internal/metrics"
	"github.com/fundlab/playground-engine/internal/model"
	"github.com/fundlab/playground-engine/internal/store"
)

// Service handles playground operations. Uses a mutex to serialize mutating
// operations (single-instance); the engine itself is lock-free and expects
// the host to serialize calls per session.
type Service struct {
	store store.Store
	sim   *market.Simulator
	mu    sync.Mutex
	wsHub *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new playground service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, sim *market.Simulator, hub *WSHub) *Service {
	return &Service{
		store: st,
		sim:   sim,
		wsHub: hub,
	}
}

// --- Request/Response types ---

// TradeRequest is the JSON body for buy and sell orders.
type TradeRequest struct {
	InstrumentID string          `json:"instrument_id"`
	Amount       decimal.Decimal `json:"amount"` // in currency units, not units of the fund
}

// MarketMoveRequest is the JSON body for POST .../market-move.
type MarketMoveRequest struct {
	Percent decimal.Decimal `json:"percent"` // signed, e.g. -5 for a 5% drop
}

// SummaryResponse is the analytics view of one session snapshot.
type SummaryResponse struct {
	TotalValue      decimal.Decimal           `json:"total_value"`
	InvestedValue   decimal.Decimal           `json:"invested_value"`
	CashBalance     decimal.Decimal           `json:"cash_balance"`
	GainLossPercent decimal.Decimal           `json:"gain_loss_percent"`
	IsDiversified   bool                      `json:"is_diversified"`
	Composition     []engine.CompositionSlice `json:"composition"`
	TradeCount      int                       `json:"trade_count"`
}

// --- HTTP Handlers ---

// CreateSession handles POST /api/v1/sessions
func (s *Service) CreateSession(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	sess := &store.Session{
		ID:        uuid.New().String(),
		State:     engine.NewState(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateSession(r.Context(), sess); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}
	metrics.ActiveSessions.Inc()

	slog.Info("session created", "id", sess.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sess)
}

// GetSession handles GET /api/v1/sessions/{sessionID}
func (s *Service) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, "session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess)
}

// ResetSession handles DELETE /api/v1/sessions/{sessionID}
// The session is destroyed wholesale, never partially cleared.
func (s *Service) ResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.store.DeleteSession(r.Context(), sessionID); err != nil {
		writeError(w, "session not found", http.StatusNotFound)
		return
	}
	metrics.ActiveSessions.Dec()

	slog.Info("session reset", "id", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// Buy handles POST /api/v1/sessions/{sessionID}/buy
func (s *Service) Buy(w http.ResponseWriter, r *http.Request) {
	s.executeTrade(w, r, "buy", engine.Buy)
}

// Sell handles POST /api/v1/sessions/{sessionID}/sell
func (s *Service) Sell(w http.ResponseWriter, r *http.Request) {
	s.executeTrade(w, r, "sell", engine.Sell)
}

// executeTrade runs one buy or sell intent against the session's current
// snapshot and swaps in the new snapshot on success.
func (s *Service) executeTrade(
	w http.ResponseWriter,
	r *http.Request,
	side string,
	op func(*model.PlaygroundState, string, decimal.Decimal) (*model.PlaygroundState, error),
) {
	sessionID := chi.URLParam(r, "sessionID")

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.InstrumentID == "" {
		writeError(w, "instrument_id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// Serialize mutating operations.
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		writeError(w, "session not found", http.StatusNotFound)
		return
	}

	next, err := op(sess.State, req.InstrumentID, req.Amount)
	if err != nil {
		metrics.TradeRejections.WithLabelValues(rejectionReason(err)).Inc()
		writeError(w, err.Error(), rejectionStatus(err))
		return
	}

	sess.State = next
	if err := s.store.UpdateSession(ctx, sess); err != nil {
		writeError(w, "failed to persist session", http.StatusInternalServerError)
		return
	}

	metrics.TradesTotal.WithLabelValues(side).Inc()

	slog.Info("trade executed",
		"session", sessionID,
		"side", side,
		"instrument", req.InstrumentID,
		"amount", req.Amount.String(),
		"cash_balance", next.CashBalance.String(),
		"total_value", next.TotalValue.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:         "trade_executed",
			SessionID:    sessionID,
			InstrumentID: req.InstrumentID,
			Side:         side,
			Amount:       req.Amount.String(),
			TotalValue:   next.TotalValue.String(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess)
}

// MarketMove handles POST /api/v1/sessions/{sessionID}/market-move
// Applies a simulated market shock. Unlike trades, this cannot fail:
// out-of-range percentages are applied as-is, bounded only by the price floor.
func (s *Service) MarketMove(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req MarketMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		writeError(w, "session not found", http.StatusNotFound)
		return
	}

	sess.State = s.sim.Apply(sess.State, req.Percent)
	if err := s.store.UpdateSession(ctx, sess); err != nil {
		writeError(w, "failed to persist session", http.StatusInternalServerError)
		return
	}

	metrics.MarketMovesTotal.Inc()

	slog.Info("market move applied",
		"session", sessionID,
		"percent", req.Percent.String(),
		"cumulative_percent", sess.State.MarketMovePercent.String(),
		"total_value", sess.State.TotalValue.String(),
	)

	if s.wsHub != nil {
		prices := make(map[string]string, len(sess.State.Instruments))
		for _, inst := range sess.State.Instruments {
			prices[inst.ID] = inst.CurrentPrice.String()
		}
		s.wsHub.Broadcast(WSMessage{
			Type:      "market_move",
			SessionID: sessionID,
			Percent:   req.Percent.String(),
			Prices:    prices,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess)
}

// GetSummary handles GET /api/v1/sessions/{sessionID}/summary
// Analytics are pure functions of the latest snapshot and always succeed.
func (s *Service) GetSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, "session not found", http.StatusNotFound)
		return
	}

	resp := SummaryResponse{
		TotalValue:      engine.TotalValue(sess.State),
		InvestedValue:   engine.InvestedValue(sess.State),
		CashBalance:     sess.State.CashBalance,
		GainLossPercent: engine.GainLossPercent(sess.State),
		IsDiversified:   engine.IsDiversified(sess.State),
		Composition:     engine.Composition(sess.State),
		TradeCount:      sess.State.TradeCount,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListInstruments handles GET /api/v1/instruments
// Returns the session-independent seed catalog.
func (s *Service) ListInstruments(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(catalog.Seed())
}

// rejectionStatus maps engine sentinel errors to HTTP status codes.
func rejectionStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInstrumentNotFound),
		errors.Is(err, engine.ErrHoldingNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, engine.ErrInsufficientUnits):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// rejectionReason maps engine sentinel errors to metric labels.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, engine.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, engine.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, engine.ErrInstrumentNotFound):
		return "instrument_not_found"
	case errors.Is(err, engine.ErrHoldingNotFound):
		return "holding_not_found"
	case errors.Is(err, engine.ErrInsufficientUnits):
		return "insufficient_units"
	default:
		return "unknown"
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
