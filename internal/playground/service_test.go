package playground_test

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fundlab/playground-engine/internal/market"
	"github.com/fundlab/playground-engine/internal/playground"
	"github.com/fundlab/playground-engine/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// newTestEnv creates a test Service with an in-memory store, a seeded
// simulator, and a chi router.
func newTestEnv(t *testing.T) (*store.MemoryStore, chi.Router) {
	t.Helper()
	ms := store.NewMemoryStore()
	sim := market.NewSimulator(rand.New(rand.NewSource(42)))
	svc := playground.NewService(ms, sim, nil)

	r := chi.NewRouter()
	r.Get("/api/v1/instruments", svc.ListInstruments)
	r.Post("/api/v1/sessions", svc.CreateSession)
	r.Get("/api/v1/sessions/{sessionID}", svc.GetSession)
	r.Delete("/api/v1/sessions/{sessionID}", svc.ResetSession)
	r.Post("/api/v1/sessions/{sessionID}/buy", svc.Buy)
	r.Post("/api/v1/sessions/{sessionID}/sell", svc.Sell)
	r.Post("/api/v1/sessions/{sessionID}/market-move", svc.MarketMove)
	r.Get("/api/v1/sessions/{sessionID}/summary", svc.GetSummary)

	return ms, r
}

func doJSON(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, router chi.Router) store.Session {
	t.Helper()
	w := doJSON(t, router, "POST", "/api/v1/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var sess store.Session
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return sess
}

// --- Session lifecycle tests ---

func TestCreateSession(t *testing.T) {
	_, router := newTestEnv(t)

	sess := createSession(t, router)
	if sess.ID == "" {
		t.Error("expected non-empty session id")
	}
	if !sess.State.CashBalance.Equal(d(100000)) {
		t.Errorf("expected starting cash 100000, got %s", sess.State.CashBalance)
	}
	if len(sess.State.Instruments) != 4 {
		t.Errorf("expected 4 instruments, got %d", len(sess.State.Instruments))
	}
}

func TestGetSession_NotFound(t *testing.T) {
	_, router := newTestEnv(t)

	w := doJSON(t, router, "GET", "/api/v1/sessions/unknown", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestResetSession(t *testing.T) {
	_, router := newTestEnv(t)
	sess := createSession(t, router)

	w := doJSON(t, router, "DELETE", "/api/v1/sessions/"+sess.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}

	w = doJSON(t, router, "GET", "/api/v1/sessions/"+sess.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after reset, got %d", w.Code)
	}
}

// --- Trade tests ---

func TestBuy_HTTP(t *testing.T) {
	_, router := newTestEnv(t)
	sess := createSession(t, router)

	w := doJSON(t, router, "POST", "/api/v1/sessions/"+sess.ID+"/buy",
		playground.TradeRequest{InstrumentID: "large_cap", Amount: d(10000)})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated store.Session
	json.Unmarshal(w.Body.Bytes(), &updated)

	if !updated.State.CashBalance.Equal(d(90000)) {
		t.Errorf("expected cash 90000, got %s", updated.State.CashBalance)
	}
	if len(updated.State.Holdings) != 1 {
		t.Fatalf("expected 1 holding, got %d", len(updated.State.Holdings))
	}
	if !updated.State.Holdings[0].Units.Equal(d(100)) {
		t.Errorf("expected 100 units, got %s", updated.State.Holdings[0].Units)
	}
	if updated.State.TradeCount != 1 {
		t.Errorf("expected trade count 1, got %d", updated.State.TradeCount)
	}
}

func TestBuy_HTTP_Rejections(t *testing.T) {
	_, router := newTestEnv(t)
	sess := createSession(t, router)

	cases := []struct {
		name       string
		req        playground.TradeRequest
		wantStatus int
	}{
		{"invalid amount", playground.TradeRequest{InstrumentID: "large_cap", Amount: d(-5)}, http.StatusBadRequest},
		{"insufficient funds", playground.TradeRequest{InstrumentID: "large_cap", Amount: d(100001)}, http.StatusConflict},
		{"unknown instrument", playground.TradeRequest{InstrumentID: "crypto", Amount: d(100)}, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, router, "POST", "/api/v1/sessions/"+sess.ID+"/buy", tc.req)
			if w.Code != tc.wantStatus {
				t.Errorf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
		})
	}

	// Rejections must not touch the stored snapshot.
	w := doJSON(t, router, "GET", "/api/v1/sessions/"+sess.ID, nil)
	var after store.Session
	json.Unmarshal(w.Body.Bytes(), &after)
	if !after.State.CashBalance.Equal(d(100000)) {
		t.Errorf("rejected trades mutated the session: cash %s", after.State.CashBalance)
	}
	if len(after.State.History) != 1 {
		t.Errorf("rejected trades appended history: %d entries", len(after.State.History))
	}
}

func TestSell_HTTP(t *testing.T) {
	_, router := newTestEnv(t)
	sess := createSession(t, router)

	doJSON(t, router, "POST", "/api/v1/sessions/"+sess.ID+"/buy",
		playground.TradeRequest{InstrumentID: "large_cap", Amount: d(10000)})

	w := doJSON(t, router, "POST", "/api/v1/sessions/"+sess.ID+"/sell",
		playground.TradeRequest{InstrumentID: "large_cap", Amount: d(5000)})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated store.Session
	json.Unmarshal(w.Body.Bytes(), &updated)
	if !updated.State.CashBalance.Equal(d(95000)) {
		t.Errorf("expected cash 95000, got %s", updated.State.CashBalance)
	}
}

func TestSell_HTTP_NoHolding(t *testing.T) {
	_, router := newTestEnv(t)
	sess := createSession(t, router)

	w := doJSON(t, router, "POST", "/api/v1/sessions/"+sess.ID+"/sell",
		playground.TradeRequest{InstrumentID: "debt", Amount: d(100)})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for sell without position, got %d", w.Code)
	}
}

// --- Market move tests ---

func TestMarketMove_HTTP(t *testing.T) {
	_, router := newTestEnv(t)
	sess := createSession(t, router)

	w := doJSON(t, router, "POST", "/api/v1/sessions/"+sess.ID+"/market-move",
		playground.MarketMoveRequest{Percent: d(-5)})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated store.Session
	json.Unmarshal(w.Body.Bytes(), &updated)

	if !updated.State.MarketMovePercent.Equal(d(-5)) {
		t.Errorf("expected cumulative move -5, got %s", updated.State.MarketMovePercent)
	}
	if len(updated.State.History) != 2 {
		t.Errorf("expected history entry appended, got %d entries", len(updated.State.History))
	}
	// Market moves are not trades.
	if updated.State.TradeCount != 0 {
		t.Errorf("expected trade count 0, got %d", updated.State.TradeCount)
	}
}

// --- Analytics tests ---

func TestSummary_FreshSession(t *testing.T) {
	_, router := newTestEnv(t)
	sess := createSession(t, router)

	w := doJSON(t, router, "GET", "/api/v1/sessions/"+sess.ID+"/summary", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var summary playground.SummaryResponse
	json.Unmarshal(w.Body.Bytes(), &summary)

	if !summary.TotalValue.Equal(d(100000)) {
		t.Errorf("expected total 100000, got %s", summary.TotalValue)
	}
	if !summary.InvestedValue.IsZero() {
		t.Errorf("expected invested 0, got %s", summary.InvestedValue)
	}
	if !summary.GainLossPercent.IsZero() {
		t.Errorf("expected 0%% gain, got %s", summary.GainLossPercent)
	}
	if summary.IsDiversified {
		t.Error("fresh session should not be diversified")
	}
	if len(summary.Composition) != 1 || summary.Composition[0].Name != "Cash" {
		t.Errorf("expected single cash slice, got %+v", summary.Composition)
	}
	if !summary.Composition[0].Percentage.Equal(d(100)) {
		t.Errorf("expected 100%% cash, got %s", summary.Composition[0].Percentage)
	}
}

func TestSummary_Diversified(t *testing.T) {
	_, router := newTestEnv(t)
	sess := createSession(t, router)

	for _, id := range []string{"large_cap", "balanced", "index"} {
		w := doJSON(t, router, "POST", "/api/v1/sessions/"+sess.ID+"/buy",
			playground.TradeRequest{InstrumentID: id, Amount: d(5000)})
		if w.Code != http.StatusOK {
			t.Fatalf("setup buy failed: %d", w.Code)
		}
	}

	w := doJSON(t, router, "GET", "/api/v1/sessions/"+sess.ID+"/summary", nil)
	var summary playground.SummaryResponse
	json.Unmarshal(w.Body.Bytes(), &summary)

	if !summary.IsDiversified {
		t.Error("3 holdings should be diversified")
	}
	if len(summary.Composition) != 4 {
		t.Errorf("expected 3 holdings + cash, got %d slices", len(summary.Composition))
	}
	if !summary.InvestedValue.Equal(d(15000)) {
		t.Errorf("expected invested 15000, got %s", summary.InvestedValue)
	}
}

// --- Catalog tests ---

func TestListInstruments(t *testing.T) {
	_, router := newTestEnv(t)

	w := doJSON(t, router, "GET", "/api/v1/instruments", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var instruments []json.RawMessage
	json.Unmarshal(w.Body.Bytes(), &instruments)
	if len(instruments) != 4 {
		t.Errorf("expected 4 instruments, got %d", len(instruments))
	}
}
