package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fundlab/playground-engine/internal/engine"
)

func newSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		State:     engine.NewState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	if err := ms.CreateSession(ctx, newSession("s1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sess, err := ms.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ID != "s1" {
		t.Errorf("expected session s1, got %s", sess.ID)
	}
	if !sess.State.CashBalance.Equal(engine.NewState().CashBalance) {
		t.Errorf("unexpected state cash %s", sess.State.CashBalance)
	}
}

func TestMemoryStore_CreateDuplicate(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	ms.CreateSession(ctx, newSession("s1"))
	if err := ms.CreateSession(ctx, newSession("s1")); err == nil {
		t.Error("expected error on duplicate session id")
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	ms := NewMemoryStore()

	_, err := ms.GetSession(context.Background(), "nope")
	if err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemoryStore_UpdateSwapsSnapshot(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	sess := newSession("s1")
	ms.CreateSession(ctx, sess)

	updated, err := engine.Buy(sess.State, "large_cap", sess.State.CashBalance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess.State = updated
	if err := ms.UpdateSession(ctx, sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := ms.GetSession(ctx, "s1")
	if !got.State.CashBalance.IsZero() {
		t.Errorf("expected swapped snapshot with zero cash, got %s", got.State.CashBalance)
	}
	if got.State.TradeCount != 1 {
		t.Errorf("expected swapped snapshot trade count 1, got %d", got.State.TradeCount)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	ms.CreateSession(ctx, newSession("s1"))
	if err := ms.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ms.GetSession(ctx, "s1"); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
	if err := ms.DeleteSession(ctx, "s1"); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound on double delete, got %v", err)
	}
}

func TestMemoryStore_List(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	ms.CreateSession(ctx, newSession("s1"))
	ms.CreateSession(ctx, newSession("s2"))

	sessions, err := ms.ListSessions(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(sessions))
	}
}

// Snapshots must survive serialization without loss: decimals keep exact
// precision and timestamps stay parseable and sortable.
func TestSession_SnapshotRoundTrip(t *testing.T) {
	sess := newSession("s1")
	// 100000/3 at price 150 produces non-terminating intermediate values.
	state, err := engine.Buy(sess.State, "index", decimal.NewFromInt(100000).Div(decimal.NewFromInt(3)))
	if err != nil {
		t.Fatalf("setup buy failed: %v", err)
	}
	sess.State = state

	data, err := json.Marshal(sess)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var restored Session
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !restored.State.CashBalance.Equal(sess.State.CashBalance) {
		t.Errorf("cash lost precision: %s vs %s", restored.State.CashBalance, sess.State.CashBalance)
	}
	if !restored.State.Holdings[0].Units.Equal(sess.State.Holdings[0].Units) {
		t.Errorf("units lost precision: %s vs %s",
			restored.State.Holdings[0].Units, sess.State.Holdings[0].Units)
	}
	if len(restored.State.History) != len(sess.State.History) {
		t.Errorf("history length changed: %d vs %d",
			len(restored.State.History), len(sess.State.History))
	}
	if !restored.State.History[1].Timestamp.Equal(sess.State.History[1].Timestamp) {
		t.Error("timestamps must round-trip exactly")
	}
}
