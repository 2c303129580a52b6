package memory

import (
	"context"
	"errors"
	"testing"

	"humanpad/internal/domain"
	"humanpad/internal/storage"
)

func TestTradeEventStore_AppendAndGetByToken(t *testing.T) {
	store := NewTradeEventStore()
	ctx := context.Background()

	event := &domain.TradeEvent{
		EventID:        "e1",
		TokenID:        "tok1",
		UserID:         "user1",
		Amount:         100.0,
		TokensReceived: 1000.0,
		Price:          0.1,
		NewPrice:       0.101,
		Human:          true,
		RiskScore:      20,
		Timestamp:      1704067200000,
	}

	if err := store.Append(ctx, event); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	result, err := store.GetByToken(ctx, "tok1")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}

	if len(result) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(result))
	}
	if result[0].NewPrice != 0.101 {
		t.Errorf("NewPrice mismatch: got %f, want %f", result[0].NewPrice, 0.101)
	}
}

func TestTradeEventStore_DuplicateKey(t *testing.T) {
	store := NewTradeEventStore()
	ctx := context.Background()

	event := &domain.TradeEvent{EventID: "e1", TokenID: "tok1", UserID: "u1", Timestamp: 1000}

	if err := store.Append(ctx, event); err != nil {
		t.Fatalf("First append failed: %v", err)
	}

	err := store.Append(ctx, event)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeEventStore_GetByUserOrdered(t *testing.T) {
	store := NewTradeEventStore()
	ctx := context.Background()

	// Append out of order
	events := []*domain.TradeEvent{
		{EventID: "e3", TokenID: "tok1", UserID: "u1", Timestamp: 3000},
		{EventID: "e1", TokenID: "tok2", UserID: "u1", Timestamp: 1000},
		{EventID: "e2", TokenID: "tok1", UserID: "u1", Timestamp: 2000},
		{EventID: "e4", TokenID: "tok1", UserID: "u2", Timestamp: 1500}, // different user
	}
	for _, e := range events {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	result, err := store.GetByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}

	if len(result) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(result))
	}
	for i := 1; i < len(result); i++ {
		if result[i].Timestamp < result[i-1].Timestamp {
			t.Errorf("Results not ordered: %d < %d", result[i].Timestamp, result[i-1].Timestamp)
		}
	}
}

func TestTradeEventStore_GetRecent(t *testing.T) {
	store := NewTradeEventStore()
	ctx := context.Background()

	for i, ts := range []int64{1000, 3000, 2000, 5000, 4000} {
		e := &domain.TradeEvent{
			EventID:   string(rune('a' + i)),
			TokenID:   "tok1",
			UserID:    "u1",
			Timestamp: ts,
		}
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	result, err := store.GetRecent(ctx, 3)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}

	if len(result) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(result))
	}
	if result[0].Timestamp != 5000 || result[1].Timestamp != 4000 || result[2].Timestamp != 3000 {
		t.Errorf("Wrong order: %d, %d, %d", result[0].Timestamp, result[1].Timestamp, result[2].Timestamp)
	}
}

func TestTradeEventStore_GetRecentInvalidLimit(t *testing.T) {
	store := NewTradeEventStore()
	ctx := context.Background()

	_, err := store.GetRecent(ctx, 0)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestTradeEventStore_AppendStoresCopy(t *testing.T) {
	store := NewTradeEventStore()
	ctx := context.Background()

	event := &domain.TradeEvent{EventID: "e1", TokenID: "tok1", UserID: "u1", Amount: 100.0, Timestamp: 1000}
	if err := store.Append(ctx, event); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	event.Amount = 9999.0

	result, _ := store.GetByToken(ctx, "tok1")
	if result[0].Amount != 100.0 {
		t.Errorf("Mutation leaked into store: amount=%f", result[0].Amount)
	}
}
