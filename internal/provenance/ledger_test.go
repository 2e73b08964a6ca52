package provenance

import (
	"strings"
	"testing"
)

func TestRecordChainsHashes(t *testing.T) {
	ledger := NewLedger()

	first, err := ledger.Record("STOCK_MOVEMENT", map[string]any{"item_id": 1, "quantity": 5})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	second, err := ledger.Record("DELIVERY_TRANSITION", map[string]any{"delivery_id": 2})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if !strings.HasPrefix(first.Hash, "0x") || len(first.Hash) != 66 {
		t.Fatalf("unexpected hash format: %q", first.Hash)
	}
	if second.PreviousHash != first.Hash {
		t.Fatalf("expected second event to link to first, got %q", second.PreviousHash)
	}
	if first.Hash == second.Hash {
		t.Fatal("distinct events must not collide")
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	ledger := NewLedger()
	for i := 0; i < 5; i++ {
		if _, err := ledger.Record("STOCK_MOVEMENT", map[string]any{"seq": i}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	if idx, ok := ledger.Verify(); !ok {
		t.Fatalf("fresh chain must verify, failed at %d", idx)
	}

	ledger.events[2].Payload["seq"] = 99
	idx, ok := ledger.Verify()
	if ok {
		t.Fatal("tampered chain must not verify")
	}
	if idx != 2 {
		t.Fatalf("expected failure at index 2, got %d", idx)
	}
}

func TestEventsLimitReturnsNewest(t *testing.T) {
	ledger := NewLedger()
	for i := 0; i < 10; i++ {
		if _, err := ledger.Record("STOCK_MOVEMENT", map[string]any{"seq": i}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	events := ledger.Events(3)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Index != 7 || events[2].Index != 9 {
		t.Fatalf("expected newest three in order, got %+v", events)
	}
	if ledger.Len() != 10 {
		t.Fatalf("expected full chain length 10, got %d", ledger.Len())
	}
}
