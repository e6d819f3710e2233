package stellar

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func lockEventValue(amount any) map[string]any {
	return map[string]any{
		"map": []any{
			map[string]any{
				"key": map[string]any{"symbol": "dest_chain"},
				"val": map[string]any{"bytes": "4268"},
			},
			map[string]any{
				"key": map[string]any{"symbol": "dest_token"},
				"val": map[string]any{"string": "HOLSKEY"},
			},
			map[string]any{
				"key": map[string]any{"symbol": "from_token"},
				"val": map[string]any{"address": testnetNativeContractID},
			},
			map[string]any{
				"key": map[string]any{"symbol": "in_amount"},
				"val": map[string]any{"i128": amount},
			},
			map[string]any{
				"key": map[string]any{"symbol": "recipient_address"},
				"val": map[string]any{"string": "0x8ba1f109551bD432803012645Ac136ddd64DBA72"},
			},
		},
	}
}

func TestDecodeLockEvent_I128Variants(t *testing.T) {
	// Different RPC versions render i128 values differently.
	variants := map[string]any{
		"string": "110000000",
		"number": float64(110000000),
		"object": map[string]any{"hi": float64(0), "lo": float64(110000000)},
	}

	for name, amount := range variants {
		t.Run(name, func(t *testing.T) {
			event, err := DecodeLockEvent(ContractEvent{
				ID:        "evt-1",
				TxHash:    "deadbeef",
				Ledger:    1234,
				ValueJSON: lockEventValue(amount),
			})
			if err != nil {
				t.Fatalf("DecodeLockEvent failed: %v", err)
			}
			if !event.Amount.Equal(decimal.NewFromInt(11)) {
				t.Errorf("Expected 11 XLM, got %s", event.Amount)
			}
			if event.DestChain != 17000 {
				t.Errorf("Expected dest chain 17000, got %d", event.DestChain)
			}
			if event.DestToken != "HOLSKEY" {
				t.Errorf("Expected HOLSKEY, got %s", event.DestToken)
			}
			if event.Recipient != "0x8ba1f109551bD432803012645Ac136ddd64DBA72" {
				t.Errorf("Unexpected recipient: %s", event.Recipient)
			}
			if event.TxHash != "deadbeef" || event.Ledger != 1234 {
				t.Errorf("Event identity lost: %s %d", event.TxHash, event.Ledger)
			}
		})
	}
}

func TestDecodeLockEvent_RejectsNonZeroI128HighPart(t *testing.T) {
	// Reading only lo would silently wrap amounts of 2^64 stroops or
	// more; such events must be reported as undecodable instead.
	highParts := map[string]any{
		"number": map[string]any{"hi": float64(1), "lo": float64(110000000)},
		"string": map[string]any{"hi": "1", "lo": "110000000"},
	}

	for name, amount := range highParts {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeLockEvent(ContractEvent{
				ID:        "evt-big",
				TxHash:    "deadbeef",
				Ledger:    1234,
				ValueJSON: lockEventValue(amount),
			})
			if err == nil {
				t.Fatal("Expected error for non-zero i128 high part")
			}
		})
	}

	// A zero high part rendered as a string stays decodable.
	event, err := DecodeLockEvent(ContractEvent{
		ID:        "evt-ok",
		TxHash:    "deadbeef",
		Ledger:    1234,
		ValueJSON: lockEventValue(map[string]any{"hi": "0", "lo": "110000000"}),
	})
	if err != nil {
		t.Fatalf("DecodeLockEvent failed: %v", err)
	}
	if !event.Amount.Equal(decimal.NewFromInt(11)) {
		t.Errorf("Expected 11 XLM, got %s", event.Amount)
	}
}

func TestDecodeLockEvent_RejectsNonLockEvents(t *testing.T) {
	_, err := DecodeLockEvent(ContractEvent{
		ID:        "evt-2",
		ValueJSON: map[string]any{"u64": float64(7)},
	})
	if err == nil {
		t.Fatal("Expected error for non-map event value")
	}

	// A map without recipient or amount is some other contract event.
	_, err = DecodeLockEvent(ContractEvent{
		ID: "evt-3",
		ValueJSON: map[string]any{
			"map": []any{
				map[string]any{
					"key": map[string]any{"symbol": "admin"},
					"val": map[string]any{"address": testnetContractID},
				},
			},
		},
	})
	if err == nil {
		t.Fatal("Expected error for unrelated event")
	}
}

func TestFetchLockEvents_FiltersAndDecodes(t *testing.T) {
	rpc := &mockRPC{
		GetEventsFunc: func(ctx context.Context, req GetEventsRequest) (*GetEventsResponse, error) {
			if req.StartLedger != 1000 || req.EndLedger != 1005 {
				t.Errorf("Unexpected ledger window: %d-%d", req.StartLedger, req.EndLedger)
			}
			if len(req.ContractIDs) != 1 || req.ContractIDs[0] != testnetContractID {
				t.Errorf("Expected contract filter, got %v", req.ContractIDs)
			}
			return &GetEventsResponse{
				Events: []ContractEvent{
					{ID: "bad", ValueJSON: map[string]any{"u32": float64(1)}},
					{ID: "good", TxHash: "abc", Ledger: 1001, ValueJSON: lockEventValue("50000000")},
				},
			}, nil
		},
	}

	events, err := FetchLockEvents(context.Background(), rpc, Resolve("17000"), 1000)
	if err != nil {
		t.Fatalf("FetchLockEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 decoded event, got %d", len(events))
	}
	if !events[0].Amount.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected 5 XLM, got %s", events[0].Amount)
	}
}
