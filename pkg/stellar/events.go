package stellar

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// eventLedgerWindow bounds how far past the lock ledger the event query
// scans. Lock events land in the lock transaction's own ledger; the
// margin covers RPC ingestion lag.
const (
	eventLedgerWindow = 5
	eventFetchLimit   = 10
)

// LockEvent is a decoded lock contract event.
type LockEvent struct {
	TxHash    string
	Ledger    uint32
	FromToken string
	DestToken string
	DestChain uint64
	Recipient string
	// Amount is the locked amount in lumens.
	Amount decimal.Decimal
}

// FetchLockEvents queries the bridge contract's events around the given
// ledger and decodes every lock event found. Events that do not decode
// are skipped; an attempt can share a ledger with unrelated contract
// activity.
func FetchLockEvents(ctx context.Context, rpc RPCClient, net Network, ledger uint32) ([]LockEvent, error) {
	resp, err := rpc.GetEvents(ctx, GetEventsRequest{
		StartLedger: ledger,
		EndLedger:   ledger + eventLedgerWindow,
		ContractIDs: []string{net.ContractID},
		Limit:       eventFetchLimit,
	})
	if err != nil {
		return nil, err
	}

	var events []LockEvent
	for _, raw := range resp.Events {
		event, err := DecodeLockEvent(raw)
		if err != nil {
			continue
		}
		events = append(events, *event)
	}
	return events, nil
}

// DecodeLockEvent decodes a contract event's JSON value into a
// LockEvent. The value is a symbol-keyed map; the amount arrives as an
// i128 that different RPC versions render as a string, a number, or a
// {"hi","lo"} object.
func DecodeLockEvent(raw ContractEvent) (*LockEvent, error) {
	entries, ok := raw.ValueJSON["map"].([]any)
	if !ok {
		return nil, fmt.Errorf("event %s value is not a map", raw.ID)
	}

	event := &LockEvent{
		TxHash: raw.TxHash,
		Ledger: raw.Ledger,
	}
	for _, entry := range entries {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		key := nestedString(item, "key", "symbol")
		val, _ := item["val"].(map[string]any)
		if key == "" || val == nil {
			continue
		}

		switch key {
		case "dest_chain":
			hexBytes, _ := val["bytes"].(string)
			chain, err := strconv.ParseUint(hexBytes, 16, 64)
			if err != nil {
				return nil, fmt.Errorf("event %s dest_chain %q: %w", raw.ID, hexBytes, err)
			}
			event.DestChain = chain
		case "dest_token":
			event.DestToken, _ = val["string"].(string)
		case "from_token":
			event.FromToken, _ = val["address"].(string)
		case "recipient_address":
			event.Recipient, _ = val["string"].(string)
		case "in_amount":
			stroops, err := decodeI128(val["i128"])
			if err != nil {
				return nil, fmt.Errorf("event %s in_amount: %w", raw.ID, err)
			}
			event.Amount = decimal.NewFromInt(stroops).Shift(-stroopsExponent)
		}
	}

	if event.Recipient == "" || !event.Amount.IsPositive() {
		return nil, fmt.Errorf("event %s is not a lock event", raw.ID)
	}
	return event, nil
}

// decodeI128 handles the renderings of an i128 value seen across RPC
// versions: "110000000", 110000000, and {"hi": 0, "lo": 110000000}.
func decodeI128(v any) (int64, error) {
	switch value := v.(type) {
	case string:
		return strconv.ParseInt(value, 10, 64)
	case float64:
		return int64(value), nil
	case map[string]any:
		// A non-zero high part would silently wrap if only lo were read.
		switch hi := value["hi"].(type) {
		case string:
			if n, err := strconv.ParseInt(hi, 10, 64); err != nil || n != 0 {
				return 0, fmt.Errorf("i128 high part %q exceeds supported range", hi)
			}
		case float64:
			if hi != 0 {
				return 0, fmt.Errorf("i128 high part %v exceeds supported range", hi)
			}
		}
		switch lo := value["lo"].(type) {
		case string:
			return strconv.ParseInt(lo, 10, 64)
		case float64:
			return int64(lo), nil
		}
		return 0, fmt.Errorf("i128 object has no usable lo part: %v", value)
	default:
		return 0, fmt.Errorf("unsupported i128 encoding: %T", v)
	}
}

func nestedString(m map[string]any, keys ...string) string {
	current := any(m)
	for _, key := range keys {
		obj, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current = obj[key]
	}
	s, _ := current.(string)
	return s
}
