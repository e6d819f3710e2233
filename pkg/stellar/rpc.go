package stellar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ybbus/jsonrpc/v3"
)

// RPCClient is the subset of the Soroban RPC surface the bridge needs:
// simulating lock invocations and reading contract events.
type RPCClient interface {
	GetNetwork(ctx context.Context) (*NetworkInfo, error)
	SimulateTransaction(ctx context.Context, envelopeXDR string) (*SimulationResult, error)
	GetEvents(ctx context.Context, req GetEventsRequest) (*GetEventsResponse, error)
}

// NetworkInfo is the getNetwork response.
type NetworkInfo struct {
	Passphrase      string `json:"passphrase"`
	ProtocolVersion int    `json:"protocolVersion"`
}

// SimulationResult is the subset of the simulateTransaction response
// needed to finish assembling a Soroban transaction.
type SimulationResult struct {
	Error           string `json:"error,omitempty"`
	TransactionData string `json:"transactionData"`
	MinResourceFee  string `json:"minResourceFee"`
	Results         []struct {
		XDR  string   `json:"xdr"`
		Auth []string `json:"auth"`
	} `json:"results"`
	LatestLedger uint32 `json:"latestLedger"`
}

// GetEventsRequest scopes a contract event query to a ledger window.
type GetEventsRequest struct {
	StartLedger uint32   `json:"startLedger"`
	EndLedger   uint32   `json:"endLedger,omitempty"`
	ContractIDs []string `json:"-"`
	Limit       int      `json:"-"`
}

// ContractEvent is one emitted contract event with its decoded value.
type ContractEvent struct {
	Type       string `json:"type"`
	Ledger     uint32 `json:"ledger"`
	ContractID string `json:"contractId"`
	ID         string `json:"id"`
	TxHash     string `json:"txHash"`
	// ValueJSON is the RPC's JSON rendering of the event value when
	// xdrFormat=json is requested.
	ValueJSON map[string]any `json:"valueJson"`
	ValueXDR  string         `json:"value"`
	TopicJSON []any          `json:"topicJson"`
}

// GetEventsResponse is the getEvents result page.
type GetEventsResponse struct {
	Events       []ContractEvent `json:"events"`
	LatestLedger uint32          `json:"latestLedger"`
}

// SorobanClient talks JSON-RPC to a Soroban RPC node.
type SorobanClient struct {
	rpc jsonrpc.RPCClient
}

// NewSorobanClient creates a client for the given RPC endpoint with a
// hard per-call timeout.
func NewSorobanClient(url string, timeout time.Duration) *SorobanClient {
	return &SorobanClient{
		rpc: jsonrpc.NewClientWithOpts(url, &jsonrpc.RPCClientOpts{
			HTTPClient: &http.Client{Timeout: timeout},
		}),
	}
}

// GetNetwork returns the node's network passphrase. Used as a readiness
// probe and as a sanity check that the resolved network matches the
// node we are pointed at.
func (c *SorobanClient) GetNetwork(ctx context.Context) (*NetworkInfo, error) {
	resp, err := c.rpc.Call(ctx, "getNetwork")
	if err != nil {
		return nil, fmt.Errorf("getNetwork call failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getNetwork failed: %s (code %d)", resp.Error.Message, resp.Error.Code)
	}
	var info NetworkInfo
	if err := resp.GetObject(&info); err != nil {
		return nil, fmt.Errorf("decode getNetwork response: %w", err)
	}
	return &info, nil
}

// SimulateTransaction dry-runs the envelope against current ledger
// state. A rejection is returned as *SimulationRejectedError so callers
// can distinguish it from transport failures.
func (c *SorobanClient) SimulateTransaction(ctx context.Context, envelopeXDR string) (*SimulationResult, error) {
	resp, err := c.rpc.Call(ctx, "simulateTransaction", map[string]any{
		"transaction": envelopeXDR,
	})
	if err != nil {
		return nil, fmt.Errorf("simulateTransaction call failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("simulateTransaction failed: %s (code %d)", resp.Error.Message, resp.Error.Code)
	}

	var result SimulationResult
	if err := resp.GetObject(&result); err != nil {
		return nil, fmt.Errorf("decode simulateTransaction response: %w", err)
	}
	if result.Error != "" {
		return nil, &SimulationRejectedError{Reason: result.Error}
	}
	return &result, nil
}

// GetEvents fetches contract events for the requested ledger window.
// xdrFormat=json is requested so event values arrive pre-decoded.
func (c *SorobanClient) GetEvents(ctx context.Context, req GetEventsRequest) (*GetEventsResponse, error) {
	params := map[string]any{
		"startLedger": req.StartLedger,
		"xdrFormat":   "json",
	}
	if req.EndLedger > 0 {
		params["endLedger"] = req.EndLedger
	}
	if len(req.ContractIDs) > 0 {
		params["filters"] = []map[string]any{
			{
				"type":        "contract",
				"contractIds": req.ContractIDs,
			},
		}
	}
	if req.Limit > 0 {
		params["pagination"] = map[string]any{"limit": req.Limit}
	}

	resp, err := c.rpc.Call(ctx, "getEvents", params)
	if err != nil {
		return nil, fmt.Errorf("getEvents call failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getEvents failed: %s (code %d)", resp.Error.Message, resp.Error.Code)
	}

	var result GetEventsResponse
	if err := resp.GetObject(&result); err != nil {
		return nil, fmt.Errorf("decode getEvents response: %w", err)
	}
	return &result, nil
}
