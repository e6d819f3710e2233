// Package custodian is the JSON-RPC client for the custodial signing
// backend: the remote service that signs and submits the source-chain
// lock, observes the lock event, and executes the destination-chain
// release via threshold signing.
package custodian

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ybbus/jsonrpc/v3"
	"go.uber.org/zap"

	"github.com/koshlabs/stellar-evm-bridge/pkg/config"
)

// Receipt is the backend's acknowledgement of a submitted lock
// transaction.
type Receipt struct {
	Hash string `json:"hash"`
	Raw  string `json:"raw"`
}

// Client talks to the custodial backend. Calls are bounded by the
// configured request timeout; the backend itself is opaque.
type Client struct {
	rpc    jsonrpc.RPCClient
	logger *zap.Logger
}

// NewClient creates a custodian client from configuration.
func NewClient(cfg *config.CustodianConfig, logger *zap.Logger) *Client {
	rpc := jsonrpc.NewClientWithOpts(cfg.Endpoint, &jsonrpc.RPCClientOpts{
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
	})
	return &Client{rpc: rpc, logger: logger}
}

// LockOnSource asks the backend to sign and submit the given unsigned
// transaction envelope on the named Stellar network. The backend returns
// the lock transaction hash once the submission is accepted.
func (c *Client) LockOnSource(ctx context.Context, envelopeXDR, networkName string) (*Receipt, error) {
	c.logger.Info("Submitting lock transaction for signing",
		zap.String("network", networkName),
		zap.Int("envelope_size", len(envelopeXDR)))

	resp, err := c.rpc.Call(ctx, "lockOnSource", map[string]any{
		"transaction": envelopeXDR,
		"network":     networkName,
	})
	if err != nil {
		return nil, fmt.Errorf("lockOnSource call failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("lockOnSource rejected: %s (code %d)", resp.Error.Message, resp.Error.Code)
	}

	var receipt Receipt
	if err := resp.GetObject(&receipt); err != nil {
		return nil, fmt.Errorf("decode lockOnSource response: %w", err)
	}
	if receipt.Hash == "" {
		return nil, fmt.Errorf("lockOnSource returned no transaction hash")
	}

	c.logger.Info("Lock transaction submitted", zap.String("hash", receipt.Hash))
	return &receipt, nil
}

// IndexAndRelease asks the backend to observe the lock event at the
// given ledger and execute the release on the destination chain. Returns
// the destination transaction hash.
func (c *Client) IndexAndRelease(ctx context.Context, ledger uint32, destChainID string) (string, error) {
	c.logger.Info("Requesting index and release",
		zap.Uint32("ledger", ledger),
		zap.String("dest_chain", destChainID))

	resp, err := c.rpc.Call(ctx, "indexAndRelease", map[string]any{
		"ledger":     ledger,
		"dest_chain": destChainID,
	})
	if err != nil {
		return "", fmt.Errorf("indexAndRelease call failed: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("indexAndRelease rejected: %s (code %d)", resp.Error.Message, resp.Error.Code)
	}

	hash, err := resp.GetString()
	if err != nil {
		return "", fmt.Errorf("decode indexAndRelease response: %w", err)
	}

	c.logger.Info("Release executed", zap.String("dest_tx_hash", hash))
	return hash, nil
}
