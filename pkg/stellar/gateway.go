package stellar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stellar/go/protocols/horizon"
	"go.uber.org/zap"

	"github.com/koshlabs/stellar-evm-bridge/pkg/config"
)

// Gateway reads account and transaction state from Horizon. Reads are
// idempotent so transport failures and 5xx responses are retried with a
// constant backoff; 4xx responses are not.
type Gateway struct {
	httpClient *http.Client
	maxRetries uint64
	backoff    time.Duration
	logger     *zap.Logger
}

// NewGateway creates a Horizon gateway from bridge configuration.
func NewGateway(cfg *config.BridgeConfig, logger *zap.Logger) *Gateway {
	return &Gateway{
		httpClient: &http.Client{Timeout: cfg.HorizonTimeout},
		maxRetries: cfg.MaxReadRetries,
		backoff:    time.Second,
		logger:     logger,
	}
}

// FetchAccount returns a fresh snapshot of the account, including the
// current sequence number. Returns ErrAccountNotFound when the account
// does not exist on the resolved network.
func (g *Gateway) FetchAccount(ctx context.Context, net Network, address string) (*AccountSnapshot, error) {
	var account horizon.Account
	url := fmt.Sprintf("%s/accounts/%s", net.HorizonURL, address)
	if err := g.getJSON(ctx, url, ErrAccountNotFound, &account); err != nil {
		return nil, err
	}

	snapshot := &AccountSnapshot{Sequence: account.Sequence}
	for _, balance := range account.Balances {
		asset := balance.Asset.Code
		if balance.Asset.Type == "native" {
			asset = "XLM"
		}
		snapshot.Balances = append(snapshot.Balances, Balance{
			Asset:  asset,
			Amount: balance.Balance,
		})
	}

	g.logger.Debug("Fetched account",
		zap.String("address", address),
		zap.Int64("sequence", snapshot.Sequence))
	return snapshot, nil
}

// FetchTransaction resolves a confirmed transaction hash to the ledger
// it was included in. Returns ErrTransactionNotFound when Horizon has
// not ingested the transaction.
func (g *Gateway) FetchTransaction(ctx context.Context, net Network, hash string) (*LedgerTransaction, error) {
	var tx horizon.Transaction
	url := fmt.Sprintf("%s/transactions/%s", net.HorizonURL, hash)
	if err := g.getJSON(ctx, url, ErrTransactionNotFound, &tx); err != nil {
		return nil, err
	}

	g.logger.Debug("Fetched transaction",
		zap.String("hash", hash),
		zap.Int32("ledger", tx.Ledger))
	return &LedgerTransaction{
		Ledger:      uint32(tx.Ledger),
		EnvelopeXDR: tx.EnvelopeXdr,
	}, nil
}

// getJSON performs one retried GET against Horizon. A 404 surfaces as
// the given sentinel without retrying.
func (g *Gateway) getJSON(ctx context.Context, url string, notFound error, out any) error {
	backoff := retry.WithMaxRetries(g.maxRetries, retry.NewConstant(g.backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("horizon request failed: %w", err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return notFound
		case resp.StatusCode >= http.StatusInternalServerError:
			return retry.RetryableError(fmt.Errorf("horizon returned %d", resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("horizon returned %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode horizon response: %w", err)
		}
		return nil
	})
}
