package bridge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/koshlabs/stellar-evm-bridge/pkg/custodian"
	"github.com/koshlabs/stellar-evm-bridge/pkg/stellar"
)

func validRequest() Request {
	return Request{
		UserAddress:      "GBZXN7PIRZGNMHGA7MUUUF4GWPY5AYPV6LY4UV2GL6VJGIQRXFDNMADI",
		FromToken:        "XLM",
		DestToken:        "HOLSKEY",
		Amount:           decimal.NewFromFloat(11),
		DestChain:        "17000",
		RecipientAddress: "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
	}
}

func newTestOrchestrator(gw *MockGateway, b *MockBuilder, c *MockCustodian, s *MockStore) *Orchestrator {
	return NewOrchestrator(gw, b, c, s, zap.NewNop(), time.Millisecond)
}

func TestBridge_Success(t *testing.T) {
	gateway := &MockGateway{
		FetchAccountFunc: func(ctx context.Context, net stellar.Network, address string) (*stellar.AccountSnapshot, error) {
			if net.Name != "testnet" {
				t.Errorf("Expected testnet, got %s", net.Name)
			}
			return &stellar.AccountSnapshot{Sequence: 42}, nil
		},
		FetchTransactionFunc: func(ctx context.Context, net stellar.Network, hash string) (*stellar.LedgerTransaction, error) {
			if hash != "lockhash" {
				t.Errorf("Expected lockhash, got %s", hash)
			}
			return &stellar.LedgerTransaction{Ledger: 1234}, nil
		},
	}
	builder := &MockBuilder{}
	cust := &MockCustodian{
		IndexAndReleaseFunc: func(ctx context.Context, ledger uint32, destChainID string) (string, error) {
			if ledger != 1234 {
				t.Errorf("Expected ledger 1234, got %d", ledger)
			}
			if destChainID != "17000" {
				t.Errorf("Expected dest chain 17000, got %s", destChainID)
			}
			return "0xabc123", nil
		},
	}

	o := newTestOrchestrator(gateway, builder, cust, &MockStore{})

	result, err := o.Bridge(context.Background(), validRequest(), nil)
	if err != nil {
		t.Fatalf("Bridge failed: %v", err)
	}
	if !result.Success {
		t.Error("Expected success")
	}
	if result.SourceTxHash != "lockhash" {
		t.Errorf("Expected source hash lockhash, got %s", result.SourceTxHash)
	}
	if result.DestTxHash != "0xabc123" {
		t.Errorf("Expected dest hash 0xabc123, got %s", result.DestTxHash)
	}
	if result.ExplorerURL != "https://holesky.etherscan.io/tx/0xabc123" {
		t.Errorf("Unexpected explorer URL: %s", result.ExplorerURL)
	}
	if cust.LockCalls != 1 {
		t.Errorf("Expected exactly one lock submission, got %d", cust.LockCalls)
	}
}

func TestBridge_ValidationFailureMakesNoRemoteCalls(t *testing.T) {
	gateway := &MockGateway{}
	builder := &MockBuilder{}
	cust := &MockCustodian{}

	o := newTestOrchestrator(gateway, builder, cust, &MockStore{})

	req := validRequest()
	req.FromToken = "DOGE"

	_, err := o.Bridge(context.Background(), req, nil)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	var bridgeErr *Error
	if !errors.As(err, &bridgeErr) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if bridgeErr.Kind != KindValidation {
		t.Errorf("Expected validation kind, got %s", bridgeErr.Kind)
	}
	if gateway.AccountCalls != 0 || builder.BuildCalls != 0 || cust.LockCalls != 0 {
		t.Error("Validation failure must not trigger remote calls")
	}
}

func TestBridge_ProgressIsMonotonicAndEndsAt100(t *testing.T) {
	o := newTestOrchestrator(&MockGateway{}, &MockBuilder{}, &MockCustodian{}, &MockStore{})

	var seen []int
	observe := func(stage Stage, percent int) {
		seen = append(seen, percent)
	}

	if _, err := o.Bridge(context.Background(), validRequest(), observe); err != nil {
		t.Fatalf("Bridge failed: %v", err)
	}

	if len(seen) == 0 {
		t.Fatal("Expected progress updates")
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Errorf("Progress decreased: %v", seen)
		}
	}
	if seen[len(seen)-1] != 100 {
		t.Errorf("Expected final progress 100, got %d", seen[len(seen)-1])
	}
}

func TestBridge_BuildUsesFreshSequence(t *testing.T) {
	sequence := int64(7)
	gateway := &MockGateway{
		FetchAccountFunc: func(ctx context.Context, net stellar.Network, address string) (*stellar.AccountSnapshot, error) {
			sequence++
			return &stellar.AccountSnapshot{Sequence: sequence}, nil
		},
	}
	var built []int64
	builder := &MockBuilder{
		BuildFunc: func(ctx context.Context, net stellar.Network, params stellar.LockParams, account *stellar.AccountSnapshot) (*stellar.LockTransaction, error) {
			built = append(built, account.Sequence)
			return &stellar.LockTransaction{XDR: "AAAA", SourceSequence: account.Sequence + 1}, nil
		},
	}

	o := newTestOrchestrator(gateway, builder, &MockCustodian{}, &MockStore{})

	for i := 0; i < 2; i++ {
		if _, err := o.Bridge(context.Background(), validRequest(), nil); err != nil {
			t.Fatalf("Bridge failed: %v", err)
		}
	}

	if gateway.AccountCalls != 2 {
		t.Errorf("Expected a fresh account fetch per attempt, got %d", gateway.AccountCalls)
	}
	if len(built) != 2 || built[0] == built[1] {
		t.Errorf("Expected distinct sequences per attempt, got %v", built)
	}
}

func TestBridge_AccountNotFound(t *testing.T) {
	gateway := &MockGateway{
		FetchAccountFunc: func(ctx context.Context, net stellar.Network, address string) (*stellar.AccountSnapshot, error) {
			return nil, stellar.ErrAccountNotFound
		},
	}
	cust := &MockCustodian{}

	o := newTestOrchestrator(gateway, &MockBuilder{}, cust, &MockStore{})

	_, err := o.Bridge(context.Background(), validRequest(), nil)
	var bridgeErr *Error
	if !errors.As(err, &bridgeErr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if bridgeErr.Kind != KindAccountNotFound {
		t.Errorf("Expected account_not_found, got %s", bridgeErr.Kind)
	}
	if bridgeErr.Locked() {
		t.Error("Pre-lock failure must not report locked funds")
	}
	if cust.LockCalls != 0 {
		t.Error("No lock submission expected after account fetch failure")
	}
}

func TestBridge_SimulationRejected(t *testing.T) {
	builder := &MockBuilder{
		BuildFunc: func(ctx context.Context, net stellar.Network, params stellar.LockParams, account *stellar.AccountSnapshot) (*stellar.LockTransaction, error) {
			return nil, &stellar.SimulationRejectedError{Reason: "insufficient balance"}
		},
	}

	o := newTestOrchestrator(&MockGateway{}, builder, &MockCustodian{}, &MockStore{})

	_, err := o.Bridge(context.Background(), validRequest(), nil)
	var bridgeErr *Error
	if !errors.As(err, &bridgeErr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if bridgeErr.Kind != KindSimulationRejected {
		t.Errorf("Expected simulation_rejected, got %s", bridgeErr.Kind)
	}
}

func TestBridge_ReleaseFailurePreservesLockHash(t *testing.T) {
	cust := &MockCustodian{
		LockOnSourceFunc: func(ctx context.Context, envelopeXDR, networkName string) (*custodian.Receipt, error) {
			return &custodian.Receipt{Hash: "deadbeef"}, nil
		},
		IndexAndReleaseFunc: func(ctx context.Context, ledger uint32, destChainID string) (string, error) {
			return "", fmt.Errorf("release backend unavailable")
		},
	}

	var failedLockHash string
	store := &MockStore{
		FailAttemptFunc: func(ctx context.Context, id string, stage Stage, kind Kind, message, lockHash string) error {
			failedLockHash = lockHash
			return nil
		},
	}

	o := newTestOrchestrator(&MockGateway{}, &MockBuilder{}, cust, store)

	result, err := o.Bridge(context.Background(), validRequest(), nil)
	var bridgeErr *Error
	if !errors.As(err, &bridgeErr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if bridgeErr.Kind != KindRelease {
		t.Errorf("Expected release kind, got %s", bridgeErr.Kind)
	}
	if !bridgeErr.Locked() || bridgeErr.LockHash != "deadbeef" {
		t.Errorf("Expected preserved lock hash deadbeef, got %q", bridgeErr.LockHash)
	}
	if result.SourceTxHash != "deadbeef" {
		t.Errorf("Expected lock hash in result, got %q", result.SourceTxHash)
	}
	if result.DestTxHash != "" {
		t.Errorf("Expected no dest hash, got %q", result.DestTxHash)
	}
	if failedLockHash != "deadbeef" {
		t.Errorf("Expected lock hash recorded on failure, got %q", failedLockHash)
	}
	if cust.LockCalls != 1 {
		t.Errorf("Expected exactly one lock submission, got %d", cust.LockCalls)
	}
}

func TestBridge_MalformedDestHashFailsRelease(t *testing.T) {
	cust := &MockCustodian{
		IndexAndReleaseFunc: func(ctx context.Context, ledger uint32, destChainID string) (string, error) {
			return "not-a-hash", nil
		},
	}

	o := newTestOrchestrator(&MockGateway{}, &MockBuilder{}, cust, &MockStore{})

	_, err := o.Bridge(context.Background(), validRequest(), nil)
	var bridgeErr *Error
	if !errors.As(err, &bridgeErr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if bridgeErr.Kind != KindRelease {
		t.Errorf("Expected release kind, got %s", bridgeErr.Kind)
	}
	if !bridgeErr.Locked() {
		t.Error("Malformed release hash still means funds are locked")
	}
}

func TestBridge_ConfirmationFailurePreservesLockHash(t *testing.T) {
	gateway := &MockGateway{
		FetchTransactionFunc: func(ctx context.Context, net stellar.Network, hash string) (*stellar.LedgerTransaction, error) {
			return nil, stellar.ErrTransactionNotFound
		},
	}
	cust := &MockCustodian{}

	o := newTestOrchestrator(gateway, &MockBuilder{}, cust, &MockStore{})

	_, err := o.Bridge(context.Background(), validRequest(), nil)
	var bridgeErr *Error
	if !errors.As(err, &bridgeErr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if bridgeErr.Kind != KindConfirmation {
		t.Errorf("Expected confirmation kind, got %s", bridgeErr.Kind)
	}
	if bridgeErr.LockHash != "lockhash" {
		t.Errorf("Expected preserved lock hash, got %q", bridgeErr.LockHash)
	}
	if cust.ReleaseCalls != 0 {
		t.Error("No release expected when confirmation fails")
	}
}

func TestBridge_SigningFailureHasNoLockHash(t *testing.T) {
	cust := &MockCustodian{
		LockOnSourceFunc: func(ctx context.Context, envelopeXDR, networkName string) (*custodian.Receipt, error) {
			return nil, fmt.Errorf("signer consensus failure")
		},
	}

	o := newTestOrchestrator(&MockGateway{}, &MockBuilder{}, cust, &MockStore{})

	_, err := o.Bridge(context.Background(), validRequest(), nil)
	var bridgeErr *Error
	if !errors.As(err, &bridgeErr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if bridgeErr.Kind != KindSigning {
		t.Errorf("Expected signing kind, got %s", bridgeErr.Kind)
	}
	if bridgeErr.Locked() {
		t.Error("Ambiguous signing failure must not claim a confirmed lock")
	}
}

func TestBridge_StoreFailuresDoNotAbort(t *testing.T) {
	store := &MockStore{
		CreateAttemptFunc: func(ctx context.Context, attempt *Attempt) error {
			return fmt.Errorf("db down")
		},
		UpdateAttemptStageFunc: func(ctx context.Context, id string, stage Stage, progress int) error {
			return fmt.Errorf("db down")
		},
		CompleteAttemptFunc: func(ctx context.Context, id string, lockHash, destHash string) error {
			return fmt.Errorf("db down")
		},
	}

	o := newTestOrchestrator(&MockGateway{}, &MockBuilder{}, &MockCustodian{}, store)

	result, err := o.Bridge(context.Background(), validRequest(), nil)
	if err != nil {
		t.Fatalf("Store failures must not fail the attempt: %v", err)
	}
	if !result.Success {
		t.Error("Expected success despite store failures")
	}
}

func TestBridge_CancelDuringSettleDelay(t *testing.T) {
	o := NewOrchestrator(&MockGateway{}, &MockBuilder{}, &MockCustodian{}, &MockStore{}, zap.NewNop(), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := o.Bridge(ctx, validRequest(), nil)
	var bridgeErr *Error
	if !errors.As(err, &bridgeErr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if bridgeErr.Kind != KindRelease {
		t.Errorf("Expected release kind on cancellation, got %s", bridgeErr.Kind)
	}
	if !bridgeErr.Locked() {
		t.Error("Cancellation after lock must preserve the lock hash")
	}
}
