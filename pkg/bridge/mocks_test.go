package bridge

import (
	"context"

	"github.com/koshlabs/stellar-evm-bridge/pkg/custodian"
	"github.com/koshlabs/stellar-evm-bridge/pkg/stellar"
)

// MockGateway is a mock implementation of Gateway
type MockGateway struct {
	FetchAccountFunc     func(ctx context.Context, net stellar.Network, address string) (*stellar.AccountSnapshot, error)
	FetchTransactionFunc func(ctx context.Context, net stellar.Network, hash string) (*stellar.LedgerTransaction, error)
	AccountCalls         int
	TransactionCalls     int
}

func (m *MockGateway) FetchAccount(ctx context.Context, net stellar.Network, address string) (*stellar.AccountSnapshot, error) {
	m.AccountCalls++
	if m.FetchAccountFunc != nil {
		return m.FetchAccountFunc(ctx, net, address)
	}
	return &stellar.AccountSnapshot{Sequence: 1}, nil
}

func (m *MockGateway) FetchTransaction(ctx context.Context, net stellar.Network, hash string) (*stellar.LedgerTransaction, error) {
	m.TransactionCalls++
	if m.FetchTransactionFunc != nil {
		return m.FetchTransactionFunc(ctx, net, hash)
	}
	return &stellar.LedgerTransaction{Ledger: 100}, nil
}

// MockBuilder is a mock implementation of Builder
type MockBuilder struct {
	BuildFunc  func(ctx context.Context, net stellar.Network, params stellar.LockParams, account *stellar.AccountSnapshot) (*stellar.LockTransaction, error)
	BuildCalls int
	LastParams stellar.LockParams
}

func (m *MockBuilder) Build(ctx context.Context, net stellar.Network, params stellar.LockParams, account *stellar.AccountSnapshot) (*stellar.LockTransaction, error) {
	m.BuildCalls++
	m.LastParams = params
	if m.BuildFunc != nil {
		return m.BuildFunc(ctx, net, params, account)
	}
	return &stellar.LockTransaction{XDR: "AAAA", SourceSequence: account.Sequence + 1}, nil
}

// MockCustodian is a mock implementation of Custodian
type MockCustodian struct {
	LockOnSourceFunc    func(ctx context.Context, envelopeXDR, networkName string) (*custodian.Receipt, error)
	IndexAndReleaseFunc func(ctx context.Context, ledger uint32, destChainID string) (string, error)
	LockCalls           int
	ReleaseCalls        int
}

func (m *MockCustodian) LockOnSource(ctx context.Context, envelopeXDR, networkName string) (*custodian.Receipt, error) {
	m.LockCalls++
	if m.LockOnSourceFunc != nil {
		return m.LockOnSourceFunc(ctx, envelopeXDR, networkName)
	}
	return &custodian.Receipt{Hash: "lockhash"}, nil
}

func (m *MockCustodian) IndexAndRelease(ctx context.Context, ledger uint32, destChainID string) (string, error) {
	m.ReleaseCalls++
	if m.IndexAndReleaseFunc != nil {
		return m.IndexAndReleaseFunc(ctx, ledger, destChainID)
	}
	return "0xdesthash", nil
}

// MockStore is a mock implementation of AttemptStore
type MockStore struct {
	CreateAttemptFunc      func(ctx context.Context, attempt *Attempt) error
	UpdateAttemptStageFunc func(ctx context.Context, id string, stage Stage, progress int) error
	SetAttemptLockHashFunc func(ctx context.Context, id string, lockHash string) error
	CompleteAttemptFunc    func(ctx context.Context, id string, lockHash, destHash string) error
	FailAttemptFunc        func(ctx context.Context, id string, stage Stage, kind Kind, message, lockHash string) error
}

func (m *MockStore) CreateAttempt(ctx context.Context, attempt *Attempt) error {
	if m.CreateAttemptFunc != nil {
		return m.CreateAttemptFunc(ctx, attempt)
	}
	return nil
}

func (m *MockStore) UpdateAttemptStage(ctx context.Context, id string, stage Stage, progress int) error {
	if m.UpdateAttemptStageFunc != nil {
		return m.UpdateAttemptStageFunc(ctx, id, stage, progress)
	}
	return nil
}

func (m *MockStore) SetAttemptLockHash(ctx context.Context, id string, lockHash string) error {
	if m.SetAttemptLockHashFunc != nil {
		return m.SetAttemptLockHashFunc(ctx, id, lockHash)
	}
	return nil
}

func (m *MockStore) CompleteAttempt(ctx context.Context, id string, lockHash, destHash string) error {
	if m.CompleteAttemptFunc != nil {
		return m.CompleteAttemptFunc(ctx, id, lockHash, destHash)
	}
	return nil
}

func (m *MockStore) FailAttempt(ctx context.Context, id string, stage Stage, kind Kind, message, lockHash string) error {
	if m.FailAttemptFunc != nil {
		return m.FailAttemptFunc(ctx, id, stage, kind, message, lockHash)
	}
	return nil
}
