package stellar

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Account and transaction lookups fail with these sentinels so the
// orchestrator can tell "does not exist" from "read failed".
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidAddress      = errors.New("invalid address")
)

// SimulationRejectedError means the ledger's simulate step refused the
// built transaction, for example on insufficient balance.
type SimulationRejectedError struct {
	Reason string
}

func (e *SimulationRejectedError) Error() string {
	return fmt.Sprintf("simulation rejected: %s", e.Reason)
}

// AccountSnapshot is the live account state used to build exactly one
// transaction. Sequence numbers are single-use; snapshots are fetched
// fresh per attempt and never cached.
type AccountSnapshot struct {
	Sequence int64
	Balances []Balance
}

// Balance is one asset line on an account.
type Balance struct {
	Asset  string
	Amount string
}

// LedgerTransaction is the minimal view of a confirmed transaction
// needed to scope the indexing query.
type LedgerTransaction struct {
	Ledger      uint32
	EnvelopeXDR string
}

// LockParams are the caller-supplied inputs of the lock contract
// invocation. The contract binds them positionally: source, source
// token, destination token, amount, chain id bytes, recipient (the
// source token comes from the resolved Network).
type LockParams struct {
	Source      string
	DestToken   string
	Amount      decimal.Decimal
	DestChainID string
	Recipient   string
}

// LockTransaction is a serialized, simulated, still-unsigned lock
// invocation. It is owned by exactly one in-flight attempt: the embedded
// sequence number makes it single-use.
type LockTransaction struct {
	XDR        string
	ContractID string
	Passphrase string
	// SourceSequence is the account sequence the envelope was built
	// from, as returned by the account fetch for this attempt.
	SourceSequence int64
}
