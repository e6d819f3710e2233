// Package bridge implements the Stellar to EVM bridge pipeline: request
// validation, lock transaction construction, custodial signing, and the
// index-and-release handoff, driven as an explicit state machine.
package bridge

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request describes one bridge transfer. It is immutable once validated.
type Request struct {
	UserAddress      string          `json:"user_address" validate:"required"`
	FromToken        string          `json:"from_token" validate:"required"`
	DestToken        string          `json:"dest_token" validate:"required"`
	Amount           decimal.Decimal `json:"amount" validate:"required"`
	DestChain        string          `json:"dest_chain" validate:"required"`
	RecipientAddress string          `json:"recipient_address" validate:"required"`
}

// Stage identifies where a bridge attempt is in its pipeline.
// Stages only move forward within one attempt.
type Stage string

const (
	StageValidating          Stage = "validating"
	StageBuildingTransaction Stage = "building_transaction"
	StageAwaitingLock        Stage = "awaiting_lock"
	StageLockConfirmed       Stage = "lock_confirmed"
	StageIndexing            Stage = "indexing"
	StageAwaitingRelease     Stage = "awaiting_release"
	StageCompleted           Stage = "completed"
	StageFailed              Stage = "failed"
)

// Progress checkpoints emitted on stage transitions. Values are fixed
// rather than interpolated; observers always see a non-decreasing
// sequence ending at 100 on success.
const (
	progressValidating    = 10
	progressBuilding      = 25
	progressBuilt         = 30
	progressAwaitingLock  = 40
	progressLockConfirmed = 50
	progressIndexing      = 70
	progressAwaitingRel   = 90
	progressCompleted     = 100
)

// ProgressFunc receives stage transitions for one attempt.
type ProgressFunc func(stage Stage, percent int)

// Result is the terminal outcome of a bridge attempt. It is produced
// exactly once, for success and failure alike; on failure the lock hash
// is preserved when the source-chain lock already happened.
type Result struct {
	Success         bool            `json:"success"`
	SourceTxHash    string          `json:"source_tx_hash,omitempty"`
	DestTxHash      string          `json:"dest_tx_hash,omitempty"`
	ExplorerURL     string          `json:"explorer_url,omitempty"`
	LockExplorerURL string          `json:"lock_explorer_url,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Token           string          `json:"token"`
	Recipient       string          `json:"recipient"`
}

// AttemptStatus mirrors the lifecycle of a stored attempt record.
type AttemptStatus string

const (
	AttemptStatusRunning   AttemptStatus = "running"
	AttemptStatusCompleted AttemptStatus = "completed"
	AttemptStatusFailed    AttemptStatus = "failed"
)

// Attempt is the persisted record of one bridge attempt. Post-lock
// failures keep the lock hash here so an operator can drive recovery.
type Attempt struct {
	ID           string
	Status       AttemptStatus
	Stage        Stage
	Progress     int
	UserAddress  string
	FromToken    string
	DestToken    string
	DestChain    string
	Recipient    string
	Amount       string
	LockTxHash   *string
	DestTxHash   *string
	ErrorKind    *string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}
