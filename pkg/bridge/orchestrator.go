package bridge

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/koshlabs/stellar-evm-bridge/internal/metrics"
	"github.com/koshlabs/stellar-evm-bridge/pkg/custodian"
	"github.com/koshlabs/stellar-evm-bridge/pkg/stellar"
)

// Gateway reads account and transaction state from the source ledger.
// All methods are idempotent and safe to retry.
type Gateway interface {
	FetchAccount(ctx context.Context, net stellar.Network, address string) (*stellar.AccountSnapshot, error)
	FetchTransaction(ctx context.Context, net stellar.Network, hash string) (*stellar.LedgerTransaction, error)
}

// Builder constructs and simulates the unsigned lock transaction.
type Builder interface {
	Build(ctx context.Context, net stellar.Network, params stellar.LockParams, account *stellar.AccountSnapshot) (*stellar.LockTransaction, error)
}

// Custodian is the custodial signing backend.
type Custodian interface {
	LockOnSource(ctx context.Context, envelopeXDR, networkName string) (*custodian.Receipt, error)
	IndexAndRelease(ctx context.Context, ledger uint32, destChainID string) (string, error)
}

// AttemptStore persists attempt records. Store failures are logged but
// never abort the pipeline; the record is an audit trail, not a
// participant.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, attempt *Attempt) error
	UpdateAttemptStage(ctx context.Context, id string, stage Stage, progress int) error
	SetAttemptLockHash(ctx context.Context, id string, lockHash string) error
	CompleteAttempt(ctx context.Context, id string, lockHash, destHash string) error
	FailAttempt(ctx context.Context, id string, stage Stage, kind Kind, message, lockHash string) error
}

var destHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]+$`)

// Orchestrator drives one bridge attempt through the lock, index and
// release pipeline. It never retries a lock submission: re-locking after
// an ambiguous failure would double-spend, so post-lock failures
// terminate with the lock hash preserved for manual recovery.
//
// The orchestrator runs one attempt per Bridge call and keeps no state
// across attempts. It does not deduplicate concurrent attempts for the
// same request; that is the caller's responsibility.
type Orchestrator struct {
	gateway     Gateway
	builder     Builder
	custodian   Custodian
	store       AttemptStore
	logger      *zap.Logger
	settleDelay time.Duration
}

// NewOrchestrator wires the pipeline dependencies.
func NewOrchestrator(
	gateway Gateway,
	builder Builder,
	cust Custodian,
	store AttemptStore,
	logger *zap.Logger,
	settleDelay time.Duration,
) *Orchestrator {
	return &Orchestrator{
		gateway:     gateway,
		builder:     builder,
		custodian:   cust,
		store:       store,
		logger:      logger,
		settleDelay: settleDelay,
	}
}

// attempt carries the mutable pipeline context of one run. The lock
// hash lives here, threaded explicitly between steps, never in shared
// state.
type attempt struct {
	id       string
	req      Request
	net      stellar.Network
	stage    Stage
	progress int
	observe  ProgressFunc
	lockHash string
}

// Bridge runs one attempt to completion. The returned Result is
// non-nil for success and failure alike; on failure the typed *Error is
// returned alongside it with the stage reached and, post-lock, the
// preserved lock hash.
func (o *Orchestrator) Bridge(ctx context.Context, req Request, observe ProgressFunc) (*Result, error) {
	a := &attempt{
		id:      uuid.NewString(),
		req:     req,
		observe: observe,
	}

	metrics.AttemptsInFlight.Inc()
	defer metrics.AttemptsInFlight.Dec()

	o.logger.Info("Starting bridge attempt",
		zap.String("attempt_id", a.id),
		zap.String("user", req.UserAddress),
		zap.String("dest_chain", req.DestChain),
		zap.String("amount", req.Amount.String()))

	o.recordCreate(ctx, a)

	res, bridgeErr := o.run(ctx, a)
	if bridgeErr != nil {
		o.fail(ctx, a, bridgeErr)
		return res, bridgeErr
	}

	o.transition(ctx, a, StageCompleted, progressCompleted)
	if err := o.store.CompleteAttempt(ctx, a.id, res.SourceTxHash, res.DestTxHash); err != nil {
		o.logger.Warn("Failed to record completed attempt", zap.String("attempt_id", a.id), zap.Error(err))
	}
	metrics.AttemptsTotal.WithLabelValues(req.DestChain, "completed").Inc()
	amt, _ := req.Amount.Float64()
	metrics.AmountBridged.WithLabelValues(req.DestChain).Observe(amt)

	o.logger.Info("Bridge attempt completed",
		zap.String("attempt_id", a.id),
		zap.String("lock_tx", res.SourceTxHash),
		zap.String("dest_tx", res.DestTxHash))
	return res, nil
}

// run executes the pipeline stages in order and returns the terminal
// result. Every transition is strictly forward; progress values are
// fixed checkpoints.
func (o *Orchestrator) run(ctx context.Context, a *attempt) (*Result, *Error) {
	// Validating
	o.transition(ctx, a, StageValidating, progressValidating)
	if verr := Validate(a.req); verr != nil {
		return o.failureResult(a), verr
	}
	a.net = stellar.Resolve(a.req.DestChain)

	// BuildingTransaction
	o.transition(ctx, a, StageBuildingTransaction, progressBuilding)
	stageStart := time.Now()

	account, err := o.gateway.FetchAccount(ctx, a.net, a.req.UserAddress)
	if err != nil {
		metrics.RemoteErrors.WithLabelValues("horizon_account", "fetch").Inc()
		if errors.Is(err, stellar.ErrAccountNotFound) {
			return o.failureResult(a), newError(KindAccountNotFound, a.stage, "",
				fmt.Sprintf("account %s not found on %s", a.req.UserAddress, a.net.Name), err)
		}
		return o.failureResult(a), newError(KindGateway, a.stage, "", "account fetch failed", err)
	}

	lockTx, err := o.builder.Build(ctx, a.net, stellar.LockParams{
		Source:      a.req.UserAddress,
		DestToken:   a.req.DestToken,
		Amount:      a.req.Amount,
		DestChainID: a.req.DestChain,
		Recipient:   a.req.RecipientAddress,
	}, account)
	if err != nil {
		return o.failureResult(a), o.classifyBuildError(a, err)
	}
	metrics.StageDuration.WithLabelValues(string(StageBuildingTransaction)).Observe(time.Since(stageStart).Seconds())
	o.emit(a, StageBuildingTransaction, progressBuilt)

	// AwaitingLock: exactly one lock submission per attempt.
	o.transition(ctx, a, StageAwaitingLock, progressAwaitingLock)
	stageStart = time.Now()
	receipt, err := o.custodian.LockOnSource(ctx, lockTx.XDR, a.net.Name)
	if err != nil {
		metrics.RemoteErrors.WithLabelValues("custodian_lock", "call").Inc()
		return o.failureResult(a), newError(KindSigning, a.stage, "", "custodial lock submission failed", err)
	}
	a.lockHash = receipt.Hash
	metrics.StageDuration.WithLabelValues(string(StageAwaitingLock)).Observe(time.Since(stageStart).Seconds())

	// LockConfirmed: from here on every failure keeps the lock hash.
	o.transition(ctx, a, StageLockConfirmed, progressLockConfirmed)
	if err := o.store.SetAttemptLockHash(ctx, a.id, a.lockHash); err != nil {
		o.logger.Warn("Failed to record lock hash", zap.String("attempt_id", a.id), zap.Error(err))
	}

	ledgerTx, err := o.gateway.FetchTransaction(ctx, a.net, a.lockHash)
	if err != nil {
		metrics.RemoteErrors.WithLabelValues("horizon_transaction", "fetch").Inc()
		return o.failureResult(a), newError(KindConfirmation, a.stage, a.lockHash,
			"could not resolve ledger number for confirmed lock", err)
	}

	// Indexing: wait out the settling delay before asking for release,
	// so the lock is final on the source chain.
	o.transition(ctx, a, StageIndexing, progressIndexing)
	select {
	case <-time.After(o.settleDelay):
	case <-ctx.Done():
		return o.failureResult(a), newError(KindRelease, a.stage, a.lockHash,
			"cancelled while waiting for source-chain finality", ctx.Err())
	}

	// AwaitingRelease
	o.transition(ctx, a, StageAwaitingRelease, progressAwaitingRel)
	stageStart = time.Now()
	destHash, err := o.custodian.IndexAndRelease(ctx, ledgerTx.Ledger, a.req.DestChain)
	if err != nil {
		metrics.RemoteErrors.WithLabelValues("custodian_release", "call").Inc()
		return o.failureResult(a), newError(KindRelease, a.stage, a.lockHash, "index and release failed", err)
	}
	if !destHashPattern.MatchString(destHash) {
		return o.failureResult(a), newError(KindRelease, a.stage, a.lockHash,
			fmt.Sprintf("release returned malformed destination hash %q", destHash), nil)
	}
	metrics.StageDuration.WithLabelValues(string(StageAwaitingRelease)).Observe(time.Since(stageStart).Seconds())

	return &Result{
		Success:         true,
		SourceTxHash:    a.lockHash,
		DestTxHash:      destHash,
		ExplorerURL:     a.net.ExplorerURL(destHash),
		LockExplorerURL: a.net.LockExplorerURL(a.lockHash),
		Amount:          a.req.Amount,
		Token:           a.req.DestToken,
		Recipient:       a.req.RecipientAddress,
	}, nil
}

// classifyBuildError maps builder failures onto the error taxonomy.
func (o *Orchestrator) classifyBuildError(a *attempt, err error) *Error {
	var simErr *stellar.SimulationRejectedError
	switch {
	case errors.As(err, &simErr):
		metrics.RemoteErrors.WithLabelValues("soroban_simulate", "rejected").Inc()
		return newError(KindSimulationRejected, a.stage, "", simErr.Reason, err)
	case errors.Is(err, stellar.ErrInvalidAddress):
		return newError(KindBuild, a.stage, "", "invalid address in lock transaction", err)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindNetwork, a.stage, "", "transaction preparation timed out", err)
	default:
		return newError(KindBuild, a.stage, "", "failed to build lock transaction", err)
	}
}

// failureResult assembles the partial result for a failed attempt. A
// non-empty SourceTxHash with Success=false signals locked-but-not-
// released funds.
func (o *Orchestrator) failureResult(a *attempt) *Result {
	res := &Result{
		Success:   false,
		Amount:    a.req.Amount,
		Token:     a.req.DestToken,
		Recipient: a.req.RecipientAddress,
	}
	if a.lockHash != "" {
		res.SourceTxHash = a.lockHash
		res.LockExplorerURL = a.net.LockExplorerURL(a.lockHash)
	}
	return res
}

func (o *Orchestrator) transition(ctx context.Context, a *attempt, stage Stage, progress int) {
	a.stage = stage
	o.emit(a, stage, progress)
	o.logger.Debug("Stage transition",
		zap.String("attempt_id", a.id),
		zap.String("stage", string(stage)),
		zap.Int("progress", progress))
	if err := o.store.UpdateAttemptStage(ctx, a.id, stage, progress); err != nil {
		o.logger.Warn("Failed to record stage transition", zap.String("attempt_id", a.id), zap.Error(err))
	}
}

// emit forwards a checkpoint to the observer, clamped so observed
// progress never decreases even if checkpoints are reordered by a
// future edit.
func (o *Orchestrator) emit(a *attempt, stage Stage, progress int) {
	if progress < a.progress {
		progress = a.progress
	}
	a.progress = progress
	if a.observe != nil {
		a.observe(stage, progress)
	}
}

func (o *Orchestrator) recordCreate(ctx context.Context, a *attempt) {
	now := time.Now().UTC()
	record := &Attempt{
		ID:          a.id,
		Status:      AttemptStatusRunning,
		Stage:       StageValidating,
		Progress:    0,
		UserAddress: a.req.UserAddress,
		FromToken:   a.req.FromToken,
		DestToken:   a.req.DestToken,
		DestChain:   a.req.DestChain,
		Recipient:   a.req.RecipientAddress,
		Amount:      a.req.Amount.String(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.store.CreateAttempt(ctx, record); err != nil {
		o.logger.Warn("Failed to record attempt", zap.String("attempt_id", a.id), zap.Error(err))
	}
}

func (o *Orchestrator) fail(ctx context.Context, a *attempt, bridgeErr *Error) {
	o.emit(a, StageFailed, a.progress)
	metrics.AttemptsTotal.WithLabelValues(a.req.DestChain, string(bridgeErr.Kind)).Inc()
	if bridgeErr.Locked() {
		metrics.LockedUnreleased.Inc()
		o.logger.Error("Bridge attempt failed after lock; funds locked, manual follow-up required",
			zap.String("attempt_id", a.id),
			zap.String("stage", string(bridgeErr.Stage)),
			zap.String("lock_tx", bridgeErr.LockHash),
			zap.Error(bridgeErr))
	} else {
		o.logger.Error("Bridge attempt failed",
			zap.String("attempt_id", a.id),
			zap.String("stage", string(bridgeErr.Stage)),
			zap.Error(bridgeErr))
	}
	if err := o.store.FailAttempt(ctx, a.id, bridgeErr.Stage, bridgeErr.Kind, bridgeErr.Message, bridgeErr.LockHash); err != nil {
		o.logger.Warn("Failed to record failed attempt", zap.String("attempt_id", a.id), zap.Error(err))
	}
}
