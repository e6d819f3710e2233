package bridge

import (
	"fmt"
	"net/http"
)

// Kind classifies a bridge failure. Validation and build failures are
// local and happen before any funds move; signing, confirmation and
// release failures can leave funds locked on the source chain.
type Kind string

const (
	// KindValidation is bad or unsupported input; nothing was sent anywhere.
	KindValidation Kind = "validation"
	// KindAccountNotFound means the source account does not exist on the ledger.
	KindAccountNotFound Kind = "account_not_found"
	// KindGateway is a non-404 failure reading from the source ledger.
	KindGateway Kind = "gateway"
	// KindBuild is a local failure assembling the lock transaction
	// (invalid address, serialization).
	KindBuild Kind = "build"
	// KindSimulationRejected means the ledger's dry run refused the
	// transaction, typically insufficient balance or a malformed call.
	KindSimulationRejected Kind = "simulation_rejected"
	// KindSigning means the custodial backend declined or failed to
	// submit the lock transaction.
	KindSigning Kind = "signing"
	// KindConfirmation means no ledger number could be resolved for a
	// confirmed lock hash. Funds are locked.
	KindConfirmation Kind = "confirmation"
	// KindRelease means the index-and-release step failed or returned a
	// malformed destination hash. Funds are locked.
	KindRelease Kind = "release"
	// KindNetwork is a generic transport failure on a remote call.
	KindNetwork Kind = "network"
)

// Error is the typed failure of a bridge attempt. Stage records where
// the pipeline stopped; LockHash is set for post-lock failures so
// callers can distinguish "nothing happened" from "funds are locked
// but not released".
type Error struct {
	Kind     Kind
	Stage    Stage
	Message  string
	LockHash string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Locked reports whether the failure happened after a confirmed lock,
// i.e. funds are escrowed on the source chain and need manual follow-up.
func (e *Error) Locked() bool {
	return e.LockHash != ""
}

// StatusCode maps the failure kind to an HTTP status for the API layer.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation, KindBuild:
		return http.StatusBadRequest
	case KindAccountNotFound:
		return http.StatusNotFound
	case KindSimulationRejected:
		return http.StatusUnprocessableEntity
	case KindGateway, KindSigning, KindConfirmation, KindRelease:
		return http.StatusBadGateway
	case KindNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, stage Stage, lockHash, message string, err error) *Error {
	return &Error{
		Kind:     kind,
		Stage:    stage,
		Message:  message,
		LockHash: lockHash,
		Err:      err,
	}
}
