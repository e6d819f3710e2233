// Package attemptstore persists bridge attempt records. The store is an
// audit trail: the pipeline writes through it but never reads its own
// state back, so store failures must not abort an attempt.
package attemptstore

import (
	"context"
	"errors"

	"github.com/koshlabs/stellar-evm-bridge/pkg/bridge"
)

var ErrAttemptNotFound = errors.New("attempt not found")

// Store is the attempt persistence interface.
type Store interface {
	bridge.AttemptStore

	GetAttempt(ctx context.Context, id string) (*bridge.Attempt, error)
	ListAttempts(ctx context.Context, opts ...QueryOption) ([]*bridge.Attempt, error)
}

// QueryOptions filters attempt listings.
type QueryOptions struct {
	UserAddress *string
	Status      *bridge.AttemptStatus
	Limit       int
}

// QueryOption configures a ListAttempts call.
type QueryOption func(*QueryOptions)

// WithUserAddress filters attempts by the originating user address.
func WithUserAddress(address string) QueryOption {
	return func(o *QueryOptions) { o.UserAddress = &address }
}

// WithStatus filters attempts by lifecycle status.
func WithStatus(status bridge.AttemptStatus) QueryOption {
	return func(o *QueryOptions) { o.Status = &status }
}

// WithLimit caps the number of returned attempts.
func WithLimit(limit int) QueryOption {
	return func(o *QueryOptions) { o.Limit = limit }
}
