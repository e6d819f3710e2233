// Package http provides HTTP utilities including chi-compatible error handling
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/koshlabs/stellar-evm-bridge/pkg/bridge"
)

// HandlerFunc defines a function that returns an error for clean error handling
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// HandleError wraps an error-returning HandlerFunc into a standard http.HandlerFunc
// This allows using clean error-returning handlers with any router (chi, http.ServeMux, etc.)
//
// Usage with chi:
//
//	r.Post("/bridge", http.HandleError(handler.bridge))
func HandleError(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			DefaultErrorHandler(w, err)
		}
	}
}

// DefaultErrorHandler handles errors returned from HTTP handlers
func DefaultErrorHandler(w http.ResponseWriter, err error) {
	type errorResponse struct {
		ErrMsg      string `json:"error"`
		ErrMsgCode  int    `json:"code"`
		Kind        string `json:"kind,omitempty"`
		Stage       string `json:"stage,omitempty"`
		LockTxHash  string `json:"lock_tx_hash,omitempty"`
		FundsLocked bool   `json:"funds_locked,omitempty"`
	}

	w.Header().Set("Content-Type", "application/json")

	// Bridge failures carry their own status code and, post-lock, the
	// hash the operator needs for recovery.
	var bridgeErr *bridge.Error
	if errors.As(err, &bridgeErr) {
		w.WriteHeader(bridgeErr.StatusCode())
		_ = json.NewEncoder(w).Encode(&errorResponse{
			ErrMsg:      bridgeErr.Message,
			ErrMsgCode:  bridgeErr.StatusCode(),
			Kind:        string(bridgeErr.Kind),
			Stage:       string(bridgeErr.Stage),
			LockTxHash:  bridgeErr.LockHash,
			FundsLocked: bridgeErr.Locked(),
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(&errorResponse{
		ErrMsg:     "Unexpected Service Error",
		ErrMsgCode: http.StatusInternalServerError,
	})
}
