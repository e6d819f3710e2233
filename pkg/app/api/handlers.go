package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/koshlabs/stellar-evm-bridge/pkg/attemptstore"
	"github.com/koshlabs/stellar-evm-bridge/pkg/bridge"
	"github.com/koshlabs/stellar-evm-bridge/pkg/config"
	"github.com/koshlabs/stellar-evm-bridge/pkg/stellar"
)

const defaultListLimit = 50

type handler struct {
	orchestrator *bridge.Orchestrator
	store        attemptstore.Store
	cfg          *config.BridgeConfig
	logger       *zap.Logger
	validate     *validator.Validate
}

func newHandler(orchestrator *bridge.Orchestrator, store attemptstore.Store, cfg *config.BridgeConfig, logger *zap.Logger) *handler {
	return &handler{
		orchestrator: orchestrator,
		store:        store,
		cfg:          cfg,
		logger:       logger,
		validate:     validator.New(),
	}
}

// bridge runs one bridge attempt synchronously and returns the terminal
// result. Progress transitions are logged; clients polling for progress
// should use the attempts endpoints.
func (h *handler) bridge(w http.ResponseWriter, r *http.Request) error {
	var req bridge.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &bridge.Error{
			Kind:    bridge.KindValidation,
			Stage:   bridge.StageValidating,
			Message: fmt.Sprintf("invalid request body: %v", err),
		}
	}
	if err := h.validate.Struct(&req); err != nil {
		return &bridge.Error{
			Kind:    bridge.KindValidation,
			Stage:   bridge.StageValidating,
			Message: err.Error(),
		}
	}

	observe := func(stage bridge.Stage, percent int) {
		h.logger.Info("Bridge progress",
			zap.String("stage", string(stage)),
			zap.Int("percent", percent))
	}

	result, err := h.orchestrator.Bridge(r.Context(), req, observe)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, result)
}

func (h *handler) getAttempt(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")

	attempt, err := h.store.GetAttempt(r.Context(), id)
	if err != nil {
		if errors.Is(err, attemptstore.ErrAttemptNotFound) {
			http.Error(w, "attempt not found", http.StatusNotFound)
			return nil
		}
		return err
	}

	return writeJSON(w, http.StatusOK, toAttemptResponse(attempt))
}

func (h *handler) listAttempts(w http.ResponseWriter, r *http.Request) error {
	opts := []attemptstore.QueryOption{attemptstore.WithLimit(defaultListLimit)}

	if user := r.URL.Query().Get("user"); user != "" {
		opts = append(opts, attemptstore.WithUserAddress(user))
	}
	if status := r.URL.Query().Get("status"); status != "" {
		opts = append(opts, attemptstore.WithStatus(bridge.AttemptStatus(status)))
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return nil
		}
		opts = append(opts, attemptstore.WithLimit(limit))
	}

	attempts, err := h.store.ListAttempts(r.Context(), opts...)
	if err != nil {
		return err
	}

	response := make([]*attemptResponse, len(attempts))
	for i, attempt := range attempts {
		response[i] = toAttemptResponse(attempt)
	}
	return writeJSON(w, http.StatusOK, response)
}

// lockEvents is an operator endpoint: it queries the bridge contract's
// lock events around a ledger, for manual recovery of attempts that
// failed after the lock.
func (h *handler) lockEvents(w http.ResponseWriter, r *http.Request) error {
	destChain := r.URL.Query().Get("dest_chain")
	ledgerStr := r.URL.Query().Get("ledger")

	ledger, err := strconv.ParseUint(ledgerStr, 10, 32)
	if err != nil {
		http.Error(w, "invalid ledger", http.StatusBadRequest)
		return nil
	}

	net := stellar.Resolve(destChain)
	if net.DestChainName == "" {
		h.logger.Warn("Unknown destination chain, falling back to testnet deployment",
			zap.String("dest_chain", destChain))
	}
	rpc := stellar.NewSorobanClient(net.SorobanURL, h.cfg.SorobanTimeout)

	events, err := stellar.FetchLockEvents(r.Context(), rpc, net, uint32(ledger))
	if err != nil {
		return fmt.Errorf("fetch lock events: %w", err)
	}

	return writeJSON(w, http.StatusOK, map[string]any{
		"network": net.Name,
		"ledger":  ledger,
		"events":  events,
	})
}

type attemptResponse struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	Stage        string  `json:"stage"`
	Progress     int     `json:"progress"`
	UserAddress  string  `json:"user_address"`
	FromToken    string  `json:"from_token"`
	DestToken    string  `json:"dest_token"`
	DestChain    string  `json:"dest_chain"`
	Recipient    string  `json:"recipient"`
	Amount       string  `json:"amount"`
	LockTxHash   *string `json:"lock_tx_hash,omitempty"`
	DestTxHash   *string `json:"dest_tx_hash,omitempty"`
	ErrorKind    *string `json:"error_kind,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
	CompletedAt  *string `json:"completed_at,omitempty"`
}

func toAttemptResponse(attempt *bridge.Attempt) *attemptResponse {
	resp := &attemptResponse{
		ID:           attempt.ID,
		Status:       string(attempt.Status),
		Stage:        string(attempt.Stage),
		Progress:     attempt.Progress,
		UserAddress:  attempt.UserAddress,
		FromToken:    attempt.FromToken,
		DestToken:    attempt.DestToken,
		DestChain:    attempt.DestChain,
		Recipient:    attempt.Recipient,
		Amount:       attempt.Amount,
		LockTxHash:   attempt.LockTxHash,
		DestTxHash:   attempt.DestTxHash,
		ErrorKind:    attempt.ErrorKind,
		ErrorMessage: attempt.ErrorMessage,
		CreatedAt:    attempt.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    attempt.UpdatedAt.Format(time.RFC3339),
	}
	if attempt.CompletedAt != nil {
		completed := attempt.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &completed
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
