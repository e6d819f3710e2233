package custodian

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/koshlabs/stellar-evm-bridge/pkg/config"
)

type rpcRequest struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
	ID     any            `json:"id"`
}

func rpcServer(t *testing.T, handle func(req rpcRequest) (any, map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode rpc request: %v", err)
		}

		result, rpcErr := handle(req)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(endpoint string) *Client {
	return NewClient(&config.CustodianConfig{
		Endpoint:       endpoint,
		RequestTimeout: time.Second,
	}, zap.NewNop())
}

func TestLockOnSource(t *testing.T) {
	srv := rpcServer(t, func(req rpcRequest) (any, map[string]any) {
		if req.Method != "lockOnSource" {
			t.Errorf("Expected lockOnSource, got %s", req.Method)
		}
		if req.Params["transaction"] != "AAAA" {
			t.Errorf("Unexpected transaction param: %v", req.Params["transaction"])
		}
		if req.Params["network"] != "testnet" {
			t.Errorf("Unexpected network param: %v", req.Params["network"])
		}
		return map[string]any{"hash": "deadbeef", "raw": "signed-envelope"}, nil
	})
	defer srv.Close()

	receipt, err := newTestClient(srv.URL).LockOnSource(context.Background(), "AAAA", "testnet")
	if err != nil {
		t.Fatalf("LockOnSource failed: %v", err)
	}
	if receipt.Hash != "deadbeef" {
		t.Errorf("Expected hash deadbeef, got %s", receipt.Hash)
	}
}

func TestLockOnSource_EmptyHashRejected(t *testing.T) {
	srv := rpcServer(t, func(req rpcRequest) (any, map[string]any) {
		return map[string]any{"hash": ""}, nil
	})
	defer srv.Close()

	_, err := newTestClient(srv.URL).LockOnSource(context.Background(), "AAAA", "testnet")
	if err == nil {
		t.Fatal("Expected error for missing hash")
	}
}

func TestLockOnSource_RPCError(t *testing.T) {
	srv := rpcServer(t, func(req rpcRequest) (any, map[string]any) {
		return nil, map[string]any{"code": -32000, "message": "signer quorum not reached"}
	})
	defer srv.Close()

	_, err := newTestClient(srv.URL).LockOnSource(context.Background(), "AAAA", "testnet")
	if err == nil {
		t.Fatal("Expected rpc error")
	}
}

func TestIndexAndRelease(t *testing.T) {
	srv := rpcServer(t, func(req rpcRequest) (any, map[string]any) {
		if req.Method != "indexAndRelease" {
			t.Errorf("Expected indexAndRelease, got %s", req.Method)
		}
		if req.Params["ledger"] != float64(1234) {
			t.Errorf("Unexpected ledger param: %v", req.Params["ledger"])
		}
		if req.Params["dest_chain"] != "17000" {
			t.Errorf("Unexpected dest_chain param: %v", req.Params["dest_chain"])
		}
		return "0xdesthash", nil
	})
	defer srv.Close()

	hash, err := newTestClient(srv.URL).IndexAndRelease(context.Background(), 1234, "17000")
	if err != nil {
		t.Fatalf("IndexAndRelease failed: %v", err)
	}
	if hash != "0xdesthash" {
		t.Errorf("Expected 0xdesthash, got %s", hash)
	}
}
