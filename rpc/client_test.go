package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

func newRPCServer(t *testing.T, handler func(req rpcRequest) (interface{}, *RPCError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		var req rpcRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		result, rpcErr := handler(req)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestGetAccount(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		if req.Method != "getAccount" {
			t.Fatalf("unexpected method %q", req.Method)
		}
		var params []string
		if err := json.Unmarshal(req.Params, &params); err != nil || len(params) != 1 {
			t.Fatalf("unexpected params %s", req.Params)
		}
		return Account{Address: params[0], Sequence: 41, Balance: 500}, nil
	})
	defer server.Close()

	client := NewClient(Config{URL: server.URL})
	account, err := client.GetAccount(context.Background(), "GABC")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Sequence != 41 || account.Balance != 500 {
		t.Fatalf("unexpected account %+v", account)
	}
}

func TestSendTransactionInlineError(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		return SendResult{Hash: "H1", ErrorResult: "tx_insufficient_fee"}, nil
	})
	defer server.Close()

	client := NewClient(Config{URL: server.URL})
	result, err := client.SendTransaction(context.Background(), "base64-envelope")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if result.Hash != "H1" || result.ErrorResult != "tx_insufficient_fee" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRPCErrorSurfaced(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		return nil, &RPCError{Code: -32601, Message: "method not found"}
	})
	defer server.Close()

	client := NewClient(Config{URL: server.URL})
	_, err := client.GetTransaction(context.Background(), "H1")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
	if rpcErr.Code != -32601 {
		t.Fatalf("unexpected code %d", rpcErr.Code)
	}
}

func TestTransportErrorIsNotRPCError(t *testing.T) {
	client := NewClient(Config{URL: "http://127.0.0.1:1"})
	_, err := client.GetAccount(context.Background(), "GABC")
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		t.Fatalf("transport failure misclassified as rpc error: %v", err)
	}
}

func TestSimulateCallDecodesReturnValue(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		if req.Method != "simulateTransaction" {
			t.Fatalf("unexpected method %q", req.Method)
		}
		return map[string]interface{}{"returnValue": []uint32{1, 2, 3}}, nil
	})
	defer server.Close()

	client := NewClient(Config{URL: server.URL})
	var ids []uint32
	if err := client.SimulateCall(context.Background(), "C1", "list_campaigns", nil, &ids); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(ids) != 3 || ids[2] != 3 {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestGetEventsSendsContractFilter(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		if req.Method != "getEvents" {
			t.Fatalf("unexpected method %q", req.Method)
		}
		var params []struct {
			StartLedger string `json:"startLedger"`
			Filters     []struct {
				Type        string   `json:"type"`
				ContractIDs []string `json:"contractIds"`
			} `json:"filters"`
			Limit int `json:"limit"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil || len(params) != 1 {
			t.Fatalf("unexpected params %s", req.Params)
		}
		p := params[0]
		if p.Limit != 50 || len(p.Filters) != 1 || p.Filters[0].ContractIDs[0] != "C1" {
			t.Fatalf("unexpected filter payload %+v", p)
		}
		return map[string]interface{}{"events": []map[string]interface{}{
			{"topic": []interface{}{"CampaignClosed", 4}, "value": []interface{}{true}, "ledger": 99},
		}}, nil
	})
	defer server.Close()

	client := NewClient(Config{URL: server.URL})
	events, err := client.GetEvents(context.Background(), "C1", 50)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	if len(events) != 1 || events[0].Ledger != 99 {
		t.Fatalf("unexpected events %+v", events)
	}
}
