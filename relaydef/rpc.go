package relaydef

import (
	"encoding/json"
	"errors"
	"fmt"
)

// JSONRPCVersion is the only version accepted in either direction.
const JSONRPCVersion = "2.0"

// RPCRequest is a JSON-RPC request, or a notification when ID is nil.
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      *int64          `json:"id,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification returns true if the request has no id, so no reply will be sent.
func (r RPCRequest) IsNotification() bool { return r.ID == nil }

// RPCReply is either an RPCResult or an RPCError.
type RPCReply interface {
	rpcReply()
	// ReplyID returns the raw JSON text of the reply's id.
	ReplyID() json.RawMessage
}

type RPCResult struct {
	ID     json.RawMessage
	Result json.RawMessage
}

type RPCError struct {
	ID      json.RawMessage
	Code    int
	Message string
	Data    json.RawMessage
}

func (RPCResult) rpcReply() {}
func (RPCError) rpcReply()  {}

func (r RPCResult) ReplyID() json.RawMessage { return r.ID }
func (r RPCError) ReplyID() json.RawMessage  { return r.ID }

// AsApplicationError converts the reply to the error taxonomy's form.
func (r RPCError) AsApplicationError() ApplicationError {
	var data []byte
	if !isAbsent(r.Data) {
		data = r.Data
	}
	return ApplicationError{Code: r.Code, Message: r.Message, Data: data}
}

type rpcReplyWire struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

type rpcErrorWire struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// DecodeRPCReply parses one JSON-RPC reply line. Exactly one of result and error must be
// present (null counts as absent) and jsonrpc must be "2.0".
func DecodeRPCReply(data []byte) (RPCReply, error) {
	var w rpcReplyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, NewTransportError(KindDecode, "decode rpc reply", err)
	}
	if w.JSONRPC != JSONRPCVersion {
		return nil, NewTransportError(KindProtocol, "decode rpc reply",
			fmt.Errorf("jsonrpc version is %q, expected %q", w.JSONRPC, JSONRPCVersion))
	}
	hasResult, hasError := !isAbsent(w.Result), !isAbsent(w.Error)
	switch {
	case hasResult && hasError:
		return nil, NewTransportError(KindProtocol, "decode rpc reply",
			errors.New("reply has both result and error"))
	case hasResult:
		return RPCResult{ID: w.ID, Result: w.Result}, nil
	case hasError:
		var e rpcErrorWire
		if err := json.Unmarshal(w.Error, &e); err != nil {
			return nil, NewTransportError(KindDecode, "decode rpc error", err)
		}
		return RPCError{ID: w.ID, Code: e.Code, Message: e.Message, Data: e.Data}, nil
	default:
		return nil, NewTransportError(KindProtocol, "decode rpc reply",
			errors.New("reply has neither result nor error"))
	}
}
