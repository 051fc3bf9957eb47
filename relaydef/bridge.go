package relaydef

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Request types understood by the bridge.
const (
	BridgeListTools = "ListTools"
	BridgeCallTool  = "CallTool"

	// BridgeNoSuchRequest is a request type that no relay defines; it is used to check that
	// unknown requests are rejected.
	BridgeNoSuchRequest = "NoSuchRequest"
)

// Reply types sent by the bridge.
const (
	BridgeReplyTools  = "Tools"
	BridgeReplyResult = "Result"
	BridgeReplyOK     = "OK"
	BridgeReplyError  = "Error"
)

// BridgeRequest is one request line sent over the Unix socket.
type BridgeRequest struct {
	Type      string          `json:"type"`
	Token     string          `json:"token"`
	Name      string          `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// BridgeReply is one of ToolsReply, ResultReply, AckReply, or ErrorReply.
type BridgeReply interface {
	bridgeReply()
	// ReplyType returns the wire discriminant.
	ReplyType() string
}

type ToolsReply struct {
	Tools []*mcp.Tool
}

type ResultReply struct {
	Result CallToolResult
}

// AckReply is the relay's reply to its administrative requests, which carry no data.
type AckReply struct{}

type ErrorReply struct {
	Code    int
	Message string
}

func (ToolsReply) bridgeReply()  {}
func (ResultReply) bridgeReply() {}
func (AckReply) bridgeReply()    {}
func (ErrorReply) bridgeReply()  {}

func (ToolsReply) ReplyType() string  { return BridgeReplyTools }
func (ResultReply) ReplyType() string { return BridgeReplyResult }
func (AckReply) ReplyType() string    { return BridgeReplyOK }
func (ErrorReply) ReplyType() string  { return BridgeReplyError }

// AsApplicationError converts the reply to the error taxonomy's form.
func (r ErrorReply) AsApplicationError() ApplicationError {
	return ApplicationError{Code: r.Code, Message: r.Message}
}

type bridgeReplyWire struct {
	Type    *string         `json:"type"`
	Tools   json.RawMessage `json:"tools"`
	Result  json.RawMessage `json:"result"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
}

// DecodeBridgeReply parses one reply line. Malformed JSON is a KindDecode error and a missing
// or unknown type is a KindProtocol error.
func DecodeBridgeReply(data []byte) (BridgeReply, error) {
	var w bridgeReplyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, NewTransportError(KindDecode, "decode bridge reply", err)
	}
	if w.Type == nil {
		return nil, NewTransportError(KindProtocol, "decode bridge reply", fmt.Errorf("reply has no type"))
	}
	switch *w.Type {
	case BridgeReplyTools:
		tools, err := decodeTools(w.Tools)
		if err != nil {
			return nil, NewTransportError(KindDecode, "decode tools", err)
		}
		return ToolsReply{Tools: tools}, nil
	case BridgeReplyResult:
		result, err := DecodeCallToolResult(w.Result)
		if err != nil {
			return nil, NewTransportError(KindDecode, "decode result", err)
		}
		return ResultReply{Result: result}, nil
	case BridgeReplyOK:
		return AckReply{}, nil
	case BridgeReplyError:
		return ErrorReply{Code: w.Code, Message: w.Message}, nil
	default:
		return nil, NewTransportError(KindProtocol, "decode bridge reply",
			fmt.Errorf("unknown reply type %q", *w.Type))
	}
}

func decodeTools(raw json.RawMessage) ([]*mcp.Tool, error) {
	structured, err := CoerceToStructured(raw)
	if err != nil || structured == nil {
		return nil, err
	}
	var tools []*mcp.Tool
	if err := json.Unmarshal(structured, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}
