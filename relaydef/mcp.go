package relaydef

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ProtocolVersion is the MCP protocol revision that the harness announces.
const ProtocolVersion = "2024-11-05"

// MCP method names used by the harness.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"

	// MethodNoSuchMethod is a method that no relay defines.
	MethodNoSuchMethod = "relay-test-harness/no-such-method"
)

// ClientCapabilities is sent as an empty object; the harness asks for nothing optional.
type ClientCapabilities struct{}

// InitializeParams are the params of the initialize request.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      mcp.Implementation `json:"clientInfo"`
}

// ListToolsParams are the params of tools/list; the harness never paginates.
type ListToolsParams struct{}

// CallToolParams are the params of tools/call.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ContentBlock is one element of a tool result's content. Only text blocks are interpreted;
// other kinds are kept as raw JSON.
type ContentBlock struct {
	Type string
	Text string
	Raw  json.RawMessage
}

func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var fields struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	b.Type = fields.Type
	b.Text = fields.Text
	b.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (b ContentBlock) MarshalJSON() ([]byte, error) {
	if len(b.Raw) > 0 {
		return b.Raw, nil
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	}{b.Type, b.Text})
}

// TextContent returns a text ContentBlock.
func TextContent(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// CallToolResult is the result of invoking a tool on either transport.
//
// mcp.CallToolResult is not used here because its decoder rejects content kinds it does not
// know, and a relay is free to send those.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// FirstText returns the text of the first text block, and false if there is none.
func (r CallToolResult) FirstText() (string, bool) {
	for _, b := range r.Content {
		if b.Type == "text" {
			return b.Text, true
		}
	}
	return "", false
}

// DecodeCallToolResult parses a result that may be structured or string-encoded. Missing or
// null input gives an empty result.
func DecodeCallToolResult(raw json.RawMessage) (CallToolResult, error) {
	var result CallToolResult
	structured, err := CoerceToStructured(raw)
	if err != nil || structured == nil {
		return result, err
	}
	err = json.Unmarshal(structured, &result)
	return result, err
}

// DecodeListToolsResult parses a tools/list result. A missing tools field gives an empty list.
func DecodeListToolsResult(raw json.RawMessage) ([]*mcp.Tool, error) {
	structured, err := CoerceToStructured(raw)
	if err != nil || structured == nil {
		return nil, err
	}
	var result struct {
		Tools json.RawMessage `json:"tools"`
	}
	if err := json.Unmarshal(structured, &result); err != nil {
		return nil, err
	}
	return decodeTools(result.Tools)
}

// DecodeInitializeResult parses an initialize result.
func DecodeInitializeResult(raw json.RawMessage) (*mcp.InitializeResult, error) {
	var result mcp.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ToolName returns the tool's name, or "?" if it has none.
func ToolName(t *mcp.Tool) string {
	if t == nil || t.Name == "" {
		return "?"
	}
	return t.Name
}
