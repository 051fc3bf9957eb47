package mockrelay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Methods that every ScriptedStdioRelay answers, so tests can see what the relay received.
const (
	MethodReceivedRequests = "mockrelay/received"
	MethodArgs             = "mockrelay/args"
)

// StdioError is a JSON-RPC error object.
type StdioError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// StdioReply is what a ScriptedStdioRelay sends back for one request.
type StdioReply struct {
	Result interface{}
	Error  *StdioError

	// ID, if set, is sent instead of the request's id.
	ID json.RawMessage

	// Raw, if set, is written verbatim instead of an envelope; a newline is added.
	Raw string

	// CloseOutput closes the relay's output after this reply. The relay keeps reading its
	// input until it ends, so the client's later writes still succeed.
	CloseOutput bool
}

// StdioHandler produces the reply to one request.
type StdioHandler func(params json.RawMessage) StdioReply

// ScriptedStdioRelay is a fake MCP relay that works at the level of lines: for each request
// it looks up a handler by method name, and it answers unknown methods with -32601.
type ScriptedStdioRelay struct {
	Handlers map[string]StdioHandler
	Args     []string

	received []json.RawMessage
	lock     sync.Mutex
}

func NewScriptedStdioRelay(handlers map[string]StdioHandler) *ScriptedStdioRelay {
	return &ScriptedStdioRelay{Handlers: handlers}
}

type stdioRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type stdioEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *StdioError     `json:"error,omitempty"`
}

// Serve reads requests from in until it ends, writing replies to out.
func (r *ScriptedStdioRelay) Serve(in io.Reader, out io.WriteCloser) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	outputClosed := false
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		r.lock.Lock()
		r.received = append(r.received, append(json.RawMessage(nil), line...))
		r.lock.Unlock()

		var request stdioRequest
		if err := json.Unmarshal(line, &request); err != nil {
			if !outputClosed {
				r.write(out, stdioEnvelope{JSONRPC: "2.0", ID: json.RawMessage("null"),
					Error: &StdioError{Code: -32700, Message: "parse error: " + err.Error()}})
			}
			continue
		}
		if len(request.ID) == 0 || string(request.ID) == "null" {
			continue // notification
		}
		if outputClosed {
			continue
		}

		reply := r.reply(request)
		if reply.Raw != "" {
			_, _ = fmt.Fprintln(out, reply.Raw)
		} else {
			envelope := stdioEnvelope{JSONRPC: "2.0", ID: request.ID, Result: reply.Result, Error: reply.Error}
			if reply.ID != nil {
				envelope.ID = reply.ID
			}
			if envelope.Result == nil && envelope.Error == nil {
				envelope.Result = struct{}{}
			}
			r.write(out, envelope)
		}
		if reply.CloseOutput {
			_ = out.Close()
			outputClosed = true
		}
	}
	return scanner.Err()
}

func (r *ScriptedStdioRelay) reply(request stdioRequest) StdioReply {
	switch request.Method {
	case MethodReceivedRequests:
		r.lock.Lock()
		defer r.lock.Unlock()
		return StdioReply{Result: append([]json.RawMessage(nil), r.received...)}
	case MethodArgs:
		return StdioReply{Result: append([]string{}, r.Args...)}
	}
	if h, ok := r.Handlers[request.Method]; ok {
		return h(request.Params)
	}
	return StdioReply{Error: &StdioError{Code: -32601, Message: "method not found: " + request.Method}}
}

func (r *ScriptedStdioRelay) write(out io.Writer, envelope stdioEnvelope) {
	data, _ := json.Marshal(envelope)
	_, _ = out.Write(append(data, '\n'))
}

// InitializeHandler answers initialize with the given server name and version.
func InitializeHandler(name, version string) StdioHandler {
	return func(json.RawMessage) StdioReply {
		return StdioReply{Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
			"serverInfo":      map[string]interface{}{"name": name, "version": version},
		}}
	}
}

// ToolsListHandler answers tools/list with tools of the given names.
func ToolsListHandler(names ...string) StdioHandler {
	return func(json.RawMessage) StdioReply {
		tools := make([]map[string]interface{}, 0, len(names))
		for _, n := range names {
			tools = append(tools, map[string]interface{}{
				"name":        n,
				"description": "tool " + n,
				"inputSchema": map[string]interface{}{"type": "object"},
			})
		}
		return StdioReply{Result: map[string]interface{}{"tools": tools}}
	}
}

// TextResultHandler answers tools/call with a single text block.
func TextResultHandler(text string, isError bool) StdioHandler {
	return func(json.RawMessage) StdioReply {
		result := map[string]interface{}{
			"content": []map[string]interface{}{{"type": "text", "text": text}},
		}
		if isError {
			result["isError"] = true
		}
		return StdioReply{Result: result}
	}
}

// EchoToolHandler answers tools/call with "called <name>".
func EchoToolHandler() StdioHandler {
	return func(params json.RawMessage) StdioReply {
		var p struct {
			Name string `json:"name"`
		}
		_ = json.Unmarshal(params, &p)
		return TextResultHandler("called "+p.Name, false)(params)
	}
}
