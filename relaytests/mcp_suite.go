package relaytests

import (
	"encoding/json"
	"fmt"

	"github.com/relaygo/relay-test-harness/framework/steps"
	"github.com/relaygo/relay-test-harness/mcpstdio"
	"github.com/relaygo/relay-test-harness/relaydef"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPSuiteName is the header of the MCP suite.
const MCPSuiteName = "MCP stdio (client simulation)"

// Labels of the MCP suite's steps.
const (
	StepRelayBinary       = "relay binary"
	StepInitialize        = relaydef.MethodInitialize
	StepInitialized       = relaydef.MethodInitialized
	StepToolsList         = relaydef.MethodToolsList
	StepToolsListRepeat   = "tools/list (repeat)"
	StepUnknownMethod     = "unknown method"
	StepTeardown          = "teardown"
	relayStderrNotesTitle = "relay stderr"
)

// StepToolsCall returns the label of the MCP step that invokes the named tool.
func StepToolsCall(tool string) string { return fmt.Sprintf("tools/call(%s)", tool) }

type mcpSuite struct {
	config    Config
	seq       *steps.Sequence
	session   *mcpstdio.Session
	toolNames []string
}

// MCPSuite builds the MCP sequence. It starts the relay, performs the initialize handshake,
// lists the tools, and invokes the configured tool; the relay is always shut down at the
// end, and anything it wrote to stderr is shown. With probes enabled it also calls an
// unknown method and lists the tools again.
func MCPSuite(config Config) *steps.Sequence {
	seq := steps.NewSequence(MCPSuiteName)
	s := &mcpSuite{config: config, seq: seq}

	seq.Add(
		steps.Step{Name: StepRelayBinary, Gate: true, QuietOnPass: true, Action: s.start},
		steps.Step{Name: StepInitialize, Gate: true, Action: s.initialize},
		steps.Step{Name: StepInitialized, Action: s.initialized},
		steps.Step{Name: StepToolsList, Gate: true, Action: s.listTools},
		steps.Step{Name: StepToolsCall(config.Tool), Gate: true, Action: s.callTool},
	)
	if config.Probes {
		seq.Add(
			steps.Step{Name: StepUnknownMethod, Action: s.unknownMethod},
			steps.Step{Name: StepToolsListRepeat, Action: s.listToolsAgain},
		)
	}
	seq.Add(steps.Step{Name: StepTeardown, Always: true, QuietOnPass: true, Action: s.teardown})
	return seq
}

func (s *mcpSuite) start() steps.Outcome {
	session, err := mcpstdio.Start(s.config.Binary, s.config.Token,
		mcpstdio.WithEnv(s.config.RelayEnv...),
		mcpstdio.WithExitTimeout(s.config.ExitTimeout),
		mcpstdio.WithLogger(s.seq.Logger()),
	)
	if err != nil {
		return steps.Fail(err)
	}
	s.session = session
	return steps.Pass("")
}

func (s *mcpSuite) initialize() steps.Outcome {
	reply, err := s.session.Call(relaydef.MethodInitialize, relaydef.InitializeParams{
		ProtocolVersion: relaydef.ProtocolVersion,
		ClientInfo:      mcp.Implementation{Name: ClientName, Version: s.config.ClientVersion},
	})
	if err != nil {
		return steps.Fail(err)
	}
	return resultOutcome(reply, func(raw json.RawMessage) steps.Outcome {
		result, err := relaydef.DecodeInitializeResult(raw)
		if err != nil {
			return steps.Failf("invalid initialize result: %s", err)
		}
		if result.ServerInfo == nil {
			return steps.Failf("initialize result has no serverInfo")
		}
		return steps.Passf("server=%s v%s", result.ServerInfo.Name, result.ServerInfo.Version)
	})
}

func (s *mcpSuite) initialized() steps.Outcome {
	if err := s.session.Notify(relaydef.MethodInitialized, nil); err != nil {
		return steps.Fail(err)
	}
	return steps.Pass("sent (no response expected)")
}

func (s *mcpSuite) list() ([]string, steps.Outcome) {
	reply, err := s.session.Call(relaydef.MethodToolsList, relaydef.ListToolsParams{})
	if err != nil {
		return nil, steps.Fail(err)
	}
	var names []string
	outcome := resultOutcome(reply, func(raw json.RawMessage) steps.Outcome {
		tools, err := relaydef.DecodeListToolsResult(raw)
		if err != nil {
			return steps.Failf("invalid tools/list result: %s", err)
		}
		names = ToolNames(tools)
		return steps.Pass(ToolNamesSummary(names))
	})
	return names, outcome
}

func (s *mcpSuite) listTools() steps.Outcome {
	names, outcome := s.list()
	s.toolNames = names
	return outcome
}

func (s *mcpSuite) listToolsAgain() steps.Outcome {
	names, outcome := s.list()
	if outcome.Failed() {
		return outcome
	}
	return repeatListingOutcome(s.toolNames, names)
}

func (s *mcpSuite) callTool() steps.Outcome {
	reply, err := s.session.Call(relaydef.MethodToolsCall, relaydef.CallToolParams{
		Name:      s.config.Tool,
		Arguments: json.RawMessage(`{}`),
	})
	if err != nil {
		return steps.Fail(err)
	}
	return resultOutcome(reply, func(raw json.RawMessage) steps.Outcome {
		result, err := relaydef.DecodeCallToolResult(raw)
		if err != nil {
			return steps.Failf("invalid tools/call result: %s", err)
		}
		return toolResultOutcome(result)
	})
}

func (s *mcpSuite) unknownMethod() steps.Outcome {
	reply, err := s.session.Call(relaydef.MethodNoSuchMethod, nil)
	if err != nil {
		return steps.Fail(err)
	}
	if r, ok := reply.(relaydef.RPCError); ok {
		return steps.Pass(rejectedDetail(r.AsApplicationError()))
	}
	return steps.Failf("expected an error reply to %s, got a result", relaydef.MethodNoSuchMethod)
}

func (s *mcpSuite) teardown() steps.Outcome {
	if s.session == nil {
		return steps.Pass("")
	}
	shutdown, err := s.session.Close()
	outcome := steps.Pass("")
	if err != nil {
		outcome = steps.Fail(err)
	}
	return outcome.WithNotes(relayStderrNotesTitle, shutdown.StderrLines())
}

func resultOutcome(reply relaydef.RPCReply, onResult func(json.RawMessage) steps.Outcome) steps.Outcome {
	switch r := reply.(type) {
	case relaydef.RPCResult:
		return onResult(r.Result)
	case relaydef.RPCError:
		return steps.Failf("%s", rpcErrorDetail(r))
	default:
		return steps.Failf("unexpected reply %T", reply)
	}
}
