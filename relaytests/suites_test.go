package relaytests

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/relaygo/relay-test-harness/framework/steps"
	"github.com/relaygo/relay-test-harness/mockrelay"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	mockrelay.RunHelperIfRequested()
	os.Exit(m.Run())
}

// bridgeHandler answers each request type with a fixed line; unknown types get -32601.
func bridgeHandler(replies map[string]string) mockrelay.SocketHandler {
	return func(request []byte) mockrelay.SocketReply {
		var r struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(request, &r)
		if line, ok := replies[r.Type]; ok {
			return mockrelay.SocketReply{Data: []byte(line + "\n")}
		}
		return mockrelay.SocketReply{Data: []byte(`{"type":"Error","code":-32601,"message":"unknown request type"}` + "\n")}
	}
}

func bridgeConfig(t *testing.T, handler mockrelay.SocketHandler) (Config, *mockrelay.SocketRelay) {
	relay, err := mockrelay.StartSocketRelay(handler, nil)
	require.NoError(t, err)
	t.Cleanup(relay.Close)
	config := DefaultConfig()
	config.SocketPath = relay.Path()
	config.Token = "tok"
	config.Tool = "echo"
	return config, relay
}

func mcpConfig(t *testing.T, scenario string) Config {
	exe, err := os.Executable()
	require.NoError(t, err)
	config := DefaultConfig()
	config.Binary = exe
	config.Token = "tok"
	config.Tool = "a"
	config.ClientVersion = "test"
	config.RelayEnv = []string{mockrelay.HelperEnv(scenario)}
	return config
}

func requireStep(t *testing.T, results steps.Results, sequence, label string) steps.StepResult {
	result, ok := results.Find(sequence, label)
	require.True(t, ok, "no result for %q", label)
	return result
}

func assertPassed(t *testing.T, results steps.Results, sequence, label, detail string) {
	result := requireStep(t, results, sequence, label)
	assert.False(t, result.Failed, "%s failed: %s", label, result.Detail)
	assert.False(t, result.Skipped, "%s was skipped", label)
	assert.Equal(t, detail, result.Detail, label)
}

func assertSkipped(t *testing.T, results steps.Results, sequence, label string) {
	result := requireStep(t, results, sequence, label)
	assert.True(t, result.Skipped, "%s was not skipped", label)
}

func TestBridgeSuitePasses(t *testing.T) {
	config, relay := bridgeConfig(t, bridgeHandler(map[string]string{
		"ListTools": `{"type":"Tools","tools":"[{\"name\":\"echo\"},{\"name\":\"b\"}]"}`,
		"CallTool":  `{"type":"Result","result":{"content":[{"type":"text","text":"echoed"}]}}`,
	}))
	results := BridgeSuite(config).Run(nil)

	assert.True(t, results.OK())
	assertPassed(t, results, BridgeSuiteName, StepListTools, "2 tools: echo, b")
	assertPassed(t, results, BridgeSuiteName, StepCallTool("echo"), "echoed")

	relay.Close()
	connections := relay.Connections()
	require.Len(t, connections, 2)
	for _, c := range connections {
		assert.True(t, c.ClosedByClient)
	}
}

// A relay that rejects the token fails ListTools and never sees a CallTool.
func TestBridgeSuiteStopsAfterErrorReply(t *testing.T) {
	config, relay := bridgeConfig(t, mockrelay.ReplyLine(`{"type":"Error","code":401,"message":"bad token"}`))
	results := BridgeSuite(config).Run(nil)

	listTools := requireStep(t, results, BridgeSuiteName, StepListTools)
	assert.True(t, listTools.Failed)
	assert.Contains(t, listTools.Detail, "401")
	assert.Contains(t, listTools.Detail, "bad token")
	assertSkipped(t, results, BridgeSuiteName, StepCallTool("echo"))

	relay.Close()
	assert.Len(t, relay.Connections(), 1)
}

func TestBridgeSuiteCallToolErrorReply(t *testing.T) {
	config, _ := bridgeConfig(t, bridgeHandler(map[string]string{
		"ListTools": `{"type":"Tools","tools":[]}`,
		"CallTool":  `{"type":"Error","code":-32603,"message":"tool not found: echo"}`,
	}))
	results := BridgeSuite(config).Run(nil)

	assertPassed(t, results, BridgeSuiteName, StepListTools, "0 tools")
	callTool := requireStep(t, results, BridgeSuiteName, StepCallTool("echo"))
	assert.True(t, callTool.Failed)
	assert.Equal(t, "bridge error (code -32603): tool not found: echo", callTool.Detail)
}

func TestBridgeSuiteUnexpectedReplyType(t *testing.T) {
	config, _ := bridgeConfig(t, mockrelay.ReplyLine(`{"type":"OK"}`))
	results := BridgeSuite(config).Run(nil)

	listTools := requireStep(t, results, BridgeSuiteName, StepListTools)
	assert.True(t, listTools.Failed)
	assert.Equal(t, `unexpected "OK" reply to ListTools`, listTools.Detail)
}

func TestBridgeSuiteTruncatesPreview(t *testing.T) {
	long := strings.Repeat("y", 150)
	config, _ := bridgeConfig(t, bridgeHandler(map[string]string{
		"ListTools": `{"type":"Tools","tools":[]}`,
		"CallTool":  `{"type":"Result","result":{"content":[{"type":"text","text":"` + long + `"}]}}`,
	}))
	results := BridgeSuite(config).Run(nil)
	assertPassed(t, results, BridgeSuiteName, StepCallTool("echo"), strings.Repeat("y", 120)+"...")
}

func TestBridgeSuiteMissingSocket(t *testing.T) {
	config := DefaultConfig()
	config.SocketPath = filepath.Join(t.TempDir(), "none.sock")
	results := BridgeSuite(config).Run(nil)

	listTools := requireStep(t, results, BridgeSuiteName, StepListTools)
	assert.True(t, listTools.Failed)
	assert.Contains(t, listTools.Detail, "connect error")
	assertSkipped(t, results, BridgeSuiteName, StepCallTool(DefaultTool))
}

func TestBridgeSuiteProbes(t *testing.T) {
	config, relay := bridgeConfig(t, bridgeHandler(map[string]string{
		"ListTools": `{"type":"Tools","tools":[{"name":"b"},{"name":"a"}]}`,
		"CallTool":  `{"type":"Result","result":{"content":[]}}`,
	}))
	config.Probes = true
	results := BridgeSuite(config).Run(nil)

	assert.True(t, results.OK())
	assertPassed(t, results, BridgeSuiteName, StepListToolsRepeat, "same 2 tools")
	assertPassed(t, results, BridgeSuiteName, StepUnknownRequestType, "rejected (code -32601): unknown request type")

	relay.Close()
	assert.Len(t, relay.Connections(), 4)
}

func TestBridgeUnknownRequestProbeFailsOnSuccessReply(t *testing.T) {
	config, _ := bridgeConfig(t, bridgeHandler(map[string]string{
		"ListTools":     `{"type":"Tools","tools":[]}`,
		"CallTool":      `{"type":"Result","result":{"content":[]}}`,
		"NoSuchRequest": `{"type":"Tools","tools":[]}`,
	}))
	config.Probes = true
	results := BridgeSuite(config).Run(nil)

	probe := requireStep(t, results, BridgeSuiteName, StepUnknownRequestType)
	assert.True(t, probe.Failed)
	assert.Equal(t, `expected an "Error" reply, got "Tools"`, probe.Detail)
}

func TestMCPSuitePassesAgainstScriptedRelay(t *testing.T) {
	results := MCPSuite(mcpConfig(t, mockrelay.ScenarioScripted)).Run(nil)

	assert.True(t, results.OK(), "failures: %+v", results.Failures)
	assertPassed(t, results, MCPSuiteName, StepInitialize, "server=relay v0.1")
	assertPassed(t, results, MCPSuiteName, StepInitialized, "sent (no response expected)")
	assertPassed(t, results, MCPSuiteName, StepToolsList, "2 tools: a, b")
	assertPassed(t, results, MCPSuiteName, StepToolsCall("a"), "called a")

	teardown := requireStep(t, results, MCPSuiteName, StepTeardown)
	assert.False(t, teardown.Failed)
	assert.True(t, teardown.Notes.IsEmpty())
}

func TestMCPSuitePassesAgainstSDKRelay(t *testing.T) {
	config := mcpConfig(t, mockrelay.ScenarioSDK)
	config.Tool = "b"
	config.Probes = true
	results := MCPSuite(config).Run(nil)

	assert.True(t, results.OK(), "failures: %+v", results.Failures)
	assertPassed(t, results, MCPSuiteName, StepInitialize, "server=relay v1.0.0")
	assertPassed(t, results, MCPSuiteName, StepToolsCall("b"), "called b")
	assertPassed(t, results, MCPSuiteName, StepToolsListRepeat, "same 2 tools")
}

func TestMCPSuiteStreamClosedAfterInitialize(t *testing.T) {
	results := MCPSuite(mcpConfig(t, mockrelay.ScenarioCloseAfterInitialize)).Run(nil)

	assertPassed(t, results, MCPSuiteName, StepInitialize, "server=relay v0.1")
	assertPassed(t, results, MCPSuiteName, StepInitialized, "sent (no response expected)")
	toolsList := requireStep(t, results, MCPSuiteName, StepToolsList)
	assert.True(t, toolsList.Failed)
	assert.Contains(t, toolsList.Detail, "no response - stream closed")
	assertSkipped(t, results, MCPSuiteName, StepToolsCall("a"))

	teardown := requireStep(t, results, MCPSuiteName, StepTeardown)
	assert.False(t, teardown.Skipped)
	assert.False(t, teardown.Failed)
}

func TestMCPSuiteInitializeError(t *testing.T) {
	results := MCPSuite(mcpConfig(t, mockrelay.ScenarioInitializeError)).Run(nil)

	initialize := requireStep(t, results, MCPSuiteName, StepInitialize)
	assert.True(t, initialize.Failed)
	assert.Equal(t, `rpc error (code -32602): unsupported protocol version (data: {"supported":["2025-01-01"]})`,
		initialize.Detail)
	assertSkipped(t, results, MCPSuiteName, StepInitialized)
	assertSkipped(t, results, MCPSuiteName, StepToolsList)
	assert.False(t, requireStep(t, results, MCPSuiteName, StepTeardown).Skipped)
}

func TestMCPSuiteMissingServerInfo(t *testing.T) {
	results := MCPSuite(mcpConfig(t, mockrelay.ScenarioNoServerInfo)).Run(nil)

	initialize := requireStep(t, results, MCPSuiteName, StepInitialize)
	assert.True(t, initialize.Failed)
	assert.Equal(t, "initialize result has no serverInfo", initialize.Detail)
}

func TestMCPSuiteWrongID(t *testing.T) {
	results := MCPSuite(mcpConfig(t, mockrelay.ScenarioWrongID)).Run(nil)

	initialize := requireStep(t, results, MCPSuiteName, StepInitialize)
	assert.True(t, initialize.Failed)
	assert.Contains(t, initialize.Detail, "protocol error")
	assert.Contains(t, initialize.Detail, "does not match request id 1")
}

func TestMCPSuiteMissingBinary(t *testing.T) {
	config := DefaultConfig()
	config.Binary = filepath.Join(t.TempDir(), "relay")
	results := MCPSuite(config).Run(nil)

	binary := requireStep(t, results, MCPSuiteName, StepRelayBinary)
	assert.True(t, binary.Failed)
	assert.Contains(t, binary.Detail, "relay binary not found")
	assertSkipped(t, results, MCPSuiteName, StepInitialize)

	teardown := requireStep(t, results, MCPSuiteName, StepTeardown)
	assert.False(t, teardown.Failed)
	assert.Len(t, results.Failures, 1)
}

func TestMCPSuiteToolError(t *testing.T) {
	results := MCPSuite(mcpConfig(t, mockrelay.ScenarioToolError)).Run(nil)

	call := requireStep(t, results, MCPSuiteName, StepToolsCall("a"))
	assert.True(t, call.Failed)
	assert.Equal(t, "tool reported error: boom", call.Detail)
}

func TestMCPSuiteToolCallErrorReply(t *testing.T) {
	results := MCPSuite(mcpConfig(t, mockrelay.ScenarioNoTools)).Run(nil)

	assertPassed(t, results, MCPSuiteName, StepToolsList, "0 tools")
	call := requireStep(t, results, MCPSuiteName, StepToolsCall("a"))
	assert.True(t, call.Failed)
	assert.Equal(t, "rpc error (code -32602): unknown tool", call.Detail)
}

func TestMCPSuiteLongTextIsTruncated(t *testing.T) {
	results := MCPSuite(mcpConfig(t, mockrelay.ScenarioLongText)).Run(nil)
	assertPassed(t, results, MCPSuiteName, StepToolsCall("a"), strings.Repeat("x", 120)+"...")
}

func TestMCPSuiteNoTextContent(t *testing.T) {
	results := MCPSuite(mcpConfig(t, mockrelay.ScenarioNoText)).Run(nil)
	assertPassed(t, results, MCPSuiteName, StepToolsCall("a"), "(no text content)")
}

func TestMCPSuiteShowsRelayStderr(t *testing.T) {
	results := MCPSuite(mcpConfig(t, mockrelay.ScenarioStderr)).Run(nil)

	teardown := requireStep(t, results, MCPSuiteName, StepTeardown)
	assert.False(t, teardown.Failed)
	assert.Equal(t, steps.Notes{Heading: "relay stderr", Lines: mockrelay.StderrScenarioLines}, teardown.Notes)
}

func TestMCPSuiteKillsRelayThatDoesNotExit(t *testing.T) {
	config := mcpConfig(t, mockrelay.ScenarioHangOnExit)
	config.ExitTimeout = 300 * time.Millisecond
	results := MCPSuite(config).Run(nil)

	assertPassed(t, results, MCPSuiteName, StepToolsCall("a"), "called a")
	teardown := requireStep(t, results, MCPSuiteName, StepTeardown)
	assert.True(t, teardown.Failed)
	assert.Contains(t, teardown.Detail, "relay did not exit in time")
}

func TestMCPSuiteProbes(t *testing.T) {
	config := mcpConfig(t, mockrelay.ScenarioScripted)
	config.Probes = true
	results := MCPSuite(config).Run(nil)

	assert.True(t, results.OK(), "failures: %+v", results.Failures)
	assertPassed(t, results, MCPSuiteName, StepUnknownMethod,
		"rejected (code -32601): method not found: relay-test-harness/no-such-method")
	assertPassed(t, results, MCPSuiteName, StepToolsListRepeat, "same 2 tools")
}

func TestMCPSuiteProbesDetectMisbehavior(t *testing.T) {
	config := mcpConfig(t, mockrelay.ScenarioUnknownMethodSucceeds)
	config.Probes = true
	results := MCPSuite(config).Run(nil)
	unknown := requireStep(t, results, MCPSuiteName, StepUnknownMethod)
	assert.True(t, unknown.Failed)
	assert.Equal(t, "expected an error reply to relay-test-harness/no-such-method, got a result", unknown.Detail)

	config = mcpConfig(t, mockrelay.ScenarioChangingTools)
	config.Probes = true
	results = MCPSuite(config).Run(nil)
	repeat := requireStep(t, results, MCPSuiteName, StepToolsListRepeat)
	assert.True(t, repeat.Failed)
	assert.Equal(t, "tool names changed: first [a, b], then [a, c]", repeat.Detail)
}

func TestRunSuitesBothPrintsBothHeaders(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	config, _ := bridgeConfig(t, mockrelay.ReplyLine(`{"type":"Error","code":401,"message":"bad token"}`))
	mcp := mcpConfig(t, mockrelay.ScenarioScripted)
	config.Binary = mcp.Binary
	config.RelayEnv = mcp.RelayEnv
	config.Tool = "a"

	var buf bytes.Buffer
	results := RunSuites(ModeBoth, config, steps.ConsoleReporter{Out: &buf})

	assert.False(t, results.OK())
	assert.Len(t, results.Failures, 1)
	out := buf.String()
	bridgeAt := strings.Index(out, "=== "+BridgeSuiteName+" ===")
	mcpAt := strings.Index(out, "=== "+MCPSuiteName+" ===")
	assert.True(t, bridgeAt >= 0 && mcpAt > bridgeAt, out)
	assert.Contains(t, out, "  FAIL  ListTools\n        bridge error (code 401): bad token\n")
	assert.Contains(t, out, "  PASS  initialize  server=relay v0.1\n")
	assert.NotContains(t, out, "CallTool(a)")
	assert.NotContains(t, out, "relay binary")
	assert.NotContains(t, out, "teardown")
}
