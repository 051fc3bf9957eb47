package mockrelay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// HelperEnvVar selects a fake relay scenario when a test binary re-executes itself as the
// relay process. See RunHelperIfRequested.
const HelperEnvVar = "RELAY_TEST_HARNESS_FAKE_RELAY"

// Fake relay scenarios.
const (
	// ScenarioSDK is the go-sdk server with the tools "a" and "b".
	ScenarioSDK = "sdk"

	// ScenarioScripted reports serverInfo relay/0.1 and the tools "a" and "b".
	ScenarioScripted = "scripted"

	// ScenarioCloseAfterInitialize closes its output right after the initialize reply.
	ScenarioCloseAfterInitialize = "close-after-initialize"

	ScenarioInitializeError = "initialize-error"
	ScenarioNoServerInfo    = "no-server-info"

	// ScenarioWrongID answers every request with the id 101.
	ScenarioWrongID = "wrong-id"

	// ScenarioNoTools reports an empty tool list and answers tools/call with -32602.
	ScenarioNoTools = "no-tools"

	ScenarioToolError = "tool-error"
	ScenarioLongText  = "long-text"
	ScenarioNoText    = "no-text"

	// ScenarioStderr is ScenarioScripted that also writes two lines to stderr.
	ScenarioStderr = "stderr"

	// ScenarioHangOnExit is ScenarioScripted that does not exit when its input ends.
	ScenarioHangOnExit = "hang-on-exit"

	// ScenarioExitCode is ScenarioScripted that exits with status 3.
	ScenarioExitCode = "exit-code"

	// ScenarioUnknownMethodSucceeds answers every method, known or not.
	ScenarioUnknownMethodSucceeds = "unknown-method-succeeds"

	// ScenarioOrphanHoldsStderr is ScenarioScripted that, when its input ends, leaves behind
	// a process holding its stderr open and exits with status 0.
	ScenarioOrphanHoldsStderr = "orphan-holds-stderr"

	scenarioSleep = "sleep"

	// ScenarioChangingTools reports a different tool list the second time it is asked.
	ScenarioChangingTools = "changing-tools"
)

// StderrScenarioLines are what ScenarioStderr writes to stderr.
var StderrScenarioLines = []string{"relay: warming up", "relay: ready"} //nolint:gochecknoglobals

// LongTextLength is the length of the text returned in ScenarioLongText.
const LongTextLength = 200

// HelperEnv returns the environment setting that selects a scenario.
func HelperEnv(scenario string) string {
	return HelperEnvVar + "=" + scenario
}

// RunHelperIfRequested must be called from TestMain before m.Run. If the process was started
// as a fake relay, it runs the selected scenario on stdin and stdout and exits; otherwise it
// returns immediately.
func RunHelperIfRequested() {
	scenario := os.Getenv(HelperEnvVar)
	if scenario == "" {
		return
	}
	os.Exit(runScenario(scenario, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func runScenario(scenario string, args []string, in io.Reader, out io.WriteCloser, errOut io.Writer) int {
	if scenario == scenarioSleep {
		time.Sleep(orphanLifetime)
		return 0
	}
	if scenario == ScenarioSDK {
		if err := RunSDKRelay(context.Background(), "a", "b"); err != nil {
			_, _ = fmt.Fprintln(errOut, err)
		}
		return 0
	}

	handlers := map[string]StdioHandler{
		"initialize": InitializeHandler("relay", "0.1"),
		"tools/list": ToolsListHandler("a", "b"),
		"tools/call": EchoToolHandler(),
	}
	exitCode := 0
	hang := false
	orphan := false

	switch scenario {
	case ScenarioScripted:
	case ScenarioCloseAfterInitialize:
		initialize := handlers["initialize"]
		handlers["initialize"] = func(params json.RawMessage) StdioReply {
			reply := initialize(params)
			reply.CloseOutput = true
			return reply
		}
	case ScenarioInitializeError:
		handlers["initialize"] = func(json.RawMessage) StdioReply {
			return StdioReply{Error: &StdioError{Code: -32602, Message: "unsupported protocol version",
				Data: json.RawMessage(`{"supported":["2025-01-01"]}`)}}
		}
	case ScenarioNoServerInfo:
		handlers["initialize"] = func(json.RawMessage) StdioReply {
			return StdioReply{Result: map[string]interface{}{"protocolVersion": "2024-11-05", "capabilities": map[string]interface{}{}}}
		}
	case ScenarioWrongID:
		for method, h := range handlers {
			handlers[method] = wrongID(h)
		}
	case ScenarioNoTools:
		handlers["tools/list"] = ToolsListHandler()
		handlers["tools/call"] = func(params json.RawMessage) StdioReply {
			return StdioReply{Error: &StdioError{Code: -32602, Message: "unknown tool"}}
		}
	case ScenarioToolError:
		handlers["tools/call"] = TextResultHandler("boom", true)
	case ScenarioLongText:
		handlers["tools/call"] = TextResultHandler(strings.Repeat("x", LongTextLength), false)
	case ScenarioNoText:
		handlers["tools/call"] = func(json.RawMessage) StdioReply {
			return StdioReply{Result: map[string]interface{}{
				"content": []map[string]interface{}{{"type": "image", "data": "AAAA", "mimeType": "image/png"}},
			}}
		}
	case ScenarioStderr:
		for _, line := range StderrScenarioLines {
			_, _ = fmt.Fprintln(errOut, line)
		}
	case ScenarioHangOnExit:
		hang = true
	case ScenarioExitCode:
		exitCode = 3
	case ScenarioOrphanHoldsStderr:
		orphan = true
	case ScenarioUnknownMethodSucceeds:
		handlers["relay-test-harness/no-such-method"] = func(json.RawMessage) StdioReply {
			return StdioReply{Result: map[string]interface{}{}}
		}
	case ScenarioChangingTools:
		calls := 0
		handlers["tools/list"] = func(params json.RawMessage) StdioReply {
			calls++
			if calls == 1 {
				return ToolsListHandler("a", "b")(params)
			}
			return ToolsListHandler("a", "c")(params)
		}
	default:
		_, _ = fmt.Fprintf(errOut, "unknown fake relay scenario %q\n", scenario)
		return 2
	}

	relay := NewScriptedStdioRelay(handlers)
	relay.Args = args
	if err := relay.Serve(in, out); err != nil {
		_, _ = fmt.Fprintln(errOut, err)
	}
	if hang {
		time.Sleep(time.Hour)
	}
	if orphan {
		if err := startOrphan(errOut); err != nil {
			_, _ = fmt.Fprintln(errOut, err)
			return 1
		}
	}
	return exitCode
}

const orphanLifetime = 5 * time.Second

// startOrphan starts a copy of this executable that sleeps with errOut as its stderr, and
// does not wait for it.
func startOrphan(errOut io.Writer) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	cmd := exec.Command(exe) //nolint:gosec
	cmd.Env = append(os.Environ(), HelperEnv(scenarioSleep))
	cmd.Stderr = errOut
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

func wrongID(h StdioHandler) StdioHandler {
	return func(params json.RawMessage) StdioReply {
		reply := h(params)
		reply.ID = json.RawMessage("101")
		return reply
	}
}
