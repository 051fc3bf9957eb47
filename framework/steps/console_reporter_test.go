package steps

import (
	"bytes"
	"testing"
	"time"

	"github.com/relaygo/relay-test-harness/framework"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func withoutColor(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = saved })
}

func TestConsoleReporterPassAndFail(t *testing.T) {
	withoutColor(t)
	var buf bytes.Buffer
	c := ConsoleReporter{Out: &buf}

	c.Pass("ListTools", "2 tools: a, b")
	c.Pass("notifications/initialized", "")
	c.Fail("tools/list", "no response - stream closed\nsecond line")

	assert.Equal(t,
		"  PASS  ListTools  2 tools: a, b\n"+
			"  PASS  notifications/initialized\n"+
			"  FAIL  tools/list\n"+
			"        no response - stream closed\n"+
			"        second line\n",
		buf.String())
}

func TestConsoleReporterRunsSequence(t *testing.T) {
	withoutColor(t)
	var buf bytes.Buffer
	c := ConsoleReporter{Out: &buf}

	s := NewSequence("Bridge").Add(
		Step{Name: "ListTools", Gate: true, Action: func() Outcome {
			return Failf("bridge error (code 401): bad token")
		}},
		Step{Name: "CallTool(x)", Action: func() Outcome { return Pass("") }},
	)
	results := s.Run(c)
	assert.NoError(t, c.EndLog(results))

	assert.Equal(t,
		"\n=== Bridge ===\n\n"+
			"ListTools...\n"+
			"  FAIL  ListTools\n"+
			"        bridge error (code 401): bad token\n"+
			"\nFAILED STEPS (1):\n"+
			"  * Bridge/ListTools\n",
		buf.String())
}

func TestConsoleReporterQuietStepPrintsOnlyNotes(t *testing.T) {
	withoutColor(t)
	var buf bytes.Buffer
	c := ConsoleReporter{Out: &buf}

	result := StepResult{Quiet: true, Notes: Notes{Heading: "relay stderr", Lines: []string{"warn: x"}}}
	c.StepFinished(StepID{"MCP", "teardown"}, result, nil)

	assert.Equal(t, "\n  relay stderr:\n    warn: x\n", buf.String())
}

func TestConsoleReporterSkippedSteps(t *testing.T) {
	withoutColor(t)
	var buf bytes.Buffer

	ConsoleReporter{Out: &buf}.StepSkipped(StepID{"MCP", "tools/call(x)"}, "reason")
	assert.Equal(t, "", buf.String())

	ConsoleReporter{Out: &buf, ShowSkipped: true}.StepSkipped(StepID{"MCP", "tools/call(x)"}, "reason")
	assert.Equal(t, "  SKIP  tools/call(x) (reason)\n", buf.String())
}

func TestConsoleReporterDebugOutput(t *testing.T) {
	withoutColor(t)
	output := framework.CapturedOutput{
		{Time: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Message: "mcp> {}"},
	}
	failed := StepResult{Failed: true, Detail: "bad"}
	passed := StepResult{}

	var buf bytes.Buffer
	ConsoleReporter{Out: &buf}.StepFinished(StepID{"MCP", "x"}, failed, output)
	assert.NotContains(t, buf.String(), "DEBUG")

	buf.Reset()
	ConsoleReporter{Out: &buf, DebugOutputOnFailure: true}.StepFinished(StepID{"MCP", "x"}, failed, output)
	assert.Contains(t, buf.String(), "    DEBUG [2024-01-02 03:04:05.000] mcp> {}")

	buf.Reset()
	ConsoleReporter{Out: &buf, DebugOutputOnFailure: true}.StepFinished(StepID{"MCP", "x"}, passed, output)
	assert.NotContains(t, buf.String(), "DEBUG")

	buf.Reset()
	ConsoleReporter{Out: &buf, DebugOutputOnSuccess: true}.StepFinished(StepID{"MCP", "x"}, passed, output)
	assert.Contains(t, buf.String(), "DEBUG")
}

func TestConsoleReporterSummaryCountsAttemptedSteps(t *testing.T) {
	withoutColor(t)
	var buf bytes.Buffer
	c := ConsoleReporter{Out: &buf}

	results := NewSequence("MCP").Add(
		Step{Name: "binary", QuietOnPass: true, Action: func() Outcome { return Pass("") }},
		Step{Name: "initialize", Action: func() Outcome { return Pass("") }},
		Step{Name: "tools/list", Action: func() Outcome { return Pass("") }},
	).Run(NullReporter())
	assert.NoError(t, c.EndLog(results))

	assert.Equal(t, "\nAll 2 steps passed\n", buf.String())
}
