package steps

import (
	"fmt"
	"io"
	"strings"

	"github.com/relaygo/relay-test-harness/framework"

	"github.com/fatih/color"
)

var consoleHeaderColor = color.New(color.FgYellow)                 //nolint:gochecknoglobals
var consolePassColor = color.New(color.FgGreen)                    //nolint:gochecknoglobals
var consoleFailColor = color.New(color.FgRed)                      //nolint:gochecknoglobals
var consoleDimColor = color.New(color.Faint)                       //nolint:gochecknoglobals
var consoleSkippedColor = color.New(color.Faint, color.FgBlue)     //nolint:gochecknoglobals
var consoleSummaryFailColor = color.New(color.FgRed, color.Bold)   //nolint:gochecknoglobals
var consoleSummaryPassColor = color.New(color.FgGreen, color.Bold) //nolint:gochecknoglobals

const failDetailIndent = "        "

// ConsoleReporter prints one PASS or FAIL line per step. Colors follow fatih/color's rules,
// so they are dropped automatically when the output is not a terminal or NO_COLOR is set.
type ConsoleReporter struct {
	// Out is where everything is printed; nil means color.Output (standard output).
	Out io.Writer

	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool

	// ShowSkipped prints a line for each step that was not attempted. Normally those are
	// silent, since the failure that caused them has already been shown.
	ShowSkipped bool
}

func (c ConsoleReporter) out() io.Writer {
	if c.Out == nil {
		return color.Output
	}
	return c.Out
}

func (c ConsoleReporter) SequenceStarted(name string) {
	_, _ = fmt.Fprintf(c.out(), "\n%s\n\n", consoleHeaderColor.Sprintf("=== %s ===", name))
}

func (c ConsoleReporter) StepStarted(id StepID) {
	_, _ = fmt.Fprintf(c.out(), "%s...\n", id.Label())
}

func (c ConsoleReporter) StepFinished(id StepID, result StepResult, debugOutput framework.CapturedOutput) {
	switch {
	case result.Failed:
		c.Fail(id.Label(), result.Detail)
	case !result.Quiet:
		c.Pass(id.Label(), result.Detail)
	}
	if !result.Notes.IsEmpty() {
		c.printNotes(result.Notes)
	}
	if len(debugOutput) > 0 &&
		((result.Failed && c.DebugOutputOnFailure) || (!result.Failed && c.DebugOutputOnSuccess)) {
		_, _ = consoleDimColor.Fprintln(c.out(), debugOutput.ToString("    DEBUG "))
	}
}

func (c ConsoleReporter) StepSkipped(id StepID, reason string) {
	if !c.ShowSkipped {
		return
	}
	_, _ = consoleSkippedColor.Fprintf(c.out(), "  SKIP  %s (%s)\n", id.Label(), reason)
}

// Pass prints a passing status line.
func (c ConsoleReporter) Pass(label, detail string) {
	line := "  " + consolePassColor.Sprint("PASS") + "  " + label
	if detail != "" {
		line += "  " + consoleDimColor.Sprint(detail)
	}
	_, _ = fmt.Fprintln(c.out(), line)
}

// Fail prints a failing status line, with the detail indented underneath it.
func (c ConsoleReporter) Fail(label, detail string) {
	line := "  " + consoleFailColor.Sprint("FAIL") + "  " + label
	if detail != "" {
		for _, d := range strings.Split(detail, "\n") {
			line += "\n" + failDetailIndent + d
		}
	}
	_, _ = fmt.Fprintln(c.out(), line)
}

func (c ConsoleReporter) printNotes(notes Notes) {
	_, _ = fmt.Fprintf(c.out(), "\n  %s\n", consoleDimColor.Sprint(notes.Heading+":"))
	for _, line := range notes.Lines {
		_, _ = fmt.Fprintf(c.out(), "    %s\n", consoleDimColor.Sprint(line))
	}
}

func (c ConsoleReporter) EndLog(results Results) error {
	_, _ = fmt.Fprintln(c.out())
	if results.OK() {
		_, _ = consoleSummaryPassColor.Fprintf(c.out(), "All %d steps passed\n", countAttempted(results))
		return nil
	}
	_, _ = consoleSummaryFailColor.Fprintf(c.out(), "FAILED STEPS (%d):\n", len(results.Failures))
	for _, f := range results.Failures {
		_, _ = consoleFailColor.Fprintf(c.out(), "  * %s\n", f.ID)
	}
	return nil
}

func countAttempted(results Results) int {
	n := 0
	for _, s := range results.Steps {
		if !s.Skipped && !s.Quiet {
			n++
		}
	}
	return n
}
