package relaytests

import (
	"fmt"

	"github.com/relaygo/relay-test-harness/framework/steps"
)

// Mode selects which suites run.
type Mode string

const (
	ModeBridge Mode = "bridge"
	ModeMCP    Mode = "mcp"
	ModeBoth   Mode = "both"
)

// DefaultMode is used when no mode is given.
const DefaultMode = ModeMCP

// UnknownModeError is returned by ParseMode for anything other than the three known modes.
type UnknownModeError struct {
	Mode string
}

func (e UnknownModeError) Error() string {
	return fmt.Sprintf("Unknown mode: %s", e.Mode)
}

// ParseMode parses a mode name. An empty string means DefaultMode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return DefaultMode, nil
	case ModeBridge, ModeMCP, ModeBoth:
		return Mode(s), nil
	default:
		return "", UnknownModeError{Mode: s}
	}
}

func (m Mode) includesBridge() bool { return m == ModeBridge || m == ModeBoth }

func (m Mode) includesMCP() bool { return m == ModeMCP || m == ModeBoth }

// Suites returns the sequences for the mode, bridge first.
func Suites(mode Mode, config Config) []*steps.Sequence {
	var ret []*steps.Sequence
	if mode.includesBridge() {
		ret = append(ret, BridgeSuite(config))
	}
	if mode.includesMCP() {
		ret = append(ret, MCPSuite(config))
	}
	return ret
}

// RunSuites runs the suites for the mode one after another and returns the combined results.
// It does not call the reporter's EndLog.
func RunSuites(mode Mode, config Config, reporter steps.Reporter) steps.Results {
	var results steps.Results
	for _, s := range Suites(mode, config) {
		results = results.Merge(s.Run(reporter))
	}
	return results
}
