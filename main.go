package main

import (
	_ "embed" // this is required in order for go:embed to work
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/relaygo/relay-test-harness/framework/steps"
	"github.com/relaygo/relay-test-harness/relaytests"
)

//go:embed VERSION
var versionString string // comes from the VERSION file which we update for each release

func main() {
	version := strings.TrimSpace(versionString)
	fmt.Printf("relay-test-harness v%s\n", version)

	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}

	results, err := run(params, nil, version, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if params.strict && !results.OK() {
		os.Exit(1)
	}
}

// run executes the selected suites. A nil environ means the process environment and a nil
// out means standard output.
func run(params commandParams, environ map[string]string, version string, out io.Writer) (*steps.Results, error) {
	config, err := loadConfig(params, environ, version)
	if err != nil {
		return nil, err
	}

	var reporter steps.Reporter
	consoleReporter := steps.ConsoleReporter{
		Out:                  out,
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}
	if params.jUnitFile == "" {
		reporter = consoleReporter
	} else {
		reporter = steps.MultiReporter{Reporters: []steps.Reporter{
			consoleReporter,
			steps.NewJUnitReporter(params.jUnitFile, map[string]string{
				"harnessVersion": version,
				"mode":           string(params.mode),
				"socket":         config.SocketPath,
				"binary":         config.Binary,
				"tool":           config.Tool,
				"probes":         strconv.FormatBool(config.Probes),
			}),
		}}
	}

	results := relaytests.RunSuites(params.mode, config, reporter)

	if err := reporter.EndLog(results); err != nil {
		return nil, fmt.Errorf("error writing log: %w", err)
	}
	return &results, nil
}
