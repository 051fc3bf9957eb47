package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/relaygo/relay-test-harness/relaytests"
)

const usageLine = "Usage: relay-test-harness [flags] [bridge|mcp|both]"

type commandParams struct {
	configFile  string
	token       string
	socket      string
	binary      string
	tool        string
	readTimeout time.Duration
	exitTimeout time.Duration
	probes      bool
	debug       bool
	debugAll    bool
	strict      bool
	jUnitFile   string
	mode        relaytests.Mode

	// setFlags has the names of the flags that were given explicitly; only those override
	// the configuration file and the environment.
	setFlags map[string]bool
}

func (c *commandParams) Read(args []string) bool {
	return c.read(args, os.Stderr)
}

func (c *commandParams) read(args []string, errOut io.Writer) bool {
	fs := flag.NewFlagSet("relay-test-harness", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		fmt.Fprintln(errOut, usageLine)
		fs.PrintDefaults()
	}
	fs.StringVar(&c.configFile, "config", "", "YAML configuration file (default $RELAY_CONFIG)")
	fs.StringVar(&c.token, "token", "", "relay auth token (default $RELAY_TOKEN)")
	fs.StringVar(&c.socket, "socket", "", "bridge socket path (default $RELAY_SOCKET)")
	fs.StringVar(&c.binary, "binary", "", "relay executable for the MCP suite (default $RELAY_BIN)")
	fs.StringVar(&c.tool, "tool", "", "tool to invoke (default $RELAY_TOOL or "+relaytests.DefaultTool+")")
	fs.DurationVar(&c.readTimeout, "read-timeout", 0, "how long to wait for a bridge reply (default 10s)")
	fs.DurationVar(&c.exitTimeout, "exit-timeout", 0, "how long to wait for the relay to exit (default 5s)")
	fs.BoolVar(&c.probes, "probes", false, "also check error handling and idempotence")
	fs.BoolVar(&c.debug, "debug", false, "show wire traffic for failed steps")
	fs.BoolVar(&c.debugAll, "debug-all", false, "show wire traffic for all steps")
	fs.BoolVar(&c.strict, "strict", false, "exit with status 1 if any step fails")
	fs.StringVar(&c.jUnitFile, "junit", "", "write JUnit XML output to the specified path")

	if err := fs.Parse(args[1:]); err != nil {
		if err != flag.ErrHelp {
			fmt.Fprintln(errOut, usageLine)
		}
		return false
	}

	c.setFlags = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { c.setFlags[f.Name] = true })

	if fs.NArg() > 1 {
		fmt.Fprintf(errOut, "expected at most one mode, got %d arguments\n", fs.NArg())
		fmt.Fprintln(errOut, usageLine)
		return false
	}
	mode, err := relaytests.ParseMode(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(errOut, err)
		fmt.Fprintln(errOut, usageLine)
		return false
	}
	c.mode = mode
	return true
}

func (c *commandParams) isSet(name string) bool {
	return c.setFlags[name]
}
