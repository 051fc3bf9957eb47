package relaytests

import (
	"time"

	"github.com/relaygo/relay-test-harness/bridge"
	"github.com/relaygo/relay-test-harness/mcpstdio"
)

const (
	// DefaultToken is used when no token is configured. A real relay will reject it, which
	// shows up as an authentication error on the first step.
	DefaultToken = "your-token-here"

	DefaultBinary = "/Applications/Relay.app/Contents/MacOS/relay"
	DefaultTool   = "list_voices"

	// ClientName is what the harness calls itself in the MCP handshake.
	ClientName = "relay-test-harness"
)

// Config is everything the suites need to know about the relay under test.
type Config struct {
	SocketPath  string
	Token       string
	Binary      string
	Tool        string
	ReadTimeout time.Duration
	ExitTimeout time.Duration

	// Probes adds the error and idempotence probe steps to both suites.
	Probes bool

	// ClientVersion is reported in the MCP clientInfo.
	ClientVersion string

	// RelayEnv is extra environment for the relay process, as "NAME=value" strings.
	RelayEnv []string
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		SocketPath:    bridge.DefaultSocketPath(),
		Token:         DefaultToken,
		Binary:        DefaultBinary,
		Tool:          DefaultTool,
		ReadTimeout:   bridge.DefaultReadTimeout,
		ExitTimeout:   mcpstdio.DefaultExitTimeout,
		ClientVersion: "dev",
	}
}
