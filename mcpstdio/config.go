package mcpstdio

import (
	"fmt"
	"time"

	"github.com/relaygo/relay-test-harness/framework"
	"github.com/relaygo/relay-test-harness/framework/helpers"
)

// DefaultExitTimeout is how long Close waits for the relay to exit after its stdin is closed.
const DefaultExitTimeout = 5 * time.Second

// Config describes how the relay process is launched.
type Config struct {
	Binary string
	Token  string

	// Args are the arguments after the binary name. If nil, they are "mcp --token <Token>".
	Args []string

	// Env is added to the harness's own environment, as "NAME=value" strings.
	Env []string

	ExitTimeout time.Duration
	Logger      framework.Logger
}

// Option is an option for Start.
type Option = helpers.ConfigOption[Config]

func WithArgs(args ...string) Option {
	return helpers.ConfigOptionFunc[Config](func(c *Config) error {
		c.Args = args
		return nil
	})
}

func WithEnv(env ...string) Option {
	return helpers.ConfigOptionFunc[Config](func(c *Config) error {
		c.Env = append(c.Env, env...)
		return nil
	})
}

func WithExitTimeout(timeout time.Duration) Option {
	return helpers.ConfigOptionFunc[Config](func(c *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("exit timeout must be positive, got %s", timeout)
		}
		c.ExitTimeout = timeout
		return nil
	})
}

// WithLogger sets the logger that receives the wire traffic and process events.
func WithLogger(logger framework.Logger) Option {
	return helpers.ConfigOptionFunc[Config](func(c *Config) error {
		c.Logger = logger
		return nil
	})
}

func (c Config) args() []string {
	if c.Args != nil {
		return c.Args
	}
	return []string{"mcp", "--token", c.Token}
}

// redactedArgs is args with the token masked, for logging.
func (c Config) redactedArgs() []string {
	ret := make([]string, 0, len(c.args()))
	for _, a := range c.args() {
		ret = append(ret, helpers.IfElse(c.Token != "" && a == c.Token, "***", a))
	}
	return ret
}
