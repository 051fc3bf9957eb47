// Package bridge is a client for the relay's Unix socket protocol. Each request opens a new
// connection, writes one JSON object followed by a newline, reads one reply line, and closes
// the connection; nothing is kept between requests.
package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/relaygo/relay-test-harness/framework"
	"github.com/relaygo/relay-test-harness/framework/helpers"
	"github.com/relaygo/relay-test-harness/relaydef"
)

// DefaultReadTimeout is how long Send waits for a complete reply line.
const DefaultReadTimeout = 10 * time.Second

const readChunkSize = 4096

// Client sends requests to the bridge socket at one path, authenticating with one token.
type Client struct {
	socketPath  string
	token       string
	readTimeout time.Duration
	logger      framework.Logger
	sent        framework.Logger
	received    framework.Logger
	dial        func(network, address string, timeout time.Duration) (net.Conn, error)
}

// ClientOption is an option for NewClient.
type ClientOption = helpers.ConfigOption[Client]

// WithReadTimeout overrides DefaultReadTimeout.
func WithReadTimeout(timeout time.Duration) ClientOption {
	return helpers.ConfigOptionFunc[Client](func(c *Client) error {
		if timeout <= 0 {
			return fmt.Errorf("read timeout must be positive, got %s", timeout)
		}
		c.readTimeout = timeout
		return nil
	})
}

// WithLogger sets the logger that receives the wire traffic.
func WithLogger(logger framework.Logger) ClientOption {
	return helpers.ConfigOptionFunc[Client](func(c *Client) error {
		c.logger = logger
		return nil
	})
}

func NewClient(socketPath, token string, options ...ClientOption) (*Client, error) {
	c := &Client{
		socketPath:  socketPath,
		token:       token,
		readTimeout: DefaultReadTimeout,
		dial:        net.DialTimeout,
	}
	if err := helpers.ApplyOptions(c, options...); err != nil {
		return nil, err
	}
	c.logger = helpers.IfElse(c.logger == nil, framework.NullLogger(), c.logger)
	c.sent = framework.LoggerWithPrefix(c.logger, "bridge> ")
	c.received = framework.LoggerWithPrefix(c.logger, "bridge< ")
	return c, nil
}

// DefaultSocketPath is where the relay listens unless configured otherwise.
func DefaultSocketPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir, _ = os.UserHomeDir()
	}
	return filepath.Join(configDir, "relay", "relay.sock")
}

func (c *Client) SocketPath() string { return c.socketPath }

// ListTools asks the relay for its tool catalog.
func (c *Client) ListTools() (relaydef.BridgeReply, error) {
	return c.Send(relaydef.BridgeRequest{Type: relaydef.BridgeListTools, Token: c.token})
}

// CallTool invokes a tool. Nil arguments are sent as an empty object.
func (c *Client) CallTool(name string, arguments json.RawMessage) (relaydef.BridgeReply, error) {
	if arguments == nil {
		arguments = json.RawMessage(`{}`)
	}
	return c.Send(relaydef.BridgeRequest{
		Type:      relaydef.BridgeCallTool,
		Token:     c.token,
		Name:      name,
		Arguments: arguments,
	})
}

// SendType sends a request with only a type and the token. It is how requests that the
// harness does not otherwise model are sent.
func (c *Client) SendType(requestType string) (relaydef.BridgeReply, error) {
	return c.Send(relaydef.BridgeRequest{Type: requestType, Token: c.token})
}

// Send performs one request/reply exchange on a new connection. Every error it returns is a
// *relaydef.TransportError.
func (c *Client) Send(request relaydef.BridgeRequest) (relaydef.BridgeReply, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return nil, relaydef.NewTransportError(relaydef.KindDecode, "encode request", err)
	}

	conn, err := c.dial("unix", c.socketPath, c.readTimeout)
	if err != nil {
		return nil, relaydef.NewTransportError(relaydef.KindConnect, "dial "+c.socketPath, err)
	}
	defer conn.Close() //nolint:errcheck
	if err := conn.SetDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return nil, relaydef.NewTransportError(relaydef.KindConnect, "set deadline", err)
	}

	c.sent.Printf("%s", data)
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, relaydef.NewTransportError(relaydef.KindConnect, "write request", err)
	}

	line, err := c.readLine(conn)
	if err != nil {
		return nil, err
	}
	c.received.Printf("%s", line)
	return relaydef.DecodeBridgeReply(bytes.TrimSpace(line))
}

// readLine accumulates data until a newline arrives, returning what precedes it.
func (c *Client) readLine(conn net.Conn) ([]byte, error) {
	var buf []byte
	chunk := make([]byte, readChunkSize)
	for {
		n, err := conn.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			return buf[:i], nil
		}
		if err == nil {
			continue
		}
		if len(buf) > 0 {
			c.received.Printf("(partial) %s", buf)
		}
		var netErr net.Error
		switch {
		case errors.As(err, &netErr) && netErr.Timeout():
			return nil, relaydef.NewTransportError(relaydef.KindFraming, "read reply",
				fmt.Errorf("no newline received within %s", c.readTimeout))
		case errors.Is(err, io.EOF):
			return nil, relaydef.NewTransportError(relaydef.KindFraming, "read reply", relaydef.ErrNoNewline)
		default:
			return nil, relaydef.NewTransportError(relaydef.KindFraming, "read reply", err)
		}
	}
}
