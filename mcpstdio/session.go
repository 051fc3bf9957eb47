// Package mcpstdio drives an MCP session with the relay over the standard input and output
// of a child process. Requests are written one JSON-RPC envelope per line and each reply is
// read synchronously right after its request, so there is never more than one request in
// flight.
package mcpstdio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relaygo/relay-test-harness/framework"
	"github.com/relaygo/relay-test-harness/framework/helpers"
	"github.com/relaygo/relay-test-harness/framework/opt"
	"github.com/relaygo/relay-test-harness/relaydef"
)

var (
	// ErrBinaryNotFound means there is no file at the configured binary path.
	ErrBinaryNotFound = errors.New("relay binary not found")

	// ErrExitTimeout means the relay did not exit within the exit timeout and was killed.
	ErrExitTimeout = errors.New("relay did not exit in time")

	errSessionClosed = errors.New("session is closed")
)

// Shutdown describes how the relay process ended.
type Shutdown struct {
	ExitCode int
	Stderr   string
}

// StderrLines returns the captured stderr split into lines, without leading or trailing blank
// lines.
func (s Shutdown) StderrLines() []string {
	trimmed := strings.TrimSpace(s.Stderr)
	if trimmed == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(trimmed, "\r\n", "\n"), "\n")
}

// Session is one running relay process and the MCP conversation with it. It is not safe for
// concurrent use.
type Session struct {
	config Config
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	writer *bufio.Writer
	stdout *bufio.Reader
	stderr *lockedBuffer
	logger framework.Logger
	nextID int64

	closed   bool
	shutdown Shutdown
	closeErr error
}

// Start launches the relay. Errors are *relaydef.TransportError values of kind KindConnect;
// a missing binary also matches ErrBinaryNotFound.
func Start(binary, token string, options ...Option) (*Session, error) {
	config := Config{Binary: binary, Token: token, ExitTimeout: DefaultExitTimeout}
	if err := helpers.ApplyOptions(&config, options...); err != nil {
		return nil, err
	}
	logger := helpers.IfElse(config.Logger == nil, framework.NullLogger(), config.Logger)

	info, err := os.Stat(binary)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, relaydef.NewTransportError(relaydef.KindConnect, "start relay",
			fmt.Errorf("%w: %s", ErrBinaryNotFound, binary))
	case err != nil:
		return nil, relaydef.NewTransportError(relaydef.KindConnect, "start relay", err)
	case info.IsDir():
		return nil, relaydef.NewTransportError(relaydef.KindConnect, "start relay",
			fmt.Errorf("%s is a directory", binary))
	}

	cmd := exec.Command(binary, config.args()...) //nolint:gosec
	if len(config.Env) > 0 {
		cmd.Env = append(os.Environ(), config.Env...)
	}
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr
	// Wait gives up on the stderr copy half way through the exit timeout, so a stuck copy
	// never outlasts the kill timer in Close.
	cmd.WaitDelay = config.ExitTimeout / 2

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, relaydef.NewTransportError(relaydef.KindConnect, "stdin pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, relaydef.NewTransportError(relaydef.KindConnect, "stdout pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, relaydef.NewTransportError(relaydef.KindConnect, "start relay", err)
	}
	logger.Printf("started relay (pid %d): %s %s", cmd.Process.Pid, binary,
		strings.Join(config.redactedArgs(), " "))

	return &Session{
		config: config,
		cmd:    cmd,
		stdin:  stdin,
		writer: bufio.NewWriter(stdin),
		stdout: bufio.NewReader(stdout),
		stderr: stderr,
		logger: logger,
		nextID: 1,
	}, nil
}

// Call sends a request with the next id and returns the relay's reply. A reply that is an
// RPCError is returned without an error; the error return is only for transport failures.
func (s *Session) Call(method string, params interface{}) (relaydef.RPCReply, error) {
	id := s.nextID
	s.nextID++
	return s.send(method, params, opt.Some(id))
}

// Notify sends a notification. Nothing is read back.
func (s *Session) Notify(method string, params interface{}) error {
	_, err := s.send(method, params, opt.None[int64]())
	return err
}

// NextID returns the id that the next Call will use.
func (s *Session) NextID() int64 { return s.nextID }

func (s *Session) send(method string, params interface{}, id opt.Maybe[int64]) (relaydef.RPCReply, error) {
	if s.closed {
		return nil, relaydef.NewTransportError(relaydef.KindConnect, method, errSessionClosed)
	}

	request := relaydef.RPCRequest{JSONRPC: relaydef.JSONRPCVersion, Method: method, ID: id.AsPtr()}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, relaydef.NewTransportError(relaydef.KindDecode, "encode params", err)
		}
		request.Params = data
	}
	line, err := json.Marshal(request)
	if err != nil {
		return nil, relaydef.NewTransportError(relaydef.KindDecode, "encode request", err)
	}

	s.logger.Printf("mcp> %s", line)
	if _, err := s.writer.Write(append(line, '\n')); err != nil {
		return nil, relaydef.NewTransportError(relaydef.KindConnect, "write "+method, err)
	}
	if err := s.writer.Flush(); err != nil {
		return nil, relaydef.NewTransportError(relaydef.KindConnect, "write "+method, err)
	}
	if request.IsNotification() {
		return nil, nil
	}

	replyLine, err := s.stdout.ReadBytes('\n')
	if len(replyLine) == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			s.logger.Printf("mcp< read error: %s", err)
		}
		return nil, relaydef.NewTransportError(relaydef.KindProtocol, "read "+method+" reply",
			relaydef.ErrStreamClosed)
	}
	replyLine = bytes.TrimRight(replyLine, "\r\n")
	s.logger.Printf("mcp< %s", replyLine)

	reply, err := relaydef.DecodeRPCReply(replyLine)
	if err != nil {
		return nil, err
	}
	expectedID := strconv.FormatInt(id.Value(), 10)
	if actualID := helpers.CanonicalizedRawJSON(reply.ReplyID()); actualID != expectedID {
		return nil, relaydef.NewTransportError(relaydef.KindProtocol, "read "+method+" reply",
			fmt.Errorf("reply id %s does not match request id %s", describeID(actualID), expectedID))
	}
	return reply, nil
}

func describeID(id string) string {
	if id == "" {
		return "(missing)"
	}
	return id
}

// Close ends the session: it closes the relay's stdin, waits for the process to exit, and
// returns its exit status and everything it wrote to stderr. If the process does not exit
// within the exit timeout it is killed and the error matches ErrExitTimeout. Calling Close
// again returns the same results.
func (s *Session) Close() (Shutdown, error) {
	if s.closed {
		return s.shutdown, s.closeErr
	}
	s.closed = true
	_ = s.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-done:
		s.shutdown.ExitCode = exitCode(s.cmd.ProcessState, waitErr)
		s.logger.Printf("relay exited with code %d", s.shutdown.ExitCode)
	case <-time.After(s.config.ExitTimeout):
		_ = s.cmd.Process.Kill()
		<-done
		s.shutdown.ExitCode = -1
		s.closeErr = fmt.Errorf("%w within %s; killed it", ErrExitTimeout, s.config.ExitTimeout)
		s.logger.Printf("relay did not exit within %s; killed", s.config.ExitTimeout)
	}
	s.shutdown.Stderr = s.stderr.String()
	return s.shutdown, s.closeErr
}

// exitCode prefers the process state; Wait can also fail with exec.ErrWaitDelay after a
// clean exit when a process the relay left behind still holds its stderr open.
func exitCode(state *os.ProcessState, err error) int {
	if state != nil {
		return state.ExitCode()
	}
	if err == nil {
		return 0
	}
	return -1
}

// lockedBuffer lets os/exec's stderr copier write while the session reads.
type lockedBuffer struct {
	buf  bytes.Buffer
	lock sync.Mutex
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}
