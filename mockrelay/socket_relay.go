package mockrelay

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/relaygo/relay-test-harness/framework"
)

const socketClientCloseTimeout = 5 * time.Second

// SocketReply is what a SocketRelay writes back for one request. Data is written verbatim,
// so it must include the trailing newline if the reply is supposed to be well framed. If
// Close is true the relay closes the connection right after writing instead of waiting for
// the client to do so.
type SocketReply struct {
	Data  []byte
	Close bool
}

// SocketHandler decides the reply for one request line.
type SocketHandler func(request []byte) SocketReply

// ReplyLine returns a handler that always answers with the given line plus a newline.
func ReplyLine(line string) SocketHandler {
	return func([]byte) SocketReply { return SocketReply{Data: []byte(line + "\n")} }
}

// ReplyJSON returns a handler that always answers with the JSON encoding of value.
func ReplyJSON(value interface{}) SocketHandler {
	data, _ := json.Marshal(value)
	return ReplyLine(string(data))
}

// ConnectionRecord describes one connection that a SocketRelay accepted.
type ConnectionRecord struct {
	Request []byte

	// ClosedByClient is true if the client closed the connection after the reply.
	ClosedByClient bool

	// Trailing is anything the client sent after its first request line.
	Trailing []byte
}

// SocketRelay is a fake bridge relay listening on a Unix socket in a private temporary
// directory.
type SocketRelay struct {
	path        string
	dir         string
	listener    net.Listener
	handler     SocketHandler
	debugLogger framework.Logger
	records     []ConnectionRecord
	wg          sync.WaitGroup
	lock        sync.Mutex
	closeOnce   sync.Once
}

// StartSocketRelay starts listening and serving. Call Close to stop it.
func StartSocketRelay(handler SocketHandler, debugLogger framework.Logger) (*SocketRelay, error) {
	// Socket paths have a small length limit, so this avoids t.TempDir's long names.
	dir, err := os.MkdirTemp("", "rth")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "relay.sock")
	listener, err := net.Listen("unix", path)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	if debugLogger == nil {
		debugLogger = framework.NullLogger()
	}
	s := &SocketRelay{
		path:        path,
		dir:         dir,
		listener:    listener,
		handler:     handler,
		debugLogger: debugLogger,
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Path returns the socket path to connect to.
func (s *SocketRelay) Path() string { return s.path }

// Close stops listening, waits for open connections to finish, and removes the socket.
func (s *SocketRelay) Close() {
	s.closeOnce.Do(func() {
		_ = s.listener.Close()
		s.wg.Wait()
		_ = os.RemoveAll(s.dir)
	})
}

// Connections returns a record of every connection handled so far. Call Close first to be
// sure that every connection has finished.
func (s *SocketRelay) Connections() []ConnectionRecord {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]ConnectionRecord(nil), s.records...)
}

func (s *SocketRelay) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.debugLogger.Printf("mock relay accept error: %s", err)
			}
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serve(conn)
		}()
	}
}

func (s *SocketRelay) serve(conn net.Conn) {
	defer conn.Close() //nolint:errcheck

	var record ConnectionRecord
	defer func() {
		s.lock.Lock()
		s.records = append(s.records, record)
		s.lock.Unlock()
	}()

	_ = conn.SetDeadline(time.Now().Add(socketClientCloseTimeout))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		s.debugLogger.Printf("mock relay did not get a request line: %s", err)
		return
	}
	record.Request = line[:len(line)-1]
	s.debugLogger.Printf("mock relay got request: %s", record.Request)

	reply := s.handler(record.Request)
	if _, err := conn.Write(reply.Data); err != nil {
		s.debugLogger.Printf("mock relay write error: %s", err)
		return
	}
	if reply.Close {
		return
	}

	_ = conn.SetDeadline(time.Now().Add(socketClientCloseTimeout))
	trailing, err := io.ReadAll(reader)
	record.Trailing = trailing
	record.ClosedByClient = err == nil
}
