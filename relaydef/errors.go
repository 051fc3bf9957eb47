package relaydef

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a TransportError.
type ErrorKind string

const (
	// KindConnect means the transport could not be opened: a missing socket, a refused
	// connection, or a child process that could not be started.
	KindConnect ErrorKind = "connect"

	// KindFraming means a complete line never arrived.
	KindFraming ErrorKind = "framing"

	// KindDecode means a line arrived but was not valid JSON of the expected shape.
	KindDecode ErrorKind = "decode"

	// KindProtocol means the reply was valid JSON but broke the protocol's rules, for
	// instance an unknown reply type or a mismatched JSON-RPC id.
	KindProtocol ErrorKind = "protocol"
)

var (
	// ErrStreamClosed is returned when the relay closes its output while a reply is expected.
	ErrStreamClosed = errors.New("no response - stream closed")

	// ErrNoNewline is returned when the bridge connection ends before a complete line.
	ErrNoNewline = errors.New("connection closed before a newline was received")
)

// TransportError is a failure of the transport itself, as opposed to an error that the relay
// reported. Op names what was being attempted, such as "dial" or "read reply".
type TransportError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error during %s: %s", e.Kind, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError is a shortcut for creating a *TransportError.
func NewTransportError(kind ErrorKind, op string, err error) *TransportError {
	return &TransportError{Kind: kind, Op: op, Err: err}
}

// IsKind returns true if err is, or wraps, a TransportError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Kind == kind
}

// ApplicationError is an error that the relay reported deliberately, either as a bridge
// Error reply or as a JSON-RPC error object.
type ApplicationError struct {
	Code    int
	Message string
	Data    []byte // raw JSON, or nil
}

func (e ApplicationError) Error() string {
	return fmt.Sprintf("code %d: %s", e.Code, e.Message)
}
