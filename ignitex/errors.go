package ignitex

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocol marks malformed frames and payloads: bad framing, unknown
	// type codes, truncated buffers, unmatched correlation ids.
	ErrProtocol = errors.New("protocol error")

	// ErrEncoding marks values that cannot be represented in the wire
	// format. These are detected before anything is written.
	ErrEncoding = errors.New("encoding error")

	// ErrConnection marks transport-level failures.
	ErrConnection = errors.New("connection error")

	// ErrHandshake marks a failed version or credential negotiation.
	ErrHandshake = errors.New("handshake error")
)

var (
	ErrUnknownTypeCode     = fmt.Errorf("%w: unknown type code", ErrProtocol)
	ErrTruncatedBuffer     = fmt.Errorf("%w: truncated buffer", ErrProtocol)
	ErrInvalidBooleanByte  = fmt.Errorf("%w: invalid boolean byte", ErrProtocol)
	ErrUnrepresentableChar = fmt.Errorf("%w: unrepresentable char", ErrEncoding)
)

// ErrClosedInFlight is delivered to every pending handler when the
// connection closes underneath them.
var ErrClosedInFlight = fmt.Errorf("%w: closed in flight", ErrConnection)

type protocolError struct {
	message string
}

func (e protocolError) Error() string {
	return "protocol error: " + e.message
}

func (e protocolError) Unwrap() error {
	return ErrProtocol
}

type connectionError struct {
	cause error
}

func (e connectionError) Error() string {
	return "connection error: " + e.cause.Error()
}

func (e connectionError) Unwrap() error {
	return e.cause
}

func (e connectionError) Is(err error) bool {
	return err == ErrConnection
}

type requestCancelledError struct {
	cause error
}

func (e requestCancelledError) Error() string {
	return "request cancelled: " + e.cause.Error()
}

func (e requestCancelledError) Unwrap() error {
	return e.cause
}

// HandshakeError carries the rejection the server reported during
// negotiation, including the version it suggested instead.
type HandshakeError struct {
	ServerVersion ProtocolVersion
	ClientVersion ProtocolVersion
	Message       string
}

func (e HandshakeError) Error() string {
	return fmt.Sprintf("handshake error: %s (client version %s, server suggested %s)",
		e.Message, e.ClientVersion, e.ServerVersion)
}

func (e HandshakeError) Unwrap() error {
	return ErrHandshake
}

// ServerError is a well-formed response reporting operation failure. It
// affects only the request it answers, not the connection.
type ServerError struct {
	Status  Status
	Message string
}

func (e ServerError) Error() string {
	return fmt.Sprintf("server error: %s (status %d)", e.Message, e.Status)
}
