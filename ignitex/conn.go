package ignitex

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
)

const (
	handshakeCode     = 1
	handshakeClientKV = 2
	handshakeSuccess  = 1
)

// Conn owns one transport stream to the server, after a successful
// handshake. Writes of whole frames are serialized internally; reads are
// expected to come from a single owner.
type Conn struct {
	conn    net.Conn
	version ProtocolVersion

	writeLock sync.Mutex
	writer    FrameWriter

	reader FrameReader
}

type DialConnOptions struct {
	TLSConfig *tls.Config

	// Version is the protocol version to request. Zero means
	// ProtocolVersion110.
	Version ProtocolVersion

	// Username enables the credential part of the handshake when non-empty.
	Username string
	Password string
}

// DialConn opens a transport connection and performs the handshake. If the
// server rejects the requested version and suggests another, the dial is
// retried once with the suggested version on a fresh stream. A failed dial
// leaves no open connection behind.
func DialConn(ctx context.Context, address string, opts *DialConnOptions) (*Conn, error) {
	if opts == nil {
		opts = &DialConnOptions{}
	}

	version := opts.Version
	if version.IsZero() {
		version = ProtocolVersion110
	}

	conn, err := dialAndHandshake(ctx, address, version, opts)
	if err == nil {
		return conn, nil
	}

	var hErr HandshakeError
	if !errors.As(err, &hErr) || hErr.ServerVersion.IsZero() || hErr.ServerVersion == version {
		return nil, err
	}

	// the server speaks an older protocol; retry once at its version.
	return dialAndHandshake(ctx, address, hErr.ServerVersion, opts)
}

func dialAndHandshake(ctx context.Context, address string, version ProtocolVersion, opts *DialConnOptions) (*Conn, error) {
	dialer := net.Dialer{}
	netConn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, connectionError{cause: err}
	}

	if opts.TLSConfig != nil {
		tlsConn := tls.Client(netConn, opts.TLSConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = netConn.Close()
			return nil, connectionError{cause: err}
		}
		netConn = tlsConn
	}

	if err := handshake(netConn, version, opts); err != nil {
		_ = netConn.Close()
		return nil, err
	}

	return &Conn{
		conn:    netConn,
		version: version,
	}, nil
}

func handshake(conn net.Conn, version ProtocolVersion, opts *DialConnOptions) error {
	body := make([]byte, 0, 8)
	body = append(body, handshakeCode)
	body = binary.LittleEndian.AppendUint16(body, uint16(version.Major))
	body = binary.LittleEndian.AppendUint16(body, uint16(version.Minor))
	body = binary.LittleEndian.AppendUint16(body, uint16(version.Patch))
	body = append(body, handshakeClientKV)

	if opts.Username != "" {
		var err error
		body, err = AppendValue(body, String(opts.Username))
		if err != nil {
			return err
		}
		if opts.Password != "" {
			body, err = AppendValue(body, String(opts.Password))
		} else {
			body, err = AppendValue(body, nil)
		}
		if err != nil {
			return err
		}
	}

	frame := binary.LittleEndian.AppendUint32(make([]byte, 0, 4+len(body)), uint32(len(body)))
	frame = append(frame, body...)

	if _, err := conn.Write(frame); err != nil {
		return connectionError{cause: err}
	}

	resp, err := readRawFrame(conn)
	if err != nil {
		return err
	}

	if len(resp) < 1 {
		return protocolError{"handshake response missing success flag"}
	}

	if resp[0] == handshakeSuccess {
		return nil
	}

	if len(resp) < 7 {
		return protocolError{"handshake rejection too short"}
	}

	serverVersion := ProtocolVersion{
		Major: int16(binary.LittleEndian.Uint16(resp[1:])),
		Minor: int16(binary.LittleEndian.Uint16(resp[3:])),
		Patch: int16(binary.LittleEndian.Uint16(resp[5:])),
	}

	message := "handshake rejected"
	if msgVal, _, err := ReadValue(resp[7:]); err == nil {
		if msg, ok := msgVal.(String); ok {
			message = string(msg)
		}
	}

	return HandshakeError{
		ServerVersion: serverVersion,
		ClientVersion: version,
		Message:       message,
	}
}

func readRawFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, connectionError{cause: err}
	}

	frameLen := int32(binary.LittleEndian.Uint32(lenBuf[:]))
	if frameLen < 0 || frameLen > maxFrameLen {
		return nil, protocolError{"invalid frame length"}
	}

	body := make([]byte, frameLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, connectionError{cause: err}
	}

	return body, nil
}

// ProtocolVersion is the version the handshake settled on.
func (c *Conn) ProtocolVersion() ProtocolVersion {
	return c.version
}

// WriteRequest writes one whole frame. Concurrent callers never interleave
// bytes of different requests.
func (c *Conn) WriteRequest(req *Request) error {
	c.writeLock.Lock()
	err := c.writer.WriteRequest(c.conn, req)
	c.writeLock.Unlock()

	return err
}

// ReadResponse reads exactly one frame. Single-owner: only the dispatch
// loop may call this.
func (c *Conn) ReadResponse(resp *Response) error {
	return c.reader.ReadResponse(c.conn, resp)
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
