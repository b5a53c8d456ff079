package ignitex

import (
	"net"
	"os"
	"sync"

	"go.uber.org/zap"
)

var enablePacketLogging bool = os.Getenv("IGCOREX_PACKET_LOGGING") != ""

// Client frames requests onto a single Conn and demultiplexes responses by
// correlation id. It is safe for concurrent use; a single background read
// loop owns the receive side and fans responses out to whichever handler
// registered the matching id.
type Client struct {
	conn          *Conn
	orphanHandler func(*Response)
	closeHandler  func(error)
	logger        *zap.Logger

	// handlerMapLock controls access to the handler map itself and is used
	// for all access to it.
	handlerMapLock sync.Mutex
	// handlerInvokeLock controls being able to call handlers from the map,
	// and is not used on the write side. This lets Close, cancelHandler and
	// dispatchResponse coordinate without holding the map lock around
	// callback invocations.
	handlerInvokeLock sync.Mutex
	correlationCtr    int64
	handlerMap        map[int64]DispatchCallback

	closedLock sync.Mutex
	closed     bool
}

var _ Dispatcher = (*Client)(nil)

type ClientOptions struct {
	// OrphanHandler receives responses whose correlation id matches no
	// pending request. When nil, orphans are logged and dropped; they never
	// terminate the read loop.
	OrphanHandler func(*Response)
	CloseHandler  func(error)
	Logger        *zap.Logger
}

func NewClient(conn *Conn, opts *ClientOptions) *Client {
	if opts == nil {
		opts = &ClientOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		conn:          conn,
		orphanHandler: opts.OrphanHandler,
		closeHandler:  opts.CloseHandler,
		logger:        logger,

		correlationCtr: 1,
		handlerMap:     make(map[int64]DispatchCallback),
	}
	go c.run()

	return c
}

func (c *Client) run() {
	resp := &Response{}
	var closeErr error
	for {
		err := c.conn.ReadResponse(resp)
		if err != nil {
			closeErr = err
			break
		}

		c.dispatchResponse(resp)
		resp = &Response{}
	}

	// any read-side failure invalidates the whole connection: every
	// pending handler resolves with the close error, not just the one
	// whose frame went bad.
	c.closeWithError(closeErr)
}

func (c *Client) registerHandler(handler DispatchCallback) int64 {
	c.handlerMapLock.Lock()

	correlationID := c.correlationCtr
	c.correlationCtr++

	c.handlerMap[correlationID] = handler

	c.handlerMapLock.Unlock()

	return correlationID
}

func (c *Client) cancelHandler(correlationID int64, err error) bool {
	c.handlerInvokeLock.Lock()
	defer c.handlerInvokeLock.Unlock()
	c.handlerMapLock.Lock()

	handler, handlerIsValid := c.handlerMap[correlationID]
	if !handlerIsValid {
		c.handlerMapLock.Unlock()
		return false
	}

	delete(c.handlerMap, correlationID)
	c.handlerMapLock.Unlock()

	c.logger.Debug("cancelling operation",
		zap.Int64("correlationId", correlationID),
	)

	handler(nil, requestCancelledError{cause: err})
	return true
}

func (c *Client) dispatchResponse(resp *Response) {
	if enablePacketLogging {
		c.logger.Debug("read response",
			zap.Int64("correlationId", resp.CorrelationID),
			zap.String("status", resp.Status.String()),
			zap.Binary("payload", resp.Payload),
		)
	}

	c.handlerInvokeLock.Lock()
	defer c.handlerInvokeLock.Unlock()

	c.handlerMapLock.Lock()
	handler, handlerIsValid := c.handlerMap[resp.CorrelationID]
	if !handlerIsValid {
		orphanHandler := c.orphanHandler
		c.handlerMapLock.Unlock()

		// a stale or duplicate correlation id is a protocol error, but it
		// must not take down the read loop.
		if orphanHandler != nil {
			orphanHandler(resp)
			return
		}

		c.logger.Warn("dropped response with unmatched correlation id",
			zap.Int64("correlationId", resp.CorrelationID),
			zap.String("status", resp.Status.String()),
		)
		return
	}

	delete(c.handlerMap, resp.CorrelationID)
	c.handlerMapLock.Unlock()

	handler(resp, nil)
}

// Dispatch stamps req with a fresh correlation id, writes it to the
// network and registers the handler for its response. Handlers can be
// invoked before Dispatch returns due to races between this function
// returning and the read loop receiving responses; you are guaranteed to
// either receive the callback OR an error from this call, never both.
func (c *Client) Dispatch(req *Request, handler DispatchCallback) (PendingOp, error) {
	correlationID := c.registerHandler(handler)
	req.CorrelationID = correlationID

	if enablePacketLogging {
		c.logger.Debug("writing request",
			zap.String("opcode", req.OpCode.String()),
			zap.Int64("correlationId", req.CorrelationID),
			zap.Binary("payload", req.Payload),
		)
	}

	err := c.conn.WriteRequest(req)
	if err != nil {
		c.logger.Debug("failed to write request",
			zap.Error(err),
			zap.Int64("correlationId", correlationID),
			zap.String("opcode", req.OpCode.String()),
		)

		c.handlerMapLock.Lock()
		if _, ok := c.handlerMap[correlationID]; !ok {
			// the handler is gone from the map already, so someone
			// cancelled us while we were waiting on the write. they have
			// invoked the callback with their error, so we pretend the
			// write succeeded.
			c.handlerMapLock.Unlock()
			return pendingOpNoop{}, nil
		}

		delete(c.handlerMap, correlationID)
		c.handlerMapLock.Unlock()

		return nil, err
	}

	return clientPendingOp{
		client:        c,
		correlationID: correlationID,
	}, nil
}

// Close closes the underlying connection and fails every in-flight
// handler with ErrClosedInFlight. It is idempotent.
func (c *Client) Close() error {
	return c.closeWithError(nil)
}

func (c *Client) closeWithError(readErr error) error {
	c.closedLock.Lock()
	alreadyClosed := c.closed
	c.closed = true
	c.closedLock.Unlock()

	if alreadyClosed {
		return nil
	}

	if readErr != nil {
		c.logger.Debug("read loop terminated", zap.Error(readErr))
	}

	closeErr := c.conn.Close()

	// the read thread no longer services in-flight ops, so fail their
	// handlers here.
	c.handlerInvokeLock.Lock()
	c.handlerMapLock.Lock()
	handlers := c.handlerMap
	c.handlerMap = map[int64]DispatchCallback{}
	c.handlerMapLock.Unlock()

	for _, handler := range handlers {
		handler(nil, ErrClosedInFlight)
	}

	c.handlerInvokeLock.Unlock()

	if c.closeHandler != nil {
		c.closeHandler(readErr)
	}

	return closeErr
}

func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *Client) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// ProtocolVersion is the version negotiated on the underlying connection.
func (c *Client) ProtocolVersion() ProtocolVersion {
	return c.conn.ProtocolVersion()
}
