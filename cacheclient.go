package igcorex

import (
	"context"
	"crypto/tls"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/ignitecache/igcorex/ignitex"
)

// GetDispatcherFunc allows tests to inject a dispatcher in place of a real
// dialed connection.
type GetDispatcherFunc func(opts *ignitex.ClientOptions) DispatcherCloser

type DispatcherCloser interface {
	ignitex.Dispatcher
	Close() error
}

type CacheClientConfig struct {
	Address   string
	TLSConfig *tls.Config

	// Version is the protocol version to request during the handshake.
	// Zero means the package default.
	Version ignitex.ProtocolVersion

	Username string
	Password string
}

type CacheClientOptions struct {
	Logger        *zap.Logger
	NewDispatcher GetDispatcherFunc
}

// CacheClient is a synchronous, context-aware wrapper around an
// ignitex.Client. Any number of callers may invoke operations concurrently;
// each suspends until its own correlated response arrives while others
// proceed independently over the shared connection.
type CacheClient struct {
	logger *zap.Logger
	cli    DispatcherCloser

	pendingOperations atomic.Int64
	closed            atomic.Bool
}

// NewCacheClient dials the server, performs the handshake and returns a
// usable client. Operation failures reported by the server afterwards do
// not affect the connection; transport and protocol failures invalidate it,
// and reopening is the only recovery path.
func NewCacheClient(ctx context.Context, config *CacheClientConfig, opts *CacheClientOptions) (*CacheClient, error) {
	if opts == nil {
		opts = &CacheClientOptions{}
	}

	logger := loggerOrNop(opts.Logger)
	// We namespace the client to improve debugging,
	logger = logger.With(
		zap.String("clientId", uuid.NewString()[:8]),
	)

	c := &CacheClient{
		logger: logger,
	}

	logger.Debug("id assigned for " + config.Address)

	clientOpts := &ignitex.ClientOptions{
		Logger: logger,
		OrphanHandler: func(resp *ignitex.Response) {
			logger.Warn("received response with no matching request",
				zap.Int64("correlationId", resp.CorrelationID),
				zap.String("status", resp.Status.String()),
			)
		},
		CloseHandler: func(err error) {
			c.closed.Store(true)
			if err != nil {
				logger.Warn("connection lost", zap.Error(err))
			}
		},
	}

	if opts.NewDispatcher == nil {
		conn, err := ignitex.DialConn(ctx, config.Address, &ignitex.DialConnOptions{
			TLSConfig: config.TLSConfig,
			Version:   config.Version,
			Username:  config.Username,
			Password:  config.Password,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to establish cache connection")
		}

		cli := ignitex.NewClient(conn, clientOpts)
		logger.Debug("connection established",
			zap.String("remote", cli.RemoteAddr().String()),
			zap.String("protocolVersion", cli.ProtocolVersion().String()))

		c.cli = cli
	} else {
		c.cli = opts.NewDispatcher(clientOpts)
	}

	return c, nil
}

// PendingOps reports how many operations are currently awaiting responses.
func (c *CacheClient) PendingOps() int64 {
	return c.pendingOperations.Load()
}

// Closed reports whether the client's connection is gone, either by an
// explicit Close or by a transport failure.
func (c *CacheClient) Closed() bool {
	return c.closed.Load()
}

// Close closes the underlying connection; every in-flight operation
// resolves with a connection-closed error. Close is idempotent.
func (c *CacheClient) Close() error {
	c.logger.Info("closing")
	if !c.closed.CompareAndSwap(false, true) {
		c.logger.Debug("already closed")
		return nil
	}

	return c.cli.Close()
}

// HasCache reports whether a cache with the given name exists on the
// server.
func (c *CacheClient) HasCache(ctx context.Context, cacheName string) (bool, error) {
	names, err := c.CacheNames(ctx)
	if err != nil {
		return false, err
	}

	return slices.Contains(names, cacheName), nil
}
