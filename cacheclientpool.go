package igcorex

import (
	"context"

	"github.com/jackc/puddle/v2"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type CacheClientPoolConfig struct {
	ClientConfig CacheClientConfig

	// MaxSize caps how many connections the pool may hold. Sizing policy
	// beyond the cap is the caller's concern.
	MaxSize int32
}

type CacheClientPoolOptions struct {
	Logger *zap.Logger

	// NewCacheClient allows tests to inject a client constructor in place
	// of a real dialed connection.
	NewCacheClient func(ctx context.Context) (*CacheClient, error)
}

type CacheClientPoolStats struct {
	TotalConns       int32
	IdleConns        int32
	AcquiredConns    int32
	AcquireCount     int64
	CreatedClients   int64
	DestroyedClients int64
}

// CacheClientPool maintains a pool of independent connections to one
// server. Each acquired client multiplexes its own callers; the pool only
// spreads load across connections and recycles the ones that died.
type CacheClientPool struct {
	logger *zap.Logger
	pool   *puddle.Pool[*CacheClient]

	createdClients   atomic.Int64
	destroyedClients atomic.Int64
}

func NewCacheClientPool(config *CacheClientPoolConfig, opts *CacheClientPoolOptions) (*CacheClientPool, error) {
	if opts == nil {
		opts = &CacheClientPoolOptions{}
	}
	logger := loggerOrNop(opts.Logger)

	newClient := opts.NewCacheClient
	if newClient == nil {
		clientConfig := config.ClientConfig
		newClient = func(ctx context.Context) (*CacheClient, error) {
			return NewCacheClient(ctx, &clientConfig, &CacheClientOptions{
				Logger: logger,
			})
		}
	}

	p := &CacheClientPool{
		logger: logger,
	}

	pool, err := puddle.NewPool(&puddle.Config[*CacheClient]{
		Constructor: func(ctx context.Context) (*CacheClient, error) {
			cli, err := newClient(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "failed to construct pooled cache client")
			}
			p.createdClients.Inc()
			return cli, nil
		},
		Destructor: func(cli *CacheClient) {
			p.destroyedClients.Inc()
			if err := cli.Close(); err != nil {
				logger.Debug("failed to close pooled cache client", zap.Error(err))
			}
		},
		MaxSize: config.MaxSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to construct cache client pool")
	}
	p.pool = pool

	return p, nil
}

// WithClient runs fn with a pooled client. A connection-level failure
// destroys the pooled connection so a later acquire dials a fresh one;
// server errors leave it in place.
func (p *CacheClientPool) WithClient(ctx context.Context, fn func(cli *CacheClient) error) error {
	res, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}

	err = fn(res.Value())
	if err != nil && res.Value().Closed() {
		res.Destroy()
		return err
	}

	res.Release()
	return err
}

func (p *CacheClientPool) Stats() CacheClientPoolStats {
	s := p.pool.Stat()

	return CacheClientPoolStats{
		TotalConns:       s.TotalResources(),
		IdleConns:        s.IdleResources(),
		AcquiredConns:    s.AcquiredResources(),
		AcquireCount:     s.AcquireCount(),
		CreatedClients:   p.createdClients.Load(),
		DestroyedClients: p.destroyedClients.Load(),
	}
}

func (p *CacheClientPool) Close() {
	p.pool.Close()
}
