package igcorex

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ignitecache/igcorex/ignitex"
)

func newTestCacheClient(t *testing.T, server *testServer) *CacheClient {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewCacheClient(ctx, &CacheClientConfig{
		Address: server.Address(),
	}, &CacheClientOptions{
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func TestCacheClientPutGet(t *testing.T) {
	server := newTestServer(t, "accounts")
	client := newTestCacheClient(t, server)
	ctx := context.Background()

	_, err := client.Put(ctx, &PutOptions{
		CacheName: "accounts",
		Key:       ignitex.String("alice"),
		Value:     ignitex.Int64(100),
	})
	require.NoError(t, err)

	resp, err := client.Get(ctx, &GetOptions{
		CacheName: "accounts",
		Key:       ignitex.String("alice"),
	})
	require.NoError(t, err)
	require.Equal(t, ignitex.Int64(100), resp.Value)

	// overwrite with a different type
	_, err = client.Put(ctx, &PutOptions{
		CacheName: "accounts",
		Key:       ignitex.String("alice"),
		Value:     ignitex.String("overdrawn"),
	})
	require.NoError(t, err)

	resp, err = client.Get(ctx, &GetOptions{
		CacheName: "accounts",
		Key:       ignitex.String("alice"),
	})
	require.NoError(t, err)
	require.Equal(t, ignitex.String("overdrawn"), resp.Value)
}

func TestCacheClientGetMissingKey(t *testing.T) {
	server := newTestServer(t, "accounts")
	client := newTestCacheClient(t, server)

	resp, err := client.Get(context.Background(), &GetOptions{
		CacheName: "accounts",
		Key:       ignitex.String("nobody"),
	})
	require.NoError(t, err)
	require.Nil(t, resp.Value)
}

func TestCacheClientUnknownCache(t *testing.T) {
	server := newTestServer(t, "accounts")
	client := newTestCacheClient(t, server)

	_, err := client.Get(context.Background(), &GetOptions{
		CacheName: "no-such-cache",
		Key:       ignitex.String("k"),
	})
	require.Error(t, err)

	var srvErr ignitex.ServerError
	require.ErrorAs(t, err, &srvErr)

	// a server-reported failure leaves the connection usable.
	_, err = client.Get(context.Background(), &GetOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
	})
	require.NoError(t, err)
}

func TestCacheClientDistinctCaches(t *testing.T) {
	server := newTestServer(t, "left", "right")
	client := newTestCacheClient(t, server)
	ctx := context.Background()

	_, err := client.Put(ctx, &PutOptions{
		CacheName: "left",
		Key:       ignitex.String("k"),
		Value:     ignitex.Int32(1),
	})
	require.NoError(t, err)

	resp, err := client.Get(ctx, &GetOptions{
		CacheName: "right",
		Key:       ignitex.String("k"),
	})
	require.NoError(t, err)
	require.Nil(t, resp.Value)
}

func TestCacheClientConditionalOps(t *testing.T) {
	server := newTestServer(t, "accounts")
	client := newTestCacheClient(t, server)
	ctx := context.Background()

	stored, err := client.PutIfAbsent(ctx, &PutIfAbsentOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
		Value:     ignitex.Int32(1),
	})
	require.NoError(t, err)
	require.True(t, stored.Stored)

	stored, err = client.PutIfAbsent(ctx, &PutIfAbsentOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
		Value:     ignitex.Int32(2),
	})
	require.NoError(t, err)
	require.False(t, stored.Stored)

	replaced, err := client.ReplaceIfEquals(ctx, &ReplaceIfEqualsOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
		OldValue:  ignitex.Int32(999),
		NewValue:  ignitex.Int32(3),
	})
	require.NoError(t, err)
	require.False(t, replaced.Replaced)

	replaced, err = client.ReplaceIfEquals(ctx, &ReplaceIfEqualsOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
		OldValue:  ignitex.Int32(1),
		NewValue:  ignitex.Int32(3),
	})
	require.NoError(t, err)
	require.True(t, replaced.Replaced)

	contains, err := client.ContainsKey(ctx, &ContainsKeyOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
	})
	require.NoError(t, err)
	require.True(t, contains.Exists)

	removed, err := client.RemoveIfEquals(ctx, &RemoveIfEqualsOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
		OldValue:  ignitex.Int32(3),
	})
	require.NoError(t, err)
	require.True(t, removed.Removed)

	contains, err = client.ContainsKey(ctx, &ContainsKeyOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
	})
	require.NoError(t, err)
	require.False(t, contains.Exists)
}

func TestCacheClientGetAndPut(t *testing.T) {
	server := newTestServer(t, "accounts")
	client := newTestCacheClient(t, server)
	ctx := context.Background()

	resp, err := client.GetAndPut(ctx, &GetAndPutOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
		Value:     ignitex.Int32(1),
	})
	require.NoError(t, err)
	require.Nil(t, resp.Previous)

	resp, err = client.GetAndPut(ctx, &GetAndPutOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
		Value:     ignitex.Int32(2),
	})
	require.NoError(t, err)
	require.Equal(t, ignitex.Int32(1), resp.Previous)
}

func TestCacheClientBatchOps(t *testing.T) {
	server := newTestServer(t, "accounts")
	client := newTestCacheClient(t, server)
	ctx := context.Background()

	_, err := client.PutAll(ctx, &PutAllOptions{
		CacheName: "accounts",
		Entries: []ignitex.Entry{
			{Key: ignitex.String("a"), Value: ignitex.Int32(1)},
			{Key: ignitex.String("b"), Value: ignitex.Int32(2)},
		},
	})
	require.NoError(t, err)

	resp, err := client.GetAll(ctx, &GetAllOptions{
		CacheName: "accounts",
		Keys:      []ignitex.Value{ignitex.String("a"), ignitex.String("b"), ignitex.String("c")},
	})
	require.NoError(t, err)
	require.Equal(t, []ignitex.Entry{
		{Key: ignitex.String("a"), Value: ignitex.Int32(1)},
		{Key: ignitex.String("b"), Value: ignitex.Int32(2)},
		{Key: ignitex.String("c"), Value: nil},
	}, resp.Entries)

	size, err := client.GetSize(ctx, &GetSizeOptions{CacheName: "accounts"})
	require.NoError(t, err)
	require.Equal(t, int64(2), size.Size)
}

func TestCacheClientClear(t *testing.T) {
	server := newTestServer(t, "accounts")
	client := newTestCacheClient(t, server)
	ctx := context.Background()

	_, err := client.Put(ctx, &PutOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
		Value:     ignitex.Int32(1),
	})
	require.NoError(t, err)

	_, err = client.Clear(ctx, &ClearOptions{CacheName: "accounts"})
	require.NoError(t, err)

	resp, err := client.Get(ctx, &GetOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
	})
	require.NoError(t, err)
	require.Nil(t, resp.Value)
}

func TestCacheClientManagement(t *testing.T) {
	server := newTestServer(t, "default")
	client := newTestCacheClient(t, server)
	ctx := context.Background()

	hasCache, err := client.HasCache(ctx, "default")
	require.NoError(t, err)
	require.True(t, hasCache)

	hasCache, err = client.HasCache(ctx, "sessions")
	require.NoError(t, err)
	require.False(t, hasCache)

	require.NoError(t, client.CreateCache(ctx, "sessions"))

	// creating the same cache twice is a server error.
	err = client.CreateCache(ctx, "sessions")
	var srvErr ignitex.ServerError
	require.ErrorAs(t, err, &srvErr)

	// get-or-create is not.
	require.NoError(t, client.GetOrCreateCache(ctx, "sessions"))

	names, err := client.CacheNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"default", "sessions"}, names)

	require.NoError(t, client.DestroyCache(ctx, "sessions"))

	hasCache, err = client.HasCache(ctx, "sessions")
	require.NoError(t, err)
	require.False(t, hasCache)
}

func TestCacheClientConcurrentOps(t *testing.T) {
	server := newTestServer(t, "accounts")
	client := newTestCacheClient(t, server)
	ctx := context.Background()

	const numWorkers = 16
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			key := ignitex.Int32(i)
			value := ignitex.Int64(int64(i) * 100)

			_, err := client.Put(ctx, &PutOptions{
				CacheName: "accounts",
				Key:       key,
				Value:     value,
			})
			assert.NoError(t, err)

			resp, err := client.Get(ctx, &GetOptions{
				CacheName: "accounts",
				Key:       key,
			})
			assert.NoError(t, err)
			assert.Equal(t, value, resp.Value)
		}(i)
	}
	wg.Wait()

	size, err := client.GetSize(ctx, &GetSizeOptions{CacheName: "accounts"})
	require.NoError(t, err)
	require.Equal(t, int64(numWorkers), size.Size)
	require.Equal(t, int64(0), client.PendingOps())
}

func TestCacheClientClose(t *testing.T) {
	server := newTestServer(t, "accounts")
	client := newTestCacheClient(t, server)

	require.False(t, client.Closed())
	require.NoError(t, client.Close())
	require.True(t, client.Closed())

	// idempotent
	require.NoError(t, client.Close())

	_, err := client.Get(context.Background(), &GetOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
	})
	require.Error(t, err)
}

func TestCacheClientDialFailure(t *testing.T) {
	// an address nothing listens on
	listener := newTestServer(t)
	address := listener.Address()
	_ = listener.listener.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := NewCacheClient(ctx, &CacheClientConfig{Address: address}, nil)
	require.Error(t, err)
	require.ErrorIs(t, err, ignitex.ErrConnection)
}

// hangingDispatcher never delivers a response, which forces the caller to
// resolve through its context. Cancel fires the callback with the
// cancellation error before returning true, matching ignitex.Client.
type hangingDispatcher struct {
	cancelled chan error
}

type hangingPendingOp struct {
	d  *hangingDispatcher
	cb ignitex.DispatchCallback
}

func (o hangingPendingOp) Cancel(err error) bool {
	o.cb(nil, err)
	o.d.cancelled <- err
	return true
}

func (d *hangingDispatcher) Dispatch(req *ignitex.Request, cb ignitex.DispatchCallback) (ignitex.PendingOp, error) {
	return hangingPendingOp{d: d, cb: cb}, nil
}

func (d *hangingDispatcher) Close() error {
	return nil
}

func TestCacheClientContextCancellation(t *testing.T) {
	dispatcher := &hangingDispatcher{cancelled: make(chan error, 1)}

	client, err := NewCacheClient(context.Background(), &CacheClientConfig{}, &CacheClientOptions{
		Logger: zap.NewNop(),
		NewDispatcher: func(opts *ignitex.ClientOptions) DispatcherCloser {
			return dispatcher
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = client.Get(ctx, &GetOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
	})
	require.ErrorIs(t, err, context.Canceled)

	// the pending entry was deregistered rather than the connection closed.
	require.ErrorIs(t, <-dispatcher.cancelled, context.Canceled)
	require.Equal(t, int64(0), client.PendingOps())
}

func TestCacheClientOpsAfterCancellation(t *testing.T) {
	server := newTestServer(t, "accounts")
	client := newTestCacheClient(t, server)

	// swallow the request so the caller resolves through its deadline.
	server.dropRequests.Store(true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, &GetOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	server.dropRequests.Store(false)

	// follow up with a different operation type on the same client: it
	// must see its own result, not leftovers from the cancelled call.
	_, err = client.Put(context.Background(), &PutOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
		Value:     ignitex.Int32(1),
	})
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), &GetOptions{
		CacheName: "accounts",
		Key:       ignitex.String("k"),
	})
	require.NoError(t, err)
	require.Equal(t, ignitex.Int32(1), resp.Value)
	require.Equal(t, int64(0), client.PendingOps())
}
