package igcorex

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ignitecache/igcorex/ignitex"
)

type syncResult struct {
	Result interface{}
	Err    error
}

type syncResulter struct {
	Ch chan syncResult
}

var syncResulterPool sync.Pool

func allocSyncResulter() *syncResulter {
	resulter := syncResulterPool.Get()
	if resulter == nil {
		return &syncResulter{
			Ch: make(chan syncResult, 1),
		}
	}
	return resulter.(*syncResulter)
}
func releaseSyncResulter(v *syncResulter) {
	syncResulterPool.Put(v)
}

func cacheClient_SimpleCall[Encoder any, ReqT any, RespT any](
	ctx context.Context,
	c *CacheClient,
	o Encoder,
	opName string,
	execFn func(o Encoder, d ignitex.Dispatcher, req ReqT, cb func(RespT, error)) (ignitex.PendingOp, error),
	req ReqT,
) (RespT, error) {
	stime := time.Now()
	c.pendingOperations.Inc()
	defer c.pendingOperations.Dec()

	resulter := allocSyncResulter()

	pendingOp, err := execFn(o, c.cli, req, func(resp RespT, err error) {
		resulter.Ch <- syncResult{
			Result: resp,
			Err:    err,
		}
	})
	if err != nil {
		var emptyResp RespT
		return emptyResp, err
	}

	defer func() {
		attrs := metric.WithAttributes(attribute.String("op", opName))
		cacheOpRequests.Add(context.Background(), 1, attrs)
		cacheOpDuration.Record(context.Background(), time.Since(stime).Seconds(), attrs)
	}()

	select {
	case res := <-resulter.Ch:
		releaseSyncResulter(resulter)
		return res.Result.(RespT), res.Err
	case <-ctx.Done():
		// cancellation deregisters the pending entry without closing the
		// shared connection and fires the handler with the cancellation
		// error; when the response wins the race the handler fires with it
		// instead. either way exactly one item lands in the channel, and it
		// must be drained before the resulter goes back in the pool.
		pendingOp.Cancel(ctx.Err())
		<-resulter.Ch
		releaseSyncResulter(resulter)
		var emptyResp RespT
		return emptyResp, ctx.Err()
	}
}

func cacheClient_SimpleCacheCall[ReqT any, RespT any](
	ctx context.Context,
	c *CacheClient,
	opName string,
	execFn func(o ignitex.OpsCache, d ignitex.Dispatcher, req ReqT, cb func(RespT, error)) (ignitex.PendingOp, error),
	req ReqT,
) (RespT, error) {
	return cacheClient_SimpleCall(ctx, c, ignitex.OpsCache{}, opName, execFn, req)
}

func cacheClient_SimpleMgmtCall[ReqT any, RespT any](
	ctx context.Context,
	c *CacheClient,
	opName string,
	execFn func(o ignitex.OpsMgmt, d ignitex.Dispatcher, req ReqT, cb func(RespT, error)) (ignitex.PendingOp, error),
	req ReqT,
) (RespT, error) {
	return cacheClient_SimpleCall(ctx, c, ignitex.OpsMgmt{}, opName, execFn, req)
}

type GetOptions struct {
	CacheName string
	Key       ignitex.Value
}

func (c *CacheClient) Get(ctx context.Context, opts *GetOptions) (*ignitex.GetResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheGet", ignitex.OpsCache.Get, &ignitex.GetRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
		Key:     opts.Key,
	})
}

type PutOptions struct {
	CacheName string
	Key       ignitex.Value
	Value     ignitex.Value
}

func (c *CacheClient) Put(ctx context.Context, opts *PutOptions) (*ignitex.PutResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CachePut", ignitex.OpsCache.Put, &ignitex.PutRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
		Key:     opts.Key,
		Value:   opts.Value,
	})
}

type PutIfAbsentOptions struct {
	CacheName string
	Key       ignitex.Value
	Value     ignitex.Value
}

func (c *CacheClient) PutIfAbsent(ctx context.Context, opts *PutIfAbsentOptions) (*ignitex.PutIfAbsentResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CachePutIfAbsent", ignitex.OpsCache.PutIfAbsent, &ignitex.PutIfAbsentRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
		Key:     opts.Key,
		Value:   opts.Value,
	})
}

type GetAllOptions struct {
	CacheName string
	Keys      []ignitex.Value
}

func (c *CacheClient) GetAll(ctx context.Context, opts *GetAllOptions) (*ignitex.GetAllResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheGetAll", ignitex.OpsCache.GetAll, &ignitex.GetAllRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
		Keys:    opts.Keys,
	})
}

type PutAllOptions struct {
	CacheName string
	Entries   []ignitex.Entry
}

func (c *CacheClient) PutAll(ctx context.Context, opts *PutAllOptions) (*ignitex.PutAllResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CachePutAll", ignitex.OpsCache.PutAll, &ignitex.PutAllRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
		Entries: opts.Entries,
	})
}

type GetAndPutOptions struct {
	CacheName string
	Key       ignitex.Value
	Value     ignitex.Value
}

func (c *CacheClient) GetAndPut(ctx context.Context, opts *GetAndPutOptions) (*ignitex.GetAndPutResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheGetAndPut", ignitex.OpsCache.GetAndPut, &ignitex.GetAndPutRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
		Key:     opts.Key,
		Value:   opts.Value,
	})
}

type GetAndReplaceOptions struct {
	CacheName string
	Key       ignitex.Value
	Value     ignitex.Value
}

func (c *CacheClient) GetAndReplace(ctx context.Context, opts *GetAndReplaceOptions) (*ignitex.GetAndReplaceResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheGetAndReplace", ignitex.OpsCache.GetAndReplace, &ignitex.GetAndReplaceRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
		Key:     opts.Key,
		Value:   opts.Value,
	})
}

type GetAndRemoveOptions struct {
	CacheName string
	Key       ignitex.Value
}

func (c *CacheClient) GetAndRemove(ctx context.Context, opts *GetAndRemoveOptions) (*ignitex.GetAndRemoveResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheGetAndRemove", ignitex.OpsCache.GetAndRemove, &ignitex.GetAndRemoveRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
		Key:     opts.Key,
	})
}

type GetAndPutIfAbsentOptions struct {
	CacheName string
	Key       ignitex.Value
	Value     ignitex.Value
}

func (c *CacheClient) GetAndPutIfAbsent(ctx context.Context, opts *GetAndPutIfAbsentOptions) (*ignitex.GetAndPutIfAbsentResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheGetAndPutIfAbsent", ignitex.OpsCache.GetAndPutIfAbsent, &ignitex.GetAndPutIfAbsentRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
		Key:     opts.Key,
		Value:   opts.Value,
	})
}

type ReplaceOptions struct {
	CacheName string
	Key       ignitex.Value
	Value     ignitex.Value
}

func (c *CacheClient) Replace(ctx context.Context, opts *ReplaceOptions) (*ignitex.ReplaceResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheReplace", ignitex.OpsCache.Replace, &ignitex.ReplaceRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
		Key:     opts.Key,
		Value:   opts.Value,
	})
}

type ReplaceIfEqualsOptions struct {
	CacheName string
	Key       ignitex.Value
	OldValue  ignitex.Value
	NewValue  ignitex.Value
}

func (c *CacheClient) ReplaceIfEquals(ctx context.Context, opts *ReplaceIfEqualsOptions) (*ignitex.ReplaceIfEqualsResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheReplaceIfEquals", ignitex.OpsCache.ReplaceIfEquals, &ignitex.ReplaceIfEqualsRequest{
		CacheID:  ignitex.CacheID(opts.CacheName),
		Key:      opts.Key,
		OldValue: opts.OldValue,
		NewValue: opts.NewValue,
	})
}

type ContainsKeyOptions struct {
	CacheName string
	Key       ignitex.Value
}

func (c *CacheClient) ContainsKey(ctx context.Context, opts *ContainsKeyOptions) (*ignitex.ContainsKeyResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheContainsKey", ignitex.OpsCache.ContainsKey, &ignitex.ContainsKeyRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
		Key:     opts.Key,
	})
}

type ContainsKeysOptions struct {
	CacheName string
	Keys      []ignitex.Value
}

func (c *CacheClient) ContainsKeys(ctx context.Context, opts *ContainsKeysOptions) (*ignitex.ContainsKeysResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheContainsKeys", ignitex.OpsCache.ContainsKeys, &ignitex.ContainsKeysRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
		Keys:    opts.Keys,
	})
}

type ClearOptions struct {
	CacheName string
}

func (c *CacheClient) Clear(ctx context.Context, opts *ClearOptions) (*ignitex.ClearResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheClear", ignitex.OpsCache.Clear, &ignitex.ClearRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
	})
}

type ClearKeyOptions struct {
	CacheName string
	Key       ignitex.Value
}

func (c *CacheClient) ClearKey(ctx context.Context, opts *ClearKeyOptions) (*ignitex.ClearKeyResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheClearKey", ignitex.OpsCache.ClearKey, &ignitex.ClearKeyRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
		Key:     opts.Key,
	})
}

type ClearKeysOptions struct {
	CacheName string
	Keys      []ignitex.Value
}

func (c *CacheClient) ClearKeys(ctx context.Context, opts *ClearKeysOptions) (*ignitex.ClearKeysResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheClearKeys", ignitex.OpsCache.ClearKeys, &ignitex.ClearKeysRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
		Keys:    opts.Keys,
	})
}

type RemoveKeyOptions struct {
	CacheName string
	Key       ignitex.Value
}

func (c *CacheClient) RemoveKey(ctx context.Context, opts *RemoveKeyOptions) (*ignitex.RemoveKeyResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheRemoveKey", ignitex.OpsCache.RemoveKey, &ignitex.RemoveKeyRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
		Key:     opts.Key,
	})
}

type RemoveIfEqualsOptions struct {
	CacheName string
	Key       ignitex.Value
	OldValue  ignitex.Value
}

func (c *CacheClient) RemoveIfEquals(ctx context.Context, opts *RemoveIfEqualsOptions) (*ignitex.RemoveIfEqualsResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheRemoveIfEquals", ignitex.OpsCache.RemoveIfEquals, &ignitex.RemoveIfEqualsRequest{
		CacheID:  ignitex.CacheID(opts.CacheName),
		Key:      opts.Key,
		OldValue: opts.OldValue,
	})
}

type RemoveKeysOptions struct {
	CacheName string
	Keys      []ignitex.Value
}

func (c *CacheClient) RemoveKeys(ctx context.Context, opts *RemoveKeysOptions) (*ignitex.RemoveKeysResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheRemoveKeys", ignitex.OpsCache.RemoveKeys, &ignitex.RemoveKeysRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
		Keys:    opts.Keys,
	})
}

type RemoveAllOptions struct {
	CacheName string
}

func (c *CacheClient) RemoveAll(ctx context.Context, opts *RemoveAllOptions) (*ignitex.RemoveAllResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheRemoveAll", ignitex.OpsCache.RemoveAll, &ignitex.RemoveAllRequest{
		CacheID: ignitex.CacheID(opts.CacheName),
	})
}

type GetSizeOptions struct {
	CacheName string
	PeekModes []ignitex.PeekMode
}

func (c *CacheClient) GetSize(ctx context.Context, opts *GetSizeOptions) (*ignitex.GetSizeResponse, error) {
	return cacheClient_SimpleCacheCall(ctx, c, "CacheGetSize", ignitex.OpsCache.GetSize, &ignitex.GetSizeRequest{
		CacheID:   ignitex.CacheID(opts.CacheName),
		PeekModes: opts.PeekModes,
	})
}

func (c *CacheClient) CacheNames(ctx context.Context) ([]string, error) {
	resp, err := cacheClient_SimpleMgmtCall(ctx, c, "CacheGetNames", ignitex.OpsMgmt.CacheNames, &ignitex.CacheNamesRequest{})
	if err != nil {
		return nil, err
	}

	return resp.Names, nil
}

func (c *CacheClient) CreateCache(ctx context.Context, cacheName string) error {
	_, err := cacheClient_SimpleMgmtCall(ctx, c, "CacheCreate", ignitex.OpsMgmt.CacheCreate, &ignitex.CacheCreateRequest{
		CacheName: cacheName,
	})
	return err
}

func (c *CacheClient) GetOrCreateCache(ctx context.Context, cacheName string) error {
	_, err := cacheClient_SimpleMgmtCall(ctx, c, "CacheGetOrCreate", ignitex.OpsMgmt.CacheGetOrCreate, &ignitex.CacheGetOrCreateRequest{
		CacheName: cacheName,
	})
	return err
}

func (c *CacheClient) DestroyCache(ctx context.Context, cacheName string) error {
	_, err := cacheClient_SimpleMgmtCall(ctx, c, "CacheDestroy", ignitex.OpsMgmt.CacheDestroy, &ignitex.CacheDestroyRequest{
		CacheID: ignitex.CacheID(cacheName),
	})
	return err
}
