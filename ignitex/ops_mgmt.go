package ignitex

import (
	"encoding/binary"
)

// OpsMgmt encodes the cache management operations. Unlike OpsCache, these
// address caches by name (or not at all) rather than by id.
type OpsMgmt struct {
}

type CacheNamesRequest struct {
}

type CacheNamesResponse struct {
	Names []string
}

func (o OpsMgmt) CacheNames(d Dispatcher, req *CacheNamesRequest, cb func(*CacheNamesResponse, error)) (PendingOp, error) {
	return d.Dispatch(&Request{
		OpCode: OpCodeCacheGetNames,
	}, func(resp *Response, err error) {
		if err != nil {
			cb(nil, err)
			return
		}

		if resp.Status != StatusSuccess {
			cb(nil, OpsCache{}.decodeError(resp))
			return
		}

		if len(resp.Payload) < 4 {
			cb(nil, protocolError{"cache names response missing count"})
			return
		}
		numNames := int(int32(binary.LittleEndian.Uint32(resp.Payload)))
		if numNames < 0 {
			cb(nil, protocolError{"cache names response count is negative"})
			return
		}

		buf := resp.Payload[4:]
		// a count larger than the remaining bytes cannot describe real
		// entries; reject it before it sizes an allocation.
		if numNames > len(buf) {
			cb(nil, protocolError{"cache names response count exceeds payload"})
			return
		}
		names := make([]string, 0, numNames)
		for i := 0; i < numNames; i++ {
			val, n, err := ReadValue(buf)
			if err != nil {
				cb(nil, err)
				return
			}
			buf = buf[n:]

			name, ok := val.(String)
			if !ok {
				cb(nil, protocolError{"cache names response contained a non-string entry"})
				return
			}

			names = append(names, string(name))
		}

		cb(&CacheNamesResponse{Names: names}, nil)
	})
}

type CacheCreateRequest struct {
	CacheName string
}

type CacheCreateResponse struct {
}

func (o OpsMgmt) CacheCreate(d Dispatcher, req *CacheCreateRequest, cb func(*CacheCreateResponse, error)) (PendingOp, error) {
	payload, err := AppendValue(nil, String(req.CacheName))
	if err != nil {
		return nil, err
	}

	return OpsCache{}.statusOnlyOp(d, OpCodeCacheCreate, payload, func(err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&CacheCreateResponse{}, nil)
	})
}

type CacheGetOrCreateRequest struct {
	CacheName string
}

type CacheGetOrCreateResponse struct {
}

func (o OpsMgmt) CacheGetOrCreate(d Dispatcher, req *CacheGetOrCreateRequest, cb func(*CacheGetOrCreateResponse, error)) (PendingOp, error) {
	payload, err := AppendValue(nil, String(req.CacheName))
	if err != nil {
		return nil, err
	}

	return OpsCache{}.statusOnlyOp(d, OpCodeCacheGetOrCreate, payload, func(err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&CacheGetOrCreateResponse{}, nil)
	})
}

type CacheDestroyRequest struct {
	CacheID int32
}

type CacheDestroyResponse struct {
}

func (o OpsMgmt) CacheDestroy(d Dispatcher, req *CacheDestroyRequest, cb func(*CacheDestroyResponse, error)) (PendingOp, error) {
	payload := binary.LittleEndian.AppendUint32(nil, uint32(req.CacheID))

	return OpsCache{}.statusOnlyOp(d, OpCodeCacheDestroy, payload, func(err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&CacheDestroyResponse{}, nil)
	})
}
