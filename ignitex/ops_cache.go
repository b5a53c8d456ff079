package ignitex

import (
	"encoding/binary"
)

// OpsCache encodes the key-value operations against a single named cache.
// Every request payload starts with the 4-byte cache id and a flags byte
// (always zero for plain client operations).
type OpsCache struct {
}

func (o OpsCache) appendCacheHeader(buf []byte, cacheID int32) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(cacheID))
	buf = append(buf, 0)
	return buf
}

func (o OpsCache) decodeError(resp *Response) error {
	message := ""
	if msgVal, _, err := ReadValue(resp.Payload); err == nil {
		if msg, ok := msgVal.(String); ok {
			message = string(msg)
		}
	}

	return ServerError{
		Status:  resp.Status,
		Message: message,
	}
}

// readOptionalValue decodes the single nullable value that the get-style
// responses carry. Absent entries come back as the null object.
func (o OpsCache) readOptionalValue(resp *Response) (Value, error) {
	val, _, err := ReadValue(resp.Payload)
	if err != nil {
		return nil, err
	}
	return val, nil
}

// readBool decodes the raw boolean byte that the conditional mutation
// responses carry. Unlike an encoded Bool value it has no type tag.
func (o OpsCache) readBool(resp *Response) (bool, error) {
	if len(resp.Payload) < 1 {
		return false, protocolError{"bool response missing payload byte"}
	}
	return resp.Payload[0] != 0, nil
}

type GetRequest struct {
	CacheID int32
	Key     Value
}

type GetResponse struct {
	// Value is nil when the key has no entry.
	Value Value
}

func (o OpsCache) Get(d Dispatcher, req *GetRequest, cb func(*GetResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)
	payload, err := AppendValue(payload, req.Key)
	if err != nil {
		return nil, err
	}

	return d.Dispatch(&Request{
		OpCode:  OpCodeCacheGet,
		Payload: payload,
	}, func(resp *Response, err error) {
		if err != nil {
			cb(nil, err)
			return
		}

		if resp.Status != StatusSuccess {
			cb(nil, o.decodeError(resp))
			return
		}

		val, err := o.readOptionalValue(resp)
		if err != nil {
			cb(nil, err)
			return
		}

		cb(&GetResponse{Value: val}, nil)
	})
}

type PutRequest struct {
	CacheID int32
	Key     Value
	Value   Value
}

type PutResponse struct {
}

func (o OpsCache) Put(d Dispatcher, req *PutRequest, cb func(*PutResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)
	payload, err := AppendValue(payload, req.Key)
	if err != nil {
		return nil, err
	}
	payload, err = AppendValue(payload, req.Value)
	if err != nil {
		return nil, err
	}

	return d.Dispatch(&Request{
		OpCode:  OpCodeCachePut,
		Payload: payload,
	}, func(resp *Response, err error) {
		if err != nil {
			cb(nil, err)
			return
		}

		if resp.Status != StatusSuccess {
			cb(nil, o.decodeError(resp))
			return
		}

		cb(&PutResponse{}, nil)
	})
}

type PutIfAbsentRequest struct {
	CacheID int32
	Key     Value
	Value   Value
}

type PutIfAbsentResponse struct {
	Stored bool
}

func (o OpsCache) PutIfAbsent(d Dispatcher, req *PutIfAbsentRequest, cb func(*PutIfAbsentResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)
	payload, err := AppendValue(payload, req.Key)
	if err != nil {
		return nil, err
	}
	payload, err = AppendValue(payload, req.Value)
	if err != nil {
		return nil, err
	}

	return d.Dispatch(&Request{
		OpCode:  OpCodeCachePutIfAbsent,
		Payload: payload,
	}, func(resp *Response, err error) {
		if err != nil {
			cb(nil, err)
			return
		}

		if resp.Status != StatusSuccess {
			cb(nil, o.decodeError(resp))
			return
		}

		stored, err := o.readBool(resp)
		if err != nil {
			cb(nil, err)
			return
		}

		cb(&PutIfAbsentResponse{Stored: stored}, nil)
	})
}

type Entry struct {
	Key Value
	// Value is nil for keys that had no entry.
	Value Value
}

type GetAllRequest struct {
	CacheID int32
	Keys    []Value
}

type GetAllResponse struct {
	Entries []Entry
}

func (o OpsCache) GetAll(d Dispatcher, req *GetAllRequest, cb func(*GetAllResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)
	payload = binary.LittleEndian.AppendUint32(payload, uint32(len(req.Keys)))
	var err error
	for _, key := range req.Keys {
		payload, err = AppendValue(payload, key)
		if err != nil {
			return nil, err
		}
	}

	return d.Dispatch(&Request{
		OpCode:  OpCodeCacheGetAll,
		Payload: payload,
	}, func(resp *Response, err error) {
		if err != nil {
			cb(nil, err)
			return
		}

		if resp.Status != StatusSuccess {
			cb(nil, o.decodeError(resp))
			return
		}

		if len(resp.Payload) < 4 {
			cb(nil, protocolError{"get all response missing entry count"})
			return
		}
		numEntries := int(int32(binary.LittleEndian.Uint32(resp.Payload)))
		if numEntries < 0 {
			cb(nil, protocolError{"get all response entry count is negative"})
			return
		}

		buf := resp.Payload[4:]
		// every entry takes at least a type code for its key and one for
		// its value, so a count beyond the payload is corruption and must
		// be rejected before it sizes an allocation.
		if numEntries > len(buf) {
			cb(nil, protocolError{"get all response entry count exceeds payload"})
			return
		}
		entries := make([]Entry, 0, numEntries)
		for i := 0; i < numEntries; i++ {
			key, n, err := ReadValue(buf)
			if err != nil {
				cb(nil, err)
				return
			}
			buf = buf[n:]

			val, n, err := ReadValue(buf)
			if err != nil {
				cb(nil, err)
				return
			}
			buf = buf[n:]

			entries = append(entries, Entry{Key: key, Value: val})
		}

		cb(&GetAllResponse{Entries: entries}, nil)
	})
}

type PutAllRequest struct {
	CacheID int32
	Entries []Entry
}

type PutAllResponse struct {
}

func (o OpsCache) PutAll(d Dispatcher, req *PutAllRequest, cb func(*PutAllResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)
	payload = binary.LittleEndian.AppendUint32(payload, uint32(len(req.Entries)))
	var err error
	for _, entry := range req.Entries {
		payload, err = AppendValue(payload, entry.Key)
		if err != nil {
			return nil, err
		}
		payload, err = AppendValue(payload, entry.Value)
		if err != nil {
			return nil, err
		}
	}

	return d.Dispatch(&Request{
		OpCode:  OpCodeCachePutAll,
		Payload: payload,
	}, func(resp *Response, err error) {
		if err != nil {
			cb(nil, err)
			return
		}

		if resp.Status != StatusSuccess {
			cb(nil, o.decodeError(resp))
			return
		}

		cb(&PutAllResponse{}, nil)
	})
}

// keyValueOp covers the ops whose request is {header, key, value} and
// whose response is a single nullable value.
func (o OpsCache) keyValueOp(
	d Dispatcher,
	opCode OpCode,
	cacheID int32,
	key Value,
	value Value,
	cb func(Value, error),
) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, cacheID)
	payload, err := AppendValue(payload, key)
	if err != nil {
		return nil, err
	}
	payload, err = AppendValue(payload, value)
	if err != nil {
		return nil, err
	}

	return d.Dispatch(&Request{
		OpCode:  opCode,
		Payload: payload,
	}, func(resp *Response, err error) {
		if err != nil {
			cb(nil, err)
			return
		}

		if resp.Status != StatusSuccess {
			cb(nil, o.decodeError(resp))
			return
		}

		val, err := o.readOptionalValue(resp)
		if err != nil {
			cb(nil, err)
			return
		}

		cb(val, nil)
	})
}

type GetAndPutRequest struct {
	CacheID int32
	Key     Value
	Value   Value
}

type GetAndPutResponse struct {
	// Previous is the value replaced by the put, nil when there was none.
	Previous Value
}

func (o OpsCache) GetAndPut(d Dispatcher, req *GetAndPutRequest, cb func(*GetAndPutResponse, error)) (PendingOp, error) {
	return o.keyValueOp(d, OpCodeCacheGetAndPut, req.CacheID, req.Key, req.Value, func(val Value, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&GetAndPutResponse{Previous: val}, nil)
	})
}

type GetAndReplaceRequest struct {
	CacheID int32
	Key     Value
	Value   Value
}

type GetAndReplaceResponse struct {
	Previous Value
}

func (o OpsCache) GetAndReplace(d Dispatcher, req *GetAndReplaceRequest, cb func(*GetAndReplaceResponse, error)) (PendingOp, error) {
	return o.keyValueOp(d, OpCodeCacheGetAndReplace, req.CacheID, req.Key, req.Value, func(val Value, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&GetAndReplaceResponse{Previous: val}, nil)
	})
}

type GetAndRemoveRequest struct {
	CacheID int32
	Key     Value
}

type GetAndRemoveResponse struct {
	Previous Value
}

func (o OpsCache) GetAndRemove(d Dispatcher, req *GetAndRemoveRequest, cb func(*GetAndRemoveResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)
	payload, err := AppendValue(payload, req.Key)
	if err != nil {
		return nil, err
	}

	return d.Dispatch(&Request{
		OpCode:  OpCodeCacheGetAndRemove,
		Payload: payload,
	}, func(resp *Response, err error) {
		if err != nil {
			cb(nil, err)
			return
		}

		if resp.Status != StatusSuccess {
			cb(nil, o.decodeError(resp))
			return
		}

		val, err := o.readOptionalValue(resp)
		if err != nil {
			cb(nil, err)
			return
		}

		cb(&GetAndRemoveResponse{Previous: val}, nil)
	})
}

type GetAndPutIfAbsentRequest struct {
	CacheID int32
	Key     Value
	Value   Value
}

type GetAndPutIfAbsentResponse struct {
	Existing Value
}

func (o OpsCache) GetAndPutIfAbsent(d Dispatcher, req *GetAndPutIfAbsentRequest, cb func(*GetAndPutIfAbsentResponse, error)) (PendingOp, error) {
	return o.keyValueOp(d, OpCodeCacheGetAndPutIfAbsent, req.CacheID, req.Key, req.Value, func(val Value, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&GetAndPutIfAbsentResponse{Existing: val}, nil)
	})
}

// keyValueBoolOp covers the conditional mutations whose response is a
// single raw boolean byte.
func (o OpsCache) keyValueBoolOp(
	d Dispatcher,
	opCode OpCode,
	payload []byte,
	cb func(bool, error),
) (PendingOp, error) {
	return d.Dispatch(&Request{
		OpCode:  opCode,
		Payload: payload,
	}, func(resp *Response, err error) {
		if err != nil {
			cb(false, err)
			return
		}

		if resp.Status != StatusSuccess {
			cb(false, o.decodeError(resp))
			return
		}

		ok, err := o.readBool(resp)
		if err != nil {
			cb(false, err)
			return
		}

		cb(ok, nil)
	})
}

type ReplaceRequest struct {
	CacheID int32
	Key     Value
	Value   Value
}

type ReplaceResponse struct {
	Replaced bool
}

func (o OpsCache) Replace(d Dispatcher, req *ReplaceRequest, cb func(*ReplaceResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)
	payload, err := AppendValue(payload, req.Key)
	if err != nil {
		return nil, err
	}
	payload, err = AppendValue(payload, req.Value)
	if err != nil {
		return nil, err
	}

	return o.keyValueBoolOp(d, OpCodeCacheReplace, payload, func(ok bool, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&ReplaceResponse{Replaced: ok}, nil)
	})
}

type ReplaceIfEqualsRequest struct {
	CacheID  int32
	Key      Value
	OldValue Value
	NewValue Value
}

type ReplaceIfEqualsResponse struct {
	Replaced bool
}

func (o OpsCache) ReplaceIfEquals(d Dispatcher, req *ReplaceIfEqualsRequest, cb func(*ReplaceIfEqualsResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)
	payload, err := AppendValue(payload, req.Key)
	if err != nil {
		return nil, err
	}
	payload, err = AppendValue(payload, req.OldValue)
	if err != nil {
		return nil, err
	}
	payload, err = AppendValue(payload, req.NewValue)
	if err != nil {
		return nil, err
	}

	return o.keyValueBoolOp(d, OpCodeCacheReplaceIfEquals, payload, func(ok bool, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&ReplaceIfEqualsResponse{Replaced: ok}, nil)
	})
}

type ContainsKeyRequest struct {
	CacheID int32
	Key     Value
}

type ContainsKeyResponse struct {
	Exists bool
}

func (o OpsCache) ContainsKey(d Dispatcher, req *ContainsKeyRequest, cb func(*ContainsKeyResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)
	payload, err := AppendValue(payload, req.Key)
	if err != nil {
		return nil, err
	}

	return o.keyValueBoolOp(d, OpCodeCacheContainsKey, payload, func(ok bool, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&ContainsKeyResponse{Exists: ok}, nil)
	})
}

type ContainsKeysRequest struct {
	CacheID int32
	Keys    []Value
}

type ContainsKeysResponse struct {
	// Exists reports whether every requested key has an entry.
	Exists bool
}

func (o OpsCache) ContainsKeys(d Dispatcher, req *ContainsKeysRequest, cb func(*ContainsKeysResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)
	payload = binary.LittleEndian.AppendUint32(payload, uint32(len(req.Keys)))
	var err error
	for _, key := range req.Keys {
		payload, err = AppendValue(payload, key)
		if err != nil {
			return nil, err
		}
	}

	return o.keyValueBoolOp(d, OpCodeCacheContainsKeys, payload, func(ok bool, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&ContainsKeysResponse{Exists: ok}, nil)
	})
}

// statusOnlyOp covers the ops whose success response carries no payload
// beyond the status.
func (o OpsCache) statusOnlyOp(d Dispatcher, opCode OpCode, payload []byte, cb func(error)) (PendingOp, error) {
	return d.Dispatch(&Request{
		OpCode:  opCode,
		Payload: payload,
	}, func(resp *Response, err error) {
		if err != nil {
			cb(err)
			return
		}

		if resp.Status != StatusSuccess {
			cb(o.decodeError(resp))
			return
		}

		cb(nil)
	})
}

type ClearRequest struct {
	CacheID int32
}

type ClearResponse struct {
}

func (o OpsCache) Clear(d Dispatcher, req *ClearRequest, cb func(*ClearResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)

	return o.statusOnlyOp(d, OpCodeCacheClear, payload, func(err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&ClearResponse{}, nil)
	})
}

type ClearKeyRequest struct {
	CacheID int32
	Key     Value
}

type ClearKeyResponse struct {
}

func (o OpsCache) ClearKey(d Dispatcher, req *ClearKeyRequest, cb func(*ClearKeyResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)
	payload, err := AppendValue(payload, req.Key)
	if err != nil {
		return nil, err
	}

	return o.statusOnlyOp(d, OpCodeCacheClearKey, payload, func(err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&ClearKeyResponse{}, nil)
	})
}

type ClearKeysRequest struct {
	CacheID int32
	Keys    []Value
}

type ClearKeysResponse struct {
}

func (o OpsCache) ClearKeys(d Dispatcher, req *ClearKeysRequest, cb func(*ClearKeysResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)
	payload = binary.LittleEndian.AppendUint32(payload, uint32(len(req.Keys)))
	var err error
	for _, key := range req.Keys {
		payload, err = AppendValue(payload, key)
		if err != nil {
			return nil, err
		}
	}

	return o.statusOnlyOp(d, OpCodeCacheClearKeys, payload, func(err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&ClearKeysResponse{}, nil)
	})
}

type RemoveKeyRequest struct {
	CacheID int32
	Key     Value
}

type RemoveKeyResponse struct {
	Removed bool
}

func (o OpsCache) RemoveKey(d Dispatcher, req *RemoveKeyRequest, cb func(*RemoveKeyResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)
	payload, err := AppendValue(payload, req.Key)
	if err != nil {
		return nil, err
	}

	return o.keyValueBoolOp(d, OpCodeCacheRemoveKey, payload, func(ok bool, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&RemoveKeyResponse{Removed: ok}, nil)
	})
}

type RemoveIfEqualsRequest struct {
	CacheID  int32
	Key      Value
	OldValue Value
}

type RemoveIfEqualsResponse struct {
	Removed bool
}

func (o OpsCache) RemoveIfEquals(d Dispatcher, req *RemoveIfEqualsRequest, cb func(*RemoveIfEqualsResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)
	payload, err := AppendValue(payload, req.Key)
	if err != nil {
		return nil, err
	}
	payload, err = AppendValue(payload, req.OldValue)
	if err != nil {
		return nil, err
	}

	return o.keyValueBoolOp(d, OpCodeCacheRemoveIfEquals, payload, func(ok bool, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&RemoveIfEqualsResponse{Removed: ok}, nil)
	})
}

type RemoveKeysRequest struct {
	CacheID int32
	Keys    []Value
}

type RemoveKeysResponse struct {
}

func (o OpsCache) RemoveKeys(d Dispatcher, req *RemoveKeysRequest, cb func(*RemoveKeysResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)
	payload = binary.LittleEndian.AppendUint32(payload, uint32(len(req.Keys)))
	var err error
	for _, key := range req.Keys {
		payload, err = AppendValue(payload, key)
		if err != nil {
			return nil, err
		}
	}

	return o.statusOnlyOp(d, OpCodeCacheRemoveKeys, payload, func(err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&RemoveKeysResponse{}, nil)
	})
}

type RemoveAllRequest struct {
	CacheID int32
}

type RemoveAllResponse struct {
}

func (o OpsCache) RemoveAll(d Dispatcher, req *RemoveAllRequest, cb func(*RemoveAllResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)

	return o.statusOnlyOp(d, OpCodeCacheRemoveAll, payload, func(err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&RemoveAllResponse{}, nil)
	})
}

// PeekMode selects which entry copies a size operation counts.
type PeekMode uint8

const (
	PeekModeAll     PeekMode = 0
	PeekModeNear    PeekMode = 1
	PeekModePrimary PeekMode = 2
	PeekModeBackup  PeekMode = 3
)

type GetSizeRequest struct {
	CacheID   int32
	PeekModes []PeekMode
}

type GetSizeResponse struct {
	Size int64
}

func (o OpsCache) GetSize(d Dispatcher, req *GetSizeRequest, cb func(*GetSizeResponse, error)) (PendingOp, error) {
	payload := o.appendCacheHeader(nil, req.CacheID)
	payload = binary.LittleEndian.AppendUint32(payload, uint32(len(req.PeekModes)))
	for _, mode := range req.PeekModes {
		payload = append(payload, byte(mode))
	}

	return d.Dispatch(&Request{
		OpCode:  OpCodeCacheGetSize,
		Payload: payload,
	}, func(resp *Response, err error) {
		if err != nil {
			cb(nil, err)
			return
		}

		if resp.Status != StatusSuccess {
			cb(nil, o.decodeError(resp))
			return
		}

		if len(resp.Payload) < 8 {
			cb(nil, protocolError{"size response payload too short"})
			return
		}

		cb(&GetSizeResponse{
			Size: int64(binary.LittleEndian.Uint64(resp.Payload)),
		}, nil)
	})
}
