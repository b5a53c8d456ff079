package ignitex

import "strconv"

// OpCode is the 2-byte operation code carried in a request header.
type OpCode uint16

const (
	OpCodeCacheGet               OpCode = 1000
	OpCodeCachePut               OpCode = 1001
	OpCodeCachePutIfAbsent       OpCode = 1002
	OpCodeCacheGetAll            OpCode = 1003
	OpCodeCachePutAll            OpCode = 1004
	OpCodeCacheGetAndPut         OpCode = 1005
	OpCodeCacheGetAndReplace     OpCode = 1006
	OpCodeCacheGetAndRemove      OpCode = 1007
	OpCodeCacheGetAndPutIfAbsent OpCode = 1008
	OpCodeCacheReplace           OpCode = 1009
	OpCodeCacheReplaceIfEquals   OpCode = 1010
	OpCodeCacheContainsKey       OpCode = 1011
	OpCodeCacheContainsKeys      OpCode = 1012
	OpCodeCacheClear             OpCode = 1013
	OpCodeCacheClearKey          OpCode = 1014
	OpCodeCacheClearKeys         OpCode = 1015
	OpCodeCacheRemoveKey         OpCode = 1016
	OpCodeCacheRemoveIfEquals    OpCode = 1017
	OpCodeCacheRemoveKeys        OpCode = 1018
	OpCodeCacheRemoveAll         OpCode = 1019
	OpCodeCacheGetSize           OpCode = 1020

	OpCodeCacheGetNames    OpCode = 1050
	OpCodeCacheCreate      OpCode = 1051
	OpCodeCacheGetOrCreate OpCode = 1052
	OpCodeCacheDestroy     OpCode = 1056
)

func (o OpCode) String() string {
	switch o {
	case OpCodeCacheGet:
		return "CacheGet"
	case OpCodeCachePut:
		return "CachePut"
	case OpCodeCachePutIfAbsent:
		return "CachePutIfAbsent"
	case OpCodeCacheGetAll:
		return "CacheGetAll"
	case OpCodeCachePutAll:
		return "CachePutAll"
	case OpCodeCacheGetAndPut:
		return "CacheGetAndPut"
	case OpCodeCacheGetAndReplace:
		return "CacheGetAndReplace"
	case OpCodeCacheGetAndRemove:
		return "CacheGetAndRemove"
	case OpCodeCacheGetAndPutIfAbsent:
		return "CacheGetAndPutIfAbsent"
	case OpCodeCacheReplace:
		return "CacheReplace"
	case OpCodeCacheReplaceIfEquals:
		return "CacheReplaceIfEquals"
	case OpCodeCacheContainsKey:
		return "CacheContainsKey"
	case OpCodeCacheContainsKeys:
		return "CacheContainsKeys"
	case OpCodeCacheClear:
		return "CacheClear"
	case OpCodeCacheClearKey:
		return "CacheClearKey"
	case OpCodeCacheClearKeys:
		return "CacheClearKeys"
	case OpCodeCacheRemoveKey:
		return "CacheRemoveKey"
	case OpCodeCacheRemoveIfEquals:
		return "CacheRemoveIfEquals"
	case OpCodeCacheRemoveKeys:
		return "CacheRemoveKeys"
	case OpCodeCacheRemoveAll:
		return "CacheRemoveAll"
	case OpCodeCacheGetSize:
		return "CacheGetSize"
	case OpCodeCacheGetNames:
		return "CacheGetNames"
	case OpCodeCacheCreate:
		return "CacheCreate"
	case OpCodeCacheGetOrCreate:
		return "CacheGetOrCreate"
	case OpCodeCacheDestroy:
		return "CacheDestroy"
	}

	return "x" + strconv.FormatUint(uint64(o), 16)
}
