package igcorex

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/ignitecache/igcorex/ignitex"
)

const (
	testStatusFailure     = ignitex.Status(1)
	testStatusCacheExists = ignitex.Status(10)
)

// testServer is an in-process cache server good enough to exercise the
// client end to end: it speaks the real handshake and wire format and keeps
// entries in memory, keyed by the encoded bytes of their keys.
type testServer struct {
	t        *testing.T
	listener net.Listener

	// dropRequests makes the server swallow requests without answering,
	// leaving their callers pending.
	dropRequests atomic.Bool

	mu     sync.Mutex
	caches map[int32]*testServerCache
}

type testServerCache struct {
	name    string
	entries map[string][]byte
}

func newTestServer(t *testing.T, cacheNames ...string) *testServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &testServer{
		t:        t,
		listener: listener,
		caches:   map[int32]*testServerCache{},
	}
	for _, name := range cacheNames {
		s.caches[ignitex.CacheID(name)] = &testServerCache{
			name:    name,
			entries: map[string][]byte{},
		}
	}

	t.Cleanup(func() {
		_ = listener.Close()
	})

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go s.serveConn(conn)
		}
	}()

	return s
}

func (s *testServer) Address() string {
	return s.listener.Addr().String()
}

func (s *testServer) readFrame(conn net.Conn) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return nil, err
	}

	body := make([]byte, binary.LittleEndian.Uint32(lenBuf[:]))
	if _, err := io.ReadFull(conn, body); err != nil {
		return nil, err
	}

	return body, nil
}

func (s *testServer) writeFrame(conn net.Conn, body []byte) error {
	frame := binary.LittleEndian.AppendUint32(nil, uint32(len(body)))
	frame = append(frame, body...)

	_, err := conn.Write(frame)
	return err
}

func (s *testServer) serveConn(conn net.Conn) {
	defer conn.Close()

	// handshake
	if _, err := s.readFrame(conn); err != nil {
		return
	}
	if err := s.writeFrame(conn, []byte{1}); err != nil {
		return
	}

	for {
		body, err := s.readFrame(conn)
		if err != nil {
			return
		}
		if len(body) < 10 {
			return
		}

		opCode := ignitex.OpCode(binary.LittleEndian.Uint16(body[0:]))
		correlationID := binary.LittleEndian.Uint64(body[2:])

		if s.dropRequests.Load() {
			continue
		}

		status, respPayload := s.handleRequest(opCode, body[10:])

		resp := binary.LittleEndian.AppendUint64(nil, correlationID)
		resp = binary.LittleEndian.AppendUint32(resp, uint32(status))
		resp = append(resp, respPayload...)
		if err := s.writeFrame(conn, resp); err != nil {
			return
		}
	}
}

func (s *testServer) errorPayload(message string) []byte {
	payload, err := ignitex.AppendValue(nil, ignitex.String(message))
	require.NoError(s.t, err)
	return payload
}

// readValueBytes splits off the encoded bytes of the next value.
func (s *testServer) readValueBytes(buf []byte) (encoded []byte, rest []byte) {
	_, n, err := ignitex.ReadValue(buf)
	require.NoError(s.t, err)
	return buf[:n], buf[n:]
}

func nullValueBytes() []byte {
	payload, _ := ignitex.AppendValue(nil, nil)
	return payload
}

func boolByte(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func (s *testServer) handleRequest(opCode ignitex.OpCode, payload []byte) (ignitex.Status, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch opCode {
	case ignitex.OpCodeCacheGetNames:
		resp := binary.LittleEndian.AppendUint32(nil, uint32(len(s.caches)))
		for _, cache := range s.caches {
			var err error
			resp, err = ignitex.AppendValue(resp, ignitex.String(cache.name))
			require.NoError(s.t, err)
		}
		return ignitex.StatusSuccess, resp

	case ignitex.OpCodeCacheCreate, ignitex.OpCodeCacheGetOrCreate:
		nameVal, _, err := ignitex.ReadValue(payload)
		require.NoError(s.t, err)
		name := string(nameVal.(ignitex.String))

		cacheID := ignitex.CacheID(name)
		if _, exists := s.caches[cacheID]; exists {
			if opCode == ignitex.OpCodeCacheCreate {
				return testStatusCacheExists, s.errorPayload("cache already exists: " + name)
			}
			return ignitex.StatusSuccess, nil
		}

		s.caches[cacheID] = &testServerCache{
			name:    name,
			entries: map[string][]byte{},
		}
		return ignitex.StatusSuccess, nil

	case ignitex.OpCodeCacheDestroy:
		require.GreaterOrEqual(s.t, len(payload), 4)
		cacheID := int32(binary.LittleEndian.Uint32(payload))
		delete(s.caches, cacheID)
		return ignitex.StatusSuccess, nil
	}

	// everything else addresses a cache by id with a flags byte.
	require.GreaterOrEqual(s.t, len(payload), 5)
	cacheID := int32(binary.LittleEndian.Uint32(payload))
	cache, exists := s.caches[cacheID]
	if !exists {
		return testStatusFailure, s.errorPayload("cache does not exist")
	}
	buf := payload[5:]

	switch opCode {
	case ignitex.OpCodeCacheGet:
		key, _ := s.readValueBytes(buf)
		if value, ok := cache.entries[string(key)]; ok {
			return ignitex.StatusSuccess, value
		}
		return ignitex.StatusSuccess, nullValueBytes()

	case ignitex.OpCodeCachePut:
		key, rest := s.readValueBytes(buf)
		value, _ := s.readValueBytes(rest)
		cache.entries[string(key)] = value
		return ignitex.StatusSuccess, nil

	case ignitex.OpCodeCachePutIfAbsent:
		key, rest := s.readValueBytes(buf)
		value, _ := s.readValueBytes(rest)
		if _, ok := cache.entries[string(key)]; ok {
			return ignitex.StatusSuccess, boolByte(false)
		}
		cache.entries[string(key)] = value
		return ignitex.StatusSuccess, boolByte(true)

	case ignitex.OpCodeCacheGetAll:
		numKeys := binary.LittleEndian.Uint32(buf)
		buf = buf[4:]
		resp := binary.LittleEndian.AppendUint32(nil, numKeys)
		for i := uint32(0); i < numKeys; i++ {
			var key []byte
			key, buf = s.readValueBytes(buf)
			resp = append(resp, key...)
			if value, ok := cache.entries[string(key)]; ok {
				resp = append(resp, value...)
			} else {
				resp = append(resp, nullValueBytes()...)
			}
		}
		return ignitex.StatusSuccess, resp

	case ignitex.OpCodeCachePutAll:
		numEntries := binary.LittleEndian.Uint32(buf)
		buf = buf[4:]
		for i := uint32(0); i < numEntries; i++ {
			var key, value []byte
			key, buf = s.readValueBytes(buf)
			value, buf = s.readValueBytes(buf)
			cache.entries[string(key)] = value
		}
		return ignitex.StatusSuccess, nil

	case ignitex.OpCodeCacheGetAndPut:
		key, rest := s.readValueBytes(buf)
		value, _ := s.readValueBytes(rest)
		previous, hadPrevious := cache.entries[string(key)]
		cache.entries[string(key)] = value
		if hadPrevious {
			return ignitex.StatusSuccess, previous
		}
		return ignitex.StatusSuccess, nullValueBytes()

	case ignitex.OpCodeCacheGetAndReplace:
		key, rest := s.readValueBytes(buf)
		value, _ := s.readValueBytes(rest)
		previous, hadPrevious := cache.entries[string(key)]
		if hadPrevious {
			cache.entries[string(key)] = value
			return ignitex.StatusSuccess, previous
		}
		return ignitex.StatusSuccess, nullValueBytes()

	case ignitex.OpCodeCacheGetAndRemove:
		key, _ := s.readValueBytes(buf)
		previous, hadPrevious := cache.entries[string(key)]
		delete(cache.entries, string(key))
		if hadPrevious {
			return ignitex.StatusSuccess, previous
		}
		return ignitex.StatusSuccess, nullValueBytes()

	case ignitex.OpCodeCacheGetAndPutIfAbsent:
		key, rest := s.readValueBytes(buf)
		value, _ := s.readValueBytes(rest)
		existing, hadExisting := cache.entries[string(key)]
		if hadExisting {
			return ignitex.StatusSuccess, existing
		}
		cache.entries[string(key)] = value
		return ignitex.StatusSuccess, nullValueBytes()

	case ignitex.OpCodeCacheReplace:
		key, rest := s.readValueBytes(buf)
		value, _ := s.readValueBytes(rest)
		if _, ok := cache.entries[string(key)]; !ok {
			return ignitex.StatusSuccess, boolByte(false)
		}
		cache.entries[string(key)] = value
		return ignitex.StatusSuccess, boolByte(true)

	case ignitex.OpCodeCacheReplaceIfEquals:
		key, rest := s.readValueBytes(buf)
		oldValue, rest := s.readValueBytes(rest)
		newValue, _ := s.readValueBytes(rest)
		if current, ok := cache.entries[string(key)]; !ok || string(current) != string(oldValue) {
			return ignitex.StatusSuccess, boolByte(false)
		}
		cache.entries[string(key)] = newValue
		return ignitex.StatusSuccess, boolByte(true)

	case ignitex.OpCodeCacheContainsKey:
		key, _ := s.readValueBytes(buf)
		_, ok := cache.entries[string(key)]
		return ignitex.StatusSuccess, boolByte(ok)

	case ignitex.OpCodeCacheContainsKeys:
		numKeys := binary.LittleEndian.Uint32(buf)
		buf = buf[4:]
		all := true
		for i := uint32(0); i < numKeys; i++ {
			var key []byte
			key, buf = s.readValueBytes(buf)
			if _, ok := cache.entries[string(key)]; !ok {
				all = false
			}
		}
		return ignitex.StatusSuccess, boolByte(all)

	case ignitex.OpCodeCacheClear, ignitex.OpCodeCacheRemoveAll:
		cache.entries = map[string][]byte{}
		return ignitex.StatusSuccess, nil

	case ignitex.OpCodeCacheClearKey:
		key, _ := s.readValueBytes(buf)
		delete(cache.entries, string(key))
		return ignitex.StatusSuccess, nil

	case ignitex.OpCodeCacheClearKeys, ignitex.OpCodeCacheRemoveKeys:
		numKeys := binary.LittleEndian.Uint32(buf)
		buf = buf[4:]
		for i := uint32(0); i < numKeys; i++ {
			var key []byte
			key, buf = s.readValueBytes(buf)
			delete(cache.entries, string(key))
		}
		return ignitex.StatusSuccess, nil

	case ignitex.OpCodeCacheRemoveKey:
		key, _ := s.readValueBytes(buf)
		_, ok := cache.entries[string(key)]
		delete(cache.entries, string(key))
		return ignitex.StatusSuccess, boolByte(ok)

	case ignitex.OpCodeCacheRemoveIfEquals:
		key, rest := s.readValueBytes(buf)
		oldValue, _ := s.readValueBytes(rest)
		if current, ok := cache.entries[string(key)]; !ok || string(current) != string(oldValue) {
			return ignitex.StatusSuccess, boolByte(false)
		}
		delete(cache.entries, string(key))
		return ignitex.StatusSuccess, boolByte(true)

	case ignitex.OpCodeCacheGetSize:
		return ignitex.StatusSuccess, binary.LittleEndian.AppendUint64(nil, uint64(len(cache.entries)))
	}

	return testStatusFailure, s.errorPayload("unsupported operation")
}
