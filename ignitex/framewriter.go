package ignitex

import (
	"encoding/binary"
	"io"
	"math"
)

const requestHeaderLen = 10

type FrameWriter struct {
	// heap-allocated write buffer, reused across frames, since io.Write
	// causes the buffer to escape regardless of what we want.
	writeBuf []byte
}

func (fw *FrameWriter) WriteRequest(w io.Writer, req *Request) error {
	frameLen := requestHeaderLen + len(req.Payload)
	if frameLen > math.MaxInt32 {
		return protocolError{"request too long to encode"}
	}
	totalLen := 4 + frameLen

	if cap(fw.writeBuf) < totalLen {
		fw.writeBuf = make([]byte, 0, totalLen)
	}

	// build the whole frame in the write buffer so it reaches the socket
	// in a single Write and never interleaves with another request.
	buf := fw.writeBuf[:0]
	buf = binary.LittleEndian.AppendUint32(buf, uint32(frameLen))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(req.OpCode))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(req.CorrelationID))
	buf = append(buf, req.Payload...)
	fw.writeBuf = buf

	// Write guarantees err != nil when n < len, so the error alone tells
	// us whether something went wrong.
	_, err := w.Write(buf)
	if err != nil {
		return err
	}

	return nil
}
