package ignitex

import (
	"encoding/binary"
	"io"
)

// maxFrameLen bounds what a single frame may declare. Anything larger is
// treated as stream desynchronization rather than a genuine message.
const maxFrameLen = 64 * 1024 * 1024

const responseHeaderLen = 12

type FrameReader struct {
	// we use this heap-allocated length buffer since io.Read causes the
	// buffer to escape. the body is allocated per frame because it always
	// escapes through references held by the *Response.
	readLenBuf []byte
}

func (fr *FrameReader) ReadResponse(r io.Reader, resp *Response) error {
	if len(fr.readLenBuf) != 4 {
		fr.readLenBuf = make([]byte, 4)
	}
	lenBuf := fr.readLenBuf

	_, err := io.ReadFull(r, lenBuf)
	if err != nil {
		return err
	}

	frameLen := int32(binary.LittleEndian.Uint32(lenBuf))
	if frameLen < responseHeaderLen {
		return protocolError{"response frame too short for its header"}
	}
	if frameLen > maxFrameLen {
		return protocolError{"response frame length exceeds maximum"}
	}

	bodyBuf := make([]byte, frameLen)
	_, err = io.ReadFull(r, bodyBuf)
	if err != nil {
		return err
	}

	resp.CorrelationID = int64(binary.LittleEndian.Uint64(bodyBuf[0:]))
	resp.Status = Status(binary.LittleEndian.Uint32(bodyBuf[8:]))
	resp.Payload = bodyBuf[responseHeaderLen:]

	return nil
}
