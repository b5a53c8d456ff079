package ignitex

import "strconv"

// Status is the 4-byte status code in a response header. Zero is success;
// anything else means the payload carries an error message instead of a
// result.
type Status int32

const StatusSuccess Status = 0

func (s Status) String() string {
	if s == StatusSuccess {
		return "Success"
	}

	return "x" + strconv.FormatInt(int64(s), 16)
}

// Request is one framed request: operation code, correlation id, payload.
// The correlation id is stamped by the dispatcher, not the caller.
type Request struct {
	OpCode        OpCode
	CorrelationID int64
	Payload       []byte
}

// Response is one framed response read off the wire.
type Response struct {
	CorrelationID int64
	Status        Status
	Payload       []byte
}
