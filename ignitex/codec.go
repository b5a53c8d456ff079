package ignitex

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// AppendValue appends the tagged wire encoding of v to buf. A nil value is
// encoded as the null object. Values that cannot be represented in the wire
// format are rejected before anything is written.
func AppendValue(buf []byte, v Value) ([]byte, error) {
	if v == nil {
		return append(buf, byte(TypeCodeNull)), nil
	}

	switch v := v.(type) {
	case Int8:
		buf = append(buf, byte(TypeCodeInt8))
		return append(buf, byte(v)), nil
	case Int16:
		buf = append(buf, byte(TypeCodeInt16))
		return binary.LittleEndian.AppendUint16(buf, uint16(v)), nil
	case Int32:
		buf = append(buf, byte(TypeCodeInt32))
		return binary.LittleEndian.AppendUint32(buf, uint32(v)), nil
	case Int64:
		buf = append(buf, byte(TypeCodeInt64))
		return binary.LittleEndian.AppendUint64(buf, uint64(v)), nil
	case Float:
		buf = append(buf, byte(TypeCodeFloat))
		return binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(v))), nil
	case Double:
		buf = append(buf, byte(TypeCodeDouble))
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(float64(v))), nil
	case Char:
		if !isSingleUtf16Unit(rune(v)) {
			return nil, fmt.Errorf("%w: %U needs more than one utf-16 unit", ErrUnrepresentableChar, rune(v))
		}
		buf = append(buf, byte(TypeCodeChar))
		return binary.LittleEndian.AppendUint16(buf, uint16(v)), nil
	case Bool:
		buf = append(buf, byte(TypeCodeBool))
		if v {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	case String:
		if len(v) > math.MaxInt32 {
			return nil, fmt.Errorf("%w: string of %d bytes is too long", ErrEncoding, len(v))
		}
		buf = append(buf, byte(TypeCodeString))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v)))
		return append(buf, v...), nil
	case Uuid:
		buf = append(buf, byte(TypeCodeUuid))
		msb := binary.BigEndian.Uint64(v[0:8])
		lsb := binary.BigEndian.Uint64(v[8:16])
		buf = binary.LittleEndian.AppendUint64(buf, msb)
		return binary.LittleEndian.AppendUint64(buf, lsb), nil
	case Timestamp:
		t := time.Time(v)
		buf = append(buf, byte(TypeCodeTimestamp))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(t.UnixMilli()))
		return binary.LittleEndian.AppendUint32(buf, uint32(t.Nanosecond()%int(time.Millisecond))), nil
	}

	return nil, fmt.Errorf("%w: %T", ErrUnknownTypeCode, v)
}

// ReadValue decodes one tagged value from the front of buf, returning the
// value and the number of bytes consumed. A null object decodes to a nil
// Value.
func ReadValue(buf []byte) (Value, int, error) {
	if len(buf) < 1 {
		return nil, 0, fmt.Errorf("%w: missing type code", ErrTruncatedBuffer)
	}

	code := TypeCode(buf[0])
	body := buf[1:]

	switch code {
	case TypeCodeNull:
		return nil, 1, nil
	case TypeCodeInt8:
		if len(body) < 1 {
			return nil, 0, truncatedValueError(code, 1, len(body))
		}
		return Int8(body[0]), 2, nil
	case TypeCodeInt16:
		if len(body) < 2 {
			return nil, 0, truncatedValueError(code, 2, len(body))
		}
		return Int16(binary.LittleEndian.Uint16(body)), 3, nil
	case TypeCodeInt32:
		if len(body) < 4 {
			return nil, 0, truncatedValueError(code, 4, len(body))
		}
		return Int32(binary.LittleEndian.Uint32(body)), 5, nil
	case TypeCodeInt64:
		if len(body) < 8 {
			return nil, 0, truncatedValueError(code, 8, len(body))
		}
		return Int64(binary.LittleEndian.Uint64(body)), 9, nil
	case TypeCodeFloat:
		if len(body) < 4 {
			return nil, 0, truncatedValueError(code, 4, len(body))
		}
		return Float(math.Float32frombits(binary.LittleEndian.Uint32(body))), 5, nil
	case TypeCodeDouble:
		if len(body) < 8 {
			return nil, 0, truncatedValueError(code, 8, len(body))
		}
		return Double(math.Float64frombits(binary.LittleEndian.Uint64(body))), 9, nil
	case TypeCodeChar:
		if len(body) < 2 {
			return nil, 0, truncatedValueError(code, 2, len(body))
		}
		unit := binary.LittleEndian.Uint16(body)
		if isUtf16Surrogate(rune(unit)) {
			return nil, 0, fmt.Errorf("%w: lone surrogate 0x%04x", ErrUnrepresentableChar, unit)
		}
		return Char(unit), 3, nil
	case TypeCodeBool:
		if len(body) < 1 {
			return nil, 0, truncatedValueError(code, 1, len(body))
		}
		switch body[0] {
		case 0:
			return Bool(false), 2, nil
		case 1:
			return Bool(true), 2, nil
		}
		return nil, 0, fmt.Errorf("%w: 0x%02x", ErrInvalidBooleanByte, body[0])
	case TypeCodeString:
		if len(body) < 4 {
			return nil, 0, truncatedValueError(code, 4, len(body))
		}
		strLen := int32(binary.LittleEndian.Uint32(body))
		if strLen == -1 {
			// null strings are normally a null object, but the length
			// sentinel form appears on the wire too and must stay
			// distinguishable from an empty string.
			return nil, 5, nil
		}
		if strLen < 0 {
			return nil, 0, fmt.Errorf("%w: negative string length %d", ErrProtocol, strLen)
		}
		if int(strLen) > len(body)-4 {
			return nil, 0, truncatedValueError(code, int(strLen)+4, len(body))
		}
		return String(body[4 : 4+strLen]), 5 + int(strLen), nil
	case TypeCodeUuid:
		if len(body) < 16 {
			return nil, 0, truncatedValueError(code, 16, len(body))
		}
		var id uuid.UUID
		binary.BigEndian.PutUint64(id[0:8], binary.LittleEndian.Uint64(body[0:8]))
		binary.BigEndian.PutUint64(id[8:16], binary.LittleEndian.Uint64(body[8:16]))
		return Uuid(id), 17, nil
	case TypeCodeTimestamp:
		if len(body) < 12 {
			return nil, 0, truncatedValueError(code, 12, len(body))
		}
		millis := int64(binary.LittleEndian.Uint64(body[0:8]))
		nanos := int32(binary.LittleEndian.Uint32(body[8:12]))
		if nanos < 0 || nanos >= int32(time.Millisecond) {
			return nil, 0, fmt.Errorf("%w: timestamp nanos %d out of range", ErrProtocol, nanos)
		}
		t := time.UnixMilli(millis).Add(time.Duration(nanos)).UTC()
		return Timestamp(t), 13, nil
	}

	return nil, 0, fmt.Errorf("%w: 0x%02x", ErrUnknownTypeCode, code)
}

func truncatedValueError(code TypeCode, need int, have int) error {
	return fmt.Errorf("%w: %s needs %d bytes, have %d", ErrTruncatedBuffer, code, need, have)
}

func isSingleUtf16Unit(r rune) bool {
	return r >= 0 && r <= 0xFFFF && !isUtf16Surrogate(r)
}

func isUtf16Surrogate(r rune) bool {
	return r >= 0xD800 && r <= 0xDFFF
}
