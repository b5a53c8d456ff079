package ignitex

import "strconv"

// TypeCode is the single-byte tag that precedes every encoded value on the
// wire and identifies which variant follows.
type TypeCode uint8

const (
	TypeCodeInt8      TypeCode = 1
	TypeCodeInt16     TypeCode = 2
	TypeCodeInt32     TypeCode = 3
	TypeCodeInt64     TypeCode = 4
	TypeCodeFloat     TypeCode = 5
	TypeCodeDouble    TypeCode = 6
	TypeCodeChar      TypeCode = 7
	TypeCodeBool      TypeCode = 8
	TypeCodeString    TypeCode = 9
	TypeCodeUuid      TypeCode = 10
	TypeCodeTimestamp TypeCode = 33
	TypeCodeNull      TypeCode = 101
)

func (c TypeCode) String() string {
	switch c {
	case TypeCodeInt8:
		return "int8"
	case TypeCodeInt16:
		return "int16"
	case TypeCodeInt32:
		return "int32"
	case TypeCodeInt64:
		return "int64"
	case TypeCodeFloat:
		return "float"
	case TypeCodeDouble:
		return "double"
	case TypeCodeChar:
		return "char"
	case TypeCodeBool:
		return "bool"
	case TypeCodeString:
		return "string"
	case TypeCodeUuid:
		return "uuid"
	case TypeCodeTimestamp:
		return "timestamp"
	case TypeCodeNull:
		return "null"
	}

	return "x" + strconv.FormatUint(uint64(c), 16)
}
