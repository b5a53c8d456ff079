package ignitex

import (
	"time"

	"github.com/google/uuid"
)

// Value is one of the primitive values the protocol can carry. The set of
// variants is fixed by the server and closed here; a nil Value represents
// the protocol's null object.
type Value interface {
	Type() TypeCode
	isValue()
}

type Int8 int8

func (Int8) Type() TypeCode { return TypeCodeInt8 }
func (Int8) isValue()       {}

type Int16 int16

func (Int16) Type() TypeCode { return TypeCodeInt16 }
func (Int16) isValue()       {}

type Int32 int32

func (Int32) Type() TypeCode { return TypeCodeInt32 }
func (Int32) isValue()       {}

type Int64 int64

func (Int64) Type() TypeCode { return TypeCodeInt64 }
func (Int64) isValue()       {}

type Float float32

func (Float) Type() TypeCode { return TypeCodeFloat }
func (Float) isValue()       {}

type Double float64

func (Double) Type() TypeCode { return TypeCodeDouble }
func (Double) isValue()       {}

// Char is a single UTF-16 code unit. Code points outside the basic
// multilingual plane need two units and cannot be represented.
type Char rune

func (Char) Type() TypeCode { return TypeCodeChar }
func (Char) isValue()       {}

type Bool bool

func (Bool) Type() TypeCode { return TypeCodeBool }
func (Bool) isValue()       {}

// String is a non-null UTF-8 string. A null string is a nil Value.
type String string

func (String) Type() TypeCode { return TypeCodeString }
func (String) isValue()       {}

type Uuid uuid.UUID

func (Uuid) Type() TypeCode { return TypeCodeUuid }
func (Uuid) isValue()       {}

// Timestamp carries millisecond epoch time plus the nanosecond part of the
// last millisecond, matching the server's layout.
type Timestamp time.Time

func (Timestamp) Type() TypeCode { return TypeCodeTimestamp }
func (Timestamp) isValue()       {}
