package ignitex

import "fmt"

// ProtocolVersion is the three-part version negotiated during the
// handshake.
type ProtocolVersion struct {
	Major int16
	Minor int16
	Patch int16
}

// ProtocolVersion110 is the wire protocol version this package speaks by
// default.
var ProtocolVersion110 = ProtocolVersion{Major: 1, Minor: 1, Patch: 0}

func (v ProtocolVersion) IsZero() bool {
	return v.Major == 0 && v.Minor == 0 && v.Patch == 0
}

func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
