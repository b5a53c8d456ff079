package ignitex

import "unicode/utf16"

// CacheID derives the wire identifier for a cache from its name: a 31x
// rolling hash over the name's UTF-16 code units with 32-bit wraparound,
// matching the server's addressing scheme exactly. Identical names always
// produce identical ids.
func CacheID(name string) int32 {
	var hash int32
	for _, unit := range utf16.Encode([]rune(name)) {
		hash = 31*hash + int32(unit)
	}

	return hash
}
