package property

import "github.com/zeebo/xxh3"

// Hash returns the deterministic 64-bit hash of v's canonical encoding, used
// as the valueHash component of property-index keys (spec §4.1).
func Hash(v Value) uint64 {
	return xxh3.Hash(CanonicalEncode(v))
}
