package partitionkey

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// hash32 computes the V1 component hash: MurmurHash3 x86 32-bit, seed 0.
func hash32(data []byte) uint32 {
	return murmur3.Sum32(data)
}

// hash128 computes the V2 component hash: MurmurHash3 x64 128-bit with
// seed 0, rendered in the service's canonical byte order (the high word
// big-endian first, then the low word). The top two bits are cleared so
// every key sorts below the exclusive space maximum "FF".
func hash128(data []byte) [16]byte {
	h1, h2 := murmur3.Sum128(data)

	var out [16]byte
	binary.BigEndian.PutUint64(out[:8], h2)
	binary.BigEndian.PutUint64(out[8:], h1)
	out[0] &= 0x3F

	return out
}
