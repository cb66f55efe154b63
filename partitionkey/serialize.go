package partitionkey

import (
	"encoding/binary"
	"math"
)

// Component type tags of the service's canonical hashing form. The tag
// ordering mirrors the service's type ordering and must never change.
const (
	tagUndefined byte = 0x00
	tagNull      byte = 0x01
	tagFalse     byte = 0x02
	tagTrue      byte = 0x03
	tagNumber    byte = 0x05
	tagString    byte = 0x08
)

// maxV1StringChars is the number of Unicode code points a string
// component is truncated to before V1 hashing. The threshold is fixed by
// the published baseline vectors.
const maxV1StringChars = 100

// appendForHashing appends the canonical hashing bytes of a single
// component: a type tag, then the payload. Numbers keep their exact
// IEEE-754 bits (negative zero and NaN are not normalized). Strings get
// a version suffix byte: 0x00 for V1, 0xFF for V2. Undefined is the bare
// tag and Empty contributes no bytes at all, so both sentinels serialize
// the same under every version.
func appendForHashing(dst []byte, c Value, version Version) ([]byte, error) {
	switch c.Kind {
	case KindUndefined:
		return append(dst, tagUndefined), nil
	case KindEmpty:
		return dst, nil
	case KindNull:
		return append(dst, tagNull), nil
	case KindBool:
		if c.B {
			return append(dst, tagTrue), nil
		}
		return append(dst, tagFalse), nil
	case KindNumber:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(c.F64))
		dst = append(dst, tagNumber)
		return append(dst, b[:]...), nil
	case KindString:
		dst = append(dst, tagString)
		dst = append(dst, c.S...)
		if version == V1 {
			return append(dst, 0x00), nil
		}
		return append(dst, 0xFF), nil
	default:
		return nil, &ValidationError{Reason: "component of kind " + c.String() + " cannot be hashed"}
	}
}

// truncateForV1 returns the components with string values truncated to
// maxV1StringChars code points. Non-string components pass through.
func truncateForV1(components []Value) []Value {
	out := make([]Value, len(components))
	for i, c := range components {
		if c.Kind == KindString {
			c.S = truncateRunes(c.S, maxV1StringChars)
		}
		out[i] = c
	}
	return out
}

func truncateRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
