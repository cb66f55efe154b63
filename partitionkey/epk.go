package partitionkey

import (
	"encoding/hex"
	"math"
	"strings"
)

const (
	// MinimumInclusiveKey is the smallest effective partition key.
	MinimumInclusiveKey = ""
	// MaximumExclusiveKey is the exclusive upper bound of the effective
	// partition key space.
	MaximumExclusiveKey = "FF"
)

// Range is a half-open-by-convention effective-partition-key range with
// independent bound inclusivity. Effective keys are canonical hex strings
// and compare lexicographically.
type Range struct {
	Min          string
	Max          string
	MinInclusive bool
	MaxInclusive bool
}

// PointRange returns the singleton range containing exactly key.
func PointRange(key string) Range {
	return Range{Min: key, Max: key, MinInclusive: true, MaxInclusive: true}
}

// FullRange returns the range covering the whole effective key space.
func FullRange() Range {
	return Range{Min: MinimumInclusiveKey, Max: MaximumExclusiveKey, MinInclusive: true, MaxInclusive: false}
}

// IsSingleton reports whether the range contains exactly one key.
func (r Range) IsSingleton() bool {
	return r.MinInclusive && r.MaxInclusive && r.Min == r.Max
}

// String implements fmt.Stringer for log output.
func (r Range) String() string {
	lo, hi := "(", ")"
	if r.MinInclusive {
		lo = "["
	}
	if r.MaxInclusive {
		hi = "]"
	}
	return lo + r.Min + "," + r.Max + hi
}

// EffectiveKey computes the effective partition key of value under def.
//
// For V1 the key is the ordered hex binary string of the 32-bit hash
// followed by the truncated components; for V2 it is the 128-bit hash as
// 32 uppercase hex characters, one block per component for MultiHash
// definitions. The Empty sentinel maps to MinimumInclusiveKey.
func EffectiveKey(def Definition, value Value) (string, error) {
	if err := def.Validate(); err != nil {
		return "", err
	}
	components, err := def.Components(value)
	if err != nil {
		return "", err
	}
	return effectiveKey(def, components)
}

func effectiveKey(def Definition, components []Value) (string, error) {
	if len(components) == 0 {
		return MinimumInclusiveKey, nil
	}
	if len(components) == 1 && components[0].Kind == KindEmpty {
		return MinimumInclusiveKey, nil
	}

	if def.kind() == MultiHash {
		return effectiveKeyMultiHash(components)
	}
	if def.version() == V1 {
		return effectiveKeyV1(components)
	}
	return effectiveKeyV2(components)
}

// effectiveKeyV1 hashes the truncated component list as one buffer and
// encodes [hash, components...] as an ordered hex binary string.
func effectiveKeyV1(components []Value) (string, error) {
	truncated := truncateForV1(components)

	var buf []byte
	var err error
	for _, c := range truncated {
		if buf, err = appendForHashing(buf, c, V1); err != nil {
			return "", err
		}
	}

	out := appendBinaryNumber(nil, float64(hash32(buf)))
	for _, c := range truncated {
		if out, err = appendBinaryComponent(out, c); err != nil {
			return "", err
		}
	}
	return hexUpper(out), nil
}

// effectiveKeyV2 hashes all components as one buffer into a single
// 32-character block.
func effectiveKeyV2(components []Value) (string, error) {
	var buf []byte
	var err error
	for _, c := range components {
		if buf, err = appendForHashing(buf, c, V2); err != nil {
			return "", err
		}
	}
	h := hash128(buf)
	return hexUpper(h[:]), nil
}

// effectiveKeyMultiHash hashes every component independently and
// concatenates the blocks in path order.
func effectiveKeyMultiHash(components []Value) (string, error) {
	var sb strings.Builder
	sb.Grow(len(components) * 32)
	for _, c := range components {
		buf, err := appendForHashing(nil, c, V2)
		if err != nil {
			return "", err
		}
		h := hash128(buf)
		sb.WriteString(hexUpper(h[:]))
	}
	return sb.String(), nil
}

// EffectiveRange computes the effective-partition-key range owning value
// under def.
//
// A fully specified value yields the singleton range around its effective
// key. For MultiHash definitions a prefix value (fewer components than
// paths, counting trailing Undefined components as missing) widens to the
// range of all possible completions. The Empty sentinel yields the
// singleton minimum range.
func EffectiveRange(def Definition, value Value) (Range, error) {
	if err := def.Validate(); err != nil {
		return Range{}, err
	}
	components, err := def.Components(value)
	if err != nil {
		return Range{}, err
	}

	if len(components) == 0 || (len(components) == 1 && components[0].Kind == KindEmpty) {
		return PointRange(MinimumInclusiveKey), nil
	}

	if def.kind() == MultiHash {
		prefix := components
		for len(prefix) > 0 && prefix[len(prefix)-1].Kind == KindUndefined {
			prefix = prefix[:len(prefix)-1]
		}
		if len(prefix) < len(def.Paths) {
			if len(prefix) == 0 {
				return FullRange(), nil
			}
			min, err := effectiveKey(def, prefix)
			if err != nil {
				return Range{}, err
			}
			return Range{Min: min, Max: min + MaximumExclusiveKey, MinInclusive: true, MaxInclusive: false}, nil
		}
	}

	key, err := effectiveKey(def, components)
	if err != nil {
		return Range{}, err
	}
	return PointRange(key), nil
}

// appendBinaryComponent appends the ordered binary encoding of one
// component, the form used inside V1 effective keys. The encoding sorts
// byte-wise in the same order as the component values themselves.
func appendBinaryComponent(dst []byte, c Value) ([]byte, error) {
	switch c.Kind {
	case KindUndefined:
		return append(dst, tagUndefined), nil
	case KindNull:
		return append(dst, tagNull), nil
	case KindBool:
		if c.B {
			return append(dst, tagTrue), nil
		}
		return append(dst, tagFalse), nil
	case KindNumber:
		return appendBinaryNumber(dst, c.F64), nil
	case KindString:
		return appendBinaryString(dst, c.S), nil
	default:
		return nil, &ValidationError{Reason: "component of kind " + c.String() + " cannot be encoded"}
	}
}

// appendBinaryNumber writes the number tag and the order-preserving
// double encoding: the sign-flipped 64-bit payload emitted as one 8-bit
// chunk followed by 7-bit chunks, each marked with a continuation bit
// except the last.
func appendBinaryNumber(dst []byte, f float64) []byte {
	dst = append(dst, tagNumber)

	payload := encodeDoubleAsUint64(f)
	dst = append(dst, byte(payload>>56))
	payload <<= 8

	var chunk byte
	first := true
	for {
		if !first {
			dst = append(dst, chunk)
		} else {
			first = false
		}
		chunk = byte(payload>>56) | 0x01
		payload <<= 7
		if payload == 0 {
			break
		}
	}
	return append(dst, chunk&0xFE)
}

// encodeDoubleAsUint64 maps doubles onto uint64 so that unsigned integer
// order matches numeric order: positive values get the sign bit set,
// negative values are bit-complemented.
func encodeDoubleAsUint64(f float64) uint64 {
	raw := math.Float64bits(f)
	const mask = uint64(1) << 63
	if raw < mask {
		return raw ^ mask
	}
	return ^raw + 1
}

// appendBinaryString writes the string tag and the UTF-8 bytes shifted up
// by one (0xFF stays put), capped at 101 bytes for long strings. Short
// strings get a 0x00 terminator so that prefixes sort first.
func appendBinaryString(dst []byte, s string) []byte {
	const maxBytes = 100

	dst = append(dst, tagString)
	short := len(s) <= maxBytes
	n := len(s)
	if !short {
		n = maxBytes + 1
	}
	for i := 0; i < n; i++ {
		c := s[i]
		if c < 0xFF {
			c++
		}
		dst = append(dst, c)
	}
	if short {
		dst = append(dst, 0x00)
	}
	return dst
}

func hexUpper(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}
