package partitionkey

import (
	"fmt"
	"strings"
)

// PartitionKind selects how a container turns partition-key values into
// effective partition keys.
type PartitionKind uint8

const (
	// Hash is the single-hash kind: one path, one combined hash.
	Hash PartitionKind = iota + 1
	// MultiHash is the hierarchical kind: every path component is hashed
	// independently and the results are concatenated in path order.
	MultiHash
)

// String implements fmt.Stringer using the service's wire names.
func (k PartitionKind) String() string {
	switch k {
	case Hash:
		return "Hash"
	case MultiHash:
		return "MultiHash"
	default:
		return "Invalid"
	}
}

// Version selects the hashing algorithm of a partition-key definition.
type Version int

const (
	// V1 hashes with MurmurHash3 x86 32-bit and encodes the effective key
	// as an ordered hex binary string.
	V1 Version = 1
	// V2 hashes with MurmurHash3 x64 128-bit. This is the default for all
	// containers created by current service versions.
	V2 Version = 2
)

// MaxPaths is the maximum number of paths a hierarchical partition-key
// definition may carry, matching the service limit.
const MaxPaths = 3

// Definition describes a container's partition key: the ordered document
// paths the key is read from, the definition kind, and the hash version.
//
// The zero values of Kind and Version default to Hash and V2, so the
// common case is just Definition{Paths: []string{"/pk"}}.
type Definition struct {
	Paths   []string
	Kind    PartitionKind
	Version Version
}

// kind returns the effective kind, defaulting to Hash.
func (d Definition) kind() PartitionKind {
	if d.Kind == 0 {
		return Hash
	}
	return d.Kind
}

// version returns the effective version, defaulting to V2.
func (d Definition) version() Version {
	if d.Version == 0 {
		return V2
	}
	return d.Version
}

// Validate checks the definition for structural problems. It returns a
// *ValidationError describing the first problem found.
func (d Definition) Validate() error {
	if len(d.Paths) == 0 {
		return &ValidationError{Reason: "partition-key definition has no paths"}
	}
	if len(d.Paths) > MaxPaths {
		return &ValidationError{Reason: fmt.Sprintf("partition-key definition has %d paths, maximum is %d", len(d.Paths), MaxPaths)}
	}
	for _, p := range d.Paths {
		if len(p) < 2 || !strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") {
			return &ValidationError{Reason: fmt.Sprintf("invalid partition-key path %q", p)}
		}
	}
	switch d.Kind {
	case 0, Hash, MultiHash:
	default:
		return &ValidationError{Reason: fmt.Sprintf("invalid partition-key kind %d", d.Kind)}
	}
	if len(d.Paths) > 1 && d.kind() != MultiHash {
		return &ValidationError{Reason: "multiple partition-key paths require the MultiHash kind"}
	}
	switch d.Version {
	case 0, V1, V2:
	default:
		return &ValidationError{Reason: fmt.Sprintf("invalid partition-key version %d", d.Version)}
	}
	if d.kind() == MultiHash && d.version() != V2 {
		return &ValidationError{Reason: "MultiHash partition keys require hash version V2"}
	}
	return nil
}

// Components canonicalizes a partition-key value into its ordered
// component list: scalars and sentinels become a single component, lists
// contribute their elements. It returns a *ValidationError when the value
// is invalid or carries more components than the definition has paths.
func (d Definition) Components(v Value) ([]Value, error) {
	switch v.Kind {
	case KindInvalid:
		return nil, &ValidationError{Reason: "invalid partition-key value"}
	case KindList:
		if len(v.L) > len(d.Paths) {
			return nil, &ValidationError{Reason: fmt.Sprintf(
				"partition-key value has %d components, definition has %d paths", len(v.L), len(d.Paths))}
		}
		for i, c := range v.L {
			switch c.Kind {
			case KindNull, KindBool, KindNumber, KindString, KindUndefined:
			case KindList:
				return nil, &ValidationError{Reason: fmt.Sprintf("partition-key component %d is a nested list", i)}
			default:
				return nil, &ValidationError{Reason: fmt.Sprintf("partition-key component %d is not a scalar", i)}
			}
		}
		return v.L, nil
	default:
		return []Value{v}, nil
	}
}

// PathSegments returns the segments of path i, e.g. "/a/b" yields
// ["a", "b"].
func (d Definition) PathSegments(i int) []string {
	return strings.Split(strings.TrimPrefix(d.Paths[i], "/"), "/")
}

// Extract reads the partition-key components of a decoded JSON document.
// Paths that are missing or do not resolve to a scalar yield Undefined.
func (d Definition) Extract(doc map[string]any) []Value {
	out := make([]Value, len(d.Paths))
	for i := range d.Paths {
		out[i] = extractPath(doc, d.PathSegments(i))
	}
	return out
}

func extractPath(doc map[string]any, segments []string) Value {
	var cur any = doc
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return Undefined()
		}
		cur, ok = m[seg]
		if !ok {
			return Undefined()
		}
	}
	switch t := cur.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case string:
		return String(t)
	default:
		// Objects and arrays are not valid partition-key scalars.
		return Undefined()
	}
}
