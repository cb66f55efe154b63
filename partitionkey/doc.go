// Package partitionkey implements partition-key values, definitions and
// the deterministic effective-partition-key (EPK) hashing used to route
// documents to physical partitions.
//
// # Values
//
// Partition-key values form a small closed union over the JSON scalars
// plus two sentinels:
//
//	partitionkey.Null()
//	partitionkey.Bool(true)
//	partitionkey.Number(5.5)
//	partitionkey.String("redmond")
//	partitionkey.List(partitionkey.String("tenant"), partitionkey.Number(7))
//	partitionkey.Undefined() // the document has no value at the path
//	partitionkey.Empty()     // container-level absence (migrated containers)
//
// # Effective partition keys
//
// An effective partition key is a canonical hex string computed from the
// value's bit-exact serialization:
//
//   - V1: MurmurHash3 x86 32-bit over the whole component list, encoded
//     together with the (truncated) components as an order-preserving
//     hex binary string.
//   - V2: MurmurHash3 x64 128-bit, 32 uppercase hex characters. MultiHash
//     definitions hash each component independently and concatenate the
//     blocks in path order.
//
// Keys compare lexicographically; the space spans ["", "FF").
//
//	def := partitionkey.Definition{Paths: []string{"/pk"}}
//	key, err := partitionkey.EffectiveKey(def, partitionkey.String("redmond"))
//	rng, err := partitionkey.EffectiveRange(def, partitionkey.String("redmond"))
//
// Hashing is deterministic and locale-independent; identical inputs always
// produce identical keys, matching the published baseline vectors of the
// service.
package partitionkey
