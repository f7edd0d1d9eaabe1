package bin

import "encoding/binary"

// The relay protocol carries host-order scalars from its x86 origins; every
// multi-byte integer on the wire is little-endian.

func PutU32LE(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) }
func PutU64LE(dst []byte, v uint64) { binary.LittleEndian.PutUint64(dst, v) }
func U32LE(src []byte) uint32       { return binary.LittleEndian.Uint32(src) }
func U64LE(src []byte) uint64       { return binary.LittleEndian.Uint64(src) }
