package brackets

import (
	"encoding/binary"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// SubSeed derives a child seed as Keccak-256 over the parent seed and the
// big-endian encoding of each part, in order. All randomness consumed by a
// run fans out from the execution seed through this function.
func SubSeed(seed [32]byte, parts ...uint64) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(seed[:])
	var buf [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(buf[:], p)
		h.Write(buf[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// SeedMod reduces a 256-bit seed modulo m, treating the full seed as an
// unsigned big-endian integer. Truncating to 64 bits first would bias the
// result, so the reduction goes through math/big.
func SeedMod(seed [32]byte, m uint64) uint64 {
	if m == 0 {
		return 0
	}
	n := new(big.Int).SetBytes(seed[:])
	return n.Mod(n, new(big.Int).SetUint64(m)).Uint64()
}
