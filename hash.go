// This is free and unencumbered software released into the public domain.
//
// Anyone is free to copy, modify, publish, use, compile, sell, or
// distribute this software, either in source code form or as a compiled
// binary, for any purpose, commercial or non-commercial, and by any
// means.
//
// In jurisdictions that recognize copyright laws, the author or authors
// of this software dedicate any and all copyright interest in the
// software to the public domain. We make this dedication for the benefit
// of the public at large and to the detriment of our heirs and
// successors. We intend this dedication to be an overt act of
// relinquishment in perpetuity of all present and future rights to this
// software under copyright law.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
// IN NO EVENT SHALL THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR
// OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
// ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.
//
// For more information, please refer to <https://unlicense.org>

package urkel

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// DigestSize is the width, in bytes, of every hash produced by this package.
const DigestSize = 32

// leafPrefix and internalPrefix domain-separate the two hash pre-images so
// that a leaf and an internal node can never collide on the same digest.
const (
	leafPrefix     byte = 0x00
	internalPrefix byte = 0x01
)

// Digest is a fixed 256-bit hash output. The zero Digest is the distinguished
// sentinel for an empty subtree.
type Digest [DigestSize]byte

// zeroDigest is the hash of an Empty node.
var zeroDigest Digest

// IsZero reports whether d is the all-zero sentinel digest.
func (d Digest) IsZero() bool {
	return d == zeroDigest
}

// String renders d as a lowercase hex string, for logging and test output.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// BytesToDigest copies b into a Digest. It panics if len(b) != DigestSize,
// which indicates a programmer error at a call site, not a runtime fault.
func BytesToDigest(b []byte) Digest {
	if len(b) != DigestSize {
		panic(fmt.Sprintf("urkel: digest must be %d bytes, got %d", DigestSize, len(b)))
	}
	var d Digest
	copy(d[:], b)
	return d
}

func newKeccak() sha3Hash {
	return sha3.NewLegacyKeccak256()
}

// sha3Hash is the minimal surface of hash.Hash this package relies on; kept
// as a named type purely so the keccak construction point lives in one place
// (spec.md §1 treats the hash function's identity as an external choice, only
// its 256-bit digest contract matters to the algorithms below).
type sha3Hash interface {
	Write(p []byte) (n int, err error)
	Sum(b []byte) []byte
}

// hashRaw computes H_raw(data): the hash of raw bytes, with no
// domain-separation prefix. It underlies value hashing and the checksum
// construction.
func hashRaw(data []byte) Digest {
	h := newKeccak()
	h.Write(data)
	return BytesToDigest(h.Sum(nil))
}

// hashLeaf computes H_leaf(key, vhash) = H(0x00 || key || vhash). vhash is
// assumed to already be H_raw(value); callers that only have the raw value
// should use hashLeafValue instead.
func hashLeaf(key Digest, vhash Digest) Digest {
	h := newKeccak()
	h.Write([]byte{leafPrefix})
	h.Write(key[:])
	h.Write(vhash[:])
	return BytesToDigest(h.Sum(nil))
}

// hashLeafValue computes a leaf's stored hash directly from its raw value:
// H_leaf(key, H_raw(value)). This is the two-level construction that binds
// a leaf's hash to its value (spec.md §4.A).
func hashLeafValue(key Digest, value []byte) Digest {
	return hashLeaf(key, hashRaw(value))
}

// hashInternal computes H_internal(left, right) = H(0x01 || left || right).
func hashInternal(left, right Digest) Digest {
	h := newKeccak()
	h.Write([]byte{internalPrefix})
	h.Write(left[:])
	h.Write(right[:])
	return BytesToDigest(h.Sum(nil))
}

// checksum computes H(data || metaKey), the construction behind the
// meta-record's 20-byte integrity checksum (spec.md §4.D).
func checksum(data []byte, metaKey [32]byte) Digest {
	h := newKeccak()
	h.Write(data)
	h.Write(metaKey[:])
	return BytesToDigest(h.Sum(nil))
}

// hasBit reports the value of the bit at the given index (0 = most
// significant bit of byte 0), the direction a descent takes at that depth.
func hasBit(key Digest, index int) bool {
	byteIdx := index >> 3
	bitIdx := uint(index & 7)
	return (key[byteIdx]>>(7-bitIdx))&1 == 1
}
