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

import "errors"

// Sentinel errors returned by tree and store operations. Corruption and
// logic errors are fatal to the current operation; the tree makes no
// attempt at partial repair.
var (
	// ErrCorrupt is wrapped by any parity-bit violation, magic mismatch,
	// checksum mismatch, or unexpected record size encountered while
	// decoding on-disk data.
	ErrCorrupt = errors.New("urkel: corrupt store")

	// ErrNotFound is returned by Get when the key has no value in the tree.
	ErrNotFound = errors.New("urkel: key not found")

	// ErrValueTooLarge is returned by Insert when a value exceeds MaxValueSize.
	ErrValueTooLarge = errors.New("urkel: value exceeds maximum size")

	// ErrDepthOverflow indicates descent past KeyBits levels without
	// reaching a terminal node; this means the store is malformed.
	ErrDepthOverflow = errors.New("urkel: descent exceeded key size")

	// ErrLocked is returned by Open when another process already holds
	// the data directory's advisory lock.
	ErrLocked = errors.New("urkel: data directory is locked by another process")

	// ErrReadOnly is returned by Insert and Commit on a Tree opened with
	// Options.ReadOnly.
	ErrReadOnly = errors.New("urkel: tree is read-only")

	// Proof verification errors (spec.md §7, "Proof failure").
	ErrProofUnknown       = errors.New("urkel: malformed proof")
	ErrProofSameKey       = errors.New("urkel: collision proof key equals query key")
	ErrProofHeadMismatch  = errors.New("urkel: proof does not fold to the expected root")
	ErrProofBadVerify     = errors.New("urkel: exists proof missing its value")
)
