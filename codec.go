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
	"encoding/binary"
	"fmt"
)

// Record sizes, bit-exact per spec.md §4.B/C.
const (
	InternalNodeSize = (2 + 4 + 32) * 2 // 76
	LeafNodeSize     = 2 + 4 + 2 + 32   // 40
)

// childDescriptor is the wire form of one child slot in an internal record:
// (u16 index, u32 pos, 32-byte hash), little-endian.
type childDescriptor struct {
	index uint16
	pos   uint32
	hash  Digest
}

func descriptorOf(n node, leftSlot bool) childDescriptor {
	switch c := n.(type) {
	case emptyNode:
		return childDescriptor{}
	case *hashNode:
		idx := c.loc.fileIndex
		if leftSlot {
			idx *= 2
		}
		return childDescriptor{index: idx, pos: c.loc.filePos, hash: c.hashVal}
	default:
		// Only ever called on already-committed children (hash nodes) or
		// Empty; Tree.writeNode persists both children before encoding.
		panic(fmt.Sprintf("urkel: cannot encode uncommitted node of type %T", n))
	}
}

// encodeInternal serialises an internal record: two child descriptors back
// to back. The left slot's index is doubled so its low bit is always zero
// on the wire, asserting "not a leaf" for that slot independently of the
// leaf tag carried inside a hash node's own position field.
func encodeInternal(left, right node) []byte {
	buf := make([]byte, InternalNodeSize)

	l := descriptorOf(left, true)
	binary.LittleEndian.PutUint16(buf[0:2], l.index)
	binary.LittleEndian.PutUint32(buf[2:6], l.pos)
	copy(buf[6:38], l.hash[:])

	r := descriptorOf(right, false)
	binary.LittleEndian.PutUint16(buf[38:40], r.index)
	binary.LittleEndian.PutUint32(buf[40:44], r.pos)
	copy(buf[44:76], r.hash[:])

	return buf
}

// decodeInternal parses a 76-byte internal record into its two children as
// emptyNode or *hashNode. A left-slot index with its low bit set is
// corruption: the parity bit must decode to zero.
func decodeInternal(buf []byte) (left, right node, err error) {
	if len(buf) != InternalNodeSize {
		return nil, nil, fmt.Errorf("%w: internal record has %d bytes, want %d", ErrCorrupt, len(buf), InternalNodeSize)
	}

	leftIndex := binary.LittleEndian.Uint16(buf[0:2])
	if leftIndex&1 != 0 {
		return nil, nil, fmt.Errorf("%w: internal record left slot has odd index", ErrCorrupt)
	}
	leftIndex >>= 1
	leftPos := binary.LittleEndian.Uint32(buf[2:6])
	var leftHash Digest
	copy(leftHash[:], buf[6:38])
	left = childNodeFromDescriptor(leftIndex, leftPos, leftHash)

	rightIndex := binary.LittleEndian.Uint16(buf[38:40])
	rightPos := binary.LittleEndian.Uint32(buf[40:44])
	var rightHash Digest
	copy(rightHash[:], buf[44:76])
	right = childNodeFromDescriptor(rightIndex, rightPos, rightHash)

	return left, right, nil
}

func childNodeFromDescriptor(index uint16, pos uint32, hash Digest) node {
	if index == 0 {
		return emptyNode{}
	}
	_, isLeaf := untagPos(pos)
	return newHashNode(locator{fileIndex: index, filePos: pos}, hash, isLeaf)
}

// encodeLeaf serialises a 40-byte leaf record: (u16 vindex*2+1, u32 vpos,
// u16 vsize, 32-byte key). The low bit of the first field is always 1,
// asserting "leaf" on the wire.
func encodeLeaf(n *leafNode) []byte {
	buf := make([]byte, LeafNodeSize)
	binary.LittleEndian.PutUint16(buf[0:2], n.vloc.fileIndex*2+1)
	binary.LittleEndian.PutUint32(buf[2:6], n.vloc.pos)
	binary.LittleEndian.PutUint16(buf[6:8], n.vloc.size)
	copy(buf[8:40], n.key[:])
	return buf
}

// decodeLeaf parses a 40-byte leaf record into key and value locator. The
// in-memory value is left nil: the caller retrieves it from the store on
// demand.
func decodeLeaf(buf []byte) (key Digest, vloc valueLocator, err error) {
	if len(buf) != LeafNodeSize {
		return Digest{}, valueLocator{}, fmt.Errorf("%w: leaf record has %d bytes, want %d", ErrCorrupt, len(buf), LeafNodeSize)
	}

	vindexTagged := binary.LittleEndian.Uint16(buf[0:2])
	if vindexTagged&1 != 1 {
		return Digest{}, valueLocator{}, fmt.Errorf("%w: leaf record value index missing leaf tag", ErrCorrupt)
	}
	vloc.fileIndex = vindexTagged >> 1
	vloc.pos = binary.LittleEndian.Uint32(buf[2:6])
	vloc.size = binary.LittleEndian.Uint16(buf[6:8])
	copy(key[:], buf[8:40])

	return key, vloc, nil
}
