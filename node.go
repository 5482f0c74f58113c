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

// node is the tagged variant behind every position in the trie: emptyNode,
// *internalNode, *leafNode, or *hashNode. Unlike the committed-state field
// sharing attempted in some trie implementations, the four shapes genuinely
// differ in their fields, so they are kept as distinct Go types behind one
// interface rather than a single struct with optional fields.
type node interface {
	// hash returns the node's commitment. For internals it is always
	// recomputed from the children in memory, never trusted from a cached
	// field, since an in-memory internal node may have dirty children.
	hash() Digest

	// isLeaf reports whether this node (or, for a hash node, its referent)
	// is a leaf record. Store.resolve reads the leaf tag from the hash
	// node's position rather than calling this method.
	isLeaf() bool
}

// emptyNode is the Empty node: no data, hash is the zero digest.
type emptyNode struct{}

func (emptyNode) hash() Digest { return zeroDigest }
func (emptyNode) isLeaf() bool { return false }

// locator pins a committed node (or leaf value) to its position in the
// store. fileIndex == 0 means "not yet persisted."
type locator struct {
	fileIndex uint16
	filePos   uint32 // for nodes: tagged (low bit = leaf-ness); for values: raw
}

// internalNode has two children. Its hash is never cached across mutation:
// clearing it eagerly would be an optimization this package intentionally
// skips, since hash() recomputes from children directly and a stale cache
// would be worse than no cache. Once written, an internal node is replaced
// in the tree by the *hashNode standing for it; a bare *internalNode is
// always dirty.
type internalNode struct {
	left, right node
}

func newInternalNode(left, right node) *internalNode {
	return &internalNode{left: left, right: right}
}

func (n *internalNode) hash() Digest {
	return hashInternal(n.left.hash(), n.right.hash())
}

func (*internalNode) isLeaf() bool { return false }

// leafNode holds a key digest, optionally an in-memory value, and a value
// locator once its value has been written. hashVal is precomputed at
// construction time: H_leaf(key, H_raw(value)). Once written, a leaf node
// is replaced in the tree by the *hashNode standing for it.
type leafNode struct {
	key     Digest
	value   []byte // nil once flushed to a hashNode; see tree.go's writeNode
	hashVal Digest
	vloc    valueLocator
}

// valueLocator pins a leaf's value bytes in the store, independent of where
// the leaf's own node record lives (spec.md Design Notes: "a leaf's value
// locator can in principle point to a different file than the node itself").
type valueLocator struct {
	fileIndex uint16
	pos       uint32
	size      uint16
}

func newLeafNode(key Digest, value []byte) *leafNode {
	return &leafNode{
		key:     key,
		value:   value,
		hashVal: hashLeafValue(key, value),
	}
}

func (n *leafNode) hash() Digest { return n.hashVal }
func (*leafNode) isLeaf() bool   { return true }

// hashNode is a lazy reference to a persisted leaf or internal record: it
// carries the record's location and hash, but not its content. Resolving a
// hashNode replaces it, in a local working copy only, with the materialised
// node it points to; the canonical tree root is never mutated by a read.
type hashNode struct {
	loc      locator
	hashVal  Digest
	leafHint bool // low bit of loc.filePos, cached for cheap isLeaf()
}

func newHashNode(loc locator, h Digest, isLeaf bool) *hashNode {
	return &hashNode{loc: loc, hashVal: h, leafHint: isLeaf}
}

func (n *hashNode) hash() Digest { return n.hashVal }
func (n *hashNode) isLeaf() bool { return n.leafHint }

var (
	_ node = emptyNode{}
	_ node = (*internalNode)(nil)
	_ node = (*leafNode)(nil)
	_ node = (*hashNode)(nil)
)

// taggedPos applies the leaf tag to a raw file position: the low bit is set
// for leaf records and clear for internal records, so a hash node's
// referent type can be told apart without reading its record (spec.md §3).
func taggedPos(rawPos uint32, isLeaf bool) uint32 {
	if isLeaf {
		return rawPos*2 + 1
	}
	return rawPos * 2
}

// untagPos strips the leaf tag, returning the raw file position and whether
// the tag marked a leaf record.
func untagPos(tagged uint32) (rawPos uint32, isLeaf bool) {
	return tagged >> 1, tagged&1 == 1
}
