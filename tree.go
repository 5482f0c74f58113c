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

// Tree is a base-2 Patricia trie over 256-bit keys, persisted through a
// Store. A Tree is single-writer: Insert and Commit mutate t.root directly
// and are not safe to call from more than one goroutine at a time.
type Tree struct {
	store *Store
	root  node
	opts  Options
}

// Open opens (or creates) the Urkel tree rooted at dir, replaying the most
// recent valid meta-record to recover the committed root.
func Open(dir string, opts Options) (*Tree, error) {
	store, err := openStore(dir, opts)
	if err != nil {
		return nil, err
	}

	rec, found, err := store.recoverMeta()
	if err != nil {
		store.Close()
		return nil, err
	}

	root := node(emptyNode{})
	if found {
		root, err = store.rootNode(rec)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	resolved, err := opts.resolved()
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Tree{store: store, root: root, opts: resolved}, nil
}

// Close releases the tree's advisory directory lock.
func (t *Tree) Close() error {
	return t.store.Close()
}

// GetRoot returns the current root commitment. It reflects every Insert
// made so far, whether or not Commit has been called.
func (t *Tree) GetRoot() Digest {
	return t.root.hash()
}

// leafValue returns a leaf's value bytes, reading them from the store if
// they have not been kept in memory.
func (t *Tree) leafValue(n *leafNode) ([]byte, error) {
	if n.value != nil {
		return n.value, nil
	}
	return t.store.retrieve(n.vloc)
}

// Get looks up key, resolving hash nodes along the way into local working
// copies only: descent never mutates t.root (spec.md Design Notes).
func (t *Tree) Get(key Digest) ([]byte, error) {
	depth := 0
	cur := t.root

	for {
		switch n := cur.(type) {
		case emptyNode:
			return nil, ErrNotFound

		case *hashNode:
			resolved, err := t.store.resolve(n)
			if err != nil {
				return nil, err
			}
			cur = resolved

		case *internalNode:
			if depth == KeyBits {
				return nil, ErrDepthOverflow
			}
			if hasBit(key, depth) {
				cur = n.right
			} else {
				cur = n.left
			}
			depth++

		case *leafNode:
			if n.key != key {
				return nil, ErrNotFound
			}
			return t.leafValue(n)
		}
	}
}

// Insert sets key to value, replacing any existing value. Re-inserting the
// same key with a value that hashes identically to the one already stored
// is a no-op: the existing root is returned untouched rather than rewriting
// an unchanged subtree.
func (t *Tree) Insert(key Digest, value []byte) error {
	if t.opts.ReadOnly {
		return ErrReadOnly
	}
	if uint32(len(value)) > t.opts.MaxValueSize {
		return ErrValueTooLarge
	}

	newRoot, err := t.insert(key, value)
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

// insert performs the skip-compressed descent: it walks down from the
// current root to either an empty slot or a leaf, collecting the sibling at
// each internal level visited, then rebuilds the path bottom-up around the
// new leaf. Keys that agree on a long bit prefix accumulate one internal
// level per agreeing bit, each with an Empty sibling, until the first bit
// where the new and existing key diverge.
func (t *Tree) insert(key Digest, value []byte) (node, error) {
	leafHash := hashLeafValue(key, value)
	depth := 0
	var siblings []node
	cur := t.root

descend:
	for {
		switch n := cur.(type) {
		case emptyNode:
			break descend

		case *hashNode:
			resolved, err := t.store.resolve(n)
			if err != nil {
				return nil, err
			}
			cur = resolved

		case *internalNode:
			if depth == KeyBits {
				return nil, ErrDepthOverflow
			}
			if hasBit(key, depth) {
				siblings = append(siblings, n.left)
				cur = n.right
			} else {
				siblings = append(siblings, n.right)
				cur = n.left
			}
			depth++

		case *leafNode:
			if n.key == key {
				if n.hashVal == leafHash {
					return t.root, nil
				}
				break descend
			}

			for hasBit(key, depth) == hasBit(n.key, depth) {
				siblings = append(siblings, emptyNode{})
				depth++
			}
			siblings = append(siblings, n)
			depth++
			break descend
		}
	}

	var newRoot node = newLeafNode(key, value)
	for i := len(siblings) - 1; i >= 0; i-- {
		depth--
		sib := siblings[i]
		if hasBit(key, depth) {
			newRoot = newInternalNode(sib, newRoot)
		} else {
			newRoot = newInternalNode(newRoot, sib)
		}
	}
	return newRoot, nil
}

// Prove builds a membership or non-membership proof for key against the
// current (possibly uncommitted) root.
func (t *Tree) Prove(key Digest) (*Proof, error) {
	depth := 0
	var witnesses []Digest
	cur := t.root

	for {
		switch n := cur.(type) {
		case emptyNode:
			return &Proof{Type: ProofDeadend, Witnesses: witnesses}, nil

		case *hashNode:
			resolved, err := t.store.resolve(n)
			if err != nil {
				return nil, err
			}
			cur = resolved

		case *internalNode:
			if depth == KeyBits {
				return nil, ErrDepthOverflow
			}
			if hasBit(key, depth) {
				witnesses = append(witnesses, n.left.hash())
				cur = n.right
			} else {
				witnesses = append(witnesses, n.right.hash())
				cur = n.left
			}
			depth++

		case *leafNode:
			if n.key == key {
				value, err := t.leafValue(n)
				if err != nil {
					return nil, err
				}
				return &Proof{Type: ProofExists, Witnesses: witnesses, Value: value}, nil
			}

			value, err := t.leafValue(n)
			if err != nil {
				return nil, err
			}
			k := n.key
			vh := hashRaw(value)
			return &Proof{Type: ProofCollision, Witnesses: witnesses, Key: &k, ValueHash: &vh}, nil
		}
	}
}

// Commit flushes every node reachable from the in-memory root that has not
// yet been written, then appends a meta-record pinning the new root
// (spec.md §4.E, §9 Open Question: commit must always write the
// meta-record, never leave a committed generation unrecoverable).
func (t *Tree) Commit() error {
	if t.opts.ReadOnly {
		return ErrReadOnly
	}

	newRoot, err := t.writeNode(t.root)
	if err != nil {
		return err
	}
	if _, err := t.store.commit(newRoot); err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

// writeNode persists n (if it is not already a reference to persisted data)
// and returns the *hashNode standing in for it. A *hashNode argument is
// already on disk and is returned unchanged: nothing beneath it can be
// dirty, since every mutation path replaces nodes up to the root rather
// than editing in place.
func (t *Tree) writeNode(n node) (node, error) {
	switch v := n.(type) {
	case emptyNode:
		return emptyNode{}, nil

	case *hashNode:
		return v, nil

	case *internalNode:
		left, err := t.writeNode(v.left)
		if err != nil {
			return nil, err
		}
		right, err := t.writeNode(v.right)
		if err != nil {
			return nil, err
		}

		h := hashInternal(left.hash(), right.hash())
		loc, err := t.store.writeNode(encodeInternal(left, right), false)
		if err != nil {
			return nil, err
		}
		return newHashNode(loc, h, false), nil

	case *leafNode:
		if v.value != nil {
			if err := t.store.writeValue(v); err != nil {
				return nil, err
			}
		}
		loc, err := t.store.writeNode(encodeLeaf(v), true)
		if err != nil {
			return nil, err
		}
		return newHashNode(loc, v.hashVal, true), nil

	default:
		panic("urkel: unreachable node variant")
	}
}
