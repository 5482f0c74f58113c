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

// ProofType distinguishes the three shapes a proof can take, depending on
// what Prove found at the end of its descent.
type ProofType int

const (
	// ProofDeadend proves absence: descent reached an Empty slot before
	// exhausting the key.
	ProofDeadend ProofType = iota

	// ProofCollision proves absence: descent reached a leaf belonging to a
	// different key that shares a bit-prefix with the queried key.
	ProofCollision

	// ProofExists proves membership: descent reached a leaf for exactly the
	// queried key.
	ProofExists
)

// Proof is a self-contained witness for a single key's membership or
// non-membership against a given root hash. Witnesses are sibling hashes in
// descent order (shallowest first); Verify folds them in reverse.
type Proof struct {
	Type      ProofType
	Witnesses []Digest

	// Key and ValueHash are set only for ProofCollision: the key and
	// H_raw(value) of the leaf descent actually reached.
	Key       *Digest
	ValueHash *Digest

	// Value is set only for ProofExists: the value found at the queried key.
	Value []byte
}

// wellFormed checks the shape invariants for p.Type before Verify does any
// hashing. Unlike a naive reading of the fold algorithm, a Deadend proof
// with no key, value hash, or value is well-formed: it is Collision and
// Exists that each require specific fields to be present or absent. The
// Exists value-size check is against DefaultMaxValueSize rather than a
// particular Tree's configured Options.MaxValueSize: a Proof outlives the
// Tree that produced it and carries no reference back to its Options, so
// this is a sanity bound on the wire shape, not a re-check of the policy
// the originating Insert enforced.
func (p *Proof) wellFormed(bits int) bool {
	switch p.Type {
	case ProofExists:
		return p.Key == nil && p.ValueHash == nil && p.Value != nil && len(p.Value) <= DefaultMaxValueSize

	case ProofCollision:
		return p.Key != nil && p.ValueHash != nil && p.Value == nil

	case ProofDeadend:
		return p.Key == nil && p.ValueHash == nil && p.Value == nil

	default:
		return false
	}
}

// Verify checks p against rootHash for key, returning the proven value for
// an Exists proof and nil for a non-membership proof. bits is the key width
// in bits (KeyBits for every tree produced by this package; callers
// reconstructing a proof for a different width pass it explicitly).
func (p *Proof) Verify(rootHash Digest, key Digest, bits int) ([]byte, error) {
	if !p.wellFormed(bits) {
		return nil, ErrProofUnknown
	}

	var next Digest
	switch p.Type {
	case ProofDeadend:
		next = zeroDigest

	case ProofCollision:
		if *p.Key == key {
			return nil, ErrProofSameKey
		}
		next = hashLeaf(*p.Key, *p.ValueHash)

	case ProofExists:
		next = hashLeafValue(key, p.Value)
	}

	depth := len(p.Witnesses) - 1
	for i := len(p.Witnesses) - 1; i >= 0; i-- {
		sibling := p.Witnesses[i]
		if hasBit(key, depth) {
			next = hashInternal(sibling, next)
		} else {
			next = hashInternal(next, sibling)
		}
		if depth > 0 {
			depth--
		}
	}

	if next != rootHash {
		return nil, ErrProofHeadMismatch
	}

	if p.Type == ProofExists {
		if p.Value == nil {
			return nil, ErrProofBadVerify
		}
		return p.Value, nil
	}
	return nil, nil
}
