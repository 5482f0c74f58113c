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
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

func TestParseDataFileName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		wantIdx uint16
		wantOK  bool
	}{
		{"0000000001", 1, true},
		{"0000000042", 42, true},
		{"meta", 0, false},
		{"urkel.lock", 0, false},
		{"00000000ff", 0, false},
		{"0000000000", 0, false}, // index 0 is reserved for "unpersisted"
	}

	for _, c := range cases {
		idx, ok := parseDataFileName(c.name)
		if ok != c.wantOK || (ok && idx != c.wantIdx) {
			t.Fatalf("parseDataFileName(%q) = (%d, %v), want (%d, %v)", c.name, idx, ok, c.wantIdx, c.wantOK)
		}
	}
}

func TestLoadOrCreateMetaKeyIsStable(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	first, err := loadOrCreateMetaKey(dir)
	require.NoError(t, err)

	second, err := loadOrCreateMetaKey(dir)
	require.NoError(t, err)

	require.Equal(t, first, second, "meta key changed across loads of the same directory")
}

func TestStoreWriteAndResolveRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	store, err := openStore(dir, Options{})
	require.NoError(t, err)
	defer store.Close()

	key := hashRaw([]byte("name-1"))
	leaf := newLeafNode(key, []byte("value-1"))

	require.NoError(t, store.writeValue(leaf))
	loc, err := store.writeNode(encodeLeaf(leaf), true)
	require.NoError(t, err)

	h := newHashNode(loc, leaf.hashVal, true)
	resolved, err := store.resolve(h)
	require.NoError(t, err)

	rl, ok := resolved.(*leafNode)
	if !ok {
		t.Fatalf("resolve returned %T, want *leafNode; dump: %s", resolved, spew.Sdump(resolved))
	}
	require.Equal(t, key, rl.key)

	value, err := store.retrieve(rl.vloc)
	require.NoError(t, err)
	require.Equal(t, []byte("value-1"), value)
}

func TestStoreCommitIsRecoverable(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	store, err := openStore(dir, Options{})
	require.NoError(t, err)

	leaf := newLeafNode(hashRaw([]byte("name-1")), []byte("value-1"))
	require.NoError(t, store.writeValue(leaf))
	loc, err := store.writeNode(encodeLeaf(leaf), true)
	require.NoError(t, err)

	root := newHashNode(loc, leaf.hashVal, true)
	rec, err := store.commit(root)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	got, found, err := store.recoverMeta()
	require.NoError(t, err)
	require.True(t, found, "recoverMeta did not find the committed meta-record")
	require.Equal(t, rec, got)
}

func TestRecoverMetaFindsMostRecentAcrossCommits(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	store, err := openStore(dir, Options{})
	require.NoError(t, err)

	var lastRec metaRecord
	for i := 0; i < 5; i++ {
		leaf := newLeafNode(hashRaw([]byte{byte(i)}), []byte{byte(i), byte(i)})
		require.NoError(t, store.writeValue(leaf))
		loc, err := store.writeNode(encodeLeaf(leaf), true)
		require.NoError(t, err)

		lastRec, err = store.commit(newHashNode(loc, leaf.hashVal, true))
		require.NoError(t, err)
	}
	require.NoError(t, store.Close())

	got, found, err := store.recoverMeta()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, lastRec, got)
}

func TestStoreRotatesActiveFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	store, err := openStore(dir, Options{})
	require.NoError(t, err)
	defer store.Close()

	// Force the store to the edge of a file boundary without writing
	// maxFileSize bytes for real.
	store.pos = uint32(store.maxFileSize) - 10

	leaf := newLeafNode(hashRaw([]byte("name-1")), make([]byte, 64))
	require.NoError(t, store.writeValue(leaf))

	if store.activeIndex != 2 {
		t.Fatalf("activeIndex after rotation = %d, want 2", store.activeIndex)
	}
	if store.pos != uint32(len(leaf.value)) {
		t.Fatalf("pos after rotation = %d, want %d", store.pos, len(leaf.value))
	}
}

func TestOpenStoreFailsWhenLocked(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	first, err := openStore(dir, Options{})
	require.NoError(t, err)
	defer first.Close()

	_, err = openStore(dir, Options{})
	require.ErrorIs(t, err, ErrLocked)
}

func TestOpenStoreReadOnlySkipsLock(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writer, err := openStore(dir, Options{})
	require.NoError(t, err)
	defer writer.Close()

	reader, err := openStore(dir, Options{ReadOnly: true})
	require.NoError(t, err)
	defer reader.Close()
}
