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

	"github.com/stretchr/testify/require"
)

func TestOptionsResolvedFillsDefaults(t *testing.T) {
	t.Parallel()

	r, err := Options{}.resolved()
	require.NoError(t, err)
	require.Equal(t, uint32(DefaultMaxValueSize), r.MaxValueSize)
	require.Equal(t, uint64(DefaultMaxFileSize), r.MaxFileSize)
	require.Equal(t, uint32(DefaultRecoveryWindowSize), r.RecoveryWindowSize)
}

func TestOptionsResolvedRejectsOversizedMaxValueSize(t *testing.T) {
	t.Parallel()

	_, err := Options{MaxValueSize: 0x10000}.resolved()
	require.Error(t, err)
}

func TestOptionsMaxValueSizeIsEnforcedByInsert(t *testing.T) {
	t.Parallel()

	tr, err := Open(t.TempDir(), Options{MaxValueSize: 4})
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })

	require.NoError(t, tr.Insert(hashRaw([]byte("k")), []byte("1234")))
	require.ErrorIs(t, tr.Insert(hashRaw([]byte("k2")), []byte("12345")), ErrValueTooLarge)
}

func TestOptionsMaxFileSizeDrivesRotation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := openStore(dir, Options{MaxFileSize: 128})
	require.NoError(t, err)
	defer store.Close()

	require.Equal(t, uint16(1), store.activeIndex)

	leaf := newLeafNode(hashRaw([]byte("k")), make([]byte, 96))
	require.NoError(t, store.writeValue(leaf))
	require.NoError(t, store.writeValue(leaf))

	require.Equal(t, uint16(2), store.activeIndex, "a custom MaxFileSize smaller than the default should drive rotation much sooner")
}
