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

// metaMagic identifies a valid meta-record when scanning backward through a
// data file during recovery.
const metaMagic uint32 = 0x6d726b6c

// MetaSize is the on-disk size of a meta-record, not counting the alignment
// padding that precedes it (spec.md §4.D).
const MetaSize = 36

// metaRecord is the commit marker appended at the end of every commit: it
// locates the new root and carries an integrity checksum keyed by the
// database's per-directory meta-key.
type metaRecord struct {
	metaIndex uint16
	metaPos   uint32
	rootIndex uint16
	rootPos   uint32 // raw (untagged) position
	rootLeaf  bool
}

// encodeMeta serialises a meta-record for appending at buffer offset
// bufferPos. It prepends zero padding so the record itself starts at an
// offset divisible by MetaSize; the padding bytes are written but excluded
// from the checksum pre-image.
func encodeMeta(m metaRecord, bufferPos uint32, metaKey [32]byte) []byte {
	padding := MetaSize - int(bufferPos)%MetaSize
	if padding == MetaSize {
		padding = 0
	}

	buf := make([]byte, padding+MetaSize)
	rec := buf[padding:]

	binary.LittleEndian.PutUint32(rec[0:4], metaMagic)
	binary.LittleEndian.PutUint16(rec[4:6], m.metaIndex)
	binary.LittleEndian.PutUint32(rec[6:10], m.metaPos)
	binary.LittleEndian.PutUint16(rec[10:12], m.rootIndex)
	binary.LittleEndian.PutUint32(rec[12:16], taggedPos(m.rootPos, m.rootLeaf))

	sum := checksum(rec[:16], metaKey)
	copy(rec[16:36], sum[:20])

	return buf
}

// decodeMeta parses a 36-byte meta-record and verifies its checksum against
// metaKey. A magic mismatch or checksum mismatch is corruption.
func decodeMeta(buf []byte, metaKey [32]byte) (metaRecord, error) {
	if len(buf) != MetaSize {
		return metaRecord{}, fmt.Errorf("%w: meta record has %d bytes, want %d", ErrCorrupt, len(buf), MetaSize)
	}

	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != metaMagic {
		return metaRecord{}, fmt.Errorf("%w: bad meta magic %#x", ErrCorrupt, magic)
	}

	want := checksum(buf[0:16], metaKey)
	got := buf[16:36]
	for i := 0; i < 20; i++ {
		if want[i] != got[i] {
			return metaRecord{}, fmt.Errorf("%w: meta checksum mismatch", ErrCorrupt)
		}
	}

	rootPosTagged := binary.LittleEndian.Uint32(buf[12:16])
	rawPos, isLeaf := untagPos(rootPosTagged)

	return metaRecord{
		metaIndex: binary.LittleEndian.Uint16(buf[4:6]),
		metaPos:   binary.LittleEndian.Uint32(buf[6:10]),
		rootIndex: binary.LittleEndian.Uint16(buf[10:12]),
		rootPos:   rawPos,
		rootLeaf:  isLeaf,
	}, nil
}
